package sale

import (
	"github.com/samber/lo"
)

type queuedBuyer struct {
	ID   int64
	Name string
}

// buyerQueue is a FIFO of waiting buyers, deduplicated by sender ID.
// The current buyer is never in it.
type buyerQueue struct {
	items []queuedBuyer
}

// push enqueues the buyer unless already present. Reports whether the
// queue changed.
func (q *buyerQueue) push(id int64, name string) bool {
	if q.contains(id) {
		return false
	}

	q.items = append(q.items, queuedBuyer{ID: id, Name: name})

	return true
}

func (q *buyerQueue) pop() (queuedBuyer, bool) {
	if len(q.items) == 0 {
		return queuedBuyer{}, false
	}

	head := q.items[0]
	q.items = q.items[1:]

	return head, true
}

// remove drops the buyer from the queue if present. Reports whether
// anything was removed.
func (q *buyerQueue) remove(id int64) bool {
	before := len(q.items)

	q.items = lo.Reject(q.items, func(b queuedBuyer, _ int) bool {
		return b.ID == id
	})

	return len(q.items) != before
}

func (q *buyerQueue) contains(id int64) bool {
	return lo.ContainsBy(q.items, func(b queuedBuyer) bool {
		return b.ID == id
	})
}

func (q *buyerQueue) len() int {
	return len(q.items)
}
