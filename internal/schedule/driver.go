package schedule

import (
	"context"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"

	"mess_market/pkg/contextx"
	"mess_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// DriverOptions wires the driver's collaborators.
type DriverOptions struct {
	// Render produces the announcement text for a price.
	Render func(price int) string

	// Announce pushes the announcement outward. Best-effort: the
	// callback logs its own failures.
	Announce func(ctx context.Context, price int, text string)

	// OnAutoStop fires once when the stop time passes without a sale.
	OnAutoStop func(ctx context.Context)

	// IsSold is consulted before each timer effect.
	IsSold func() bool
}

// Driver arms one-shot timers for a Schedule and owns the single
// mutable current-price cell. The schedule itself stays immutable; the
// driver is the only writer of the price.
type Driver struct {
	clock clock.Clock
	opts  DriverOptions

	mu      sync.Mutex
	timers  []*clock.Timer
	stopped bool
	price   int
	known   bool
}

func NewDriver(clk clock.Clock, opts DriverOptions) *Driver {
	if clk == nil {
		clk = clock.New()
	}

	return &Driver{clock: clk, opts: opts}
}

// Start arms a timer per future step plus the auto-stop timer. Steps
// whose time already passed are skipped without touching the price, so
// a mid-window start keeps announcing from the right rung of the
// ladder without back-filling.
func (d *Driver) Start(ctx context.Context, sched Schedule, startingPrice int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = false
	d.price = startingPrice
	d.known = true

	now := d.clock.Now()

	armed := 0

	for _, step := range sched.Steps {
		step := step

		delay := step.SendTime.Sub(now)
		if delay <= 0 {
			logger(ctx).Debug("step time already passed, skipping",
				slog.Time("send-time", step.SendTime),
				slog.Int(logx.FieldPrice, step.Price),
			)

			continue
		}

		d.timers = append(d.timers, d.clock.AfterFunc(delay, func() {
			d.fireStep(ctx, step.Price)
		}))

		armed++
	}

	if stopDelay := sched.StopTime.Sub(now); stopDelay > 0 {
		d.timers = append(d.timers, d.clock.AfterFunc(stopDelay, func() {
			d.fireAutoStop(ctx)
		}))
	}

	logger(ctx).Info("price schedule armed",
		slog.Int("steps", armed),
		slog.Time("stop-time", sched.StopTime),
		slog.Int(logx.FieldPrice, startingPrice),
	)
}

// Stop cancels every armed timer. Idempotent; safe after natural
// completion.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
}

func (d *Driver) Stopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stopped
}

// CurrentPrice returns the price cell; ok is false until Start sets it.
func (d *Driver) CurrentPrice() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.price, d.known
}

func (d *Driver) SetCurrentPrice(price int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.price = price
	d.known = true
}

func (d *Driver) fireStep(ctx context.Context, price int) {
	// IsSold reaches into the coordinator; never call it under d.mu.
	if d.Stopped() || d.opts.IsSold() {
		logger(ctx).Debug("skipping price step, sale closed", slog.Int(logx.FieldPrice, price))
		return
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.price = price
	d.mu.Unlock()

	logger(ctx).Info("announcing price", slog.Int(logx.FieldPrice, price))

	d.opts.Announce(ctx, price, d.opts.Render(price))
}

func (d *Driver) fireAutoStop(ctx context.Context) {
	if d.opts.IsSold() {
		return
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopLocked()
	d.mu.Unlock()

	logger(ctx).Info("stop time reached without sale")

	d.opts.OnAutoStop(ctx)
}

func (d *Driver) stopLocked() {
	if d.stopped {
		return
	}

	d.stopped = true

	for _, t := range d.timers {
		t.Stop()
	}

	d.timers = nil
}
