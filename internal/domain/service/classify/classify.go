package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"mess_market/internal/domain/entity"
)

// Offers above this are assumed to be misparsed numbers (order IDs,
// phone fragments), not prices.
const maxPlausibleOffer = 500

var (
	currencyReplacer = strings.NewReplacer("₹", "") //nolint:gochecknoglobals
	rsPattern        = regexp.MustCompile(`(?i)rs\.?|inr`)
	numberPattern    = regexp.MustCompile(`\b(\d+)\b`)
)

// Classifier tags inbound text with an event kind. It is pure: all
// keyword lists and the negotiation flag come in at construction, so
// the coordinator never touches raw text.
type Classifier struct {
	buyerPatterns []*regexp.Regexp
	doneKeywords  []string
	negotiation   bool
}

func New(buyerKeywords, doneKeywords []string, negotiationEnabled bool) *Classifier {
	return &Classifier{
		buyerPatterns: lo.Map(buyerKeywords, keywordPattern),
		doneKeywords: lo.Map(doneKeywords, func(kw string, _ int) string {
			return strings.ToLower(kw)
		}),
		negotiation: negotiationEnabled,
	}
}

// Classify resolves the event kind for one private message. Completion
// keywords win over everything; price offers are only tagged when
// negotiation is enabled, so that a numeric message still matches buyer
// keywords otherwise.
func (c *Classifier) Classify(senderID int64, senderName string, channel entity.ChannelRef, text string) entity.InboundMessage {
	msg := entity.InboundMessage{
		Kind:       entity.EventUnrecognized,
		SenderID:   senderID,
		SenderName: senderName,
		Channel:    channel,
	}

	body := strings.TrimSpace(text)

	switch {
	case c.IsDoneKeyword(body):
		msg.Kind = entity.EventSaleDone
	case c.negotiation:
		if offer, ok := ExtractPrice(body); ok {
			msg.Kind = entity.EventPriceOffer
			msg.Offer = offer
		} else if c.IsBuyerKeyword(body) {
			msg.Kind = entity.EventBuyerIntent
		}
	case c.IsBuyerKeyword(body):
		msg.Kind = entity.EventBuyerIntent
	}

	return msg
}

func (c *Classifier) IsBuyerKeyword(text string) bool {
	return lo.SomeBy(c.buyerPatterns, func(p *regexp.Regexp) bool {
		return p.MatchString(text)
	})
}

func (c *Classifier) IsDoneKeyword(text string) bool {
	lower := strings.ToLower(text)

	return lo.SomeBy(c.doneKeywords, func(kw string) bool {
		return strings.Contains(lower, kw)
	})
}

// keywordPattern builds a whole-word match for the keyword. A `\b` next
// to a non-word edge character (e.g. the "?" in "available?") can never
// match, so boundaries are only anchored on word-character edges.
func keywordPattern(kw string, _ int) *regexp.Regexp {
	pattern := regexp.QuoteMeta(kw)

	runes := []rune(kw)
	if len(runes) > 0 && isWordRune(runes[0]) {
		pattern = `\b` + pattern
	}

	if len(runes) > 0 && isWordRune(runes[len(runes)-1]) {
		pattern += `\b`
	}

	return regexp.MustCompile(`(?i)` + pattern)
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// ExtractPrice pulls the first standalone number out of the text after
// stripping currency markers. Zero and implausibly large numbers do not
// count as offers.
func ExtractPrice(text string) (int, bool) {
	cleaned := strings.TrimSpace(rsPattern.ReplaceAllString(currencyReplacer.Replace(text), ""))

	match := numberPattern.FindStringSubmatch(cleaned)
	if match == nil {
		return 0, false
	}

	num, err := strconv.Atoi(match[1])
	if err != nil || num <= 0 || num > maxPlausibleOffer {
		return 0, false
	}

	return num, true
}
