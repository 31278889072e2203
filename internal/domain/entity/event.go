package entity

type EventKind int

const (
	EventUnrecognized EventKind = iota
	EventBuyerIntent
	EventSaleDone
	EventPriceOffer
)

func (k EventKind) String() string {
	switch k {
	case EventBuyerIntent:
		return "buyer_intent"
	case EventSaleDone:
		return "sale_done"
	case EventPriceOffer:
		return "price_offer"
	default:
		return "unrecognized"
	}
}

// InboundMessage is a classified private message. The transport filters
// out group and broadcast origins before classification.
type InboundMessage struct {
	Kind       EventKind
	SenderID   int64
	SenderName string
	Channel    ChannelRef

	// Offer is set only for EventPriceOffer.
	Offer int
}
