package entity

import "time"

type SaleState int

const (
	SaleOpen SaleState = iota
	SaleBuyerAssigned
	SaleSold
	SaleStopped
)

// Terminal reports whether no further sale mutation is permitted.
func (s SaleState) Terminal() bool {
	return s == SaleSold || s == SaleStopped
}

func (s SaleState) String() string {
	switch s {
	case SaleOpen:
		return "open"
	case SaleBuyerAssigned:
		return "buyer_assigned"
	case SaleSold:
		return "sold"
	case SaleStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SaleStats accumulates over one sale. Sold-related fields are written
// once, when the sale completes.
type SaleStats struct {
	MessagesReceived int
	Negotiations     int
	Sold             bool
	SoldPrice        int
	BuyerName        string
	TimeSold         time.Time
}
