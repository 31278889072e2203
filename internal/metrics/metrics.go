package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sale holds the per-run sale collectors.
type Sale struct {
	MessagesReceived prometheus.Counter
	Negotiations     prometheus.Counter
	Announcements    prometheus.Counter
	CurrentPrice     prometheus.Gauge
	BuyersQueued     prometheus.Gauge
}

func NewSale(reg prometheus.Registerer) *Sale {
	factory := promauto.With(reg)

	return &Sale{
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "mess_market_messages_received_total",
			Help: "Inbound private messages seen by the coordinator.",
		}),
		Negotiations: factory.NewCounter(prometheus.CounterOpts{
			Name: "mess_market_negotiation_attempts_total",
			Help: "Price offers processed, accepted or not.",
		}),
		Announcements: factory.NewCounter(prometheus.CounterOpts{
			Name: "mess_market_price_announcements_total",
			Help: "Scheduled price announcements sent to the group.",
		}),
		CurrentPrice: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mess_market_current_price",
			Help: "Current asking price.",
		}),
		BuyersQueued: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mess_market_buyers_queued",
			Help: "Buyers waiting behind the current one.",
		}),
	}
}
