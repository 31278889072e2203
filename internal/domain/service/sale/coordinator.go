package sale

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/benbjohnson/clock"

	"mess_market/internal/config"
	"mess_market/internal/domain/entity"
	"mess_market/internal/metrics"
	"mess_market/pkg/contextx"
	"mess_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// Transport is the messaging collaborator. Send failures are logged by
// the coordinator and never propagated: at-most-once delivery, no
// rollback of state changes that already happened.
type Transport interface {
	SendText(ctx context.Context, ch entity.ChannelRef, text string) error
	SendPhoto(ctx context.Context, ch entity.ChannelRef, path string) error
	ResolveChannel(ctx context.Context, buyerID int64) (entity.ChannelRef, error)
}

// PriceSource is the scheduler driver's price cell as seen from the
// coordinator.
type PriceSource interface {
	CurrentPrice() (int, bool)
	Stop()
}

// Coordinator owns the sale state machine: the state field, the current
// buyer, the wait queue and both buyer timers. Every mutation happens
// under one mutex so concurrent timer fires and inbound messages cannot
// break the one-current-buyer invariant.
type Coordinator struct {
	cfg       config.Sale
	transport Transport
	prices    PriceSource
	clock     clock.Clock
	metrics   *metrics.Sale

	mu              sync.Mutex
	state           entity.SaleState
	current         *entity.Buyer
	queue           buyerQueue
	inactivityTimer *clock.Timer
	warningTimer    *clock.Timer
	stats           entity.SaleStats
}

func NewCoordinator(
	cfg config.Sale,
	transport Transport,
	prices PriceSource,
	clk clock.Clock,
	m *metrics.Sale,
) *Coordinator {
	if clk == nil {
		clk = clock.New()
	}

	return &Coordinator{
		cfg:       cfg,
		transport: transport,
		prices:    prices,
		clock:     clk,
		metrics:   m,
		state:     entity.SaleOpen,
	}
}

func (c *Coordinator) IsSold() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state == entity.SaleSold
}

func (c *Coordinator) State() entity.SaleState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Coordinator) Stats() entity.SaleStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stats
}

// HandleMessage dispatches one classified inbound message. Rules are
// evaluated in precedence order; every message counts toward stats even
// when nothing else happens.
func (c *Coordinator) HandleMessage(ctx context.Context, msg entity.InboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.MessagesReceived++
	c.metrics.MessagesReceived.Inc()

	log := logger(ctx).With(
		slog.Int64(logx.FieldBuyerID, msg.SenderID),
		slog.String("event", msg.Kind.String()),
		logx.Stringer(logx.FieldSaleState, c.state),
	)

	switch {
	case c.state == entity.SaleSold:
		if msg.Kind == entity.EventBuyerIntent {
			log.Info("replying already sold")
			c.send(ctx, msg.Channel, config.SoldMessage())
		}
	case c.state == entity.SaleStopped:
		// Terminal; message is counted, nothing else.
	case c.isCurrent(msg.SenderID) && msg.Kind == entity.EventSaleDone:
		c.completeSale(ctx, msg.Channel, msg.SenderName)
	case c.cfg.EnableNegotiation && msg.Kind == entity.EventPriceOffer:
		c.negotiate(ctx, msg)
	case msg.Kind == entity.EventBuyerIntent:
		c.handleBuyerIntent(ctx, msg)
	case c.isCurrent(msg.SenderID) && msg.Kind == entity.EventUnrecognized:
		log.Info("prompting current buyer for done reply")
		c.send(ctx, msg.Channel, config.UnrecognizedMessage())
	default:
		log.Debug("message ignored")
	}
}

// HandleUnsoldStop is the scheduler driver's auto-stop callback: the
// window closed without a sale. Terminal, no further buyer interaction.
func (c *Coordinator) HandleUnsoldStop(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return
	}

	c.state = entity.SaleStopped
	c.current = nil
	c.clearTimers()
	c.prices.Stop()

	logger(ctx).Info("sale stopped unsold", slog.Int("messages", c.stats.MessagesReceived))
}

func (c *Coordinator) isCurrent(senderID int64) bool {
	return c.current != nil && c.current.ID == senderID
}

func (c *Coordinator) handleBuyerIntent(ctx context.Context, msg entity.InboundMessage) {
	log := logger(ctx).With(slog.Int64(logx.FieldBuyerID, msg.SenderID))

	// Idempotent re-intent from the buyer already holding the item.
	if c.isCurrent(msg.SenderID) {
		log.Debug("sender is already the current buyer")
		return
	}

	if c.current == nil {
		c.assignBuyer(ctx, msg.SenderID, msg.SenderName, msg.Channel)
		return
	}

	elapsed := c.clock.Now().Sub(c.current.AssignedAt)

	if elapsed < c.cfg.BuyerInactivity {
		// Contending second buyer inside the window: queue them and
		// put the current buyer on the payment-warning clock.
		c.stopTimer(&c.inactivityTimer)

		if c.queue.push(msg.SenderID, msg.SenderName) {
			c.metrics.BuyersQueued.Set(float64(c.queue.len()))
			log.Info("buyer queued", slog.Int(logx.FieldQueueLength, c.queue.len()))
		}

		c.startPaymentWarning(ctx)

		return
	}

	// Inactivity window already over: the old buyer is dropped without
	// notice and the newcomer takes over.
	log.Info("current buyer exceeded inactivity window, silently dropping",
		slog.String(logx.FieldBuyerName, c.current.Name),
	)
	c.releaseBuyer()
	c.assignBuyer(ctx, msg.SenderID, msg.SenderName, msg.Channel)
}

// assignBuyer makes the sender the current buyer and sends the payment
// sequence. Each send is best-effort: a failure never rolls back the
// assignment.
func (c *Coordinator) assignBuyer(ctx context.Context, id int64, name string, ch entity.ChannelRef) {
	// The assignee may already sit in the queue, e.g. after an accepted
	// offer while someone else held the item. The current buyer is never
	// queued.
	if c.queue.remove(id) {
		c.metrics.BuyersQueued.Set(float64(c.queue.len()))
	}

	c.state = entity.SaleBuyerAssigned
	c.current = &entity.Buyer{
		ID:         id,
		Name:       name,
		Channel:    ch,
		AssignedAt: c.clock.Now(),
	}

	logger(ctx).Info("buyer assigned",
		slog.Int64(logx.FieldBuyerID, id),
		slog.String(logx.FieldBuyerName, name),
	)

	c.send(ctx, ch, c.cfg.UPIID)

	// Price quoted to the buyer is frozen at assignment time.
	if price, ok := c.prices.CurrentPrice(); ok {
		c.send(ctx, ch, config.PayViaPhoneMessage(price, c.cfg.PhoneNumber))
	}

	c.send(ctx, ch, config.PaymentInstructionMessage())

	c.startInactivityTimer(ctx)
}

// startInactivityTimer arms the silent-drop timer: if no second buyer
// shows up within the window, the claimant is released without any
// message so a later party can be served.
func (c *Coordinator) startInactivityTimer(ctx context.Context) {
	c.stopTimer(&c.inactivityTimer)

	buyerID := c.current.ID

	c.inactivityTimer = c.clock.AfterFunc(c.cfg.BuyerInactivity, func() {
		c.onInactivity(ctx, buyerID)
	})
}

func (c *Coordinator) onInactivity(ctx context.Context, buyerID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() || !c.isCurrent(buyerID) {
		return
	}

	logger(ctx).Info("inactivity window elapsed, silently releasing buyer",
		slog.Int64(logx.FieldBuyerID, buyerID),
		slog.String(logx.FieldBuyerName, c.current.Name),
	)

	c.releaseBuyer()
}

// startPaymentWarning warns the contested current buyer immediately and
// arms the move-on timer. Only one of the two timer kinds is ever
// active for a buyer.
func (c *Coordinator) startPaymentWarning(ctx context.Context) {
	c.clearTimers()

	buyer := c.current

	logger(ctx).Info("payment warning sent",
		slog.Int64(logx.FieldBuyerID, buyer.ID),
		slog.Duration("window", c.cfg.BuyerWarning),
	)

	c.send(ctx, buyer.Channel, config.TimeoutWarningMessage())

	buyerID := buyer.ID

	c.warningTimer = c.clock.AfterFunc(c.cfg.BuyerWarning, func() {
		c.onWarningExpired(ctx, buyerID)
	})
}

func (c *Coordinator) onWarningExpired(ctx context.Context, buyerID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() || !c.isCurrent(buyerID) {
		return
	}

	logger(ctx).Info("payment warning expired, moving on",
		slog.Int64(logx.FieldBuyerID, buyerID),
	)

	c.send(ctx, c.current.Channel, config.TimeoutFinalMessage())
	c.releaseBuyer()
	c.tryNextBuyer(ctx)
}

// tryNextBuyer pops queued buyers until one's channel resolves; a
// resolution failure is logged and the next entry is tried. An empty
// queue leaves the sale open with no current buyer; the next price
// announcement or fresh intent revives it.
func (c *Coordinator) tryNextBuyer(ctx context.Context) {
	for {
		next, ok := c.queue.pop()
		if !ok {
			logger(ctx).Info("buyer queue empty")
			return
		}

		c.metrics.BuyersQueued.Set(float64(c.queue.len()))

		ch, err := c.transport.ResolveChannel(ctx, next.ID)
		if err != nil {
			logger(ctx).Error("resolve channel for queued buyer",
				logx.Error(err),
				slog.Int64(logx.FieldBuyerID, next.ID),
			)

			continue
		}

		c.assignBuyer(ctx, next.ID, next.Name, ch)

		return
	}
}

func (c *Coordinator) negotiate(ctx context.Context, msg entity.InboundMessage) {
	c.stats.Negotiations++
	c.metrics.Negotiations.Inc()

	log := logger(ctx).With(
		slog.Int64(logx.FieldBuyerID, msg.SenderID),
		slog.Int(logx.FieldOffer, msg.Offer),
	)

	price, ok := c.prices.CurrentPrice()
	if !ok {
		log.Info("offer ignored, no active price")
		return
	}

	minAcceptable := price - c.cfg.NegotiationMargin

	if msg.Offer < minAcceptable {
		// Rejected silently; answering lowballs just invites spam.
		log.Info("offer rejected", slog.Int("min-acceptable", minAcceptable))
		return
	}

	log.Info("offer accepted", slog.Int("min-acceptable", minAcceptable))
	c.send(ctx, msg.Channel, config.NegotiationAcceptedMessage(msg.Offer))

	switch {
	case c.current == nil:
		c.assignBuyer(ctx, msg.SenderID, msg.SenderName, msg.Channel)
	case c.current.ID != msg.SenderID:
		if c.queue.push(msg.SenderID, msg.SenderName) {
			c.metrics.BuyersQueued.Set(float64(c.queue.len()))
		}
	}
}

func (c *Coordinator) completeSale(ctx context.Context, ch entity.ChannelRef, buyerName string) {
	c.state = entity.SaleSold

	price, _ := c.prices.CurrentPrice()
	c.stats.Sold = true
	c.stats.SoldPrice = price
	c.stats.BuyerName = buyerName
	c.stats.TimeSold = c.clock.Now()

	c.current = nil
	c.clearTimers()
	c.prices.Stop()

	logger(ctx).Info("sold",
		slog.String(logx.FieldBuyerName, buyerName),
		slog.Int(logx.FieldPrice, price),
	)

	if _, err := os.Stat(c.cfg.QRImagePath); err == nil {
		if err := c.transport.SendPhoto(ctx, ch, c.cfg.QRImagePath); err != nil {
			logger(ctx).Error("send QR image", logx.Error(err))
		}
	} else {
		logger(ctx).Warn("QR image not found, sending confirmation only",
			slog.String("path", c.cfg.QRImagePath),
		)
	}

	c.send(ctx, ch, config.SaleConfirmMessage(buyerName))
}

func (c *Coordinator) releaseBuyer() {
	c.clearTimers()
	c.current = nil

	if !c.state.Terminal() {
		c.state = entity.SaleOpen
	}
}

func (c *Coordinator) clearTimers() {
	c.stopTimer(&c.inactivityTimer)
	c.stopTimer(&c.warningTimer)
}

func (c *Coordinator) stopTimer(t **clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (c *Coordinator) send(ctx context.Context, ch entity.ChannelRef, text string) {
	if err := c.transport.SendText(ctx, ch, text); err != nil {
		logger(ctx).Error("send failed",
			logx.Error(err),
			slog.Int64(logx.FieldChatID, int64(ch)),
		)
	}
}
