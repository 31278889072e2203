package sale_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"mess_market/internal/config"
	"mess_market/internal/domain/entity"
	"mess_market/internal/domain/service/sale"
	"mess_market/internal/metrics"
)

type sentText struct {
	Channel entity.ChannelRef
	Text    string
}

type fakeTransport struct {
	mu         sync.Mutex
	texts      []sentText
	photos     []entity.ChannelRef
	channels   map[int64]entity.ChannelRef
	resolveErr map[int64]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		channels:   map[int64]entity.ChannelRef{},
		resolveErr: map[int64]error{},
	}
}

func (f *fakeTransport) SendText(_ context.Context, ch entity.ChannelRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.texts = append(f.texts, sentText{Channel: ch, Text: text})

	return nil
}

func (f *fakeTransport) SendPhoto(_ context.Context, ch entity.ChannelRef, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.photos = append(f.photos, ch)

	return nil
}

func (f *fakeTransport) ResolveChannel(_ context.Context, buyerID int64) (entity.ChannelRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.resolveErr[buyerID]; ok {
		return 0, err
	}

	if ch, ok := f.channels[buyerID]; ok {
		return ch, nil
	}

	return entity.ChannelRef(buyerID), nil
}

func (f *fakeTransport) sentTexts() []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]sentText(nil), f.texts...)
}

func (f *fakeTransport) sentTo(ch entity.ChannelRef) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string

	for _, s := range f.texts {
		if s.Channel == ch {
			out = append(out, s.Text)
		}
	}

	return out
}

func (f *fakeTransport) sentPhotos() []entity.ChannelRef {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]entity.ChannelRef(nil), f.photos...)
}

type fakePrices struct {
	mu      sync.Mutex
	price   int
	known   bool
	stopped bool
}

func (f *fakePrices) CurrentPrice() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.price, f.known
}

func (f *fakePrices) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopped = true
}

func (f *fakePrices) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.stopped
}

func testSaleConfig(t *testing.T) config.Sale {
	t.Helper()

	return config.Sale{
		UPIID:             "seller@upi",
		PhoneNumber:       "+910000000000",
		QRImagePath:       filepath.Join(t.TempDir(), "missing-qr.png"),
		StartingPrice:     30,
		PriceDrop:         5,
		NegotiationMargin: 5,
		BuyerInactivity:   3 * time.Minute,
		BuyerWarning:      30 * time.Second,
	}
}

type fixture struct {
	coordinator *sale.Coordinator
	transport   *fakeTransport
	prices      *fakePrices
	clock       *clock.Mock
}

func newFixture(t *testing.T, mutate func(*config.Sale)) *fixture {
	t.Helper()

	cfg := testSaleConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}

	transport := newFakeTransport()
	prices := &fakePrices{price: 30, known: true}
	mock := clock.NewMock()

	return &fixture{
		coordinator: sale.NewCoordinator(cfg, transport, prices, mock,
			metrics.NewSale(prometheus.NewRegistry())),
		transport: transport,
		prices:    prices,
		clock:     mock,
	}
}

func intent(id int64, name string) entity.InboundMessage {
	return entity.InboundMessage{
		Kind:       entity.EventBuyerIntent,
		SenderID:   id,
		SenderName: name,
		Channel:    entity.ChannelRef(id),
	}
}

func done(id int64, name string) entity.InboundMessage {
	return entity.InboundMessage{
		Kind:       entity.EventSaleDone,
		SenderID:   id,
		SenderName: name,
		Channel:    entity.ChannelRef(id),
	}
}

func offer(id int64, name string, amount int) entity.InboundMessage {
	return entity.InboundMessage{
		Kind:       entity.EventPriceOffer,
		SenderID:   id,
		SenderName: name,
		Channel:    entity.ChannelRef(id),
		Offer:      amount,
	}
}

func TestAssignOnIntent(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))

	rq.Equal(entity.SaleBuyerAssigned, fx.coordinator.State())

	got := fx.transport.sentTo(1)
	rq.Equal([]string{
		"seller@upi",
		config.PayViaPhoneMessage(30, "+910000000000"),
		config.PaymentInstructionMessage(),
	}, got)
}

func TestRepeatedIntentFromCurrentBuyerIsIdempotent(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	sendsAfterAssign := len(fx.transport.sentTexts())

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))

	rq.Len(fx.transport.sentTexts(), sendsAfterAssign)
	rq.Equal(entity.SaleBuyerAssigned, fx.coordinator.State())
}

func TestContendingBuyerTriggersWarning(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))

	fx.clock.Add(time.Minute)
	fx.coordinator.HandleMessage(ctx, intent(2, "Bikram"))

	// The current buyer is warned immediately; the contender waits
	// without a reply.
	rq.Contains(fx.transport.sentTo(1), config.TimeoutWarningMessage())
	rq.Empty(fx.transport.sentTo(2))

	// Warning expires: move-on message to the old buyer, payment
	// sequence to the queued one.
	fx.clock.Add(30 * time.Second)

	rq.Contains(fx.transport.sentTo(1), config.TimeoutFinalMessage())
	rq.Equal([]string{
		"seller@upi",
		config.PayViaPhoneMessage(30, "+910000000000"),
		config.PaymentInstructionMessage(),
	}, fx.transport.sentTo(2))
	rq.Equal(entity.SaleBuyerAssigned, fx.coordinator.State())
}

func TestWarningCancelledByCompletion(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	fx.clock.Add(time.Minute)
	fx.coordinator.HandleMessage(ctx, intent(2, "Bikram"))

	// Current buyer pays before the warning expires.
	fx.coordinator.HandleMessage(ctx, done(1, "Asha"))
	rq.Equal(entity.SaleSold, fx.coordinator.State())

	sendsAtSale := len(fx.transport.sentTexts())

	fx.clock.Add(time.Minute)
	rq.Len(fx.transport.sentTexts(), sendsAtSale)
	rq.NotContains(fx.transport.sentTo(1), config.TimeoutFinalMessage())
}

func TestSilentReleaseAfterInactivity(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	sendsAfterAssign := len(fx.transport.sentTexts())

	fx.clock.Add(3 * time.Minute)

	// No message accompanies the drop; the sale simply reopens.
	rq.Len(fx.transport.sentTexts(), sendsAfterAssign)
	rq.Equal(entity.SaleOpen, fx.coordinator.State())

	fx.coordinator.HandleMessage(ctx, intent(2, "Bikram"))
	rq.Equal(entity.SaleBuyerAssigned, fx.coordinator.State())
	rq.NotEmpty(fx.transport.sentTo(2))
}

func TestLateIntentSilentlyReplacesStaleBuyer(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))

	// A contender just inside the window arms the warning clock.
	fx.clock.Add(2*time.Minute + 50*time.Second)
	fx.coordinator.HandleMessage(ctx, intent(2, "Bikram"))
	rq.Contains(fx.transport.sentTo(1), config.TimeoutWarningMessage())

	// A third buyer arrives after the inactivity window. The stale
	// buyer is dropped without a goodbye, the newcomer takes over and
	// the pending warning against the old buyer never lands.
	fx.clock.Set(fx.clock.Now().Add(20 * time.Second))
	fx.coordinator.HandleMessage(ctx, intent(3, "Chitra"))

	rq.Equal(entity.SaleBuyerAssigned, fx.coordinator.State())
	rq.Contains(fx.transport.sentTo(3), config.PaymentInstructionMessage())
	rq.NotContains(fx.transport.sentTo(1), config.TimeoutFinalMessage())

	finalsToOld := len(fx.transport.sentTo(1))
	fx.clock.Add(time.Minute)
	rq.Len(fx.transport.sentTo(1), finalsToOld)
}

func TestCompleteSaleWithoutQRImage(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.prices.price = 20

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	fx.coordinator.HandleMessage(ctx, done(1, "Asha"))

	rq.Equal(entity.SaleSold, fx.coordinator.State())
	rq.True(fx.prices.isStopped())
	rq.Empty(fx.transport.sentPhotos())
	rq.Contains(fx.transport.sentTo(1), config.SaleConfirmMessage("Asha"))

	stats := fx.coordinator.Stats()
	rq.True(stats.Sold)
	rq.Equal(20, stats.SoldPrice)
	rq.Equal("Asha", stats.BuyerName)

	// Later intent from anyone gets the sold reply.
	fx.coordinator.HandleMessage(ctx, intent(2, "Bikram"))
	rq.Equal([]string{config.SoldMessage()}, fx.transport.sentTo(2))
}

func TestCompleteSaleSendsQRImage(t *testing.T) {
	rq := require.New(t)

	qrPath := filepath.Join(t.TempDir(), "qr.png")
	require.NoError(t, os.WriteFile(qrPath, []byte("png"), 0o600))

	fx := newFixture(t, func(cfg *config.Sale) {
		cfg.QRImagePath = qrPath
	})
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	fx.coordinator.HandleMessage(ctx, done(1, "Asha"))

	rq.Equal([]entity.ChannelRef{1}, fx.transport.sentPhotos())
	rq.Contains(fx.transport.sentTo(1), config.SaleConfirmMessage("Asha"))
}

func TestDoneFromNonCurrentBuyerIsIgnored(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	fx.coordinator.HandleMessage(ctx, done(2, "Bikram"))

	rq.Equal(entity.SaleBuyerAssigned, fx.coordinator.State())
	rq.False(fx.coordinator.Stats().Sold)
	rq.Empty(fx.transport.sentTo(2))
}

func TestUnrecognizedPromptsOnlyCurrentBuyer(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))

	unrecognized := entity.InboundMessage{
		Kind:       entity.EventUnrecognized,
		SenderID:   1,
		SenderName: "Asha",
		Channel:    1,
	}
	fx.coordinator.HandleMessage(ctx, unrecognized)
	rq.Contains(fx.transport.sentTo(1), config.UnrecognizedMessage())

	stranger := unrecognized
	stranger.SenderID = 3
	stranger.Channel = 3
	fx.coordinator.HandleMessage(ctx, stranger)
	rq.Empty(fx.transport.sentTo(3))
}

func TestNegotiation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		offer        int
		wantAccepted bool
	}{
		{name: "Offer above price accepted", offer: 35, wantAccepted: true},
		{name: "Offer at price accepted", offer: 30, wantAccepted: true},
		{name: "Offer within margin accepted", offer: 25, wantAccepted: true},
		{name: "Offer below margin silently rejected", offer: 24, wantAccepted: false},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rq := require.New(t)

			fx := newFixture(t, func(cfg *config.Sale) {
				cfg.EnableNegotiation = true
			})
			ctx := context.Background()

			fx.coordinator.HandleMessage(ctx, offer(1, "Asha", tc.offer))

			if tc.wantAccepted {
				rq.Equal(entity.SaleBuyerAssigned, fx.coordinator.State())
				rq.Contains(fx.transport.sentTo(1), config.NegotiationAcceptedMessage(tc.offer))
			} else {
				rq.Equal(entity.SaleOpen, fx.coordinator.State())
				rq.Empty(fx.transport.sentTo(1))
			}

			rq.Equal(1, fx.coordinator.Stats().Negotiations)
		})
	}
}

func TestAcceptedOfferFromSecondBuyerQueues(t *testing.T) {
	rq := require.New(t)

	fx := newFixture(t, func(cfg *config.Sale) {
		cfg.EnableNegotiation = true
	})
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	fx.coordinator.HandleMessage(ctx, offer(2, "Bikram", 28))

	// Acceptance reply goes out, but Asha stays current.
	rq.Contains(fx.transport.sentTo(2), config.NegotiationAcceptedMessage(28))
	rq.NotContains(fx.transport.sentTo(2), config.PaymentInstructionMessage())

	// Current buyer goes silent past the inactivity window; a fresh
	// intent hands over, and the queued negotiator waits their turn.
	fx.clock.Add(3 * time.Minute)
	rq.Equal(entity.SaleOpen, fx.coordinator.State())
}

func TestAssignedBuyerLeavesQueue(t *testing.T) {
	rq := require.New(t)

	fx := newFixture(t, func(cfg *config.Sale) {
		cfg.EnableNegotiation = true
	})
	ctx := context.Background()

	// Bikram's accepted offer queues him behind Asha.
	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	fx.coordinator.HandleMessage(ctx, offer(2, "Bikram", 30))

	// Asha goes quiet past the inactivity window, then Bikram claims
	// the item directly. His queue entry must go with the assignment.
	fx.clock.Add(3 * time.Minute)
	fx.coordinator.HandleMessage(ctx, intent(2, "Bikram"))
	rq.Contains(fx.transport.sentTo(2), config.PaymentInstructionMessage())

	// Chitra contends; when Bikram's warning expires she is next. A
	// stale entry with Bikram's own id would be popped ahead of her and
	// hand the item straight back to him.
	fx.clock.Add(time.Minute)
	fx.coordinator.HandleMessage(ctx, intent(3, "Chitra"))
	fx.clock.Add(30 * time.Second)

	rq.Contains(fx.transport.sentTo(2), config.TimeoutFinalMessage())
	rq.Contains(fx.transport.sentTo(3), config.PaymentInstructionMessage())
}

func TestOfferWithoutActivePriceIgnored(t *testing.T) {
	rq := require.New(t)

	fx := newFixture(t, func(cfg *config.Sale) {
		cfg.EnableNegotiation = true
	})
	fx.prices.known = false

	fx.coordinator.HandleMessage(context.Background(), offer(1, "Asha", 100))

	rq.Equal(entity.SaleOpen, fx.coordinator.State())
	rq.Empty(fx.transport.sentTexts())
}

func TestUnsoldStopIsTerminal(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	fx.coordinator.HandleUnsoldStop(ctx)

	rq.Equal(entity.SaleStopped, fx.coordinator.State())
	rq.True(fx.prices.isStopped())

	sends := len(fx.transport.sentTexts())

	// Messages after the stop are counted but answered with silence.
	fx.coordinator.HandleMessage(ctx, intent(2, "Bikram"))
	fx.coordinator.HandleMessage(ctx, done(1, "Asha"))

	rq.Len(fx.transport.sentTexts(), sends)
	rq.Equal(entity.SaleStopped, fx.coordinator.State())
	rq.Equal(3, fx.coordinator.Stats().MessagesReceived)
}

func TestUnsoldStopAfterSaleIsNoop(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	fx.coordinator.HandleMessage(ctx, done(1, "Asha"))

	fx.coordinator.HandleUnsoldStop(ctx)
	fx.coordinator.HandleUnsoldStop(ctx)

	rq.Equal(entity.SaleSold, fx.coordinator.State())
	rq.True(fx.coordinator.Stats().Sold)
}

func TestNextBuyerSkipsUnresolvableChannel(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.transport.resolveErr[2] = errors.New("chat not found")

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	fx.clock.Add(time.Minute)
	fx.coordinator.HandleMessage(ctx, intent(2, "Bikram"))
	fx.coordinator.HandleMessage(ctx, intent(3, "Chitra"))

	// Warning expires: Bikram cannot be reached, Chitra is next.
	fx.clock.Add(30 * time.Second)

	rq.Equal(entity.SaleBuyerAssigned, fx.coordinator.State())
	rq.Empty(fx.transport.sentTo(2))
	rq.Contains(fx.transport.sentTo(3), config.PaymentInstructionMessage())
}

func TestReport(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.prices.price = 25

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	fx.coordinator.HandleMessage(ctx, done(1, "Asha"))

	report := fx.coordinator.Report()

	rq.Contains(report, "SALE REPORT")
	rq.Contains(report, "Sold:              Yes")
	rq.Contains(report, "Sold Price:        ₹25")
	rq.Contains(report, "Buyer Name:        Asha")
	rq.Contains(report, "Messages Received: 2")
}

func TestReportUnsold(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)

	report := fx.coordinator.Report()

	rq.Contains(report, "Sold:              No")
	rq.NotContains(report, "₹")
}

func TestQueueDeduplicatesContenders(t *testing.T) {
	rq := require.New(t)
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.coordinator.HandleMessage(ctx, intent(1, "Asha"))
	fx.clock.Add(time.Minute)
	fx.coordinator.HandleMessage(ctx, intent(2, "Bikram"))
	fx.coordinator.HandleMessage(ctx, intent(2, "Bikram"))

	fx.clock.Add(30 * time.Second)
	rq.Contains(fx.transport.sentTo(2), config.PaymentInstructionMessage())

	// The queue held Bikram once: after his assignment nothing is left,
	// so dropping him reopens the sale instead of assigning him again.
	fx.clock.Add(3 * time.Minute)
	rq.Equal(entity.SaleOpen, fx.coordinator.State())
}
