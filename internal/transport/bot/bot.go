package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"mess_market/internal/domain/entity"
	"mess_market/internal/domain/service/classify"
	"mess_market/internal/domain/service/sale"
	"mess_market/internal/transport/bot/middleware"
	"mess_market/pkg/contextx"
	"mess_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const longPollTimeout = 60

// Bot consumes private-message updates and routes them through the
// classifier into the coordinator.
type Bot struct {
	bot         *telego.Bot
	sender      *Sender
	classifier  *classify.Classifier
	coordinator *sale.Coordinator
	onReady     func()
}

func New(
	tgBot *telego.Bot,
	sender *Sender,
	classifier *classify.Classifier,
	coordinator *sale.Coordinator,
	onReady func(),
) *Bot {
	return &Bot{
		bot:         tgBot,
		sender:      sender,
		classifier:  classifier,
		coordinator: coordinator,
		onReady:     onReady,
	}
}

// Run starts long polling and blocks until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	updates, err := b.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: longPollTimeout,
	})
	if err != nil {
		return fmt.Errorf("get updates: %w", err)
	}

	botHandler, err := th.NewBotHandler(b.bot, updates)
	if err != nil {
		return fmt.Errorf("create bot handler: %w", err)
	}

	group := botHandler.Group(th.AnyMessage())
	group.Use(middleware.PrivateOnly())
	group.HandleMessage(b.onMessage, th.AnyMessage())

	if b.onReady != nil {
		b.onReady()
	}

	go func() {
		if err := botHandler.Start(); err != nil {
			logger(ctx).Error("bot handler start", logx.Error(err))
		}
	}()

	<-ctx.Done()

	if err := botHandler.Stop(); err != nil {
		logger(ctx).Error("bot handler stop", logx.Error(err))
	}

	return ctx.Err()
}

func (b *Bot) onMessage(ctx *th.Context, msg telego.Message) error {
	channel := entity.ChannelRef(msg.Chat.ID)

	// The chat is known now; keep it reachable for queue pops later.
	b.sender.Remember(msg.From.ID, channel)

	inbound := b.classifier.Classify(msg.From.ID, senderName(msg.From), channel, msg.Text)

	logger(ctx).Debug("private message",
		slog.Int64(logx.FieldBuyerID, msg.From.ID),
		slog.String("event", inbound.Kind.String()),
	)

	b.coordinator.HandleMessage(ctx, inbound)

	return nil
}

func senderName(from *telego.User) string {
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	if name != "" {
		return name
	}

	if from.Username != "" {
		return from.Username
	}

	return strconv.FormatInt(from.ID, 10)
}
