package bot

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	gocache "github.com/patrickmn/go-cache"

	"mess_market/internal/domain"
	"mess_market/internal/domain/entity"
)

// Sender implements the coordinator's Transport over the Bot API.
// Resolved private chats are cached so re-assigning a queued buyer does
// not hit Telegram again.
type Sender struct {
	bot      *telego.Bot
	channels *gocache.Cache
}

func NewSender(tgBot *telego.Bot, cacheTTL time.Duration) *Sender {
	return &Sender{
		bot:      tgBot,
		channels: gocache.New(cacheTTL, 2*cacheTTL),
	}
}

func (s *Sender) SendText(ctx context.Context, ch entity.ChannelRef, text string) error {
	_, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(int64(ch)), text))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

func (s *Sender) SendPhoto(ctx context.Context, ch entity.ChannelRef, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer file.Close()

	_, err = s.bot.SendPhoto(ctx, tu.Photo(tu.ID(int64(ch)), tu.File(file)))
	if err != nil {
		return fmt.Errorf("send photo: %w", err)
	}

	return nil
}

func (s *Sender) ResolveChannel(ctx context.Context, buyerID int64) (entity.ChannelRef, error) {
	key := strconv.FormatInt(buyerID, 10)

	if cached, ok := s.channels.Get(key); ok {
		return cached.(entity.ChannelRef), nil
	}

	chat, err := s.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(buyerID)})
	if err != nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrChannelResolution, err)
	}

	ch := entity.ChannelRef(chat.ID)
	s.channels.SetDefault(key, ch)

	return ch, nil
}

// Remember stores an already-known chat, e.g. from an inbound message,
// so the queue can reach the sender later without an API round trip.
func (s *Sender) Remember(buyerID int64, ch entity.ChannelRef) {
	s.channels.SetDefault(strconv.FormatInt(buyerID, 10), ch)
}
