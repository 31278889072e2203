package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mess_market/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()

	t.Setenv("TG_BOT_TOKEN", "123:abc")
	t.Setenv("TG_GROUP_CHAT_ID", "-1001234567890")
	t.Setenv("SALE_UPI_ID", "seller@upi")
	t.Setenv("SALE_PHONE_NUMBER", "+910000000000")
}

func TestLoadDefaults(t *testing.T) {
	rq := require.New(t)

	setRequiredEnv(t)

	cfg, err := config.Load()
	rq.NoError(err)

	rq.Equal("123:abc", cfg.Telegram.BotToken)
	rq.Equal(int64(-1001234567890), cfg.Telegram.GroupChatID)

	rq.Equal(30, cfg.Sale.StartingPrice)
	rq.Equal(5, cfg.Sale.PriceDrop)
	rq.False(cfg.Sale.EnableNegotiation)
	rq.Equal(3*time.Minute, cfg.Sale.BuyerInactivity)
	rq.Equal(30*time.Second, cfg.Sale.BuyerWarning)
	rq.Equal("breakfast", cfg.Sale.DefaultMeal)
	rq.Equal(4, cfg.Sale.DefaultNumMessages)

	// Built-in keyword lists kick in when the env leaves them empty.
	rq.Contains(cfg.Sale.BuyerKeywords, "chahiye")
	rq.Contains(cfg.Sale.DoneKeywords, "ho gaya")
	rq.Contains(cfg.Sale.MessNames, "Palash")

	rq.Equal(":8091", cfg.Probe.ListenAddress)
	rq.Equal(":8092", cfg.Metrics.ListenAddress)
}

func TestLoadOverrides(t *testing.T) {
	rq := require.New(t)

	setRequiredEnv(t)
	t.Setenv("SALE_STARTING_PRICE", "45")
	t.Setenv("SALE_ENABLE_NEGOTIATION", "true")
	t.Setenv("SALE_BUYER_INACTIVITY", "5m")
	t.Setenv("SALE_BUYER_KEYWORDS", "buy,want")
	t.Setenv("TG_CHANNEL_CACHE_TTL", "1h")

	cfg, err := config.Load()
	rq.NoError(err)

	rq.Equal(45, cfg.Sale.StartingPrice)
	rq.True(cfg.Sale.EnableNegotiation)
	rq.Equal(5*time.Minute, cfg.Sale.BuyerInactivity)
	rq.Equal([]string{"buy", "want"}, cfg.Sale.BuyerKeywords)
	rq.Equal(time.Hour, cfg.Telegram.ChannelCacheTTL)
}

func TestLoadMissingRequired(t *testing.T) {
	rq := require.New(t)

	t.Setenv("TG_BOT_TOKEN", "123:abc")
	t.Setenv("TG_GROUP_CHAT_ID", "-100")
	t.Setenv("SALE_UPI_ID", "")
	t.Setenv("SALE_PHONE_NUMBER", "+910000000000")

	_, err := config.Load()
	rq.Error(err)
}

func TestMealWindows(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	windows := config.MealWindows()

	rq.Len(windows, 3)
	rq.Equal("07:30", windows["breakfast"].Start)
	rq.Equal("21:30", windows["dinner"].End)
}
