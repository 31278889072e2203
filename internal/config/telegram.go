package config

import "time"

type Telegram struct {
	BotToken    string `env:"TG_BOT_TOKEN,required,notEmpty"`
	GroupChatID int64  `env:"TG_GROUP_CHAT_ID,required,notEmpty"`

	// How long a resolved private chat stays cached before we ask
	// Telegram again.
	ChannelCacheTTL time.Duration `env:"TG_CHANNEL_CACHE_TTL" envDefault:"30m"`
}
