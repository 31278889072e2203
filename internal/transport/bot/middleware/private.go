package middleware

import (
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
)

// PrivateOnly passes only direct messages from real users. Group,
// channel and bot traffic never reaches the sale flow.
func PrivateOnly() th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		msg := update.Message

		if msg == nil || msg.From == nil || msg.From.IsBot {
			return nil
		}

		if msg.Chat.Type != telego.ChatTypePrivate {
			return nil
		}

		return ctx.Next(update)
	}
}
