package entity

import "time"

// ChannelRef is an opaque handle the transport uses to address a chat.
// For the Telegram transport it is the chat ID.
type ChannelRef int64

// Buyer is a party currently holding, or queued for, the item. Identity
// is the sender ID: two records with the same ID are the same party.
type Buyer struct {
	ID         int64
	Name       string
	Channel    ChannelRef
	AssignedAt time.Time
}
