package domain

import "errors"

var (
	// ErrUnknownMeal is fatal to schedule construction; it must surface
	// before any timers are armed.
	ErrUnknownMeal = errors.New("unknown meal type")

	// ErrChannelResolution means the transport could not resolve a
	// buyer's private chat; the coordinator skips to the next queued
	// buyer.
	ErrChannelResolution = errors.New("channel resolution failed")
)
