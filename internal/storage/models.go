package storage

import "time"

// RefreshTarget is a channel that shows the live server status message.
type RefreshTarget struct {
	ChannelID      string
	GuildID        string
	MessageID      string // empty until the first successful render
	RegisteredBy   string
	CreatedAt      time.Time
	LastRenderedAt time.Time // zero until the first successful render
}
