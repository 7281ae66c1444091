package core

import "time"

// Message is the domain model for a direct message.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Body       string
	Media      string
	Seen       bool
	CreatedAt  time.Time
}
