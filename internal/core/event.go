package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventReceiveMessage delivers a new message to the receiver's connections.
	EventReceiveMessage EventKind = iota
	// EventMessageSent confirms a handled send to the originating connection.
	EventMessageSent
	// EventMessageSeen notifies the original sender that a message was read.
	EventMessageSeen
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Message Message

	// Seen receipt fields, set for EventMessageSeen only.
	MessageID string
	Seen      bool
}
