package core

// Client is a single live connection as seen by the relay core.
// The logical user behind a client is tracked by the Registry, never
// on the client itself.
type Client struct {
	ID     string
	Events chan *Event
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		Events: make(chan *Event, 16),
	}
}

// Deliver queues an event for the client's write loop.
// Returns false if the event was dropped because the consumer is slow
// or the connection is already gone.
func (c *Client) Deliver(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
