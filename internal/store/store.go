package store

import (
	"context"
	"time"
)

// User represents a user in the system.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	IsGuest      bool
	SessionID    string // For guest user session tracking
	CreatedAt    time.Time
}

// Message represents a persisted direct message.
// The seen flag is the only field ever mutated after creation.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Body       string
	Media      string
	Seen       bool
	CreatedAt  time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// CreateGuestUser creates a temporary guest user with session ID.
	CreateGuestUser(ctx context.Context, sessionID string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a registered user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// ListUsers lists all registered users except excludeID.
	ListUsers(ctx context.Context, excludeID string) ([]*User, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage persists a new message with seen=false and a
	// server-assigned id and creation timestamp.
	CreateMessage(ctx context.Context, senderID, receiverID, body, media string) (*Message, error)

	// MarkSeen sets seen=true on the message and returns the updated
	// record. Returns (nil, nil) when no message has that id. Marking
	// an already-seen message again is not an error.
	MarkSeen(ctx context.Context, id string) (*Message, error)

	// ListConversation returns every message exchanged between two
	// users, in both directions, ordered by creation time ascending.
	ListConversation(ctx context.Context, userA, userB string) ([]*Message, error)

	// ListChatPartners returns the ids of users the given user has
	// exchanged at least one message with.
	ListChatPartners(ctx context.Context, userID string) ([]string, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
