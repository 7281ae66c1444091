package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ilyabarkov/directline-server/internal/store"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// memMessages is an in-memory store.MessageStore for engine tests.
type memMessages struct {
	mu         sync.Mutex
	messages   map[string]*store.Message
	nextID     int
	createErr  error
	markErr    error
	createDone int
}

func newMemMessages() *memMessages {
	return &memMessages{messages: make(map[string]*store.Message)}
}

func (m *memMessages) CreateMessage(_ context.Context, senderID, receiverID, body, media string) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	m.createDone++
	msg := &store.Message{
		ID:         fmt.Sprintf("m%d", m.nextID),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		Media:      media,
		CreatedAt:  time.Now().UTC(),
	}
	m.messages[msg.ID] = msg
	copied := *msg
	return &copied, nil
}

func (m *memMessages) MarkSeen(_ context.Context, id string) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.markErr != nil {
		return nil, m.markErr
	}
	msg, ok := m.messages[id]
	if !ok {
		return nil, nil
	}
	msg.Seen = true
	copied := *msg
	return &copied, nil
}

func (m *memMessages) ListConversation(_ context.Context, userA, userB string) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*store.Message
	for _, msg := range m.messages {
		if (msg.SenderID == userA && msg.ReceiverID == userB) ||
			(msg.SenderID == userB && msg.ReceiverID == userA) {
			copied := *msg
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memMessages) ListChatPartners(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	for _, msg := range m.messages {
		if msg.SenderID == userID {
			seen[msg.ReceiverID] = struct{}{}
		}
		if msg.ReceiverID == userID {
			seen[msg.SenderID] = struct{}{}
		}
	}
	partners := make([]string, 0, len(seen))
	for id := range seen {
		partners = append(partners, id)
	}
	return partners, nil
}

func (m *memMessages) created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createDone
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("expected no event, got kind %v", ev.Kind)
	default:
	}
}
