//go:build integration

package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with a live MongoDB instance:
//
//	MONGO_TEST_URI=mongodb://localhost:27017 go test -tags integration ./internal/store/mongo
func newTestStore(t *testing.T) *MongoStore {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dbName := fmt.Sprintf("directline_test_%d", time.Now().UnixNano())
	s, err := New(ctx, uri, dbName)
	require.NoError(t, err, "connect to mongo")
	t.Cleanup(func() {
		_ = s.db.Drop(context.Background())
		_ = s.Close()
	})

	return s
}

func TestCreateMessageAssignsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg, err := s.CreateMessage(ctx, "u1", "u2", "hi", "")
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
	assert.False(t, msg.Seen)
	assert.Equal(t, "u1", msg.SenderID)
	assert.Equal(t, "u2", msg.ReceiverID)
	assert.Equal(t, "hi", msg.Body)
}

func TestMarkSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg, err := s.CreateMessage(ctx, "u1", "u2", "hi", "")
	require.NoError(t, err)

	updated, err := s.MarkSeen(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.True(t, updated.Seen)
	assert.Equal(t, msg.ID, updated.ID)

	// Idempotent: marking again keeps seen=true without error.
	again, err := s.MarkSeen(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.True(t, again.Seen)
}

func TestMarkSeenUnknownID(t *testing.T) {
	s := newTestStore(t)

	updated, err := s.MarkSeen(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestListConversationBothDirections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateMessage(ctx, "u1", "u2", "hello", "")
	require.NoError(t, err)
	second, err := s.CreateMessage(ctx, "u2", "u1", "hey", "")
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, "u1", "u3", "other chat", "")
	require.NoError(t, err)

	msgs, err := s.ListConversation(ctx, "u1", "u2")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, second.ID, msgs[1].ID)

	// Same conversation regardless of argument order.
	reversed, err := s.ListConversation(ctx, "u2", "u1")
	require.NoError(t, err)
	require.Len(t, reversed, 2)
	assert.Equal(t, msgs[0].ID, reversed[0].ID)
}

func TestListChatPartners(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateMessage(ctx, "u1", "u2", "a", "")
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, "u3", "u1", "b", "")
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, "u1", "u2", "c", "")
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, "u4", "u5", "unrelated", "")
	require.NoError(t, err)

	partners, err := s.ListChatPartners(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u2", "u3"}, partners)
}

func TestUserRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.IsGuest)

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byID, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.Error(t, err)
}

func TestListUsersExcludesCallerAndGuests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "bob", "hash")
	require.NoError(t, err)
	_, err = s.CreateGuestUser(ctx, "0123456789abcdef")
	require.NoError(t, err)

	users, err := s.ListUsers(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
}
