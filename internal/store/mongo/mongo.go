package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ilyabarkov/directline-server/internal/store"
)

const (
	userCollection    = "users"
	messageCollection = "messages"
)

// MongoStore implements store.Store on top of MongoDB. It mirrors the
// document layout of the original deployment so existing data stays
// readable.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	IsGuest      bool      `bson:"is_guest"`
	SessionID    string    `bson:"session_id,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

type messageDoc struct {
	ID         string    `bson:"_id"`
	SenderID   string    `bson:"sender_id"`
	ReceiverID string    `bson:"receiver_id"`
	Body       string    `bson:"body"`
	Media      string    `bson:"media"`
	Seen       bool      `bson:"seen"`
	CreatedAt  time.Time `bson:"created_at"`
}

// New connects to MongoDB and verifies the connection.
func New(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *MongoStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	doc := userDoc{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.db.Collection(userCollection).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return userFromDoc(doc), nil
}

// CreateGuestUser creates a temporary guest user with session ID.
func (s *MongoStore) CreateGuestUser(ctx context.Context, sessionID string) (*store.User, error) {
	doc := userDoc{
		ID:           uuid.NewString(),
		Username:     "guest_" + sessionID[:8],
		PasswordHash: "",
		IsGuest:      true,
		SessionID:    sessionID,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.db.Collection(userCollection).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert guest user: %w", err)
	}
	return userFromDoc(doc), nil
}

// GetUserByID retrieves a user by ID.
func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	var doc userDoc
	err := s.db.Collection(userCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return userFromDoc(doc), nil
}

// GetUserByUsername retrieves a registered user by username.
func (s *MongoStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	filter := bson.M{"username": username, "is_guest": false}
	var doc userDoc
	err := s.db.Collection(userCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return userFromDoc(doc), nil
}

// ListUsers lists all registered users except excludeID.
func (s *MongoStore) ListUsers(ctx context.Context, excludeID string) ([]*store.User, error) {
	filter := bson.M{"_id": bson.M{"$ne": excludeID}, "is_guest": false}
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})

	cursor, err := s.db.Collection(userCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*store.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, userFromDoc(doc))
	}
	return users, nil
}

// ==== MessageStore implementation ====

// CreateMessage persists a new message with seen=false and a
// server-assigned id and creation timestamp.
func (s *MongoStore) CreateMessage(ctx context.Context, senderID, receiverID, body, media string) (*store.Message, error) {
	doc := messageDoc{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		Media:      media,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.db.Collection(messageCollection).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return messageFromDoc(doc), nil
}

// MarkSeen sets seen=true on the message and returns the updated
// record, or (nil, nil) if the id is unknown.
func (s *MongoStore) MarkSeen(ctx context.Context, id string) (*store.Message, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc messageDoc
	err := s.db.Collection(messageCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"seen": true}},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("update seen: %w", err)
	}
	return messageFromDoc(doc), nil
}

// ListConversation returns every message exchanged between two users,
// in both directions, in chronological order.
func (s *MongoStore) ListConversation(ctx context.Context, userA, userB string) ([]*store.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": userA, "receiver_id": userB},
		bson.M{"sender_id": userB, "receiver_id": userA},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.db.Collection(messageCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	messages := make([]*store.Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, messageFromDoc(doc))
	}
	return messages, nil
}

// ListChatPartners returns the ids of users the given user has
// exchanged at least one message with.
func (s *MongoStore) ListChatPartners(ctx context.Context, userID string) ([]string, error) {
	coll := s.db.Collection(messageCollection)

	received, err := coll.Distinct(ctx, "sender_id", bson.M{"receiver_id": userID})
	if err != nil {
		return nil, fmt.Errorf("distinct senders: %w", err)
	}
	sent, err := coll.Distinct(ctx, "receiver_id", bson.M{"sender_id": userID})
	if err != nil {
		return nil, fmt.Errorf("distinct receivers: %w", err)
	}

	seen := make(map[string]struct{})
	var partners []string
	for _, raw := range append(received, sent...) {
		id, ok := raw.(string)
		if !ok || id == "" || id == userID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		partners = append(partners, id)
	}
	return partners, nil
}

func userFromDoc(doc userDoc) *store.User {
	return &store.User{
		ID:           doc.ID,
		Username:     doc.Username,
		PasswordHash: doc.PasswordHash,
		IsGuest:      doc.IsGuest,
		SessionID:    doc.SessionID,
		CreatedAt:    doc.CreatedAt,
	}
}

func messageFromDoc(doc messageDoc) *store.Message {
	return &store.Message{
		ID:         doc.ID,
		SenderID:   doc.SenderID,
		ReceiverID: doc.ReceiverID,
		Body:       doc.Body,
		Media:      doc.Media,
		Seen:       doc.Seen,
		CreatedAt:  doc.CreatedAt,
	}
}
