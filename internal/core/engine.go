package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ilyabarkov/directline-server/internal/store"
)

// SendRequest carries an inbound send event. The sender identity is
// deliberately absent: it is resolved from the registry binding of the
// invoking connection, so a payload can never spoof it.
type SendRequest struct {
	ReceiverID string
	Body       string
	Media      string
}

// SendResult is the synchronous acknowledgement returned for every
// send attempt, exactly once, regardless of how many live receiver
// connections existed.
type SendResult struct {
	OK      bool
	Message Message
	Err     *CoreError
}

// Engine routes messages between live connections: it validates the
// sender binding, persists each message exactly once, fans it out to
// the receiver's connections and propagates seen receipts back to the
// original sender.
type Engine struct {
	registry *Registry
	messages store.MessageStore
	log      *zerolog.Logger
}

// NewEngine constructs a routing engine on top of a registry and a
// message store.
func NewEngine(registry *Registry, messages store.MessageStore, logger *zerolog.Logger) *Engine {
	return &Engine{
		registry: registry,
		messages: messages,
		log:      logger,
	}
}

// Send handles one send attempt from the given connection.
//
// Failures are always converted into the returned acknowledgement and
// never terminate the caller's control flow: an unbound connection gets
// a "Not joined" result, a store failure gets the store's error text.
// Persistence is attempted at most once; the client must resend.
func (e *Engine) Send(ctx context.Context, sender *Client, req SendRequest) SendResult {
	senderID, bound := e.registry.UserOf(sender)
	if !bound {
		e.log.Debug().Str("client_id", sender.ID).Msg("send from unbound connection")
		return SendResult{Err: coreError(ErrCodeNotJoined, "Not joined")}
	}

	msg, err := e.messages.CreateMessage(ctx, senderID, req.ReceiverID, req.Body, req.Media)
	if err != nil {
		e.log.Error().Err(err).
			Str("sender_id", senderID).
			Str("receiver_id", req.ReceiverID).
			Msg("persist message")
		return SendResult{Err: coreError(ErrCodeStoreFailure, err.Error())}
	}

	routed := fromStore(msg)

	// Zero resolved connections means the receiver is offline; the
	// message stays durably stored for the history read path.
	receiveEv := &Event{Kind: EventReceiveMessage, Message: routed}
	for _, c := range e.registry.Resolve(msg.ReceiverID) {
		if !c.Deliver(receiveEv) {
			e.log.Warn().Str("client_id", c.ID).Str("message_id", msg.ID).Msg("dropped receive_message for slow consumer")
		}
	}

	if !sender.Deliver(&Event{Kind: EventMessageSent, Message: routed}) {
		e.log.Warn().Str("client_id", sender.ID).Str("message_id", msg.ID).Msg("dropped message_sent for slow consumer")
	}

	return SendResult{OK: true, Message: routed}
}

// MarkSeen handles a seen receipt for the given message id.
//
// There is no acknowledgement channel on this path: unknown ids are
// logged and dropped, store failures are logged only. Marking an
// already-seen message again is idempotent. After a successful update
// the original sender's live connections get a message_seen_ack; if the
// sender is offline the receipt is simply not delivered live.
func (e *Engine) MarkSeen(ctx context.Context, messageID string) {
	msg, err := e.messages.MarkSeen(ctx, messageID)
	if err != nil {
		e.log.Error().Err(err).Str("message_id", messageID).Msg("update seen status")
		return
	}
	if msg == nil {
		e.log.Debug().Str("message_id", messageID).Msg("seen receipt for unknown message dropped")
		return
	}

	ev := &Event{Kind: EventMessageSeen, MessageID: msg.ID, Seen: true}
	for _, c := range e.registry.Resolve(msg.SenderID) {
		if !c.Deliver(ev) {
			e.log.Warn().Str("client_id", c.ID).Str("message_id", msg.ID).Msg("dropped message_seen_ack for slow consumer")
		}
	}
}

func fromStore(m *store.Message) Message {
	return Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		Media:      m.Media,
		Seen:       m.Seen,
		CreatedAt:  m.CreatedAt,
	}
}
