package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoin = "join"
	InboundTypeSend = "send_message"
	InboundTypeSeen = "message_seen"

	OutboundTypeEvent = "event"
	OutboundTypeAck   = "ack"
	OutboundTypeError = "error"

	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventMessageSeenAck = "message_seen_ack"
)

// JoinData binds the connection to a logical user address.
type JoinData struct {
	UserID string `json:"userId"`
}

// SendData is a direct message from the client.
type SendData struct {
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message,omitempty"`
	Media      string `json:"media,omitempty"`
}

// SeenData reports that the client has read a message.
type SeenData struct {
	MessageID string `json:"messageId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MessagePayload is the wire shape of a delivered message. It is
// shared between live events and REST history responses so clients can
// merge both sources without special-casing.
type MessagePayload struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Message    string    `json:"message,omitempty"`
	Media      string    `json:"media,omitempty"`
	Seen       bool      `json:"seen"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SeenAckPayload notifies the original sender that a message was read.
type SeenAckPayload struct {
	MessageID string `json:"messageId"`
	Seen      bool   `json:"seen"`
}

// AckData is the synchronous acknowledgement for a send attempt.
type AckData struct {
	Success bool            `json:"success"`
	Message *MessagePayload `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
