package http

import (
	"github.com/ilyabarkov/directline-server/internal/core"
	"github.com/ilyabarkov/directline-server/internal/proto"
	"github.com/ilyabarkov/directline-server/internal/store"
)

// payloadFromMessage maps a routed message to its wire shape. The same
// shape is used by live events and by the REST history endpoint.
func payloadFromMessage(msg core.Message) proto.MessagePayload {
	return proto.MessagePayload{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Message:    msg.Body,
		Media:      msg.Media,
		Seen:       msg.Seen,
		CreatedAt:  msg.CreatedAt,
	}
}

// payloadFromStored maps a persisted message to the shared wire shape.
func payloadFromStored(msg *store.Message) proto.MessagePayload {
	return proto.MessagePayload{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Message:    msg.Body,
		Media:      msg.Media,
		Seen:       msg.Seen,
		CreatedAt:  msg.CreatedAt,
	}
}

// ackFromResult converts the engine's send acknowledgement into its
// wire envelope. Exactly one ack is written per send attempt.
func ackFromResult(res core.SendResult) proto.Outbound {
	if !res.OK {
		msg := "internal error"
		if res.Err != nil {
			msg = res.Err.Message
		}
		return proto.Outbound{
			Type: proto.OutboundTypeAck,
			Data: proto.AckData{Success: false, Error: msg},
		}
	}

	payload := payloadFromMessage(res.Message)
	return proto.Outbound{
		Type: proto.OutboundTypeAck,
		Data: proto.AckData{Success: true, Message: &payload},
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventReceiveMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReceiveMessage,
			Data:  payloadFromMessage(event.Message),
		}
	case core.EventMessageSent:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessageSent,
			Data:  payloadFromMessage(event.Message),
		}
	case core.EventMessageSeen:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessageSeenAck,
			Data: proto.SeenAckPayload{
				MessageID: event.MessageID,
				Seen:      event.Seen,
			},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func errorOutbound(code, msg string) *proto.Outbound {
	return &proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	}
}
