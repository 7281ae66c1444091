package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/ilyabarkov/directline-server/internal/core"
	"github.com/ilyabarkov/directline-server/internal/proto"
	"github.com/ilyabarkov/directline-server/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to the relay core.
type WSHandler struct {
	registry *core.Registry
	engine   *core.Engine
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, engine *core.Engine, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{registry: registry, engine: engine, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	// The connection starts unbound; a join event binds it.
	client := core.NewClient(utils.NewID())
	defer h.registry.Unbind(client)

	h.log.Debug().Str("client_id", client.ID).Msg("connection established")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("read ws inbound")
			return err
		}

		if out := h.dispatch(ctx, client, inbound); out != nil {
			if err := wsjson.Write(ctx, conn, out); err != nil {
				return err
			}
		}
	}
}

// dispatch handles one inbound frame and returns the direct reply to
// write, if the frame defines one. Domain failures never close the
// connection; only transport errors do.
func (h *WSHandler) dispatch(ctx context.Context, client *core.Client, inbound proto.Inbound) *proto.Outbound {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil || join.UserID == "" {
			return errorOutbound(core.ErrCodeBadRequest, "userId is required")
		}
		h.registry.Bind(client, join.UserID)
		h.log.Debug().Str("client_id", client.ID).Str("user_id", join.UserID).Msg("connection bound")
		// No ack defined for join.
		return nil

	case proto.InboundTypeSend:
		var send proto.SendData
		if err := json.Unmarshal(inbound.Data, &send); err != nil {
			return errorOutbound(core.ErrCodeBadRequest, "invalid send_message payload")
		}
		res := h.engine.Send(ctx, client, core.SendRequest{
			ReceiverID: send.ReceiverID,
			Body:       send.Message,
			Media:      send.Media,
		})
		out := ackFromResult(res)
		return &out

	case proto.InboundTypeSeen:
		var seen proto.SeenData
		if err := json.Unmarshal(inbound.Data, &seen); err != nil || seen.MessageID == "" {
			return errorOutbound(core.ErrCodeBadRequest, "messageId is required")
		}
		// The seen path has no acknowledgement; failures are logged
		// inside the engine.
		h.engine.MarkSeen(ctx, seen.MessageID)
		return nil

	default:
		return errorOutbound("invalid_message", "unknown message type")
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
