package http

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ilyabarkov/directline-server/internal/proto"
)

// outboundFrame mirrors proto.Outbound with raw data so tests can
// decode the payload per event.
type outboundFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *proto.Error    `json:"error,omitempty"`
}

func dialWS(ctx context.Context, t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	return conn
}

func sendInbound(ctx context.Context, t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s data: %v", msgType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) outboundFrame {
	t.Helper()

	var frame outboundFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return frame
}

func TestHealthEndpoint(t *testing.T) {
	ts, _, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestRelaySendAndSeenFlow(t *testing.T) {
	ts, _, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dialWS(ctx, t, ts.URL)
	bob := dialWS(ctx, t, ts.URL)

	sendInbound(ctx, t, alice, proto.InboundTypeJoin, proto.JoinData{UserID: "u1"})
	sendInbound(ctx, t, bob, proto.InboundTypeJoin, proto.JoinData{UserID: "u2"})

	// Joins carry no ack; give both binds a moment to land before the
	// cross-connection send.
	time.Sleep(100 * time.Millisecond)

	sendInbound(ctx, t, alice, proto.InboundTypeSend, proto.SendData{ReceiverID: "u2", Message: "hi"})

	// Alice gets the ack and the message_sent echo; their relative
	// order is not fixed.
	var ack proto.AckData
	var echo proto.MessagePayload
	sawAck, sawEcho := false, false
	for i := 0; i < 2; i++ {
		frame := readFrame(ctx, t, alice)
		switch {
		case frame.Type == proto.OutboundTypeAck:
			if err := json.Unmarshal(frame.Data, &ack); err != nil {
				t.Fatalf("unmarshal ack: %v", err)
			}
			sawAck = true
		case frame.Type == proto.OutboundTypeEvent && frame.Event == proto.EventMessageSent:
			if err := json.Unmarshal(frame.Data, &echo); err != nil {
				t.Fatalf("unmarshal message_sent: %v", err)
			}
			sawEcho = true
		default:
			t.Fatalf("unexpected frame for sender: %+v", frame)
		}
	}
	if !sawAck || !sawEcho {
		t.Fatalf("sender frames incomplete: ack=%v echo=%v", sawAck, sawEcho)
	}

	if !ack.Success {
		t.Fatalf("expected successful ack, got error %q", ack.Error)
	}
	if ack.Message == nil || ack.Message.ID == "" {
		t.Fatalf("ack missing persisted message: %+v", ack)
	}
	if ack.Message.SenderID != "u1" || ack.Message.ReceiverID != "u2" || ack.Message.Message != "hi" {
		t.Fatalf("unexpected ack payload: %+v", ack.Message)
	}
	if ack.Message.Seen {
		t.Fatalf("fresh message must not be seen")
	}
	if echo.ID != ack.Message.ID {
		t.Fatalf("message_sent id %q does not match ack id %q", echo.ID, ack.Message.ID)
	}

	// Bob gets the live delivery.
	frame := readFrame(ctx, t, bob)
	if frame.Type != proto.OutboundTypeEvent || frame.Event != proto.EventReceiveMessage {
		t.Fatalf("unexpected receiver frame: %+v", frame)
	}
	var received proto.MessagePayload
	if err := json.Unmarshal(frame.Data, &received); err != nil {
		t.Fatalf("unmarshal receive_message: %v", err)
	}
	if received.ID != ack.Message.ID || received.SenderID != "u1" || received.Message != "hi" {
		t.Fatalf("unexpected delivery payload: %+v", received)
	}
	if received.Seen {
		t.Fatalf("delivered message must not be seen")
	}

	// Bob marks it seen; the receipt goes back to Alice only.
	sendInbound(ctx, t, bob, proto.InboundTypeSeen, proto.SeenData{MessageID: received.ID})

	frame = readFrame(ctx, t, alice)
	if frame.Type != proto.OutboundTypeEvent || frame.Event != proto.EventMessageSeenAck {
		t.Fatalf("unexpected seen receipt frame: %+v", frame)
	}
	var receipt proto.SeenAckPayload
	if err := json.Unmarshal(frame.Data, &receipt); err != nil {
		t.Fatalf("unmarshal message_seen_ack: %v", err)
	}
	if receipt.MessageID != received.ID || !receipt.Seen {
		t.Fatalf("unexpected seen receipt: %+v", receipt)
	}
}

func TestSendWithoutJoinIsRejected(t *testing.T) {
	ts, st, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, ts.URL)

	sendInbound(ctx, t, conn, proto.InboundTypeSend, proto.SendData{ReceiverID: "u2", Message: "hi"})

	frame := readFrame(ctx, t, conn)
	if frame.Type != proto.OutboundTypeAck {
		t.Fatalf("unexpected frame type: %s", frame.Type)
	}
	var ack proto.AckData
	if err := json.Unmarshal(frame.Data, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Success {
		t.Fatal("send from unbound connection must fail")
	}
	if ack.Error != "Not joined" {
		t.Fatalf("unexpected ack error: %q", ack.Error)
	}

	messages, err := st.ListConversation(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("list conversation: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("rejected send must not persist, found %d messages", len(messages))
	}
}

func TestSendToOfflineReceiverPersists(t *testing.T) {
	ts, st, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dialWS(ctx, t, ts.URL)
	sendInbound(ctx, t, alice, proto.InboundTypeJoin, proto.JoinData{UserID: "u1"})

	sendInbound(ctx, t, alice, proto.InboundTypeSend, proto.SendData{ReceiverID: "offline-user", Message: "catch up later"})

	var ack proto.AckData
	for i := 0; i < 2; i++ {
		frame := readFrame(ctx, t, alice)
		if frame.Type == proto.OutboundTypeAck {
			if err := json.Unmarshal(frame.Data, &ack); err != nil {
				t.Fatalf("unmarshal ack: %v", err)
			}
		}
	}
	if !ack.Success {
		t.Fatalf("expected successful ack, got error %q", ack.Error)
	}

	messages, err := st.ListConversation(ctx, "u1", "offline-user")
	if err != nil {
		t.Fatalf("list conversation: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "catch up later" {
		t.Fatalf("unexpected persisted conversation: %+v", messages)
	}
}

func TestJoinWithoutUserIDReturnsError(t *testing.T) {
	ts, _, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, ts.URL)

	sendInbound(ctx, t, conn, proto.InboundTypeJoin, proto.JoinData{})

	frame := readFrame(ctx, t, conn)
	if frame.Type != proto.OutboundTypeError || frame.Error == nil {
		t.Fatalf("expected error frame, got: %+v", frame)
	}
	if frame.Error.Code != "bad_request" {
		t.Fatalf("unexpected error code: %s", frame.Error.Code)
	}
}
