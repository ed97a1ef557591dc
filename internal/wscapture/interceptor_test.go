package wscapture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brennhill/snapo-core/internal/clock"
	"github.com/brennhill/snapo-core/internal/record"
)

type recordingPublisher struct {
	events []record.Event
}

func (p *recordingPublisher) Publish(evt record.Event) { p.events = append(p.events, evt) }
func (p *recordingPublisher) Close()                   {}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func TestDialOpenSendReceiveClose(t *testing.T) {
	srv := newEchoServer(t)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	pub := &recordingPublisher{}
	dialer := NewDialer(nil, clock.NewFake(time.Unix(0, 0)), pub, nil, nil, DefaultConfig())

	conn, resp, err := dialer.DialContext(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("unexpected handshake status: %d", resp.StatusCode)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if mt != websocket.TextMessage || string(data) != "hello" {
		t.Fatalf("unexpected echo: %d %q", mt, data)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := pub.types()
	want := []string{"webSocketWillOpen", "webSocketOpened", "webSocketMessageSent", "webSocketMessageReceived", "webSocketCloseRequested"}
	if len(got) != len(want) {
		t.Fatalf("event sequence mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d]: got %q want %q (full: %v)", i, got[i], want[i], got)
		}
	}

	sent := pub.events[2].(*record.WebSocketMessageSent)
	if sent.PayloadSize != 5 || sent.Preview == nil || *sent.Preview != "hello" {
		t.Fatalf("unexpected sent record: %#v", sent)
	}
	received := pub.events[3].(*record.WebSocketMessageReceived)
	if received.PayloadSize != 5 || received.Preview == nil || *received.Preview != "hello" {
		t.Fatalf("unexpected received record: %#v", received)
	}

	closeReq := pub.events[4].(*record.WebSocketCloseRequested)
	if closeReq.Initiated != record.InitiatorClient || !closeReq.Accepted {
		t.Fatalf("unexpected close record: %#v", closeReq)
	}

	stats := conn.Stats()
	if stats.OutgoingTotal != 1 || stats.IncomingTotal != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestDialFailureEmitsWebSocketFailed(t *testing.T) {
	pub := &recordingPublisher{}
	dialer := NewDialer(nil, clock.NewFake(time.Unix(0, 0)), pub, nil, nil, DefaultConfig())

	_, _, err := dialer.DialContext(context.Background(), "ws://127.0.0.1:1/no-such-port", nil)
	if err == nil {
		t.Fatal("expected dial error")
	}

	got := pub.types()
	if len(got) != 2 || got[0] != "webSocketWillOpen" || got[1] != "webSocketFailed" {
		t.Fatalf("unexpected event sequence: %v", got)
	}
}

func TestBinaryPreviewBase64Encoded(t *testing.T) {
	srv := newEchoServer(t)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	pub := &recordingPublisher{}
	dialer := NewDialer(nil, clock.NewFake(time.Unix(0, 0)), pub, nil, nil, Config{TextPreviewChars: 16, BinaryPreviewBytes: 2})
	conn, _, err := dialer.DialContext(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0xFF, 0x00, 0x10}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	sent := pub.events[2].(*record.WebSocketMessageSent)
	if sent.Preview == nil || *sent.Preview != "/wA=" {
		t.Fatalf("expected 2-byte base64 preview /wA=, got %#v", sent.Preview)
	}
	if sent.PayloadSize != 3 {
		t.Fatalf("expected payloadSize=3, got %d", sent.PayloadSize)
	}
}
