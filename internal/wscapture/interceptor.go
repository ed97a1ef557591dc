// Package wscapture implements the WebSocket interceptor described in
// spec.md §4.5: a dialer wrapper that emits lifecycle records around a real
// handshake, and a Conn wrapper that emits one record per
// send/receive/close and keeps a rolling per-connection rate aggregate.
//
// Grounded on _teacher_ref/capture/websocket.go's connection-tracking shape
// (connectionState, directionStats, appendAndPrune/calcRate rate-window
// math) — adapted from "ingest WebSocketEvent JSON posted by a browser
// extension" to "wrap a live *websocket.Conn", since the teacher never
// dials a socket itself.
package wscapture

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/brennhill/snapo-core/internal/clock"
	"github.com/brennhill/snapo-core/internal/publisher"
	"github.com/brennhill/snapo-core/internal/record"
	"github.com/brennhill/snapo-core/internal/telemetry"
)

// rateWindow matches the teacher's 5-second message-rate sliding window.
const rateWindow = 5 * time.Second

// Config bounds how much of each message's payload is previewed.
type Config struct {
	TextPreviewChars   int
	BinaryPreviewBytes int
}

// DefaultConfig matches spec.md §3's suggested defaults.
func DefaultConfig() Config {
	return Config{TextPreviewChars: 2048, BinaryPreviewBytes: 256}
}

// Dialer wraps a gorilla/websocket.Dialer, publishing WebSocketWillOpen
// before the handshake and WebSocketOpened/WebSocketFailed/
// WebSocketCancelled once it resolves.
type Dialer struct {
	Underlying *websocket.Dialer
	Clock      clock.Clock
	Publisher  publisher.Publisher
	Metrics    *telemetry.Metrics
	Log        *zap.Logger
	Config     Config
}

// NewDialer builds a Dialer; nil fields fall back the same way
// httpcapture.New does.
func NewDialer(underlying *websocket.Dialer, clk clock.Clock, pub publisher.Publisher, metrics *telemetry.Metrics, log *zap.Logger, cfg Config) *Dialer {
	if underlying == nil {
		underlying = websocket.DefaultDialer
	}
	if clk == nil {
		clk = clock.NewReal()
	}
	if log == nil {
		log = telemetry.NewNop()
	}
	return &Dialer{Underlying: underlying, Clock: clk, Publisher: pub, Metrics: metrics, Log: log, Config: cfg}
}

// DialContext performs the handshake, publishing the full WebSocketWillOpen
// -> {WebSocketOpened | WebSocketFailed | WebSocketCancelled} sequence, and
// returns a Conn wrapping the live connection on success.
func (d *Dialer) DialContext(ctx context.Context, urlStr string, header http.Header) (*Conn, *http.Response, error) {
	id := record.NewID()

	willOpen := record.NewWebSocketWillOpen(id, d.Clock.WallMillis(), d.Clock.MonoNanos())
	willOpen.URL = urlStr
	d.publish(willOpen)

	wsConn, resp, err := d.Underlying.DialContext(ctx, urlStr, header)
	if err != nil {
		if ctx.Err() != nil {
			d.publish(record.NewWebSocketCancelled(id, d.Clock.WallMillis(), d.Clock.MonoNanos()))
		} else {
			failed := record.NewWebSocketFailed(id, d.Clock.WallMillis(), d.Clock.MonoNanos())
			failed.Message = err.Error()
			d.publish(failed)
		}
		return nil, resp, err
	}

	code := http.StatusSwitchingProtocols
	var headers []record.HeaderPair
	if resp != nil {
		code = resp.StatusCode
		headers = headerPairs(resp.Header)
	}
	opened := record.NewWebSocketOpened(id, d.Clock.WallMillis(), d.Clock.MonoNanos())
	opened.Code = code
	opened.Headers = headers
	d.publish(opened)

	conn := newConn(id, urlStr, wsConn, d.Clock, d.Publisher, d.Log, d.Config)
	return conn, resp, nil
}

func (d *Dialer) publish(evt record.Event) {
	if d.Publisher != nil {
		d.Publisher.Publish(evt)
	}
}

// directionStats is the per-direction message aggregate the teacher's
// updateDirectionStats/appendAndPrune/calcRate maintain.
type directionStats struct {
	total       int64
	bytes       int64
	lastAtWall  int64
	recentTimes []time.Time
}

// ConnectionStats is a read-only snapshot of a connection's rolling
// message-rate aggregate (SPEC_FULL §3's supplemented enrichment). It
// derives from the record stream; it never gates emission.
type ConnectionStats struct {
	IncomingTotal int64
	IncomingBytes int64
	IncomingRate  float64 // messages/second over the last rateWindow
	OutgoingTotal int64
	OutgoingBytes int64
	OutgoingRate  float64
}

// Conn wraps a live *websocket.Conn, publishing one record per message and
// per close event. It owns its own mutex, independent of the Dialer that
// created it, per the teacher's per-component locking convention.
type Conn struct {
	id    string
	url   string
	ws    *websocket.Conn
	clock clock.Clock
	pub   publisher.Publisher
	log   *zap.Logger
	cfg   Config

	mu       sync.Mutex
	incoming directionStats
	outgoing directionStats
}

func newConn(id, url string, ws *websocket.Conn, clk clock.Clock, pub publisher.Publisher, log *zap.Logger, cfg Config) *Conn {
	return &Conn{id: id, url: url, ws: ws, clock: clk, pub: pub, log: log, cfg: cfg}
}

// ID is the connection's record id.
func (c *Conn) ID() string { return c.id }

// Stats returns a snapshot of the rolling message-rate aggregate.
func (c *Conn) Stats() ConnectionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	return ConnectionStats{
		IncomingTotal: c.incoming.total,
		IncomingBytes: c.incoming.bytes,
		IncomingRate:  calcRate(c.incoming.recentTimes, now),
		OutgoingTotal: c.outgoing.total,
		OutgoingBytes: c.outgoing.bytes,
		OutgoingRate:  calcRate(c.outgoing.recentTimes, now),
	}
}

// WriteMessage sends a message through the underlying connection, then
// publishes WebSocketMessageSent with the outcome (spec.md §4.5: "interpose
// on send... after the underlying call completes").
func (c *Conn) WriteMessage(messageType int, data []byte) error {
	err := c.ws.WriteMessage(messageType, data)
	enqueued := err == nil

	evt := record.NewWebSocketMessageSent(c.id, c.clock.WallMillis(), c.clock.MonoNanos())
	evt.Opcode = opcodeFor(messageType)
	evt.PayloadSize = len(data)
	if preview := previewFor(evt.Opcode, data, c.cfg); preview != "" {
		evt.Preview = &preview
	}
	evt.Enqueued = &enqueued
	c.publish(evt)

	c.recordDirection(&c.outgoing, len(data))
	return err
}

// ReadMessage reads the next message, publishing WebSocketMessageReceived
// on success or the appropriate close/failure record on termination.
func (c *Conn) ReadMessage() (int, []byte, error) {
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		c.handleReadError(err)
		return messageType, data, err
	}

	evt := record.NewWebSocketMessageReceived(c.id, c.clock.WallMillis(), c.clock.MonoNanos())
	evt.Opcode = opcodeFor(messageType)
	evt.PayloadSize = len(data)
	if preview := previewFor(evt.Opcode, data, c.cfg); preview != "" {
		evt.Preview = &preview
	}
	c.publish(evt)

	c.recordDirection(&c.incoming, len(data))
	return messageType, data, nil
}

func (c *Conn) handleReadError(err error) {
	if ce, ok := err.(*websocket.CloseError); ok {
		c.publish(record.NewWebSocketClosing(c.id, c.clock.WallMillis(), c.clock.MonoNanos()))

		closed := record.NewWebSocketClosed(c.id, c.clock.WallMillis(), c.clock.MonoNanos())
		closed.Code = ce.Code
		if ce.Text != "" {
			reason := ce.Text
			closed.Reason = &reason
		}
		c.publish(closed)
		return
	}

	failed := record.NewWebSocketFailed(c.id, c.clock.WallMillis(), c.clock.MonoNanos())
	failed.Message = err.Error()
	c.publish(failed)
}

// Close performs a normal-closure client-initiated close handshake.
func (c *Conn) Close() error {
	return c.CloseWithReason(websocket.CloseNormalClosure, "")
}

// CloseWithReason sends a close control frame with the given code/reason,
// closes the underlying connection, and publishes
// WebSocketCloseRequested{initiated=client} with whether the close frame
// was actually accepted by the transport.
func (c *Conn) CloseWithReason(code int, reason string) error {
	writeErr := c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(5*time.Second))
	closeErr := c.ws.Close()
	accepted := writeErr == nil

	evt := record.NewWebSocketCloseRequested(c.id, c.clock.WallMillis(), c.clock.MonoNanos())
	evt.Code = code
	if reason != "" {
		evt.Reason = &reason
	}
	evt.Initiated = record.InitiatorClient
	evt.Accepted = accepted
	c.publish(evt)

	if writeErr != nil {
		return writeErr
	}
	return closeErr
}

func (c *Conn) publish(evt record.Event) {
	if c.pub != nil {
		c.pub.Publish(evt)
	}
}

func (c *Conn) recordDirection(stats *directionStats, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	stats.total++
	stats.bytes += int64(n)
	stats.lastAtWall = c.clock.WallMillis()
	stats.recentTimes = appendAndPrune(stats.recentTimes, now)
}

// appendAndPrune adds t and drops entries older than rateWindow, matching
// the teacher's sliding-window maintenance.
func appendAndPrune(times []time.Time, t time.Time) []time.Time {
	cutoff := t.Add(-rateWindow)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	surviving := make([]time.Time, len(times)-start, len(times)-start+1)
	copy(surviving, times[start:])
	return append(surviving, t)
}

// calcRate returns messages per second within the rolling window.
func calcRate(times []time.Time, now time.Time) float64 {
	cutoff := now.Add(-rateWindow)
	count := 0
	for _, t := range times {
		if t.After(cutoff) {
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(count) / rateWindow.Seconds()
}

func opcodeFor(messageType int) record.Opcode {
	if messageType == websocket.BinaryMessage {
		return record.OpcodeBinary
	}
	return record.OpcodeText
}

// previewFor applies spec.md §4.5's preview rules: text truncated at
// textPreviewChars code points, binary base64-encoded over the first
// binaryPreviewBytes bytes.
func previewFor(opcode record.Opcode, data []byte, cfg Config) string {
	if opcode == record.OpcodeBinary {
		n := cfg.BinaryPreviewBytes
		if n <= 0 {
			return ""
		}
		if n > len(data) {
			n = len(data)
		}
		return base64.StdEncoding.EncodeToString(data[:n])
	}

	n := cfg.TextPreviewChars
	if n <= 0 {
		return ""
	}
	runes := []rune(string(data))
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

func headerPairs(h http.Header) []record.HeaderPair {
	if len(h) == 0 {
		return nil
	}
	pairs := make([]record.HeaderPair, 0, len(h))
	for name, values := range h {
		for _, v := range values {
			pairs = append(pairs, record.HeaderPair{Name: name, Value: v})
		}
	}
	return pairs
}
