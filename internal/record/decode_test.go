package record

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeEventRoundTripsRequestWillBeSent(t *testing.T) {
	original := NewRequestWillBeSent("req-1", 1000, 2000)
	original.Method = "GET"
	original.URL = "https://example.test/x"
	original.Headers = []HeaderPair{{Name: "Accept", Value: "application/json"}}

	line, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := DecodeEvent(line)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	got, ok := decoded.(*RequestWillBeSent)
	if !ok {
		t.Fatalf("expected *RequestWillBeSent, got %T", decoded)
	}
	if got.Method != "GET" || got.URL != original.URL || got.ID != "req-1" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDecodeEventRoundTripsWebSocketMessageReceived(t *testing.T) {
	original := NewWebSocketMessageReceived("ws-1", 500, 600)
	original.Opcode = OpcodeBinary
	original.PayloadSize = 42

	line, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := DecodeEvent(line)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	got, ok := decoded.(*WebSocketMessageReceived)
	if !ok {
		t.Fatalf("expected *WebSocketMessageReceived, got %T", decoded)
	}
	if got.Opcode != OpcodeBinary || got.PayloadSize != 42 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDecodeEventRejectsUnknownType(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"type":"somethingNew"}`)); err == nil {
		t.Fatal("expected an error for an unrecognized event type")
	}
}

func TestDecodeEventsSkipsBlankLinesAndStopsOnFirstBadLine(t *testing.T) {
	a := NewRequestWillBeSent("a", 1, 2)
	aLine, _ := json.Marshal(a)
	b := NewResponseFinished("a", 3, 4)
	bLine, _ := json.Marshal(b)

	ndjson := string(aLine) + "\n\n" + string(bLine) + "\n" + `{"type":"bogus"` + "\n"
	events, err := DecodeEvents(strings.NewReader(ndjson))
	if err == nil {
		t.Fatal("expected an error from the malformed trailing line")
	}
	if len(events) != 2 {
		t.Fatalf("expected the 2 good events before the bad line, got %d", len(events))
	}
}

func TestDecodeEventsReturnsEmptyForEmptyInput(t *testing.T) {
	events, err := DecodeEvents(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}
