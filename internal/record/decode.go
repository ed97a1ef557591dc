package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// envelope peeks at the one field every variant carries so the concrete
// type can be chosen before a second, fully-typed unmarshal.
type envelope struct {
	Type string `json:"type"`
}

// DecodeEvent unmarshals one NDJSON line back into the concrete Event
// variant named by its "type" field. This is the inverse of the
// publisher's plain json.Marshal(evt) — used by consumers that read a
// recorded stream back off disk (HAR export, replay) rather than receiving
// Event values directly from an interceptor.
func DecodeEvent(line []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("record: decoding event envelope: %w", err)
	}

	var evt Event
	switch env.Type {
	case "requestWillBeSent":
		evt = &RequestWillBeSent{}
	case "responseReceived":
		evt = &ResponseReceived{}
	case "responseStreamEvent":
		evt = &ResponseStreamEvent{}
	case "responseStreamClosed":
		evt = &ResponseStreamClosed{}
	case "requestFailed":
		evt = &RequestFailed{}
	case "responseFinished":
		evt = &ResponseFinished{}
	case "webSocketWillOpen":
		evt = &WebSocketWillOpen{}
	case "webSocketOpened":
		evt = &WebSocketOpened{}
	case "webSocketMessageSent":
		evt = &WebSocketMessageSent{}
	case "webSocketMessageReceived":
		evt = &WebSocketMessageReceived{}
	case "webSocketCloseRequested":
		evt = &WebSocketCloseRequested{}
	case "webSocketClosing":
		evt = &WebSocketClosing{}
	case "webSocketClosed":
		evt = &WebSocketClosed{}
	case "webSocketFailed":
		evt = &WebSocketFailed{}
	case "webSocketCancelled":
		evt = &WebSocketCancelled{}
	default:
		return nil, fmt.Errorf("record: unknown event type %q", env.Type)
	}

	if err := json.Unmarshal(line, evt); err != nil {
		return nil, fmt.Errorf("record: decoding %s: %w", env.Type, err)
	}
	return evt, nil
}

// DecodeEvents reads one Event per newline-terminated line from r, in
// order, skipping blank lines. It stops and returns the error from the
// first line that fails to decode, along with every event successfully
// decoded before it — a recording truncated mid-write (e.g. the process
// was killed) should still export everything captured up to that point.
func DecodeEvents(r io.Reader) ([]Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var events []Event
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		evt, err := DecodeEvent(line)
		if err != nil {
			return events, err
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("record: scanning event stream: %w", err)
	}
	return events, nil
}
