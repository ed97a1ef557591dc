package har

import "github.com/brennhill/snapo-core/internal/record"

func (x *Exporter) wsEntry(ex WebSocketExchange) Entry {
	openWall := ex.openInstant()
	closeWall := ex.closeInstant(openWall)
	duration := closeWall - openWall
	if duration < 0 {
		duration = 0
	}

	url := ""
	if ex.WillOpen != nil {
		url = ex.WillOpen.URL
	}

	status := 0
	var headers []record.HeaderPair
	if ex.Opened != nil {
		status = ex.Opened.Code
		headers = ex.Opened.Headers
	}

	return Entry{
		StartedDateTime: isoTime(openWall),
		Time:            duration,
		Request: Request{
			Method:      "GET",
			URL:         url,
			HTTPVersion: "HTTP/1.1",
			Headers:     []NameValue{},
			QueryString: parseQueryString(url),
			Cookies:     []NameValue{},
			HeadersSize: -1,
		},
		Response: Response{
			Status:      status,
			StatusText:  wsStatusText(ex),
			HTTPVersion: "HTTP/1.1",
			Headers:     x.filteredHeaders(headers),
			Cookies:     []NameValue{},
			Content:     Content{Size: -1},
			HeadersSize: -1,
		},
		Cache:         Cache{},
		Timings:       phaseTimings(duration),
		ResourceType:  "websocket",
		WebSocketMsgs: x.buildWSMessages(ex),
	}
}

func wsStatusText(ex WebSocketExchange) string {
	switch {
	case ex.Opened != nil:
		return "Switching Protocols"
	case ex.Failed != nil:
		return ex.Failed.Message
	case ex.Cancelled != nil:
		return "Cancelled"
	default:
		return ""
	}
}

func (x *Exporter) buildWSMessages(ex WebSocketExchange) []WSMsg {
	if len(ex.Messages) == 0 {
		return nil
	}
	out := make([]WSMsg, 0, len(ex.Messages))
	for _, m := range ex.Messages {
		switch m.direction {
		case "send":
			out = append(out, WSMsg{
				Type:   "send",
				Time:   float64(m.sent.WallMs) / 1000,
				Opcode: opcodeNumeric(m.sent.Opcode),
				Data:   x.redactBody(previewOf(m.sent.Preview)),
			})
		case "receive":
			out = append(out, WSMsg{
				Type:   "receive",
				Time:   float64(m.received.WallMs) / 1000,
				Opcode: opcodeNumeric(m.received.Opcode),
				Data:   x.redactBody(previewOf(m.received.Preview)),
			})
		}
	}
	return out
}

func previewOf(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// opcodeNumeric maps the record's opcode tag to the wire-protocol opcode
// numbers HAR consumers expect (spec.md §4.8: "1,2,8,9,10|numeric
// fallback"); this interceptor only ever records data-frame opcodes, so
// only the text/binary cases are reachable.
func opcodeNumeric(op record.Opcode) int {
	switch op {
	case record.OpcodeBinary:
		return 2
	default:
		return 1
	}
}

// openInstant prefers Opened's timestamp (handshake complete) over
// WillOpen's (dial attempted) so duration reflects connected time.
func (ex WebSocketExchange) openInstant() int64 {
	if ex.Opened != nil {
		return ex.Opened.WallMs
	}
	if ex.WillOpen != nil {
		return ex.WillOpen.WallMs
	}
	return 0
}

// closeInstant implements spec.md §4.8's preference order: closed, else
// failed, else cancelled, else the last message, else the connection's
// open instant (no later update observed).
func (ex WebSocketExchange) closeInstant(fallback int64) int64 {
	if ex.Closed != nil {
		return ex.Closed.WallMs
	}
	if ex.Failed != nil {
		return ex.Failed.WallMs
	}
	if ex.Cancelled != nil {
		return ex.Cancelled.WallMs
	}
	if len(ex.Messages) > 0 {
		last := ex.Messages[len(ex.Messages)-1]
		if last.sent != nil {
			return last.sent.WallMs
		}
		if last.received != nil {
			return last.received.WallMs
		}
	}
	return fallback
}
