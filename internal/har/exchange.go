package har

import "github.com/brennhill/snapo-core/internal/record"

// HTTPExchange collects every record sharing one request id, the shape
// ExportHTTP groups a flat record stream into before building an Entry.
type HTTPExchange struct {
	ID           string
	WillBeSent   *record.RequestWillBeSent
	Received     *record.ResponseReceived
	StreamEvents []*record.ResponseStreamEvent
	StreamClosed *record.ResponseStreamClosed
	Failed       *record.RequestFailed
	Finished     *record.ResponseFinished
}

// wsMessage pairs a sent/received record with its direction, in emission
// order, for the exchange's _webSocketMessages list.
type wsMessage struct {
	direction string // "send" or "receive"
	sent      *record.WebSocketMessageSent
	received  *record.WebSocketMessageReceived
}

// WebSocketExchange collects every record sharing one connection id.
type WebSocketExchange struct {
	ID             string
	WillOpen       *record.WebSocketWillOpen
	Opened         *record.WebSocketOpened
	Messages       []wsMessage
	CloseRequested *record.WebSocketCloseRequested
	Closed         *record.WebSocketClosed
	Failed         *record.WebSocketFailed
	Cancelled      *record.WebSocketCancelled
}

// GroupHTTP assembles flat HTTP record events into per-request exchanges,
// preserving the order in which each id was first observed.
func GroupHTTP(events []record.Event) []HTTPExchange {
	order := make([]string, 0)
	byID := make(map[string]*HTTPExchange)

	get := func(id string) *HTTPExchange {
		ex, ok := byID[id]
		if !ok {
			ex = &HTTPExchange{ID: id}
			byID[id] = ex
			order = append(order, id)
		}
		return ex
	}

	for _, evt := range events {
		switch e := evt.(type) {
		case *record.RequestWillBeSent:
			get(e.ID).WillBeSent = e
		case *record.ResponseReceived:
			get(e.ID).Received = e
		case *record.ResponseStreamEvent:
			ex := get(e.ID)
			ex.StreamEvents = append(ex.StreamEvents, e)
		case *record.ResponseStreamClosed:
			get(e.ID).StreamClosed = e
		case *record.RequestFailed:
			get(e.ID).Failed = e
		case *record.ResponseFinished:
			get(e.ID).Finished = e
		}
	}

	out := make([]HTTPExchange, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// GroupWebSocket assembles flat WebSocket record events into per-connection
// exchanges, preserving first-seen order.
func GroupWebSocket(events []record.Event) []WebSocketExchange {
	order := make([]string, 0)
	byID := make(map[string]*WebSocketExchange)

	get := func(id string) *WebSocketExchange {
		ex, ok := byID[id]
		if !ok {
			ex = &WebSocketExchange{ID: id}
			byID[id] = ex
			order = append(order, id)
		}
		return ex
	}

	for _, evt := range events {
		switch e := evt.(type) {
		case *record.WebSocketWillOpen:
			get(e.ID).WillOpen = e
		case *record.WebSocketOpened:
			get(e.ID).Opened = e
		case *record.WebSocketMessageSent:
			ex := get(e.ID)
			ex.Messages = append(ex.Messages, wsMessage{direction: "send", sent: e})
		case *record.WebSocketMessageReceived:
			ex := get(e.ID)
			ex.Messages = append(ex.Messages, wsMessage{direction: "receive", received: e})
		case *record.WebSocketCloseRequested:
			get(e.ID).CloseRequested = e
		case *record.WebSocketClosed:
			get(e.ID).Closed = e
		case *record.WebSocketFailed:
			get(e.ID).Failed = e
		case *record.WebSocketCancelled:
			get(e.ID).Cancelled = e
		// WebSocketClosing carries no data this export needs.
		case *record.WebSocketClosing:
		}
	}

	out := make([]WebSocketExchange, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}
