package record

// WebSocket record family (spec.md §3).

// Opcode discriminates a WebSocket message's payload kind.
type Opcode string

const (
	OpcodeText   Opcode = "text"
	OpcodeBinary Opcode = "binary"
)

// Initiator discriminates who requested a WebSocket close.
type Initiator string

const (
	InitiatorClient Initiator = "client"
	InitiatorServer Initiator = "server"
)

// WebSocketWillOpen is emitted the moment a connection attempt is observed.
type WebSocketWillOpen struct {
	Common
	Type string `json:"type"`
	URL  string `json:"url"`
}

func NewWebSocketWillOpen(id string, wallMs, monoNs int64) *WebSocketWillOpen {
	return &WebSocketWillOpen{Common: Common{ID: id, WallMs: wallMs, MonoNs: monoNs}, Type: "webSocketWillOpen"}
}
func (e *WebSocketWillOpen) EventType() string { return e.Type }

// WebSocketOpened is emitted once the handshake completes.
type WebSocketOpened struct {
	Common
	Type    string       `json:"type"`
	Code    int          `json:"code"`
	Headers []HeaderPair `json:"headers"`
}

func NewWebSocketOpened(id string, wallMs, monoNs int64) *WebSocketOpened {
	return &WebSocketOpened{Common: Common{ID: id, WallMs: wallMs, MonoNs: monoNs}, Type: "webSocketOpened"}
}
func (e *WebSocketOpened) EventType() string { return e.Type }

// WebSocketMessageSent/Received capture one message in a given direction.
// Preview rules: text truncated at textPreviewChars code points; binary
// base64-encoded over the first binaryPreviewBytes bytes (spec.md §4.5).
type WebSocketMessageSent struct {
	Common
	Type        string  `json:"type"`
	Opcode      Opcode  `json:"opcode"`
	Preview     *string `json:"preview,omitempty"`
	PayloadSize int     `json:"payloadSize"`
	Enqueued    *bool   `json:"enqueued,omitempty"`
}

func NewWebSocketMessageSent(id string, wallMs, monoNs int64) *WebSocketMessageSent {
	return &WebSocketMessageSent{Common: Common{ID: id, WallMs: wallMs, MonoNs: monoNs}, Type: "webSocketMessageSent"}
}
func (e *WebSocketMessageSent) EventType() string { return e.Type }

type WebSocketMessageReceived struct {
	Common
	Type        string  `json:"type"`
	Opcode      Opcode  `json:"opcode"`
	Preview     *string `json:"preview,omitempty"`
	PayloadSize int     `json:"payloadSize"`
}

func NewWebSocketMessageReceived(id string, wallMs, monoNs int64) *WebSocketMessageReceived {
	return &WebSocketMessageReceived{Common: Common{ID: id, WallMs: wallMs, MonoNs: monoNs}, Type: "webSocketMessageReceived"}
}
func (e *WebSocketMessageReceived) EventType() string { return e.Type }

// WebSocketCloseRequested is emitted after the underlying close call
// completes, whether the host or the peer initiated it.
type WebSocketCloseRequested struct {
	Common
	Type      string    `json:"type"`
	Code      int       `json:"code"`
	Reason    *string   `json:"reason,omitempty"`
	Initiated Initiator `json:"initiated"`
	Accepted  bool      `json:"accepted"`
}

func NewWebSocketCloseRequested(id string, wallMs, monoNs int64) *WebSocketCloseRequested {
	return &WebSocketCloseRequested{Common: Common{ID: id, WallMs: wallMs, MonoNs: monoNs}, Type: "webSocketCloseRequested"}
}
func (e *WebSocketCloseRequested) EventType() string { return e.Type }

// WebSocketClosing marks the start of the close handshake (peer-initiated).
type WebSocketClosing struct {
	Common
	Type string `json:"type"`
}

func NewWebSocketClosing(id string, wallMs, monoNs int64) *WebSocketClosing {
	return &WebSocketClosing{Common: Common{ID: id, WallMs: wallMs, MonoNs: monoNs}, Type: "webSocketClosing"}
}
func (e *WebSocketClosing) EventType() string { return e.Type }

// WebSocketClosed marks a clean close.
type WebSocketClosed struct {
	Common
	Type   string  `json:"type"`
	Code   int     `json:"code"`
	Reason *string `json:"reason,omitempty"`
}

func NewWebSocketClosed(id string, wallMs, monoNs int64) *WebSocketClosed {
	return &WebSocketClosed{Common: Common{ID: id, WallMs: wallMs, MonoNs: monoNs}, Type: "webSocketClosed"}
}
func (e *WebSocketClosed) EventType() string { return e.Type }

// WebSocketFailed marks an abnormal termination.
type WebSocketFailed struct {
	Common
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewWebSocketFailed(id string, wallMs, monoNs int64) *WebSocketFailed {
	return &WebSocketFailed{Common: Common{ID: id, WallMs: wallMs, MonoNs: monoNs}, Type: "webSocketFailed"}
}
func (e *WebSocketFailed) EventType() string { return e.Type }

// WebSocketCancelled marks a connection torn down before it ever opened.
type WebSocketCancelled struct {
	Common
	Type string `json:"type"`
}

func NewWebSocketCancelled(id string, wallMs, monoNs int64) *WebSocketCancelled {
	return &WebSocketCancelled{Common: Common{ID: id, WallMs: wallMs, MonoNs: monoNs}, Type: "webSocketCancelled"}
}
func (e *WebSocketCancelled) EventType() string { return e.Type }
