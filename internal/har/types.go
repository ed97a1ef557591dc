// Package har serializes captured HTTP and WebSocket record sequences into
// a HAR 1.2 document (spec.md §4.8, wire schema in §6).
//
// Grounded on _teacher_ref/export/export_har.go almost directly: the
// HARLog/HARLogInner/HARCreator/HAREntry/HARRequest/HARResponse/
// HARContent/HARTimings/HARNameValue shapes, `json:"..."` field names, and
// parseQueryString are kept/adapted near-verbatim. isPathSafe and the
// file-writing step live in cmd/snapoctl instead of here (this package
// only builds a Document in memory — see cmd/snapoctl/commands/
// export_har.go's safeOutputPath). What's new here — because the teacher
// only ever HAR-exports a single already-buffered NetworkBody, never a
// live record stream — is grouping a flat record.Event slice back into
// per-request exchanges, the streaming/SSE body reconstruction, the
// content-size fallback chain, and the WebSocket
// `_resourceType`/`_webSocketMessages` extensions.
package har

// Document is the top-level HAR structure (spec.md §6).
type Document struct {
	Log Log `json:"log"`
}

type Log struct {
	Version string  `json:"version"`
	Creator Creator `json:"creator"`
	Entries []Entry `json:"entries"`
}

type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Entry struct {
	StartedDateTime string   `json:"startedDateTime"`
	Time            int64    `json:"time"`
	Request         Request  `json:"request"`
	Response        Response `json:"response"`
	Cache           Cache    `json:"cache"`
	Timings         Timings  `json:"timings"`
	ResourceType    string   `json:"_resourceType,omitempty"`
	WebSocketMsgs   []WSMsg  `json:"_webSocketMessages,omitempty"`
}

type Request struct {
	Method      string       `json:"method"`
	URL         string       `json:"url"`
	HTTPVersion string       `json:"httpVersion"`
	Headers     []NameValue  `json:"headers"`
	QueryString []NameValue  `json:"queryString"`
	Cookies     []NameValue  `json:"cookies"`
	HeadersSize int          `json:"headersSize"`
	BodySize    int          `json:"bodySize"`
	PostData    *PostData    `json:"postData,omitempty"`
}

type Response struct {
	Status      int         `json:"status"`
	StatusText  string      `json:"statusText"`
	HTTPVersion string      `json:"httpVersion"`
	Headers     []NameValue `json:"headers"`
	Cookies     []NameValue `json:"cookies"`
	Content     Content     `json:"content"`
	RedirectURL string      `json:"redirectURL"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
	Error       *string     `json:"_error,omitempty"`
}

type Content struct {
	Size     int64   `json:"size"`
	MimeType string  `json:"mimeType"`
	Text     *string `json:"text,omitempty"`
	Encoding *string `json:"encoding,omitempty"`
}

type Timings struct {
	Blocked int64 `json:"blocked"`
	DNS     int64 `json:"dns"`
	Connect int64 `json:"connect"`
	Send    int64 `json:"send"`
	Wait    int64 `json:"wait"`
	Receive int64 `json:"receive"`
	SSL     int64 `json:"ssl"`
}

// Cache is always empty; the core has no cache-revalidation concept.
type Cache struct{}

type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type PostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// WSMsg is one entry in a WebSocket entry's `_webSocketMessages` list.
type WSMsg struct {
	Type   string  `json:"type"`
	Time   float64 `json:"time"`
	Opcode int     `json:"opcode"`
	Data   string  `json:"data"`
}
