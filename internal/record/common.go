// Package record defines the tagged-union event schema the interception
// engine emits: HTTP request/response/SSE variants, WebSocket lifecycle
// variants, and the log-entry shape consumed by the log-tab processor.
//
// Every variant embeds Common (id + wall/mono timestamp pair) and carries its
// own "type" field so that json.Marshal produces the flat NDJSON object shape
// required by spec.md §6 — {type, id, tWallMs, tMonoNs, ...} — with no custom
// MarshalJSON needed: Go flattens anonymous embedded struct fields.
package record

import "github.com/google/uuid"

// NewID mints a fresh opaque identifier, unique within the process lifetime.
// See spec.md §3 "Identifiers".
func NewID() string {
	return uuid.NewString()
}

// Common is embedded by every record variant.
type Common struct {
	ID     string `json:"id"`
	WallMs int64  `json:"tWallMs"`
	MonoNs int64  `json:"tMonoNs"`
}

// Event is implemented by every record variant. Publishers type-switch or
// simply json.Marshal the concrete value; EventType/EventID exist for
// logging and for consumers that want to dispatch without decoding JSON.
type Event interface {
	EventType() string
	EventID() string
}

func (c Common) EventID() string { return c.ID }

// HeaderPair is a single HTTP header name/value pair. Headers are kept as an
// ordered slice (not a map) so that repeated header names and the original
// wire order survive round-tripping into HAR (spec.md §6).
type HeaderPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BodyEncoding tags how a captured body's bytes are represented on the wire.
type BodyEncoding string

const (
	BodyEncodingNone   BodyEncoding = "none"
	BodyEncodingBase64 BodyEncoding = "base64"
)

// Timings carries the subset of duration math a record can report. Only
// TotalMs is modeled today (spec.md §3's duration fallback); it is a pointer
// so "unknown" is distinguishable from zero.
type Timings struct {
	TotalMs *int64 `json:"totalMs,omitempty"`
}

// DurationMs implements spec.md §3's duration fallback: prefer
// endMono-startMono; if either monotonic endpoint is missing, fall back to
// endWall-startWall clamped to >= 0.
func DurationMs(startWallMs, endWallMs, startMonoNs, endMonoNs int64, haveMono bool) int64 {
	if haveMono {
		d := (endMonoNs - startMonoNs) / int64(1e6)
		if d < 0 {
			d = 0
		}
		return d
	}
	d := endWallMs - startWallMs
	if d < 0 {
		d = 0
	}
	return d
}
