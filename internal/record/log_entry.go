package record

// Level is the threadtime log level character (spec.md §3, §6).
type Level string

const (
	LevelVerbose Level = "V"
	LevelDebug   Level = "D"
	LevelInfo    Level = "I"
	LevelWarn    Level = "W"
	LevelError   Level = "E"
	LevelFatal   Level = "F"
	LevelAssert  Level = "A"
	LevelUnknown Level = "?"
)

// Field names the string-valued accessors a filter clause or highlight can
// target. "raw" is the synthetic field that reprojects into every other
// field during highlight-range computation (spec.md §4.6).
type Field string

const (
	FieldTimestamp Field = "timestamp"
	FieldPID       Field = "pid"
	FieldTID       Field = "tid"
	FieldLevel     Field = "level"
	FieldTag       Field = "tag"
	FieldMessage   Field = "message"
	FieldRaw       Field = "raw"
)

// AllFields lists every field a highlight can project onto, in the
// column/UI-stable order matching spec.md §3's enumeration.
var AllFields = []Field{FieldTimestamp, FieldPID, FieldTID, FieldLevel, FieldTag, FieldMessage, FieldRaw}

// LogEntry is one parsed device log line. Unparseable lines get a stub entry
// with Tag="unparsed" and Message=Raw (spec.md §3).
type LogEntry struct {
	ID              string `json:"id"`
	TimestampString string `json:"timestampString"`
	Timestamp       *int64 `json:"timestamp,omitempty"` // epoch millis, nil if unparseable
	PID             *int   `json:"pid,omitempty"`
	TID             *int   `json:"tid,omitempty"`
	Level           Level  `json:"level"`
	Tag             string `json:"tag"`
	Message         string `json:"message"`
	Raw             string `json:"raw"`
}

// Value returns the entry's string form for the given field, used uniformly
// by both filter-clause matching and highlight projection (spec.md §4.6).
func (e *LogEntry) Value(f Field) string {
	switch f {
	case FieldTimestamp:
		return e.TimestampString
	case FieldPID:
		if e.PID == nil {
			return ""
		}
		return itoa(*e.PID)
	case FieldTID:
		if e.TID == nil {
			return ""
		}
		return itoa(*e.TID)
	case FieldLevel:
		return string(e.Level)
	case FieldTag:
		return e.Tag
	case FieldMessage:
		return e.Message
	case FieldRaw:
		return e.Raw
	default:
		return ""
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
