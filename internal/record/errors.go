package record

// ErrKind enumerates the non-fatal error conditions the core surfaces
// (spec.md §7). None of these abort the pipeline; they are reported through
// a callback, never returned from a hot-path call.
type ErrKind string

const (
	ErrStreamWarning     ErrKind = "streamWarning"
	ErrRegexFailure      ErrKind = "regexFailure"
	ErrBacklogDropped    ErrKind = "backlogDropped"
	ErrSlowProcessing    ErrKind = "slowProcessing"
	ErrStateInconsistent ErrKind = "stateInconsistency"
)

// CoreError is the value delivered to a lifecycle/error callback.
type CoreError struct {
	Kind    ErrKind
	Message string
	// N carries the count for backlogDropped/slowProcessing; zero otherwise.
	N int
	// Pattern carries the offending regex for regexFailure; empty otherwise.
	Pattern string
}

func (e CoreError) Error() string { return string(e.Kind) + ": " + e.Message }

func StreamWarning(msg string) CoreError { return CoreError{Kind: ErrStreamWarning, Message: msg} }

func RegexFailure(pattern, msg string) CoreError {
	return CoreError{Kind: ErrRegexFailure, Message: msg, Pattern: pattern}
}

func BacklogDropped(n int) CoreError {
	return CoreError{Kind: ErrBacklogDropped, N: n, Message: "log ring buffer evicted entries this cycle"}
}

func SlowProcessing(n int) CoreError {
	return CoreError{Kind: ErrSlowProcessing, N: n, Message: "large batch processed in one cycle"}
}

func StateInconsistency(msg string) CoreError {
	return CoreError{Kind: ErrStateInconsistent, Message: msg}
}
