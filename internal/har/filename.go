package har

import (
	"fmt"
	"time"
)

// DefaultFilename implements spec.md §4.8's naming rule: a single entry
// gets "snapo-request-<stamp>.har", anything else "snapo-requests-<N>-
// <stamp>.har", where stamp is generated from now in the local zone by the
// caller (never time.Now() directly — see this package's callers in
// cmd/snapoctl, which stamp once per invocation for reproducible tests).
func DefaultFilename(entryCount int, now time.Time) string {
	stamp := now.Format("20060102-150405")
	if entryCount == 1 {
		return fmt.Sprintf("snapo-request-%s.har", stamp)
	}
	return fmt.Sprintf("snapo-requests-%d-%s.har", entryCount, stamp)
}
