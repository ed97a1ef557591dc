// Package clock provides the monotonic/wall clock capability the core reads
// timestamps from. Production code uses the real clock; tests use a fake one
// so duration math stays deterministic.
package clock

import "time"

// Clock yields the two timestamp flavors every record carries: a wall-clock
// value for export and a monotonic value for duration math. See spec.md §3.
type Clock interface {
	// WallMillis returns the current wall-clock time in Unix milliseconds.
	WallMillis() int64
	// MonoNanos returns a monotonic nanosecond reading. Only differences
	// between two MonoNanos calls are meaningful.
	MonoNanos() int64
}

// Real is the production Clock, backed by time.Now().
type Real struct{}

// NewReal returns the production clock.
func NewReal() Real { return Real{} }

func (Real) WallMillis() int64 {
	return time.Now().UnixMilli()
}

func (Real) MonoNanos() int64 {
	// time.Now() carries a monotonic reading alongside the wall clock on
	// all supported platforms; UnixNano here is fine only because we never
	// compare it across process restarts, only within-process deltas via
	// time.Since-equivalent subtraction of two readings taken from the
	// monotonic clock. We use runtimeNano via time.Since against a fixed
	// epoch to keep this allocation-free and comparable.
	return time.Since(processEpoch).Nanoseconds()
}

var processEpoch = time.Now()

// Fake is a deterministic clock for tests: both readings advance only when
// Advance is called.
type Fake struct {
	wallMillis int64
	monoNanos  int64
}

// NewFake returns a fake clock starting at the given wall time.
func NewFake(start time.Time) *Fake {
	return &Fake{wallMillis: start.UnixMilli()}
}

func (f *Fake) WallMillis() int64 { return f.wallMillis }
func (f *Fake) MonoNanos() int64  { return f.monoNanos }

// Advance moves both readings forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.wallMillis += d.Milliseconds()
	f.monoNanos += d.Nanoseconds()
}
