// Package logtab implements the single-logical-actor log-tab processor
// described in spec.md §4.7: a capacity-bounded ring buffer of log
// entries, a pending-entries queue, a filter configuration snapshot, and
// a 50ms-coalesced flush to an update sink.
//
// Grounded on _teacher_ref/streaming/stream.go's StreamState: the same
// mutex-owned-state shape and "lock, check throttle/dedup, update, unlock"
// emission discipline, adapted from "throttled alert notification" to
// "coalesced batch-update flush". The teacher has no message-passing
// actor of its own (its only concurrency primitive is the mutex-guarded
// struct); spec.md §5 requires every log-tab operation to observe a
// single total order, so this package adds a goroutine-owned mailbox
// (a channel of closures) around that same mutex-guarded state — every
// public method posts a closure and returns, the mailbox goroutine is
// the only thing that ever touches the unexported fields, and no
// additional locking is needed once inside it.
package logtab

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brennhill/snapo-core/internal/logfilter"
	"github.com/brennhill/snapo-core/internal/record"
	"github.com/brennhill/snapo-core/internal/ring"
	"github.com/brennhill/snapo-core/internal/telemetry"
)

const (
	// DefaultCapacity is the ring buffer's default entry capacity (spec.md §4.7).
	DefaultCapacity = 20000

	flushDelay = 50 * time.Millisecond

	backlogDroppedThreshold = 100
	slowProcessingThreshold = 10

	mailboxCapacity = 1024
)

// Update is the coalesced result of one or more processing cycles,
// delivered to the sink at most once per flushDelay window.
type Update struct {
	Rendered       []logfilter.Rendered
	UnreadDelta    int
	DroppedEntries int
}

// Processor owns a ring buffer of log entries and renders them against a
// live filter configuration, per spec.md §4.7.
type Processor struct {
	cmds chan func()
	done chan struct{}
	wg   sync.WaitGroup

	log     *zap.Logger
	metrics *telemetry.Metrics
	sink    func(Update)

	evaluator *logfilter.Evaluator
	onError   func(record.CoreError)

	buffer             *ring.Buffer[record.LogEntry]
	pendingQueue       []record.LogEntry
	snapshot           logfilter.Snapshot
	needsFullRecompute bool
	paused             bool
	rendered           []logfilter.Rendered

	pendingUpdate    *Update
	flushInFlight    bool
	processScheduled bool
}

// NewProcessor creates a Processor with the given ring buffer capacity
// (DefaultCapacity if capacity <= 0). sink receives each coalesced
// Update; onError, if non-nil, receives non-fatal CoreErrors
// (backlogDropped, slowProcessing, stateInconsistency, and any
// regexFailure surfaced by the filter evaluator). log/metrics may be nil.
func NewProcessor(capacity int, sink func(Update), onError func(record.CoreError), log *zap.Logger, metrics *telemetry.Metrics) *Processor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = telemetry.NewNop()
	}
	if onError == nil {
		onError = func(record.CoreError) {}
	}
	if sink == nil {
		sink = func(Update) {}
	}

	p := &Processor{
		cmds:      make(chan func(), mailboxCapacity),
		done:      make(chan struct{}),
		log:       log,
		metrics:   metrics,
		sink:      sink,
		evaluator: logfilter.NewEvaluator(onError),
		onError:   onError,
		buffer:    ring.New[record.LogEntry](capacity),
	}
	p.wg.Add(1)
	telemetry.SafeGo(log, p.run)
	return p
}

func (p *Processor) run() {
	defer p.wg.Done()
	for {
		select {
		case cmd := <-p.cmds:
			cmd()
		case <-p.done:
			return
		}
	}
}

// Enqueue appends entry to the pending queue and schedules a processing
// cycle. Ignored while paused (spec.md §4.7).
func (p *Processor) Enqueue(entry record.LogEntry) {
	p.cmds <- func() {
		if p.paused {
			return
		}
		p.pendingQueue = append(p.pendingQueue, entry)
		p.scheduleProcessing()
	}
}

// RefreshConfiguration replaces the filter snapshot and forces a full
// re-render on the next processing cycle.
func (p *Processor) RefreshConfiguration(snap logfilter.Snapshot) {
	p.cmds <- func() {
		p.snapshot = snap
		p.needsFullRecompute = true
		p.scheduleProcessing()
	}
}

// Reset clears the buffer, pending queue, and rendered list.
func (p *Processor) Reset() {
	p.cmds <- func() {
		p.buffer.ResetAndClearDrops()
		p.pendingQueue = nil
		p.rendered = nil
		p.needsFullRecompute = true
		p.scheduleProcessing()
	}
}

// scheduleProcessing posts a deferred processing-cycle closure to the
// mailbox, unless one is already pending. Deferring (rather than running
// runProcessingStep inline) is what lets several Enqueue calls posted
// faster than the actor can drain them collapse into a single batch, per
// spec.md §4.7's "enqueue schedules processing" / "at most one instance
// at a time" wording — running it inline would make every batch size 1.
func (p *Processor) scheduleProcessing() {
	if p.processScheduled {
		return
	}
	p.processScheduled = true
	p.cmds <- func() {
		p.processScheduled = false
		p.runProcessingStep()
	}
}

// SetPaused toggles intake; enqueued entries are silently dropped while paused.
func (p *Processor) SetPaused(paused bool) {
	p.cmds <- func() {
		p.paused = paused
	}
}

// Close stops the mailbox goroutine and waits for it to exit. Any Update
// already scheduled via time.AfterFunc that fires after Close is a no-op:
// its closure is posted to cmds, which nothing reads any longer, and is
// simply dropped once garbage collected.
func (p *Processor) Close() {
	close(p.done)
	p.wg.Wait()
}

// runProcessingStep implements spec.md §4.7's processing loop. It always
// runs on the mailbox goroutine, so "at most one instance at a time" is
// automatic. A detected rendered/drop inconsistency restarts the loop
// exactly once (by looping here) with an empty batch, forcing a full
// recompute rather than ever being fed the same drop ids twice.
func (p *Processor) runProcessingStep() {
	for {
		batch := p.pendingQueue
		p.pendingQueue = nil

		var droppedIDs []string
		for _, e := range batch {
			evicted, didEvict := p.buffer.Append(e)
			if didEvict {
				droppedIDs = append(droppedIDs, evicted.ID)
			}
		}

		var newlyRendered []logfilter.Rendered
		if p.needsFullRecompute {
			p.needsFullRecompute = false
			all := p.buffer.All()
			newlyRendered = make([]logfilter.Rendered, 0, len(all))
			for i := range all {
				newlyRendered = append(newlyRendered, p.evaluator.Evaluate(&all[i], p.snapshot))
			}
			p.rendered = newlyRendered
		} else {
			newlyRendered = make([]logfilter.Rendered, 0, len(batch))
			for i := range batch {
				newlyRendered = append(newlyRendered, p.evaluator.Evaluate(&batch[i], p.snapshot))
			}
			combined := append(p.rendered, newlyRendered...)

			if len(droppedIDs) > 0 {
				if !frontMatchesDropped(combined, droppedIDs) {
					p.onError(record.StateInconsistency("log-tab rendered list front did not match dropped entry ids"))
					p.needsFullRecompute = true
					continue
				}
				combined = combined[len(droppedIDs):]
			}
			p.rendered = combined
		}

		unreadDelta := 0
		for _, r := range newlyRendered {
			if r.Accepted {
				unreadDelta++
			}
		}
		droppedEntries := len(droppedIDs)

		if droppedEntries > backlogDroppedThreshold {
			p.onError(record.BacklogDropped(droppedEntries))
		}
		if len(batch) > slowProcessingThreshold {
			p.onError(record.SlowProcessing(len(batch)))
		}
		if p.metrics != nil {
			p.metrics.LogBatchSize.Observe(float64(len(batch)))
			if droppedEntries > 0 {
				p.metrics.RingBufferDropsTotal.WithLabelValues("logtab").Add(float64(droppedEntries))
			}
		}

		p.queueUpdate(Update{
			Rendered:       append([]logfilter.Rendered(nil), p.rendered...),
			UnreadDelta:    unreadDelta,
			DroppedEntries: droppedEntries,
		})
		return
	}
}

// frontMatchesDropped reports whether the first len(ids) entries of
// rendered are exactly the dropped ids, in eviction order — the
// consistency spec.md §4.7 step 3 expects, since the ring buffer evicts
// oldest-first and rendered is append-only in the incremental path.
func frontMatchesDropped(rendered []logfilter.Rendered, ids []string) bool {
	if len(rendered) < len(ids) {
		return false
	}
	for i, id := range ids {
		if rendered[i].ID != id {
			return false
		}
	}
	return true
}

// queueUpdate buffers upd as the latest pending update and, if no flush is
// already scheduled, schedules one flushDelay from now. Overwriting
// pendingUpdate on repeated calls before the timer fires is the
// coalescing spec.md §4.7 step 5 describes.
func (p *Processor) queueUpdate(upd Update) {
	p.pendingUpdate = &upd
	if p.flushInFlight {
		return
	}
	p.flushInFlight = true
	time.AfterFunc(flushDelay, func() {
		p.cmds <- p.flush
	})
}

func (p *Processor) flush() {
	p.flushInFlight = false
	if p.pendingUpdate == nil {
		return
	}
	upd := *p.pendingUpdate
	p.pendingUpdate = nil
	p.sink(upd)
}
