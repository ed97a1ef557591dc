// Package publisher implements the fire-and-forget NDJSON record sink
// described in spec.md §6: every record.Event round-trips to the wire as
// one JSON object per line, publication never blocks the capturing
// exchange, and publish failures are swallowed without affecting the host
// call's outcome.
//
// Grounded on _teacher_ref/streaming/stream.go's StreamState.EmitAlert,
// which holds a mutex-guarded Writer field and marshals-then-writes a
// newline-terminated JSON notification in the same fire-and-forget style;
// this package generalizes that single-writer pattern into a bounded async
// queue so a slow or stalled sink can never backpressure the interceptor.
package publisher

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/brennhill/snapo-core/internal/record"
	"github.com/brennhill/snapo-core/internal/telemetry"
)

// Publisher accepts records for asynchronous, best-effort delivery.
type Publisher interface {
	Publish(evt record.Event)
	Close()
}

// Queue is a bounded, channel-backed NDJSON publisher. Publish is
// non-blocking: when the queue is full the record is dropped and counted,
// never blocking the caller (spec.md §4.4: "publishes never block the
// exchange thread").
type Queue struct {
	ch      chan record.Event
	done    chan struct{}
	wg      sync.WaitGroup
	log     *zap.Logger
	metrics *telemetry.Metrics

	mu    sync.Mutex
	sinks []io.Writer
}

// NewQueue creates a Queue with the given backlog capacity, writing each
// published record as one NDJSON line to every sink. A nil metrics or
// logger is replaced with a no-op implementation so Queue is usable
// standalone in tests.
func NewQueue(capacity int, log *zap.Logger, metrics *telemetry.Metrics, sinks ...io.Writer) *Queue {
	if log == nil {
		log = telemetry.NewNop()
	}
	if capacity <= 0 {
		capacity = 1
	}
	q := &Queue{
		ch:      make(chan record.Event, capacity),
		done:    make(chan struct{}),
		log:     log,
		metrics: metrics,
		sinks:   sinks,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Publish enqueues evt for delivery. Never blocks: if the queue is full the
// record is dropped and reported via metrics, not returned as an error,
// since publication failures must never alter the host exchange's outcome.
func (q *Queue) Publish(evt record.Event) {
	select {
	case q.ch <- evt:
		if q.metrics != nil {
			q.metrics.PublisherQueueDepth.Set(float64(len(q.ch)))
		}
	default:
		if q.metrics != nil {
			q.metrics.PublisherDroppedTotal.Inc()
		}
		q.log.Warn("publisher queue full, dropping record",
			zap.String("eventType", evt.EventType()),
			zap.String("eventId", evt.EventID()),
		)
	}
}

// PublishWithContext behaves like Publish but gives up immediately if ctx
// is already done, matching spec.md §5's "cancellation drops in-flight
// publishes" rule.
func (q *Queue) PublishWithContext(ctx context.Context, evt record.Event) {
	select {
	case <-ctx.Done():
		return
	default:
	}
	q.Publish(evt)
}

// AddSink registers an additional writer. Existing queued records are not
// replayed to it.
func (q *Queue) AddSink(w io.Writer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sinks = append(q.sinks, w)
}

// Close stops accepting new records, drains the backlog, and returns once
// the background writer goroutine has exited.
func (q *Queue) Close() {
	close(q.done)
	q.wg.Wait()
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case evt := <-q.ch:
			q.deliver(evt)
		case <-q.done:
			q.drainRemaining()
			return
		}
	}
}

func (q *Queue) drainRemaining() {
	for {
		select {
		case evt := <-q.ch:
			q.deliver(evt)
		default:
			return
		}
	}
}

func (q *Queue) deliver(evt record.Event) {
	line, err := json.Marshal(evt)
	if err != nil {
		q.log.Warn("failed to marshal record for publication",
			zap.String("eventType", evt.EventType()),
			zap.Error(err),
		)
		return
	}
	line = append(line, '\n')

	q.mu.Lock()
	sinks := q.sinks
	q.mu.Unlock()

	for _, w := range sinks {
		if _, err := w.Write(line); err != nil {
			q.log.Warn("publisher sink write failed", zap.Error(err))
		}
	}
}
