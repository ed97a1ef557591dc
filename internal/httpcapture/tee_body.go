package httpcapture

import (
	"io"
	"sync"

	"github.com/brennhill/snapo-core/internal/bodycapture"
	"github.com/brennhill/snapo-core/internal/record"
	"github.com/brennhill/snapo-core/internal/sse"
)

// teeReadCloser wraps a request body so the real transport reads the
// original, unaltered bytes while a bounded copy accumulates into acc —
// spec.md §4.2 rule 8's duplex/one-shot tee, applied to the outbound side.
func teeReadCloser(rc io.ReadCloser, acc *bodycapture.Accumulator) io.ReadCloser {
	return &teeBody{rc: rc, acc: acc}
}

type teeBody struct {
	rc  io.ReadCloser
	acc *bodycapture.Accumulator
}

func (t *teeBody) Read(p []byte) (int, error) {
	n, err := t.rc.Read(p)
	if n > 0 {
		t.acc.Write(p[:n])
	}
	return n, err
}

func (t *teeBody) Close() error { return t.rc.Close() }

// bufferedBody wraps a non-streaming response body: bytes pass through to
// the caller untouched, tee into acc, and onDone fires exactly once when
// the body is fully read or explicitly closed (spec.md §4.4 step 3).
type bufferedBody struct {
	rc     io.ReadCloser
	acc    *bodycapture.Accumulator
	onDone func(record.StreamCloseReason, *string)
	once   sync.Once
}

func newBufferedBody(rc io.ReadCloser, acc *bodycapture.Accumulator, onDone func(record.StreamCloseReason, *string)) io.ReadCloser {
	return &bufferedBody{rc: rc, acc: acc, onDone: onDone}
}

func (b *bufferedBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.acc.Write(p[:n])
	}
	switch {
	case err == io.EOF:
		b.finish(record.StreamCompleted, nil)
	case err != nil:
		msg := err.Error()
		b.finish(record.StreamError, &msg)
	}
	return n, err
}

func (b *bufferedBody) Close() error {
	err := b.rc.Close()
	b.finish(record.StreamCompleted, nil)
	return err
}

func (b *bufferedBody) finish(reason record.StreamCloseReason, msg *string) {
	b.once.Do(func() { b.onDone(reason, msg) })
}

// sseBody wraps a text/event-stream response body: bytes pass through to
// the caller untouched while also being fed to an incremental sse.Parser.
// onFrame fires for every dispatched frame; onClose fires exactly once,
// after the parser's buffered tail (if any) has been drained.
type sseBody struct {
	rc      io.ReadCloser
	parser  *sse.Parser
	onFrame func(sse.Frame)
	onClose func(record.StreamCloseReason, *string)
	once    sync.Once
}

func newSSEBody(rc io.ReadCloser, parser *sse.Parser, onFrame func(sse.Frame), onClose func(record.StreamCloseReason, *string)) io.ReadCloser {
	return &sseBody{rc: rc, parser: parser, onFrame: onFrame, onClose: onClose}
}

func (s *sseBody) Read(p []byte) (int, error) {
	n, err := s.rc.Read(p)
	if n > 0 {
		for _, f := range s.parser.Feed(p[:n]) {
			s.onFrame(f)
		}
	}
	switch {
	case err == io.EOF:
		s.drainAndFinish(record.StreamCompleted, nil)
	case err != nil:
		msg := err.Error()
		s.drainAndFinish(record.StreamError, &msg)
	}
	return n, err
}

func (s *sseBody) Close() error {
	err := s.rc.Close()
	s.drainAndFinish(record.StreamCompleted, nil)
	return err
}

func (s *sseBody) drainAndFinish(reason record.StreamCloseReason, msg *string) {
	for _, f := range s.parser.Close() {
		s.onFrame(f)
	}
	s.once.Do(func() { s.onClose(reason, msg) })
}
