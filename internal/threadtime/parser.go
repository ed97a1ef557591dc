// Package threadtime parses Android-style "threadtime" log lines into
// record.LogEntry values (spec.md §3, §6): a fixed regex over
// `MM-DD HH:MM:SS.mmm PID TID L TAG: MSG`. Lines that don't match the
// format become a stub entry with tag="unparsed" and message=raw, rather
// than being dropped, so no input line is ever silently lost.
//
// Not grounded on a single teacher file — the teacher repo ingests
// already-structured JSON events, never raw log text. The regex-with-
// stub-fallback shape follows the same "never fail the caller, degrade to
// a stub" posture as this repo's other parsers (sse.ParseFrame's ignore-
// unknown-field rule, bodycapture's charset-decode-failure fallback).
package threadtime

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/brennhill/snapo-core/internal/record"
)

// lineRegex captures: month, day, time-of-day, pid, tid, level, tag, message.
var lineRegex = regexp.MustCompile(`^\s*(\d{2})-(\d{2})\s+(\d{2}:\d{2}:\d{2}\.\d{3})\s+(\d+)\s+(\d+)\s+([A-Z])\s+(.+?):\s+(.*)$`)

// Parser converts raw log lines to LogEntry values. Year is supplied
// separately since threadtime timestamps carry no year; it is normally
// today's year at ingestion time (SPEC_FULL §4: threadtime has no year
// field, so the parser's caller supplies one — typically the current
// year, re-evaluated per line so a log that spans a year boundary at
// process-start is still handled correctly).
type Parser struct {
	// Year is consulted for every parsed line; callers that want
	// wall-clock-accurate epoch millis should set this to time.Now().Year()
	// shortly before parsing, or supply a fixed year for replaying archived
	// logs.
	Year func() int
}

// NewParser creates a Parser that stamps every parsed timestamp with the
// current local year at parse time.
func NewParser() *Parser {
	return &Parser{Year: func() int { return time.Now().Year() }}
}

// Parse converts one raw line into a LogEntry. Unparseable lines yield a
// stub entry per spec.md §3: tag="unparsed", message=raw, timestamp=nil.
func (p *Parser) Parse(raw string) *record.LogEntry {
	m := lineRegex.FindStringSubmatch(raw)
	if m == nil {
		return &record.LogEntry{
			ID:      record.NewID(),
			Level:   record.LevelUnknown,
			Tag:     "unparsed",
			Message: raw,
			Raw:     raw,
		}
	}

	month, day, clock, pidStr, tidStr, levelCh, tag, message := m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8]
	timestampString := month + "-" + day + " " + clock

	entry := &record.LogEntry{
		ID:              record.NewID(),
		TimestampString: timestampString,
		Level:           parseLevel(levelCh),
		Tag:             tag,
		Message:         message,
		Raw:             raw,
	}

	if pid, err := strconv.Atoi(pidStr); err == nil {
		entry.PID = &pid
	}
	if tid, err := strconv.Atoi(tidStr); err == nil {
		entry.TID = &tid
	}

	year := time.Now().Year()
	if p.Year != nil {
		year = p.Year()
	}
	if ms, ok := epochMillis(year, month, day, clock); ok {
		entry.Timestamp = &ms
	}

	return entry
}

func parseLevel(ch string) record.Level {
	switch record.Level(ch) {
	case record.LevelVerbose, record.LevelDebug, record.LevelInfo, record.LevelWarn,
		record.LevelError, record.LevelFatal, record.LevelAssert:
		return record.Level(ch)
	default:
		return record.LevelUnknown
	}
}

func epochMillis(year int, month, day, clock string) (int64, bool) {
	layout := "2006-01-02 15:04:05.000"
	value := fmt.Sprintf("%04d-%s-%s %s", year, month, day, clock)
	t, err := time.ParseInLocation(layout, value, time.Local)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}
