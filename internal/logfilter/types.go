// Package logfilter implements the DNF (disjunction-of-conjunctions) log
// filter evaluator described in spec.md §4.6: given a log entry and an
// immutable configuration snapshot, it decides accept/reject and computes
// the per-field highlight ranges and blended colors a renderer needs.
//
// Grounded on _teacher_ref/redaction/redaction.go's compiled-pattern
// table shape, adapted from "a fixed built-in pattern list compiled once
// at startup" to "an LRU-free cache of dynamically configured
// (pattern, caseSensitive) regexes, since filter configuration can change
// at runtime (spec.md §4.7's refresh_configuration).
package logfilter

import "github.com/brennhill/snapo-core/internal/record"

// Action discriminates how a passing filter affects column/entry
// acceptance (spec.md §3 "Filter model").
type Action string

const (
	ActionInclude Action = "include"
	ActionExclude Action = "exclude"
	ActionNone    Action = "none"
)

// Clause is one field/pattern test. A clause with an empty Pattern is
// vacuously true and never contributes to the AND or to highlights.
type Clause struct {
	Field         record.Field
	Pattern       string
	Inverted      bool
	CaseSensitive bool
}

// Color is an opaque RGB filter color; alpha is applied by the evaluator
// per spec.md §4.6's row/highlight blend rules, never stored on the filter.
type Color struct {
	R, G, B uint8
}

// RGBA is a color with an evaluator-assigned alpha.
type RGBA struct {
	R, G, B, A uint8
}

// Filter is one named rule: an AND of Condition clauses, gating
// inclusion/exclusion and optionally contributing highlight ranges.
type Filter struct {
	ID               string
	Enabled          bool
	Action           Action
	HighlightEnabled bool
	Color            Color
	Condition        []Clause
}

// Column is an OR of filters; columns are ANDed together (spec.md §3).
type Column []Filter

// QuickFilter is a single case-insensitive pattern applied to the raw
// field before column evaluation.
type QuickFilter struct {
	Pattern string
}

// Snapshot is the immutable configuration a log entry is evaluated
// against.
type Snapshot struct {
	Filters     []Column
	QuickFilter *QuickFilter
}

// Range is a UTF-16 code-unit offset pair into a field's string form.
type Range struct {
	Start, End int
}

// HighlightRange is one matched span with the color it should render in.
type HighlightRange struct {
	Range Range
	Color RGBA
}

// Rendered is the evaluator's output for one entry (spec.md §3 "Rendered
// entry").
type Rendered struct {
	ID                string
	Entry             *record.LogEntry
	Accepted          bool
	RowHighlightColor *RGBA
	FieldHighlights   map[record.Field][]HighlightRange
}
