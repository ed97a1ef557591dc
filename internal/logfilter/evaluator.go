package logfilter

import (
	"regexp"
	"unicode/utf16"

	"github.com/brennhill/snapo-core/internal/record"
)

const (
	rowAlpha       = 0.08
	highlightAlpha = 0.35
)

// Evaluator applies Snapshot configurations to log entries. It is safe for
// concurrent use; the only mutable state is the regex cache, which guards
// itself.
type Evaluator struct {
	cache   *regexCache
	onError func(record.CoreError)
}

// NewEvaluator creates an Evaluator. onError, if non-nil, receives a
// regexFailure CoreError for every clause that fails to compile; such a
// clause is treated as vacuously true ("clause skipped") rather than
// aborting evaluation.
func NewEvaluator(onError func(record.CoreError)) *Evaluator {
	return &Evaluator{cache: newRegexCache(), onError: onError}
}

// Evaluate decides accept/reject for entry under snap and, when accepted,
// computes its highlight ranges and blended colors (spec.md §4.6).
func (e *Evaluator) Evaluate(entry *record.LogEntry, snap Snapshot) Rendered {
	out := Rendered{ID: entry.ID, Entry: entry, FieldHighlights: map[record.Field][]HighlightRange{}}

	if snap.QuickFilter != nil && snap.QuickFilter.Pattern != "" {
		re, err := e.cache.get(snap.QuickFilter.Pattern, false)
		if err != nil {
			e.reportRegexFailure(snap.QuickFilter.Pattern, err)
		} else if !re.MatchString(entry.Raw) {
			return out
		}
	}

	if len(snap.Filters) == 0 {
		out.Accepted = true
		return out
	}

	var contributingColors []Color

	for _, column := range snap.Filters {
		columnSatisfied := false

		for _, f := range column {
			if !f.Enabled {
				continue
			}
			passed := e.filterPasses(f, entry, &out)
			if !passed {
				continue
			}

			if f.HighlightEnabled {
				contributingColors = append(contributingColors, f.Color)
			}

			switch f.Action {
			case ActionExclude:
				return Rendered{ID: entry.ID, Entry: entry, FieldHighlights: map[record.Field][]HighlightRange{}}
			case ActionInclude:
				columnSatisfied = true
			case ActionNone:
				// contributes highlights only; does not satisfy the column
			}
		}

		if !columnSatisfied {
			return Rendered{ID: entry.ID, Entry: entry, FieldHighlights: map[record.Field][]HighlightRange{}}
		}
	}

	out.Accepted = true
	if len(contributingColors) > 0 {
		blend := blendRow(contributingColors)
		out.RowHighlightColor = &blend
	}
	return out
}

// filterPasses evaluates one filter's AND-of-clauses and, as a side
// effect, accumulates highlight ranges into out when the filter passes
// and HighlightEnabled is set.
func (e *Evaluator) filterPasses(f Filter, entry *record.LogEntry, out *Rendered) bool {
	allMatch := true
	var toHighlight []clauseMatch

	for _, clause := range f.Condition {
		if clause.Pattern == "" {
			continue
		}
		re, err := e.cache.get(clause.Pattern, clause.CaseSensitive)
		if err != nil {
			e.reportRegexFailure(clause.Pattern, err)
			continue
		}

		value := entry.Value(clause.Field)
		matched := re.MatchString(value)
		effective := matched != clause.Inverted // XOR with inverted
		if !effective {
			allMatch = false
			continue
		}
		if !clause.Inverted {
			toHighlight = append(toHighlight, clauseMatch{clause: clause, re: re})
		}
	}

	if !allMatch {
		return false
	}

	if f.HighlightEnabled {
		for _, m := range toHighlight {
			e.accumulateHighlights(m.clause, m.re, entry, f.Color, out)
		}
	}
	return true
}

type clauseMatch struct {
	clause Clause
	re     *regexp.Regexp
}

func (e *Evaluator) reportRegexFailure(pattern string, err error) {
	if e.onError != nil {
		e.onError(record.RegexFailure(pattern, err.Error()))
	}
}

// accumulateHighlights finds every match span for clause's regex and
// records it against the target field(s): the clause's own field, or —
// when the clause targets the synthetic raw field — every field, per
// spec.md §4.6's reprojection rule.
func (e *Evaluator) accumulateHighlights(clause Clause, re *regexp.Regexp, entry *record.LogEntry, color Color, out *Rendered) {
	fields := []record.Field{clause.Field}
	if clause.Field == record.FieldRaw {
		fields = record.AllFields
	}

	for _, field := range fields {
		value := entry.Value(field)
		for _, span := range re.FindAllStringIndex(value, -1) {
			start := utf16Offset(value, span[0])
			end := utf16Offset(value, span[1])
			out.FieldHighlights[field] = append(out.FieldHighlights[field], HighlightRange{
				Range: Range{Start: start, End: end},
				Color: RGBA{R: color.R, G: color.G, B: color.B, A: scaleAlpha(highlightAlpha)},
			})
		}
	}
}

// utf16Offset converts a byte offset into s to its UTF-16 code-unit
// offset, per spec.md §3's "normalized to UTF-16 code-unit offsets" rule.
func utf16Offset(s string, byteOffset int) int {
	units := 0
	for i, r := range s {
		if i >= byteOffset {
			break
		}
		units += len(utf16.Encode([]rune{r}))
	}
	return units
}

func scaleAlpha(a float64) uint8 {
	return uint8(a * 255)
}

// blendRow averages contributing filter colors, each weighted at
// rowAlpha, into a single row highlight color (spec.md §4.6).
func blendRow(colors []Color) RGBA {
	var rSum, gSum, bSum int
	for _, c := range colors {
		rSum += int(c.R)
		gSum += int(c.G)
		bSum += int(c.B)
	}
	n := len(colors)
	return RGBA{
		R: uint8(rSum / n),
		G: uint8(gSum / n),
		B: uint8(bSum / n),
		A: scaleAlpha(rowAlpha),
	}
}
