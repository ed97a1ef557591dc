package logfilter

import (
	"testing"

	"github.com/brennhill/snapo-core/internal/record"
)

func entry(level record.Level, tag, message string) *record.LogEntry {
	raw := string(level) + " " + tag + ": " + message
	return &record.LogEntry{ID: "e1", Level: level, Tag: tag, Message: message, Raw: raw}
}

// TestScenarioS5 is spec.md §8's literal DNF scenario: columns
// [[tag=Auth]], [level in {E,W} OR message~timeout].
func TestScenarioS5FilterDNF(t *testing.T) {
	snap := Snapshot{
		Filters: []Column{
			{
				{ID: "tag-auth", Enabled: true, Action: ActionInclude, Condition: []Clause{
					{Field: record.FieldTag, Pattern: "^Auth$", CaseSensitive: true},
				}},
			},
			{
				{ID: "level-ew", Enabled: true, Action: ActionInclude, Condition: []Clause{
					{Field: record.FieldLevel, Pattern: "^(E|W)$", CaseSensitive: true},
				}},
				{ID: "msg-timeout", Enabled: true, Action: ActionInclude, Condition: []Clause{
					{Field: record.FieldMessage, Pattern: "timeout", CaseSensitive: false},
				}},
			},
		},
	}
	ev := NewEvaluator(nil)

	accepted1 := ev.Evaluate(entry(record.LevelError, "Auth", "ok"), snap)
	if !accepted1.Accepted {
		t.Fatal("expected {level=E,tag=Auth,message=ok} to be accepted")
	}

	accepted2 := ev.Evaluate(entry(record.LevelInfo, "Auth", "contains timeout"), snap)
	if !accepted2.Accepted {
		t.Fatal("expected {level=I,tag=Auth,message contains timeout} to be accepted")
	}

	rejected := ev.Evaluate(entry(record.LevelInfo, "Auth", "ok"), snap)
	if rejected.Accepted {
		t.Fatal("expected {level=I,tag=Auth,message=ok} to be rejected")
	}
}

func TestEmptyFiltersAcceptEverything(t *testing.T) {
	ev := NewEvaluator(nil)
	out := ev.Evaluate(entry(record.LevelInfo, "Any", "anything"), Snapshot{})
	if !out.Accepted {
		t.Fatal("expected acceptance with zero columns")
	}
	if len(out.FieldHighlights) != 0 {
		t.Fatalf("expected no highlights, got %#v", out.FieldHighlights)
	}
}

func TestQuickFilterRejectsNonMatchingRaw(t *testing.T) {
	ev := NewEvaluator(nil)
	snap := Snapshot{QuickFilter: &QuickFilter{Pattern: "needle"}}

	rejected := ev.Evaluate(entry(record.LevelInfo, "Tag", "haystack"), snap)
	if rejected.Accepted {
		t.Fatal("expected rejection: raw does not contain needle")
	}

	accepted := ev.Evaluate(entry(record.LevelInfo, "Tag", "has a needle in it"), snap)
	if !accepted.Accepted {
		t.Fatal("expected acceptance: raw contains needle")
	}
}

func TestExcludeFilterRejectsGlobally(t *testing.T) {
	ev := NewEvaluator(nil)
	snap := Snapshot{
		Filters: []Column{
			{
				{ID: "drop-debug", Enabled: true, Action: ActionExclude, Condition: []Clause{
					{Field: record.FieldLevel, Pattern: "^D$", CaseSensitive: true},
				}},
				{ID: "catch-all", Enabled: true, Action: ActionInclude, Condition: nil},
			},
		},
	}

	debugEntry := entry(record.LevelDebug, "Tag", "msg")
	out := ev.Evaluate(debugEntry, snap)
	if out.Accepted {
		t.Fatal("expected debug-level entry to be excluded")
	}

	infoEntry := entry(record.LevelInfo, "Tag", "msg")
	out2 := ev.Evaluate(infoEntry, snap)
	if !out2.Accepted {
		t.Fatal("expected info-level entry to pass via catch-all include")
	}
}

func TestRawClauseReprojectsHighlightsToEveryField(t *testing.T) {
	ev := NewEvaluator(nil)
	snap := Snapshot{
		Filters: []Column{
			{
				{ID: "raw-auth", Enabled: true, Action: ActionInclude, HighlightEnabled: true, Color: Color{R: 10, G: 20, B: 30}, Condition: []Clause{
					{Field: record.FieldRaw, Pattern: "Auth", CaseSensitive: true},
				}},
			},
		},
	}

	out := ev.Evaluate(entry(record.LevelInfo, "Auth", "Auth check"), snap)
	if !out.Accepted {
		t.Fatal("expected acceptance")
	}
	if len(out.FieldHighlights[record.FieldTag]) == 0 {
		t.Fatal("expected a reprojected highlight on the tag field")
	}
	if len(out.FieldHighlights[record.FieldMessage]) == 0 {
		t.Fatal("expected a reprojected highlight on the message field")
	}
	if out.RowHighlightColor == nil {
		t.Fatal("expected a row highlight color to be computed")
	}
}

func TestInvertedClauseFlipsMatch(t *testing.T) {
	ev := NewEvaluator(nil)
	snap := Snapshot{
		Filters: []Column{
			{
				{ID: "not-auth", Enabled: true, Action: ActionInclude, Condition: []Clause{
					{Field: record.FieldTag, Pattern: "Auth", Inverted: true, CaseSensitive: true},
				}},
			},
		},
	}

	authEntry := entry(record.LevelInfo, "Auth", "msg")
	if ev.Evaluate(authEntry, snap).Accepted {
		t.Fatal("expected Auth tag to be rejected by inverted clause")
	}

	otherEntry := entry(record.LevelInfo, "Billing", "msg")
	if !ev.Evaluate(otherEntry, snap).Accepted {
		t.Fatal("expected non-Auth tag to be accepted by inverted clause")
	}
}

func TestRegexFailureSkipsClauseAndReportsError(t *testing.T) {
	var errs []record.CoreError
	ev := NewEvaluator(func(e record.CoreError) { errs = append(errs, e) })
	snap := Snapshot{
		Filters: []Column{
			{
				{ID: "bad-pattern", Enabled: true, Action: ActionInclude, Condition: []Clause{
					{Field: record.FieldTag, Pattern: "(unclosed", CaseSensitive: true},
				}},
			},
		},
	}

	out := ev.Evaluate(entry(record.LevelInfo, "Auth", "msg"), snap)
	if !out.Accepted {
		t.Fatal("expected a skipped clause to be vacuously true, so the filter passes")
	}
	if len(errs) != 1 || errs[0].Kind != record.ErrRegexFailure {
		t.Fatalf("expected one regexFailure error, got %#v", errs)
	}
}
