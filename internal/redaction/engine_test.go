package redaction

import (
	"testing"

	"github.com/brennhill/snapo-core/internal/record"
)

func TestDropsHeaderCaseInsensitive(t *testing.T) {
	e := New()
	for _, name := range []string{"authorization", "AUTHORIZATION", "Cookie", "set-cookie"} {
		if !e.DropsHeader(name) {
			t.Fatalf("expected %q to be dropped", name)
		}
	}
	if e.DropsHeader("Content-Type") {
		t.Fatal("did not expect Content-Type to be dropped")
	}
}

func TestFilterHeaderPairsRemovesOnlyScrubbed(t *testing.T) {
	e := New()
	pairs := []record.HeaderPair{
		{Name: "Authorization", Value: "Bearer xyz"},
		{Name: "Content-Type", Value: "application/json"},
		{Name: "Cookie", Value: "sid=abc"},
	}
	out := e.FilterHeaderPairs(pairs)
	if len(out) != 1 || out[0].Name != "Content-Type" {
		t.Fatalf("expected only Content-Type to survive, got %#v", out)
	}
}

func TestRedactBuiltinPatterns(t *testing.T) {
	e := New()
	cases := map[string]string{
		"key is AKIA1234567890ABCDEF for aws":       "[REDACTED:aws-key]",
		"Authorization: Bearer abc123.def456-_~+/=": "[REDACTED:bearer-token]",
		"ssn 123-45-6789 on file":                   "[REDACTED:ssn]",
	}
	for input, want := range cases {
		got := e.Redact(input)
		if !contains(got, want) {
			t.Fatalf("Redact(%q) = %q, expected to contain %q", input, got, want)
		}
	}
}

func TestRedactCreditCardValidatesLuhn(t *testing.T) {
	e := New()
	valid := "4111 1111 1111 1111"   // passes Luhn
	invalid := "4111 1111 1111 1112" // fails Luhn

	if got := e.Redact(valid); !contains(got, "[REDACTED:credit-card]") {
		t.Fatalf("expected valid card number to be redacted, got %q", got)
	}
	if got := e.Redact(invalid); contains(got, "[REDACTED:credit-card]") {
		t.Fatalf("expected Luhn-invalid number to survive unredacted, got %q", got)
	}
}

func TestRedactEmptyInput(t *testing.T) {
	e := New()
	if got := e.Redact(""); got != "" {
		t.Fatalf("expected empty string passthrough, got %q", got)
	}
}

func TestExtraPatternWithInvalidRegexIsSkipped(t *testing.T) {
	e := New(Pattern{Name: "broken", Regex: "(unclosed"})
	// Should not panic and built-ins should still work.
	got := e.Redact("AKIA1234567890ABCDEF")
	if !contains(got, "[REDACTED:aws-key]") {
		t.Fatalf("expected built-ins to still apply, got %q", got)
	}
}

func TestExtraPatternCustomReplacement(t *testing.T) {
	e := New(Pattern{Name: "internal-id", Regex: `ID-\d+`, Replacement: "[ID]"})
	got := e.Redact("reference ID-4821 attached")
	if got != "reference [ID] attached" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && indexOf(s, sub) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
