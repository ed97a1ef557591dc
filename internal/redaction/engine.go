// Package redaction scrubs sensitive HTTP headers and credential-shaped
// body fragments before records leave the process — HAR export (spec.md
// §4.8's "headers drop Authorization/Cookie/Set-Cookie" rule) and any
// other sink that shouldn't see raw secrets.
//
// Adapted nearly verbatim from _teacher_ref/redaction/redaction.go's
// compiled-pattern-table Engine, repurposed from "scrub MCP tool JSON
// responses" to "scrub HTTP headers and body content" (SPEC_FULL §3).
// Uses RE2 (Go's regexp) for guaranteed linear-time matching, same
// rationale the teacher gives: patterns run against attacker-influenced
// text, so backtracking engines are not an option.
package redaction

import (
	"net/textproto"
	"regexp"
	"strings"

	"github.com/brennhill/snapo-core/internal/record"
)

// Pattern is one body-content redaction rule.
type Pattern struct {
	Name        string
	Regex       string
	Replacement string
	Validate    func(match string) bool
}

type compiledPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
	validate    func(string) bool
}

// Engine applies header drops and compiled body-content patterns. Safe for
// concurrent use after construction — it holds no mutable state.
type Engine struct {
	dropHeaders map[string]struct{}
	patterns    []compiledPattern
}

// defaultDropHeaders are stripped from every HAR header list, per spec.md
// §4.8: request headers drop Authorization/Cookie, response headers drop
// Set-Cookie. Dropping all three from both directions is strictly safer
// and matches how a capturing proxy should behave — a credential header
// echoed back by a misbehaving server is just as sensitive as one sent.
var defaultDropHeaders = []string{"Authorization", "Cookie", "Set-Cookie"}

// builtinPatterns are the teacher's always-active credential-shaped
// patterns (redaction.go's builtinPatterns table), reused verbatim for
// body-content scrubbing.
var builtinPatterns = []struct {
	name     string
	pattern  string
	validate func(string) bool
}{
	{name: "aws-key", pattern: `AKIA[0-9A-Z]{16}`},
	{name: "bearer-token", pattern: `Bearer [A-Za-z0-9\-._~+/]+=*`},
	{name: "basic-auth", pattern: `Basic [A-Za-z0-9+/]+=*`},
	{name: "jwt", pattern: `eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+`},
	{name: "github-pat", pattern: `(ghp_[A-Za-z0-9]{36,}|github_pat_[A-Za-z0-9_]{36,})`},
	{name: "private-key", pattern: `-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`},
	{name: "credit-card", pattern: `\b([0-9]{4}[- ]?[0-9]{4}[- ]?[0-9]{4}[- ]?[0-9]{4})\b`, validate: luhnValidateMatch},
	{name: "ssn", pattern: `\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`},
	{name: "api-key", pattern: `(?i)(api[_-]?key|apikey|secret[_-]?key)\s*[:=]\s*\S+`},
	{name: "session-cookie", pattern: `(?i)(session|sid|token)\s*=\s*[A-Za-z0-9+/=_-]{16,}`},
}

// New builds an Engine with the built-in header-drop set and body-content
// patterns, plus any extra caller-supplied patterns. Invalid regexes in
// extra are skipped silently, matching the teacher's loadConfig behavior.
func New(extra ...Pattern) *Engine {
	e := &Engine{dropHeaders: make(map[string]struct{}, len(defaultDropHeaders))}
	for _, h := range defaultDropHeaders {
		e.dropHeaders[textproto.CanonicalMIMEHeaderKey(h)] = struct{}{}
	}

	for _, bp := range builtinPatterns {
		re, err := regexp.Compile(bp.pattern)
		if err != nil {
			continue
		}
		e.patterns = append(e.patterns, compiledPattern{
			name:        bp.name,
			regex:       re,
			replacement: "[REDACTED:" + bp.name + "]",
			validate:    bp.validate,
		})
	}

	for _, p := range extra {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			continue
		}
		replacement := p.Replacement
		if replacement == "" {
			replacement = "[REDACTED:" + p.Name + "]"
		}
		e.patterns = append(e.patterns, compiledPattern{
			name:        p.Name,
			regex:       re,
			replacement: replacement,
			validate:    p.Validate,
		})
	}
	return e
}

// DropsHeader reports whether name (any case) is in the scrub list.
func (e *Engine) DropsHeader(name string) bool {
	_, ok := e.dropHeaders[textproto.CanonicalMIMEHeaderKey(name)]
	return ok
}

// FilterHeaders returns pairs with every scrubbed header name removed,
// preserving order, for HAR's request/response header lists.
func (e *Engine) FilterHeaders(pairs [][2]string) [][2]string {
	out := make([][2]string, 0, len(pairs))
	for _, p := range pairs {
		if e.DropsHeader(p[0]) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterHeaderPairs is FilterHeaders for record.HeaderPair, the shape HAR
// export and the interceptors actually carry headers in.
func (e *Engine) FilterHeaderPairs(pairs []record.HeaderPair) []record.HeaderPair {
	out := make([]record.HeaderPair, 0, len(pairs))
	for _, p := range pairs {
		if e.DropsHeader(p.Name) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Redact scrubs credential-shaped fragments out of body text. Empty input
// returns empty input without allocating.
func (e *Engine) Redact(input string) string {
	if input == "" {
		return ""
	}
	result := input
	for _, p := range e.patterns {
		if p.validate != nil {
			result = p.regex.ReplaceAllStringFunc(result, func(match string) string {
				if p.validate(match) {
					return p.replacement
				}
				return match
			})
		} else {
			result = p.regex.ReplaceAllString(result, p.replacement)
		}
	}
	return result
}

func luhnValid(number string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)

	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	alt := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := int(digits[i] - '0')
		if alt {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alt = !alt
	}
	return sum%10 == 0
}

func luhnValidateMatch(match string) bool {
	return luhnValid(match)
}
