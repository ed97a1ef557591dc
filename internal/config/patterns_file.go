package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/brennhill/snapo-core/internal/redaction"
)

// patternsFile mirrors _teacher_ref/redaction/redaction.go's
// RedactionConfig JSON shape ({"patterns": [{"name","pattern","replacement"}]}),
// generalized here from an MCP-response concern to HTTP header/body
// redaction, but kept field-for-field identical so existing pattern files
// from that convention still load unchanged.
type patternsFile struct {
	Patterns []patternEntry `json:"patterns"`
}

type patternEntry struct {
	Name        string `json:"name"`
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement,omitempty"`
}

// LoadRedactionPatterns reads path as JSON and returns its patterns as
// redaction.Pattern values. Unlike the teacher's loadConfig (which swallows
// read/parse errors and silently falls back to built-ins only), this
// returns the error: a config file named explicitly by the operator that
// fails to load should be reported at startup/reload time rather than
// silently produce a less-redacted engine. Per-entry invalid regexes are
// still skipped silently by redaction.New itself, matching the teacher.
func LoadRedactionPatterns(path string) ([]redaction.Pattern, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator-supplied config, not request input
	if err != nil {
		return nil, fmt.Errorf("config: reading redaction patterns file %s: %w", path, err)
	}

	var pf patternsFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("config: parsing redaction patterns file %s: %w", path, err)
	}

	out := make([]redaction.Pattern, 0, len(pf.Patterns))
	for _, p := range pf.Patterns {
		out = append(out, redaction.Pattern{
			Name:        p.Name,
			Regex:       p.Pattern,
			Replacement: p.Replacement,
		})
	}
	return out, nil
}
