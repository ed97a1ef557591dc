package logfilter

import (
	"regexp"
	"sync"
)

// regexCache compiles and memoizes regexes keyed by (pattern,
// caseSensitive), matching spec.md §4.6's "regex compilation is cached by
// (pattern, caseSensitive)" rule. Grounded on the teacher's
// compiledPattern table in redaction.go, generalized from a fixed
// startup-compiled list to a dynamic cache since filter patterns are
// user-configured and can change at runtime.
type regexCache struct {
	mu    sync.Mutex
	byKey map[cacheKey]*regexp.Regexp
}

type cacheKey struct {
	pattern       string
	caseSensitive bool
}

func newRegexCache() *regexCache {
	return &regexCache{byKey: make(map[cacheKey]*regexp.Regexp)}
}

// get returns the compiled regex for (pattern, caseSensitive), compiling
// and caching it on first use. Compilation failures are not cached, so a
// pattern fixed by a later configuration update recompiles cleanly.
func (c *regexCache) get(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	key := cacheKey{pattern: pattern, caseSensitive: caseSensitive}

	c.mu.Lock()
	if re, ok := c.byKey[key]; ok {
		c.mu.Unlock()
		return re, nil
	}
	c.mu.Unlock()

	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + pattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.byKey[key] = re
	c.mu.Unlock()
	return re, nil
}
