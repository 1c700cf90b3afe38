// Package categorize classifies URLs against an ordered rule set.
package categorize

import (
	"regexp"
	"strings"
)

// Matcher tests whether a URL matches one wildcard pattern in full.
type Matcher struct {
	pattern string
	re      *regexp.Regexp

	// literal segments between wildcards; used only when the pattern is not
	// valid UTF-8 and cannot be expressed as a regexp.
	segments []string
}

// Compile turns a wildcard pattern into a Matcher. `*` matches any run of
// characters, including none and including `/`. Every other character is
// literal, and the whole URL must match. Compile never fails: any text is a
// valid pattern.
func Compile(pattern string) *Matcher {
	segments := strings.Split(pattern, "*")

	quoted := make([]string, len(segments))
	for i, s := range segments {
		quoted[i] = regexp.QuoteMeta(s)
	}

	// (?s) so that `*` also spans newlines.
	re, err := regexp.Compile(`(?s)\A` + strings.Join(quoted, ".*") + `\z`)
	if err != nil {
		return &Matcher{pattern: pattern, segments: segments}
	}
	return &Matcher{pattern: pattern, re: re}
}

// Pattern returns the source pattern.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Match reports whether rawURL matches the pattern from start to end.
func (m *Matcher) Match(rawURL string) bool {
	if m.re != nil {
		return m.re.MatchString(rawURL)
	}
	return matchSegments(m.segments, rawURL)
}

// matchSegments is a byte-wise wildcard match over the literal segments of
// a pattern split on `*`.
func matchSegments(segments []string, s string) bool {
	if len(segments) == 1 {
		return s == segments[0]
	}

	first, last := segments[0], segments[len(segments)-1]
	if len(s) < len(first)+len(last) || !strings.HasPrefix(s, first) || !strings.HasSuffix(s, last) {
		return false
	}

	rest := s[len(first) : len(s)-len(last)]
	for _, seg := range segments[1 : len(segments)-1] {
		i := strings.Index(rest, seg)
		if i < 0 {
			return false
		}
		rest = rest[i+len(seg):]
	}
	return true
}
