package zipfilter

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// MatchType selects how a pattern is compared against a candidate name.
type MatchType string

const (
	StartsWith MatchType = "starts_with"
	Contains   MatchType = "contains"
	EndsWith   MatchType = "ends_with"
	Regex      MatchType = "regex"
)

// MatchTypes lists every supported match type in declaration order.
var MatchTypes = []MatchType{StartsWith, Contains, EndsWith, Regex}

// ParseMatchType converts s into a MatchType.
func ParseMatchType(s string) (MatchType, error) {
	mt := MatchType(s)
	if lo.Contains(MatchTypes, mt) {
		return mt, nil
	}
	return "", &ConfigurationError{
		Field: "match_type",
		Value: s,
		Valid: lo.Map(MatchTypes, func(m MatchType, _ int) string { return string(m) }),
	}
}

// Matcher evaluates a single pattern against candidate names.
type Matcher struct {
	matchType     MatchType
	pattern       string
	caseSensitive bool
	re            *regexp.Regexp
}

// NewMatcher builds a matcher. Unless caseSensitive is set the pattern is
// lowercased once here and every candidate is lowercased before comparison.
func NewMatcher(matchType MatchType, pattern string, caseSensitive bool) (*Matcher, error) {
	if _, err := ParseMatchType(string(matchType)); err != nil {
		return nil, err
	}

	m := &Matcher{
		matchType:     matchType,
		pattern:       pattern,
		caseSensitive: caseSensitive,
	}
	if !caseSensitive {
		m.pattern = strings.ToLower(pattern)
	}

	if matchType == Regex {
		// Lowercasing the expression text would turn classes like \D into \d,
		// so case folding for regexes is done with the (?i) flag instead.
		expr := pattern
		if !caseSensitive {
			expr = "(?i)" + pattern
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, &ConfigurationError{Field: "pattern", Value: pattern, Err: err}
		}
		m.re = re
	}

	return m, nil
}

// Match reports whether candidate satisfies the pattern.
func (m *Matcher) Match(candidate string) bool {
	if !m.caseSensitive {
		candidate = strings.ToLower(candidate)
	}

	switch m.matchType {
	case StartsWith:
		return strings.HasPrefix(candidate, m.pattern)
	case Contains:
		return strings.Contains(candidate, m.pattern)
	case EndsWith:
		return strings.HasSuffix(candidate, m.pattern)
	case Regex:
		return m.re.MatchString(candidate)
	default:
		return false
	}
}

// Type returns the match type.
func (m *Matcher) Type() MatchType { return m.matchType }

// Pattern returns the pattern as it is compared, i.e. after case folding.
func (m *Matcher) Pattern() string { return m.pattern }

// CaseSensitive reports whether candidates are compared without folding.
func (m *Matcher) CaseSensitive() bool { return m.caseSensitive }
