// Package whitelist compiles glob/FQCN patterns into matchers usable
// against normalized paths, fully-qualified class names, and symbols.
//
// Path matching is built on doublestar (the same glob engine the wider
// toolset uses for recursive file lookups), so "**" and "*" behave
// identically to a conventional doublestar pattern. FQCN shorthand layers
// a dotted-path translation on top: a pattern with dots and no slash is
// additionally compiled against a slash-normalized form of itself, with
// "..*" mapped to "/**" and ".*" mapped to "/*".
package whitelist

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// compiledPattern is one whitelist entry reduced to the forms it is
// tested against.
type compiledPattern struct {
	// raw is the original pattern, used as the doublestar pattern after
	// normalization (leading "/" stripped, backslashes converted).
	raw string
	// anchored is true when the original pattern had a leading "/".
	anchored bool
	// fqcnSlash is the dotted-to-slash translation of raw, non-empty
	// only when raw contains a "." and no "/".
	fqcnSlash string
}

// Matcher tests paths, FQCNs, and symbols against a compiled pattern set.
// A zero-value Matcher (or one built from an empty pattern list) matches
// nothing.
type Matcher struct {
	patterns []compiledPattern
}

// Compile builds a Matcher from a set of glob/FQCN patterns. Blank
// patterns are skipped. An empty or all-blank input yields a Matcher
// whose queries always return false.
func Compile(patterns []string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cp := compiledPattern{raw: p}
		if strings.HasPrefix(p, "/") {
			cp.anchored = true
			cp.raw = strings.TrimPrefix(p, "/")
		}
		if strings.Contains(p, ".") && !strings.ContainsAny(p, "/\\") {
			cp.fqcnSlash = fqcnToSlash(p)
		}
		m.patterns = append(m.patterns, cp)
	}
	return m
}

// fqcnToSlash translates an FQCN shorthand pattern into a doublestar glob:
// ".." before a wildcard segment means "any subpackage" ("/**"), a bare
// "." before a wildcard means "single segment" ("/*"), and any other "."
// is a plain package separator ("/").
func fqcnToSlash(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "/")
	pattern = strings.ReplaceAll(pattern, "..*", "\x00DEEP\x00")
	pattern = strings.ReplaceAll(pattern, ".*", "\x00STAR\x00")
	pattern = strings.ReplaceAll(pattern, ".", "/")
	pattern = strings.ReplaceAll(pattern, "\x00DEEP\x00", "/**")
	pattern = strings.ReplaceAll(pattern, "\x00STAR\x00", "/*")
	return pattern
}

// NormalizePath converts backslashes to forward slashes and prepends a
// leading "/", the canonical form every match is performed against.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// MatchesPath reports whether p (after normalization) matches any
// compiled pattern. A blank p never matches.
func (m *Matcher) MatchesPath(p string) bool {
	if m == nil || strings.TrimSpace(p) == "" {
		return false
	}
	norm := NormalizePath(p)
	trimmed := strings.TrimPrefix(norm, "/")

	for _, cp := range m.patterns {
		if cp.anchored {
			if matchGlob(cp.raw, trimmed) {
				return true
			}
			continue
		}
		// Unanchored: match may begin after any prefix directory, so try
		// the pattern both at the root and with a "**/" prefix forced on.
		if matchGlob(cp.raw, trimmed) {
			return true
		}
		if matchGlob("**/"+cp.raw, trimmed) {
			return true
		}
	}
	return false
}

// MatchesFqcnOrSymbol reports whether v matches any compiled pattern.
// A pattern in FQCN shorthand is tested against the slash-normalized form
// of v, so "." separates segments and ".*" never crosses one; any other
// pattern is tested as a plain glob against v as given.
func (m *Matcher) MatchesFqcnOrSymbol(v string) bool {
	if m == nil || strings.TrimSpace(v) == "" {
		return false
	}
	for _, cp := range m.patterns {
		// Plain glob over the literal string, for patterns that are not
		// FQCN shorthand (a dotted glob's "*" would also match dots).
		if cp.fqcnSlash == "" && matchGlob(cp.raw, v) {
			return true
		}
		if cp.fqcnSlash != "" {
			slashV := strings.ReplaceAll(v, ".", "/")
			if matchGlob(cp.fqcnSlash, slashV) {
				return true
			}
		}
	}
	return false
}

// Empty reports whether the matcher has no compiled patterns, i.e. every
// query against it returns false.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}

// Validate reports every pattern in patterns that doublestar cannot parse
// as a glob, so a config typo surfaces at load time instead of silently
// matching nothing forever.
func Validate(patterns []string) []string {
	var bad []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		raw := strings.TrimPrefix(p, "/")
		if strings.Contains(raw, ".") && !strings.ContainsAny(raw, "/\\") {
			raw = fqcnToSlash(raw)
		}
		if !doublestar.ValidatePattern(raw) {
			bad = append(bad, p)
		}
	}
	return bad
}

// matchGlob evaluates a single doublestar pattern, treating a compile
// error as "no match" rather than panicking on user-supplied config.
func matchGlob(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	if err != nil {
		return false
	}
	return ok
}
