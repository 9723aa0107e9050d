package ingest

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFileName is looked up at the root of an ingested directory.
const IgnoreFileName = ".raglabignore"

// IgnoreRule is one parsed pattern, gitignore-style: trailing slash
// means directory-only, leading "!" negates, leading "/" anchors to
// the root.
type IgnoreRule struct {
	Pattern string
	IsDir   bool
	Negated bool
	MatchFn func(string) bool
}

// IgnoreMatcher decides which files a directory walk skips.
type IgnoreMatcher struct {
	rules []IgnoreRule
}

func NewIgnoreMatcher() *IgnoreMatcher {
	return &IgnoreMatcher{rules: make([]IgnoreRule, 0)}
}

// LoadIgnoreFile reads root's ignore file if present. A missing file
// is not an error.
func LoadIgnoreFile(root string) (*IgnoreMatcher, error) {
	matcher := NewIgnoreMatcher()
	content, err := os.ReadFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return matcher, nil
		}
		return nil, err
	}
	if err := matcher.Parse(content); err != nil {
		return nil, err
	}
	return matcher, nil
}

// Parse adds the patterns from an ignore file body.
func (m *IgnoreMatcher) Parse(content []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.AddPattern(line)
	}
	return scanner.Err()
}

// AddPattern adds a single gitignore-style pattern.
func (m *IgnoreMatcher) AddPattern(pattern string) {
	rule := IgnoreRule{Pattern: pattern}

	if strings.HasPrefix(rule.Pattern, "!") {
		rule.Negated = true
		rule.Pattern = strings.TrimPrefix(rule.Pattern, "!")
	}
	if strings.HasSuffix(rule.Pattern, "/") {
		rule.IsDir = true
		rule.Pattern = strings.TrimSuffix(rule.Pattern, "/")
	}

	if strings.HasPrefix(rule.Pattern, "/") {
		rule.Pattern = strings.TrimPrefix(rule.Pattern, "/")
		rule.MatchFn = func(p string) func(string) bool {
			return func(path string) bool {
				matched, _ := doublestar.Match(p, path)
				return matched
			}
		}(rule.Pattern)
	} else {
		rule.MatchFn = func(p string) func(string) bool {
			return func(path string) bool {
				matched, _ := doublestar.Match("**/"+p, path)
				if !matched {
					matched, _ = doublestar.Match(p, path)
				}
				return matched
			}
		}(rule.Pattern)
	}

	m.rules = append(m.rules, rule)
}

// Match reports whether relPath is excluded. Later rules win, so a
// negated pattern can re-include a path an earlier rule excluded.
func (m *IgnoreMatcher) Match(relPath string, isDir bool) bool {
	path := filepath.ToSlash(relPath)

	excluded := false
	for _, rule := range m.rules {
		if rule.IsDir && !isDir {
			continue
		}
		if rule.MatchFn(path) {
			excluded = !rule.Negated
		}
	}
	return excluded
}
