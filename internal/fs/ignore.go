package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"vaultindex/internal/index"
)

// IgnoreFileName is the per-vault ignore file, read from the vault root.
const IgnoreFileName = ".vaultignore"

// ignoreRule is one compiled pattern. Anchored patterns and patterns
// containing '/' are matched against the whole relative path, all others
// against the basename.
type ignoreRule struct {
	glob      string
	wholePath bool
}

func (r ignoreRule) match(slashed, base string) bool {
	subject := base
	if r.wholePath {
		subject = slashed
	}
	ok, _ := filepath.Match(r.glob, subject)
	return ok
}

// IgnoreMatcher matches vault-relative paths against gitignore-style globs.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher compiles patterns. Blank lines, '#' comments and malformed
// globs are dropped. A leading '/' anchors a pattern to the vault root.
func NewIgnoreMatcher(patterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		anchored := strings.HasPrefix(p, "/")
		p = strings.TrimPrefix(p, "/")
		if _, err := filepath.Match(p, ""); err != nil {
			continue
		}
		m.rules = append(m.rules, ignoreRule{glob: p, wholePath: anchored || strings.Contains(p, "/")})
	}
	return m
}

// Match reports whether relativePath is ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if relativePath == "" {
		return false
	}
	slashed := filepath.ToSlash(relativePath)
	base := filepath.Base(relativePath)
	for _, r := range m.rules {
		if r.match(slashed, base) {
			return true
		}
	}
	return false
}

// IgnoreRules combines configured patterns with each vault's .vaultignore.
type IgnoreRules struct {
	patterns []string
}

func NewIgnoreRules(patterns []string) *IgnoreRules {
	return &IgnoreRules{patterns: patterns}
}

// ForRoot returns the matcher for the vault rooted at root. The ignore file
// is itself never indexed.
func (r *IgnoreRules) ForRoot(root string) (index.Ignorer, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}

	patterns := make([]string, 0, 1+len(r.patterns)+len(fromFile))
	patterns = append(patterns, "/"+IgnoreFileName)
	patterns = append(patterns, r.patterns...)
	patterns = append(patterns, fromFile...)
	return NewIgnoreMatcher(patterns), nil
}

// ParseIgnoreFile returns the raw lines of an ignore file, or nil if it does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}

var _ index.IgnoreSource = (*IgnoreRules)(nil)
