package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// Matcher decides whether a path under a root is excluded from indexing.
// It combines doublestar exclude globs with the root's .gitignore when enabled.
// A nil *Matcher excludes nothing.
type Matcher struct {
	mu           sync.RWMutex
	rootDir      string
	patterns     []string
	useGitignore bool
	gitIgnore    gitignore.GitIgnore
}

// Options configures the matcher.
type Options struct {
	RootDir      string
	Patterns     []string // doublestar globs, matched against the root-relative path and the base name
	UseGitignore bool
}

// NewMatcher validates the patterns and loads .gitignore if requested.
func NewMatcher(opts Options) (*Matcher, error) {
	patterns := make([]string, 0, len(opts.Patterns))
	for _, p := range opts.Patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
		patterns = append(patterns, p)
	}

	m := &Matcher{
		rootDir:      opts.RootDir,
		patterns:     patterns,
		useGitignore: opts.UseGitignore,
	}
	if m.useGitignore {
		m.gitIgnore = loadIgnoreFile(filepath.Join(opts.RootDir, ".gitignore"), opts.RootDir)
	}
	return m, nil
}

// RootDir returns the directory patterns are relative to.
func (m *Matcher) RootDir() string {
	if m == nil {
		return ""
	}
	return m.rootDir
}

// Match reports whether absolutePath is excluded. Paths outside the root
// are never excluded.
func (m *Matcher) Match(absolutePath string, isDir bool) bool {
	if m == nil {
		return false
	}

	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil || relativePath == "." || strings.HasPrefix(relativePath, "..") {
		return false
	}
	relativePath = filepath.ToSlash(relativePath)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.gitIgnore != nil {
		match := m.gitIgnore.Relative(relativePath, isDir)
		if match != nil && match.Ignore() {
			return true
		}
	}

	baseName := filepath.Base(absolutePath)
	for _, pattern := range m.patterns {
		if matched, _ := doublestar.Match(pattern, relativePath); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, baseName); matched {
			return true
		}
	}
	return false
}

// MatchPath reports whether the file at absolutePath is excluded either
// itself or through any directory between the root and it.
func (m *Matcher) MatchPath(absolutePath string) bool {
	if m == nil {
		return false
	}

	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil || relativePath == "." || strings.HasPrefix(relativePath, "..") {
		return false
	}

	dir := m.rootDir
	parts := strings.Split(relativePath, string(filepath.Separator))
	for _, part := range parts[:len(parts)-1] {
		dir = filepath.Join(dir, part)
		if m.Match(dir, true) {
			return true
		}
	}
	return m.Match(absolutePath, false)
}

// IsIgnoreFile reports whether path is the .gitignore this matcher reads.
func (m *Matcher) IsIgnoreFile(path string) bool {
	return m != nil && m.useGitignore && path == filepath.Join(m.rootDir, ".gitignore")
}

// Reload re-reads .gitignore from disk.
func (m *Matcher) Reload() {
	if m == nil || !m.useGitignore {
		return
	}
	gi := loadIgnoreFile(filepath.Join(m.rootDir, ".gitignore"), m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gitIgnore = gi
}

// loadIgnoreFile returns nil when the file cannot be opened.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	return gitignore.New(f, baseDir, nil)
}
