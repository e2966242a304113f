package worktree

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/keshon/bvctree/internal/config"
)

// Ignore decides which working-tree paths import skips. Paths are slash
// separated and relative to the imported directory.
type Ignore struct {
	static  map[string]bool
	pattern []string
}

// NewIgnore returns a matcher for the default ignores plus patterns.
func NewIgnore(patterns ...string) *Ignore {
	m := &Ignore{static: make(map[string]bool)}
	for _, s := range config.DefaultIgnoredFiles {
		m.static[s] = true
	}
	for _, p := range patterns {
		m.add(p)
	}
	return m
}

// LoadIgnore reads the ignore file in dir, if present.
func LoadIgnore(dir string) (*Ignore, error) {
	m := NewIgnore()
	f, err := os.Open(filepath.Join(dir, config.IgnoreFile))
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.add(sc.Text())
	}
	return m, sc.Err()
}

func (m *Ignore) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	m.pattern = append(m.pattern, line)
}

// Match returns true if the path should be ignored
func (m *Ignore) Match(path string) bool {
	clean := filepath.ToSlash(filepath.Clean(path))

	if m.static[clean] {
		return true
	}
	for _, pat := range m.pattern {
		if matchPattern(pat, clean) {
			return true
		}
	}
	return false
}

// matchPattern handles *, ?, and ** like Git
func matchPattern(pattern, path string) bool {
	pattern = filepath.ToSlash(pattern)
	return matchSegments(strings.Split(pattern, "/"), strings.Split(path, "/"))
}

// matchSegments matches pattern segments recursively
func matchSegments(pats, parts []string) bool {
	for len(pats) > 0 {
		p := pats[0]
		pats = pats[1:]

		if p == "**" {
			if len(pats) == 0 {
				return true
			}
			for i := 0; i <= len(parts); i++ {
				if matchSegments(pats, parts[i:]) {
					return true
				}
			}
			return false
		}

		if len(parts) == 0 {
			return false
		}
		if ok, _ := filepath.Match(p, parts[0]); !ok {
			return false
		}
		parts = parts[1:]
	}

	return len(parts) == 0
}
