package manifest

import (
	"fmt"
	"strings"
)

// Element is a single path segment: a file or directory name.
type Element string

// NewElement validates name as a path segment. Names may not be empty,
// "." or "..", and may not contain '/', NUL or LF since those bytes delimit
// the tree record.
func NewElement(name string) (Element, error) {
	switch {
	case name == "":
		return "", fmt.Errorf("%w: empty name", ErrInvalidElement)
	case name == "." || name == "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidElement, name)
	case strings.ContainsAny(name, "/\x00\n"):
		return "", fmt.Errorf("%w: %q contains a reserved byte", ErrInvalidElement, name)
	}
	return Element(name), nil
}

// MustElement is NewElement for literals.
func MustElement(name string) Element {
	e, err := NewElement(name)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Element) String() string { return string(e) }

// Path locates an entry below the root. The empty path is the root itself.
type Path []Element

// ParsePath splits a slash-separated path. Leading, trailing and repeated
// slashes are ignored, so "" and "/" both name the root.
func ParsePath(s string) (Path, error) {
	var p Path
	for _, part := range strings.Split(s, "/") {
		if part == "" {
			continue
		}
		e, err := NewElement(part)
		if err != nil {
			return nil, err
		}
		p = append(p, e)
	}
	return p, nil
}

// MustPath is ParsePath for literals.
func MustPath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) IsRoot() bool { return len(p) == 0 }

// Join returns a new path with e appended. p is never modified.
func (p Path) Join(e Element) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, e)
}

// Base returns the last element, or "" for the root.
func (p Path) Base() Element {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Dir returns the parent path.
func (p Path) Dir() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = string(e)
	}
	return strings.Join(parts, "/")
}
