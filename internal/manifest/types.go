package manifest

import "fmt"

// Type classifies a manifest entry. Each type has a single-byte tag used in
// the canonical tree record.
type Type byte

const (
	TypeFile       Type = 'f'
	TypeExecutable Type = 'x'
	TypeSymlink    Type = 'l'
	TypeTree       Type = 't'
)

// Tag returns the byte written into tree records.
func (t Type) Tag() byte { return byte(t) }

func (t Type) Valid() bool {
	switch t {
	case TypeFile, TypeExecutable, TypeSymlink, TypeTree:
		return true
	}
	return false
}

func (t Type) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeExecutable:
		return "executable"
	case TypeSymlink:
		return "symlink"
	case TypeTree:
		return "tree"
	default:
		return fmt.Sprintf("unknown(%q)", byte(t))
	}
}

// ParseType accepts either a one-character tag or a type name.
func ParseType(s string) (Type, error) {
	switch s {
	case "f", "file":
		return TypeFile, nil
	case "x", "executable", "exec":
		return TypeExecutable, nil
	case "l", "symlink", "link":
		return TypeSymlink, nil
	case "t", "tree", "dir":
		return TypeTree, nil
	}
	return 0, fmt.Errorf("unknown entry type %q", s)
}

// Kind is the object class a blob is stored under.
type Kind string

const (
	KindFile Kind = "file"
	KindTree Kind = "tree"
)

// KindOf maps an entry type to the object kind holding its content.
func KindOf(t Type) Kind {
	if t == TypeTree {
		return KindTree
	}
	return KindFile
}
