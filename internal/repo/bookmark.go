package repo

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/keshon/bvctree/internal/fs"
	"github.com/keshon/bvctree/internal/hash"
)

var (
	ErrBookmarkExists   = errors.New("bookmark already exists")
	ErrBookmarkNotFound = errors.New("bookmark not found")
	ErrBookmarkName     = errors.New("invalid bookmark name")
)

// Bookmark names a root manifest.
type Bookmark struct {
	Name   string
	Target hash.ID
}

func validBookmarkName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, "/\\\x00\n ") {
		return fmt.Errorf("%w: %q", ErrBookmarkName, name)
	}
	return nil
}

func (r *Repository) bookmarkPath(name string) string {
	return filepath.Join(r.Paths.Bookmarks(), name)
}

// GetBookmark returns the tree a bookmark points at.
func (r *Repository) GetBookmark(name string) (hash.ID, error) {
	if err := validBookmarkName(name); err != nil {
		return "", err
	}
	data, err := r.FS.ReadFile(r.bookmarkPath(name))
	if err != nil {
		if r.FS.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrBookmarkNotFound, name)
		}
		return "", fmt.Errorf("read bookmark %q: %w", name, err)
	}
	id, err := hash.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return "", fmt.Errorf("bookmark %q: %w", name, err)
	}
	return id, nil
}

// ListBookmarks returns all bookmarks sorted by name.
func (r *Repository) ListBookmarks() ([]Bookmark, error) {
	entries, err := r.FS.ReadDir(r.Paths.Bookmarks())
	if err != nil {
		return nil, fmt.Errorf("read bookmarks directory %q: %w", r.Paths.Bookmarks(), err)
	}
	out := make([]Bookmark, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || validBookmarkName(e.Name()) != nil {
			continue
		}
		id, err := r.GetBookmark(e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, Bookmark{Name: e.Name(), Target: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateBookmark adds a bookmark, failing if the name is taken.
func (r *Repository) CreateBookmark(name string, target hash.ID) error {
	if err := validBookmarkName(name); err != nil {
		return err
	}
	if r.FS.Exists(r.bookmarkPath(name)) {
		return fmt.Errorf("%w: %s", ErrBookmarkExists, name)
	}
	return r.SetBookmark(name, target)
}

// SetBookmark points name at target, creating it if needed.
func (r *Repository) SetBookmark(name string, target hash.ID) error {
	if err := validBookmarkName(name); err != nil {
		return err
	}
	if err := target.Validate(); err != nil {
		return err
	}
	if err := fs.WriteFileAtomic(r.FS, r.bookmarkPath(name), []byte(target.String()+"\n")); err != nil {
		return fmt.Errorf("write bookmark %q: %w", name, err)
	}
	r.Logger.Debug("bookmark set", "name", name, "target", target.Short())
	return nil
}

func (r *Repository) DeleteBookmark(name string) error {
	if err := validBookmarkName(name); err != nil {
		return err
	}
	if err := r.FS.Remove(r.bookmarkPath(name)); err != nil {
		if r.FS.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrBookmarkNotFound, name)
		}
		return fmt.Errorf("delete bookmark %q: %w", name, err)
	}
	return nil
}
