package config

import "path/filepath"

const (
	RepoDir      = ".bvctree"
	ObjectsDir   = "objects"
	BookmarksDir = "bookmarks"
	ConfigFile   = "config.yaml"

	// RepoPointerFile redirects a working tree to a repository stored elsewhere.
	RepoPointerFile = ".bvctree-pointer"

	// IgnoreFile lists patterns skipped by import, one per line.
	IgnoreFile = ".bvctreeignore"
)

// DefaultIgnoredFiles are never imported.
var DefaultIgnoredFiles = []string{RepoDir, RepoPointerFile}

const DefaultBookmark = "main"

// Paths is the on-disk layout of a repository rooted at Root.
type Paths struct {
	Root string
}

func (p Paths) Objects() string    { return filepath.Join(p.Root, ObjectsDir) }
func (p Paths) Bookmarks() string  { return filepath.Join(p.Root, BookmarksDir) }
func (p Paths) ConfigFile() string { return filepath.Join(p.Root, ConfigFile) }

// Badger and SQLite keep their files next to the file store's objects dir.
func (p Paths) Badger() string { return filepath.Join(p.Root, "badger") }
func (p Paths) SQLite() string { return filepath.Join(p.Root, "blobs.sqlite") }
