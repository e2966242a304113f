package worktree

import (
	"io/fs"
	"path/filepath"
	"sort"
)

// Listing is the result of scanning a directory: every kept file and every
// kept directory, as sorted slash-separated paths relative to the root.
type Listing struct {
	Root  string
	Files []string
	Dirs  []string
}

// Scan walks root and collects the paths ig does not match. Ignored
// directories are not descended.
func Scan(root string, ig *Ignore) (Listing, error) {
	out := Listing{Root: root}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if ig.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			out.Dirs = append(out.Dirs, rel)
			return nil
		}
		out.Files = append(out.Files, rel)
		return nil
	})
	if err != nil {
		return Listing{}, err
	}
	sort.Strings(out.Files)
	sort.Strings(out.Dirs)
	return out, nil
}
