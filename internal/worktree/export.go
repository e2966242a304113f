package worktree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/keshon/bvctree/internal/config"
	"github.com/keshon/bvctree/internal/hash"
	"github.com/keshon/bvctree/internal/manifest"
	"github.com/keshon/bvctree/internal/repo"
	"github.com/keshon/bvctree/internal/util"
)

type ExportOptions struct {
	Jobs int
	// Prune removes files and directories under the destination that the
	// tree does not contain. Ignored paths are kept.
	Prune    bool
	Progress func()
}

type ExportStats struct {
	Files   int
	Bytes   int64
	Removed int
}

type exportFile struct {
	rel   string
	entry manifest.ListingEntry
}

// Export writes the tree id into dest, creating directories as needed and
// replacing files that already exist.
func Export(ctx context.Context, r *repo.Repository, id hash.ID, dest string, opts ExportOptions) (ExportStats, error) {
	tree, err := manifest.ConvertExistingTree(ctx, r, id)
	if err != nil {
		return ExportStats{}, err
	}
	var (
		files []exportFile
		dirs  = []string{""}
	)
	var walk func(t *manifest.Tree, prefix string)
	walk = func(t *manifest.Tree, prefix string) {
		for _, name := range t.Names() {
			rel := prefix + string(name)
			if reserved(name) {
				r.Logger.Warn("skipping reserved name in tree", "path", rel, "id", id.Short())
				continue
			}
			e, _ := t.Get(name)
			switch e := e.(type) {
			case *manifest.Tree:
				dirs = append(dirs, rel)
				walk(e, rel+"/")
			case *manifest.Leaf:
				files = append(files, exportFile{rel: rel, entry: manifest.ListingEntry{Name: name, ID: e.ID, Type: e.Type}})
			}
		}
	}
	walk(tree, "")

	for _, d := range dirs {
		if err := ensureDir(filepath.Join(dest, filepath.FromSlash(d))); err != nil {
			return ExportStats{}, err
		}
	}

	var size atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(util.Workers(opts.Jobs))
	for _, f := range files {
		g.Go(func() error {
			data, err := r.GetBlob(gctx, manifest.KindFile, f.entry.ID)
			if err != nil {
				return fmt.Errorf("%s: %w", f.rel, err)
			}
			if err := writeLeaf(filepath.Join(dest, filepath.FromSlash(f.rel)), data, f.entry.Type); err != nil {
				return fmt.Errorf("%s: %w", f.rel, err)
			}
			size.Add(int64(len(data)))
			if opts.Progress != nil {
				opts.Progress()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ExportStats{}, err
	}

	stats := ExportStats{Files: len(files), Bytes: size.Load()}
	if opts.Prune {
		keep := make(map[string]bool, len(files)+len(dirs))
		for _, f := range files {
			keep[f.rel] = true
		}
		for _, d := range dirs {
			keep[d] = true
		}
		n, err := prune(dest, keep)
		if err != nil {
			return stats, err
		}
		stats.Removed = n
	}
	r.Logger.Debug("tree exported", "id", id.Short(), "dest", dest, "files", stats.Files, "removed", stats.Removed)
	return stats, nil
}

// reserved reports names that belong to repository metadata. Writing them
// would place tree content inside a repository directory.
func reserved(name manifest.Element) bool {
	return slices.Contains(config.DefaultIgnoredFiles, string(name))
}

// ensureDir creates path as a directory, replacing a file or symlink there.
func ensureDir(path string) error {
	info, err := os.Lstat(path)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		if err := os.Remove(path); err != nil {
			return err
		}
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}
	return os.MkdirAll(path, 0o755)
}

func writeLeaf(path string, data []byte, typ manifest.Type) error {
	if info, err := os.Lstat(path); err == nil && info.IsDir() {
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	}
	if typ == manifest.TypeSymlink {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return os.Symlink(string(data), path)
	}

	perm := os.FileMode(0o644)
	if typ == manifest.TypeExecutable {
		perm = 0o755
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// prune deletes everything under dest that keep does not list, leaving
// ignored paths alone.
func prune(dest string, keep map[string]bool) (int, error) {
	ig, err := LoadIgnore(dest)
	if err != nil {
		return 0, err
	}
	removed := 0
	var dirs []string
	err = filepath.WalkDir(dest, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dest {
			return nil
		}
		rel, err := filepath.Rel(dest, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if ig.Match(rel) || rel == config.IgnoreFile {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !keep[rel] {
				dirs = append(dirs, path)
			}
			return nil
		}
		if keep[rel] {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, err
	}

	// Deepest first so parents are empty by the time they are reached.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(d); err == nil {
			removed++
		}
	}
	return removed, nil
}
