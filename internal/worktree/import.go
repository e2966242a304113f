package worktree

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/keshon/bvctree/internal/manifest"
	"github.com/keshon/bvctree/internal/repo"
	"github.com/keshon/bvctree/internal/util"
)

type ImportOptions struct {
	// Jobs bounds concurrent file reads and writes. Zero means one per CPU.
	Jobs int
	// Progress, when set, is called once per stored file.
	Progress func()
}

type ImportStats struct {
	Files int
	Bytes int64
}

// Import stores every file of l in r and returns a modified in-memory tree
// holding them, empty directories included. Nothing is saved until the
// caller saves the tree.
func Import(ctx context.Context, r *repo.Repository, l Listing, opts ImportOptions) (*manifest.Tree, ImportStats, error) {
	files := make([]manifest.Path, len(l.Files))
	for i, rel := range l.Files {
		p, err := manifest.ParsePath(rel)
		if err != nil {
			return nil, ImportStats{}, fmt.Errorf("%s: %w", rel, err)
		}
		files[i] = p
	}
	dirs := make([]manifest.Path, len(l.Dirs))
	for i, rel := range l.Dirs {
		p, err := manifest.ParsePath(rel)
		if err != nil {
			return nil, ImportStats{}, fmt.Errorf("%s: %w", rel, err)
		}
		dirs[i] = p
	}

	leaves := make([]*manifest.Leaf, len(files))
	var size atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(util.Workers(opts.Jobs))
	for i, rel := range l.Files {
		g.Go(func() error {
			data, typ, err := ReadLeaf(filepath.Join(l.Root, filepath.FromSlash(rel)))
			if err != nil {
				return err
			}
			id, err := r.PutFile(gctx, data)
			if err != nil {
				return fmt.Errorf("store %s: %w", rel, err)
			}
			leaves[i] = &manifest.Leaf{ID: id, Type: typ}
			size.Add(int64(len(data)))
			if opts.Progress != nil {
				opts.Progress()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ImportStats{}, err
	}

	root := manifest.NewTree()
	root.Modified = true
	// Dirs are sorted, so every parent is in place before its children.
	for _, p := range dirs {
		dir := manifest.NewTree()
		dir.Modified = true
		if err := manifest.InsertPath(root, p, dir); err != nil {
			return nil, ImportStats{}, fmt.Errorf("%s: %w", p, err)
		}
	}
	for i, p := range files {
		if err := manifest.InsertPath(root, p, leaves[i]); err != nil {
			return nil, ImportStats{}, fmt.Errorf("%s: %w", p, err)
		}
	}

	r.Logger.Debug("directory imported", "root", l.Root, "files", len(files), "dirs", len(dirs))
	return root, ImportStats{Files: len(files), Bytes: size.Load()}, nil
}
