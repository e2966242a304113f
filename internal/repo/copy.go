package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/keshon/bvctree/internal/hash"
	"github.com/keshon/bvctree/internal/manifest"
	"github.com/keshon/bvctree/internal/util"
)

var ErrHashMismatch = errors.New("repositories use different hash algorithms")

type CopyStats struct {
	Copied  int64
	Skipped int64
}

// CopyTree copies the tree root and every object it reaches into dst.
// Objects are copied verbatim; a tree is written only after its children,
// so a tree already present in dst is assumed complete and not descended.
func (r *Repository) CopyTree(ctx context.Context, dst *Repository, root hash.ID) (CopyStats, error) {
	if r.hasher.Algorithm() != dst.hasher.Algorithm() {
		return CopyStats{}, fmt.Errorf("%w: %s vs %s", ErrHashMismatch, r.hasher.Algorithm(), dst.hasher.Algorithm())
	}
	c := &copier{src: r, dst: dst, sem: make(chan struct{}, util.Workers(r.Config.Concurrency))}
	if err := c.tree(ctx, root); err != nil {
		return CopyStats{}, err
	}
	stats := CopyStats{Copied: c.copied.Load(), Skipped: c.skipped.Load()}
	r.Logger.Info("tree copied", "root", root.Short(), "copied", stats.Copied, "skipped", stats.Skipped)
	return stats, nil
}

type copier struct {
	src, dst *Repository
	sem      chan struct{}
	seen     sync.Map
	copied   atomic.Int64
	skipped  atomic.Int64
}

// claim reports whether this caller is the first to visit key.
func (c *copier) claim(key string) bool {
	_, loaded := c.seen.LoadOrStore(key, struct{}{})
	return !loaded
}

func (c *copier) tree(ctx context.Context, id hash.ID) error {
	key := c.src.key(manifest.KindTree, id)
	if !c.claim(key) {
		return nil
	}
	ok, err := c.dst.Blobs.Has(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		c.skipped.Add(1)
		return nil
	}

	listing, ok, err := c.src.LoadTree(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &manifest.TreeMissingError{ID: id}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range listing {
		g.Go(func() error {
			if e.Type == manifest.TypeTree {
				return c.tree(gctx, e.ID)
			}
			return c.raw(gctx, c.src.key(manifest.KindFile, e.ID))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return c.put(ctx, key)
}

func (c *copier) raw(ctx context.Context, key string) error {
	if !c.claim(key) {
		return nil
	}
	ok, err := c.dst.Blobs.Has(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		c.skipped.Add(1)
		return nil
	}
	return c.put(ctx, key)
}

// put moves one stored value; sem bounds concurrent transfers.
func (c *copier) put(ctx context.Context, key string) error {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	data, err := c.src.Blobs.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("copy %s: %w", key, err)
	}
	if err := c.dst.Blobs.Put(ctx, key, data); err != nil {
		return fmt.Errorf("copy %s: %w", key, err)
	}
	c.copied.Add(1)
	return nil
}
