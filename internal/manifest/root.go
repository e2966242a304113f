package manifest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/keshon/bvctree/internal/hash"
)

// RootManifest is an in-memory manifest built from up to two parent trees.
// It is edited in place and saved once.
type RootManifest struct {
	store    Store
	root     Entry
	saver    Saver
	consumed bool
}

// New builds a manifest from the parent trees p1 and p2, either of which may
// be zero.
//
// With no parents the root is an empty tree. With one parent the root is
// that tree, fully loaded. With two parents both trees are loaded and the
// root is a Conflict between them: merging is left to the caller, who must
// replace the root (SetRoot) before Save can succeed.
func New(ctx context.Context, store Store, p1, p2 hash.ID) (*RootManifest, error) {
	if p1.IsZero() {
		p1, p2 = p2, ""
	}

	m := &RootManifest{store: store, saver: Saver{Store: store}}
	switch {
	case p1.IsZero():
		m.root = NewTree()
	case p2.IsZero() || p1 == p2:
		t, err := ConvertExistingTree(ctx, store, p1)
		if err != nil {
			return nil, err
		}
		m.root = t
	default:
		var left, right *Tree
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			left, err = ConvertExistingTree(gctx, store, p1)
			return err
		})
		g.Go(func() (err error) {
			right, err = ConvertExistingTree(gctx, store, p2)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		m.root = &Conflict{Entries: []Entry{left, right}}
	}
	return m, nil
}

// Root returns the root entry for inspection or in-place edits.
func (m *RootManifest) Root() Entry { return m.root }

// SetRoot replaces the root entry, typically to resolve a root Conflict.
func (m *RootManifest) SetRoot(e Entry) { m.root = e }

// SetConcurrency bounds concurrent subtree saves per directory.
func (m *RootManifest) SetConcurrency(n int) { m.saver.Concurrency = n }

func (m *RootManifest) Insert(name Element, child Entry) error {
	return Insert(m.root, name, child)
}

func (m *RootManifest) InsertPath(path Path, child Entry) error {
	return InsertPath(m.root, path, child)
}

func (m *RootManifest) RemovePath(path Path) (bool, error) {
	return RemovePath(m.root, path)
}

// Save writes every modified tree and returns the root reference. The
// manifest cannot be used afterwards.
func (m *RootManifest) Save(ctx context.Context, logger *slog.Logger) (Reference, error) {
	if m.consumed {
		return Reference{}, ErrManifestConsumed
	}
	m.consumed = true
	root := m.root
	m.root = nil

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("save_id", uuid.NewString())
	start := time.Now()
	logger.Debug("saving manifest")

	s := m.saver
	s.Logger = logger
	ref, err := s.Save(ctx, root, nil)
	if err != nil {
		logger.Warn("manifest save failed", "error", err)
		return Reference{}, err
	}
	logger.Info("manifest saved",
		"id", ref.ID.String(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return ref, nil
}
