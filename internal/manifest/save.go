package manifest

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/keshon/bvctree/internal/util"
)

// Saver writes in-memory entries to a Store.
type Saver struct {
	Store  Store
	Logger *slog.Logger
	// Concurrency bounds the subtree saves running under one tree.
	// Zero means util.WorkerCount().
	Concurrency int
}

// Save persists entry, found at path, with default settings.
func Save(ctx context.Context, entry Entry, store Store, path Path, logger *slog.Logger) (Reference, error) {
	s := &Saver{Store: store, Logger: logger}
	return s.Save(ctx, entry, path)
}

// Save returns the reference of entry, writing every modified tree below it
// first. Nothing is written for a tree whose children failed to save.
func (s *Saver) Save(ctx context.Context, entry Entry, path Path) (Reference, error) {
	run := *s
	if run.Logger == nil {
		run.Logger = slog.New(slog.DiscardHandler)
	}
	if run.Concurrency <= 0 {
		run.Concurrency = util.WorkerCount()
	}
	return run.save(ctx, entry, path)
}

func (s *Saver) save(ctx context.Context, entry Entry, path Path) (Reference, error) {
	switch e := entry.(type) {
	case nil:
		return Reference{}, fmt.Errorf("%w at %s", ErrNilEntry, path)
	case *Leaf:
		if e == nil {
			return Reference{}, fmt.Errorf("%w at %s", ErrNilEntry, path)
		}
		if e.Type == TypeTree || !e.Type.Valid() {
			return Reference{}, fmt.Errorf("%w at %s: leaf has type %s", ErrInvalidEntry, path, e.Type)
		}
		if err := e.ID.Validate(); err != nil {
			return Reference{}, fmt.Errorf("%w at %s: %w", ErrInvalidEntry, path, err)
		}
		return Reference{ID: e.ID, Type: e.Type}, nil
	case *Conflict:
		return Reference{}, fmt.Errorf("%w at %s", ErrUnresolvedConflicts, path)
	case *Tree:
		if e == nil {
			return Reference{}, fmt.Errorf("%w at %s", ErrNilEntry, path)
		}
		if e.Modified {
			if e.unloaded {
				return Reference{}, fmt.Errorf("%w at %s: edited below a reference to %s", ErrUnloadedTree, path, e.P1)
			}
			return s.saveTree(ctx, e, path)
		}
		// An unmodified tree is its first parent, byte for byte. A second
		// parent here means a merge was never marked as an edit.
		if !e.P2.IsZero() {
			panic(fmt.Sprintf("manifest: modified flag not set on merged tree at %s", path))
		}
		if e.P1.IsZero() {
			return Reference{}, fmt.Errorf("%w at %s", ErrUnchangedManifestMissingParent, path)
		}
		if err := e.P1.Validate(); err != nil {
			return Reference{}, fmt.Errorf("%w at %s: %w", ErrInvalidEntry, path, err)
		}
		return Reference{ID: e.P1, Type: TypeTree}, nil
	default:
		panic(fmt.Sprintf("manifest: unknown entry type %T", entry))
	}
}

func (s *Saver) saveTree(ctx context.Context, t *Tree, path Path) (Reference, error) {
	names := t.Names()
	entries := make([]ListingEntry, len(names))

	for _, name := range names {
		if _, err := NewElement(string(name)); err != nil {
			return Reference{}, fmt.Errorf("%w at %s: %w", ErrInvalidEntry, path, err)
		}
	}

	// Leaves and conflicts resolve without I/O; settle them before any
	// subtree is written.
	var subtrees []int
	for i, name := range names {
		child := t.children[name]
		if sub, ok := child.(*Tree); ok && sub != nil && sub.Modified && !sub.unloaded {
			subtrees = append(subtrees, i)
			continue
		}
		ref, err := s.save(ctx, child, path.Join(name))
		if err != nil {
			return Reference{}, err
		}
		entries[i] = ListingEntry{Name: name, ID: ref.ID, Type: ref.Type}
	}

	if len(subtrees) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.Concurrency)
		for _, i := range subtrees {
			name := names[i]
			child := t.children[name]
			g.Go(func() error {
				ref, err := s.save(gctx, child, path.Join(name))
				if err != nil {
					return err
				}
				entries[i] = ListingEntry{Name: name, ID: ref.ID, Type: ref.Type}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Reference{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return Reference{}, err
	}

	ctx, span := tracer.Start(ctx, "manifest.saveTree", trace.WithAttributes(
		attribute.String("tree.path", path.String()),
		attribute.Int("tree.entries", len(entries)),
	))
	defer span.End()

	record := EncodeRecord(entries)
	id, err := s.Store.PutBlob(ctx, KindTree, record, Parents{P1: t.P1, P2: t.P2}, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Reference{}, fmt.Errorf("write tree %s: %w", path, err)
	}
	span.SetAttributes(attribute.String("tree.id", id.String()))

	s.Logger.Debug("tree saved",
		"path", path.String(),
		"id", id.String(),
		"entries", len(entries),
	)
	return Reference{ID: id, Type: TypeTree}, nil
}
