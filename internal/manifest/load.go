package manifest

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/keshon/bvctree/internal/hash"
)

var tracer = otel.Tracer("bvctree.manifest")

// ConvertExistingTree loads the persisted tree id and every tree below it
// into memory. The result is unmodified with P1 = id.
func ConvertExistingTree(ctx context.Context, store Store, id hash.ID) (*Tree, error) {
	ctx, span := tracer.Start(ctx, "manifest.ConvertExistingTree",
		trace.WithAttributes(attribute.String("tree.id", id.String())))
	defer span.End()

	t, err := convertTree(ctx, store, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return t, nil
}

func convertTree(ctx context.Context, store Store, id hash.ID) (*Tree, error) {
	listing, ok, err := store.LoadTree(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", id, err)
	}
	if !ok {
		return nil, &TreeMissingError{ID: id}
	}

	var mu sync.Mutex
	children := make(map[Element]Entry, len(listing))
	g, gctx := errgroup.WithContext(ctx)
	for _, le := range listing {
		if le.Type != TypeTree {
			mu.Lock()
			children[le.Name] = &Leaf{ID: le.ID, Type: le.Type}
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			sub, err := convertTree(gctx, store, le.ID)
			if err != nil {
				return err
			}
			mu.Lock()
			children[le.Name] = sub
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Tree{children: children, P1: id}, nil
}
