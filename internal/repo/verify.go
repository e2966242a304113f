package repo

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/keshon/bvctree/internal/blobstore"
	"github.com/keshon/bvctree/internal/hash"
	"github.com/keshon/bvctree/internal/manifest"
	"github.com/keshon/bvctree/internal/util"
)

// Status is the state of one stored object.
type Status int

const (
	OK Status = iota
	Missing
	Damaged
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Missing:
		return "missing"
	case Damaged:
		return "damaged"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ObjectCheck is the verdict for one object reachable from the checked
// roots. Paths lists where it appears.
type ObjectCheck struct {
	Kind   manifest.Kind
	ID     hash.ID
	Status Status
	Paths  []string
	Err    error
}

type objectRef struct {
	kind  manifest.Kind
	id    hash.ID
	paths map[string]struct{}
}

// reachable walks the trees below roots and returns every object they
// reference. Missing or unreadable trees are returned as-is and not
// descended.
func (r *Repository) reachable(ctx context.Context, roots []hash.ID) (map[string]*objectRef, error) {
	refs := make(map[string]*objectRef)
	var walk func(kind manifest.Kind, id hash.ID, path string) error
	walk = func(kind manifest.Kind, id hash.ID, path string) error {
		key := r.key(kind, id)
		ref, seen := refs[key]
		if !seen {
			ref = &objectRef{kind: kind, id: id, paths: make(map[string]struct{})}
			refs[key] = ref
		}
		ref.paths[path] = struct{}{}
		if seen || kind != manifest.KindTree {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		listing, ok, err := r.LoadTree(ctx, id)
		if err != nil || !ok {
			return nil
		}
		for _, e := range listing {
			child := path + "/" + e.Name.String()
			if path == "/" {
				child = "/" + e.Name.String()
			}
			if err := walk(manifest.KindOf(e.Type), e.ID, child); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range roots {
		if err := walk(manifest.KindTree, root, "/"); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

// Verify checks every object reachable from roots and streams the results.
// The error channel yields at most one error and is closed with the
// results channel.
func (r *Repository) Verify(ctx context.Context, roots []hash.ID, workers int) (<-chan ObjectCheck, <-chan error) {
	out := make(chan ObjectCheck, 128)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		refs, err := r.reachable(ctx, roots)
		if err != nil {
			errCh <- err
			return
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(util.Workers(workers))
		for _, key := range util.SortedKeys(refs) {
			ref := refs[key]
			g.Go(func() error {
				status, cerr := r.checkObject(gctx, key, ref)
				check := ObjectCheck{
					Kind:   ref.kind,
					ID:     ref.id,
					Status: status,
					Paths:  util.SortedKeys(ref.paths),
					Err:    cerr,
				}
				select {
				case out <- check:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		if err := g.Wait(); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

// CountReachable returns how many objects Verify would check.
func (r *Repository) CountReachable(ctx context.Context, roots []hash.ID) (int, error) {
	refs, err := r.reachable(ctx, roots)
	return len(refs), err
}

func (r *Repository) checkObject(ctx context.Context, key string, ref *objectRef) (Status, error) {
	raw, err := r.Blobs.Get(ctx, key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return Missing, nil
	}
	if err != nil {
		return Damaged, err
	}
	obj, err := decodeObject(ref.kind, ref.id, raw)
	if err != nil {
		return Damaged, err
	}
	if got := r.hasher.Sum(obj.Data); got != ref.id {
		return Damaged, fmt.Errorf("content hashes to %s", got.Short())
	}
	if ref.kind == manifest.KindTree {
		if _, err := manifest.ParseRecord(obj.Data); err != nil {
			return Damaged, err
		}
	}
	return OK, nil
}
