package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/keshon/bvctree/internal/hash"
)

var ErrUnknownRevision = errors.New("unknown revision")

// Resolve turns a tree id or bookmark name into a tree id. A full id wins
// over a bookmark of the same spelling.
func (r *Repository) Resolve(ctx context.Context, spec string) (hash.ID, error) {
	if id, err := hash.Parse(spec); err == nil {
		ok, err := r.HasTree(ctx, id)
		if err != nil {
			return "", err
		}
		if ok {
			return id, nil
		}
	}
	id, err := r.GetBookmark(spec)
	if err == nil {
		return id, nil
	}
	if errors.Is(err, ErrBookmarkNotFound) || errors.Is(err, ErrBookmarkName) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRevision, spec)
	}
	return "", err
}
