package manifest

import (
	"context"

	"github.com/keshon/bvctree/internal/hash"
)

// Parents carries the lineage of a tree object. Either may be zero.
type Parents struct {
	P1 hash.ID
	P2 hash.ID
}

// Store is what the manifest engine needs from a content-addressed object
// store. Implementations must be safe for concurrent use, and PutBlob must
// be idempotent: writing the same bytes twice yields the same id.
type Store interface {
	// LoadTree returns the listing of a persisted tree. ok is false when
	// the tree does not exist.
	LoadTree(ctx context.Context, id hash.ID) (listing Listing, ok bool, err error)
	// PutBlob writes data under kind and returns the id derived from data.
	// path is informational only.
	PutBlob(ctx context.Context, kind Kind, data []byte, parents Parents, path Path) (hash.ID, error)
	GetBlob(ctx context.Context, kind Kind, id hash.ID) ([]byte, error)
}

// Reference is the persisted form of an entry.
type Reference struct {
	ID   hash.ID
	Type Type
}
