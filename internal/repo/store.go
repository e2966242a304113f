package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/keshon/bvctree/internal/blobstore"
	"github.com/keshon/bvctree/internal/codec"
	"github.com/keshon/bvctree/internal/compress"
	"github.com/keshon/bvctree/internal/hash"
	"github.com/keshon/bvctree/internal/manifest"
)

var ErrKindMismatch = errors.New("object kind mismatch")

// Object is a stored blob with its lineage.
type Object struct {
	Kind    manifest.Kind
	ID      hash.ID
	Parents manifest.Parents
	Data    []byte
}

// ObjectKey is the blob store key of an object: "<kind>.<algo>.<hex>".
func ObjectKey(kind manifest.Kind, algo hash.Algorithm, id hash.ID) string {
	return string(kind) + "." + string(algo) + "." + string(id)
}

func (r *Repository) key(kind manifest.Kind, id hash.ID) string {
	return ObjectKey(kind, r.hasher.Algorithm(), id)
}

// PutBlob implements manifest.Store. The id covers data only, so identical
// content shares one object whatever its lineage; the first write wins.
func (r *Repository) PutBlob(ctx context.Context, kind manifest.Kind, data []byte, parents manifest.Parents, path manifest.Path) (hash.ID, error) {
	id := r.hasher.Sum(data)
	key := r.key(kind, id)
	ok, err := r.Blobs.Has(ctx, key)
	if err != nil {
		return "", err
	}
	if ok {
		return id, nil
	}

	env, err := codec.EncodeEnvelope(codec.Envelope{
		Kind: string(kind),
		P1:   string(parents.P1),
		P2:   string(parents.P2),
		Data: data,
	})
	if err != nil {
		return "", err
	}
	frame, err := compress.Encode(env, r.tag)
	if err != nil {
		return "", err
	}
	if err := r.Blobs.Put(ctx, key, frame); err != nil {
		return "", err
	}
	r.Logger.Debug("object written", "kind", kind, "id", id.Short(), "path", path.String(), "bytes", len(frame))
	return id, nil
}

// GetObject reads and decodes the object kind/id.
func (r *Repository) GetObject(ctx context.Context, kind manifest.Kind, id hash.ID) (Object, error) {
	if err := id.Validate(); err != nil {
		return Object{}, err
	}
	raw, err := r.Blobs.Get(ctx, r.key(kind, id))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return Object{}, fmt.Errorf("%s %s: %w", kind, id.Short(), err)
		}
		return Object{}, err
	}
	return decodeObject(kind, id, raw)
}

func decodeObject(kind manifest.Kind, id hash.ID, raw []byte) (Object, error) {
	plain, err := compress.Decode(raw)
	if err != nil {
		return Object{}, fmt.Errorf("%s %s: %w", kind, id.Short(), err)
	}
	env, err := codec.DecodeEnvelope(plain)
	if err != nil {
		return Object{}, fmt.Errorf("%s %s: %w", kind, id.Short(), err)
	}
	if env.Kind != string(kind) {
		return Object{}, fmt.Errorf("%w: %s %s holds a %s", ErrKindMismatch, kind, id.Short(), env.Kind)
	}
	return Object{
		Kind:    kind,
		ID:      id,
		Parents: manifest.Parents{P1: hash.ID(env.P1), P2: hash.ID(env.P2)},
		Data:    env.Data,
	}, nil
}

// GetBlob implements manifest.Store.
func (r *Repository) GetBlob(ctx context.Context, kind manifest.Kind, id hash.ID) ([]byte, error) {
	obj, err := r.GetObject(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return obj.Data, nil
}

// LoadTree implements manifest.Store.
func (r *Repository) LoadTree(ctx context.Context, id hash.ID) (manifest.Listing, bool, error) {
	data, err := r.GetBlob(ctx, manifest.KindTree, id)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	l, err := manifest.ParseRecord(data)
	if err != nil {
		return nil, false, fmt.Errorf("tree %s: %w", id.Short(), err)
	}
	return l, true, nil
}

// PutFile stores data as a file object.
func (r *Repository) PutFile(ctx context.Context, data []byte) (hash.ID, error) {
	return r.PutBlob(ctx, manifest.KindFile, data, manifest.Parents{}, nil)
}

// HasTree reports whether id names a stored tree.
func (r *Repository) HasTree(ctx context.Context, id hash.ID) (bool, error) {
	if id.Validate() != nil {
		return false, nil
	}
	return r.Blobs.Has(ctx, r.key(manifest.KindTree, id))
}
