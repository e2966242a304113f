package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/bvctree/internal/blobstore"
	"github.com/keshon/bvctree/internal/compress"
	"github.com/keshon/bvctree/internal/config"
	"github.com/keshon/bvctree/internal/fs"
	"github.com/keshon/bvctree/internal/hash"
	"github.com/keshon/bvctree/internal/manifest"
	"github.com/keshon/bvctree/internal/repo"
)

func newRepo(t *testing.T, root string, memfs *fs.MemoryFS, mutate func(*config.Config)) *repo.Repository {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.BlobCacheSize = 0
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := repo.Init(root, cfg, repo.Options{FS: memfs})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// buildTree saves a small tree and returns its id:
//
//	README       file
//	bin/tool     executable
//	src/a/x.go   file
func buildTree(t *testing.T, r *repo.Repository) hash.ID {
	t.Helper()
	ctx := context.Background()
	m, err := r.NewManifest(ctx, "", "")
	require.NoError(t, err)
	for path, spec := range map[string]struct {
		body string
		typ  manifest.Type
	}{
		"README":     {"hello\n", manifest.TypeFile},
		"bin/tool":   {"#!/bin/sh\necho hi\n", manifest.TypeExecutable},
		"src/a/x.go": {"package a\n", manifest.TypeFile},
	} {
		id, err := r.PutFile(ctx, []byte(spec.body))
		require.NoError(t, err)
		leaf, err := manifest.NewLeaf(id, spec.typ)
		require.NoError(t, err)
		require.NoError(t, m.InsertPath(manifest.MustPath(path), leaf))
	}
	ref, err := m.Save(ctx, r.Logger)
	require.NoError(t, err)
	return ref.ID
}

func TestInitOpen(t *testing.T) {
	memfs := fs.NewMemoryFS()
	r := newRepo(t, "/repo", memfs, nil)
	assert.True(t, memfs.IsDir("/repo/objects"))
	assert.True(t, memfs.IsDir("/repo/bookmarks"))
	assert.True(t, memfs.Exists("/repo/config.yaml"))

	_, err := repo.Init("/repo", config.Default(), repo.Options{FS: memfs})
	assert.True(t, errors.Is(err, repo.ErrExist))

	_, err = repo.Open("/elsewhere", repo.Options{FS: memfs})
	assert.True(t, errors.Is(err, repo.ErrNotRepository))

	again, err := repo.Open("/repo", repo.Options{FS: memfs})
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, r.Config, again.Config)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t, "/repo", fs.NewMemoryFS(), nil)
	root := buildTree(t, r)

	ok, err := r.Blobs.Has(ctx, repo.ObjectKey(manifest.KindTree, hash.XXH3, root))
	require.NoError(t, err)
	assert.True(t, ok, "tree stored under kind.algo.hex")

	tree, err := manifest.ConvertExistingTree(ctx, r, root)
	require.NoError(t, err)
	tool, ok := manifest.Lookup(tree, manifest.MustPath("bin/tool"))
	require.True(t, ok)
	assert.Equal(t, manifest.TypeExecutable, tool.(*manifest.Leaf).Type)

	body, err := r.GetBlob(ctx, manifest.KindFile, tool.(*manifest.Leaf).ID)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho hi\n", string(body))

	raw, err := r.Blobs.Get(ctx, repo.ObjectKey(manifest.KindFile, hash.XXH3, tool.(*manifest.Leaf).ID))
	require.NoError(t, err)
	_, err = compress.TagOf(raw)
	require.NoError(t, err)
}

func TestStore_LineageAndEdits(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t, "/repo", fs.NewMemoryFS(), nil)
	base := buildTree(t, r)

	m, err := r.NewManifest(ctx, base, "")
	require.NoError(t, err)
	removed, err := m.RemovePath(manifest.MustPath("src/a/x.go"))
	require.NoError(t, err)
	require.True(t, removed)
	ref, err := m.Save(ctx, nil)
	require.NoError(t, err)
	require.NotEqual(t, base, ref.ID)

	obj, err := r.GetObject(ctx, manifest.KindTree, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, manifest.Parents{P1: base}, obj.Parents)

	listing, ok, err := r.LoadTree(ctx, ref.ID)
	require.NoError(t, err)
	require.True(t, ok)
	src, ok := listing.Lookup("src")
	require.True(t, ok)
	assert.Equal(t, manifest.TypeTree, src.Type)

	// src/a is now empty but still a directory
	srcTree, ok, err := r.LoadTree(ctx, src.ID)
	require.NoError(t, err)
	require.True(t, ok)
	a, ok := srcTree.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, r.Hasher().Sum(nil), a.ID)
}

func TestStore_MissingAndMismatch(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t, "/repo", fs.NewMemoryFS(), nil)
	root := buildTree(t, r)

	missing := r.Hasher().Sum([]byte("nothing"))
	_, ok, err := r.LoadTree(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.NewManifest(ctx, missing, "")
	assert.True(t, errors.Is(err, manifest.ErrTreeMissing))

	_, err = r.GetBlob(ctx, manifest.KindFile, missing)
	assert.True(t, errors.Is(err, blobstore.ErrNotFound))

	// a tree envelope planted under a file key is rejected
	raw, err := r.Blobs.Get(ctx, repo.ObjectKey(manifest.KindTree, hash.XXH3, root))
	require.NoError(t, err)
	require.NoError(t, r.Blobs.Put(ctx, repo.ObjectKey(manifest.KindFile, hash.XXH3, root), raw))
	_, err = r.GetBlob(ctx, manifest.KindFile, root)
	assert.True(t, errors.Is(err, repo.ErrKindMismatch), "got %v", err)
}

func TestStore_Blake3AndBackends(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{config.BackendMemory, config.BackendFile} {
		t.Run(backend, func(t *testing.T) {
			r := newRepo(t, "/repo", fs.NewMemoryFS(), func(c *config.Config) {
				c.Hash = "blake3"
				c.Store.Backend = backend
				c.Store.Compression = "lz4"
				c.Cache.BlobCacheSize = 1 << 20
			})
			root := buildTree(t, r)
			assert.Len(t, string(root), 64)

			tree, err := manifest.ConvertExistingTree(ctx, r, root)
			require.NoError(t, err)
			assert.Equal(t, 3, tree.Len())
		})
	}
}

func TestEmptyTreeAndCleanup(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t, "/repo", fs.NewMemoryFS(), nil)

	id, err := r.EmptyTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Hasher().Sum(nil), id)
	ok, err := r.HasTree(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := r.CleanupTemp()
	require.NoError(t, err)
	assert.Zero(t, n)

	mem := newRepo(t, "/mem", fs.NewMemoryFS(), func(c *config.Config) { c.Store.Backend = config.BackendMemory })
	n, err = mem.CleanupTemp()
	require.NoError(t, err)
	assert.Zero(t, n)
}
