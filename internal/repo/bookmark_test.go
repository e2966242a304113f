package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/bvctree/internal/fs"
	"github.com/keshon/bvctree/internal/repo"
)

func TestBookmarks(t *testing.T) {
	r := newRepo(t, "/repo", fs.NewMemoryFS(), nil)
	root := buildTree(t, r)
	other := r.Hasher().Sum([]byte("other"))

	list, err := r.ListBookmarks()
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, r.CreateBookmark("main", root))
	err = r.CreateBookmark("main", other)
	assert.True(t, errors.Is(err, repo.ErrBookmarkExists))

	require.NoError(t, r.SetBookmark("dev", other))
	require.NoError(t, r.SetBookmark("dev", root))

	list, err = r.ListBookmarks()
	require.NoError(t, err)
	assert.Equal(t, []repo.Bookmark{{Name: "dev", Target: root}, {Name: "main", Target: root}}, list)

	require.NoError(t, r.DeleteBookmark("dev"))
	_, err = r.GetBookmark("dev")
	assert.True(t, errors.Is(err, repo.ErrBookmarkNotFound))
	assert.True(t, errors.Is(r.DeleteBookmark("dev"), repo.ErrBookmarkNotFound))

	for _, bad := range []string{"", ".hidden", "a/b", "with space"} {
		assert.True(t, errors.Is(r.SetBookmark(bad, root), repo.ErrBookmarkName), bad)
	}
	assert.Error(t, r.SetBookmark("x", "not-a-hash"))
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t, "/repo", fs.NewMemoryFS(), nil)
	root := buildTree(t, r)
	require.NoError(t, r.SetBookmark("main", root))

	got, err := r.Resolve(ctx, root.String())
	require.NoError(t, err)
	assert.Equal(t, root, got)

	got, err = r.Resolve(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, err = r.Resolve(ctx, "nope")
	assert.True(t, errors.Is(err, repo.ErrUnknownRevision))

	_, err = r.Resolve(ctx, r.Hasher().Sum([]byte("absent")).String())
	assert.True(t, errors.Is(err, repo.ErrUnknownRevision))
}
