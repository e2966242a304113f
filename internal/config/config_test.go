package config_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/bvctree/internal/config"
	"github.com/keshon/bvctree/internal/fs"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	m := fs.NewMemoryFS()
	cfg, err := config.Load(m, config.Paths{Root: "/repo"})
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 2, cfg.Store.RetryAttempts)
}

func TestSaveLoad(t *testing.T) {
	m := fs.NewMemoryFS()
	p := config.Paths{Root: "/repo"}
	require.NoError(t, m.MkdirAll(p.Root, 0o755))

	cfg := config.Default()
	cfg.Hash = "blake3"
	cfg.Store.Backend = config.BackendSQLite
	cfg.Store.Compression = "lz4"
	cfg.Concurrency = 3
	require.NoError(t, config.Save(m, p, cfg))

	got, err := config.Load(m, p)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	m := fs.NewMemoryFS()
	p := config.Paths{Root: "/repo"}
	require.NoError(t, m.MkdirAll(p.Root, 0o755))
	require.NoError(t, m.WriteFile(p.ConfigFile(), []byte("store:\n  backend: badger\n"), 0o644))

	cfg, err := config.Load(m, p)
	require.NoError(t, err)
	assert.Equal(t, config.BackendBadger, cfg.Store.Backend)
	assert.Equal(t, "xxh3", cfg.Hash)
	assert.Equal(t, int64(config.DefaultBlobCacheSize), cfg.Cache.BlobCacheSize)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*config.Config){
		"hash":        func(c *config.Config) { c.Hash = "md5" },
		"backend":     func(c *config.Config) { c.Store.Backend = "s3" },
		"compression": func(c *config.Config) { c.Store.Compression = "gzip" },
		"negative":    func(c *config.Config) { c.Store.RetryAttempts = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			assert.True(t, errors.Is(cfg.Validate(), config.ErrInvalidConfig))
		})
	}
}

func TestResolveRepoDir(t *testing.T) {
	m := fs.NewMemoryFS()
	require.NoError(t, m.MkdirAll("/work/.bvctree", 0o755))
	require.NoError(t, m.MkdirAll("/work/a/b", 0o755))

	dir, err := config.ResolveRepoDir(m, "/work/a/b")
	require.NoError(t, err)
	assert.Equal(t, "/work/.bvctree", dir)

	require.NoError(t, m.MkdirAll("/other", 0o755))
	require.NoError(t, m.WriteFile("/other/.bvctree-pointer", []byte("/store/repo\n"), 0o644))
	dir, err = config.ResolveRepoDir(m, "/other")
	require.NoError(t, err)
	assert.Equal(t, "/store/repo", dir)

	_, err = config.ResolveRepoDir(m, "/nowhere")
	assert.True(t, errors.Is(err, config.ErrNoRepository))
}
