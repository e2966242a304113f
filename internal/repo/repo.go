// Package repo ties configuration, a blob store and bookmarks into a
// repository the manifest engine can read and write.
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/keshon/bvctree/internal/blobstore"
	"github.com/keshon/bvctree/internal/compress"
	"github.com/keshon/bvctree/internal/config"
	"github.com/keshon/bvctree/internal/fs"
	"github.com/keshon/bvctree/internal/hash"
	"github.com/keshon/bvctree/internal/manifest"
)

var (
	ErrExist         = errors.New("repository already exists")
	ErrNotRepository = errors.New("not a repository (missing config)")
)

// Repository is an opened repository.
type Repository struct {
	Paths  config.Paths
	Config config.Config
	FS     fs.FS
	Blobs  blobstore.Blobstore
	Logger *slog.Logger

	hasher hash.Hasher
	tag    compress.Tag
}

type Options struct {
	FS         fs.FS
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

func (o Options) withDefaults() Options {
	if o.FS == nil {
		o.FS = fs.NewOSFS()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Init creates the repository layout and config at root and opens it.
func Init(root string, cfg config.Config, opts Options) (*Repository, error) {
	opts = opts.withDefaults()
	p := config.Paths{Root: root}
	if opts.FS.Exists(p.ConfigFile()) {
		return nil, fmt.Errorf("%s: %w", root, ErrExist)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, d := range []string{p.Root, p.Objects(), p.Bookmarks()} {
		if err := opts.FS.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %q: %w", d, err)
		}
	}
	if err := config.Save(opts.FS, p, cfg); err != nil {
		return nil, fmt.Errorf("write config: %w", err)
	}
	opts.Logger.Info("repository initialized",
		"root", root,
		"hash", cfg.Hash,
		"backend", cfg.Store.Backend,
	)
	return Open(root, opts)
}

// Open opens an existing repository at root.
func Open(root string, opts Options) (*Repository, error) {
	opts = opts.withDefaults()
	p := config.Paths{Root: root}
	if !opts.FS.Exists(p.ConfigFile()) {
		return nil, fmt.Errorf("%s: %w", root, ErrNotRepository)
	}
	cfg, err := config.Load(opts.FS, p)
	if err != nil {
		return nil, err
	}
	hasher, err := hash.New(cfg.Hash)
	if err != nil {
		return nil, err
	}
	blobs, err := blobstore.Open(cfg, p, blobstore.Options{
		FS:         opts.FS,
		Logger:     opts.Logger,
		Registerer: opts.Registerer,
	})
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return &Repository{
		Paths:  p,
		Config: cfg,
		FS:     opts.FS,
		Blobs:  blobs,
		Logger: opts.Logger,
		hasher: hasher,
		tag:    cfg.CompressionTag(),
	}, nil
}

func (r *Repository) Close() error { return blobstore.Close(r.Blobs) }

func (r *Repository) Hasher() hash.Hasher { return r.hasher }

// NewManifest starts an in-memory manifest from up to two parent trees.
func (r *Repository) NewManifest(ctx context.Context, p1, p2 hash.ID) (*manifest.RootManifest, error) {
	m, err := manifest.New(ctx, r, p1, p2)
	if err != nil {
		return nil, err
	}
	m.SetConcurrency(r.Config.Concurrency)
	return m, nil
}

// EmptyTree writes the tree with no entries and returns its id.
func (r *Repository) EmptyTree(ctx context.Context) (hash.ID, error) {
	return r.PutBlob(ctx, manifest.KindTree, manifest.EncodeRecord(nil), manifest.Parents{}, nil)
}

// CleanupTemp removes temp files left behind by interrupted writes. Only
// the file backend leaves any.
func (r *Repository) CleanupTemp() (int, error) {
	if r.Config.Store.Backend != config.BackendFile {
		return 0, nil
	}
	n, err := blobstore.NewFile(r.Paths.Objects(), r.FS).CleanupTemp()
	if n > 0 {
		r.Logger.Info("removed temp files", "count", n)
	}
	return n, err
}
