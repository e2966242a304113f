package blobstore

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/keshon/bvctree/internal/config"
	"github.com/keshon/bvctree/internal/fs"
)

type Options struct {
	FS     fs.FS
	Logger *slog.Logger
	// Registerer receives the store metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer
}

// Open builds the configured backend and layers retry, metrics and the
// read cache on top, in that order.
func Open(cfg config.Config, paths config.Paths, opts Options) (Blobstore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = fs.NewOSFS()
	}

	var (
		base Blobstore
		err  error
	)
	switch cfg.Store.Backend {
	case config.BackendFile:
		base = NewFile(paths.Objects(), fsys)
	case config.BackendMemory:
		base = NewMemory()
	case config.BackendBadger:
		base, err = OpenBadger(BadgerConfig{
			Path:       paths.Badger(),
			SyncWrites: cfg.Store.SyncWrites,
			Logger:     logger.With("component", "badger"),
		})
	case config.BackendSQLite:
		base, err = OpenSQLite(SQLiteConfig{
			Path:     paths.SQLite(),
			PoolSize: cfg.Store.PoolSize,
			Logger:   logger.With("component", "sqlite"),
		})
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}

	var s Blobstore = base
	if cfg.Store.RetryAttempts > 0 {
		s = NewRetry(s, cfg.Store.RetryAttempts, logger)
	}
	s = NewInstrumented(s, NewMetrics(opts.Registerer))
	if cfg.Cache.BlobCacheSize > 0 {
		c, err := NewCache(s, cfg.Cache.BlobCacheSize)
		if err != nil {
			Close(s)
			return nil, err
		}
		s = c
	}
	logger.Debug("blob store opened",
		"backend", cfg.Store.Backend,
		"retry_attempts", cfg.Store.RetryAttempts,
		"cache_bytes", cfg.Cache.BlobCacheSize,
	)
	return s, nil
}
