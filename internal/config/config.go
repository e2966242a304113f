package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/keshon/bvctree/internal/compress"
	"github.com/keshon/bvctree/internal/fs"
	"github.com/keshon/bvctree/internal/hash"
)

const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

const (
	DefaultRetryAttempts = 2
	DefaultBlobCacheSize = 64 << 20
	DefaultPoolSize      = 4
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Hash        string      `yaml:"hash"`
	Store       StoreConfig `yaml:"store"`
	Cache       CacheConfig `yaml:"cache"`
	Concurrency int         `yaml:"concurrency"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend"`
	Compression   string `yaml:"compression"`
	SyncWrites    bool   `yaml:"sync_writes"`
	PoolSize      int    `yaml:"pool_size"`
	RetryAttempts int    `yaml:"retry_attempts"`
}

type CacheConfig struct {
	// BlobCacheSize bounds the read cache in bytes. Zero disables it.
	BlobCacheSize int64 `yaml:"blob_cache_size"`
}

func Default() Config {
	return Config{
		Hash: string(hash.Default),
		Store: StoreConfig{
			Backend:       BackendFile,
			Compression:   compress.Zstd.String(),
			SyncWrites:    true,
			PoolSize:      DefaultPoolSize,
			RetryAttempts: DefaultRetryAttempts,
		},
		Cache: CacheConfig{BlobCacheSize: DefaultBlobCacheSize},
	}
}

// Validate checks every enumerated field.
func (c Config) Validate() error {
	if _, err := hash.New(c.Hash); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Store.Backend {
	case BackendFile, BackendBadger, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if _, err := compress.ParseTag(c.Store.Compression); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Store.RetryAttempts < 0 || c.Store.PoolSize < 0 || c.Cache.BlobCacheSize < 0 || c.Concurrency < 0 {
		return fmt.Errorf("%w: negative value", ErrInvalidConfig)
	}
	return nil
}

func (c Config) Algorithm() hash.Algorithm { return hash.MustNew(c.Hash).Algorithm() }

func (c Config) CompressionTag() compress.Tag {
	tag, _ := compress.ParseTag(c.Store.Compression)
	return tag
}

// Load reads the repository config. A missing file yields Default. Fields
// absent from the file keep their default values.
func Load(fsys fs.FS, p Paths) (Config, error) {
	cfg := Default()
	data, err := fsys.ReadFile(p.ConfigFile())
	if err != nil {
		if fsys.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", p.ConfigFile(), err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg atomically.
func Save(fsys fs.FS, p Paths, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return fs.WriteFileAtomic(fsys, p.ConfigFile(), data)
}
