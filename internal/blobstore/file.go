package blobstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/keshon/bvctree/internal/fs"
)

// File stores one blob per file under Dir, sharded by the last two
// characters of the key: <Dir>/<xx>/<key>.bin.
type File struct {
	Dir string
	FS  fs.FS
}

func NewFile(dir string, fsys fs.FS) *File {
	return &File{Dir: dir, FS: fsys}
}

func (f *File) path(key string) string {
	shard := key
	if len(key) > 2 {
		shard = key[len(key)-2:]
	}
	return filepath.Join(f.Dir, shard, key+".bin")
}

func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := f.FS.ReadFile(f.path(key))
	if err != nil {
		if f.FS.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob %q: %w", key, err)
	}
	return data, nil
}

// Put writes value atomically through a temp file. Existing keys are left
// untouched.
func (f *File) Put(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := f.path(key)
	if f.FS.Exists(dst) {
		return nil
	}
	if err := f.FS.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("ensure dir for %q: %w", dst, err)
	}
	if err := fs.WriteFileAtomic(f.FS, dst, value); err != nil {
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	return nil
}

func (f *File) Has(_ context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	return f.FS.Exists(f.path(key)), nil
}

// CleanupTemp removes temp files left behind by interrupted writes.
func (f *File) CleanupTemp() (int, error) {
	shards, err := f.FS.ReadDir(f.Dir)
	if err != nil {
		if f.FS.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		dir := filepath.Join(f.Dir, shard.Name())
		entries, err := f.FS.ReadDir(dir)
		if err != nil {
			return removed, err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasPrefix(e.Name(), ".tmp-") {
				continue
			}
			if err := f.FS.Remove(filepath.Join(dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
