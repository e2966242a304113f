package manifest_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/keshon/bvctree/internal/hash"
	"github.com/keshon/bvctree/internal/manifest"
)

// memStore is a manifest.Store backed by maps. It records every write so
// tests can assert on what was (or was not) persisted.
type memStore struct {
	hasher hash.Hasher

	mu      sync.Mutex
	blobs   map[string][]byte
	parents map[hash.ID]manifest.Parents
	written []string // paths of tree writes, in completion order
	failAt  string   // PutBlob fails for this path
}

func newMemStore() *memStore {
	return &memStore{
		hasher:  hash.MustNew("xxh3"),
		blobs:   make(map[string][]byte),
		parents: make(map[hash.ID]manifest.Parents),
	}
}

func key(kind manifest.Kind, id hash.ID) string { return string(kind) + "/" + string(id) }

func (s *memStore) LoadTree(_ context.Context, id hash.ID) (manifest.Listing, bool, error) {
	s.mu.Lock()
	data, ok := s.blobs[key(manifest.KindTree, id)]
	s.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	l, err := manifest.ParseRecord(data)
	return l, true, err
}

func (s *memStore) PutBlob(_ context.Context, kind manifest.Kind, data []byte, parents manifest.Parents, path manifest.Path) (hash.ID, error) {
	if s.failAt != "" && path.String() == s.failAt {
		return "", fmt.Errorf("injected failure at %s", path)
	}
	id := s.hasher.Sum(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key(kind, id)] = append([]byte(nil), data...)
	if kind == manifest.KindTree {
		s.parents[id] = parents
		s.written = append(s.written, path.String())
	}
	return id, nil
}

func (s *memStore) GetBlob(_ context.Context, kind manifest.Kind, id hash.ID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key(kind, id)]
	if !ok {
		return nil, fmt.Errorf("%s %s not found", kind, id)
	}
	return data, nil
}

func (s *memStore) writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

func (s *memStore) resetWrites() {
	s.mu.Lock()
	s.written = nil
	s.mu.Unlock()
}

// putFile stores content as a file blob.
func (s *memStore) putFile(t *testing.T, content string) hash.ID {
	t.Helper()
	id, err := s.PutBlob(context.Background(), manifest.KindFile, []byte(content), manifest.Parents{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

// putTree stores a tree record directly, bypassing the engine.
func (s *memStore) putTree(t *testing.T, entries ...manifest.ListingEntry) hash.ID {
	t.Helper()
	id, err := s.PutBlob(context.Background(), manifest.KindTree, manifest.EncodeRecord(entries), manifest.Parents{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.resetWrites()
	return id
}

func entry(name string, id hash.ID, typ manifest.Type) manifest.ListingEntry {
	return manifest.ListingEntry{Name: manifest.MustElement(name), ID: id, Type: typ}
}

// fixture mirrors a small repository:
//
//	1            file
//	2            file
//	dir1         file
//	dir2/        tree
//	  file_1_in_dir2
//	  sub/
//	    deep     executable
type fixture struct {
	store *memStore
	root  hash.ID
	dir2  hash.ID
	sub   hash.ID
	file  hash.ID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s := newMemStore()
	f1 := s.putFile(t, "1\n")
	f2 := s.putFile(t, "2\n")
	f3 := s.putFile(t, "dir1\n")
	f4 := s.putFile(t, "in dir2\n")
	f5 := s.putFile(t, "#!/bin/sh\n")

	sub := s.putTree(t, entry("deep", f5, manifest.TypeExecutable))
	dir2 := s.putTree(t,
		entry("file_1_in_dir2", f4, manifest.TypeFile),
		entry("sub", sub, manifest.TypeTree),
	)
	root := s.putTree(t,
		entry("1", f1, manifest.TypeFile),
		entry("2", f2, manifest.TypeFile),
		entry("dir1", f3, manifest.TypeFile),
		entry("dir2", dir2, manifest.TypeTree),
	)
	return fixture{store: s, root: root, dir2: dir2, sub: sub, file: f1}
}
