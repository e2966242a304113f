package blobstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through cache bounded by total value bytes. Concurrent
// misses on one key share a single backend read.
type Cache struct {
	next  Blobstore
	cache *ristretto.Cache[string, []byte]
	group singleflight.Group
}

func NewCache(next Blobstore, maxBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// ten counters per expected item, assuming ~1 KiB objects
		NumCounters: max(maxBytes/100, 1000),
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create blob cache: %w", err)
	}
	return &Cache{next: next, cache: c}, nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.cache.Get(key); ok {
		return append([]byte(nil), v...), nil
	}
	// The shared read outlives any single caller; each caller still stops
	// waiting when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		data, err := c.next.Get(shared, key)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, data, int64(len(data)))
		return data, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]byte(nil), res.Val.([]byte)...), nil
	}
}

func (c *Cache) Put(ctx context.Context, key string, value []byte) error {
	if err := c.next.Put(ctx, key, value); err != nil {
		return err
	}
	c.cache.Set(key, append([]byte(nil), value...), int64(len(value)))
	return nil
}

func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	if _, ok := c.cache.Get(key); ok {
		return true, nil
	}
	return c.next.Has(ctx, key)
}

// Wait blocks until buffered cache writes are applied.
func (c *Cache) Wait() { c.cache.Wait() }

func (c *Cache) Close() error {
	c.cache.Close()
	return Close(c.next)
}
