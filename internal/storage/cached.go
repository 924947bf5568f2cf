package storage

import (
	"context"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStorage is a read-through LRU in front of another Storage.
// Objects are immutable once written under a fresh key, so the only
// invalidation needed is on overwrite and delete.
type CachedStorage struct {
	inner Storage
	cache *lru.Cache[string, []byte]
}

// NewCachedStorage wraps inner with an LRU holding at most size objects.
func NewCachedStorage(inner Storage, size int) (*CachedStorage, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create object cache: %w", err)
	}
	return &CachedStorage{inner: inner, cache: cache}, nil
}

// Upload writes through and drops any stale cached copy.
func (c *CachedStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	c.cache.Remove(key)
	return c.inner.Upload(ctx, key, reader, size, contentType)
}

// Download serves from the cache when possible.
func (c *CachedStorage) Download(ctx context.Context, key string) ([]byte, error) {
	if data, ok := c.cache.Get(key); ok {
		return data, nil
	}
	data, err := c.inner.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, data)
	return data, nil
}

// Delete removes the object and its cached copy.
func (c *CachedStorage) Delete(ctx context.Context, key string) error {
	c.cache.Remove(key)
	return c.inner.Delete(ctx, key)
}

// PublicURL delegates to the wrapped storage.
func (c *CachedStorage) PublicURL(key string) string {
	return c.inner.PublicURL(key)
}

// Len reports how many objects are currently cached.
func (c *CachedStorage) Len() int {
	return c.cache.Len()
}
