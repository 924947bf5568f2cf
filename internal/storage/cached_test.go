package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStorage struct {
	objects   map[string][]byte
	downloads int
}

func newCountingStorage() *countingStorage {
	return &countingStorage{objects: map[string][]byte{}}
}

func (s *countingStorage) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *countingStorage) Download(_ context.Context, key string) ([]byte, error) {
	s.downloads++
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("get object %q: %w", key, ErrNotFound)
	}
	return data, nil
}

func (s *countingStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *countingStorage) PublicURL(key string) string {
	return "http://objects/" + key
}

func TestCachedStorageServesRepeatReadsFromCache(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStorage()
	cached, err := NewCachedStorage(inner, 2)
	require.NoError(t, err)

	require.NoError(t, cached.Upload(ctx, "a.jpg", bytes.NewReader([]byte("A")), 1, "image/jpeg"))

	for i := 0; i < 3; i++ {
		data, err := cached.Download(ctx, "a.jpg")
		require.NoError(t, err)
		assert.Equal(t, []byte("A"), data)
	}
	assert.Equal(t, 1, inner.downloads)
	assert.Equal(t, 1, cached.Len())
}

func TestCachedStorageInvalidatesOnDeleteAndUpload(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStorage()
	cached, err := NewCachedStorage(inner, 4)
	require.NoError(t, err)

	require.NoError(t, cached.Upload(ctx, "a.jpg", bytes.NewReader([]byte("v1")), 2, "image/jpeg"))
	_, err = cached.Download(ctx, "a.jpg")
	require.NoError(t, err)

	require.NoError(t, cached.Upload(ctx, "a.jpg", bytes.NewReader([]byte("v2")), 2, "image/jpeg"))
	data, err := cached.Download(ctx, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	require.NoError(t, cached.Delete(ctx, "a.jpg"))
	_, err = cached.Download(ctx, "a.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, cached.Len())
}

func TestCachedStorageEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStorage()
	cached, err := NewCachedStorage(inner, 1)
	require.NoError(t, err)

	inner.objects["a"] = []byte("A")
	inner.objects["b"] = []byte("B")

	_, _ = cached.Download(ctx, "a")
	_, _ = cached.Download(ctx, "b")
	_, _ = cached.Download(ctx, "a")

	assert.Equal(t, 3, inner.downloads)
	assert.Equal(t, "http://objects/a", cached.PublicURL("a"))
}

func TestNewCachedStorageRejectsZeroSize(t *testing.T) {
	_, err := NewCachedStorage(newCountingStorage(), 0)
	assert.Error(t, err)
}

func TestPublicReadPolicy(t *testing.T) {
	var policy struct {
		Statement []struct {
			Action   string
			Resource string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(publicReadPolicy("photos")), &policy))
	require.Len(t, policy.Statement, 1)
	assert.Equal(t, "s3:GetObject", policy.Statement[0].Action)
	assert.Equal(t, "arn:aws:s3:::photos/*", policy.Statement[0].Resource)
}

func TestMinioPublicURL(t *testing.T) {
	s := &MinioStorage{publicBase: "http://localhost:9000/photos"}
	assert.Equal(t, "http://localhost:9000/photos/k1.jpg", s.PublicURL("k1.jpg"))
}
