package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "photos", cfg.StorageBucket)
	assert.Equal(t, 50, cfg.JPEGQuality)
	assert.Equal(t, 8, cfg.FetchConcurrency)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.False(t, cfg.AuthEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_USE_SSL", "true")
	t.Setenv("FETCH_CONCURRENCY", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.AuthEnabled())
	assert.True(t, cfg.StorageUseSSL)
	assert.Equal(t, 3, cfg.FetchConcurrency)
}

func TestLoadRejectsInvalidQuality(t *testing.T) {
	t.Setenv("JPEG_QUALITY", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JPEG_QUALITY")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{JPEGQuality: 101, FetchConcurrency: 0, ObjectCacheSize: 0, MaxUploadBytes: 0}

	err := cfg.Validate()
	require.Error(t, err)
	for _, name := range []string{"JPEG_QUALITY", "FETCH_CONCURRENCY", "OBJECT_CACHE_SIZE", "MAX_UPLOAD_BYTES"} {
		assert.Contains(t, err.Error(), name)
	}
}
