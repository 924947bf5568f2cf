package gallery

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoalbum/service/internal/apperr"
	"github.com/photoalbum/service/internal/testkit"
)

func TestCacheOrderAndUpsert(t *testing.T) {
	c := NewCache()

	assert.True(t, c.Upsert(Image{Key: "a"}))
	assert.True(t, c.Upsert(Image{Key: "b"}))
	assert.True(t, c.Upsert(Image{Key: "c"}))
	assert.False(t, c.Upsert(Image{Key: "b", Format: "png"}))

	assert.Equal(t, []string{"a", "b", "c"}, c.Keys())
	img, ok := c.At(1)
	require.True(t, ok)
	assert.Equal(t, "png", img.Format, "last write wins in place")
	assert.Equal(t, 3, c.Len())
}

func TestCacheRemoveReindexes(t *testing.T) {
	c := NewCache()
	for _, key := range []string{"a", "b", "c", "d"} {
		c.Upsert(Image{Key: key})
	}

	assert.True(t, c.Remove("b"))
	assert.False(t, c.Remove("b"))

	assert.Equal(t, []string{"a", "c", "d"}, c.Keys())
	for i, key := range c.Keys() {
		img, ok := c.Get(key)
		require.True(t, ok)
		at, _ := c.At(i)
		assert.Equal(t, img, at)
	}

	c.Upsert(Image{Key: "b"})
	assert.Equal(t, []string{"a", "c", "d", "b"}, c.Keys())
}

func TestCacheBounds(t *testing.T) {
	c := NewCache()
	c.Upsert(Image{Key: "a"})

	_, ok := c.At(-1)
	assert.False(t, ok)
	_, ok = c.At(1)
	assert.False(t, ok)
	_, ok = c.Get("zzz")
	assert.False(t, ok)
}

func TestCacheItemsIsACopy(t *testing.T) {
	c := NewCache()
	c.Upsert(Image{Key: "a"})

	items := c.Items()
	items[0].Key = "mutated"

	assert.Equal(t, []string{"a"}, c.Keys())
}

func TestDecodeImage(t *testing.T) {
	img, err := decodeImage("k1", testkit.PNG(5, 3, color.White))
	require.NoError(t, err)
	assert.Equal(t, Image{Key: "k1", Data: img.Data, Format: "png", Width: 5, Height: 3}, img)

	_, err = decodeImage("k2", []byte("nope"))
	assert.Equal(t, apperr.KindDecode, apperr.KindOf(err))
}
