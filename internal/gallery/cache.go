package gallery

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/photoalbum/service/internal/apperr"
)

// Image is one decoded gallery entry.
type Image struct {
	Key    string `json:"key"`
	Data   []byte `json:"-"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// decodeImage checks that data is a readable image and records its shape.
func decodeImage(key string, data []byte) (Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, apperr.Decode("decode image "+key, err)
	}
	return Image{Key: key, Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Cache is an ordered key→image mapping. Grid position i is the i-th entry;
// new keys append, existing keys are replaced in place.
type Cache struct {
	items []Image
	index map[string]int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{index: make(map[string]int)}
}

// Upsert stores img and reports whether its key was new.
func (c *Cache) Upsert(img Image) bool {
	if i, ok := c.index[img.Key]; ok {
		c.items[i] = img
		return false
	}
	c.index[img.Key] = len(c.items)
	c.items = append(c.items, img)
	return true
}

// Remove drops key and reports whether it was present.
func (c *Cache) Remove(key string) bool {
	i, ok := c.index[key]
	if !ok {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, key)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].Key] = j
	}
	return true
}

// Get returns the image stored under key.
func (c *Cache) Get(key string) (Image, bool) {
	i, ok := c.index[key]
	if !ok {
		return Image{}, false
	}
	return c.items[i], true
}

// At returns the image at grid position i.
func (c *Cache) At(i int) (Image, bool) {
	if i < 0 || i >= len(c.items) {
		return Image{}, false
	}
	return c.items[i], true
}

// Len is the number of grid cells.
func (c *Cache) Len() int {
	return len(c.items)
}

// Keys returns the keys in grid order.
func (c *Cache) Keys() []string {
	keys := make([]string, len(c.items))
	for i, img := range c.items {
		keys[i] = img.Key
	}
	return keys
}

// Items returns a copy of the entries in grid order.
func (c *Cache) Items() []Image {
	return append([]Image(nil), c.items...)
}
