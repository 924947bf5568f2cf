package upload

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
)

// ContentType is the type of every object the flow writes.
const ContentType = "image/jpeg"

// Compress decodes a JPEG, PNG or GIF image and re-encodes it as JPEG at the
// given quality (1-100).
func Compress(data []byte, quality int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode %s as jpeg: %w", format, err)
	}
	return buf.Bytes(), nil
}

// NewKey returns a fresh object key. Keys never collide, so a repeated
// upload of the same picture produces a second object.
func NewKey() string {
	return uuid.NewString() + ".jpg"
}
