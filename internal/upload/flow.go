// Package upload turns a picked image into a stored object and the post
// record that points at it.
package upload

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/photoalbum/service/internal/apperr"
	"github.com/photoalbum/service/internal/metrics"
	"github.com/photoalbum/service/internal/post"
)

// Alerts raised by the flow.
var (
	InvalidImageAlert = apperr.Alert{Title: "Error", Message: "Could not read image"}
	UploadAlert       = apperr.Alert{Title: "Error", Message: "Could not upload image"}
	SaveAlert         = apperr.Alert{Title: "Error", Message: "Could not save image"}
)

// Objects is the subset of object storage the flow writes to.
type Objects interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Posts is the subset of the record store the flow writes to.
type Posts interface {
	Save(ctx context.Context, p post.Post) (post.Post, error)
}

// Flow uploads images and records them as posts.
type Flow struct {
	objects Objects
	posts   Posts
	metrics *metrics.Metrics
	quality int
	newKey  func() string
}

// NewFlow creates a Flow that re-encodes uploads at the given JPEG quality.
func NewFlow(objects Objects, posts Posts, m *metrics.Metrics, quality int) *Flow {
	return &Flow{
		objects: objects,
		posts:   posts,
		metrics: m,
		quality: quality,
		newKey:  NewKey,
	}
}

// Upload compresses image, stores it under a new key and saves a Post
// referencing that key. Nothing is retried.
//
// If the object upload fails no record is written. If the record save fails
// the just-written object is deleted so it does not linger unreferenced.
func (f *Flow) Upload(ctx context.Context, image []byte) (p post.Post, err error) {
	start := time.Now()
	defer func() {
		f.metrics.Upload(err)
		f.metrics.Observe("upload", start, err)
	}()

	data, err := Compress(image, f.quality)
	if err != nil {
		return post.Post{}, apperr.Invalid("compress image", InvalidImageAlert, err)
	}

	key := f.newKey()
	if err := f.objects.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), ContentType); err != nil {
		slog.Error("upload: failed to upload", "key", key, "error", err)
		return post.Post{}, apperr.Network("upload image", UploadAlert, err)
	}
	slog.Info("upload: stored image", "key", key, "bytes", len(data))

	saved, err := f.posts.Save(ctx, post.Post{ImageKey: key})
	if err != nil {
		slog.Error("upload: failed to save post", "key", key, "error", err)
		f.discard(key)
		return post.Post{}, apperr.Network("save post", SaveAlert, err)
	}
	slog.Info("upload: saved post", "id", saved.ID, "key", key)
	return saved, nil
}

// discard removes an object whose record could not be saved. It runs on a
// fresh context because the caller's may be the reason the save failed.
func (f *Flow) discard(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := f.objects.Delete(ctx, key); err != nil {
		slog.Warn("upload: orphaned object left in storage", "key", key, "error", err)
	}
}
