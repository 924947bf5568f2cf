package upload

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoalbum/service/internal/post"
	"github.com/photoalbum/service/internal/testkit"
)

type blockingUploader struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingUploader) Upload(ctx context.Context, _ []byte) (post.Post, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return post.Post{ImageKey: "k1.jpg"}, nil
}

func TestPickerLifecycle(t *testing.T) {
	flow, _, posts := newTestFlow()
	picker := NewPicker(flow)

	assert.Equal(t, AffordancePick, picker.Affordance())

	picker.Pick(testkit.PNG(2, 2, red))
	assert.Equal(t, AffordanceUpload, picker.Affordance())

	saved, err := picker.Submit(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ImageKey)
	assert.Equal(t, AffordancePick, picker.Affordance(), "success returns control to picking")
	assert.Len(t, posts.All(), 1)
}

func TestPickerKeepsImageOnFailure(t *testing.T) {
	flow, objects, _ := newTestFlow()
	objects.FailUploads(errors.New("offline"))
	picker := NewPicker(flow)
	picker.Pick(testkit.PNG(2, 2, red))

	_, err := picker.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, AffordanceUpload, picker.Affordance())

	objects.FailUploads(nil)
	_, err = picker.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AffordancePick, picker.Affordance())
}

func TestPickerSubmitWithoutPick(t *testing.T) {
	flow, _, _ := newTestFlow()
	picker := NewPicker(flow)

	_, err := picker.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNothingPicked)
}

func TestPickerCancel(t *testing.T) {
	flow, _, _ := newTestFlow()
	picker := NewPicker(flow)
	picker.Pick(testkit.PNG(2, 2, red))

	picker.Cancel()

	assert.Equal(t, AffordancePick, picker.Affordance())
}

func TestPickerRejectsSubmitWhileUploading(t *testing.T) {
	up := &blockingUploader{started: make(chan struct{}), release: make(chan struct{})}
	picker := NewPicker(up)
	picker.Pick([]byte("img"))

	done := make(chan error, 1)
	go func() {
		_, err := picker.Submit(context.Background())
		done <- err
	}()

	<-up.started
	_, err := picker.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(up.release)
	require.NoError(t, <-done)

	picker.Pick([]byte("img"))
	_, err = picker.Submit(context.Background())
	assert.NoError(t, err)
}
