package upload

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoalbum/service/internal/apperr"
	"github.com/photoalbum/service/internal/metrics"
	"github.com/photoalbum/service/internal/post"
	"github.com/photoalbum/service/internal/testkit"
)

var red = color.RGBA{R: 200, A: 255}

func newTestFlow() (*Flow, *testkit.Objects, *testkit.Posts) {
	objects := testkit.NewObjects()
	posts := testkit.NewPosts()
	return NewFlow(objects, posts, nil, 50), objects, posts
}

func TestUploadStoresObjectAndRecord(t *testing.T) {
	flow, objects, posts := newTestFlow()

	saved, err := flow.Upload(context.Background(), testkit.PNG(8, 6, red))
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.True(t, strings.HasSuffix(saved.ImageKey, ".jpg"))

	records, err := posts.Query(context.Background(), post.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, saved.ImageKey, records[0].ImageKey)

	stored, ok := objects.Get(saved.ImageKey)
	require.True(t, ok)
	assert.Equal(t, ContentType, objects.ContentType(saved.ImageKey))

	img, format, err := image.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
}

func TestUploadedObjectIsByteIdenticalOnFetch(t *testing.T) {
	flow, objects, posts := newTestFlow()
	src := testkit.JPEG(4, 4, red)
	want, err := Compress(src, 50)
	require.NoError(t, err)

	saved, err := flow.Upload(context.Background(), src)
	require.NoError(t, err)

	records, err := posts.Query(context.Background(), post.Filter{ImageKey: saved.ImageKey})
	require.NoError(t, err)
	require.Len(t, records, 1)

	got, err := objects.Download(context.Background(), records[0].ImageKey)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUploadGeneratesFreshKeys(t *testing.T) {
	flow, objects, posts := newTestFlow()
	img := testkit.PNG(2, 2, red)

	first, err := flow.Upload(context.Background(), img)
	require.NoError(t, err)
	second, err := flow.Upload(context.Background(), img)
	require.NoError(t, err)

	assert.NotEqual(t, first.ImageKey, second.ImageKey)
	assert.Equal(t, 2, objects.Len())
	assert.Len(t, posts.All(), 2)
}

func TestUploadFailureSkipsRecordSave(t *testing.T) {
	flow, objects, posts := newTestFlow()
	objects.FailUploads(errors.New("connection reset"))

	_, err := flow.Upload(context.Background(), testkit.PNG(2, 2, red))
	require.Error(t, err)

	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
	alert, ok := apperr.AlertOf(err)
	require.True(t, ok)
	assert.Equal(t, UploadAlert, alert)
	assert.Empty(t, posts.All())
	assert.Equal(t, 0, objects.Len())
}

func TestSaveFailureDeletesUploadedObject(t *testing.T) {
	flow, objects, posts := newTestFlow()
	posts.FailSaves(errors.New("datastore unavailable"))

	_, err := flow.Upload(context.Background(), testkit.PNG(2, 2, red))
	require.Error(t, err)

	alert, ok := apperr.AlertOf(err)
	require.True(t, ok)
	assert.Equal(t, SaveAlert, alert)
	assert.Equal(t, 0, objects.Len(), "orphaned object must be removed")
	assert.Len(t, objects.Deletes(), 1)
}

func TestSaveFailureSurvivesFailedCleanup(t *testing.T) {
	flow, objects, posts := newTestFlow()
	posts.FailSaves(errors.New("datastore unavailable"))
	objects.FailDeletes(errors.New("forbidden"))

	_, err := flow.Upload(context.Background(), testkit.PNG(2, 2, red))

	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
	assert.Equal(t, 1, objects.Len())
}

func TestUploadRejectsNonImage(t *testing.T) {
	flow, objects, _ := newTestFlow()

	_, err := flow.Upload(context.Background(), []byte("definitely not an image"))

	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
	assert.Equal(t, 0, objects.Len())
}

func TestUploadRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	objects := testkit.NewObjects()
	flow := NewFlow(objects, testkit.NewPosts(), metrics.MustNew(reg), 50)

	_, err := flow.Upload(context.Background(), testkit.PNG(2, 2, red))
	require.NoError(t, err)
	objects.FailUploads(errors.New("down"))
	_, _ = flow.Upload(context.Background(), testkit.PNG(2, 2, red))

	count, err := testutil.GatherAndCount(reg, "photoalbum_upload_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCompressHonoursQuality(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8(x ^ y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, &jpeg.Options{Quality: 100}))

	low, err := Compress(buf.Bytes(), 10)
	require.NoError(t, err)
	high, err := Compress(buf.Bytes(), 95)
	require.NoError(t, err)

	assert.Less(t, len(low), len(high))
}

func TestNewKey(t *testing.T) {
	a, b := NewKey(), NewKey()

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.Len(t, a, 36+len(".jpg"))
}
