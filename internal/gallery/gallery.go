// Package gallery keeps an in-memory, ordered copy of every stored photo in
// step with the record store: full refreshes, live change events and
// delete-by-selection.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/photoalbum/service/internal/apperr"
	"github.com/photoalbum/service/internal/metrics"
	"github.com/photoalbum/service/internal/post"
	"github.com/photoalbum/service/internal/uiloop"
)

// Alerts raised by the gallery.
var (
	QueryAlert    = apperr.Alert{Title: "Failed", Message: "Could not get images from backend."}
	DownloadAlert = apperr.Alert{Title: "Failed", Message: "Could not download images from backend."}
	EmptyAlert    = apperr.Alert{Title: "No Photos Present", Message: "There aren't any photos. You haven't saved your photos to the backend yet."}
	LookupAlert   = apperr.Alert{Title: "Failed to Fetch", Message: "Could not query data from backend."}
	DeleteAlert   = apperr.Alert{Title: "Failed to Delete", Message: "Could not delete images from backend."}
)

// ErrNotUnique is returned by Delete when the key does not identify exactly
// one post. Zero and several matches are deliberately not distinguished.
var ErrNotUnique = errors.New("did not find exactly one post")

// ErrNoSelection is returned by DeleteAt for an out-of-range position.
var ErrNoSelection = errors.New("no photo at selected position")

// State is the loading state of the gallery.
type State int

const (
	Idle State = iota
	Loading
	Populated
	Empty
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Populated:
		return "populated"
	case Empty:
		return "empty"
	default:
		return "idle"
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Objects is the subset of object storage the gallery reads and deletes.
type Objects interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Posts is the subset of the record store the gallery uses.
type Posts interface {
	Query(ctx context.Context, f post.Filter) ([]post.Post, error)
	Delete(ctx context.Context, p post.Post) error
}

// Options tunes a Gallery.
type Options struct {
	// Concurrency bounds parallel object downloads during Refresh.
	Concurrency int
	Metrics     *metrics.Metrics
	// OnAlert is invoked on the loop for every user-facing failure.
	OnAlert func(apperr.Alert)
}

// Gallery owns the image cache. Cache and state are touched only from tasks
// running on the loop; network calls happen on the caller's goroutine.
type Gallery struct {
	objects Objects
	posts   Posts
	loop    *uiloop.Loop
	opts    Options

	cache *Cache
	state State

	// Refresh bookkeeping, loop-owned. Refreshes may overlap; the gallery
	// stays Loading until the last one finishes.
	refreshing int
	restore    State
	changed    bool
	removed    map[string]bool
}

// New creates an idle, empty Gallery.
func New(objects Objects, posts Posts, loop *uiloop.Loop, opts Options) *Gallery {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Gallery{
		objects: objects,
		posts:   posts,
		loop:    loop,
		opts:    opts,
		cache:   NewCache(),
	}
}

func (g *Gallery) alert(a apperr.Alert) {
	if g.opts.OnAlert == nil {
		return
	}
	g.loop.Dispatch(func() { g.opts.OnAlert(a) })
}

// settle moves the gallery to Populated or Empty unless a refresh is in
// flight, in which case the last refresh to finish settles it. Runs on the loop.
func (g *Gallery) settle() {
	g.opts.Metrics.CacheSize(g.cache.Len())
	if g.refreshing > 0 {
		g.changed = true
		return
	}
	if g.cache.Len() > 0 {
		g.state = Populated
	} else {
		g.state = Empty
	}
}

// upsert stores an image delivered by a live event. Runs on the loop.
func (g *Gallery) upsert(img Image) {
	delete(g.removed, img.Key)
	g.cache.Upsert(img)
	g.settle()
}

// remove drops key and keeps refreshes in flight from restoring it.
// Runs on the loop.
func (g *Gallery) remove(key string) {
	g.cache.Remove(key)
	if g.removed != nil {
		g.removed[key] = true
	}
	g.settle()
}

// beginRefresh enters Loading and returns the keys cached at this point.
// Runs on the loop.
func (g *Gallery) beginRefresh() []string {
	if g.refreshing == 0 {
		g.restore = g.state
		g.changed = false
		g.removed = make(map[string]bool)
	}
	g.refreshing++
	g.state = Loading
	return g.cache.Keys()
}

// endRefresh leaves Loading once no refresh is in flight. If nothing touched
// the cache meanwhile the state from before the first refresh is restored.
// Runs on the loop.
func (g *Gallery) endRefresh() {
	g.refreshing--
	if g.refreshing > 0 {
		return
	}
	g.removed = nil
	if g.changed {
		g.settle()
		return
	}
	g.state = g.restore
	g.opts.Metrics.CacheSize(g.cache.Len())
}

// fetch downloads and decodes one image.
func (g *Gallery) fetch(ctx context.Context, key string) (Image, error) {
	data, err := g.objects.Download(ctx, key)
	g.opts.Metrics.Fetch(err)
	if err != nil {
		return Image{}, apperr.Network("download image", DownloadAlert, err)
	}
	return decodeImage(key, data)
}

// Refresh queries every post, downloads its image and brings the cache in
// line with the result. Downloads run concurrently; the cache is updated in
// query order once they finish, so grid order does not depend on which
// download completed first. Entries for posts that no longer exist are
// dropped; live events that land during the refresh are kept, and keys
// deleted during the refresh stay deleted.
func (g *Gallery) Refresh(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { g.opts.Metrics.Observe("refresh", start, err) }()

	// Loading must always be left again, even when ctx is cancelled.
	bg := context.WithoutCancel(ctx)

	var before []string
	if err := g.loop.Sync(bg, func() { before = g.beginRefresh() }); err != nil {
		return err
	}

	posts, err := g.posts.Query(ctx, post.Filter{})
	if err != nil {
		slog.Error("gallery: query failed", "error", err)
		_ = g.loop.Sync(bg, g.endRefresh)
		g.alert(QueryAlert)
		return apperr.Network("query posts", QueryAlert, err)
	}
	slog.Debug("gallery: refreshing", "posts", len(posts))

	results := make([]*Image, len(posts))
	var (
		mu       sync.Mutex
		failures []error
	)
	var eg errgroup.Group
	eg.SetLimit(g.opts.Concurrency)
	for i, p := range posts {
		i, key := i, p.ImageKey
		eg.Go(func() error {
			img, err := g.fetch(ctx, key)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindDecode {
					slog.Warn("gallery: skipping undecodable image", "key", key, "error", err)
					return nil
				}
				slog.Error("gallery: failed to download image", "key", key, "error", err)
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
				return nil
			}
			results[i] = &img
			return nil
		})
	}
	_ = eg.Wait()

	current := make(map[string]bool, len(posts))
	for _, p := range posts {
		current[p.ImageKey] = true
	}
	if err := g.loop.Sync(bg, func() {
		for _, key := range before {
			if !current[key] {
				g.cache.Remove(key)
			}
		}
		for _, img := range results {
			if img != nil && !g.removed[img.Key] {
				g.cache.Upsert(*img)
			}
		}
		g.changed = true
		g.endRefresh()
	}); err != nil {
		return err
	}

	if len(posts) == 0 {
		g.alert(EmptyAlert)
	}
	if len(failures) > 0 {
		g.alert(DownloadAlert)
		return apperr.Network("download images", DownloadAlert, errors.Join(failures...))
	}
	return nil
}

// Subscribe applies change events until ctx is done or events is closed.
// Created and Updated fetch the image and upsert it; Deleted drops it.
func (g *Gallery) Subscribe(ctx context.Context, events <-chan post.ChangeEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			g.apply(ctx, ev)
		}
	}
}

func (g *Gallery) apply(ctx context.Context, ev post.ChangeEvent) {
	key := ev.Post.ImageKey
	g.opts.Metrics.ChangeEvent(string(ev.Type))
	slog.Debug("gallery: change event", "type", ev.Type, "key", key)

	switch ev.Type {
	case post.Created, post.Updated:
		img, err := g.fetch(ctx, key)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindDecode {
				slog.Warn("gallery: skipping undecodable image", "key", key, "error", err)
				return
			}
			slog.Error("gallery: failed to download image", "key", key, "error", err)
			g.alert(DownloadAlert)
			return
		}
		g.loop.Dispatch(func() { g.upsert(img) })
	case post.Deleted:
		g.loop.Dispatch(func() { g.remove(key) })
	}
}

// Delete removes the post identified by key, then its cache entry, then its
// object. Unless exactly one post matches, nothing is changed.
func (g *Gallery) Delete(ctx context.Context, key string) (err error) {
	start := time.Now()
	defer func() { g.opts.Metrics.Observe("delete", start, err) }()

	matches, err := g.posts.Query(ctx, post.Filter{ImageKey: key})
	if err != nil {
		slog.Error("gallery: could not query posts", "key", key, "error", err)
		g.alert(LookupAlert)
		return apperr.Network("query posts", LookupAlert, err)
	}
	if len(matches) != 1 {
		slog.Warn("gallery: did not find exactly one post, bailing", "key", key, "matches", len(matches))
		return fmt.Errorf("delete %q: %w", key, ErrNotUnique)
	}

	if err := g.posts.Delete(ctx, matches[0]); err != nil {
		slog.Error("gallery: could not delete post", "key", key, "error", err)
		g.alert(DeleteAlert)
		return apperr.Network("delete post", DeleteAlert, err)
	}
	slog.Info("gallery: deleted post", "id", matches[0].ID, "key", key)

	// The record is gone; the cache must follow even if ctx ends now.
	if err := g.loop.Sync(context.WithoutCancel(ctx), func() { g.remove(key) }); err != nil {
		return err
	}

	if err := g.objects.Delete(ctx, key); err != nil {
		slog.Warn("gallery: object left in storage after post delete", "key", key, "error", err)
	}
	return nil
}

// DeleteAt deletes the photo shown at grid position i.
func (g *Gallery) DeleteAt(ctx context.Context, i int) error {
	var (
		img Image
		ok  bool
	)
	if err := g.loop.Sync(ctx, func() { img, ok = g.cache.At(i) }); err != nil {
		return err
	}
	if !ok {
		return ErrNoSelection
	}
	return g.Delete(ctx, img.Key)
}

// Snapshot is a consistent view of the gallery for rendering.
type Snapshot struct {
	State State   `json:"state"`
	Items []Image `json:"items"`
}

// Snapshot copies the current state and grid.
func (g *Gallery) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := g.loop.Sync(ctx, func() {
		s = Snapshot{State: g.state, Items: g.cache.Items()}
	})
	return s, err
}

// Get returns the cached image for key.
func (g *Gallery) Get(ctx context.Context, key string) (Image, bool, error) {
	var (
		img Image
		ok  bool
	)
	err := g.loop.Sync(ctx, func() { img, ok = g.cache.Get(key) })
	return img, ok, err
}

// Len is the number of grid cells.
func (g *Gallery) Len() int {
	var n int
	_ = g.loop.Sync(context.Background(), func() { n = g.cache.Len() })
	return n
}

// At returns the image in grid cell i.
func (g *Gallery) At(i int) (Image, bool) {
	var (
		img Image
		ok  bool
	)
	_ = g.loop.Sync(context.Background(), func() { img, ok = g.cache.At(i) })
	return img, ok
}

// Items returns the grid in order.
func (g *Gallery) Items() []Image {
	var items []Image
	_ = g.loop.Sync(context.Background(), func() { items = g.cache.Items() })
	return items
}

// State reports the loading state.
func (g *Gallery) State() State {
	var s State
	_ = g.loop.Sync(context.Background(), func() { s = g.state })
	return s
}
