// Package testkit provides in-memory stand-ins for the object store and the
// post record store, with fault injection for exercising failure paths.
package testkit

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/photoalbum/service/internal/post"
	"github.com/photoalbum/service/internal/storage"
)

// Objects is an in-memory storage.Storage.
type Objects struct {
	mu          sync.Mutex
	objects     map[string][]byte
	types       map[string]string
	uploadErr   error
	deleteErr   error
	downloadErr map[string]error
	delay       map[string]time.Duration
	deletes     []string
}

var _ storage.Storage = (*Objects)(nil)

// NewObjects returns an empty object store.
func NewObjects() *Objects {
	return &Objects{
		objects:     make(map[string][]byte),
		types:       make(map[string]string),
		downloadErr: make(map[string]error),
		delay:       make(map[string]time.Duration),
	}
}

// FailUploads makes every Upload return err (nil restores success).
func (o *Objects) FailUploads(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.uploadErr = err
}

// FailDeletes makes every Delete return err.
func (o *Objects) FailDeletes(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deleteErr = err
}

// FailDownload makes Download of key return err.
func (o *Objects) FailDownload(key string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.downloadErr[key] = err
}

// DelayDownload holds Download of key for d before answering.
func (o *Objects) DelayDownload(key string, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delay[key] = d
}

// Put stores data directly, bypassing fault injection.
func (o *Objects) Put(key string, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = append([]byte(nil), data...)
}

// Get returns the stored bytes for key.
func (o *Objects) Get(key string) ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.objects[key]
	return data, ok
}

// ContentType returns the content type recorded at upload.
func (o *Objects) ContentType(key string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.types[key]
}

// Len returns the number of stored objects.
func (o *Objects) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.objects)
}

// Deletes returns the keys passed to Delete, in call order.
func (o *Objects) Deletes() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.deletes...)
}

func (o *Objects) Upload(ctx context.Context, key string, reader io.Reader, _ int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.uploadErr != nil {
		return o.uploadErr
	}
	o.objects[key] = data
	o.types[key] = contentType
	return nil
}

func (o *Objects) Download(ctx context.Context, key string) ([]byte, error) {
	o.mu.Lock()
	d := o.delay[key]
	o.mu.Unlock()
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.downloadErr[key]; err != nil {
		return nil, err
	}
	data, ok := o.objects[key]
	if !ok {
		return nil, fmt.Errorf("get object %q: %w", key, storage.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (o *Objects) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deletes = append(o.deletes, key)
	if o.deleteErr != nil {
		return o.deleteErr
	}
	delete(o.objects, key)
	delete(o.types, key)
	return nil
}

func (o *Objects) PublicURL(key string) string {
	return "http://objects.test/photos/" + key
}

// Posts is an in-memory post record store. It does not enforce one record
// per image key, so ambiguous lookups can be staged.
type Posts struct {
	mu       sync.Mutex
	posts    []post.Post
	nextID   int
	saveErr  error
	queryErr error
	delErr   error
	delay    time.Duration
	queries  int
	now      func() time.Time
}

// NewPosts returns an empty record store.
func NewPosts() *Posts {
	return &Posts{now: time.Now}
}

// FailSaves makes every Save return err.
func (p *Posts) FailSaves(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saveErr = err
}

// FailQueries makes every later Query return err.
func (p *Posts) FailQueries(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queryErr = err
}

// DelayQueries makes every later Query wait d before answering.
func (p *Posts) DelayQueries(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// Queries returns how many Query calls have started.
func (p *Posts) Queries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries
}

// FailDeletes makes every Delete return err.
func (p *Posts) FailDeletes(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delErr = err
}

// Insert stores records directly, bypassing fault injection.
func (p *Posts) Insert(keys ...string) []post.Post {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]post.Post, 0, len(keys))
	for _, key := range keys {
		out = append(out, p.insertLocked(post.Post{ImageKey: key}))
	}
	return out
}

// All returns every stored record.
func (p *Posts) All() []post.Post {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]post.Post(nil), p.posts...)
}

func (p *Posts) insertLocked(rec post.Post) post.Post {
	p.nextID++
	now := p.now()
	rec.ID = strconv.Itoa(p.nextID)
	rec.CreatedAt = now
	rec.UpdatedAt = now
	p.posts = append(p.posts, rec)
	return rec
}

func (p *Posts) Save(ctx context.Context, rec post.Post) (post.Post, error) {
	if err := ctx.Err(); err != nil {
		return post.Post{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return post.Post{}, p.saveErr
	}
	if rec.ID != "" {
		for i := range p.posts {
			if p.posts[i].ID == rec.ID {
				p.posts[i].ImageKey = rec.ImageKey
				p.posts[i].UpdatedAt = p.now()
				return p.posts[i], nil
			}
		}
	}
	return p.insertLocked(rec), nil
}

// Query answers from the records present when the call started; injected
// failures and delays are also fixed at that point.
func (p *Posts) Query(ctx context.Context, f post.Filter) ([]post.Post, error) {
	p.mu.Lock()
	p.queries++
	d, failure := p.delay, p.queryErr
	var out []post.Post
	for _, rec := range p.posts {
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}
	return out, nil
}

func (p *Posts) Delete(ctx context.Context, rec post.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.delErr != nil {
		return p.delErr
	}
	for i := range p.posts {
		if p.posts[i].ID == rec.ID {
			p.posts = append(p.posts[:i], p.posts[i+1:]...)
			return nil
		}
	}
	return post.ErrNotFound
}
