package upload

import (
	"context"
	"errors"
	"sync"

	"github.com/photoalbum/service/internal/post"
)

// Affordance is what the single control button currently offers.
type Affordance string

const (
	AffordancePick   Affordance = "pick"
	AffordanceUpload Affordance = "upload"
)

// ErrNothingPicked is returned by Submit when no image is held.
var ErrNothingPicked = errors.New("no image picked")

// ErrBusy is returned by Submit while an earlier submit is still uploading.
var ErrBusy = errors.New("upload already in progress")

// Uploader is satisfied by *Flow.
type Uploader interface {
	Upload(ctx context.Context, image []byte) (post.Post, error)
}

// Picker holds the picked-image state of an upload screen: pick an image,
// then submit it. A successful submit returns the control to picking; a
// failed one keeps the image so the user can try again.
type Picker struct {
	flow Uploader

	mu     sync.Mutex
	picked []byte
	busy   bool
}

// NewPicker creates a Picker in the pick state.
func NewPicker(flow Uploader) *Picker {
	return &Picker{flow: flow}
}

// Pick holds image for upload, replacing any previous pick.
func (p *Picker) Pick(image []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.picked = append([]byte(nil), image...)
}

// Cancel discards the picked image.
func (p *Picker) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.picked = nil
}

// Affordance reports whether the control picks or uploads.
func (p *Picker) Affordance() Affordance {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.picked == nil {
		return AffordancePick
	}
	return AffordanceUpload
}

// Submit uploads the picked image.
func (p *Picker) Submit(ctx context.Context) (post.Post, error) {
	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return post.Post{}, ErrBusy
	}
	if p.picked == nil {
		p.mu.Unlock()
		return post.Post{}, ErrNothingPicked
	}
	image := p.picked
	p.busy = true
	p.mu.Unlock()

	saved, err := p.flow.Upload(ctx, image)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.busy = false
	if err != nil {
		return post.Post{}, err
	}
	p.picked = nil
	return saved, nil
}
