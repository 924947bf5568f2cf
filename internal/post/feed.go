package post

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/photoalbum/service/internal/apperr"
)

// Channel is the NOTIFY channel the posts trigger publishes on.
const Channel = "post_changes"

const subscriberBuffer = 16

var subscribeAlert = apperr.Alert{
	Title:   "Failed",
	Message: "Could not subscribe to photo updates from backend.",
}

type subscriber struct {
	ch   chan ChangeEvent
	done chan struct{}
}

// Feed listens for post change notifications on a dedicated connection and
// fans decoded events out to every subscriber. Run is the only sender.
type Feed struct {
	pool *pgxpool.Pool

	mu      sync.Mutex
	subs    map[int]*subscriber
	nextID  int
	stopped bool
}

// NewFeed creates a Feed over pool. Call Run to start listening.
func NewFeed(pool *pgxpool.Pool) *Feed {
	return &Feed{pool: pool, subs: make(map[int]*subscriber)}
}

// Subscribe registers a new listener. The returned channel is closed when
// the feed stops; cancel detaches the listener early.
func (f *Feed) Subscribe() (<-chan ChangeEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := &subscriber{ch: make(chan ChangeEvent, subscriberBuffer), done: make(chan struct{})}
	if f.stopped {
		close(s.ch)
		return s.ch, func() {}
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = s

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(s.done)
			}
		})
	}
}

// Run LISTENs on Channel until ctx is cancelled or the connection fails.
// A cancelled context is a clean shutdown and returns nil.
func (f *Feed) Run(ctx context.Context) error {
	defer f.closeAll()

	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return apperr.Network("subscribe to post changes", subscribeAlert, err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return apperr.Network("subscribe to post changes", subscribeAlert, err)
	}
	defer func() {
		// Return the connection to the pool without a dangling LISTEN.
		if _, err := conn.Exec(context.Background(), "UNLISTEN *"); err != nil {
			slog.Warn("feed: unlisten failed", "error", err)
		}
	}()
	slog.Info("feed: listening for post changes", "channel", Channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return apperr.Network("wait for post changes", subscribeAlert, err)
		}
		f.dispatch(ctx, []byte(n.Payload))
	}
}

// dispatch decodes one payload and delivers it to every live subscriber.
// Undecodable payloads are logged and dropped.
func (f *Feed) dispatch(ctx context.Context, payload []byte) {
	ev, err := DecodeChange(payload)
	if err != nil {
		slog.Warn("feed: dropping change event", "error", err, "payload", string(payload))
		return
	}
	slog.Debug("feed: change event", "type", ev.Type, "key", ev.Post.ImageKey)

	f.mu.Lock()
	targets := make([]*subscriber, 0, len(f.subs))
	for _, s := range f.subs {
		targets = append(targets, s)
	}
	f.mu.Unlock()

	for _, s := range targets {
		select {
		case s.ch <- ev:
		case <-s.done:
		case <-ctx.Done():
			return
		}
	}
}

func (f *Feed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.subs {
		close(s.ch)
		delete(f.subs, id)
	}
	f.stopped = true
}
