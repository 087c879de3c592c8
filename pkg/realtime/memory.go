package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/practicedesk/notifier/pkg/cache"
)

// ErrHubClosed is returned by operations on a closed hub.
var ErrHubClosed = errors.New("realtime: hub is closed")

// memorySubscriber delivers events over a buffered channel. Sends never
// block the publisher: a full buffer drops the event for that subscriber.
type memorySubscriber struct {
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

func newMemorySubscriber(buffer int) *memorySubscriber {
	return &memorySubscriber{ch: make(chan Event, buffer)}
}

func (s *memorySubscriber) Receive() <-chan Event {
	return s.ch
}

func (s *memorySubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

// send reports false when the event was dropped (closed or full buffer).
func (s *memorySubscriber) send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

// userStream is the single-writer actor for one user: its mutex serializes
// publishers, so all subscribers observe one order.
type userStream struct {
	subs map[*memorySubscriber]struct{}
	mu   sync.Mutex
}

func (u *userStream) publish(ev Event) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for sub := range u.subs {
		if !sub.send(ev) && sub.isClosed() {
			delete(u.subs, sub)
		}
	}
}

func (s *memorySubscriber) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MemoryHub is the in-process Hub: one addressable stream per user id,
// bounded by an LRU over user streams so an unbounded user population
// cannot exhaust memory. Evicted streams close their subscribers; clients
// reconnect and recover via the notification store.
type MemoryHub struct {
	streams  *cache.TTLCache[string, *userStream]
	buffer   int
	closed   bool
	mu       sync.Mutex
	cleanupW sync.WaitGroup
}

// MemoryHubOption configures a MemoryHub.
type MemoryHubOption func(*memoryHubConfig)

type memoryHubConfig struct {
	buffer     int
	maxStreams int
}

// WithBuffer sets the per-subscriber channel buffer (minimum 1).
func WithBuffer(n int) MemoryHubOption {
	return func(c *memoryHubConfig) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// WithMaxStreams caps the number of concurrently tracked user streams.
func WithMaxStreams(n int) MemoryHubOption {
	return func(c *memoryHubConfig) {
		if n > 0 {
			c.maxStreams = n
		}
	}
}

// NewMemoryHub creates an in-process hub.
func NewMemoryHub(opts ...MemoryHubOption) *MemoryHub {
	cfg := &memoryHubConfig{buffer: 16, maxStreams: 10000}
	for _, opt := range opts {
		opt(cfg)
	}

	h := &MemoryHub{
		streams: cache.New[string, *userStream](cfg.maxStreams, 0),
		buffer:  cfg.buffer,
	}
	h.streams.SetEvictCallback(func(_ string, stream *userStream) {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		for sub := range stream.subs {
			_ = sub.Close()
		}
		clear(stream.subs)
	})
	return h
}

func (h *MemoryHub) Publish(ctx context.Context, userID string, event Event) error {
	stream, err := h.stream(userID, false)
	if err != nil {
		return err
	}
	if stream == nil {
		// Nobody listening; the event is dropped.
		return nil
	}
	stream.publish(event)
	return nil
}

func (h *MemoryHub) Subscribe(ctx context.Context, userID string) (Subscriber, error) {
	stream, err := h.stream(userID, true)
	if err != nil {
		return nil, err
	}

	sub := newMemorySubscriber(h.buffer)
	stream.mu.Lock()
	stream.subs[sub] = struct{}{}
	stream.mu.Unlock()

	if ctx.Done() != nil {
		h.cleanupW.Add(1)
		go func() {
			defer h.cleanupW.Done()
			<-ctx.Done()
			stream.mu.Lock()
			delete(stream.subs, sub)
			stream.mu.Unlock()
			_ = sub.Close()
		}()
	}

	return sub, nil
}

func (h *MemoryHub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.streams.Clear()
	h.mu.Unlock()

	h.cleanupW.Wait()
	return nil
}

// stream returns the user's stream, creating it when create is true. A nil
// stream with nil error means no stream exists and none was requested.
func (h *MemoryHub) stream(userID string, create bool) (*userStream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	stream, ok := h.streams.Get(userID)
	if !ok {
		if !create {
			return nil, nil
		}
		stream = &userStream{subs: make(map[*memorySubscriber]struct{})}
		h.streams.Put(userID, stream)
	}
	return stream, nil
}
