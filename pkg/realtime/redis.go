package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/practicedesk/notifier/pkg/logger"
)

// RedisHub fans events out over Redis pub/sub, one channel per user id.
// A Redis channel delivers messages in publish order, so the per-user
// ordering guarantee holds across processes: the channel itself is the
// partition-level single writer.
type RedisHub struct {
	client redis.UniversalClient
	prefix string
	buffer int
	log    *slog.Logger

	closed bool
	mu     sync.Mutex
	wg     sync.WaitGroup
}

// RedisHubOption configures a RedisHub.
type RedisHubOption func(*RedisHub)

// WithChannelPrefix overrides the default "notify:user:" channel prefix.
func WithChannelPrefix(prefix string) RedisHubOption {
	return func(h *RedisHub) {
		if prefix != "" {
			h.prefix = prefix
		}
	}
}

// WithRedisHubLogger sets the logger used for decode failures.
func WithRedisHubLogger(log *slog.Logger) RedisHubOption {
	return func(h *RedisHub) {
		if log != nil {
			h.log = log
		}
	}
}

// WithRedisBuffer sets the per-subscriber event buffer.
func WithRedisBuffer(n int) RedisHubOption {
	return func(h *RedisHub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// NewRedisHub creates a Redis-backed hub.
func NewRedisHub(client redis.UniversalClient, opts ...RedisHubOption) *RedisHub {
	h := &RedisHub{
		client: client,
		prefix: "notify:user:",
		buffer: 16,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *RedisHub) channel(userID string) string {
	return h.prefix + userID
}

func (h *RedisHub) Publish(ctx context.Context, userID string, event Event) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.mu.Unlock()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal realtime event: %w", err)
	}

	// Redis drops messages on channels with no subscribers, matching the
	// no-backlog contract.
	if err := h.client.Publish(ctx, h.channel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish realtime event: %w", err)
	}
	return nil
}

func (h *RedisHub) Subscribe(ctx context.Context, userID string) (Subscriber, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.mu.Unlock()

	pubsub := h.client.Subscribe(ctx, h.channel(userID))
	// Wait for the subscription to be confirmed so events published after
	// Subscribe returns are never missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe realtime events: %w", err)
	}

	sub := &redisSubscriber{pubsub: pubsub, ch: make(chan Event, h.buffer)}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer close(sub.ch)

		for {
			select {
			case <-ctx.Done():
				_ = pubsub.Close()
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					h.log.LogAttrs(ctx, slog.LevelWarn, "dropping undecodable realtime event",
						logger.UserID(userID),
						logger.Error(err),
					)
					continue
				}
				select {
				case sub.ch <- ev:
				default:
					// Slow consumer: drop rather than block the reader.
				}
			}
		}
	}()

	return sub, nil
}

func (h *RedisHub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	// Subscribers own their pubsub connections; they shut down when their
	// contexts cancel or Close is called on them.
	return nil
}

type redisSubscriber struct {
	pubsub *redis.PubSub
	ch     chan Event
	once   sync.Once
}

func (s *redisSubscriber) Receive() <-chan Event {
	return s.ch
}

func (s *redisSubscriber) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}
