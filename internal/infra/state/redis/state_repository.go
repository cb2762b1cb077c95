package redisstate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/simbo/paintCSS/internal/repository"
)

// DefaultKeyPrefix namespaces every key and channel this package touches.
const DefaultKeyPrefix = "paint:"

// RedisStateRepository implements repository.StateRepository on Redis.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository creates a RedisStateRepository.
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStateRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisStateRepository) surfaceChannel(surfaceID uint) string {
	return fmt.Sprintf("%ssurface:%d:events", r.keyPrefix, surfaceID)
}

func (r *RedisStateRepository) rateLimitKey(key string) string {
	return r.keyPrefix + "ratelimit:" + key
}

// PublishSurfaceEvent publishes payload on the surface channel.
func (r *RedisStateRepository) PublishSurfaceEvent(ctx context.Context, surfaceID uint, payload []byte) error {
	channel := r.surfaceChannel(surfaceID)
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"channel":      channel,
			"payload_size": len(payload),
			"surface_id":   surfaceID,
		}).WithError(err).Error("Redis Publish failed")
		return fmt.Errorf("redis: publish to channel %s: %w", channel, err)
	}
	return nil
}

// SubscribeSurfaceEvents subscribes to the surface channel and waits for the
// subscription to be confirmed before returning.
func (r *RedisStateRepository) SubscribeSurfaceEvents(ctx context.Context, surfaceID uint) (repository.Subscription, error) {
	channel := r.surfaceChannel(surfaceID)
	pubsub := r.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe to channel %s: %w", channel, err)
	}
	sub := &subscription{
		pubsub: pubsub,
		out:    make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go sub.forward(pubsub.Channel())
	return sub, nil
}

// rateLimitScript counts a hit and arms the window on the first hit only.
var rateLimitScript = redis.NewScript(`
local c = redis.call('INCR', KEYS[1])
if c == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return c
`)

// CheckRateLimit counts a hit in a fixed window that starts at the first hit
// and reports whether the count exceeds limit.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := r.rateLimitKey(key)
	count, err := rateLimitScript.Run(ctx, r.client, []string{fullKey}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit on key %s: %w", fullKey, err)
	}
	return count > int64(limit), nil
}

type subscription struct {
	pubsub    *redis.PubSub
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscription) forward(in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *subscription) Messages() <-chan []byte { return s.out }

func (s *subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
