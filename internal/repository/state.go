package repository

import (
	"context"
	"time"
)

// Subscription is a live feed of payloads published for one surface.
type Subscription interface {
	// Messages is closed once the subscription ends.
	Messages() <-chan []byte
	Close() error
}

// StateRepository covers the shared, short-lived state kept in Redis.
type StateRepository interface {
	// PublishSurfaceEvent fans payload out to every instance hosting the surface.
	PublishSurfaceEvent(ctx context.Context, surfaceID uint, payload []byte) error

	// SubscribeSurfaceEvents starts receiving what PublishSurfaceEvent sends
	// for surfaceID, including the caller's own publications.
	SubscribeSurfaceEvents(ctx context.Context, surfaceID uint) (Subscription, error)

	// CheckRateLimit counts one hit on key and reports whether the limit for
	// the current window has been exceeded.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
