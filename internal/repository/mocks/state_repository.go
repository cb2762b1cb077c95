package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/simbo/paintCSS/internal/repository"
)

// StateRepository is a mock of repository.StateRepository.
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) PublishSurfaceEvent(ctx context.Context, surfaceID uint, payload []byte) error {
	args := m.Called(ctx, surfaceID, payload)
	return args.Error(0)
}

func (m *StateRepository) SubscribeSurfaceEvents(ctx context.Context, surfaceID uint) (repository.Subscription, error) {
	args := m.Called(ctx, surfaceID)
	sub, _ := args.Get(0).(repository.Subscription)
	return sub, args.Error(1)
}

func (m *StateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

// Subscription is a channel backed repository.Subscription for tests.
type Subscription struct {
	C    chan []byte
	once sync.Once
}

// NewSubscription returns a subscription with a buffered feed.
func NewSubscription() *Subscription {
	return &Subscription{C: make(chan []byte, 16)}
}

func (s *Subscription) Messages() <-chan []byte { return s.C }

func (s *Subscription) Close() error {
	s.once.Do(func() { close(s.C) })
	return nil
}
