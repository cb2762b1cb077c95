package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/simbo/paintCSS/internal/domain"
)

// SurfaceRepository is a mock of repository.SurfaceRepository.
type SurfaceRepository struct {
	mock.Mock
}

func (m *SurfaceRepository) FindByID(ctx context.Context, id uint) (*domain.Surface, error) {
	args := m.Called(ctx, id)
	surface, _ := args.Get(0).(*domain.Surface)
	return surface, args.Error(1)
}

func (m *SurfaceRepository) Save(ctx context.Context, surface *domain.Surface) error {
	args := m.Called(ctx, surface)
	return args.Error(0)
}

func (m *SurfaceRepository) TouchLastActive(ctx context.Context, id uint, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
