package repository

import (
	"context"
	"time"

	"github.com/simbo/paintCSS/internal/domain"
)

// SurfaceRepository stores surface configuration.
type SurfaceRepository interface {
	// FindByID returns ErrSurfaceNotFound when the id is unknown.
	FindByID(ctx context.Context, id uint) (*domain.Surface, error)

	// Save inserts or updates the surface.
	Save(ctx context.Context, surface *domain.Surface) error

	// TouchLastActive moves LastActive forward to at. An older at is ignored.
	TouchLastActive(ctx context.Context, id uint, at time.Time) error
}
