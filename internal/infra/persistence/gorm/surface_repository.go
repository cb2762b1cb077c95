package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/simbo/paintCSS/internal/domain"
	"github.com/simbo/paintCSS/internal/repository"
)

// GormSurfaceRepository implements repository.SurfaceRepository on GORM.
type GormSurfaceRepository struct {
	db *gorm.DB
}

// NewGormSurfaceRepository creates a GormSurfaceRepository.
func NewGormSurfaceRepository(db *gorm.DB) *GormSurfaceRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSurfaceRepository")
	}
	return &GormSurfaceRepository{db: db}
}

func (r *GormSurfaceRepository) FindByID(ctx context.Context, id uint) (*domain.Surface, error) {
	var surface domain.Surface
	err := r.db.WithContext(ctx).First(&surface, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSurfaceNotFound
		}
		return nil, fmt.Errorf("gorm: find surface by id %d: %w", id, err)
	}
	return &surface, nil
}

func (r *GormSurfaceRepository) Save(ctx context.Context, surface *domain.Surface) error {
	if err := r.db.WithContext(ctx).Save(surface).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save surface (id: %d): %w", surface.ID, err)
	}
	return nil
}

// TouchLastActive only ever moves last_active forward, so out of order task
// delivery cannot rewind it.
func (r *GormSurfaceRepository) TouchLastActive(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Surface{}).
		Where("id = ? AND (last_active IS NULL OR last_active < ?)", id, at).
		UpdateColumn("last_active", at)
	if result.Error != nil {
		return fmt.Errorf("gorm: touch surface %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.Surface{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("gorm: count surface %d: %w", id, err)
		}
		if count == 0 {
			return repository.ErrSurfaceNotFound
		}
	}
	return nil
}
