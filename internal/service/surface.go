package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/simbo/paintCSS/internal/domain"
	"github.com/simbo/paintCSS/internal/paint"
	"github.com/simbo/paintCSS/internal/repository"
)

// LiveSurfaces is the in-memory side of the surfaces: the engines currently
// open on this instance.
type LiveSurfaces interface {
	// ApplySettings pushes new settings into the surface's engine if it is open.
	// An empty Color keeps the live paint color.
	ApplySettings(surfaceID uint, settings paint.Settings)
	// Description returns the current description of an open surface. ok is
	// false when the surface is not open here.
	Description(ctx context.Context, surfaceID uint) (d paint.Description, ok bool, err error)
}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "dotted": true, "dashed": true, "solid": true,
	"double": true, "groove": true, "ridge": true, "inset": true, "outset": true,
}

// SurfaceService manages surface configuration.
type SurfaceService struct {
	surfaceRepo repository.SurfaceRepository
	live        LiveSurfaces
	defaults    paint.Overrides
}

// NewSurfaceService creates a SurfaceService. defaults sit under the
// overrides of every created surface; live may be nil.
func NewSurfaceService(surfaceRepo repository.SurfaceRepository, live LiveSurfaces, defaults paint.Overrides) *SurfaceService {
	if surfaceRepo == nil {
		panic("SurfaceRepository cannot be nil for SurfaceService")
	}
	return &SurfaceService{surfaceRepo: surfaceRepo, live: live, defaults: defaults}
}

// CreateSurface stores a new surface configured from the service defaults
// with overrides on top.
func (s *SurfaceService) CreateSurface(ctx context.Context, creatorID uint, overrides paint.Overrides) (*domain.Surface, error) {
	logCtx := logrus.WithField("creator_id", creatorID)

	settings, err := overrides.Over(s.defaults).Merge(paint.DefaultSettings())
	if err != nil {
		logCtx.WithError(err).Warn("Rejected surface overrides")
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := ValidateSettings(settings); err != nil {
		logCtx.WithError(err).Warn("Rejected surface settings")
		return nil, err
	}

	surface := domain.NewSurface(creatorID, settings)
	if err := s.surfaceRepo.Save(ctx, surface); err != nil {
		logCtx.WithError(err).Error("Failed to save new surface")
		return nil, ErrInternalServer
	}
	logCtx.WithField("surface_id", surface.ID).Info("Surface created")
	return surface, nil
}

// GetSurface loads one surface.
func (s *SurfaceService) GetSurface(ctx context.Context, id uint) (*domain.Surface, error) {
	surface, err := s.surfaceRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSurfaceNotFound) {
			return nil, ErrSurfaceNotFound
		}
		logrus.WithField("surface_id", id).WithError(err).Error("Failed to load surface")
		return nil, ErrInternalServer
	}
	return surface, nil
}

// UpdateSettings applies patch on behalf of userID, who must be the creator.
// A changed grid size clears the live surface.
func (s *SurfaceService) UpdateSettings(ctx context.Context, userID, id uint, patch domain.SettingsPatch) (*domain.Surface, error) {
	logCtx := logrus.WithFields(logrus.Fields{"surface_id": id, "user_id": userID})

	surface, err := s.GetSurface(ctx, id)
	if err != nil {
		return nil, err
	}
	if surface.CreatorID != userID {
		logCtx.Warn("Settings update refused: not the creator")
		return nil, ErrForbidden
	}
	if patch.Empty() {
		return surface, nil
	}

	settings := patch.Apply(surface.Settings())
	if err := ValidateSettings(settings); err != nil {
		logCtx.WithError(err).Warn("Rejected settings patch")
		return nil, err
	}

	surface.SetSettings(settings)
	if err := s.surfaceRepo.Save(ctx, surface); err != nil {
		logCtx.WithError(err).Error("Failed to save surface settings")
		return nil, ErrInternalServer
	}
	if s.live != nil {
		live := settings
		// The live color follows set_color, which is never stored; only an
		// explicit color in the patch replaces it.
		if patch.Color == nil {
			live.Color = ""
		}
		s.live.ApplySettings(id, live)
	}
	logCtx.Info("Surface settings updated")
	return surface, nil
}

// Describe returns the current description of a surface. A surface that is
// not open anywhere on this instance has nothing painted.
func (s *SurfaceService) Describe(ctx context.Context, id uint) (paint.Description, error) {
	if _, err := s.GetSurface(ctx, id); err != nil {
		return nil, err
	}
	if s.live == nil {
		return paint.Description{}, nil
	}
	d, ok, err := s.live.Description(ctx, id)
	if err != nil {
		logrus.WithField("surface_id", id).WithError(err).Error("Failed to read live description")
		return nil, ErrInternalServer
	}
	if !ok {
		return paint.Description{}, nil
	}
	return d, nil
}

// ValidateSettings checks sizes, colors and border values.
func ValidateSettings(s paint.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	for _, c := range []string{s.Background, s.BorderColor, string(s.Color)} {
		if err := ValidateColor(c); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	}
	if math.IsNaN(s.BorderWidth) || math.IsInf(s.BorderWidth, 0) || s.BorderWidth < 0 {
		return fmt.Errorf("%w: border width %v", ErrInvalidSettings, s.BorderWidth)
	}
	if !borderStyles[s.BorderStyle] {
		return fmt.Errorf("%w: border style %q", ErrInvalidSettings, s.BorderStyle)
	}
	return nil
}
