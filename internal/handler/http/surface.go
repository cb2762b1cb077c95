package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/simbo/paintCSS/internal/domain"
	"github.com/simbo/paintCSS/internal/dto"
	"github.com/simbo/paintCSS/internal/paint"
	"github.com/simbo/paintCSS/internal/service"
)

// SurfaceHandler serves the surface management routes.
type SurfaceHandler struct {
	surfaceService *service.SurfaceService
}

// NewSurfaceHandler creates a SurfaceHandler.
func NewSurfaceHandler(surfaceService *service.SurfaceService) *SurfaceHandler {
	return &SurfaceHandler{surfaceService: surfaceService}
}

// SurfaceResponse describes one surface.
type SurfaceResponse struct {
	ID         uint           `json:"id"`
	CreatorID  uint           `json:"creator_id"`
	Settings   paint.Settings `json:"settings"`
	LastActive string         `json:"last_active"`
}

func newSurfaceResponse(s *domain.Surface) SurfaceResponse {
	return SurfaceResponse{
		ID:         s.ID,
		CreatorID:  s.CreatorID,
		Settings:   s.Settings(),
		LastActive: s.LastActive.UTC().Format(time.RFC3339),
	}
}

// CreateSurface creates a surface from optional overrides in the body.
func (h *SurfaceHandler) CreateSurface(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	var overrides paint.Overrides
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&overrides); err != nil {
			logCtx.WithError(err).Warn("Handler.CreateSurface: invalid input format")
			ValidationErrorResponse(c, "Invalid surface overrides", err)
			return
		}
	}

	surface, err := h.surfaceService.CreateSurface(c.Request.Context(), userID, overrides)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	logCtx.WithField("surface_id", surface.ID).Info("Handler.CreateSurface: surface created")
	SuccessResponse(c, http.StatusCreated, newSurfaceResponse(surface))
}

// GetSurface returns one surface.
func (h *SurfaceHandler) GetSurface(c *gin.Context) {
	id, ok := SurfaceIDParam(c)
	if !ok {
		return
	}
	surface, err := h.surfaceService.GetSurface(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, newSurfaceResponse(surface))
}

// UpdateSettings applies a partial settings update.
func (h *SurfaceHandler) UpdateSettings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := SurfaceIDParam(c)
	if !ok {
		return
	}

	var patch domain.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		logrus.WithError(err).Warn("Handler.UpdateSettings: invalid input format")
		ValidationErrorResponse(c, "Invalid settings patch", err)
		return
	}

	surface, err := h.surfaceService.UpdateSettings(c.Request.Context(), userID, id, patch)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, newSurfaceResponse(surface))
}

// GetDescription returns the current box-shadow value of a surface.
func (h *SurfaceHandler) GetDescription(c *gin.Context) {
	id, ok := SurfaceIDParam(c)
	if !ok {
		return
	}
	d, err := h.surfaceService.Describe(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.NewDescriptionMessage(d))
}
