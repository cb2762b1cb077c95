package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/simbo/paintCSS/internal/repository"
	"github.com/simbo/paintCSS/internal/tasks"
)

func taskLogCtx(ctx context.Context, t *asynq.Task) *logrus.Entry {
	taskID, _ := asynq.GetTaskID(ctx)
	queue, _ := asynq.GetQueueName(ctx)
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	return logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"queue":     queue,
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})
}

// ActivityHandler persists the last activity time of a surface.
type ActivityHandler struct {
	surfaceRepo repository.SurfaceRepository
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(surfaceRepo repository.SurfaceRepository) *ActivityHandler {
	return &ActivityHandler{surfaceRepo: surfaceRepo}
}

// ProcessTask implements asynq.Handler.
func (h *ActivityHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogCtx(ctx, t)

	var payload tasks.SurfaceActivityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithField("surface_id", payload.SurfaceID)

	if err := h.surfaceRepo.TouchLastActive(ctx, payload.SurfaceID, payload.At); err != nil {
		if errors.Is(err, repository.ErrSurfaceNotFound) {
			logCtx.Warn("Surface vanished before its activity was recorded")
			return fmt.Errorf("surface %d: %v: %w", payload.SurfaceID, err, asynq.SkipRetry)
		}
		logCtx.WithError(err).Error("Failed to record surface activity")
		return fmt.Errorf("failed to record activity for surface %d: %w", payload.SurfaceID, err)
	}
	logCtx.Debug("Surface activity recorded")
	return nil
}
