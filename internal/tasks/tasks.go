package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TypeSurfaceActivity records the end of a paint session.
const TypeSurfaceActivity = "surface:activity"

// SurfaceActivityPayload is the payload of TypeSurfaceActivity.
type SurfaceActivityPayload struct {
	SurfaceID uint      `json:"surface_id"`
	At        time.Time `json:"at"`
}

// NewSurfaceActivityTask builds a TypeSurfaceActivity task.
func NewSurfaceActivityTask(surfaceID uint, at time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(SurfaceActivityPayload{SurfaceID: surfaceID, At: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSurfaceActivity, payload, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// Enqueuer is the part of *asynq.Client the producers need.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
