package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/simbo/paintCSS/internal/repository"
	"github.com/simbo/paintCSS/internal/tasks"
)

// WorkerServer wraps the asynq server that runs the surface tasks.
type WorkerServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logrus.Entry
}

// NewWorkerServer creates a WorkerServer with the surface handlers registered.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, surfaceRepo repository.SurfaceRepository, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskLogCtx(ctx, task).WithField("component", "worker_server").Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server: server,
		mux:    NewServeMux(surfaceRepo),
		log:    logEntry,
	}
}

// NewServeMux routes the surface task types to their handlers. Reaping idle
// surfaces is not a task: it runs per instance, see hub.RunReaper.
func NewServeMux(surfaceRepo repository.SurfaceRepository) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeSurfaceActivity, NewActivityHandler(surfaceRepo))
	return mux
}

// Start runs the server. Call it in its own goroutine.
func (ws *WorkerServer) Start() {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(ws.mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		}
	}
	ws.log.Info("Worker server stopped.")
}

// Shutdown stops the server gracefully.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
