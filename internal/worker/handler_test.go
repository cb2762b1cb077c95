package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simbo/paintCSS/internal/repository"
	"github.com/simbo/paintCSS/internal/repository/mocks"
	"github.com/simbo/paintCSS/internal/tasks"
)

func TestActivityHandler_ProcessTask(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	task, err := tasks.NewSurfaceActivityTask(7, at)
	require.NoError(t, err)

	t.Run("records activity", func(t *testing.T) {
		repo := new(mocks.SurfaceRepository)
		repo.On("TouchLastActive", mock.Anything, uint(7), mock.MatchedBy(at.Equal)).Return(nil).Once()

		err := NewActivityHandler(repo).ProcessTask(context.Background(), task)

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("missing surface is not retried", func(t *testing.T) {
		repo := new(mocks.SurfaceRepository)
		repo.On("TouchLastActive", mock.Anything, uint(7), mock.Anything).Return(repository.ErrSurfaceNotFound).Once()

		err := NewActivityHandler(repo).ProcessTask(context.Background(), task)

		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("storage error is retried", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		repo := new(mocks.SurfaceRepository)
		repo.On("TouchLastActive", mock.Anything, uint(7), mock.Anything).Return(dbErr).Once()

		err := NewActivityHandler(repo).ProcessTask(context.Background(), task)

		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("bad payload is not retried", func(t *testing.T) {
		repo := new(mocks.SurfaceRepository)
		bad := asynq.NewTask(tasks.TypeSurfaceActivity, []byte("{"))

		err := NewActivityHandler(repo).ProcessTask(context.Background(), bad)

		assert.ErrorIs(t, err, asynq.SkipRetry)
		repo.AssertNotCalled(t, "TouchLastActive", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNewServeMux_Routes(t *testing.T) {
	repo := new(mocks.SurfaceRepository)
	repo.On("TouchLastActive", mock.Anything, uint(9), mock.Anything).Return(nil).Once()
	mux := NewServeMux(repo)

	task, err := tasks.NewSurfaceActivityTask(9, time.Now())
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))

	repo.AssertExpectations(t)
	assert.Error(t, mux.ProcessTask(context.Background(), asynq.NewTask("surface:reap", nil)), "reaping is not a queued task")
}
