package http

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simbo/paintCSS/internal/domain"
	"github.com/simbo/paintCSS/internal/repository"
	"github.com/simbo/paintCSS/internal/repository/mocks"
	"github.com/simbo/paintCSS/internal/service"
)

func setupAuthRouter(t *testing.T, repo *mocks.UserRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	authService, err := service.NewAuthService(repo, "test-secret", 1)
	require.NoError(t, err)
	h := NewAuthHandler(authService)

	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		repo := new(mocks.UserRepository)
		repo.On("FindByUsername", mock.Anything, "alice").Return(nil, repository.ErrUserNotFound).Once()
		repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.User")).
			Run(func(args mock.Arguments) { args.Get(1).(*domain.User).ID = 11 }).
			Return(nil).Once()
		r := setupAuthRouter(t, repo)

		w := do(r, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"secret1","email":"a@example.com"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":11`)
		repo.AssertExpectations(t)
	})

	t.Run("taken", func(t *testing.T) {
		repo := new(mocks.UserRepository)
		repo.On("FindByUsername", mock.Anything, "alice").Return(&domain.User{ID: 1, Username: "alice"}, nil).Once()
		r := setupAuthRouter(t, repo)

		w := do(r, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"secret1"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("short password", func(t *testing.T) {
		r := setupAuthRouter(t, new(mocks.UserRepository))

		w := do(r, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"x"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_LoginUnknownUser(t *testing.T) {
	repo := new(mocks.UserRepository)
	repo.On("FindByUsername", mock.Anything, "bob").Return(nil, repository.ErrUserNotFound).Once()
	r := setupAuthRouter(t, repo)

	w := do(r, http.MethodPost, "/api/auth/login", `{"username":"bob","password":"whatever"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "token")
}
