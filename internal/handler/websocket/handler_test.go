package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simbo/paintCSS/internal/domain"
	"github.com/simbo/paintCSS/internal/dto"
	"github.com/simbo/paintCSS/internal/hub"
	"github.com/simbo/paintCSS/internal/middleware"
	"github.com/simbo/paintCSS/internal/paint"
	"github.com/simbo/paintCSS/internal/repository"
	"github.com/simbo/paintCSS/internal/repository/mocks"
	"github.com/simbo/paintCSS/internal/service"
)

func setupServer(t *testing.T, repo *mocks.SurfaceRepository, userID uint) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := hub.NewHub(nil, nil, nil)
	go h.Run()
	t.Cleanup(h.Shutdown)

	handler := NewWebSocketHandler(h, service.NewSurfaceService(repo, h, paint.Overrides{}), "")
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set(middleware.ContextUserID, userID)
		}
		c.Next()
	})
	r.GET("/ws/surfaces/:id", handler.HandleConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestHandleConnection_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		userID   uint
		path     string
		setup    func(*mocks.SurfaceRepository)
		wantCode int
	}{
		{"no user", 0, "/ws/surfaces/1", func(*mocks.SurfaceRepository) {}, http.StatusUnauthorized},
		{"bad id", 1, "/ws/surfaces/x", func(*mocks.SurfaceRepository) {}, http.StatusBadRequest},
		{"unknown surface", 1, "/ws/surfaces/9", func(m *mocks.SurfaceRepository) {
			m.On("FindByID", mock.Anything, uint(9)).Return(nil, repository.ErrSurfaceNotFound).Once()
		}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.SurfaceRepository)
			tt.setup(repo)
			srv := setupServer(t, repo, tt.userID)

			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			repo.AssertExpectations(t)
		})
	}
}

func TestHandleConnection_PaintRoundTrip(t *testing.T) {
	stored := domain.NewSurface(1, paint.DefaultSettings())
	stored.ID = 4
	repo := new(mocks.SurfaceRepository)
	repo.On("FindByID", mock.Anything, uint(4)).Return(stored, nil)
	srv := setupServer(t, repo, 1)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/surfaces/4"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var style dto.StyleMessage
	require.NoError(t, conn.ReadJSON(&style))
	assert.Equal(t, dto.TypeStyle, style.Type)
	assert.Equal(t, 500.0, style.Width)

	var desc dto.DescriptionMessage
	require.NoError(t, conn.ReadJSON(&desc))
	assert.Equal(t, dto.TypeDescription, desc.Type)
	assert.Empty(t, desc.BoxShadow)

	require.NoError(t, conn.WriteJSON(dto.ClientMessage{Type: dto.TypePointerDown, X: 25, Y: 35}))
	require.NoError(t, conn.WriteJSON(dto.ClientMessage{Type: dto.TypePointerMove, X: 25, Y: 45}))
	require.NoError(t, conn.WriteJSON(dto.ClientMessage{Type: dto.TypePointerUp}))

	for desc.BoxShadow != "30px 40px #f00,30px 50px #f00" {
		desc = dto.DescriptionMessage{}
		require.NoError(t, conn.ReadJSON(&desc))
	}
	assert.Len(t, desc.Shadows, 2)
}
