package websocket

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/simbo/paintCSS/internal/hub"
	"github.com/simbo/paintCSS/internal/middleware"
	"github.com/simbo/paintCSS/internal/service"
)

// WebSocketHandler upgrades paint connections and registers them with the hub.
type WebSocketHandler struct {
	upgrader       websocket.Upgrader
	hub            *hub.Hub
	surfaceService *service.SurfaceService
}

// NewWebSocketHandler creates a WebSocketHandler.
func NewWebSocketHandler(h *hub.Hub, surfaceService *service.SurfaceService, allowedOrigin string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if surfaceService == nil {
		panic("SurfaceService cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" || allowedOrigin == "*" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return &WebSocketHandler{upgrader: upgrader, hub: h, surfaceService: surfaceService}
}

// HandleConnection serves GET /ws/surfaces/:id.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	logCtx := logrus.WithFields(logrus.Fields{})

	userIDAny, exists := c.Get(middleware.ContextUserID)
	if !exists {
		logCtx.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logCtx.Error("WS Handler: User ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	logCtx = logCtx.WithField("user_id", userID)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		logCtx.WithField("param", c.Param("id")).Warn("WS Handler: Invalid surface ID")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid surface ID format"})
		return
	}
	surfaceID := uint(id)
	logCtx = logCtx.WithField("surface_id", surfaceID)

	surface, err := h.surfaceService.GetSurface(c.Request.Context(), surfaceID)
	if err != nil {
		if errors.Is(err, service.ErrSurfaceNotFound) {
			logCtx.Warn("WS Handler: Surface not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Surface not found"})
		} else {
			logCtx.WithError(err).Error("WS Handler: Error loading surface")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate surface"})
		}
		return
	}

	// Upgrade writes its own HTTP error response.
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn, surfaceID, userID)
	if !h.hub.QueueMessage(hub.HubMessage{
		Type:      hub.MessageRegister,
		SurfaceID: surfaceID,
		UserID:    userID,
		Client:    client,
		Surface:   surface,
	}) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		return
	}

	client.Run()
	logCtx.Info("WS Handler: Client registered")
}
