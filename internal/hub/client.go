package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is one websocket connection attached to a surface.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	surfaceID uint
	userID    uint
	send      chan []byte
	sendOnce  sync.Once
}

// NewClient creates a Client for conn on surfaceID.
func NewClient(hub *Hub, conn *websocket.Conn, surfaceID uint, userID uint) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		surfaceID: surfaceID,
		userID:    userID,
		send:      make(chan []byte, 256),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) SurfaceID() uint { return c.surfaceID }
func (c *Client) UserID() uint    { return c.userID }

// CloseConn closes the underlying connection.
func (c *Client) CloseConn() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) logCtx() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"user_id": c.userID, "surface_id": c.surfaceID})
}

// enqueue hands message to the write pump without blocking. It must only be
// called from the goroutine that owns the client's surface.
func (c *Client) enqueue(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		c.logCtx().Warn("Client send channel full, message dropped")
		return false
	}
}

// closeSend closes the send channel once, which makes the write pump say
// goodbye and exit.
func (c *Client) closeSend() {
	c.sendOnce.Do(func() { close(c.send) })
}

// ReadPump forwards websocket messages to the hub until the connection
// fails, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		unregisterMsg := HubMessage{Type: MessageUnregister, SurfaceID: c.surfaceID, UserID: c.userID, Client: c}
		// Must not be lost, or a painter's session would never end.
		c.hub.Dispatch(unregisterMsg)
		c.CloseConn()
		c.logCtx().Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logCtx().WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.logCtx().Debug("WebSocket connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logCtx().Debugf("Ignoring non-text message type: %d", messageType)
			continue
		}
		if !c.hub.Dispatch(HubMessage{
			Type:      MessageEvent,
			SurfaceID: c.surfaceID,
			UserID:    c.userID,
			Client:    c,
			RawData:   message,
		}) {
			return
		}
	}
}

// WritePump writes queued messages and pings to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.CloseConn()
		c.logCtx().Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logCtx().WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logCtx().WithError(err).Warn("Failed to send ping message")
				return
			}
		}
	}
}
