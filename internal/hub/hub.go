// Package hub hosts the live paint surfaces. Each open surface owns one
// paint.Engine driven by a single goroutine; websocket clients feed it
// pointer events and receive its style and description.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/simbo/paintCSS/internal/domain"
	"github.com/simbo/paintCSS/internal/dto"
	"github.com/simbo/paintCSS/internal/paint"
	"github.com/simbo/paintCSS/internal/repository"
	"github.com/simbo/paintCSS/internal/tasks"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024

	publishTimeout = 5 * time.Second
)

// Hub message types.
const (
	MessageRegister   = "register"
	MessageUnregister = "unregister"
	MessageEvent      = "event"
)

// HubMessage is what clients and handlers queue on the hub.
type HubMessage struct {
	Type      string
	SurfaceID uint
	UserID    uint
	Client    *Client
	Surface   *domain.Surface // register only; used to open the surface
	RawData   []byte          // event only
}

// Hub routes client messages to their surfaces and opens surfaces on first
// use. state and enqueuer are optional: without state the hub does not fan
// out to other instances, without enqueuer no activity is recorded.
type Hub struct {
	messageChan chan HubMessage
	done        chan struct{}
	stopOnce    sync.Once

	surfaces   map[uint]*surface
	surfacesMu sync.Mutex

	state      repository.StateRepository
	enqueuer   tasks.Enqueuer
	instanceID string
	log        *logrus.Entry
}

// NewHub creates a Hub. Call Run to start routing.
func NewHub(state repository.StateRepository, enqueuer tasks.Enqueuer, logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	id := uuid.NewString()
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		done:        make(chan struct{}),
		surfaces:    make(map[uint]*surface),
		state:       state,
		enqueuer:    enqueuer,
		instanceID:  id,
		log:         logger.WithFields(logrus.Fields{"component": "hub", "instance": id}),
	}
}

// Run routes queued messages until Shutdown.
func (h *Hub) Run() {
	h.log.Info("Hub is running...")
	for {
		select {
		case msg := <-h.messageChan:
			h.route(msg)
		case <-h.done:
			h.log.Info("Hub is shutting down...")
			return
		}
	}
}

func (h *Hub) route(msg HubMessage) {
	switch msg.Type {
	case MessageRegister:
		h.registerClient(msg)
	case MessageUnregister:
		h.unregisterClient(msg.Client)
	case MessageEvent:
		h.forwardEvent(msg)
	default:
		h.log.Warnf("Hub: received unknown message type: %s from user %d on surface %d", msg.Type, msg.UserID, msg.SurfaceID)
	}
}

func (h *Hub) registerClient(msg HubMessage) {
	client := msg.Client
	if client == nil || msg.Surface == nil {
		h.log.Error("Hub: register message without client or surface")
		return
	}
	logCtx := client.logCtx().WithField("action", "registerClient")

	h.surfacesMu.Lock()
	// Shutdown closes done before it snapshots the surfaces under this lock.
	select {
	case <-h.done:
		h.surfacesMu.Unlock()
		logCtx.Warn("Hub is shutting down, registration refused")
		client.closeSend()
		return
	default:
	}
	s, ok := h.surfaces[client.SurfaceID()]
	if !ok {
		var err error
		s, err = newSurface(h, msg.Surface)
		if err != nil {
			h.surfacesMu.Unlock()
			logCtx.WithError(err).Error("Failed to open surface")
			client.closeSend()
			return
		}
		h.surfaces[s.id] = s
		go s.run()
		logCtx.Info("Surface opened")
	}
	s.members++
	s.touch()
	h.surfacesMu.Unlock()

	s.post(surfaceMsg{kind: msgRegister, client: client})
	logCtx.Info("Client registered to Hub")
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		h.log.Error("Hub: attempted to unregister a nil client")
		return
	}
	h.surfacesMu.Lock()
	s, ok := h.surfaces[client.SurfaceID()]
	if ok {
		s.members--
		s.touch()
	}
	h.surfacesMu.Unlock()

	if !ok {
		client.closeSend()
		return
	}
	s.post(surfaceMsg{kind: msgUnregister, client: client})
	client.logCtx().Info("Client unregistered from Hub")
}

func (h *Hub) forwardEvent(msg HubMessage) {
	s := h.lookup(msg.SurfaceID)
	if s == nil {
		h.log.WithField("surface_id", msg.SurfaceID).Debug("Event for a surface that is not open, dropped")
		return
	}
	// Blocks while the surface inbox is full; pointer events are never dropped.
	s.post(surfaceMsg{kind: msgClientEvent, client: msg.Client, data: msg.RawData})
}

func (h *Hub) lookup(id uint) *surface {
	h.surfacesMu.Lock()
	defer h.surfacesMu.Unlock()
	return h.surfaces[id]
}

// QueueMessage queues msg without blocking and reports whether it fit.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		h.log.WithFields(logrus.Fields{
			"message_type": msg.Type,
			"surface_id":   msg.SurfaceID,
			"user_id":      msg.UserID,
		}).Warn("Hub message channel full, dropping message")
		return false
	}
}

// Dispatch queues msg, waiting for room in the hub channel. It reports false
// only when the hub has shut down.
func (h *Hub) Dispatch(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	case <-h.done:
		return false
	}
}

// ApplySettings reconfigures the surface's engine if it is open here, and
// tells the other instances either way.
func (h *Hub) ApplySettings(surfaceID uint, settings paint.Settings) {
	if s := h.lookup(surfaceID); s != nil {
		s.post(surfaceMsg{kind: msgSettings, settings: settings})
		return
	}
	if h.state == nil {
		return
	}
	payload, err := json.Marshal(dto.SurfaceEvent{
		Origin:    h.instanceID,
		SurfaceID: surfaceID,
		Kind:      dto.EventSettings,
		Settings:  &settings,
	})
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal settings event")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := h.state.PublishSurfaceEvent(ctx, surfaceID, payload); err != nil {
			h.log.WithField("surface_id", surfaceID).WithError(err).Warn("Failed to publish settings event")
		}
	}()
}

// Description returns the description of an open surface.
func (h *Hub) Description(ctx context.Context, surfaceID uint) (paint.Description, bool, error) {
	s := h.lookup(surfaceID)
	if s == nil {
		return nil, false, nil
	}
	reply := make(chan paint.Description, 1)
	if !s.post(surfaceMsg{kind: msgDescribe, reply: reply}) {
		return nil, false, nil
	}
	select {
	case d := <-reply:
		return d, true, nil
	case <-s.done:
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// ReapIdle closes every surface without clients whose last activity is
// before cutoff, and returns their ids.
func (h *Hub) ReapIdle(cutoff time.Time) []uint {
	h.surfacesMu.Lock()
	var reaped []*surface
	for id, s := range h.surfaces {
		if s.members == 0 && s.lastActiveAt().Before(cutoff) {
			delete(h.surfaces, id)
			reaped = append(reaped, s)
		}
	}
	h.surfacesMu.Unlock()

	ids := make([]uint, 0, len(reaped))
	for _, s := range reaped {
		s.stop()
		<-s.done
		ids = append(ids, s.id)
	}
	if len(ids) > 0 {
		h.log.WithField("surface_ids", ids).Info("Reaped idle surfaces")
	}
	return ids
}

// RunReaper closes surfaces idle for longer than idle, checking every
// interval, until Shutdown. Open surfaces live in this process only, so each
// instance runs its own reaper.
func (h *Hub) RunReaper(interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	h.log.WithFields(logrus.Fields{"interval": interval, "idle": idle}).Info("Surface reaper running")
	for {
		select {
		case now := <-ticker.C:
			h.ReapIdle(now.Add(-idle))
		case <-h.done:
			return
		}
	}
}

// OpenSurfaces returns the number of surfaces open on this instance.
func (h *Hub) OpenSurfaces() int {
	h.surfacesMu.Lock()
	defer h.surfacesMu.Unlock()
	return len(h.surfaces)
}

// Shutdown stops routing and closes every surface, which ends all paint
// sessions and closes the clients.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.surfacesMu.Lock()
		surfaces := make([]*surface, 0, len(h.surfaces))
		for id, s := range h.surfaces {
			surfaces = append(surfaces, s)
			delete(h.surfaces, id)
		}
		h.surfacesMu.Unlock()
		for _, s := range surfaces {
			s.stop()
			<-s.done
		}
		h.log.WithField("surfaces", len(surfaces)).Info("Hub stopped")
	})
}
