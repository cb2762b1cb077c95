package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simbo/paintCSS/internal/domain"
	"github.com/simbo/paintCSS/internal/dto"
	"github.com/simbo/paintCSS/internal/paint"
	"github.com/simbo/paintCSS/internal/repository"
	"github.com/simbo/paintCSS/internal/service"
	"github.com/simbo/paintCSS/internal/tasks"
)

const (
	surfaceInboxSize  = 256
	surfaceOutboxSize = 256
)

const (
	msgRegister = iota
	msgUnregister
	msgClientEvent
	msgSettings
	msgDescribe
)

type surfaceMsg struct {
	kind     int
	client   *Client
	data     []byte
	settings paint.Settings
	reply    chan paint.Description
}

// surface is one open paint surface. Everything except members, lastActive
// and the channels is owned by the run goroutine.
type surface struct {
	id  uint
	hub *Hub
	log *logrus.Entry

	engine  *paint.Engine
	release func()
	handler paint.PointerHandler
	origin  paint.Point

	clients map[*Client]bool
	painter *Client
	dirty   bool

	sub    repository.Subscription
	outbox chan []byte

	members    int // guarded by hub.surfacesMu
	lastActive atomic.Int64

	inbox    chan surfaceMsg
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
}

func newSurface(h *Hub, stored *domain.Surface) (*surface, error) {
	s := &surface{
		id:      stored.ID,
		hub:     h,
		log:     h.log.WithField("surface_id", stored.ID),
		clients: make(map[*Client]bool),
		inbox:   make(chan surfaceMsg, surfaceInboxSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.touch()

	settings := stored.Settings()
	engine, err := paint.New(
		paint.Overrides{CellSize: settings.CellSize, GridWidth: settings.GridWidth, GridHeight: settings.GridHeight},
		paint.WithRenderer(s),
		paint.WithLogger(s.log),
	)
	if err != nil {
		return nil, err
	}
	if err := engine.Configure(settings); err != nil {
		return nil, err
	}
	s.engine = engine
	s.release = engine.Attach(s, s)
	return s, nil
}

// Subscribe makes the surface the engine's pointer source.
func (s *surface) Subscribe(h paint.PointerHandler) func() {
	s.handler = h
	return func() { s.handler = nil }
}

// Origin reports the surface box position sent by the current painter.
func (s *surface) Origin() paint.Point { return s.origin }

func (s *surface) ApplyStyle(st paint.Style) {
	s.broadcast(dto.StyleMessage{Type: dto.TypeStyle, Style: st})
}

func (s *surface) ApplyDescription(d paint.Description) {
	s.dirty = true
	s.broadcast(dto.NewDescriptionMessage(d))
}

func (s *surface) touch() { s.lastActive.Store(time.Now().UnixNano()) }

func (s *surface) lastActiveAt() time.Time { return time.Unix(0, s.lastActive.Load()) }

// post delivers a control message, waiting for room in the inbox. It
// reports false when the surface has already stopped.
func (s *surface) post(m surfaceMsg) bool {
	select {
	case s.inbox <- m:
		return true
	case <-s.done:
		if m.kind == msgRegister {
			m.client.closeSend()
		}
		return false
	}
}

func (s *surface) stop() {
	s.quitOnce.Do(func() { close(s.quit) })
}

func (s *surface) run() {
	defer s.shutdown()

	var remote <-chan []byte
	if s.hub.state != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		sub, err := s.hub.state.SubscribeSurfaceEvents(ctx, s.id)
		cancel()
		if err != nil {
			s.log.WithError(err).Warn("Surface events subscription failed, running without fan-out")
		} else {
			s.sub = sub
			remote = sub.Messages()
		}
		s.outbox = make(chan []byte, surfaceOutboxSize)
		go s.publishLoop(s.outbox)
	}

	for {
		select {
		case m := <-s.inbox:
			s.handle(m)
		case payload, ok := <-remote:
			if !ok {
				remote = nil
				continue
			}
			s.applyRemote(payload)
		case <-s.quit:
			return
		}
	}
}

func (s *surface) shutdown() {
	s.release()
	for c := range s.clients {
		c.closeSend()
		delete(s.clients, c)
	}
	if s.sub != nil {
		if err := s.sub.Close(); err != nil {
			s.log.WithError(err).Debug("Closing surface subscription")
		}
	}
	if s.outbox != nil {
		close(s.outbox)
	}
	close(s.done)
	s.log.Info("Surface closed")
}

func (s *surface) handle(m surfaceMsg) {
	switch m.kind {
	case msgRegister:
		s.clients[m.client] = true
		s.sendTo(m.client, dto.StyleMessage{Type: dto.TypeStyle, Style: s.engine.Style()})
		s.sendTo(m.client, dto.NewDescriptionMessage(s.engine.Render()))
	case msgUnregister:
		if !s.clients[m.client] {
			return
		}
		delete(s.clients, m.client)
		m.client.closeSend()
		if s.painter == m.client {
			s.endSession()
		}
	case msgClientEvent:
		s.handleClientEvent(m.client, m.data)
	case msgSettings:
		if err := s.configure(m.settings); err != nil {
			s.log.WithError(err).Error("Rejected settings for live surface")
			return
		}
		settings := s.engine.Settings()
		s.publish(dto.SurfaceEvent{Kind: dto.EventSettings, Settings: &settings})
	case msgDescribe:
		m.reply <- s.engine.Render()
	}
}

func (s *surface) handleClientEvent(c *Client, raw []byte) {
	if !s.clients[c] {
		return
	}
	logCtx := s.log.WithField("user_id", c.UserID())

	var msg dto.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logCtx.WithError(err).Debug("Malformed client message")
		s.sendTo(c, dto.ErrorMessage{Type: dto.TypeError, Message: "malformed message"})
		return
	}
	s.touch()

	switch msg.Type {
	case dto.TypePointerDown:
		if s.painter != nil && s.painter != c {
			logCtx.Debug("Pointer down ignored, another client is painting")
			return
		}
		s.painter = c
		s.origin = paint.Point{X: msg.OriginX, Y: msg.OriginY}
		s.paintAt(msg.X, msg.Y, true)
	case dto.TypePointerMove:
		if s.painter != c {
			return
		}
		s.paintAt(msg.X, msg.Y, false)
	case dto.TypePointerUp:
		if s.painter != c {
			return
		}
		s.endSession()
	case dto.TypeSetColor:
		if err := service.ValidateColor(msg.Color); err != nil {
			s.sendTo(c, dto.ErrorMessage{Type: dto.TypeError, Message: err.Error()})
			return
		}
		s.engine.SetColor(paint.Color(msg.Color))
		settings := s.engine.Settings()
		s.publish(dto.SurfaceEvent{Kind: dto.EventSettings, Settings: &settings})
	default:
		s.sendTo(c, dto.ErrorMessage{Type: dto.TypeError, Message: "unknown message type: " + msg.Type})
	}
}

// paintAt forwards a pointer event to the engine and publishes the cell it
// wrote, if any.
func (s *surface) paintAt(x, y float64, down bool) {
	if s.handler == nil {
		return
	}
	s.dirty = false
	if down {
		s.handler.PointerDown(x, y)
	} else {
		s.handler.PointerMove(x, y)
	}
	if !s.dirty {
		return
	}
	cx, cy := s.engine.MapPointerToCell(x, y)
	if color, ok := s.engine.Cell(cx, cy); ok {
		s.publish(dto.SurfaceEvent{Kind: dto.EventCells, Cells: []paint.Cell{{X: cx, Y: cy, Color: color}}})
	}
}

func (s *surface) endSession() {
	if s.handler != nil {
		s.handler.PointerUp()
	}
	s.painter = nil
	s.recordActivity()
}

func (s *surface) recordActivity() {
	if s.hub.enqueuer == nil {
		return
	}
	task, err := tasks.NewSurfaceActivityTask(s.id, time.Now())
	if err != nil {
		s.log.WithError(err).Error("Failed to build surface activity task")
		return
	}
	go func() {
		if _, err := s.hub.enqueuer.Enqueue(task); err != nil {
			s.log.WithError(err).Warn("Failed to enqueue surface activity task")
		}
	}()
}

// configure applies settings to the engine; an empty Color keeps the current
// paint color.
func (s *surface) configure(settings paint.Settings) error {
	if settings.Color == "" {
		settings.Color = s.engine.Settings().Color
	}
	return s.engine.Configure(settings)
}

func (s *surface) applyRemote(payload []byte) {
	var ev dto.SurfaceEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.log.WithError(err).Warn("Malformed surface event")
		return
	}
	if ev.Origin == s.hub.instanceID || ev.SurfaceID != s.id {
		return
	}
	switch ev.Kind {
	case dto.EventCells:
		for _, c := range ev.Cells {
			s.engine.SetCell(c.X, c.Y, c.Color)
		}
	case dto.EventSettings:
		if ev.Settings == nil {
			return
		}
		if err := s.configure(*ev.Settings); err != nil {
			s.log.WithError(err).Warn("Rejected remote settings")
		}
	default:
		s.log.Warnf("Unknown surface event kind: %s", ev.Kind)
	}
}

// publish queues ev for the other instances.
func (s *surface) publish(ev dto.SurfaceEvent) {
	if s.outbox == nil {
		return
	}
	ev.Origin = s.hub.instanceID
	ev.SurfaceID = s.id
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.WithError(err).Error("Failed to marshal surface event")
		return
	}
	select {
	case s.outbox <- payload:
	default:
		s.log.Warn("Surface outbox full, event not published")
	}
}

func (s *surface) publishLoop(outbox <-chan []byte) {
	for payload := range outbox {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := s.hub.state.PublishSurfaceEvent(ctx, s.id, payload); err != nil {
			s.log.WithError(err).Warn("Failed to publish surface event")
		}
		cancel()
	}
}

func (s *surface) broadcast(v any) {
	if len(s.clients) == 0 {
		return
	}
	message, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).Error("Failed to marshal broadcast message")
		return
	}
	for c := range s.clients {
		c.enqueue(message)
	}
}

func (s *surface) sendTo(c *Client, v any) {
	message, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).Error("Failed to marshal client message")
		return
	}
	c.enqueue(message)
}
