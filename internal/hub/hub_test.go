package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simbo/paintCSS/internal/domain"
	"github.com/simbo/paintCSS/internal/dto"
	"github.com/simbo/paintCSS/internal/paint"
	"github.com/simbo/paintCSS/internal/repository/mocks"
	"github.com/simbo/paintCSS/internal/tasks"
)

type fakeEnqueuer struct {
	tasks chan *asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks <- task
	return &asynq.TaskInfo{}, nil
}

type received struct {
	Type       string            `json:"type"`
	BoxShadow  string            `json:"box_shadow"`
	Shadows    paint.Description `json:"shadows"`
	Message    string            `json:"message"`
	Width      float64           `json:"width"`
	Background string            `json:"background"`
}

func testSurface(id uint) *domain.Surface {
	s := domain.NewSurface(1, paint.DefaultSettings())
	s.ID = id
	return s
}

func startHub(t *testing.T, h *Hub) {
	t.Helper()
	go h.Run()
	t.Cleanup(h.Shutdown)
}

func join(t *testing.T, h *Hub, stored *domain.Surface, userID uint) *Client {
	t.Helper()
	c := NewClient(h, nil, stored.ID, userID)
	require.True(t, h.QueueMessage(HubMessage{Type: MessageRegister, SurfaceID: stored.ID, UserID: userID, Client: c, Surface: stored}))
	nextOfType(t, c, dto.TypeStyle)
	nextOfType(t, c, dto.TypeDescription)
	return c
}

func send(t *testing.T, h *Hub, c *Client, msg dto.ClientMessage) {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	require.True(t, h.Dispatch(HubMessage{Type: MessageEvent, SurfaceID: c.SurfaceID(), UserID: c.UserID(), Client: c, RawData: raw}))
}

func nextOfType(t *testing.T, c *Client, typ string) received {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw, ok := <-c.send:
			require.True(t, ok, "send channel closed while waiting for %s", typ)
			var msg received
			require.NoError(t, json.Unmarshal(raw, &msg))
			if msg.Type == typ {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %s message within deadline", typ)
		}
	}
}

func assertQuiet(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected message: %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_RegisterSendsCurrentState(t *testing.T) {
	h := NewHub(nil, nil, nil)
	startHub(t, h)

	c := NewClient(h, nil, 1, 10)
	require.True(t, h.QueueMessage(HubMessage{Type: MessageRegister, SurfaceID: 1, Client: c, Surface: testSurface(1)}))

	style := nextOfType(t, c, dto.TypeStyle)
	assert.Equal(t, float64(500), style.Width)
	desc := nextOfType(t, c, dto.TypeDescription)
	assert.Equal(t, "", desc.BoxShadow)
	assert.Empty(t, desc.Shadows)
	assert.Equal(t, 1, h.OpenSurfaces())
}

func TestHub_PaintSessionBroadcasts(t *testing.T) {
	enq := &fakeEnqueuer{tasks: make(chan *asynq.Task, 4)}
	h := NewHub(nil, enq, nil)
	startHub(t, h)
	stored := testSurface(1)
	painter := join(t, h, stored, 10)
	watcher := join(t, h, stored, 11)

	send(t, h, painter, dto.ClientMessage{Type: dto.TypePointerDown, X: 25, Y: 35})
	for _, c := range []*Client{painter, watcher} {
		d := nextOfType(t, c, dto.TypeDescription)
		assert.Equal(t, "30px 40px #f00", d.BoxShadow)
	}

	send(t, h, painter, dto.ClientMessage{Type: dto.TypePointerMove, X: 25, Y: 45})
	d := nextOfType(t, watcher, dto.TypeDescription)
	assert.Equal(t, paint.Description{
		{OffsetX: 30, OffsetY: 40, Color: "#f00"},
		{OffsetX: 30, OffsetY: 50, Color: "#f00"},
	}, d.Shadows)

	send(t, h, painter, dto.ClientMessage{Type: dto.TypePointerUp})
	select {
	case task := <-enq.tasks:
		assert.Equal(t, tasks.TypeSurfaceActivity, task.Type())
	case <-time.After(2 * time.Second):
		t.Fatal("session end did not enqueue an activity task")
	}
}

func TestHub_OnlyPainterContinuesSession(t *testing.T) {
	h := NewHub(nil, nil, nil)
	startHub(t, h)
	stored := testSurface(1)
	painter := join(t, h, stored, 10)
	other := join(t, h, stored, 11)

	send(t, h, painter, dto.ClientMessage{Type: dto.TypePointerDown, X: 25, Y: 35})
	nextOfType(t, other, dto.TypeDescription)

	send(t, h, other, dto.ClientMessage{Type: dto.TypePointerDown, X: 55, Y: 55})
	send(t, h, other, dto.ClientMessage{Type: dto.TypePointerMove, X: 65, Y: 65})
	send(t, h, other, dto.ClientMessage{Type: dto.TypePointerUp})
	assertQuiet(t, other)

	d, ok, err := h.Description(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, d, 1)

	// The painter's session survived the other client's pointer-up.
	send(t, h, painter, dto.ClientMessage{Type: dto.TypePointerMove, X: 35, Y: 35})
	got := nextOfType(t, other, dto.TypeDescription)
	assert.Len(t, got.Shadows, 2)
}

func TestHub_FullInboxKeepsPointerEvents(t *testing.T) {
	h := NewHub(nil, nil, nil)
	startHub(t, h)
	stored := testSurface(1)
	painter := join(t, h, stored, 10)
	other := join(t, h, stored, 11)
	s := h.lookup(1)
	require.NotNil(t, s)

	// Park the surface goroutine on a reply nobody reads yet.
	stall := make(chan paint.Description)
	require.True(t, s.post(surfaceMsg{kind: msgDescribe, reply: stall}))

	event := func(msg dto.ClientMessage) HubMessage {
		raw, err := json.Marshal(msg)
		require.NoError(t, err)
		return HubMessage{Type: MessageEvent, SurfaceID: 1, UserID: painter.UserID(), Client: painter, RawData: raw}
	}
	batch := []HubMessage{event(dto.ClientMessage{Type: dto.TypePointerDown, X: 25, Y: 35})}
	for i := 0; i < surfaceInboxSize+10; i++ {
		batch = append(batch, event(dto.ClientMessage{Type: dto.TypePointerMove, X: 25, Y: 35}))
	}
	batch = append(batch, event(dto.ClientMessage{Type: dto.TypePointerUp}))

	dispatched := make(chan bool, 1)
	go func() {
		ok := true
		for _, m := range batch {
			ok = h.Dispatch(m) && ok
		}
		dispatched <- ok
	}()

	require.Eventually(t, func() bool { return len(s.inbox) == surfaceInboxSize }, 2*time.Second, 5*time.Millisecond)
	require.True(t, <-dispatched)
	<-stall

	// The painter's pointer-up made it through, so another client may paint.
	send(t, h, other, dto.ClientMessage{Type: dto.TypePointerDown, X: 55, Y: 55})
	require.Eventually(t, func() bool {
		d, ok, err := h.Description(context.Background(), 1)
		return err == nil && ok && d.String() == "30px 40px #f00,60px 60px #f00"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PainterDisconnectEndsSession(t *testing.T) {
	h := NewHub(nil, nil, nil)
	startHub(t, h)
	stored := testSurface(1)
	painter := join(t, h, stored, 10)
	other := join(t, h, stored, 11)

	send(t, h, painter, dto.ClientMessage{Type: dto.TypePointerDown, X: 25, Y: 35})
	nextOfType(t, other, dto.TypeDescription)

	require.True(t, h.QueueMessage(HubMessage{Type: MessageUnregister, SurfaceID: 1, Client: painter}))

	send(t, h, other, dto.ClientMessage{Type: dto.TypePointerDown, X: 45, Y: 35})
	d := nextOfType(t, other, dto.TypeDescription)
	assert.Len(t, d.Shadows, 2, "the next client can start a session")

	_, open := <-painter.send
	for open {
		_, open = <-painter.send
	}
}

func TestHub_SetColor(t *testing.T) {
	h := NewHub(nil, nil, nil)
	startHub(t, h)
	c := join(t, h, testSurface(1), 10)

	send(t, h, c, dto.ClientMessage{Type: dto.TypeSetColor, Color: "javascript:1"})
	e := nextOfType(t, c, dto.TypeError)
	assert.Contains(t, e.Message, "invalid color")

	send(t, h, c, dto.ClientMessage{Type: dto.TypeSetColor, Color: "#00f"})
	send(t, h, c, dto.ClientMessage{Type: dto.TypePointerDown, X: 5, Y: 5})
	d := nextOfType(t, c, dto.TypeDescription)
	assert.Equal(t, "10px 10px #00f", d.BoxShadow)
}

func TestHub_UnknownAndMalformedMessages(t *testing.T) {
	h := NewHub(nil, nil, nil)
	startHub(t, h)
	c := join(t, h, testSurface(1), 10)

	require.True(t, h.QueueMessage(HubMessage{Type: MessageEvent, SurfaceID: 1, Client: c, RawData: []byte("{")}))
	assert.Equal(t, "malformed message", nextOfType(t, c, dto.TypeError).Message)

	send(t, h, c, dto.ClientMessage{Type: "erase_all"})
	assert.Contains(t, nextOfType(t, c, dto.TypeError).Message, "erase_all")
}

func TestHub_ApplySettings(t *testing.T) {
	h := NewHub(nil, nil, nil)
	startHub(t, h)
	c := join(t, h, testSurface(1), 10)

	send(t, h, c, dto.ClientMessage{Type: dto.TypePointerDown, X: 25, Y: 35})
	nextOfType(t, c, dto.TypeDescription)

	settings := paint.DefaultSettings()
	settings.GridWidth = 20
	h.ApplySettings(1, settings)

	style := nextOfType(t, c, dto.TypeStyle)
	assert.Equal(t, float64(200), style.Width)
	d := nextOfType(t, c, dto.TypeDescription)
	assert.Empty(t, d.Shadows, "resize clears the surface")
}

func TestHub_ApplySettingsKeepsLiveColor(t *testing.T) {
	h := NewHub(nil, nil, nil)
	startHub(t, h)
	c := join(t, h, testSurface(1), 10)

	send(t, h, c, dto.ClientMessage{Type: dto.TypeSetColor, Color: "#00f"})

	settings := paint.DefaultSettings()
	settings.Background = "#222"
	settings.Color = ""
	h.ApplySettings(1, settings)
	style := nextOfType(t, c, dto.TypeStyle)
	assert.Equal(t, "#222", style.Background)

	send(t, h, c, dto.ClientMessage{Type: dto.TypePointerDown, X: 5, Y: 5})
	d := nextOfType(t, c, dto.TypeDescription)
	assert.Equal(t, "10px 10px #00f", d.BoxShadow)

	settings.Color = "#0f0"
	h.ApplySettings(1, settings)
	send(t, h, c, dto.ClientMessage{Type: dto.TypePointerDown, X: 15, Y: 5})
	d = nextOfType(t, c, dto.TypeDescription)
	assert.Equal(t, "10px 10px #00f,20px 10px #0f0", d.BoxShadow)
}

func TestHub_ReapIdle(t *testing.T) {
	h := NewHub(nil, nil, nil)
	startHub(t, h)
	c := join(t, h, testSurface(1), 10)

	assert.Empty(t, h.ReapIdle(time.Now().Add(time.Hour)), "surfaces with clients stay open")

	require.True(t, h.QueueMessage(HubMessage{Type: MessageUnregister, SurfaceID: 1, Client: c}))
	require.Eventually(t, func() bool {
		return len(h.ReapIdle(time.Now().Add(time.Hour))) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, h.OpenSurfaces())

	_, ok, err := h.Description(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHub_ReapIdleKeepsRecentSurfaces(t *testing.T) {
	h := NewHub(nil, nil, nil)
	startHub(t, h)
	c := join(t, h, testSurface(1), 10)
	require.True(t, h.QueueMessage(HubMessage{Type: MessageUnregister, SurfaceID: 1, Client: c}))

	assert.Empty(t, h.ReapIdle(time.Now().Add(-time.Hour)))
	assert.Equal(t, 1, h.OpenSurfaces())
}

func TestHub_RunReaper(t *testing.T) {
	h := NewHub(nil, nil, nil)
	startHub(t, h)
	go h.RunReaper(10*time.Millisecond, 20*time.Millisecond)

	c := join(t, h, testSurface(1), 10)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.OpenSurfaces(), "a surface with clients is never reaped")

	require.True(t, h.QueueMessage(HubMessage{Type: MessageUnregister, SurfaceID: 1, Client: c}))
	require.Eventually(t, func() bool { return h.OpenSurfaces() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_FanOut(t *testing.T) {
	state := new(mocks.StateRepository)
	sub := mocks.NewSubscription()
	published := make(chan dto.SurfaceEvent, 8)
	state.On("SubscribeSurfaceEvents", mock.Anything, uint(1)).Return(sub, nil).Once()
	state.On("PublishSurfaceEvent", mock.Anything, uint(1), mock.Anything).
		Run(func(args mock.Arguments) {
			var ev dto.SurfaceEvent
			_ = json.Unmarshal(args.Get(2).([]byte), &ev)
			published <- ev
		}).
		Return(nil)

	h := NewHub(state, nil, nil)
	startHub(t, h)
	c := join(t, h, testSurface(1), 10)

	send(t, h, c, dto.ClientMessage{Type: dto.TypePointerDown, X: 25, Y: 35})
	select {
	case ev := <-published:
		assert.Equal(t, dto.EventCells, ev.Kind)
		assert.Equal(t, h.instanceID, ev.Origin)
		assert.Equal(t, []paint.Cell{{X: 2, Y: 3, Color: "#f00"}}, ev.Cells)
	case <-time.After(2 * time.Second):
		t.Fatal("painted cell was not published")
	}
	nextOfType(t, c, dto.TypeDescription)

	remote, err := json.Marshal(dto.SurfaceEvent{
		Origin:    "another-instance",
		SurfaceID: 1,
		Kind:      dto.EventCells,
		Cells:     []paint.Cell{{X: 0, Y: 0, Color: "#0f0"}},
	})
	require.NoError(t, err)
	sub.C <- remote

	d := nextOfType(t, c, dto.TypeDescription)
	assert.Equal(t, "10px 10px #0f0,30px 40px #f00", d.BoxShadow)

	// Our own echo is ignored.
	echo, _ := json.Marshal(dto.SurfaceEvent{Origin: h.instanceID, SurfaceID: 1, Kind: dto.EventCells, Cells: []paint.Cell{{X: 9, Y: 9, Color: "#00f"}}})
	sub.C <- echo
	assertQuiet(t, c)
}

func TestHub_RegisterAfterShutdownOpensNothing(t *testing.T) {
	h := NewHub(nil, nil, nil)
	h.Shutdown()

	c := NewClient(h, nil, 1, 10)
	h.registerClient(HubMessage{Type: MessageRegister, SurfaceID: 1, UserID: 10, Client: c, Surface: testSurface(1)})

	assert.Zero(t, h.OpenSurfaces())
	_, open := <-c.send
	assert.False(t, open, "client is closed instead of joining")
}
