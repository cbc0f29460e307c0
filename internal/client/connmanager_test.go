package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cxworkforce/presencia/internal/presence"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelayProgression(t *testing.T) {
	b := BackoffConfig{Base: 3 * time.Second, Ceiling: 30 * time.Second}

	assert.Equal(t, 3*time.Second, b.Delay(0))
	assert.Equal(t, 6*time.Second, b.Delay(1))
	assert.Equal(t, 12*time.Second, b.Delay(2))
	assert.Equal(t, 24*time.Second, b.Delay(3))
	assert.Equal(t, 30*time.Second, b.Delay(4))
	assert.Equal(t, 30*time.Second, b.Delay(10))
	// shift overflow territory still returns the ceiling
	assert.Equal(t, 30*time.Second, b.Delay(40))
	assert.Equal(t, 30*time.Second, b.Delay(64))
}

func TestBackoffDelayLeaderProfile(t *testing.T) {
	b := BackoffConfig{Base: time.Second, Ceiling: 30 * time.Second}

	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for attempt, d := range want {
		assert.Equal(t, d, b.Delay(attempt), "attempt %d", attempt)
	}
}

func TestBackoffDelayDefaults(t *testing.T) {
	var b BackoffConfig
	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 30*time.Second, b.Delay(20))
}

// hubServer runs a real hub behind an httptest server.
type hubServer struct {
	hub *presence.Hub
	srv *httptest.Server
}

func startHubServer(t *testing.T) *hubServer {
	t.Helper()
	hub := presence.NewHub(nil, 30*time.Minute, time.Hour)
	go hub.Run()
	t.Cleanup(hub.Stop)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn)
	}))
	t.Cleanup(srv.Close)
	return &hubServer{hub: hub, srv: srv}
}

func (s *hubServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// collector accumulates envelopes delivered by OnMessage.
type collector struct {
	mu   sync.Mutex
	envs []presence.Envelope
}

func (c *collector) add(env presence.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
}

func (c *collector) has(msgType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, env := range c.envs {
		if env.Type == msgType {
			return true
		}
	}
	return false
}

func TestConnManagerWorkerIdentifies(t *testing.T) {
	hs := startHubServer(t)
	var got collector

	cm := NewConnManager(Config{
		URL:      hs.wsURL(),
		Role:     RoleWorker,
		Identity: Identity{UserID: 42, Nombre: "Ana", Cargo: "Asesor", Area: "Soporte"},
		Backoff:  BackoffConfig{Base: 10 * time.Millisecond, Ceiling: 50 * time.Millisecond},
		OnMessage: func(env presence.Envelope) {
			got.add(env)
		},
	})
	cm.Start()
	defer cm.Close()

	require.Eventually(t, func() bool {
		_, ok := hs.hub.WorkerStatus(42)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return got.has(presence.TypeConnected) },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, cm.SendEstado("disponible"))
	require.Eventually(t, func() bool {
		rec, ok := hs.hub.WorkerStatus(42)
		return ok && rec.Estado == "disponible"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, StateConnected, cm.State())
	assert.Equal(t, 0, cm.Attempt())
}

func TestConnManagerLeaderGetsRoster(t *testing.T) {
	hs := startHubServer(t)

	worker := NewConnManager(Config{
		URL:      hs.wsURL(),
		Role:     RoleWorker,
		Identity: Identity{UserID: 7, Nombre: "Ana"},
	})
	worker.Start()
	defer worker.Close()
	require.Eventually(t, func() bool {
		_, ok := hs.hub.WorkerStatus(7)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	view := NewLeaderView()
	leader := NewConnManager(Config{
		URL:      hs.wsURL(),
		Role:     RoleLeader,
		Identity: Identity{UserID: 100, Nombre: "Lider"},
		OnMessage: func(env presence.Envelope) {
			view.Apply(env)
		},
	})
	leader.Start()
	defer leader.Close()

	// identify_leader is followed by request_all_status, so the roster
	// fills without any worker activity
	require.Eventually(t, func() bool {
		_, ok := view.Get(7)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, worker.SendEstado("break"))
	require.Eventually(t, func() bool {
		w, ok := view.Get(7)
		return ok && w.Estado == "break"
	}, 2*time.Second, 10*time.Millisecond)

	worker.Close()
	require.Eventually(t, func() bool {
		_, ok := view.Get(7)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnManagerReconnectsAfterDrop(t *testing.T) {
	var dials int32
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(&dials, 1)
		conn.Close() // abrupt drop, no close handshake
	}))
	defer srv.Close()

	cm := NewConnManager(Config{
		URL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Role:    RoleWorker,
		Backoff: BackoffConfig{Base: 10 * time.Millisecond, Ceiling: 50 * time.Millisecond},
	})
	cm.Start()
	defer cm.Close()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&dials) >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnManagerInactivityCloseStopsReconnect(t *testing.T) {
	var dials int32
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(&dials, 1)
		msg := websocket.FormatCloseMessage(presence.CloseInactivity, "idle")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		// keep reading so the close handshake completes
		conn.ReadMessage()
		conn.Close()
	}))
	defer srv.Close()

	cm := NewConnManager(Config{
		URL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Role:    RoleWorker,
		Backoff: BackoffConfig{Base: 10 * time.Millisecond, Ceiling: 50 * time.Millisecond},
	})
	cm.Start()
	defer cm.Close()

	require.Eventually(t, func() bool {
		return cm.State() == StateInactivityClosed
	}, 2*time.Second, 10*time.Millisecond)

	// the reserved code suppresses the automatic retry
	time.Sleep(200 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&dials))

	// an explicit reconnect dials again with a fresh attempt counter
	cm.Reconnect()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&dials) >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnManagerClientSideInactivityDisconnect(t *testing.T) {
	hs := startHubServer(t)

	cm := NewConnManager(Config{
		URL:      hs.wsURL(),
		Role:     RoleWorker,
		Identity: Identity{UserID: 9, Nombre: "Ana"},
		Backoff:  BackoffConfig{Base: 10 * time.Millisecond, Ceiling: 50 * time.Millisecond},
	})
	cm.Start()
	defer cm.Close()

	require.Eventually(t, func() bool {
		_, ok := hs.hub.WorkerStatus(9)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	cm.DisconnectInactivity("inactividad")
	require.Eventually(t, func() bool {
		return cm.State() == StateInactivityClosed
	}, 2*time.Second, 10*time.Millisecond)

	// the hub drops the worker and no reconnect happens on its own
	require.Eventually(t, func() bool {
		_, ok := hs.hub.WorkerStatus(9)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StateInactivityClosed, cm.State())

	cm.Reconnect()
	require.Eventually(t, func() bool {
		rec, ok := hs.hub.WorkerStatus(9)
		return ok && rec.Estado == "desconectado"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, cm.Attempt())
}
