package client

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cxworkforce/presencia/internal/presence"
)

// ConnState is the connectivity state surfaced to the UI layer, so an
// operator can tell "wait" apart from "click reconnect".
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateInactivityClosed
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateInactivityClosed:
		return "disconnected-by-inactivity"
	case StateClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

type Role string

const (
	RoleWorker Role = "worker"
	RoleLeader Role = "leader"
)

// Identity is what the client announces on identify.
type Identity struct {
	UserID int
	Nombre string
	Cargo  string
	Area   string
}

// BackoffConfig parameterizes the reconnect delay. The marker and the leader
// dashboard historically use different bases, so neither is hardcoded.
type BackoffConfig struct {
	Base    time.Duration
	Ceiling time.Duration
}

// Delay returns min(ceiling, base * 2^attempt).
func (b BackoffConfig) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	ceiling := b.Ceiling
	if ceiling <= 0 {
		ceiling = 30 * time.Second
	}
	if attempt > 30 {
		return ceiling
	}
	d := base << uint(attempt)
	if d <= 0 || d > ceiling {
		return ceiling
	}
	return d
}

// Config wires a ConnManager.
type Config struct {
	URL      string
	Role     Role
	Identity Identity
	Backoff  BackoffConfig

	PingInterval     time.Duration // heartbeat ping, ~25-30s
	SyncInterval     time.Duration // worker only: resend current estado
	HandshakeTimeout time.Duration // connect timeout, default 10s

	// CurrentEstado feeds the periodic resend so the hub and leader views
	// self-heal after a missed broadcast. Worker role only.
	CurrentEstado func() string

	OnMessage     func(presence.Envelope)
	OnStateChange func(ConnState)
}

var ErrNotConnected = errors.New("websocket not connected")

// ConnManager owns one outbound hub connection: dial, identify, heartbeats,
// backoff reconnect, teardown. Reconnects forever with a capped delay except
// after an inactivity close, which demands an explicit Reconnect call.
type ConnManager struct {
	cfg    Config
	dialer *websocket.Dialer

	mu             sync.Mutex
	conn           *websocket.Conn
	connDone       chan struct{}
	state          ConnState
	attempt        int
	destroyed      bool
	inactivity     bool
	reconnectTimer *time.Timer

	writeMu sync.Mutex
}

func NewConnManager(cfg Config) *ConnManager {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 25 * time.Second
	}
	return &ConnManager{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		state:  StateDisconnected,
	}
}

// Start launches the first connection attempt.
func (m *ConnManager) Start() {
	go m.connect()
}

// State returns the current connectivity state.
func (m *ConnManager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempt returns the current reconnect attempt counter.
func (m *ConnManager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

func (m *ConnManager) setState(s ConnState) {
	m.state = s
	if cb := m.cfg.OnStateChange; cb != nil {
		go cb(s)
	}
}

func (m *ConnManager) connect() {
	m.mu.Lock()
	if m.destroyed || m.inactivity {
		m.mu.Unlock()
		return
	}
	m.setState(StateConnecting)
	m.mu.Unlock()

	conn, _, err := m.dialer.Dial(m.cfg.URL, nil)
	if err != nil {
		log.Printf("[WS] Connect to %s failed: %v", m.cfg.URL, err)
		m.mu.Lock()
		if !m.destroyed && !m.inactivity {
			m.scheduleReconnectLocked()
		}
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = conn
	m.attempt = 0
	done := make(chan struct{})
	m.connDone = done
	m.setState(StateConnected)
	m.mu.Unlock()

	log.Printf("[WS] Connected to %s as %s", m.cfg.URL, m.cfg.Role)
	m.identify()

	go m.readLoop(conn, done)
	go m.heartbeatLoop(done)
	if m.cfg.Role == RoleWorker && m.cfg.SyncInterval > 0 && m.cfg.CurrentEstado != nil {
		go m.syncLoop(done)
	}
}

func (m *ConnManager) identify() {
	id := m.cfg.Identity
	if m.cfg.Role == RoleLeader {
		m.Send(presence.Envelope{
			Type:      presence.TypeIdentifyLeader,
			UserID:    id.UserID,
			Nombre:    id.Nombre,
			Cargo:     id.Cargo,
			Timestamp: time.Now(),
		})
		m.Send(presence.Envelope{Type: presence.TypeRequestAllStatus})
		return
	}
	m.Send(presence.Envelope{
		Type:      presence.TypeIdentify,
		UserID:    id.UserID,
		Nombre:    id.Nombre,
		Cargo:     id.Cargo,
		Area:      id.Area,
		Timestamp: time.Now(),
	})
}

// Send marshals and writes one frame on the current connection.
func (m *ConnManager) Send(v interface{}) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// SendEstado reports a status change (or periodic resend) to the hub.
func (m *ConnManager) SendEstado(estado string) error {
	id := m.cfg.Identity
	return m.Send(presence.Envelope{
		Type:      presence.TypeEstadoCambio,
		UserID:    id.UserID,
		Nombre:    id.Nombre,
		Cargo:     id.Cargo,
		Area:      id.Area,
		Estado:    estado,
		Timestamp: time.Now(),
	})
}

func (m *ConnManager) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer m.handleClose(conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.recordCloseError(err)
			return
		}

		m.mu.Lock()
		dead := m.destroyed
		m.mu.Unlock()
		if dead {
			return
		}

		var env presence.Envelope
		if err := env.UnmarshalJSON(data); err != nil {
			log.Printf("[WS] Dropping malformed frame: %v", err)
			continue
		}
		if cb := m.cfg.OnMessage; cb != nil {
			cb(env)
		}
	}
}

// recordCloseError latches the inactivity state when the peer closed with the
// reserved code.
func (m *ConnManager) recordCloseError(err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code == presence.CloseInactivity {
		m.mu.Lock()
		m.inactivity = true
		m.mu.Unlock()
	}
}

func (m *ConnManager) handleClose(conn *websocket.Conn, done chan struct{}) {
	conn.Close()
	close(done)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == conn {
		m.conn = nil
	}

	switch {
	case m.destroyed:
		m.setState(StateClosed)
	case m.inactivity:
		// Reserved close code: reconnection becomes a manual action.
		log.Printf("[WS] Closed for inactivity, waiting for manual reconnect")
		m.setState(StateInactivityClosed)
	default:
		m.scheduleReconnectLocked()
	}
}

func (m *ConnManager) scheduleReconnectLocked() {
	delay := m.cfg.Backoff.Delay(m.attempt)
	m.attempt++
	m.setState(StateReconnecting)
	log.Printf("[WS] Reconnecting in %s (attempt %d)", delay, m.attempt)

	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
	}
	m.reconnectTimer = time.AfterFunc(delay, m.connect)
}

// DisconnectInactivity closes the connection with the reserved inactivity
// close code. No reconnect is scheduled until Reconnect is called.
func (m *ConnManager) DisconnectInactivity(reason string) {
	m.mu.Lock()
	m.inactivity = true
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		m.mu.Lock()
		m.setState(StateInactivityClosed)
		m.mu.Unlock()
		return
	}

	msg := websocket.FormatCloseMessage(presence.CloseInactivity, reason)
	m.writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	m.writeMu.Unlock()
	conn.Close()
}

// Reconnect is the explicit user action after an inactivity disconnect. It
// clears the latch, resets the attempt counter and dials again.
func (m *ConnManager) Reconnect() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.inactivity = false
	m.attempt = 0
	m.mu.Unlock()

	go m.connect()
}

// Close tears the manager down for good; no reconnect will be scheduled and
// late timer firings are ignored.
func (m *ConnManager) Close() {
	m.mu.Lock()
	m.destroyed = true
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	conn := m.conn
	m.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		m.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		m.writeMu.Unlock()
		conn.Close()
	}
}

func (m *ConnManager) heartbeatLoop(done chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Send(presence.Envelope{
				Type:   presence.TypePing,
				UserID: m.cfg.Identity.UserID,
			})
		case <-done:
			return
		}
	}
}

// syncLoop resends the current estado on a fixed period regardless of change,
// so a missed broadcast heals on the next tick.
func (m *ConnManager) syncLoop(done chan struct{}) {
	ticker := time.NewTicker(m.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if estado := m.cfg.CurrentEstado(); estado != "" {
				m.SendEstado(estado)
			}
		case <-done:
			return
		}
	}
}
