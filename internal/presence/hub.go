package presence

import (
	"encoding/json"
	"log"
	"time"

	"github.com/cxworkforce/presencia/internal/models"
)

// SnapshotStore persists the last known record per worker so the REST
// snapshot endpoints keep answering across a hub restart.
type SnapshotStore interface {
	Save(w models.ConnectedWorker) error
	Delete(userID int) error
	List() ([]models.ConnectedWorker, error)
}

type frame struct {
	sess *Session
	data []byte
}

// Stats is the aggregate reported by /api/statistics.
type Stats struct {
	Total   int            `json:"total"`
	Estados map[string]int `json:"estados"`
	Lideres int            `json:"lideres"`
}

type workerEntry struct {
	sess *Session // nil for records restored from the snapshot store
	rec  models.ConnectedWorker
}

// Hub owns the connection registries. Both maps are mutated exclusively from
// the run goroutine; everything else talks to it over channels, so a
// broadcast can never observe a half-applied registry update.
type Hub struct {
	register   chan *Session
	unregister chan *Session
	inbound    chan frame
	ops        chan func()
	quit       chan struct{}

	sessions map[*Session]bool
	workers  map[int]*workerEntry
	leaders  map[int]*Session

	store        SnapshotStore
	staleTimeout time.Duration
	sweepEvery   time.Duration
	now          func() time.Time
}

// NewHub creates a hub. store may be nil to run purely in memory.
func NewHub(store SnapshotStore, staleTimeout, sweepEvery time.Duration) *Hub {
	if staleTimeout <= 0 {
		staleTimeout = 30 * time.Minute
	}
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	h := &Hub{
		register:     make(chan *Session),
		unregister:   make(chan *Session),
		inbound:      make(chan frame, 64),
		ops:          make(chan func()),
		quit:         make(chan struct{}),
		sessions:     make(map[*Session]bool),
		workers:      make(map[int]*workerEntry),
		leaders:      make(map[int]*Session),
		store:        store,
		staleTimeout: staleTimeout,
		sweepEvery:   sweepEvery,
		now:          time.Now,
	}
	h.restore()
	return h
}

// restore seeds the registry from the snapshot store. Restored entries have
// no socket; a reconnecting worker overwrites them on identify and the sweep
// evicts the ones that never come back.
func (h *Hub) restore() {
	if h.store == nil {
		return
	}
	recs, err := h.store.List()
	if err != nil {
		log.Printf("[Hub] Failed to restore snapshot: %v", err)
		return
	}
	for _, rec := range recs {
		h.workers[rec.UserID] = &workerEntry{rec: rec}
	}
	if len(recs) > 0 {
		log.Printf("[Hub] Restored %d worker records from snapshot", len(recs))
	}
}

// Run processes socket events, timer firings and operations until Stop.
func (h *Hub) Run() {
	sweep := time.NewTicker(h.sweepEvery)
	defer sweep.Stop()

	for {
		select {
		case s := <-h.register:
			h.sessions[s] = true
		case s := <-h.unregister:
			h.dropSession(s)
		case f := <-h.inbound:
			h.handleFrame(f.sess, f.data)
		case fn := <-h.ops:
			fn()
		case <-sweep.C:
			h.sweepStale()
		case <-h.quit:
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.quit)
}

// do runs fn on the hub goroutine and waits for it. This is how the REST
// handlers read the registry without sharing memory.
func (h *Hub) do(fn func()) {
	done := make(chan struct{})
	h.ops <- func() {
		fn()
		close(done)
	}
	<-done
}

// handleFrame dispatches one inbound frame. Malformed JSON and unknown types
// are dropped; the hub never trusts client input for shape. Frames from a
// session that already unregistered are dropped too, since readPump may have
// queued them before the close was processed and replying would hit a closed
// send channel.
func (h *Hub) handleFrame(s *Session, data []byte) {
	if !h.sessions[s] {
		return
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("[Hub] Dropping malformed frame: %v", err)
		return
	}

	switch env.Type {
	case TypeIdentify:
		h.handleIdentify(s, env)
	case TypeIdentifyLeader:
		h.handleIdentifyLeader(s, env)
	case TypeEstadoCambio:
		h.handleEstadoCambio(env)
	case TypeRequestAllStatus:
		h.handleRequestAllStatus(s)
	case TypePing:
		h.handlePing(s)
	default:
		log.Printf("[Hub] Unknown message type %q", env.Type)
	}
}

func (h *Hub) handleIdentify(s *Session, env Envelope) {
	rec := models.ConnectedWorker{
		ConnID:     s.ID,
		UserID:     env.UserID,
		Nombre:     env.Nombre,
		Cargo:      env.Cargo,
		Area:       env.Area,
		Estado:     models.EstadoDesconectado,
		LastUpdate: h.now(),
	}
	h.workers[env.UserID] = &workerEntry{sess: s, rec: rec}
	h.saveSnapshot(rec)
	log.Printf("[Hub] Worker %s connected (%d)", env.Nombre, env.UserID)

	h.notifyLeaders(map[string]interface{}{
		"type":   TypeUserConnected,
		"userId": rec.UserID,
		"nombre": rec.Nombre,
		"cargo":  rec.Cargo,
		"area":   rec.Area,
	})

	s.Send(map[string]interface{}{
		"type":    TypeConnected,
		"message": "Conexión establecida correctamente",
	})
}

func (h *Hub) handleIdentifyLeader(s *Session, env Envelope) {
	h.leaders[env.UserID] = s
	log.Printf("[Hub] Leader %s connected (%d)", env.Nombre, env.UserID)

	s.Send(map[string]interface{}{
		"type":    TypeLeaderConnected,
		"message": "Conexión como líder establecida",
	})
}

func (h *Hub) handleEstadoCambio(env Envelope) {
	w, ok := h.workers[env.UserID]
	if !ok {
		return
	}

	// Any slug is accepted and relayed verbatim; catalog legality is the
	// client's concern.
	w.rec.Estado = env.Estado
	if !env.Timestamp.IsZero() {
		w.rec.LastUpdate = env.Timestamp
	} else {
		w.rec.LastUpdate = h.now()
	}
	h.saveSnapshot(w.rec)
	log.Printf("[Hub] Estado of %s changed to %s", w.rec.Nombre, w.rec.Estado)

	h.notifyLeaders(estadoCambioPayload(w.rec))
}

func (h *Hub) handleRequestAllStatus(s *Session) {
	users := h.snapshot()
	s.Send(map[string]interface{}{
		"type":  TypeAllStatus,
		"users": users,
	})
	log.Printf("[Hub] Sent %d workers to requesting leader", len(users))
}

func (h *Hub) handlePing(s *Session) {
	for _, w := range h.workers {
		if w.sess == s {
			w.rec.LastUpdate = h.now()
			break
		}
	}
	s.Send(map[string]interface{}{
		"type":       TypePong,
		"serverTime": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Hub) dropSession(s *Session) {
	if !h.sessions[s] {
		return
	}
	delete(h.sessions, s)
	close(s.send)

	for id, w := range h.workers {
		if w.sess == s {
			delete(h.workers, id)
			h.deleteSnapshot(id)
			log.Printf("[Hub] Worker %s disconnected (%d)", w.rec.Nombre, id)
			h.notifyLeaders(map[string]interface{}{
				"type":   TypeUserDisconnected,
				"userId": id,
				"nombre": w.rec.Nombre,
			})
			return
		}
	}

	for id, sess := range h.leaders {
		if sess == s {
			delete(h.leaders, id)
			log.Printf("[Hub] Leader disconnected (%d)", id)
			return
		}
	}
}

// sweepStale evicts workers whose sockets half-closed without a close event.
func (h *Hub) sweepStale() {
	now := h.now()
	for id, w := range h.workers {
		if now.Sub(w.rec.LastUpdate) <= h.staleTimeout {
			continue
		}
		log.Printf("[Hub] Evicting stale worker %s (%d)", w.rec.Nombre, id)
		if w.sess != nil {
			w.sess.forceClose()
		}
		delete(h.workers, id)
		h.deleteSnapshot(id)
		h.notifyLeaders(map[string]interface{}{
			"type":   TypeUserDisconnected,
			"userId": id,
			"nombre": w.rec.Nombre,
		})
	}
}

func (h *Hub) notifyLeaders(payload map[string]interface{}) {
	for _, sess := range h.leaders {
		sess.Send(payload)
	}
}

func (h *Hub) snapshot() []models.ConnectedWorker {
	users := make([]models.ConnectedWorker, 0, len(h.workers))
	for _, w := range h.workers {
		users = append(users, w.rec)
	}
	return users
}

func (h *Hub) saveSnapshot(rec models.ConnectedWorker) {
	if h.store == nil {
		return
	}
	if err := h.store.Save(rec); err != nil {
		log.Printf("[Hub] Failed to save snapshot for %d: %v", rec.UserID, err)
	}
}

func (h *Hub) deleteSnapshot(userID int) {
	if h.store == nil {
		return
	}
	if err := h.store.Delete(userID); err != nil {
		log.Printf("[Hub] Failed to delete snapshot for %d: %v", userID, err)
	}
}

// ---- Operations used by the REST layer ----

// Snapshot returns a copy of all connected worker records.
func (h *Hub) Snapshot() []models.ConnectedWorker {
	var users []models.ConnectedWorker
	h.do(func() { users = h.snapshot() })
	return users
}

// WorkerStatus returns the live record of one worker.
func (h *Hub) WorkerStatus(userID int) (models.ConnectedWorker, bool) {
	var (
		rec models.ConnectedWorker
		ok  bool
	)
	h.do(func() {
		if w, found := h.workers[userID]; found {
			rec = w.rec
			ok = true
		}
	})
	return rec, ok
}

// ForceEstado sets a worker's status from outside the socket protocol. The
// worker is told with forced_estado_change and leaders get the usual
// estado_cambio broadcast.
func (h *Hub) ForceEstado(userID int, estado string) bool {
	var ok bool
	h.do(func() {
		w, found := h.workers[userID]
		if !found {
			return
		}
		ok = true
		w.rec.Estado = estado
		w.rec.LastUpdate = h.now()
		h.saveSnapshot(w.rec)

		if w.sess != nil {
			w.sess.Send(map[string]interface{}{
				"type":   TypeForcedEstadoChange,
				"estado": estado,
			})
		}
		h.notifyLeaders(estadoCambioPayload(w.rec))
	})
	return ok
}

// Stats aggregates live counts per estado plus the leader count.
func (h *Hub) Stats() Stats {
	st := Stats{Estados: map[string]int{
		"disponible":              0,
		"break":                   0,
		"almuerzo":                0,
		models.EstadoDesconectado: 0,
	}}
	h.do(func() {
		st.Total = len(h.workers)
		st.Lideres = len(h.leaders)
		for _, w := range h.workers {
			st.Estados[w.rec.Estado]++
		}
	})
	return st
}

// Counts returns the number of live sessions, for the health endpoint.
func (h *Hub) Counts() (sessions, workers, leaders int) {
	h.do(func() {
		sessions = len(h.sessions)
		workers = len(h.workers)
		leaders = len(h.leaders)
	})
	return
}
