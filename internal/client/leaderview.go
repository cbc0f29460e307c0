package client

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cxworkforce/presencia/internal/models"
	"github.com/cxworkforce/presencia/internal/presence"
)

// LeaderView is the leader-side live roster: userId → latest record, fed by
// all_status (full replace) and the incremental broadcasts. Derived views are
// recomputed from scratch on demand; nothing is incrementally maintained, so
// there is nothing to drift.
type LeaderView struct {
	mu      sync.RWMutex
	workers map[int]models.ConnectedWorker
}

func NewLeaderView() *LeaderView {
	return &LeaderView{workers: make(map[int]models.ConnectedWorker)}
}

// Apply folds one hub message into the roster. Returns true when the roster
// changed.
func (v *LeaderView) Apply(env presence.Envelope) bool {
	switch env.Type {
	case presence.TypeAllStatus:
		v.ReplaceAll(env.Users)
		return true
	case presence.TypeEstadoCambio, presence.TypeUserConnected:
		rec := models.ConnectedWorker{
			UserID:     env.UserID,
			Nombre:     env.Nombre,
			Cargo:      env.Cargo,
			Area:       env.Area,
			Estado:     env.Estado,
			LastUpdate: env.Timestamp,
		}
		if rec.Estado == "" {
			rec.Estado = models.EstadoDesconectado
		}
		v.Upsert(rec)
		return true
	case presence.TypeUserDisconnected:
		v.Remove(env.UserID)
		return true
	default:
		return false
	}
}

// ReplaceAll rebuilds the roster from an all_status snapshot.
func (v *LeaderView) ReplaceAll(workers []models.ConnectedWorker) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.workers = make(map[int]models.ConnectedWorker, len(workers))
	for _, w := range workers {
		v.workers[w.UserID] = w
	}
}

func (v *LeaderView) Upsert(w models.ConnectedWorker) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.workers[w.UserID] = w
}

func (v *LeaderView) Remove(userID int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.workers, userID)
}

// Get returns one worker's record.
func (v *LeaderView) Get(userID int) (models.ConnectedWorker, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	w, ok := v.workers[userID]
	return w, ok
}

// All returns the roster sorted by nombre.
func (v *LeaderView) All() []models.ConnectedWorker {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]models.ConnectedWorker, 0, len(v.workers))
	for _, w := range v.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out
}

// Len returns the roster size.
func (v *LeaderView) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.workers)
}

// CountsByEstado recomputes per-status counts over the whole roster.
func (v *LeaderView) CountsByEstado() map[string]int {
	counts := make(map[string]int)
	for _, w := range v.All() {
		counts[w.Estado]++
	}
	return counts
}

// Filter returns the workers whose nombre, cargo or area contains the query,
// case-insensitively.
func (v *LeaderView) Filter(query string) []models.ConnectedWorker {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return v.All()
	}
	var out []models.ConnectedWorker
	for _, w := range v.All() {
		haystack := strings.ToLower(w.Nombre + " " + w.Cargo + " " + w.Area)
		if strings.Contains(haystack, query) {
			out = append(out, w)
		}
	}
	return out
}

// Puntualidad classification of one roster entry's actual shift start against
// the scheduled entry time.
type Puntualidad struct {
	DiffMin int    `json:"diff_min"`
	Label   string `json:"label"`
}

// Puntualidad compares the real shift start against the scheduled one with
// the ±2 minute tolerance window.
func (v *LeaderView) Puntualidad(inicioReal, inicioProgramado time.Time) Puntualidad {
	diff, label := models.ClasificarPuntualidad(inicioReal, inicioProgramado)
	return Puntualidad{DiffMin: diff, Label: label}
}
