package presence

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cxworkforce/presencia/internal/models"
)

// Message types of the hub protocol.
const (
	TypeIdentify         = "identify"
	TypeIdentifyLeader   = "identify_leader"
	TypeEstadoCambio     = "estado_cambio"
	TypeRequestAllStatus = "request_all_status"
	TypePing             = "ping"

	TypeConnected          = "connected"
	TypeLeaderConnected    = "leader_connected"
	TypePong               = "pong"
	TypeAllStatus          = "all_status"
	TypeUserConnected      = "user_connected"
	TypeUserDisconnected   = "user_disconnected"
	TypeForcedEstadoChange = "forced_estado_change"
)

// CloseInactivity is the reserved close code meaning "closed because the user
// went idle". It is the only close code that suppresses auto-reconnect on the
// client side.
const CloseInactivity = 4001

// Envelope is the canonical decoded form of an inbound protocol frame.
// Estado is a single canonical field; the wire adapter below accepts and
// emits the historical alias keys so older consumers keep working.
type Envelope struct {
	Type      string
	UserID    int
	Nombre    string
	Cargo     string
	Area      string
	Estado    string
	Timestamp time.Time

	// Users is only present on all_status frames.
	Users []models.ConnectedWorker
}

// flexInt tolerates the id arriving as a JSON number or a string, both of
// which older frontends produced.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type wireEnvelope struct {
	Type             string  `json:"type"`
	UserID           flexInt `json:"userId"`
	Nombre           string  `json:"nombre"`
	Cargo            string  `json:"cargo"`
	Area             string  `json:"area"`
	Estado           string  `json:"estado"`
	NuevoEstado      string  `json:"nuevo_estado"`
	EstadoSlug       string  `json:"estado_slug"`
	EstadoActual     string  `json:"estado_actual"`
	EstadoActualSlug string  `json:"estado_actual_slug"`
	Timestamp        string  `json:"timestamp"`

	Users []models.ConnectedWorker `json:"users,omitempty"`
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Type = w.Type
	e.UserID = int(w.UserID)
	e.Nombre = w.Nombre
	e.Cargo = w.Cargo
	e.Area = w.Area
	e.Estado = firstNonEmpty(w.Estado, w.NuevoEstado, w.EstadoSlug, w.EstadoActual, w.EstadoActualSlug)
	e.Users = w.Users
	e.Timestamp = time.Time{}
	if w.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, w.Timestamp); err == nil {
			e.Timestamp = ts
		}
	}
	return nil
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	w := wireEnvelope{
		Type:   e.Type,
		UserID: flexInt(e.UserID),
		Nombre: e.Nombre,
		Cargo:  e.Cargo,
		Area:   e.Area,
	}
	if e.Estado != "" {
		w.Estado = e.Estado
		w.NuevoEstado = e.Estado
		w.EstadoSlug = e.Estado
		w.EstadoActual = e.Estado
		w.EstadoActualSlug = e.Estado
	}
	if !e.Timestamp.IsZero() {
		w.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	w.Users = e.Users
	return json.Marshal(w)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// estadoCambioPayload builds the broadcast leaders receive on every status
// change, with the full worker record and the alias keys.
func estadoCambioPayload(w models.ConnectedWorker) map[string]interface{} {
	return map[string]interface{}{
		"type":               TypeEstadoCambio,
		"userId":             w.UserID,
		"nombre":             w.Nombre,
		"cargo":              w.Cargo,
		"area":               w.Area,
		"estado":             w.Estado,
		"nuevo_estado":       w.Estado,
		"estado_slug":        w.Estado,
		"estado_actual":      w.Estado,
		"estado_actual_slug": w.Estado,
		"timestamp":          w.LastUpdate.UTC().Format(time.RFC3339),
	}
}
