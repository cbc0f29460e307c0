package client

import (
	"errors"
	"sync"
	"time"

	"github.com/cxworkforce/presencia/internal/models"
)

// EstadoJornadaActiva: shift opened, no concrete status chosen yet. Entering
// a status from here is the day's first transition, not a status change.
const EstadoJornadaActiva = "jornada_activa"

var (
	ErrJornadaCerrada    = errors.New("la jornada ya fue finalizada")
	ErrJornadaNoIniciada = errors.New("la jornada no ha sido iniciada")
	ErrJornadaYaIniciada = errors.New("la jornada ya fue iniciada")
)

// EsEstadoDeCatalogo reports whether a slug names a concrete catalog status.
// jornada_activa and desconectado are lifecycle markers recorded by
// marcar-entrada / marcar-salida, never by the transition endpoint.
func EsEstadoDeCatalogo(estado string) bool {
	return estado != EstadoJornadaActiva && estado != models.EstadoDesconectado
}

// Segmento is one interval of the day spent in a concrete status. Fin == nil
// marks the currently open segment.
type Segmento struct {
	Estado string     `json:"estado"`
	Inicio time.Time  `json:"inicio"`
	Fin    *time.Time `json:"fin"`
}

// RegistroDia is the client-local projection of the working day.
type RegistroDia struct {
	Fecha         string        `json:"fecha"`
	HoraEntrada   *time.Time    `json:"hora_entrada"`
	HoraSalida    *time.Time    `json:"hora_salida"`
	Segmentos     []Segmento    `json:"segmentos"`
	TiempoReponer time.Duration `json:"tiempo_reponer"`
}

// LimiteFunc resolves the effective limit for a status slug: advisor override
// first, catalog default second, unmetered otherwise.
type LimiteFunc func(estado string) (time.Duration, bool)

// Marcador is the worker-side attendance state machine. It records
// timestamps and segments; schedule-window eligibility is enforced by the
// caller before invoking it.
type Marcador struct {
	mu  sync.Mutex
	now func() time.Time

	limites LimiteFunc

	estado       string
	horaInicio   time.Time
	limiteActual time.Duration
	limitado     bool
	excedente    time.Duration
	alertado     bool
	cerrada      bool

	registro RegistroDia

	onCambio    func(estado string)
	onExcedente func(estado string, excedente time.Duration)
}

// NewMarcador builds the state machine in the desconectado state. onCambio
// is how the connection manager learns what to transmit; the state machine
// never talks to the hub directly.
func NewMarcador(limites LimiteFunc, onCambio func(string), onExcedente func(string, time.Duration)) *Marcador {
	if limites == nil {
		limites = func(string) (time.Duration, bool) { return 0, false }
	}
	return &Marcador{
		now:         time.Now,
		limites:     limites,
		estado:      models.EstadoDesconectado,
		onCambio:    onCambio,
		onExcedente: onExcedente,
	}
}

// IniciarJornada opens the working day. Records the timestamp only; whether
// "now" falls inside the schedule window is the caller's decision.
func (m *Marcador) IniciarJornada() error {
	m.mu.Lock()
	if m.cerrada {
		m.mu.Unlock()
		return ErrJornadaCerrada
	}
	if m.registro.HoraEntrada != nil {
		m.mu.Unlock()
		return ErrJornadaYaIniciada
	}

	t := m.now()
	m.registro.Fecha = t.Format("2006-01-02")
	m.registro.HoraEntrada = &t
	m.estado = EstadoJornadaActiva
	m.mu.Unlock()

	m.emitCambio(EstadoJornadaActiva)
	return nil
}

// CambiarEstado enters a concrete status. The previous open segment is
// closed at the same instant the new one opens: no gap, no overlap.
func (m *Marcador) CambiarEstado(estado string) error {
	m.mu.Lock()
	if m.cerrada {
		m.mu.Unlock()
		return ErrJornadaCerrada
	}
	if m.registro.HoraEntrada == nil {
		m.mu.Unlock()
		return ErrJornadaNoIniciada
	}

	t := m.now()
	m.accrueLocked(t)
	m.cerrarSegmentoLocked(t)

	m.registro.Segmentos = append(m.registro.Segmentos, Segmento{Estado: estado, Inicio: t})
	m.estado = estado
	m.horaInicio = t
	m.limiteActual, m.limitado = m.limites(estado)
	m.excedente = 0
	m.alertado = false
	m.mu.Unlock()

	m.emitCambio(estado)
	return nil
}

// FinalizarJornada closes the day. Leaving an over-limit status counts its
// overage into the make-up total even here.
func (m *Marcador) FinalizarJornada() error {
	m.mu.Lock()
	if m.registro.HoraEntrada == nil {
		m.mu.Unlock()
		return ErrJornadaNoIniciada
	}
	if m.cerrada {
		m.mu.Unlock()
		return ErrJornadaCerrada
	}

	t := m.now()
	m.accrueLocked(t)
	m.cerrarSegmentoLocked(t)
	m.registro.HoraSalida = &t
	m.estado = models.EstadoDesconectado
	m.cerrada = true
	m.limitado = false
	m.excedente = 0
	m.alertado = false
	m.mu.Unlock()

	m.emitCambio(models.EstadoDesconectado)
	return nil
}

// Tick recomputes the elapsed/overage counters against the clock. The alert
// fires exactly once per occupancy of a limited status.
func (m *Marcador) Tick(now time.Time) (excedente time.Duration, alerted bool) {
	m.mu.Lock()
	if !m.enEstadoConcretoLocked() || !m.limitado {
		m.mu.Unlock()
		return 0, false
	}

	over := now.Sub(m.horaInicio) - m.limiteActual
	if over < 0 {
		over = 0
	}
	m.excedente = over
	if over > 0 && !m.alertado {
		m.alertado = true
		alerted = true
	}
	estado := m.estado
	m.mu.Unlock()

	if alerted && m.onExcedente != nil {
		m.onExcedente(estado, over)
	}
	return over, alerted
}

// Estado returns the current status slug.
func (m *Marcador) Estado() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.estado
}

// Excedente returns the current occupancy's overage.
func (m *Marcador) Excedente() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.excedente
}

// TiempoReponer returns the accumulated make-up total for the day.
func (m *Marcador) TiempoReponer() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registro.TiempoReponer
}

// JornadaCerrada reports whether the day has been closed.
func (m *Marcador) JornadaCerrada() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cerrada
}

// Registro returns a copy of the day's record.
func (m *Marcador) Registro() RegistroDia {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg := m.registro
	reg.Segmentos = append([]Segmento(nil), m.registro.Segmentos...)
	return reg
}

func (m *Marcador) emitCambio(estado string) {
	if m.onCambio != nil {
		m.onCambio(estado)
	}
}

func (m *Marcador) enEstadoConcretoLocked() bool {
	return m.estado != models.EstadoDesconectado && m.estado != EstadoJornadaActiva
}

// accrueLocked folds the current occupancy's overage into the make-up total.
// Called on every exit from a status, shift end included. Recomputed from the
// clock so the total is exact even between ticks.
func (m *Marcador) accrueLocked(t time.Time) {
	if !m.enEstadoConcretoLocked() || !m.limitado {
		return
	}
	if over := t.Sub(m.horaInicio) - m.limiteActual; over > 0 {
		m.registro.TiempoReponer += over
	}
}

// cerrarSegmentoLocked terminates the open segment, if any, at t.
func (m *Marcador) cerrarSegmentoLocked(t time.Time) {
	if n := len(m.registro.Segmentos); n > 0 && m.registro.Segmentos[n-1].Fin == nil {
		fin := t
		m.registro.Segmentos[n-1].Fin = &fin
	}
}
