package client

import (
	"testing"
	"time"

	"github.com/cxworkforce/presencia/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func limitesDePrueba(estado string) (time.Duration, bool) {
	switch estado {
	case "break":
		return 10 * time.Minute, true
	case "almuerzo":
		return 45 * time.Minute, true
	default:
		return 0, false
	}
}

func nuevoMarcadorDePrueba(t *testing.T) (*Marcador, *fakeClock, *[]string) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)}
	var cambios []string
	m := NewMarcador(limitesDePrueba, func(estado string) {
		cambios = append(cambios, estado)
	}, nil)
	m.now = clock.Now
	return m, clock, &cambios
}

func TestMarcadorOrdenDeOperaciones(t *testing.T) {
	m, _, _ := nuevoMarcadorDePrueba(t)

	assert.ErrorIs(t, m.CambiarEstado("break"), ErrJornadaNoIniciada)
	assert.ErrorIs(t, m.FinalizarJornada(), ErrJornadaNoIniciada)

	require.NoError(t, m.IniciarJornada())
	assert.ErrorIs(t, m.IniciarJornada(), ErrJornadaYaIniciada)
	assert.Equal(t, EstadoJornadaActiva, m.Estado())

	require.NoError(t, m.FinalizarJornada())
	assert.ErrorIs(t, m.FinalizarJornada(), ErrJornadaCerrada)
	assert.ErrorIs(t, m.CambiarEstado("break"), ErrJornadaCerrada)
	assert.ErrorIs(t, m.IniciarJornada(), ErrJornadaCerrada)
	assert.Equal(t, models.EstadoDesconectado, m.Estado())
}

func TestMarcadorEmiteCambios(t *testing.T) {
	m, clock, cambios := nuevoMarcadorDePrueba(t)

	require.NoError(t, m.IniciarJornada())
	clock.Advance(5 * time.Minute)
	require.NoError(t, m.CambiarEstado("break"))
	clock.Advance(15 * time.Minute)
	require.NoError(t, m.CambiarEstado("disponible"))
	require.NoError(t, m.FinalizarJornada())

	assert.Equal(t, []string{EstadoJornadaActiva, "break", "disponible", models.EstadoDesconectado}, *cambios)
}

func TestEsEstadoDeCatalogo(t *testing.T) {
	assert.False(t, EsEstadoDeCatalogo(EstadoJornadaActiva))
	assert.False(t, EsEstadoDeCatalogo(models.EstadoDesconectado))
	assert.True(t, EsEstadoDeCatalogo("break"))
	assert.True(t, EsEstadoDeCatalogo("disponible"))
}

func TestMarcadorExcedenteYAlerta(t *testing.T) {
	m, clock, _ := nuevoMarcadorDePrueba(t)
	var alertas int
	m.onExcedente = func(estado string, exc time.Duration) { alertas++ }

	require.NoError(t, m.IniciarJornada())
	clock.Advance(5 * time.Minute) // 09:05
	require.NoError(t, m.CambiarEstado("break"))

	exc, alerted := m.Tick(clock.t.Add(9 * time.Minute))
	assert.Zero(t, exc)
	assert.False(t, alerted)

	exc, alerted = m.Tick(clock.t.Add(11 * time.Minute))
	assert.Equal(t, time.Minute, exc)
	assert.True(t, alerted)

	// the alert fires once per occupancy
	exc, alerted = m.Tick(clock.t.Add(12 * time.Minute))
	assert.Equal(t, 2*time.Minute, exc)
	assert.False(t, alerted)
	assert.Equal(t, 1, alertas)

	// leaving at 09:20 accrues exactly 5 minutes, ticks or no ticks
	clock.Advance(15 * time.Minute)
	require.NoError(t, m.CambiarEstado("disponible"))
	assert.Equal(t, 5*time.Minute, m.TiempoReponer())
	assert.Zero(t, m.Excedente())

	// re-entering the same status arms the alert again
	clock.Advance(time.Minute)
	require.NoError(t, m.CambiarEstado("break"))
	_, alerted = m.Tick(clock.t.Add(11 * time.Minute))
	assert.True(t, alerted)
	assert.Equal(t, 2, alertas)
}

func TestMarcadorAcumulaAlFinalizar(t *testing.T) {
	m, clock, _ := nuevoMarcadorDePrueba(t)

	require.NoError(t, m.IniciarJornada())
	require.NoError(t, m.CambiarEstado("almuerzo"))
	clock.Advance(50 * time.Minute)
	require.NoError(t, m.FinalizarJornada())

	assert.Equal(t, 5*time.Minute, m.TiempoReponer())
	assert.True(t, m.JornadaCerrada())
}

func TestMarcadorSinLimiteNoAcumula(t *testing.T) {
	m, clock, _ := nuevoMarcadorDePrueba(t)

	require.NoError(t, m.IniciarJornada())
	require.NoError(t, m.CambiarEstado("disponible"))

	exc, alerted := m.Tick(clock.t.Add(8 * time.Hour))
	assert.Zero(t, exc)
	assert.False(t, alerted)

	clock.Advance(8 * time.Hour)
	require.NoError(t, m.FinalizarJornada())
	assert.Zero(t, m.TiempoReponer())
}

func TestMarcadorSegmentosContiguos(t *testing.T) {
	m, clock, _ := nuevoMarcadorDePrueba(t)

	require.NoError(t, m.IniciarJornada())
	clock.Advance(5 * time.Minute)
	require.NoError(t, m.CambiarEstado("disponible"))
	clock.Advance(2 * time.Hour)
	require.NoError(t, m.CambiarEstado("break"))
	clock.Advance(10 * time.Minute)
	require.NoError(t, m.CambiarEstado("disponible"))
	clock.Advance(time.Hour)
	require.NoError(t, m.FinalizarJornada())

	reg := m.Registro()
	require.NotNil(t, reg.HoraEntrada)
	require.NotNil(t, reg.HoraSalida)
	require.Len(t, reg.Segmentos, 3)

	for i, seg := range reg.Segmentos {
		require.NotNil(t, seg.Fin, "segmento %d abierto", i)
		if i > 0 {
			assert.Equal(t, *reg.Segmentos[i-1].Fin, seg.Inicio, "hueco entre segmentos %d y %d", i-1, i)
		}
	}
	assert.Equal(t, *reg.Segmentos[2].Fin, *reg.HoraSalida)
}

func TestMarcadorRegistroEsCopia(t *testing.T) {
	m, clock, _ := nuevoMarcadorDePrueba(t)
	require.NoError(t, m.IniciarJornada())
	require.NoError(t, m.CambiarEstado("disponible"))

	reg := m.Registro()
	require.Len(t, reg.Segmentos, 1)
	reg.Segmentos[0].Estado = "mutado"

	clock.Advance(time.Minute)
	require.NoError(t, m.FinalizarJornada())
	assert.Equal(t, "disponible", m.Registro().Segmentos[0].Estado)
}
