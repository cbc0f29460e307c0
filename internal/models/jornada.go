package models

import "time"

// ToleranciaPuntualidad: entries/exits within this window of the scheduled
// time count as on time.
const ToleranciaPuntualidad = 2 * time.Minute

// Punctuality labels stored on the jornada and shown on the leader roster.
const (
	PuntualidadATiempo  = "A tiempo"
	PuntualidadTarde    = "Tarde"
	PuntualidadTemprano = "Temprano"
)

// JornadaLaboral records the real start/end of an advisor's working day and
// the comparison against the assigned schedule.
type JornadaLaboral struct {
	ID                   int        `json:"id"`
	IDAsesor             int        `json:"id_asesor"`
	Fecha                string     `json:"fecha"`
	InicioReal           *time.Time `json:"inicio_real"`
	FinReal              *time.Time `json:"fin_real"`
	InicioProgramado     *string    `json:"inicio_programado"`
	FinProgramado        *string    `json:"fin_programado"`
	DiferenciaEntradaMin *int       `json:"diferencia_entrada_min"`
	DiferenciaSalidaMin  *int       `json:"diferencia_salida_min"`
	EstadoEntrada        *string    `json:"estado_entrada"`
	EstadoSalida         *string    `json:"estado_salida"`
}

// JornadaEstado is one closed or open status segment of a working day.
type JornadaEstado struct {
	ID                int        `json:"id"`
	IDAsesor          int        `json:"id_asesor"`
	Estado            string     `json:"estado"`
	Inicio            time.Time  `json:"inicio"`
	Fin               *time.Time `json:"fin"`
	DuracionSeg       int        `json:"duracion_seg"`
	LimiteMinutos     *int       `json:"limite_minutos"`
	DiferenciaMinutos *int       `json:"diferencia_minutos"`
}

// ClasificarPuntualidad compares a real timestamp against the scheduled one.
// Returns the signed difference in minutes and the label. Positive = late.
func ClasificarPuntualidad(real, programada time.Time) (int, string) {
	diff := int(real.Sub(programada).Round(time.Minute) / time.Minute)
	switch {
	case diff > int(ToleranciaPuntualidad/time.Minute):
		return diff, PuntualidadTarde
	case diff < -int(ToleranciaPuntualidad/time.Minute):
		return diff, PuntualidadTemprano
	default:
		return diff, PuntualidadATiempo
	}
}
