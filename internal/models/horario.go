package models

import (
	"fmt"
	"time"
)

// Margins around the assigned schedule inside which shift marking is allowed.
const (
	MargenEntrada = 30 * time.Minute
	MargenSalida  = 2 * time.Hour
)

// AsignacionHorario is an assigned schedule. Hours come as "HH:MM:SS" strings,
// the format the REST layer has always used.
type AsignacionHorario struct {
	ID                 int      `json:"id"`
	LiderID            int      `json:"lider_id"`
	IDAsesor           int      `json:"id_asesor"`
	FechaInicio        string   `json:"fecha_inicio"`
	FechaFin           *string  `json:"fecha_fin"`
	HoraEntrada        string   `json:"hora_entrada"`
	HoraSalida         string   `json:"hora_salida"`
	DiasSemana         []string `json:"dias_semana"`
	MinutosAdicionales int      `json:"minutos_adicionales"`
}

// EntradaProgramada resolves hora_entrada against the given date.
func (a AsignacionHorario) EntradaProgramada(fecha time.Time) (time.Time, error) {
	return combinarHora(fecha, a.HoraEntrada)
}

// SalidaProgramada resolves hora_salida against the given date.
func (a AsignacionHorario) SalidaProgramada(fecha time.Time) (time.Time, error) {
	return combinarHora(fecha, a.HoraSalida)
}

// VentanaMarcacion returns the window inside which the advisor may start the
// shift: entry margin before the scheduled entry, exit margin after the
// scheduled exit. Eligibility is the caller's concern, never the state
// machine's.
func (a AsignacionHorario) VentanaMarcacion(fecha time.Time) (desde, hasta time.Time, err error) {
	entrada, err := a.EntradaProgramada(fecha)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	salida, err := a.SalidaProgramada(fecha)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return entrada.Add(-MargenEntrada), salida.Add(MargenSalida), nil
}

func combinarHora(fecha time.Time, hora string) (time.Time, error) {
	var hh, mm, ss int
	if _, err := fmt.Sscanf(hora, "%d:%d:%d", &hh, &mm, &ss); err != nil {
		// "HH:MM" also accepted
		if _, err2 := fmt.Sscanf(hora, "%d:%d", &hh, &mm); err2 != nil {
			return time.Time{}, fmt.Errorf("invalid hora %q: %w", hora, err)
		}
	}
	return time.Date(fecha.Year(), fecha.Month(), fecha.Day(), hh, mm, ss, 0, fecha.Location()), nil
}
