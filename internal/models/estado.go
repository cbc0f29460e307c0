package models

import "time"

// EstadoTipo is one entry of the master status catalog. Slug is the stable
// key used on the wire (disponible, break, almuerzo, reunion, ...).
type EstadoTipo struct {
	ID                   int    `json:"id"`
	Slug                 string `json:"slug"`
	Nombre               string `json:"nombre"`
	ColorHex             string `json:"color_hex"`
	Orden                int    `json:"orden"`
	Activo               bool   `json:"activo"`
	LimiteMinutosDefault *int   `json:"limite_minutos_default"`
}

// EstadoConfigAsesor overrides a catalog entry for a single advisor.
type EstadoConfigAsesor struct {
	IDAsesor              int     `json:"id_asesor"`
	EstadoID              int     `json:"estado_id"`
	Activo                bool    `json:"activo"`
	ColorHexOverride      *string `json:"color_hex_override"`
	LimiteMinutosOverride *int    `json:"limite_minutos_override"`
}

// EstadoAsesor is a catalog entry merged with the advisor's override. This is
// what the marker consumes: it never has to know where a limit came from.
type EstadoAsesor struct {
	EstadoTipo
	ActivoConfig  bool `json:"activo_config"`
	LimiteMinutos *int `json:"limite_minutos"`
}

// LimiteEfectivo resolves the status limit: per-advisor override when the
// override row is active, otherwise the catalog default, otherwise unmetered.
func (e EstadoAsesor) LimiteEfectivo() (time.Duration, bool) {
	if e.ActivoConfig && e.LimiteMinutos != nil {
		return time.Duration(*e.LimiteMinutos) * time.Minute, true
	}
	if e.LimiteMinutosDefault != nil {
		return time.Duration(*e.LimiteMinutosDefault) * time.Minute, true
	}
	return 0, false
}

// Asesor mirrors the advisor identity owned by the accounts system.
type Asesor struct {
	ID       int    `json:"id"`
	IDAsesor int    `json:"id_asesor"`
	Nombre   string `json:"nombre"`
	Cargo    string `json:"cargo"`
	Area     string `json:"area"`
}
