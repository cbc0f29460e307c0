package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cxworkforce/presencia/internal/models"
)

type HorarioRepository struct {
	db *sql.DB
}

func NewHorarioRepository(db *sql.DB) *HorarioRepository {
	return &HorarioRepository{db: db}
}

// diasSemana maps Go weekdays to the names stored in dias_semana.
var diasSemana = map[time.Weekday]string{
	time.Monday:    "lunes",
	time.Tuesday:   "martes",
	time.Wednesday: "miercoles",
	time.Thursday:  "jueves",
	time.Friday:    "viernes",
	time.Saturday:  "sabado",
	time.Sunday:    "domingo",
}

// HorarioActual returns the assignment covering the given date, preferring
// the most recently started one. sql.ErrNoRows when the advisor has no
// schedule for that weekday.
func (r *HorarioRepository) HorarioActual(ctx context.Context, idAsesor int, fecha time.Time) (models.AsignacionHorario, error) {
	query := `
		SELECT id, lider_id, id_asesor,
		       to_char(fecha_inicio, 'YYYY-MM-DD'),
		       to_char(fecha_fin, 'YYYY-MM-DD'),
		       to_char(hora_entrada, 'HH24:MI:SS'),
		       to_char(hora_salida, 'HH24:MI:SS'),
		       dias_semana, minutos_adicionales
		FROM asignaciones_horario
		WHERE id_asesor = $1
		  AND fecha_inicio <= $2
		  AND (fecha_fin IS NULL OR fecha_fin >= $2)
		  AND dias_semana @> to_jsonb($3::text)
		ORDER BY fecha_inicio DESC, id DESC
		LIMIT 1
	`
	dia := diasSemana[fecha.Weekday()]
	var a models.AsignacionHorario
	var dias []byte
	err := r.db.QueryRowContext(ctx, query, idAsesor, fecha.Format("2006-01-02"), dia).Scan(
		&a.ID, &a.LiderID, &a.IDAsesor, &a.FechaInicio, &a.FechaFin,
		&a.HoraEntrada, &a.HoraSalida, &dias, &a.MinutosAdicionales)
	if err != nil {
		return models.AsignacionHorario{}, err
	}
	if err := json.Unmarshal(dias, &a.DiasSemana); err != nil {
		return models.AsignacionHorario{}, err
	}
	return a, nil
}

// Crear inserts a new assignment.
func (r *HorarioRepository) Crear(ctx context.Context, a *models.AsignacionHorario) error {
	dias, err := json.Marshal(a.DiasSemana)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO asignaciones_horario
			(lider_id, id_asesor, fecha_inicio, fecha_fin, hora_entrada, hora_salida, dias_semana, minutos_adicionales)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		a.LiderID, a.IDAsesor, a.FechaInicio, a.FechaFin,
		a.HoraEntrada, a.HoraSalida, dias, a.MinutosAdicionales,
	).Scan(&a.ID)
}
