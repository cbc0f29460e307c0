package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cxworkforce/presencia/internal/models"
)

var (
	ErrJornadaYaIniciada = errors.New("la jornada de hoy ya fue iniciada")
	ErrJornadaNoIniciada = errors.New("no hay jornada abierta")
)

type JornadaRepository struct {
	db *sql.DB
}

func NewJornadaRepository(db *sql.DB) *JornadaRepository {
	return &JornadaRepository{db: db}
}

// MarcarEntrada opens today's working day and classifies the entry against
// the assigned schedule when one exists.
func (r *JornadaRepository) MarcarEntrada(ctx context.Context, idAsesor int, horario *models.AsignacionHorario, now time.Time) (models.JornadaLaboral, error) {
	fecha := now.Format("2006-01-02")

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM jornadas_laborales WHERE id_asesor = $1 AND fecha = $2 AND inicio_real IS NOT NULL)`,
		idAsesor, fecha).Scan(&exists)
	if err != nil {
		return models.JornadaLaboral{}, err
	}
	if exists {
		return models.JornadaLaboral{}, ErrJornadaYaIniciada
	}

	j := models.JornadaLaboral{IDAsesor: idAsesor, Fecha: fecha, InicioReal: &now}
	if horario != nil {
		programada, err := horario.EntradaProgramada(now)
		if err == nil {
			diff, label := models.ClasificarPuntualidad(now, programada)
			j.InicioProgramado = &horario.HoraEntrada
			j.FinProgramado = &horario.HoraSalida
			j.DiferenciaEntradaMin = &diff
			j.EstadoEntrada = &label
		}
	}

	query := `
		INSERT INTO jornadas_laborales
			(id_asesor, fecha, inicio_real, inicio_programado, fin_programado, diferencia_entrada_min, estado_entrada)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id_asesor, fecha) DO UPDATE SET
			inicio_real = EXCLUDED.inicio_real,
			inicio_programado = EXCLUDED.inicio_programado,
			fin_programado = EXCLUDED.fin_programado,
			diferencia_entrada_min = EXCLUDED.diferencia_entrada_min,
			estado_entrada = EXCLUDED.estado_entrada
		RETURNING id
	`
	err = r.db.QueryRowContext(ctx, query,
		j.IDAsesor, j.Fecha, j.InicioReal, j.InicioProgramado, j.FinProgramado,
		j.DiferenciaEntradaMin, j.EstadoEntrada).Scan(&j.ID)
	if err != nil {
		return models.JornadaLaboral{}, err
	}
	return j, nil
}

// MarcarSalida closes today's working day and any open status segment.
func (r *JornadaRepository) MarcarSalida(ctx context.Context, idAsesor int, horario *models.AsignacionHorario, now time.Time) (models.JornadaLaboral, error) {
	fecha := now.Format("2006-01-02")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.JornadaLaboral{}, err
	}
	defer tx.Rollback()

	if err := cerrarSegmentoAbierto(ctx, tx, idAsesor, now); err != nil {
		return models.JornadaLaboral{}, err
	}

	var diffPtr *int
	var labelPtr *string
	if horario != nil {
		programada, err := horario.SalidaProgramada(now)
		if err == nil {
			diff, label := models.ClasificarPuntualidad(now, programada)
			diffPtr = &diff
			labelPtr = &label
		}
	}

	j := models.JornadaLaboral{IDAsesor: idAsesor, Fecha: fecha}
	query := `
		UPDATE jornadas_laborales
		SET fin_real = $3, diferencia_salida_min = $4, estado_salida = $5
		WHERE id_asesor = $1 AND fecha = $2 AND inicio_real IS NOT NULL AND fin_real IS NULL
		RETURNING id, inicio_real, fin_real, inicio_programado, fin_programado,
		          diferencia_entrada_min, diferencia_salida_min, estado_entrada, estado_salida
	`
	err = tx.QueryRowContext(ctx, query, idAsesor, fecha, now, diffPtr, labelPtr).Scan(
		&j.ID, &j.InicioReal, &j.FinReal, &j.InicioProgramado, &j.FinProgramado,
		&j.DiferenciaEntradaMin, &j.DiferenciaSalidaMin, &j.EstadoEntrada, &j.EstadoSalida)
	if errors.Is(err, sql.ErrNoRows) {
		return models.JornadaLaboral{}, ErrJornadaNoIniciada
	}
	if err != nil {
		return models.JornadaLaboral{}, err
	}
	return j, tx.Commit()
}

// Transition closes the advisor's open status segment and opens a new one.
// The closed segment gets its duration and, when metered, the overage in
// minutes.
func (r *JornadaRepository) Transition(ctx context.Context, idAsesor int, estado string, limiteMinutos *int, now time.Time) (models.JornadaEstado, error) {
	fecha := now.Format("2006-01-02")

	var abierta bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM jornadas_laborales WHERE id_asesor = $1 AND fecha = $2 AND inicio_real IS NOT NULL AND fin_real IS NULL)`,
		idAsesor, fecha).Scan(&abierta)
	if err != nil {
		return models.JornadaEstado{}, err
	}
	if !abierta {
		return models.JornadaEstado{}, ErrJornadaNoIniciada
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.JornadaEstado{}, err
	}
	defer tx.Rollback()

	if err := cerrarSegmentoAbierto(ctx, tx, idAsesor, now); err != nil {
		return models.JornadaEstado{}, err
	}

	seg := models.JornadaEstado{
		IDAsesor:      idAsesor,
		Estado:        estado,
		Inicio:        now,
		LimiteMinutos: limiteMinutos,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO jornada_estados (id_asesor, estado_slug, inicio, limite_minutos)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		idAsesor, estado, now, limiteMinutos).Scan(&seg.ID)
	if err != nil {
		return models.JornadaEstado{}, err
	}
	return seg, tx.Commit()
}

func cerrarSegmentoAbierto(ctx context.Context, tx *sql.Tx, idAsesor int, now time.Time) error {
	query := `
		UPDATE jornada_estados
		SET fin = $2,
		    duracion_seg = EXTRACT(EPOCH FROM ($2 - inicio))::int,
		    diferencia_minutos = CASE
		        WHEN limite_minutos IS NOT NULL
		        THEN GREATEST(0, (EXTRACT(EPOCH FROM ($2 - inicio)) / 60)::int - limite_minutos)
		    END
		WHERE id_asesor = $1 AND fin IS NULL
	`
	_, err := tx.ExecContext(ctx, query, idAsesor, now)
	return err
}

// CerrarJornadasVencidas auto-closes working days left open past the marking
// window: any open jornada from a previous day, or one whose scheduled exit
// plus the exit margin has already passed. Returns how many were closed.
func (r *JornadaRepository) CerrarJornadasVencidas(ctx context.Context, now time.Time) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	margen := int(models.MargenSalida / time.Minute)
	rows, err := tx.QueryContext(ctx, `
		UPDATE jornadas_laborales
		SET fin_real = $1, estado_salida = 'auto'
		WHERE inicio_real IS NOT NULL AND fin_real IS NULL
		  AND (fecha < $2::date
		       OR (fin_programado IS NOT NULL
		           AND fecha + fin_programado + make_interval(mins => $3) < $1))
		RETURNING id_asesor`,
		now, now.Format("2006-01-02"), margen)
	if err != nil {
		return 0, err
	}
	var asesores []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		asesores = append(asesores, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range asesores {
		if err := cerrarSegmentoAbierto(ctx, tx, id, now); err != nil {
			return 0, err
		}
	}
	return len(asesores), tx.Commit()
}

// StatusActual returns the slug of the advisor's open segment, or
// "desconectado" when none is open.
func (r *JornadaRepository) StatusActual(ctx context.Context, idAsesor int) (string, *time.Time, error) {
	var estado string
	var inicio time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT estado_slug, inicio FROM jornada_estados
		 WHERE id_asesor = $1 AND fin IS NULL
		 ORDER BY inicio DESC LIMIT 1`,
		idAsesor).Scan(&estado, &inicio)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EstadoDesconectado, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return estado, &inicio, nil
}

// JornadaActual returns today's working day with its segments, or
// sql.ErrNoRows when the day was never opened.
func (r *JornadaRepository) JornadaActual(ctx context.Context, idAsesor int, fecha time.Time) (models.JornadaLaboral, []models.JornadaEstado, error) {
	dia := fecha.Format("2006-01-02")
	var j models.JornadaLaboral
	err := r.db.QueryRowContext(ctx, `
		SELECT id, id_asesor, to_char(fecha, 'YYYY-MM-DD'), inicio_real, fin_real,
		       to_char(inicio_programado, 'HH24:MI:SS'), to_char(fin_programado, 'HH24:MI:SS'),
		       diferencia_entrada_min, diferencia_salida_min, estado_entrada, estado_salida
		FROM jornadas_laborales
		WHERE id_asesor = $1 AND fecha = $2`,
		idAsesor, dia).Scan(
		&j.ID, &j.IDAsesor, &j.Fecha, &j.InicioReal, &j.FinReal,
		&j.InicioProgramado, &j.FinProgramado,
		&j.DiferenciaEntradaMin, &j.DiferenciaSalidaMin, &j.EstadoEntrada, &j.EstadoSalida)
	if err != nil {
		return models.JornadaLaboral{}, nil, err
	}

	estados, err := r.segmentosDelDia(ctx, idAsesor, dia)
	if err != nil {
		return models.JornadaLaboral{}, nil, err
	}
	return j, estados, nil
}

// Historial returns past working days, newest first, each with its segments.
func (r *JornadaRepository) Historial(ctx context.Context, idAsesor, limit int) ([]models.JornadaLaboral, map[int][]models.JornadaEstado, error) {
	if limit <= 0 || limit > 90 {
		limit = 30
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, id_asesor, to_char(fecha, 'YYYY-MM-DD'), inicio_real, fin_real,
		       to_char(inicio_programado, 'HH24:MI:SS'), to_char(fin_programado, 'HH24:MI:SS'),
		       diferencia_entrada_min, diferencia_salida_min, estado_entrada, estado_salida
		FROM jornadas_laborales
		WHERE id_asesor = $1
		ORDER BY fecha DESC
		LIMIT $2`, idAsesor, limit)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var jornadas []models.JornadaLaboral
	for rows.Next() {
		var j models.JornadaLaboral
		if err := rows.Scan(&j.ID, &j.IDAsesor, &j.Fecha, &j.InicioReal, &j.FinReal,
			&j.InicioProgramado, &j.FinProgramado,
			&j.DiferenciaEntradaMin, &j.DiferenciaSalidaMin, &j.EstadoEntrada, &j.EstadoSalida); err != nil {
			return nil, nil, err
		}
		jornadas = append(jornadas, j)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	segmentos := make(map[int][]models.JornadaEstado, len(jornadas))
	for _, j := range jornadas {
		segs, err := r.segmentosDelDia(ctx, idAsesor, j.Fecha)
		if err != nil {
			return nil, nil, err
		}
		segmentos[j.ID] = segs
	}
	return jornadas, segmentos, nil
}

func (r *JornadaRepository) segmentosDelDia(ctx context.Context, idAsesor int, fecha string) ([]models.JornadaEstado, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, id_asesor, estado_slug, inicio, fin, duracion_seg, limite_minutos, diferencia_minutos
		FROM jornada_estados
		WHERE id_asesor = $1 AND inicio::date = $2
		ORDER BY inicio`, idAsesor, fecha)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segs []models.JornadaEstado
	for rows.Next() {
		var s models.JornadaEstado
		if err := rows.Scan(&s.ID, &s.IDAsesor, &s.Estado, &s.Inicio, &s.Fin,
			&s.DuracionSeg, &s.LimiteMinutos, &s.DiferenciaMinutos); err != nil {
			return nil, err
		}
		segs = append(segs, s)
	}
	return segs, rows.Err()
}
