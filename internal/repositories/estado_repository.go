package repositories

import (
	"context"
	"database/sql"

	"github.com/cxworkforce/presencia/internal/models"
)

type EstadoRepository struct {
	db *sql.DB
}

func NewEstadoRepository(db *sql.DB) *EstadoRepository {
	return &EstadoRepository{db: db}
}

// ListCatalog returns the active status catalog in display order.
func (r *EstadoRepository) ListCatalog(ctx context.Context) ([]models.EstadoTipo, error) {
	query := `
		SELECT id, slug, nombre, color_hex, orden, activo, limite_minutos_default
		FROM estado_tipos
		WHERE activo = TRUE
		ORDER BY orden, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.EstadoTipo
	for rows.Next() {
		var e models.EstadoTipo
		if err := rows.Scan(&e.ID, &e.Slug, &e.Nombre, &e.ColorHex, &e.Orden, &e.Activo, &e.LimiteMinutosDefault); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// ListForAsesor returns the catalog merged with the advisor's overrides. A
// missing override row leaves the catalog defaults in effect.
func (r *EstadoRepository) ListForAsesor(ctx context.Context, idAsesor int) ([]models.EstadoAsesor, error) {
	query := `
		SELECT t.id, t.slug, t.nombre,
		       COALESCE(c.color_hex_override, t.color_hex),
		       t.orden, t.activo, t.limite_minutos_default,
		       COALESCE(c.activo, FALSE),
		       c.limite_minutos_override
		FROM estado_tipos t
		LEFT JOIN estado_config_asesor c
		       ON c.estado_id = t.id AND c.id_asesor = $1
		WHERE t.activo = TRUE
		ORDER BY t.orden, t.id
	`
	rows, err := r.db.QueryContext(ctx, query, idAsesor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.EstadoAsesor
	for rows.Next() {
		var e models.EstadoAsesor
		if err := rows.Scan(&e.ID, &e.Slug, &e.Nombre, &e.ColorHex, &e.Orden, &e.Activo,
			&e.LimiteMinutosDefault, &e.ActivoConfig, &e.LimiteMinutos); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetBySlug returns one merged entry for the advisor, sql.ErrNoRows when the
// slug is not in the catalog.
func (r *EstadoRepository) GetBySlug(ctx context.Context, idAsesor int, slug string) (models.EstadoAsesor, error) {
	query := `
		SELECT t.id, t.slug, t.nombre,
		       COALESCE(c.color_hex_override, t.color_hex),
		       t.orden, t.activo, t.limite_minutos_default,
		       COALESCE(c.activo, FALSE),
		       c.limite_minutos_override
		FROM estado_tipos t
		LEFT JOIN estado_config_asesor c
		       ON c.estado_id = t.id AND c.id_asesor = $1
		WHERE t.slug = $2 AND t.activo = TRUE
	`
	var e models.EstadoAsesor
	err := r.db.QueryRowContext(ctx, query, idAsesor, slug).Scan(
		&e.ID, &e.Slug, &e.Nombre, &e.ColorHex, &e.Orden, &e.Activo,
		&e.LimiteMinutosDefault, &e.ActivoConfig, &e.LimiteMinutos)
	return e, err
}
