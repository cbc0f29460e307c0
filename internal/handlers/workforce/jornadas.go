package workforce

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cxworkforce/presencia/internal/models"
	"github.com/cxworkforce/presencia/internal/pkg/response"
	"github.com/cxworkforce/presencia/internal/repositories"
	"github.com/go-chi/chi/v5"
)

// JornadaDeps groups what the working-day endpoints need.
type JornadaDeps struct {
	Jornadas *repositories.JornadaRepository
	Horarios *repositories.HorarioRepository
	Estados  *repositories.EstadoRepository
}

func asesorID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// horarioDeHoy is nil when the advisor has no schedule for today; the day can
// still be opened, just without punctuality classification.
func (d JornadaDeps) horarioDeHoy(r *http.Request, idAsesor int, now time.Time) (*models.AsignacionHorario, error) {
	horario, err := d.Horarios.HorarioActual(r.Context(), idAsesor, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &horario, nil
}

// StatusHandler returns the advisor's current status per the database.
func StatusHandler(d JornadaDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idAsesor, err := asesorID(r)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid advisor id")
			return
		}
		estado, desde, err := d.Jornadas.StatusActual(r.Context(), idAsesor)
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to get status")
			return
		}
		response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"estado": estado,
			"desde":  desde,
		})
	}
}

// MarcarEntradaHandler opens today's working day. Outside the marking window
// the request is refused.
func MarcarEntradaHandler(d JornadaDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idAsesor, err := asesorID(r)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid advisor id")
			return
		}
		now := time.Now()
		horario, err := d.horarioDeHoy(r, idAsesor, now)
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to get horario")
			return
		}
		if horario != nil {
			desde, hasta, err := horario.VentanaMarcacion(now)
			if err == nil && (now.Before(desde) || now.After(hasta)) {
				response.RespondWithError(w, http.StatusConflict, "Fuera de la ventana de marcación")
				return
			}
		}
		jornada, err := d.Jornadas.MarcarEntrada(r.Context(), idAsesor, horario, now)
		if errors.Is(err, repositories.ErrJornadaYaIniciada) {
			response.RespondWithError(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to open jornada")
			return
		}
		response.RespondWithJSON(w, http.StatusCreated, jornada)
	}
}

// MarcarSalidaHandler closes today's working day.
func MarcarSalidaHandler(d JornadaDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idAsesor, err := asesorID(r)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid advisor id")
			return
		}
		now := time.Now()
		horario, err := d.horarioDeHoy(r, idAsesor, now)
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to get horario")
			return
		}
		jornada, err := d.Jornadas.MarcarSalida(r.Context(), idAsesor, horario, now)
		if errors.Is(err, repositories.ErrJornadaNoIniciada) {
			response.RespondWithError(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to close jornada")
			return
		}
		response.RespondWithJSON(w, http.StatusOK, jornada)
	}
}

// TransitionHandler records a status change on the open working day. The slug
// must exist in the catalog; the stored segment carries the effective limit.
func TransitionHandler(d JornadaDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idAsesor, err := asesorID(r)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid advisor id")
			return
		}
		var req struct {
			Estado string `json:"estado"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Estado == "" {
			response.RespondWithError(w, http.StatusBadRequest, "estado es requerido")
			return
		}
		slug := response.NormalizeSlug(req.Estado)

		estado, err := d.Estados.GetBySlug(r.Context(), idAsesor, slug)
		if errors.Is(err, sql.ErrNoRows) {
			response.RespondWithError(w, http.StatusBadRequest, "Estado desconocido: "+slug)
			return
		}
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to resolve estado")
			return
		}

		var limite *int
		if dur, ok := estado.LimiteEfectivo(); ok {
			minutos := int(dur / time.Minute)
			limite = &minutos
		}

		seg, err := d.Jornadas.Transition(r.Context(), idAsesor, slug, limite, time.Now())
		if errors.Is(err, repositories.ErrJornadaNoIniciada) {
			response.RespondWithError(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to record transition")
			return
		}
		response.RespondWithJSON(w, http.StatusCreated, seg)
	}
}

// JornadaActualHandler returns today's working day with its segments.
func JornadaActualHandler(d JornadaDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idAsesor, err := asesorID(r)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid advisor id")
			return
		}
		jornada, estados, err := d.Jornadas.JornadaActual(r.Context(), idAsesor, time.Now())
		if errors.Is(err, sql.ErrNoRows) {
			response.RespondWithError(w, http.StatusNotFound, "Sin jornada para hoy")
			return
		}
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to get jornada")
			return
		}
		response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"jornada": jornada,
			"estados": estados,
		})
	}
}

// HistorialHandler returns past working days, newest first.
func HistorialHandler(d JornadaDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idAsesor, err := asesorID(r)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid advisor id")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		jornadas, segmentos, err := d.Jornadas.Historial(r.Context(), idAsesor, limit)
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to get historial")
			return
		}
		out := make([]map[string]interface{}, 0, len(jornadas))
		for _, j := range jornadas {
			out = append(out, map[string]interface{}{
				"jornada": j,
				"estados": segmentos[j.ID],
			})
		}
		response.RespondWithJSON(w, http.StatusOK, out)
	}
}
