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

// HorarioActualHandler returns the schedule assignment covering today.
func HorarioActualHandler(repo *repositories.HorarioRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idAsesor, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid advisor id")
			return
		}
		horario, err := repo.HorarioActual(r.Context(), idAsesor, time.Now())
		if errors.Is(err, sql.ErrNoRows) {
			response.RespondWithError(w, http.StatusNotFound, "Sin horario asignado para hoy")
			return
		}
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to get horario")
			return
		}
		response.RespondWithJSON(w, http.StatusOK, horario)
	}
}

// CrearHorarioHandler registers a schedule assignment for an advisor.
func CrearHorarioHandler(repo *repositories.HorarioRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var horario models.AsignacionHorario
		if err := json.NewDecoder(r.Body).Decode(&horario); err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if horario.IDAsesor == 0 || horario.HoraEntrada == "" || horario.HoraSalida == "" {
			response.RespondWithError(w, http.StatusBadRequest, "id_asesor, hora_entrada y hora_salida son requeridos")
			return
		}
		if err := repo.Crear(r.Context(), &horario); err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to create horario")
			return
		}
		response.RespondWithJSON(w, http.StatusCreated, horario)
	}
}
