package workforce

import (
	"net/http"
	"strconv"

	"github.com/cxworkforce/presencia/internal/pkg/response"
	"github.com/cxworkforce/presencia/internal/repositories"
	"github.com/go-chi/chi/v5"
)

// ListEstadosHandler returns the master status catalog.
func ListEstadosHandler(repo *repositories.EstadoRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		estados, err := repo.ListCatalog(r.Context())
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to list estados")
			return
		}
		response.RespondWithJSON(w, http.StatusOK, estados)
	}
}

// ListEstadosAsesorHandler returns the catalog merged with one advisor's
// overrides, the form the marker client consumes.
func ListEstadosAsesorHandler(repo *repositories.EstadoRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idAsesor, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid advisor id")
			return
		}
		estados, err := repo.ListForAsesor(r.Context(), idAsesor)
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to list estados")
			return
		}
		response.RespondWithJSON(w, http.StatusOK, estados)
	}
}
