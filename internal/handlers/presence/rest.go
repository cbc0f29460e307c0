package presence

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cxworkforce/presencia/internal/pkg/response"
	"github.com/cxworkforce/presencia/internal/presence"
	"github.com/go-chi/chi/v5"
)

// ConnectedUsersHandler returns the live roster.
func ConnectedUsersHandler(hub *presence.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users := hub.Snapshot()
		response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"count": len(users),
			"users": users,
		})
	}
}

// UserStatusHandler returns one worker's live record, 404 when not connected.
func UserStatusHandler(hub *presence.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.Atoi(chi.URLParam(r, "userId"))
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid user id")
			return
		}
		rec, ok := hub.WorkerStatus(userID)
		if !ok {
			response.RespondWithError(w, http.StatusNotFound, "Usuario no conectado")
			return
		}
		response.RespondWithJSON(w, http.StatusOK, rec)
	}
}

// ForceEstadoHandler sets a worker's status administratively. The worker's
// socket gets a forced_estado_change frame so the client can follow.
func ForceEstadoHandler(hub *presence.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID int    `json:"userId"`
			Estado string `json:"estado"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 || req.Estado == "" {
			response.RespondWithError(w, http.StatusBadRequest, "userId y estado son requeridos")
			return
		}
		if !hub.ForceEstado(req.UserID, req.Estado) {
			response.RespondWithError(w, http.StatusNotFound, "Usuario no conectado")
			return
		}
		response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"userId":  req.UserID,
			"estado":  req.Estado,
		})
	}
}

// StatisticsHandler aggregates live counts per status.
func StatisticsHandler(hub *presence.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := hub.Stats()
		response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"totalConectados": st.Total,
			"porEstado":       st.Estados,
			"lideres":         st.Lideres,
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// HealthHandler reports liveness and connection counts.
func HealthHandler(hub *presence.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, workers, leaders := hub.Counts()
		response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "ok",
			"conexiones": sessions,
			"usuarios":   workers,
			"lideres":    leaders,
		})
	}
}
