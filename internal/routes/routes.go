package routes

import (
	"database/sql"
	"net/http"

	"github.com/cxworkforce/presencia/config"
	presenceHandlers "github.com/cxworkforce/presencia/internal/handlers/presence"
	workforceHandlers "github.com/cxworkforce/presencia/internal/handlers/workforce"
	"github.com/cxworkforce/presencia/internal/middleware"
	"github.com/cxworkforce/presencia/internal/presence"
	"github.com/cxworkforce/presencia/internal/repositories"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

// Setup wires the router. The verifier also accepts ?token= because the
// browser WebSocket API cannot set headers.
func Setup(cfg *config.Config, database *sql.DB, hub *presence.Hub) *chi.Mux {
	jwtAuth := jwtauth.New("HS256", []byte(cfg.JwtSecret), nil)

	estadoRepo := repositories.NewEstadoRepository(database)
	horarioRepo := repositories.NewHorarioRepository(database)
	jornadaRepo := repositories.NewJornadaRepository(database)
	jornadaDeps := workforceHandlers.JornadaDeps{
		Jornadas: jornadaRepo,
		Horarios: horarioRepo,
		Estados:  estadoRepo,
	}

	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(jwtauth.Verify(jwtAuth, jwtauth.TokenFromQuery, jwtauth.TokenFromHeader))
	router.Use(middleware.AddUserIDToContext())

	router.Get("/health", presenceHandlers.HealthHandler(hub))

	router.Group(func(r chi.Router) {
		r.Use(jwtauth.Authenticator(jwtAuth))

		r.Handle("/ws", presenceHandlers.WebSocketHandler(hub))

		r.Get("/api/connected-users", presenceHandlers.ConnectedUsersHandler(hub))
		r.Get("/api/user-status/{userId}", presenceHandlers.UserStatusHandler(hub))
		r.Post("/api/force-estado", presenceHandlers.ForceEstadoHandler(hub))
		r.Get("/api/statistics", presenceHandlers.StatisticsHandler(hub))

		r.Get("/api/estados", workforceHandlers.ListEstadosHandler(estadoRepo))
		r.Post("/api/horarios", workforceHandlers.CrearHorarioHandler(horarioRepo))

		r.Route("/api/asesores/{id}", func(r chi.Router) {
			r.Get("/estados", workforceHandlers.ListEstadosAsesorHandler(estadoRepo))
			r.Get("/status", workforceHandlers.StatusHandler(jornadaDeps))
			r.Get("/horario-actual", workforceHandlers.HorarioActualHandler(horarioRepo))
			r.Get("/jornada-actual", workforceHandlers.JornadaActualHandler(jornadaDeps))
			r.Get("/historial", workforceHandlers.HistorialHandler(jornadaDeps))
			r.Post("/transition", workforceHandlers.TransitionHandler(jornadaDeps))
			r.Post("/marcar-entrada", workforceHandlers.MarcarEntradaHandler(jornadaDeps))
			r.Post("/marcar-salida", workforceHandlers.MarcarSalidaHandler(jornadaDeps))
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	return router
}
