package presence

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	presencehub "github.com/cxworkforce/presencia/internal/presence"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*chi.Mux, *presencehub.Hub) {
	t.Helper()
	hub := presencehub.NewHub(nil, 30*time.Minute, time.Hour)
	go hub.Run()
	t.Cleanup(hub.Stop)

	r := chi.NewRouter()
	r.Get("/health", HealthHandler(hub))
	r.Get("/api/connected-users", ConnectedUsersHandler(hub))
	r.Get("/api/user-status/{userId}", UserStatusHandler(hub))
	r.Post("/api/force-estado", ForceEstadoHandler(hub))
	r.Get("/api/statistics", StatisticsHandler(hub))
	return r, hub
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var payload map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func TestHealthHandler(t *testing.T) {
	r, _ := newTestRouter(t)
	rec, payload := doRequest(t, r, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", payload["status"])
	assert.EqualValues(t, 0, payload["usuarios"])
}

func TestConnectedUsersEmpty(t *testing.T) {
	r, _ := newTestRouter(t)
	rec, payload := doRequest(t, r, http.MethodGet, "/api/connected-users", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, payload["count"])
}

func TestUserStatusNotConnected(t *testing.T) {
	r, _ := newTestRouter(t)
	rec, payload := doRequest(t, r, http.MethodGet, "/api/user-status/42", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Usuario no conectado", payload["error"])
}

func TestUserStatusBadID(t *testing.T) {
	r, _ := newTestRouter(t)
	rec, _ := doRequest(t, r, http.MethodGet, "/api/user-status/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForceEstadoValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, _ := doRequest(t, r, http.MethodPost, "/api/force-estado", `{"estado":"break"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, r, http.MethodPost, "/api/force-estado", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// well-formed but nobody connected
	rec, _ = doRequest(t, r, http.MethodPost, "/api/force-estado", `{"userId":42,"estado":"break"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatisticsEmptyHub(t *testing.T) {
	r, _ := newTestRouter(t)
	rec, payload := doRequest(t, r, http.MethodGet, "/api/statistics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, payload["totalConectados"])
	assert.EqualValues(t, 0, payload["lideres"])

	porEstado, ok := payload["porEstado"].(map[string]interface{})
	require.True(t, ok)
	// the base statuses are always present, even at zero
	for _, k := range []string{"disponible", "break", "almuerzo", "desconectado"} {
		assert.Contains(t, porEstado, k)
	}
}
