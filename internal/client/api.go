package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cxworkforce/presencia/internal/models"
)

// APIClient talks to the workforce REST backend. It carries the advisor's
// bearer token; every call is scoped to one advisor id.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a non-2xx reply from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &apiErr)
		msg := apiErr.Error
		if msg == "" {
			msg = string(bytes.TrimSpace(data))
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Estados returns the master status catalog.
func (c *APIClient) Estados(ctx context.Context) ([]models.EstadoTipo, error) {
	var out []models.EstadoTipo
	err := c.doJSON(ctx, http.MethodGet, "/api/estados", nil, &out)
	return out, err
}

// EstadosAsesor returns the catalog merged with the advisor's overrides.
func (c *APIClient) EstadosAsesor(ctx context.Context, idAsesor int) ([]models.EstadoAsesor, error) {
	var out []models.EstadoAsesor
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/asesores/%d/estados", idAsesor), nil, &out)
	return out, err
}

// StatusActual is the backend's view of the advisor's current status.
type StatusActual struct {
	Estado string     `json:"estado"`
	Desde  *time.Time `json:"desde"`
}

func (c *APIClient) Status(ctx context.Context, idAsesor int) (StatusActual, error) {
	var out StatusActual
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/asesores/%d/status", idAsesor), nil, &out)
	return out, err
}

// Transition records a status change on the advisor's open working day. The
// caller keeps its local state regardless of the outcome; a failure here is
// logged, never rolled back.
func (c *APIClient) Transition(ctx context.Context, idAsesor int, estado string) (models.JornadaEstado, error) {
	var out models.JornadaEstado
	body := map[string]string{"estado": estado}
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/asesores/%d/transition", idAsesor), body, &out)
	return out, err
}

// HorarioActual returns the schedule assignment covering today, or an
// APIError with 404 when none does.
func (c *APIClient) HorarioActual(ctx context.Context, idAsesor int) (models.AsignacionHorario, error) {
	var out models.AsignacionHorario
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/asesores/%d/horario-actual", idAsesor), nil, &out)
	return out, err
}

// JornadaDetalle is a working day with its status segments.
type JornadaDetalle struct {
	Jornada models.JornadaLaboral  `json:"jornada"`
	Estados []models.JornadaEstado `json:"estados"`
}

func (c *APIClient) JornadaActual(ctx context.Context, idAsesor int) (JornadaDetalle, error) {
	var out JornadaDetalle
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/asesores/%d/jornada-actual", idAsesor), nil, &out)
	return out, err
}

// MarcarEntrada opens today's working day.
func (c *APIClient) MarcarEntrada(ctx context.Context, idAsesor int) (models.JornadaLaboral, error) {
	var out models.JornadaLaboral
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/asesores/%d/marcar-entrada", idAsesor), nil, &out)
	return out, err
}

// MarcarSalida closes today's working day.
func (c *APIClient) MarcarSalida(ctx context.Context, idAsesor int) (models.JornadaLaboral, error) {
	var out models.JornadaLaboral
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/asesores/%d/marcar-salida", idAsesor), nil, &out)
	return out, err
}

// Historial returns past working days, newest first.
func (c *APIClient) Historial(ctx context.Context, idAsesor, limit int) ([]JornadaDetalle, error) {
	var out []JornadaDetalle
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/asesores/%d/historial?limit=%d", idAsesor, limit), nil, &out)
	return out, err
}
