package models

import "time"

// EstadoDesconectado is the slug every worker starts in and returns to when
// the day ends. The hub relays any other slug verbatim without validating it
// against the catalog.
const EstadoDesconectado = "desconectado"

// ConnectedWorker is the hub's live record of one identified worker socket.
// Owned exclusively by the hub goroutine; handed out only as copies.
type ConnectedWorker struct {
	ConnID     string    `json:"-"`
	UserID     int       `json:"userId"`
	Nombre     string    `json:"nombre"`
	Cargo      string    `json:"cargo"`
	Area       string    `json:"area"`
	Estado     string    `json:"estado"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// LeaderSession identifies one connected leader socket. Leaders are a
// distribution list; they carry no status of their own.
type LeaderSession struct {
	ConnID   string `json:"-"`
	LeaderID int    `json:"userId"`
	Nombre   string `json:"nombre"`
}
