package presence

import (
	"log"
	"net/http"

	"github.com/cxworkforce/presencia/config"
	"github.com/cxworkforce/presencia/internal/presence"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades the connection and hands it to the hub. The JWT
// was already verified by the router; the user id is only required so the
// upgrade can be refused for anonymous requests.
func WebSocketHandler(hub *presence.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := 0
		if ctxUserID, ok := r.Context().Value(config.UserIDKey).(int); ok {
			userID = ctxUserID
		}
		if userID == 0 {
			http.Error(w, "invalid user", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Print("[WS] Upgrade error:", err)
			return
		}
		hub.Attach(conn)
	}
}
