package presence

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	sendBuffer = 256
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

// Session wraps one websocket, worker or leader alike. Identity is not known
// until the peer sends identify / identify_leader; until then the hub only
// tracks the raw socket.
type Session struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

// Attach wraps an upgraded connection in a session, registers it with the
// hub and starts its pumps.
func (h *Hub) Attach(conn *websocket.Conn) *Session {
	s := newSession(h, conn)
	h.register <- s
	go s.readPump()
	go s.writePump()
	return s
}

func newSession(hub *Hub, conn *websocket.Conn) *Session {
	return &Session{
		ID:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// Send marshals and queues a message. A session whose buffer is full has the
// message skipped, never queued elsewhere.
func (s *Session) Send(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Hub] Failed to marshal outbound message: %v", err)
		return
	}
	select {
	case s.send <- data:
	default:
		log.Printf("[Hub] Send buffer full, dropping message for session %s", s.ID)
	}
}

// forceClose tears the socket down without a close handshake. Used by the
// stale sweep against half-dead peers.
func (s *Session) forceClose() {
	s.closeOnce.Do(func() {
		if s.conn != nil {
			s.conn.Close()
		}
	})
}

func (s *Session) readPump() {
	defer func() {
		s.hub.unregister <- s
		s.forceClose()
	}()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.hub.inbound <- frame{sess: s, data: message}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.forceClose()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
