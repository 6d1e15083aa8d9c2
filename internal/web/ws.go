package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The page is served from the same origin; LAN-only deployment.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 5 * time.Second

// handleWS streams live status frames to the browser. One frame per push
// interval until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// The client never sends application data; the read loop exists to
	// notice the close handshake and unblock the writer.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	// Send an immediate frame so the page doesn't wait a full interval.
	if err := s.writeFrame(conn); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if err := s.writeFrame(conn); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, formatLiveFrame(s.tracker.Snapshot()))
}
