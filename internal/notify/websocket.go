package notify

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"campuscore/internal/core"
	"campuscore/pkg/domain"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebsocketHandler upgrades requests and streams registry events to the
// connection. The channel is subscribe-only; inbound frames are drained and
// ignored.
func WebsocketHandler(registry *Registry, logger core.Logger) http.Handler {
	if logger == nil {
		logger = core.NopLogger()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade rejected", "remote", r.RemoteAddr, "error", err)
			return
		}
		sub := registry.Subscribe()
		defer sub.Cancel()
		defer conn.Close()

		greeting, err := domain.NewChangePayloadFromValue("ready")
		if err == nil {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(Event{Entity: EntitySystem, Action: ActionConnected, Data: greeting}); err != nil {
				return
			}
		}

		// Reader goroutine notices the peer going away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case event, ok := <-sub.C:
				if !ok {
					conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(event); err != nil {
					return
				}
			case <-gone:
				return
			}
		}
	})
}
