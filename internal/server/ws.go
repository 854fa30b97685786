package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seed-run/seed/internal/observability"
	"github.com/seed-run/seed/internal/uibus"
)

// Mirrors the teacher's wsControlPlane timing constants: a generous pong
// wait with a ping tick comfortably inside it, so a slow client doesn't
// get disconnected for one missed beat.
const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 45 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type wsEnvelope struct {
	TaskID string `json:"taskId"`
	Kind   string `json:"kind"`
	Data   any    `json:"data"`
}

// handleWS upgrades to a WebSocket and relays every uibus message to the
// client as JSON until either side disconnects. This is the push half of
// the HTTP/WS contract; the pull half is the /api/* handlers.
//
// uibus.Bus has exactly one consumption channel, matching the
// single-master invariant: one attached client (the TUI, or a network
// client once it detects the master) is expected at a time. A second
// concurrent connection would split the feed rather than duplicate it.
func handleWS(app *app, logger *observability.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		done := make(chan struct{})
		go readPump(conn, done)
		writePump(app.Bus, conn, logger, done)
	}
}

// readPump discards client frames but watches for disconnect; the
// protocol is server-push only, so nothing the client sends is acted on.
func readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(bus *uibus.Bus, conn *websocket.Conn, logger *observability.Logger, done chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	messages := bus.Messages()
	for {
		select {
		case <-done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			payload, err := json.Marshal(wsEnvelope{TaskID: msg.TaskID, Kind: string(msg.Kind), Data: msg.Data})
			if err != nil {
				logger.Warn("ws marshal failed", "error", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
