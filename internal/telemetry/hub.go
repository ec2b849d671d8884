package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = time.Second

// Hub pushes snapshots to every connected websocket client. Mount it on
// an http.ServeMux; clients only receive.
type Hub struct {
	upgrader websocket.Upgrader
	log      *log.Entry

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     log.WithField("subsystem", "telemetry.ws"),
		clients: make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("upgrade failed")
		return
	}
	defer ws.Close()

	h.mu.Lock()
	h.clients[ws] = true
	h.mu.Unlock()
	h.log.WithField("remote", r.RemoteAddr).Debug("client connected")

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			h.drop(ws)
			return
		}
	}
}

func (h *Hub) drop(ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ws)
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish writes s to every client. Clients that fail are disconnected;
// the hub itself never fails.
func (h *Hub) Publish(s Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.clients {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(s); err != nil {
			h.log.WithError(err).Error("write failed, dropping client")
			ws.Close()
			delete(h.clients, ws)
		}
	}
	return nil
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.clients {
		ws.Close()
		delete(h.clients, ws)
	}
	return nil
}
