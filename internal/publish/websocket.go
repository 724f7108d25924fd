package publish

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/rollstate/internal/httputil"
	"github.com/banshee-data/rollstate/internal/monitoring"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// Hub streams transitions to every connected WebSocket client. A new client
// first receives the latest transition, if any.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	last    *Transition
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("publish: websocket upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	if h.last != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(h.last); err != nil {
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Drain reads so close frames from the client are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish sends tr to every client, dropping clients whose write fails.
func (h *Hub) Publish(tr Transition) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = &tr
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(tr); err != nil {
			monitoring.Logf("publish: dropping websocket client %s: %v", conn.RemoteAddr(), err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
	return nil
}

// Status is the body served by ServeStatus.
type Status struct {
	Clients int         `json:"clients"`
	Last    *Transition `json:"last"`
}

// ServeStatus reports the connected client count and the latest transition
// as JSON.
func (h *Hub) ServeStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	h.mu.Lock()
	status := Status{Clients: len(h.clients)}
	if h.last != nil {
		last := *h.last
		status.Last = &last
	}
	h.mu.Unlock()

	httputil.WriteJSONOK(w, status)
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// Multi fans a transition out to several publishers.
type Multi []Publisher

// Publish forwards tr to every publisher and joins their errors.
func (m Multi) Publish(tr Transition) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(tr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
