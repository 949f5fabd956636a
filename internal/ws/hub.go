package ws

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds one frame write; sendQueue is how many events a client
// may fall behind before it is cut loose.
const (
	writeWait = 10 * time.Second
	sendQueue = 16
)

// Event is the envelope pushed to console clients.
type Event struct {
	Type  string `json:"type"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Exchange describes one completed command/reply cycle.
type Exchange struct {
	Command   any   `json:"command"`
	Response  any   `json:"response"`
	ElapsedMS int64 `json:"elapsed_ms"`
}

// ExchangeEvent wraps one cycle in the event envelope.
func ExchangeEvent(command, response any, elapsed time.Duration) Event {
	return Event{
		Type:  "event",
		Event: "exchange",
		Data: Exchange{
			Command:   command,
			Response:  response,
			ElapsedMS: elapsed.Milliseconds(),
		},
	}
}

// Hub fans exchange events out to the browsers watching the live console.
// Clients only listen; their read loops exist to notice the close. Broadcast
// never waits on a connection: each client drains its own bounded queue, and
// one that stops draining is dropped. The hub never touches the serial link,
// so losing every client changes nothing about the exchange path.
type Hub struct {
	up    websocket.Upgrader
	mu    sync.Mutex
	conns map[*websocket.Conn]chan Event
}

func NewHub() *Hub {
	return &Hub{
		up: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]chan Event),
	}
}

// ServeHTTP upgrades the request and registers the client. Upgrade writes
// its own HTTP error on failure.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[console] upgrade failed: %v", err)
		return
	}
	ch := make(chan Event, sendQueue)
	h.mu.Lock()
	h.conns[conn] = ch
	h.mu.Unlock()
	go h.write(conn, ch)
	go h.watch(conn)
}

func (h *Hub) watch(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(conn)
			return
		}
	}
}

// write drains one client's queue onto its connection.
func (h *Hub) write(conn *websocket.Conn, ch chan Event) {
	for ev := range ch {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			h.drop(conn)
			return
		}
	}
}

// drop removes the client once; closing its queue ends the writer.
func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		close(ch)
		conn.Close()
	}
}

// Broadcast queues ev for every attached client. A full queue means the
// client stopped draining; it is dropped rather than waited on.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.conns {
		select {
		case ch <- ev:
		default:
			delete(h.conns, conn)
			close(ch)
			conn.Close()
		}
	}
}

// Clients reports how many consoles are attached.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
