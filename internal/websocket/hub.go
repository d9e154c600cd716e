package websocket

import (
	"sync"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
	"github.com/Araaditya/WhatsEase-dev-task/internal/port"
)

// Hub tracks live connections by session handle and implements the
// Publisher port by pushing events onto each connection's send channel.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Connection
	Register   chan *Connection
	Unregister chan *Connection
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Connection),
		Register:   make(chan *Connection),
		Unregister: make(chan *Connection),
	}
}

// Run starts the Hub's main loop for connection lifecycle events.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.Register:
			h.addClient(conn)
		case conn := <-h.Unregister:
			h.removeClient(conn)
		}
	}
}

// Publish delivers an event to the session's connection, if it is connected
// to this process. A full send buffer drops the client rather than stalling
// the publisher.
func (h *Hub) Publish(sessionID string, event domain.Event) {
	h.mu.RLock()
	conn, ok := h.clients[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	// enqueue also reports false for an already-closed connection; dropping
	// it again is a no-op.
	if !conn.enqueue(event) {
		h.removeClient(conn)
	}
}

// Close gracefully shuts down the Hub, closing all connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.clients {
		conn.closeSend()
		if conn.Ws != nil {
			conn.Ws.Close()
		}
		delete(h.clients, id)
	}
}

func (h *Hub) addClient(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn.SessionID] = conn
}

func (h *Hub) removeClient(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.clients[conn.SessionID]; exists {
		delete(h.clients, conn.SessionID)
		conn.closeSend()
	}
}

var _ port.Publisher = (*Hub)(nil)
