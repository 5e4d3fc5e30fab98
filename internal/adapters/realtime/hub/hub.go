// Package hub tracks live client connections in process. It is the engine's
// connection directory and push channel: the gateway registers a connection
// per SSE stream, subscribes it to boards, and drains its message channel.
package hub

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// defaultBuffer is the per-connection message buffer. A consumer that falls
// further behind starts losing messages rather than blocking broadcasts.
const defaultBuffer = 16

// Message is one outbound notification for a connection.
type Message struct {
	Event string
	Data  []byte
}

// Conn is one registered client connection.
type Conn struct {
	ID       string
	UserID   string
	Messages <-chan Message

	hub *Hub
}

// Close deregisters the connection and closes its message channel.
func (c *Conn) Close() {
	c.hub.drop(c.ID)
}

type connection struct {
	userID   string
	boards   map[string]struct{}
	messages chan Message
}

// Hub is a registry of live connections keyed by connection id.
type Hub struct {
	buffer int

	mu    sync.RWMutex
	conns map[string]*connection
}

// New constructs an empty hub. buffer <= 0 uses the default per-connection
// message buffer.
func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		buffer: buffer,
		conns:  make(map[string]*connection),
	}
}

// Connect registers a connection for a user.
func (h *Hub) Connect(userID string) *Conn {
	id := uuid.NewString()
	conn := &connection{
		userID:   userID,
		boards:   make(map[string]struct{}),
		messages: make(chan Message, h.buffer),
	}
	h.mu.Lock()
	h.conns[id] = conn
	h.mu.Unlock()
	return &Conn{ID: id, UserID: userID, Messages: conn.messages, hub: h}
}

// Subscribe adds the connection to a board's audience.
func (h *Hub) Subscribe(connID, boardID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.conns[connID]; ok {
		conn.boards[boardID] = struct{}{}
	}
}

// Unsubscribe removes the connection from a board's audience.
func (h *Hub) Unsubscribe(connID, boardID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.conns[connID]; ok {
		delete(conn.boards, boardID)
	}
}

func (h *Hub) drop(connID string) {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	if ok {
		delete(h.conns, connID)
	}
	h.mu.Unlock()
	if ok {
		close(conn.messages)
	}
}

// BoardSubscribers returns the ids of connections subscribed to the board,
// sorted for deterministic fan-out order.
func (h *Hub) BoardSubscribers(boardID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := []string{}
	for id, conn := range h.conns {
		if _, ok := conn.boards[boardID]; ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// UserConnections returns the ids of all connections belonging to the user.
func (h *Hub) UserConnections(userID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := []string{}
	for id, conn := range h.conns {
		if conn.userID == userID {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Push delivers one message to each listed connection. Sends never block: a
// connection with a full buffer misses the message, and an unknown id (a race
// with disconnect) is skipped.
func (h *Hub) Push(_ context.Context, connectionIDs []string, event string, payload []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg := Message{Event: event, Data: payload}
	for _, id := range connectionIDs {
		conn, ok := h.conns[id]
		if !ok {
			continue
		}
		select {
		case conn.messages <- msg:
		default:
		}
	}
	return nil
}
