package app

import (
	"encoding/json"
	"sync"

	"social_match_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

// ChatConn transport surface the chat service needs from a socket.
// *websocket.Conn satisfies it; tests plug in fakes.
type ChatConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub room registry plus broadcast engine. Every socket belongs to exactly
// one room for its lifetime. A socket whose write fails is dropped from the
// room on the spot, there is no separate liveness probe.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[ChatConn]struct{}
}

// NewHub create an empty Hub
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[ChatConn]struct{})}
}

// Register add a socket to a room
func (h *Hub) Register(roomID string, conn ChatConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[ChatConn]struct{})
	}
	h.rooms[roomID][conn] = struct{}{}
}

// Deregister remove a socket, dropping the room entry once empty
func (h *Hub) Deregister(roomID string, conn ChatConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Count live sockets currently in a room
func (h *Hub) Count(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

// Send write event to a single socket. Goes through the hub lock so a
// direct write can never interleave with a broadcast to the same socket;
// the websocket library forbids concurrent writers on one connection.
func (h *Hub) Send(roomID string, conn ChatConn, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("send marshal error:", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.Log.Errorf("write message error:", err)
		if conns, ok := h.rooms[roomID]; ok {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

// Broadcast serialize event once and send it to every socket in the room.
// Holding the lock across the writes keeps per-room delivery in completion
// order; a failed socket is pruned immediately.
func (h *Hub) Broadcast(roomID string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("broadcast marshal error:", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.rooms[roomID]
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.rooms, roomID)
	}
}
