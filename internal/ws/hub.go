package ws

import (
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/gorilla/websocket"

	"room-chat-service/internal/models"
	"room-chat-service/internal/observability"
)

// Hub maintains the per-room websocket subscriber sets. Presence is computed
// from these sets, never from stored state.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int]map[*websocket.Conn]ConnInfo
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[int]map[*websocket.Conn]ConnInfo)}
}

// AddClient registers a connection in a room's subscriber set. It reports
// whether this is the user's first connection in the room, so callers can emit
// a user-online delta exactly once per user.
func (h *Hub) AddClient(roomID int, conn *websocket.Conn, info ConnInfo) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]ConnInfo)
	}
	first := true
	for _, existing := range h.rooms[roomID] {
		if existing.UserID == info.UserID {
			first = false
			break
		}
	}
	if _, ok := h.rooms[roomID][conn]; !ok {
		observability.IncRoomSubscriber()
	}
	h.rooms[roomID][conn] = info
	return first
}

// RemoveClient removes a connection from one room. It reports the connection
// info and whether the user has no remaining connections in the room.
func (h *Hub) RemoveClient(roomID int, conn *websocket.Conn) (ConnInfo, bool, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(roomID, conn)
}

// RoomsLeft describes one room membership dropped when a connection dies.
type RoomsLeft struct {
	RoomID     int
	Info       ConnInfo
	LastOfUser bool
}

// RemoveConn removes a connection from every room, returning the memberships
// it dropped. Used on disconnect; idempotent.
func (h *Hub) RemoveConn(conn *websocket.Conn) []RoomsLeft {
	h.mu.Lock()
	defer h.mu.Unlock()

	var left []RoomsLeft
	for roomID, conns := range h.rooms {
		if _, ok := conns[conn]; !ok {
			continue
		}
		info, last, _ := h.removeLocked(roomID, conn)
		left = append(left, RoomsLeft{RoomID: roomID, Info: info, LastOfUser: last})
	}
	return left
}

func (h *Hub) removeLocked(roomID int, conn *websocket.Conn) (ConnInfo, bool, bool) {
	conns, ok := h.rooms[roomID]
	if !ok {
		return ConnInfo{}, false, false
	}
	info, present := conns[conn]
	if !present {
		return ConnInfo{}, false, false
	}
	delete(conns, conn)
	observability.DecRoomSubscriber()
	if len(conns) == 0 {
		delete(h.rooms, roomID)
	}

	last := true
	for _, remaining := range conns {
		if remaining.UserID == info.UserID {
			last = false
			break
		}
	}
	return info, last, true
}

// IsSubscribed reports whether a connection has joined a room.
func (h *Hub) IsSubscribed(roomID int, conn *websocket.Conn) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID][conn]
	return ok
}

// OnlineUsers returns the distinct user ids currently subscribed to a room.
func (h *Hub) OnlineUsers(roomID int) []int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := map[int]struct{}{}
	var users []int
	for _, info := range h.rooms[roomID] {
		if _, ok := seen[info.UserID]; ok {
			continue
		}
		seen[info.UserID] = struct{}{}
		users = append(users, info.UserID)
	}
	sort.Ints(users)
	return users
}

// Broadcast fans out a room-scoped event to every subscriber. Connections
// whose write fails are closed and evicted.
func (h *Hub) Broadcast(roomID int, event models.RoomEvent) {
	h.BroadcastExcept(roomID, nil, event)
}

// BroadcastExcept fans out an event to every subscriber but one, used for
// events the origin connection already knows about (typing).
func (h *Hub) BroadcastExcept(roomID int, exclude *websocket.Conn, event models.RoomEvent) {
	event.RoomID = roomID

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[roomID]))
	for conn := range h.rooms[roomID] {
		if conn != exclude {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveClient(roomID, conn)
		}
	}
	observability.IncWSEvent(event.Type)
}
