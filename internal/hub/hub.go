package hub

import (
	"sync"

	"go.uber.org/zap"

	"github.com/campusperks/realtime-service/internal/metrics"
)

// Client is one realtime connection. The hub only ever touches the send
// channel; the websocket pumps live in internal/ws.
type Client struct {
	ID     string
	UserID string
	Role   string
	Send   chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(id, userID, role string, buffer int) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Role:   role,
		Send:   make(chan []byte, buffer),
	}
}

// trySend delivers without blocking. The client mutex is held across the
// send so the channel cannot be closed mid-send by a concurrent Unregister.
func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// Hub tracks connections and their room memberships. It is constructed once
// per process and passed by reference to the emitter and the ws handler.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[*Client]struct{}
	joined  map[*Client]map[string]struct{}
	logger  *zap.SugaredLogger
}

func New(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[*Client]struct{}),
		joined:  make(map[*Client]map[string]struct{}),
		logger:  logger,
	}
}

// Register tracks a connection. The client belongs to no rooms until Join.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	h.joined[c] = make(map[string]struct{})
	metrics.Connections.Inc()
}

// Unregister removes the connection from every room and closes its send
// channel. Safe to call once per client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	for room := range h.joined[c] {
		h.dropLocked(room, c)
	}
	delete(h.joined, c)
	c.close()
	metrics.Connections.Dec()
}

// Join adds the connection to each room. Membership is additive and a set:
// joining the same room twice is a no-op.
func (h *Hub) Join(c *Client, rooms ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	for _, room := range rooms {
		if _, ok := h.rooms[room]; !ok {
			h.rooms[room] = make(map[*Client]struct{})
		}
		h.rooms[room][c] = struct{}{}
		h.joined[c][room] = struct{}{}
	}
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(room, c)
	delete(h.joined[c], room)
}

func (h *Hub) dropLocked(room string, c *Client) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast delivers msg to every connection currently in room and returns
// how many received it. Full send buffers drop the message for that client;
// the store stays authoritative, clients re-fetch on reconnect.
func (h *Hub) Broadcast(room string, msg []byte) int {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range members {
		if c.trySend(msg) {
			delivered++
		} else {
			h.logger.Warnw("dropping message for slow or closing client", "client", c.ID, "room", room)
		}
	}
	return delivered
}

// SendTo delivers msg to a single connection.
func (h *Hub) SendTo(c *Client, msg []byte) bool {
	if c.trySend(msg) {
		return true
	}
	h.logger.Warnw("dropping message for slow or closing client", "client", c.ID)
	return false
}

func (h *Hub) Rooms(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.joined[c]))
	for room := range h.joined[c] {
		out = append(out, room)
	}
	return out
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
