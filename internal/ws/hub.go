package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"communitychat/internal/presence"
)

// Hub manages active WebSocket connections keyed by user ID and holds the
// raw presence state of the online-users channel, keyed by connection key.
// Presence changes are handed to a Syncer which merges and publishes them
// back through the hub.
//
// gorilla/websocket allows only one concurrent writer per connection, and
// broadcasts originate from several goroutines (request handlers, the ws
// read loops, the presence sync worker). Every write therefore goes through
// a per-connection mutex.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]struct{}
	write map[*websocket.Conn]*sync.Mutex

	pmu   sync.RWMutex
	state presence.State

	syncer *presence.Syncer
}

func NewHub(profiles presence.ProfileSource) *Hub {
	h := &Hub{
		conns: make(map[string]map[*websocket.Conn]struct{}),
		write: make(map[*websocket.Conn]*sync.Mutex),
		state: make(presence.State),
	}
	h.syncer = presence.NewSyncer(profiles, h.publishPresence)
	return h
}

// Run starts the presence sync worker.
func (h *Hub) Run() {
	h.syncer.Start()
}

// Close stops the presence sync worker.
func (h *Hub) Close() {
	h.syncer.Stop()
}

// Register adds a connection for the given user.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
	h.write[conn] = &sync.Mutex{}
}

// Unregister removes a connection for the given user.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.conns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
	}
	delete(h.write, conn)
}

// Send writes one payload to a single registered connection, serialized
// against concurrent broadcasts. Sending to an unregistered connection is a
// no-op.
func (h *Hub) Send(conn *websocket.Conn, payload any) {
	h.mu.RLock()
	wmu := h.write[conn]
	h.mu.RUnlock()
	if wmu == nil {
		return
	}
	writeConn(conn, wmu, payload)
}

// BroadcastToUsers sends the given payload to all active connections of the
// provided user IDs. Connections that fail will be cleaned up.
func (h *Hub) BroadcastToUsers(userIDs []string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		conns, ok := h.conns[uid]
		if !ok {
			continue
		}
		for conn := range conns {
			writeConn(conn, h.write[conn], payload)
		}
	}
}

// BroadcastAll sends the payload to all connected users.
func (h *Hub) BroadcastAll(payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.conns {
		for conn := range conns {
			writeConn(conn, h.write[conn], payload)
		}
	}
}

func writeConn(conn *websocket.Conn, wmu *sync.Mutex, payload any) {
	wmu.Lock()
	err := conn.WriteJSON(payload)
	wmu.Unlock()
	if err != nil {
		conn.Close()
		// actual removal is best-effort; it's okay if a stale conn lingers
	}
}

// Track implements presence.Channel: it stores the announced payload under
// the connection key and submits a fresh snapshot to the syncer.
func (h *Hub) Track(key string, p presence.Payload) error {
	h.pmu.Lock()
	h.state[key] = []presence.Payload{p}
	snap := h.snapshotLocked()
	h.pmu.Unlock()

	h.syncer.Submit(snap)
	return nil
}

// Untrack implements presence.Channel.
func (h *Hub) Untrack(key string) {
	h.pmu.Lock()
	delete(h.state, key)
	snap := h.snapshotLocked()
	h.pmu.Unlock()

	h.syncer.Submit(snap)
}

func (h *Hub) snapshotLocked() presence.State {
	snap := make(presence.State, len(h.state))
	for key, payloads := range h.state {
		cp := make([]presence.Payload, len(payloads))
		copy(cp, payloads)
		snap[key] = cp
	}
	return snap
}

func (h *Hub) publishPresence(records []presence.Record) {
	h.BroadcastAll(map[string]any{
		"type":  "presence_state",
		"users": records,
	})
}
