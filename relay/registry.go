package relay

import (
	"net"
	"sync"

	"github.com/google/uuid"
)

// Receiver is a registered push target. Its connection is exclusively owned
// by the registry entry while connected; writes and reconnects on the same
// receiver are serialized, so replacing the connection never races with a
// delivery attempt using the old one.
type Receiver struct {
	id uuid.UUID

	mu        sync.Mutex
	conn      net.Conn
	connected bool
}

func (r *Receiver) ID() uuid.UUID {
	return r.id
}

func (r *Receiver) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// Write sends one raw protocol line to the receiver's connection.
func (r *Receiver) Write(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.conn.Write([]byte(line + "\n"))
	return err
}

func (r *Receiver) reconnect(conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conn = conn
	r.connected = true
}

func (r *Receiver) disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.connected = false
}

// Registry maps receiver ids to their live connection state. Entries are
// never removed on disconnect, only marked offline, so a later reconnection
// under the same id succeeds; only Clear empties the registry.
type Registry struct {
	mu        sync.RWMutex
	receivers map[uuid.UUID]*Receiver
}

func NewRegistry() *Registry {
	return &Registry{receivers: make(map[uuid.UUID]*Receiver)}
}

// Register stores a receiver connection under its id. Re-registration of a
// known id replaces the stored connection in place and marks the receiver
// connected again — the reconnection path, idempotent and not an error.
func (g *Registry) Register(id uuid.UUID, conn net.Conn) *Receiver {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.receivers[id]; ok {
		r.reconnect(conn)
		return r
	}
	r := &Receiver{id: id, conn: conn, connected: true}
	g.receivers[id] = r
	return r
}

func (g *Registry) IsRegistered(id uuid.UUID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.receivers[id]
	return ok
}

func (g *Registry) Get(id uuid.UUID) (*Receiver, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.receivers[id]
	return r, ok
}

// Disconnect closes the stored connection and marks the receiver offline,
// retaining the registry entry for reconnection.
func (g *Registry) Disconnect(id uuid.UUID) {
	g.mu.RLock()
	r, ok := g.receivers[id]
	g.mu.RUnlock()
	if ok {
		r.disconnect()
	}
}

// Clear disconnects every receiver and removes all entries.
func (g *Registry) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.receivers {
		r.disconnect()
	}
	g.receivers = make(map[uuid.UUID]*Receiver)
}

func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.receivers)
}
