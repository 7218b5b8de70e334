package session

import (
	"sync"
	"sync/atomic"
)

// Registry is the broker's client table: every currently connected Client,
// keyed by the id the broker assigned on accept. Unlike a connection pool
// there is no idle list or lifetime eviction here — a Client lives exactly
// as long as its connection driver goroutine, which removes it on exit.
type Registry struct {
	mu      sync.RWMutex
	clients map[uint64]*Client
	byID    map[string]*Client

	nextID atomic.Uint64
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uint64]*Client),
		byID:    make(map[string]*Client),
	}
}

// NextConnectionID returns the next broker-assigned connection id. IDs are
// never reused within a process lifetime.
func (r *Registry) NextConnectionID() uint64 {
	return r.nextID.Add(1)
}

// Add registers client, indexed by both its connection id and, once known,
// its MQTT client identifier.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
	if c.ClientID != "" {
		r.byID[c.ClientID] = c
	}
}

// BindClientID indexes an already-registered client under its negotiated
// MQTT client identifier, once the handshake has determined it.
func (r *Registry) BindClientID(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ClientID != "" {
		r.byID[c.ClientID] = c
	}
}

// Get returns the client for a broker connection id.
func (r *Registry) Get(connID uint64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[connID]
	return c, ok
}

// GetByClientID returns the client currently bound to an MQTT client
// identifier, if any.
func (r *Registry) GetByClientID(clientID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[clientID]
	return c, ok
}

// Remove unregisters a client by connection id.
func (r *Registry) Remove(connID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[connID]
	if !ok {
		return
	}
	delete(r.clients, connID)
	if c.ClientID != "" {
		if existing, ok := r.byID[c.ClientID]; ok && existing == c {
			delete(r.byID, c.ClientID)
		}
	}
}

// Count returns the number of currently registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ForEach visits every registered client. fn returning false stops the
// iteration early. The snapshot is taken under lock but fn itself runs
// outside it, matching the subscription tree's own locking discipline.
func (r *Registry) ForEach(fn func(*Client) bool) {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, c := range clients {
		if !fn(c) {
			break
		}
	}
}

// Close closes every registered client's connection and empties the
// registry. Used during broker shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.clients = make(map[uint64]*Client)
	r.byID = make(map[string]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}
}
