package registry

import (
	"sync"
	"time"

	"github.com/Ranjeet550/kodeshare-relay/internal/core/contracts"
	"github.com/Ranjeet550/kodeshare-relay/internal/core/domain"

	"github.com/google/uuid"
)

// Registry is the single source of truth for live connections. It maps
// connection ids to their bookkeeping record and to the transport
// client used for delivery.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]*domain.Connection
	clients map[string]contracts.Client
}

func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]*domain.Connection),
		clients: make(map[string]contracts.Client),
	}
}

// Register allocates a fresh connection id for c and stores the record
// with no room. It never fails.
func (r *Registry) Register(c contracts.Client) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &domain.Connection{
		ID:          id,
		ConnectedAt: time.Now(),
	}
	r.clients[id] = c
	return id
}

// Unregister removes the record. Already-absent ids are a no-op so
// disconnect handling stays idempotent.
func (r *Registry) Unregister(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connectionID)
	delete(r.clients, connectionID)
}

// Get returns a copy of the connection record. Not-found is a normal
// outcome: late events after disconnect land here.
func (r *Registry) Get(connectionID string) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connectionID]
	if !ok {
		return domain.Connection{}, false
	}
	return *c, true
}

// Client returns the transport client for a connection, or nil if the
// connection is gone.
func (r *Registry) Client(connectionID string) contracts.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[connectionID]
}

// SetRoom updates the record's current room ("" clears it). Reports
// whether the connection still exists.
func (r *Registry) SetRoom(connectionID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connectionID]
	if !ok {
		return false
	}
	c.CurrentRoom = roomID
	return true
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
