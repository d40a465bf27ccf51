package registry

import (
	"sync"

	"alerts-service/internal/logging"
	"alerts-service/internal/models"
)

// Conn is one live duplex channel tagged with the identity it was
// authenticated as. The gateway owns the concrete implementation; the
// dispatcher only ever sees this interface.
type Conn interface {
	UserID() int64
	WriteEnvelope(models.Envelope) error
	IsOpen() bool
	Close() error
}

// Registry owns the mapping from user id to that user's set of open
// connections. A user may hold several concurrent connections (tabs,
// devices); a user with zero connections has no entry at all.
//
// One process hosts exactly one Registry; it is constructed once in main
// and injected into the gateway and the dispatcher.
type Registry struct {
	mu          sync.Mutex
	connections map[int64]map[Conn]bool
	maxPerUser  int
	logger      *logging.Logger
}

// New constructs an empty Registry. maxPerUser caps concurrent
// connections for a single user; zero or negative means no cap.
func New(logger *logging.Logger, maxPerUser int) *Registry {
	return &Registry{
		connections: make(map[int64]map[Conn]bool),
		maxPerUser:  maxPerUser,
		logger:      logger,
	}
}

// Add inserts conn into the user's set, creating the set if absent.
// Returns false when the per-user cap is hit and the connection was not
// registered.
func (r *Registry) Add(userID int64, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.connections[userID]; !exists {
		r.connections[userID] = make(map[Conn]bool)
	}
	if r.maxPerUser > 0 && len(r.connections[userID]) >= r.maxPerUser {
		r.logger.Warnf("Max connections reached for user %d", userID)
		return false
	}
	r.connections[userID][conn] = true
	r.logger.Infof("Added connection for user %d (total: %d)", userID, len(r.connections[userID]))
	return true
}

// Remove deletes conn from the user's set and drops the entry entirely
// when the set becomes empty. Calling it again with the same arguments is
// a no-op.
func (r *Registry) Remove(userID int64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns, exists := r.connections[userID]
	if !exists {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(r.connections, userID)
	}
	r.logger.Infof("Removed connection for user %d (remaining: %d)", userID, len(conns))
}

// Get returns a snapshot of the user's connections. The returned slice is
// owned by the caller; mutations to the registry after Get do not affect
// it.
func (r *Registry) Get(userID int64) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns, exists := r.connections[userID]
	if !exists {
		return nil
	}
	snapshot := make([]Conn, 0, len(conns))
	for c := range conns {
		snapshot = append(snapshot, c)
	}
	return snapshot
}

// IsConnected reports whether the user currently has at least one live
// connection.
func (r *Registry) IsConnected(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connections[userID]) > 0
}

// Count returns the number of distinct users with at least one live
// connection.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connections)
}

// UserIDs returns a snapshot of every connected user id.
func (r *Registry) UserIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.connections))
	for id := range r.connections {
		ids = append(ids, id)
	}
	return ids
}
