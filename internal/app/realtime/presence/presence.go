// internal/app/realtime/presence/presence.go
package presence

import (
	"sort"
	"sync"
)

// Conn is the slice of a live connection the registry needs. The hub's
// client satisfies it.
type Conn interface {
	// Enqueue hands a pre-encoded frame to the connection's writer. It must
	// not block; slow consumers are the connection's problem.
	Enqueue(frame []byte) bool
}

// Registry maps each user to at most one live connection. A second
// connection for the same user displaces the first (last one wins), so a
// user who reconnects from a new tab does not ghost their old socket.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register binds a user to a connection and returns the displaced one, if
// any. The caller is responsible for closing the displaced connection.
func (r *Registry) Register(userID string, c Conn) (displaced Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[userID]
	r.conns[userID] = c
	if prev == c {
		return nil
	}
	return prev
}

// Unregister removes the binding only if it still points at c. A stale
// disconnect from a displaced connection must not knock the user's current
// connection offline.
func (r *Registry) Unregister(userID string, c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[userID] != c {
		return false
	}
	delete(r.conns, userID)
	return true
}

// Lookup returns the user's live connection, if any.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// Online returns every online user id, sorted for stable output.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// OnlineSubset filters ids down to those currently online, preserving the
// input order.
func (r *Registry) OnlineSubset(ids []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.conns[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
