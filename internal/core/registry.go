package core

import "sync"

// Registry tracks which live connections are bound to which logical
// user address. It is owned by the server process and injected into
// everything that needs it; all access is internally synchronized.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[*Client]struct{}
	byConn map[*Client]string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[*Client]struct{}),
		byConn: make(map[*Client]string),
	}
}

// Bind registers the client under userID. A client already bound to a
// different user is first removed from that user's set; binding again
// with the same userID is a no-op.
func (r *Registry) Bind(c *Client, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[c]; ok {
		if prev == userID {
			return
		}
		r.removeLocked(c, prev)
	}

	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[*Client]struct{})
		r.byUser[userID] = set
	}
	set[c] = struct{}{}
	r.byConn[c] = userID
}

// Unbind removes the client from whatever set it is a member of.
// No-op for unbound clients. Must be called on every disconnect.
func (r *Registry) Unbind(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[c]
	if !ok {
		return
	}
	r.removeLocked(c, userID)
}

// Resolve returns a snapshot of all live connections bound to userID.
// An empty result means the user is offline, which is a legitimate
// state, not an error.
func (r *Registry) Resolve(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	return clients
}

// UserOf returns the user address the client is currently bound to.
// Resolved fresh on every call so callers never act on a stale identity.
func (r *Registry) UserOf(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.byConn[c]
	return userID, ok
}

func (r *Registry) removeLocked(c *Client, userID string) {
	delete(r.byConn, c)
	if set, ok := r.byUser[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.byUser, userID)
		}
	}
}
