package live

import "sync"

// DetachResult reports which bridge a connection left and whether it was
// the group's last subscriber.
type DetachResult struct {
	BridgeID string
	IsLast   bool
}

// Registry tracks which live connections are attached to which bridge
// group. A connection belongs to at most one group at a time; subscriber
// counts are derived from the membership maps, never stored separately.
//
// Thread Safety: all methods are safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	byConn map[string]string              // connection id -> bridge id
	groups map[string]map[string]struct{} // bridge id -> connection ids
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]string),
		groups: make(map[string]map[string]struct{}),
	}
}

// Attach adds a connection to a bridge group. If the connection was
// attached elsewhere it is moved: the old group is left first and the
// result of that implicit detach is returned so the caller can stop an
// orphaned polling task. isFirst reports whether this attach created the
// group's first subscriber.
func (r *Registry) Attach(connID, bridgeID string) (isFirst bool, moved *DetachResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.byConn[connID]; ok {
		if current == bridgeID {
			return false, nil
		}
		moved = r.detachLocked(connID)
	}

	group, ok := r.groups[bridgeID]
	if !ok {
		group = make(map[string]struct{})
		r.groups[bridgeID] = group
	}
	group[connID] = struct{}{}
	r.byConn[connID] = bridgeID

	return len(group) == 1, moved
}

// Detach removes a connection from its group. It returns nil if the
// connection was not attached anywhere.
func (r *Registry) Detach(connID string) *DetachResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detachLocked(connID)
}

// detachLocked removes a connection while holding the lock.
func (r *Registry) detachLocked(connID string) *DetachResult {
	bridgeID, ok := r.byConn[connID]
	if !ok {
		return nil
	}

	delete(r.byConn, connID)
	group := r.groups[bridgeID]
	delete(group, connID)
	if len(group) == 0 {
		delete(r.groups, bridgeID)
		return &DetachResult{BridgeID: bridgeID, IsLast: true}
	}
	return &DetachResult{BridgeID: bridgeID, IsLast: false}
}

// Count returns the number of subscribers attached to a bridge.
func (r *Registry) Count(bridgeID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups[bridgeID])
}

// Bridge returns the bridge a connection is attached to, if any.
func (r *Registry) Bridge(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bridgeID, ok := r.byConn[connID]
	return bridgeID, ok
}
