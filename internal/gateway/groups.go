package gateway

import (
	"sync"
)

// Groups tracks the live connections belonging to each session for fan-out.
// Membership is keyed by session id and is independent of the store's
// connection-handle association: joining a broadcast group and binding a
// participant are separate operations.
type Groups struct {
	mu      sync.RWMutex
	members map[string]map[string]sender // session id -> conn id -> sender
}

// NewGroups creates an empty group registry.
func NewGroups() *Groups {
	return &Groups{members: make(map[string]map[string]sender)}
}

// Join adds a connection to a session's broadcast group.
func (g *Groups) Join(sessionID string, conn sender) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.members[sessionID] == nil {
		g.members[sessionID] = make(map[string]sender)
	}
	g.members[sessionID][conn.ID()] = conn
}

// Leave removes a connection from a session's broadcast group. Idempotent;
// empty groups are dropped so finished sessions do not leak map entries.
func (g *Groups) Leave(sessionID, connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	group, ok := g.members[sessionID]
	if !ok {
		return
	}
	delete(group, connID)
	if len(group) == 0 {
		delete(g.members, sessionID)
	}
}

// Connections returns the session's current members.
func (g *Groups) Connections(sessionID string) []sender {
	g.mu.RLock()
	defer g.mu.RUnlock()

	group := g.members[sessionID]
	conns := make([]sender, 0, len(group))
	for _, conn := range group {
		conns = append(conns, conn)
	}
	return conns
}

// Stats returns connection and group counts for monitoring.
func (g *Groups) Stats() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total := 0
	for _, group := range g.members {
		total += len(group)
	}
	return map[string]int{
		"connections": total,
		"groups":      len(g.members),
	}
}
