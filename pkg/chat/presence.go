package chat

import (
	"sort"
	"sync"
)

// PresenceTracker keeps the set of peers currently online in the session
// user's room, keyed by display name. It reflects the last join/offline event
// received; there is no server-side reconciliation, so entries can be stale
// until the next event for that peer arrives.
type PresenceTracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{online: make(map[string]struct{})}
}

// MarkOnline upserts the peer. Idempotent.
func (p *PresenceTracker) MarkOnline(displayName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[displayName] = struct{}{}
}

// MarkOffline removes the peer if present; no-op otherwise.
func (p *PresenceTracker) MarkOffline(displayName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, displayName)
}

func (p *PresenceTracker) IsOnline(displayName string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[displayName]
	return ok
}

// Online returns the sorted display names of everyone currently online.
func (p *PresenceTracker) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.online))
	for name := range p.online {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
