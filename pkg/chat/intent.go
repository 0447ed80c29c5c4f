package chat

import "sync"

// IntentHolder keeps at most one pending chat intent. A later Post before
// consumption replaces the held intent, mirroring how navigation state
// overwrites an unconsumed request. Take hands the intent out exactly once.
type IntentHolder struct {
	mu      sync.Mutex
	pending *PendingIntent
}

func NewIntentHolder() *IntentHolder {
	return &IntentHolder{}
}

func (h *IntentHolder) Post(intent PendingIntent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = &intent
}

// Take removes and returns the held intent. The second return is false when
// nothing is pending.
func (h *IntentHolder) Take() (PendingIntent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		return PendingIntent{}, false
	}
	intent := *h.pending
	h.pending = nil
	return intent, true
}

// Peer converts the intent's partner metadata to a directory peer entry.
func (i PendingIntent) Peer() Peer {
	return Peer{
		ID:         i.PartnerID,
		Name:       i.PartnerName,
		Role:       i.PartnerRole,
		NationalID: i.PartnerNationalID,
	}
}
