package chat

import (
	"context"
	"sync"

	"github.com/safestay/staychat/pkg/logger"
)

// ConversationDirectory holds the conversation list keyed by partner id.
// Server order (most recent first) is preserved on load; conversations
// synthesized locally are prepended. Conversations are never deleted.
type ConversationDirectory struct {
	mu        sync.RWMutex
	backend   Backend
	order     []string
	byPartner map[string]Conversation

	ready     chan struct{}
	readyOnce sync.Once
}

func NewConversationDirectory(backend Backend) *ConversationDirectory {
	return &ConversationDirectory{
		backend:   backend,
		byPartner: make(map[string]Conversation),
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the first Load has completed, successfully or not.
// The pending-intent resolver waits on it instead of polling.
func (d *ConversationDirectory) Ready() <-chan struct{} {
	return d.ready
}

// Load fetches the conversation list. A fetch failure falls back to an empty
// directory (logged, no retry) so the chat degrades to an empty state rather
// than an error. Either way the directory is marked ready afterwards.
func (d *ConversationDirectory) Load(ctx context.Context) []Conversation {
	defer d.readyOnce.Do(func() { close(d.ready) })

	convs, err := d.backend.MyConversations(ctx)
	if err != nil {
		logger.WarnCF("directory", "Conversation list fetch failed, starting empty", map[string]any{
			"error": err.Error(),
		})
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, conv := range convs {
		if _, known := d.byPartner[conv.PartnerID]; !known {
			d.order = append(d.order, conv.PartnerID)
		}
		d.byPartner[conv.PartnerID] = conv
	}
	return d.snapshotLocked()
}

// Upsert inserts or replaces the conversation keyed by its partner id. New
// conversations go to the front of the list.
func (d *ConversationDirectory) Upsert(conv Conversation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, known := d.byPartner[conv.PartnerID]; !known {
		d.order = append([]string{conv.PartnerID}, d.order...)
	}
	d.byPartner[conv.PartnerID] = conv
}

// Select returns the conversation for the given partner, if any.
func (d *ConversationDirectory) Select(partnerID string) (Conversation, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	conv, ok := d.byPartner[partnerID]
	return conv, ok
}

// UpdateLastMessage refreshes a conversation's summary. No-op for unknown
// partners.
func (d *ConversationDirectory) UpdateLastMessage(partnerID string, msg Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	conv, ok := d.byPartner[partnerID]
	if !ok {
		return
	}
	conv.LastMessage = msg
	d.byPartner[partnerID] = conv
}

// Synthesize builds a conversation from peer metadata plus the first
// exchanged message and upserts it. Calling it again for the same partner
// replaces rather than duplicates.
func (d *ConversationDirectory) Synthesize(peer Peer, first Message) Conversation {
	conv := Conversation{
		PartnerID:         peer.ID,
		PartnerName:       peer.Name,
		PartnerRole:       peer.Role,
		PartnerNationalID: peer.NationalID,
		LastMessage:       first,
		MessageCount:      1,
	}
	d.Upsert(conv)
	return conv
}

// Conversations returns the current list, most recent first.
func (d *ConversationDirectory) Conversations() []Conversation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}

func (d *ConversationDirectory) snapshotLocked() []Conversation {
	out := make([]Conversation, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byPartner[id])
	}
	return out
}
