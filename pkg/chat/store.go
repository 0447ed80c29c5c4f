package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDedupWindow is the tolerance for treating a REST-echoed and a
// stream-pushed copy of the same message as one entry.
const DefaultDedupWindow = time.Second

// MessageStore holds the ordered message sequence for each conversation,
// keyed by partner id. Appends arriving from either source (REST response or
// stream event) are deduplicated and kept sorted by creation time.
type MessageStore struct {
	mu     sync.RWMutex
	seqs   map[string][]Message
	window time.Duration
	now    func() time.Time
}

func NewMessageStore(window time.Duration) *MessageStore {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &MessageStore{
		seqs:   make(map[string][]Message),
		window: window,
		now:    time.Now,
	}
}

// Append inserts msg into the conversation's sequence in timestamp order.
// It returns false without modifying anything when an existing entry is a
// duplicate under the dedup rule. A missing timestamp is normalized to now.
func (s *MessageStore) Append(conversationKey string, msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg = s.normalize(msg)

	seq := s.seqs[conversationKey]
	for _, existing := range seq {
		if msg.duplicateOf(existing, s.window) {
			return false
		}
	}

	// Insert after the last entry that is not newer, keeping arrival order
	// stable for equal timestamps.
	idx := sort.Search(len(seq), func(i int) bool {
		return seq[i].CreatedAt.After(msg.CreatedAt)
	})
	seq = append(seq, Message{})
	copy(seq[idx+1:], seq[idx:])
	seq[idx] = msg
	s.seqs[conversationKey] = seq
	return true
}

// Replace bulk-sets the full history for a conversation, discarding any prior
// state for that key. Used after a REST history load.
func (s *MessageStore) Replace(conversationKey string, messages []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := make([]Message, len(messages))
	for i, m := range messages {
		seq[i] = s.normalize(m)
	}
	sort.SliceStable(seq, func(i, j int) bool {
		return seq[i].CreatedAt.Before(seq[j].CreatedAt)
	})
	s.seqs[conversationKey] = seq
}

// SequenceFor returns a copy of the conversation's ordered messages, empty if
// the key is unknown.
func (s *MessageStore) SequenceFor(conversationKey string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq := s.seqs[conversationKey]
	out := make([]Message, len(seq))
	copy(out, seq)
	return out
}

// normalize substitutes the current time for a missing timestamp and a local
// placeholder id for a message not yet acked by the server. Placeholder ids
// never collide, so dedup for those entries falls through to the
// body/sender/window rule.
func (s *MessageStore) normalize(msg Message) Message {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	if msg.ID == "" {
		msg.ID = "local-" + uuid.New().String()
	}
	return msg
}
