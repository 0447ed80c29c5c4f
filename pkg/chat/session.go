package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/safestay/staychat/pkg/identity"
	"github.com/safestay/staychat/pkg/logger"
)

// Transport is the stream session surface the manager drives. Implemented by
// stream.Session; the manager owns it exclusively.
type Transport interface {
	Open(ctx context.Context, id identity.Identity) error
	Send(out Outbound) error
	Close()
}

// NotificationSink is the optional external collaborator invoked when a peer
// message arrives. It is not part of the event-processing contract.
type NotificationSink interface {
	Notify(senderName, body string)
}

// NotifyFunc adapts a function to a NotificationSink.
type NotifyFunc func(senderName, body string)

func (f NotifyFunc) Notify(senderName, body string) { f(senderName, body) }

// SessionOptions tunes the session manager.
type SessionOptions struct {
	DedupWindow  time.Duration // store dedup window, default 1s
	ReadyTimeout time.Duration // how long a pending intent waits for the directory
	Notifier     NotificationSink
}

// Session is the conversation session manager for one signed-in user. It
// loads history over REST, keeps the live stream reconciled with local state,
// and resolves deferred "chat with X" intents. It implements stream.Handler.
type Session struct {
	self    identity.Identity
	backend Backend

	store     *MessageStore
	presence  *PresenceTracker
	directory *ConversationDirectory
	intents   *IntentHolder

	transport Transport
	notifier  NotificationSink

	readyTimeout time.Duration

	mu       sync.RWMutex
	selected string // partner id of the open conversation, empty if none
	peers    []Peer

	closeOnce sync.Once
}

func NewSession(self identity.Identity, backend Backend, opts SessionOptions) *Session {
	readyTimeout := opts.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 5 * time.Second
	}
	return &Session{
		self:         self,
		backend:      backend,
		store:        NewMessageStore(opts.DedupWindow),
		presence:     NewPresenceTracker(),
		directory:    NewConversationDirectory(backend),
		intents:      NewIntentHolder(),
		notifier:     opts.Notifier,
		readyTimeout: readyTimeout,
	}
}

// SetTransport attaches the stream session. Must be called before Start.
func (s *Session) SetTransport(t Transport) {
	s.transport = t
}

// Start loads the conversation directory and the role-scoped peer list, opens
// the live stream, and auto-selects the most recent conversation. Fetch
// failures degrade to empty collections; a stream failure degrades to
// "history visible, live updates stalled". Neither is fatal.
func (s *Session) Start(ctx context.Context) error {
	convs := s.directory.Load(ctx)

	s.loadPeers(ctx)

	if len(convs) > 0 && s.SelectedPartner() == "" {
		if err := s.SelectConversation(ctx, convs[0].PartnerID); err != nil {
			logger.WarnCF("session", "Initial history load failed", map[string]any{
				"partner": convs[0].PartnerID,
				"error":   err.Error(),
			})
		}
	}

	if s.transport != nil {
		if err := s.transport.Open(ctx, s.self); err != nil {
			logger.WarnCF("session", "Stream open failed, continuing without live updates", map[string]any{
				"error": err.Error(),
			})
		}
	}

	logger.InfoCF("session", "Chat session started", map[string]any{
		"user":          s.self.Name,
		"room":          s.self.Room(),
		"conversations": len(convs),
	})
	return nil
}

func (s *Session) loadPeers(ctx context.Context) {
	var (
		peers []Peer
		err   error
	)
	if s.self.IsLandlord() {
		peers, err = s.backend.Tenants(ctx)
	} else {
		peers, err = s.backend.Landlords(ctx)
	}
	if err != nil {
		logger.WarnCF("session", "Peer list fetch failed, starting empty", map[string]any{
			"error": err.Error(),
		})
		peers = nil
	}
	s.mu.Lock()
	s.peers = peers
	s.mu.Unlock()
}

// SelectConversation opens the conversation with the given partner and loads
// its history. History results are stored under the partner key they were
// requested for, so a load that resolves after the user moved on can never
// overwrite the newly selected conversation.
func (s *Session) SelectConversation(ctx context.Context, partnerID string) error {
	if _, ok := s.directory.Select(partnerID); !ok {
		return fmt.Errorf("no conversation with partner %s", partnerID)
	}

	s.mu.Lock()
	s.selected = partnerID
	s.mu.Unlock()

	return s.loadHistory(ctx, partnerID)
}

func (s *Session) loadHistory(ctx context.Context, partnerID string) error {
	msgs, err := s.backend.Conversation(ctx, s.self.ID, partnerID)
	if err != nil {
		logger.WarnCF("session", "History load failed", map[string]any{
			"partner": partnerID,
			"error":   err.Error(),
		})
		// Empty view for the conversation still on screen; a stale failure
		// must not clobber history fetched for a key since re-selected.
		if s.SelectedPartner() == partnerID {
			s.store.Replace(partnerID, nil)
		}
		return err
	}
	s.store.Replace(partnerID, msgs)
	return nil
}

// SendMessage persists the message over REST, broadcasts it on the stream,
// and records the authoritative REST copy locally. Nothing is stored before
// the REST ack, so a send failure leaves no ghost entry to roll back.
func (s *Session) SendMessage(ctx context.Context, body string) (Message, error) {
	conv, ok := s.Selected()
	if !ok {
		return Message{}, fmt.Errorf("no conversation selected")
	}

	ack, err := s.backend.CreateChat(ctx, conv.PartnerID, body)
	if err != nil {
		return Message{}, err
	}

	s.broadcast(conv.PartnerID, conv.PartnerName, body)

	s.store.Append(conv.PartnerID, ack)
	s.directory.UpdateLastMessage(conv.PartnerID, ack)
	return ack, nil
}

// StartConversation bootstraps a new chat with a peer from the directory
// list: a REST-created greeting, the stream broadcast, then a synthesized
// conversation which becomes the selection.
func (s *Session) StartConversation(ctx context.Context, peer Peer) (Conversation, error) {
	greeting := fmt.Sprintf("Hello %s! 👋", peer.Name)

	ack, err := s.backend.CreateChat(ctx, peer.ID, greeting)
	if err != nil {
		return Conversation{}, err
	}

	s.broadcast(peer.ID, peer.Name, greeting)

	conv := s.directory.Synthesize(peer, ack)
	s.store.Replace(peer.ID, []Message{ack})

	s.mu.Lock()
	s.selected = peer.ID
	s.mu.Unlock()

	return conv, nil
}

// RequestChat resolves a pending chat intent: once the directory's first load
// has completed, an existing conversation is selected (with a history load),
// otherwise a new one is bootstrapped. The wait is bounded; if the directory
// never becomes ready the intent is dropped. The intent is consumed exactly
// once regardless of outcome.
func (s *Session) RequestChat(ctx context.Context, intent PendingIntent) error {
	s.intents.Post(intent)

	select {
	case <-s.directory.Ready():
	case <-ctx.Done():
		s.intents.Take()
		return ctx.Err()
	case <-time.After(s.readyTimeout):
		s.intents.Take()
		logger.WarnCF("session", "Directory never became ready, dropping chat intent", map[string]any{
			"partner": intent.PartnerID,
		})
		return nil
	}

	pending, ok := s.intents.Take()
	if !ok {
		// A concurrent resolution already consumed it.
		return nil
	}

	if _, exists := s.directory.Select(pending.PartnerID); exists {
		return s.SelectConversation(ctx, pending.PartnerID)
	}

	_, err := s.StartConversation(ctx, pending.Peer())
	return err
}

func (s *Session) broadcast(receiverID, receiverName, body string) {
	if s.transport == nil {
		return
	}
	err := s.transport.Send(Outbound{
		Content:      body,
		ReceiverName: receiverName,
		SenderName:   s.self.Name,
		SenderID:     s.self.ID,
		ReceiverID:   receiverID,
	})
	if err != nil {
		// The REST copy is already persisted; live delivery is best-effort.
		logger.DebugCF("session", "Stream broadcast skipped", map[string]any{"error": err.Error()})
	}
}

// MessageReceived handles an inbound stream message. Self-echoes are not
// appended (the REST ack copy is authoritative) but still refresh the
// conversation summary.
func (s *Session) MessageReceived(msg Message) {
	partnerID := msg.PartnerOf(s.self.ID)

	if !msg.IsFrom(s.self.ID) {
		if s.store.Append(partnerID, msg) && s.notifier != nil {
			s.notifier.Notify(msg.SenderName, msg.Body)
		}
	}

	s.directory.UpdateLastMessage(partnerID, msg)
}

// PeerJoined handles a presence join broadcast.
func (s *Session) PeerJoined(info PresenceInfo) {
	s.presence.MarkOnline(info.Name)
}

// PeerWentOffline handles a presence departure.
func (s *Session) PeerWentOffline(displayName string) {
	s.presence.MarkOffline(displayName)
}

// Selected returns the open conversation, if any.
func (s *Session) Selected() (Conversation, bool) {
	partnerID := s.SelectedPartner()
	if partnerID == "" {
		return Conversation{}, false
	}
	return s.directory.Select(partnerID)
}

// SelectedPartner returns the open conversation's partner id, or empty.
func (s *Session) SelectedPartner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Messages returns the open conversation's ordered message sequence.
func (s *Session) Messages() []Message {
	partnerID := s.SelectedPartner()
	if partnerID == "" {
		return nil
	}
	return s.store.SequenceFor(partnerID)
}

// MessagesWith returns the stored sequence for a specific partner.
func (s *Session) MessagesWith(partnerID string) []Message {
	return s.store.SequenceFor(partnerID)
}

// Conversations returns the directory snapshot, most recent first.
func (s *Session) Conversations() []Conversation {
	return s.directory.Conversations()
}

// Peers returns the role-scoped user list available for new chats.
func (s *Session) Peers() []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Peer, len(s.peers))
	copy(out, s.peers)
	return out
}

// IsOnline reports last-known presence for a display name.
func (s *Session) IsOnline(displayName string) bool {
	return s.presence.IsOnline(displayName)
}

// OnlinePeers returns everyone currently marked online in the room.
func (s *Session) OnlinePeers() []string {
	return s.presence.Online()
}

// Close tears down the stream exactly once. Inbound events arriving after
// close are not dispatched by the transport.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.transport != nil {
			s.transport.Close()
		}
		logger.InfoC("session", "Chat session closed")
	})
}
