package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/safestay/staychat/pkg/identity"
)

// fakeBackend is an in-memory REST collaborator for session tests.
type fakeBackend struct {
	mu sync.Mutex

	convs    []Conversation
	convsErr error

	history    map[string][]Message
	historyErr error
	// historyGate, when set for a partner id, blocks that history load until
	// the channel is closed. Used to simulate an in-flight request.
	historyGate map[string]chan struct{}

	createErr error
	created   []Message
	nextID    int

	tenants   []Peer
	landlords []Peer
	peersErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		history:     make(map[string][]Message),
		historyGate: make(map[string]chan struct{}),
	}
}

func (b *fakeBackend) MyConversations(_ context.Context) ([]Conversation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.convsErr != nil {
		return nil, b.convsErr
	}
	out := make([]Conversation, len(b.convs))
	copy(out, b.convs)
	return out, nil
}

func (b *fakeBackend) Conversation(_ context.Context, _, partnerID string) ([]Message, error) {
	b.mu.Lock()
	gate := b.historyGate[partnerID]
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.historyErr != nil {
		return nil, b.historyErr
	}
	return b.history[partnerID], nil
}

func (b *fakeBackend) CreateChat(_ context.Context, receiverID, body string) (Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return Message{}, b.createErr
	}
	b.nextID++
	msg := Message{
		ID:         fmt.Sprintf("srv-%d", b.nextID),
		SenderID:   "self",
		ReceiverID: FlexibleID(receiverID),
		Body:       body,
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(b.nextID) * time.Minute),
	}
	b.created = append(b.created, msg)
	return msg, nil
}

func (b *fakeBackend) Tenants(_ context.Context) ([]Peer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tenants, b.peersErr
}

func (b *fakeBackend) Landlords(_ context.Context) ([]Peer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.landlords, b.peersErr
}

// fakeTransport records broadcasts and close calls.
type fakeTransport struct {
	mu      sync.Mutex
	openErr error
	sendErr error
	sent    []Outbound
	closed  int
}

func (t *fakeTransport) Open(_ context.Context, _ identity.Identity) error {
	return t.openErr
}

func (t *fakeTransport) Send(out Outbound) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, out)
	return nil
}

func (t *fakeTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed++
}

func (t *fakeTransport) Sent() []Outbound {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Outbound, len(t.sent))
	copy(out, t.sent)
	return out
}
