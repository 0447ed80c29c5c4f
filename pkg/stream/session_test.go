package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/safestay/staychat/pkg/chat"
	"github.com/safestay/staychat/pkg/identity"
)

// wsServer is a scripted websocket peer. It echoes userJoined for every
// joinRoom frame (unless silent) and lets tests push arbitrary events.
type wsServer struct {
	t       *testing.T
	srv     *httptest.Server
	silent  bool // swallow joinRoom without acking
	mu      sync.Mutex
	conn    *websocket.Conn
	joins   chan joinRequest
	headers chan http.Header
}

func newWSServer(t *testing.T, silent bool) *wsServer {
	s := &wsServer{
		t:       t,
		silent:  silent,
		joins:   make(chan joinRequest, 4),
		headers: make(chan http.Header, 4),
	}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.headers <- r.Header.Clone()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.serve(conn)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) serve(conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		if env.Event != eventJoinRoom {
			continue
		}
		var join joinRequest
		if err := json.Unmarshal(env.Data, &join); err != nil {
			s.t.Errorf("malformed join frame: %v", err)
			continue
		}
		s.joins <- join
		if !s.silent {
			var ack joinBroadcast
			ack.User.Name = join.Username
			ack.RoomID = join.RoomID
			s.push(eventUserJoined, ack)
		}
	}
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) push(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.t.Fatalf("marshal %s: %v", event, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		s.t.Fatalf("push %s before a client connected", event)
	}
	if err := s.conn.WriteJSON(envelope{Event: event, Data: payload}); err != nil {
		s.t.Errorf("push %s: %v", event, err)
	}
}

// recordingHandler forwards dispatched events onto channels so tests can wait
// without sleeping.
type recordingHandler struct {
	joined  chan chat.PresenceInfo
	msgs    chan chat.Message
	offline chan string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		joined:  make(chan chat.PresenceInfo, 8),
		msgs:    make(chan chat.Message, 8),
		offline: make(chan string, 8),
	}
}

func (h *recordingHandler) PeerJoined(info chat.PresenceInfo)  { h.joined <- info }
func (h *recordingHandler) MessageReceived(msg chat.Message)   { h.msgs <- msg }
func (h *recordingHandler) PeerWentOffline(displayName string) { h.offline <- displayName }

func testUser() identity.Identity {
	return identity.Identity{ID: "u1", Name: "Dana", Role: identity.RoleTenant, ApartmentName: "apt-7"}
}

func TestSession_OpenJoinsRoom(t *testing.T) {
	server := newWSServer(t, false)
	handler := newRecordingHandler()
	sess := NewSession(Options{URL: server.url(), Token: "tok-123", JoinTimeout: 2 * time.Second}, handler)
	defer sess.Close()

	if err := sess.Open(context.Background(), testUser()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := sess.State(); got != Joined {
		t.Fatalf("state = %v, want joined", got)
	}

	join := <-server.joins
	if join.Username != "Dana" || join.RoomID != "apt-7" {
		t.Errorf("join frame = %+v", join)
	}
	header := <-server.headers
	if got := header.Get("Authorization"); got != "Bearer tok-123" {
		t.Errorf("auth header = %q", got)
	}

	// The session's own join echo is also dispatched as presence.
	select {
	case info := <-handler.joined:
		if info.Name != "Dana" {
			t.Errorf("presence = %+v", info)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no presence dispatch for the join echo")
	}
}

func TestSession_SendBeforeJoinIsRejected(t *testing.T) {
	sess := NewSession(Options{URL: "ws://unused"}, newRecordingHandler())

	err := sess.Send(chat.Outbound{Content: "hi", ReceiverName: "Alice"})
	if !errors.Is(err, ErrNotJoined) {
		t.Fatalf("err = %v, want ErrNotJoined", err)
	}
}

func TestSession_DispatchesInboundEvents(t *testing.T) {
	server := newWSServer(t, false)
	handler := newRecordingHandler()
	sess := NewSession(Options{URL: server.url(), JoinTimeout: 2 * time.Second}, handler)
	defer sess.Close()

	if err := sess.Open(context.Background(), testUser()); err != nil {
		t.Fatalf("open: %v", err)
	}
	<-handler.joined // drain own join echo

	server.push(eventNewMessage, chat.Message{
		ID:       "m1",
		SenderID: "p1",
		Body:     "hello",
	})
	select {
	case msg := <-handler.msgs:
		if msg.ID != "m1" || msg.Body != "hello" {
			t.Errorf("message = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("newMessage not dispatched")
	}

	server.push(eventUserOffline, "Alice")
	select {
	case name := <-handler.offline:
		if name != "Alice" {
			t.Errorf("offline = %q", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("userOffline not dispatched")
	}
}

func TestSession_SendAfterJoin(t *testing.T) {
	server := newWSServer(t, false)
	handler := newRecordingHandler()
	sess := NewSession(Options{URL: server.url(), JoinTimeout: 2 * time.Second}, handler)
	defer sess.Close()

	if err := sess.Open(context.Background(), testUser()); err != nil {
		t.Fatalf("open: %v", err)
	}

	out := chat.Outbound{Content: "hi", SenderName: "Dana", ReceiverName: "Alice", SenderID: "u1", ReceiverID: "p1"}
	if err := sess.Send(out); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestSession_OpenTimesOutWithoutAck(t *testing.T) {
	server := newWSServer(t, true)
	sess := NewSession(Options{URL: server.url(), JoinTimeout: 50 * time.Millisecond}, newRecordingHandler())

	err := sess.Open(context.Background(), testUser())
	if !errors.Is(err, ErrJoinTimeout) {
		t.Fatalf("err = %v, want ErrJoinTimeout", err)
	}
	if got := sess.State(); got != Disconnected {
		t.Errorf("state after timeout = %v, want disconnected", got)
	}
}

func TestSession_SecondOpenIsRejected(t *testing.T) {
	server := newWSServer(t, false)
	sess := NewSession(Options{URL: server.url(), JoinTimeout: 2 * time.Second}, newRecordingHandler())
	defer sess.Close()

	if err := sess.Open(context.Background(), testUser()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := sess.Open(context.Background(), testUser()); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("second open err = %v, want ErrAlreadyOpen", err)
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	server := newWSServer(t, false)
	sess := NewSession(Options{URL: server.url(), JoinTimeout: 2 * time.Second}, newRecordingHandler())

	if err := sess.Open(context.Background(), testUser()); err != nil {
		t.Fatalf("open: %v", err)
	}
	sess.Close()
	sess.Close()

	if got := sess.State(); got != Disconnected {
		t.Errorf("state after close = %v, want disconnected", got)
	}
	if err := sess.Send(chat.Outbound{Content: "late"}); !errors.Is(err, ErrNotJoined) {
		t.Errorf("send after close err = %v, want ErrNotJoined", err)
	}
}
