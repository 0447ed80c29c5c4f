// Package stream maintains the persistent bidirectional event stream used
// for live message and presence delivery. One Session lives for the lifetime
// of an authenticated chat session; there is no automatic reconnect.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/safestay/staychat/pkg/chat"
	"github.com/safestay/staychat/pkg/identity"
	"github.com/safestay/staychat/pkg/logger"
)

// State is the transport lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Joined
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	default:
		return "disconnected"
	}
}

var (
	// ErrNotJoined is returned by Send before the room join completed.
	ErrNotJoined = errors.New("stream session not joined")
	// ErrAlreadyOpen is returned by Open on a session that is not Disconnected.
	ErrAlreadyOpen = errors.New("stream session already open")
	// ErrJoinTimeout is returned by Open when the join ack never arrives.
	ErrJoinTimeout = errors.New("room join not acknowledged")
)

// Handler receives the inbound event surface. Callbacks run on the session's
// reader goroutine; implementations must not block on the session itself.
type Handler interface {
	PeerJoined(info chat.PresenceInfo)
	MessageReceived(msg chat.Message)
	PeerWentOffline(displayName string)
}

// Options configures a Session.
type Options struct {
	URL         string        // websocket endpoint
	Token       string        // bearer token, sent as Authorization header
	JoinTimeout time.Duration // how long Open waits for the join ack
}

// Session owns one websocket transport exclusively. Lifecycle:
// Disconnected -> Connecting -> Joined -> Disconnected.
type Session struct {
	opts    Options
	handler Handler

	state  atomic.Int32
	closed atomic.Bool

	mu     sync.Mutex // guards conn writes
	conn   *websocket.Conn
	joined chan struct{}
	done   chan struct{}

	self identity.Identity
}

func NewSession(opts Options, handler Handler) *Session {
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = 10 * time.Second
	}
	return &Session{
		opts:    opts,
		handler: handler,
		joined:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Open dials the transport, emits the joinRoom request for the session
// user's apartment room, and waits for the join acknowledgement broadcast.
func (s *Session) Open(ctx context.Context, id identity.Identity) error {
	if !s.state.CompareAndSwap(int32(Disconnected), int32(Connecting)) {
		return ErrAlreadyOpen
	}
	s.self = id

	header := http.Header{}
	if s.opts.Token != "" {
		header.Set("Authorization", "Bearer "+s.opts.Token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.opts.URL, header)
	if err != nil {
		s.state.Store(int32(Disconnected))
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.readLoop(conn)

	join := joinRequest{Username: id.Name, RoomID: id.Room()}
	if err := s.write(eventJoinRoom, join); err != nil {
		s.Close()
		return err
	}

	select {
	case <-s.joined:
		return nil
	case <-s.done:
		return ErrJoinTimeout
	case <-ctx.Done():
		s.Close()
		return ctx.Err()
	case <-time.After(s.opts.JoinTimeout):
		s.Close()
		return ErrJoinTimeout
	}
}

// Send broadcasts a peer-addressed message event. Permitted only in Joined
// state; otherwise the message is logged and dropped (the authoritative copy
// already went through REST).
func (s *Session) Send(out chat.Outbound) error {
	if s.State() != Joined {
		logger.WarnCF("stream", "Send dropped outside joined state", map[string]any{
			"state":    s.State().String(),
			"receiver": out.ReceiverName,
		})
		return ErrNotJoined
	}
	return s.write(eventSendMessage, out)
}

// Close tears down the transport and transitions to Disconnected. Idempotent;
// no inbound events are dispatched after it returns the first time.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)
	s.state.Store(int32(Disconnected))

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	logger.InfoC("stream", "Session closed")
}

func (s *Session) write(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	env := envelope{Event: event, Data: payload}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotJoined
	}
	return s.conn.WriteJSON(env)
}

func (s *Session) readLoop(conn *websocket.Conn) {
	defer func() {
		// Transport failure is not distinguished from a normal disconnect.
		if !s.closed.Load() {
			s.state.Store(int32(Disconnected))
			logger.InfoC("stream", "Transport closed, live updates stalled")
		}
	}()

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		if s.closed.Load() {
			return
		}
		s.dispatch(env)
	}
}

func (s *Session) dispatch(env envelope) {
	switch env.Event {
	case eventUserJoined:
		var ack joinBroadcast
		if err := json.Unmarshal(env.Data, &ack); err != nil {
			logger.WarnCF("stream", "Malformed userJoined event", map[string]any{"error": err.Error()})
			return
		}
		// The room echoes every join, including our own: the first echo for
		// the session user is the join acknowledgement.
		if ack.User.Name == s.self.Name {
			if s.state.CompareAndSwap(int32(Connecting), int32(Joined)) {
				close(s.joined)
			}
		}
		if s.handler != nil {
			s.handler.PeerJoined(chat.PresenceInfo{Name: ack.User.Name, Room: ack.RoomID})
		}

	case eventNewMessage:
		var msg chat.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			logger.WarnCF("stream", "Malformed newMessage event", map[string]any{"error": err.Error()})
			return
		}
		if s.handler != nil {
			s.handler.MessageReceived(msg)
		}

	case eventUserOffline:
		var name string
		if err := json.Unmarshal(env.Data, &name); err != nil {
			logger.WarnCF("stream", "Malformed userOffline event", map[string]any{"error": err.Error()})
			return
		}
		if s.handler != nil {
			s.handler.PeerWentOffline(name)
		}

	default:
		logger.DebugCF("stream", "Ignoring unknown event", map[string]any{"event": env.Event})
	}
}
