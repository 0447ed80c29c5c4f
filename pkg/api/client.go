// Package api binds the Safe Stay REST endpoints the chat core consumes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/safestay/staychat/pkg/apperr"
	"github.com/safestay/staychat/pkg/chat"
	"github.com/safestay/staychat/pkg/identity"
)

// Config holds the REST collaborator settings.
type Config struct {
	BaseURL string        // e.g. http://localhost:5000/api
	Token   string        // bearer token from login; empty before login
	Timeout time.Duration // per-request timeout, 0 means 15s
}

// Client is a typed client over the Safe Stay REST API. All chat-core reads
// and the authoritative send path go through it.
type Client struct {
	rc *resty.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}

	return &Client{rc: rc}
}

// SetToken installs the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.rc.SetAuthToken(token)
}

// LoginResult is the auth collaborator's response to a login request.
type LoginResult struct {
	Token string            `json:"token"`
	User  identity.Identity `json:"user"`
}

// Login authenticates and installs the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/auth/login")
	if err != nil {
		return LoginResult{}, apperr.Unavailable("login request failed", err)
	}
	if err := statusErr(resp, "login"); err != nil {
		return LoginResult{}, err
	}
	c.rc.SetAuthToken(out.Token)
	return out, nil
}

// MyConversations returns the session user's conversation summaries, in
// server order (most recent first).
func (c *Client) MyConversations(ctx context.Context) ([]chat.Conversation, error) {
	var out []chat.Conversation
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/chats/conversations")
	if err != nil {
		return nil, apperr.Unavailable("conversation list fetch failed", err)
	}
	if err := statusErr(resp, "conversation list"); err != nil {
		return nil, err
	}
	return out, nil
}

// Conversation returns the full message history between two users, oldest
// first.
func (c *Client) Conversation(ctx context.Context, userID1, userID2 string) ([]chat.Message, error) {
	var out []chat.Message
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/chats/conversation/%s/%s", userID1, userID2))
	if err != nil {
		return nil, apperr.Unavailable("history fetch failed", err)
	}
	if err := statusErr(resp, "conversation history"); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateChat persists one outbound message and returns the server's
// authoritative copy (id and timestamp assigned).
func (c *Client) CreateChat(ctx context.Context, receiverID, body string) (chat.Message, error) {
	var out struct {
		Chat chat.Message `json:"chat"`
	}
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{"receiverId": receiverID, "message": body}).
		SetResult(&out).
		Post("/chats")
	if err != nil {
		return chat.Message{}, apperr.Unavailable("send failed", err)
	}
	if err := statusErr(resp, "send message"); err != nil {
		return chat.Message{}, err
	}
	return out.Chat, nil
}

// Tenants lists all tenants; used by landlord sessions to start new chats.
func (c *Client) Tenants(ctx context.Context) ([]chat.Peer, error) {
	return c.peers(ctx, "/users/tenants")
}

// Landlords lists all landlords; used by tenant sessions.
func (c *Client) Landlords(ctx context.Context) ([]chat.Peer, error) {
	return c.peers(ctx, "/users/landlords")
}

func (c *Client) peers(ctx context.Context, path string) ([]chat.Peer, error) {
	var out []chat.Peer
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&out).
		Get(path)
	if err != nil {
		return nil, apperr.Unavailable("peer list fetch failed", err)
	}
	if err := statusErr(resp, "peer list"); err != nil {
		return nil, err
	}
	return out, nil
}

func statusErr(resp *resty.Response, op string) error {
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusUnauthorized:
		return apperr.Unauthorized(op+" rejected", nil)
	case resp.StatusCode() == http.StatusNotFound:
		return apperr.NotFound(op, nil)
	case resp.StatusCode() >= 500:
		return apperr.Unavailable(fmt.Sprintf("%s: server returned %d", op, resp.StatusCode()), nil)
	default:
		return apperr.BadRequest(fmt.Sprintf("%s: server returned %d", op, resp.StatusCode()), nil)
	}
}
