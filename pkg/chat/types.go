package chat

import "context"

// Conversation is the 1:1 relationship between the session user and one peer.
// PartnerID is the primary key: the directory never holds two conversations
// for the same partner.
type Conversation struct {
	PartnerID         string  `json:"partnerId"`
	PartnerName       string  `json:"partnerName"`
	PartnerRole       string  `json:"partnerRole"`
	PartnerNationalID string  `json:"partnerNationalID"`
	LastMessage       Message `json:"lastMessage"`
	MessageCount      int     `json:"messageCount"`
}

// Peer is one entry of the role-scoped user directory (tenants for a
// landlord, landlords for a tenant).
type Peer struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	NationalID string `json:"nationalID"`
}

// PendingIntent is a one-shot "open a chat with this user" request produced
// by navigation on another page. It is consumed at most once.
type PendingIntent struct {
	PartnerID         string
	PartnerName       string
	PartnerRole       string
	PartnerNationalID string
}

// PresenceInfo describes a peer join event on the stream.
type PresenceInfo struct {
	Name string `json:"name"`
	Room string `json:"roomId,omitempty"`
}

// Outbound is the fire-and-forget peer broadcast emitted on the stream after
// a message has been persisted over REST. The REST ack copy stays the
// authoritative one.
type Outbound struct {
	Content      string `json:"content"`
	ReceiverName string `json:"receiverName"`
	SenderName   string `json:"senderName"`
	SenderID     string `json:"senderId"`
	ReceiverID   string `json:"receiverId"`
}

// Backend is the REST collaborator surface the session core consumes.
// Implemented by api.Client.
type Backend interface {
	MyConversations(ctx context.Context) ([]Conversation, error)
	Conversation(ctx context.Context, userID1, userID2 string) ([]Message, error)
	CreateChat(ctx context.Context, receiverID, body string) (Message, error)
	Tenants(ctx context.Context) ([]Peer, error)
	Landlords(ctx context.Context) ([]Peer, error)
}
