// Package chat implements the conversation session core: message sequences,
// presence, the conversation directory, and the manager that reconciles REST
// history with the live stream.
package chat

import (
	"encoding/json"
	"time"
)

// FlexibleID is an identity key that the server sometimes delivers as a bare
// string and sometimes as an embedded user object. Decoding always reduces it
// to the bare id so comparisons downstream work on one shape.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleID(s)
		return nil
	}

	var obj struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*f = FlexibleID(obj.ID)
	return nil
}

func (f FlexibleID) String() string {
	return string(f)
}

// Message is one chat message as exchanged with the server. ID is assigned by
// the server once persisted and is empty before the REST ack.
type Message struct {
	ID         string     `json:"_id,omitempty"`
	SenderID   FlexibleID `json:"senderId"`
	ReceiverID FlexibleID `json:"receiverId"`
	SenderName string     `json:"senderName,omitempty"`
	Body       string     `json:"message"`
	CreatedAt  time.Time  `json:"createdAt,omitempty"`
}

// PartnerOf returns the conversation key for this message relative to the
// session user: whichever of sender/receiver is not selfID.
func (m Message) PartnerOf(selfID string) string {
	if m.SenderID.String() == selfID {
		return m.ReceiverID.String()
	}
	return m.SenderID.String()
}

// IsFrom reports whether the message was sent by the given user.
func (m Message) IsFrom(userID string) bool {
	return m.SenderID.String() == userID
}

// duplicateOf reports whether m and other describe the same logical message:
// identical server ids, or an identical (body, sender) pair delivered within
// the dedup window. The window absorbs the REST-ack vs stream-echo race.
func (m Message) duplicateOf(other Message, window time.Duration) bool {
	if m.ID != "" && m.ID == other.ID {
		return true
	}
	if m.Body != other.Body || m.SenderID != other.SenderID {
		return false
	}
	delta := m.CreatedAt.Sub(other.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta < window
}
