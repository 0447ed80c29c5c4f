package stream

import "encoding/json"

// Wire protocol: every frame is a JSON envelope naming the event and carrying
// its payload. Room scope is the session user's apartment.
const (
	eventJoinRoom    = "joinRoom"
	eventUserJoined  = "userJoined"
	eventSendMessage = "sendMessage"
	eventNewMessage  = "newMessage"
	eventUserOffline = "userOffline"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinRequest struct {
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

type joinBroadcast struct {
	User struct {
		Name string `json:"name"`
	} `json:"user"`
	RoomID string `json:"roomId"`
}
