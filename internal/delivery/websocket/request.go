package websocket

import "encoding/json"

// Inbound event names accepted from a client.
const (
	EventJoin             = "join"
	EventJoinConversation = "join-conversation"
	EventMessage          = "message"
	EventTyping           = "typing"
	EventStopTyping       = "stop-typing"
)

// Envelope is the framing for every event in both directions: a name
// plus an event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRequest struct {
	UserId string `json:"userId"`
}

type JoinConversationRequest struct {
	UserId     string `json:"userId"`
	ReceiverId string `json:"receiverId"`
}

type SendRequest struct {
	SenderId   string `json:"senderId"`
	ReceiverId string `json:"receiverId"`
	Content    string `json:"content"`
}

type TypingRequest struct {
	ReceiverId string `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

type StopTypingRequest struct {
	ReceiverId string `json:"receiverId"`
}
