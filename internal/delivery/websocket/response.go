package websocket

import "encoding/json"

// Outbound event names emitted to clients.
const (
	EventNewMessage = "new-message"
	EventError      = "error"
)

type TypingEvent struct {
	UserId   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type StopTypingEvent struct {
	UserId string `json:"userId"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
