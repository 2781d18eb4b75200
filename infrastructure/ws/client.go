package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	// Message content is capped well below this; the limit guards the
	// decoder against hostile frames.
	maxMessageSize = 1 << 20
)

// Session is one connected websocket for one user. A user may hold
// several sessions at once (multiple tabs); each joins rooms
// independently and each receives room fan-out independently.
type Session struct {
	Id     string
	UserId string
	hub    IHub
	conn   *websocket.Conn
	send   chan []byte

	// closed guards send: the hub closes the channel on unregister
	// while broadcasts may still hold a snapshot of this session, so
	// Send and closeSend must be mutually exclusive.
	mu     sync.RWMutex
	closed bool
}

func NewSession(userId string, hub IHub, conn *websocket.Conn) *Session {
	return &Session{
		Id:     uuid.New().String(),
		UserId: userId,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
	}
}

// Send queues a message without blocking. It reports false when the
// session is already closed or its buffer is full, which the hub
// treats as a dead session.
func (s *Session) Send(message []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- message:
		return true
	default:
		return false
	}
}

// closeSend shuts the send channel exactly once. Idempotent; safe to
// call while concurrent Sends are in flight.
func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// ReadPump reads frames until the connection drops and hands each one
// to handler. It must run on the connection's goroutine; unregistering
// on exit tears down all room memberships for this session.
func (s *Session) ReadPump(handler func(data []byte)) {
	defer func() {
		s.hub.UnregisterSession(s)
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("userId", s.UserId).Msg("websocket read error")
			}
			return
		}
		handler(data)
	}
}

// WritePump drains the send buffer and keeps the connection alive with
// pings. One per session, started alongside ReadPump.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case message, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
