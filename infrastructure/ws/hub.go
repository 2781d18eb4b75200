package ws

import (
	"sync"

	"github.com/rs/zerolog/log"

	"gigtalk/internal/metrics"
)

// Hub is the in-memory room registry for a single server process.
// Rooms are keyed by strings derived independent of join order
// (user:<id>, conversation:<sorted pair>), so both participants of a
// conversation and every tab of one user converge on the same key.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Session]bool
	sessions map[*Session]map[string]bool

	Register   chan *Session
	Unregister chan *Session

	OnSessionUnregister func(s *Session) error
}

func NewHub() IHub {
	return &Hub{
		rooms:      make(map[string]map[*Session]bool),
		sessions:   make(map[*Session]map[string]bool),
		Register:   make(chan *Session),
		Unregister: make(chan *Session),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case s := <-h.Register:
			h.mu.Lock()
			h.sessions[s] = make(map[string]bool)
			h.mu.Unlock()
			metrics.WsSessions.Inc()
			log.Info().Str("userId", s.UserId).Str("sessionId", s.Id).Msg("session connected")

		case s := <-h.Unregister:
			h.mu.Lock()
			if rooms, ok := h.sessions[s]; ok {
				for room := range rooms {
					h.leaveRoomLocked(s, room)
				}
				delete(h.sessions, s)
				s.closeSend()
				metrics.WsSessions.Dec()
				log.Info().Str("userId", s.UserId).Str("sessionId", s.Id).Msg("session disconnected")
			}
			h.mu.Unlock()

			if h.OnSessionUnregister != nil {
				if err := h.OnSessionUnregister(s); err != nil {
					log.Error().Err(err).Str("userId", s.UserId).Msg("OnSessionUnregister error")
				}
			}
		}
	}
}

// JoinRoom is idempotent; joining a room twice has no effect. Joins are
// synchronous in-memory operations and never block on I/O.
func (h *Hub) JoinRoom(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s]; !ok {
		// Session already unregistered; a join raced the disconnect.
		return
	}
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Session]bool)
		h.rooms[room] = members
	}
	members[s] = true
	h.sessions[s][room] = true
}

// BroadcastRoom delivers message to every session currently joined to
// room. An empty room is a no-op. Sessions whose buffers are full are
// dropped rather than blocking the fan-out.
func (h *Hub) BroadcastRoom(room string, message []byte) {
	h.mu.RLock()
	members := make([]*Session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	for _, s := range members {
		if !s.Send(message) {
			log.Warn().Str("userId", s.UserId).Str("room", room).Msg("send buffer full, dropping session")
			metrics.DeliveryFailuresTotal.Inc()
			go h.UnregisterSession(s)
		}
	}
}

func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) RegisterSession(s *Session) {
	h.Register <- s
}

func (h *Hub) UnregisterSession(s *Session) {
	h.Unregister <- s
}

func (h *Hub) SetOnSessionUnregister(callback func(s *Session) error) {
	h.OnSessionUnregister = callback
}

// leaveRoomLocked removes s from room and drops the room once empty.
// Caller holds h.mu.
func (h *Hub) leaveRoomLocked(s *Session, room string) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, s)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}
