package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"gigtalk/internal/metrics"
)

// RedisHub extends the room registry across server instances. Local
// sessions live in process memory exactly like Hub; every broadcast is
// additionally published on a room-keyed Redis channel so instances
// holding other sessions of the same room deliver it too.
type RedisHub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Session]bool
	sessions map[*Session]map[string]bool

	redisClient *redis.Client
	pubsub      *redis.PubSub
	serverID    string

	Register   chan *Session
	Unregister chan *Session

	OnSessionUnregister func(s *Session) error
}

type redisEnvelope struct {
	FromServerID string `json:"fromServerId"`
	Room         string `json:"room"`
	Payload      []byte `json:"payload"`
}

func NewRedisHub(redisAddr string, serverID string) IHub {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	hub := &RedisHub{
		rooms:       make(map[string]map[*Session]bool),
		sessions:    make(map[*Session]map[string]bool),
		redisClient: rdb,
		serverID:    serverID,
		Register:    make(chan *Session),
		Unregister:  make(chan *Session),
	}

	hub.pubsub = rdb.PSubscribe(context.Background(), "room:*")

	return hub
}

func (h *RedisHub) Run() {
	go h.subscribeRedis()

	for {
		select {
		case s := <-h.Register:
			h.mu.Lock()
			h.sessions[s] = make(map[string]bool)
			h.mu.Unlock()
			metrics.WsSessions.Inc()
			log.Info().Str("serverId", h.serverID).Str("userId", s.UserId).Msg("session connected")

		case s := <-h.Unregister:
			h.mu.Lock()
			if rooms, ok := h.sessions[s]; ok {
				for room := range rooms {
					members := h.rooms[room]
					delete(members, s)
					if len(members) == 0 {
						delete(h.rooms, room)
					}
				}
				delete(h.sessions, s)
				s.closeSend()
				metrics.WsSessions.Dec()
				log.Info().Str("serverId", h.serverID).Str("userId", s.UserId).Msg("session disconnected")
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

func (h *RedisHub) subscribeRedis() {
	ch := h.pubsub.Channel()
	log.Info().Str("serverId", h.serverID).Msg("redis subscriber started")

	for msg := range ch {
		var env redisEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Error().Err(err).Msg("unmarshal redis envelope")
			continue
		}
		// Locally originated broadcasts were already delivered.
		if env.FromServerID == h.serverID {
			continue
		}
		h.deliverLocal(env.Room, env.Payload)
	}
}

// BroadcastRoom delivers to local members, then publishes so other
// instances can reach their members of the same room.
func (h *RedisHub) BroadcastRoom(room string, message []byte) {
	h.deliverLocal(room, message)

	env := redisEnvelope{
		FromServerID: h.serverID,
		Room:         room,
		Payload:      message,
	}
	envBytes, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("marshal redis envelope")
		return
	}
	if err := h.redisClient.Publish(context.Background(), "room:"+room, envBytes).Err(); err != nil {
		// Best effort: local delivery already happened, a remote miss
		// degrades to the durable notification fallback.
		metrics.DeliveryFailuresTotal.Inc()
		log.Error().Err(err).Str("room", room).Msg("publish to redis")
	}
}

func (h *RedisHub) deliverLocal(room string, message []byte) {
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

func (h *RedisHub) JoinRoom(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s]; !ok {
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

func (h *RedisHub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *RedisHub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *RedisHub) RegisterSession(s *Session) {
	h.Register <- s
}

func (h *RedisHub) UnregisterSession(s *Session) {
	h.Unregister <- s
}

func (h *RedisHub) SetOnSessionUnregister(callback func(s *Session) error) {
	h.OnSessionUnregister = callback
}
