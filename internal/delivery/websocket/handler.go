package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"gigtalk/infrastructure/ws"
	"gigtalk/internal/entity"
	"gigtalk/internal/usecase"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebsocketHandler struct {
	hub       ws.IHub
	authUc    usecase.AuthUsecase
	userUc    usecase.UserUsecase
	messageUc usecase.MessageUsecase
}

func NewWebsocketHandler(hub ws.IHub, authUc usecase.AuthUsecase, userUc usecase.UserUsecase, messageUc usecase.MessageUsecase) *WebsocketHandler {
	return &WebsocketHandler{
		hub:       hub,
		authUc:    authUc,
		userUc:    userUc,
		messageUc: messageUc,
	}
}

// HandleWebSocket upgrades the connection and binds it to the
// authenticated user. The user id carried in event payloads is never
// trusted over the token.
func (h *WebsocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("token")
	if token == "" {
		if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
			token = strings.TrimPrefix(authz, "Bearer ")
		}
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authUc.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	user, err := h.userUc.Get(ctx, claims.UserId)
	if err != nil {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade")
		return
	}

	if err := h.userUc.SetOnline(ctx, user.Id, true); err != nil {
		log.Error().Err(err).Str("userId", user.Id).Msg("set online")
	}

	session := ws.NewSession(user.Id, h.hub, conn)
	h.hub.RegisterSession(session)

	go session.WritePump()
	session.ReadPump(func(data []byte) {
		h.handleEvent(session, data)
	})
}

func (h *WebsocketHandler) handleEvent(session *ws.Session, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Debug().Err(err).Str("userId", session.UserId).Msg("unparsable event")
		h.sendError(session, "invalid event")
		return
	}

	switch env.Event {
	case EventJoin:
		// The payload's userId is informational; the session already
		// carries the authenticated identity.
		var req JoinRequest
		if err := json.Unmarshal(env.Data, &req); err == nil && req.UserId != "" && req.UserId != session.UserId {
			log.Warn().Str("claimed", req.UserId).Str("actual", session.UserId).Msg("join with foreign user id ignored")
		}
		h.hub.JoinRoom(session, entity.UserRoom(session.UserId))

	case EventJoinConversation:
		var req JoinConversationRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.ReceiverId == "" {
			h.sendError(session, "receiverId is required")
			return
		}
		h.hub.JoinRoom(session, entity.ConversationRoom(session.UserId, req.ReceiverId))

	case EventMessage:
		var req SendRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			h.sendError(session, "invalid message payload")
			return
		}
		// Persistence must survive the sender disconnecting mid-send.
		_, err := h.messageUc.Send(context.Background(), session.UserId, req.ReceiverId, req.Content)
		if err != nil {
			h.sendError(session, sendErrorMessage(err))
		}

	case EventTyping:
		var req TypingRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.ReceiverId == "" {
			return
		}
		h.messageUc.Typing(session.UserId, req.ReceiverId, req.IsTyping)

	case EventStopTyping:
		var req StopTypingRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.ReceiverId == "" {
			return
		}
		h.messageUc.StopTyping(session.UserId, req.ReceiverId)

	default:
		log.Debug().Str("event", env.Event).Str("userId", session.UserId).Msg("unknown event")
	}
}

// HandleUnregisterSession is wired as the hub's unregister callback:
// presence goes offline and ephemeral typing flags are dropped once
// the user's last session is gone.
func (h *WebsocketHandler) HandleUnregisterSession(session *ws.Session) error {
	if h.hub.RoomCount(entity.UserRoom(session.UserId)) > 0 {
		// Another tab is still connected.
		return nil
	}
	h.messageUc.HandleDisconnect(session.UserId)
	return h.userUc.HandleUnregisterSession(context.Background(), session.UserId)
}

func (h *WebsocketHandler) sendError(session *ws.Session, message string) {
	payload, err := encodeEvent(EventError, ErrorEvent{Message: message})
	if err != nil {
		return
	}
	session.Send(payload)
}

func sendErrorMessage(err error) string {
	switch {
	case errors.Is(err, usecase.ErrEmptyContent):
		return "message content is required"
	case errors.Is(err, usecase.ErrSelfMessage):
		return "cannot message yourself"
	case errors.Is(err, usecase.ErrReceiverNotFound):
		return "receiver not found"
	default:
		return "failed to send message"
	}
}
