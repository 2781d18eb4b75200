package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"gigtalk/internal/repository"
	"gigtalk/internal/usecase"
)

type HttpHandler struct {
	conversationUc usecase.ConversationUsecase
	messageUc      usecase.MessageUsecase
	notificationUc usecase.NotificationUsecase
	userUc         usecase.UserUsecase
}

func NewHttpHandler(
	conversationUc usecase.ConversationUsecase,
	messageUc usecase.MessageUsecase,
	notificationUc usecase.NotificationUsecase,
	userUc usecase.UserUsecase,
) *HttpHandler {
	return &HttpHandler{
		conversationUc: conversationUc,
		messageUc:      messageUc,
		notificationUc: notificationUc,
		userUc:         userUc,
	}
}

type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// GET /messages — conversation summaries for the authenticated user.
func (h *HttpHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	summaries, err := h.conversationUc.Summaries(r.Context(), claims.UserId)
	if err != nil {
		log.Error().Err(err).Str("userId", claims.UserId).Msg("list conversations")
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: summaries})
}

// GET /messages/{userId} — open one conversation. Opening marks every
// unread message from that counterpart as read.
func (h *HttpHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	otherId := chi.URLParam(r, "userId")

	detail, err := h.conversationUc.Open(r.Context(), claims.UserId, otherId)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, Response{Message: "user not found"})
			return
		}
		log.Error().Err(err).Str("userId", claims.UserId).Str("otherId", otherId).Msg("open conversation")
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: detail})
}

// GET /messages/{userId}/unread — unread badge count for one
// conversation, without acknowledging anything.
func (h *HttpHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	otherId := chi.URLParam(r, "userId")

	count, err := h.conversationUc.UnreadFrom(r.Context(), claims.UserId, otherId)
	if err != nil {
		log.Error().Err(err).Str("userId", claims.UserId).Str("otherId", otherId).Msg("count unread")
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]int64{"unreadCount": count}})
}

// POST /messages — send a message over the request/response surface.
// Live fan-out happens inside the usecase exactly as for socket sends.
func (h *HttpHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req struct {
		ReceiverId string `json:"receiverId"`
		Content    string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}

	message, err := h.messageUc.Send(r.Context(), claims.UserId, req.ReceiverId, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrEmptyContent):
			writeJSON(w, http.StatusBadRequest, Response{Message: "content is required"})
		case errors.Is(err, usecase.ErrSelfMessage):
			writeJSON(w, http.StatusBadRequest, Response{Message: "receiver id is required and cannot be yourself"})
		case errors.Is(err, usecase.ErrReceiverNotFound):
			writeJSON(w, http.StatusNotFound, Response{Message: "receiver not found"})
		default:
			log.Error().Err(err).Str("userId", claims.UserId).Msg("send message")
			writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, Response{Message: "success", Data: message})
}

// GET /notifications — durable notification feed, newest first.
func (h *HttpHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	notifications, err := h.notificationUc.Index(r.Context(), claims.UserId)
	if err != nil {
		log.Error().Err(err).Str("userId", claims.UserId).Msg("list notifications")
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: notifications})
}

// POST /notifications/read — mark the whole feed read.
func (h *HttpHandler) MarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	marked, err := h.notificationUc.MarkAllRead(r.Context(), claims.UserId)
	if err != nil {
		log.Error().Err(err).Str("userId", claims.UserId).Msg("mark notifications read")
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]int64{"marked": marked}})
}

// GET /user/{id}
func (h *HttpHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "id")

	user, err := h.userUc.Get(r.Context(), userId)
	if err != nil {
		writeJSON(w, http.StatusNotFound, Response{Message: "user not found"})
		return
	}

	user.Password = ""
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: user})
}
