package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"gigtalk/internal/entity"
	"gigtalk/internal/usecase"
)

type fakeAuthUc struct {
	validTokens map[string]*entity.TokenClaims
}

func (f *fakeAuthUc) Register(ctx context.Context, req entity.RegisterRequest) (entity.AuthResponse, error) {
	return entity.AuthResponse{}, nil
}

func (f *fakeAuthUc) Login(ctx context.Context, req entity.LoginRequest) (entity.AuthResponse, error) {
	return entity.AuthResponse{}, nil
}

func (f *fakeAuthUc) RefreshToken(ctx context.Context, refreshToken string) (entity.AuthResponse, error) {
	return entity.AuthResponse{}, usecase.ErrInvalidRefreshToken
}

func (f *fakeAuthUc) Logout(ctx context.Context, refreshToken string) error { return nil }

func (f *fakeAuthUc) LogoutAllDevices(ctx context.Context, userId string) error { return nil }

func (f *fakeAuthUc) ValidateAccessToken(token string) (*entity.TokenClaims, error) {
	if claims, ok := f.validTokens[token]; ok {
		return claims, nil
	}
	return nil, usecase.ErrInvalidCredentials
}

type fakeMessageUc struct {
	sendErr      error
	sentSender   string
	sentReceiver string
	sentContent  string
}

func (f *fakeMessageUc) Send(ctx context.Context, senderId, receiverId, content string) (entity.Message, error) {
	if f.sendErr != nil {
		return entity.Message{}, f.sendErr
	}
	f.sentSender = senderId
	f.sentReceiver = receiverId
	f.sentContent = content
	return entity.Message{
		Id:         "m1",
		SenderId:   senderId,
		ReceiverId: receiverId,
		Content:    content,
	}, nil
}

func (f *fakeMessageUc) Typing(senderId, receiverId string, isTyping bool) {}
func (f *fakeMessageUc) StopTyping(senderId, receiverId string)            {}
func (f *fakeMessageUc) HandleDisconnect(userId string)                    {}

type fakeConversationUc struct {
	openedBy   string
	openedWith string
	summaries  []entity.ConversationSummary
}

func (f *fakeConversationUc) Open(ctx context.Context, userId, otherId string) (entity.ConversationDetailResponse, error) {
	f.openedBy = userId
	f.openedWith = otherId
	return entity.ConversationDetailResponse{
		OtherUser: entity.User{Id: otherId, Name: "Other"},
	}, nil
}

func (f *fakeConversationUc) Summaries(ctx context.Context, userId string) ([]entity.ConversationSummary, error) {
	return f.summaries, nil
}

func (f *fakeConversationUc) UnreadFrom(ctx context.Context, userId, otherId string) (int64, error) {
	return 3, nil
}

type fakeNotificationUc struct {
	marked int64
}

func (f *fakeNotificationUc) Index(ctx context.Context, userId string) ([]entity.Notification, error) {
	return []entity.Notification{{Id: "n1", UserId: userId, Type: entity.NotificationTypeMessage}}, nil
}

func (f *fakeNotificationUc) MarkAllRead(ctx context.Context, userId string) (int64, error) {
	return f.marked, nil
}

type fakeUserUc struct {
	users map[string]entity.User
}

func (f *fakeUserUc) Get(ctx context.Context, userId string) (entity.User, error) {
	if user, ok := f.users[userId]; ok {
		return user, nil
	}
	return entity.User{}, usecase.ErrReceiverNotFound
}

func (f *fakeUserUc) SetOnline(ctx context.Context, userId string, online bool) error { return nil }

func (f *fakeUserUc) HandleUnregisterSession(ctx context.Context, userId string) error { return nil }

type fixture struct {
	router         *chi.Mux
	messageUc      *fakeMessageUc
	conversationUc *fakeConversationUc
}

func newFixture() *fixture {
	authUc := &fakeAuthUc{
		validTokens: map[string]*entity.TokenClaims{
			"alice-token": {UserId: "alice", Email: "alice@example.com", Username: "alice"},
		},
	}
	messageUc := &fakeMessageUc{}
	conversationUc := &fakeConversationUc{}
	notificationUc := &fakeNotificationUc{marked: 2}
	userUc := &fakeUserUc{users: map[string]entity.User{
		"alice": {Id: "alice", Name: "Alice"},
		"bob":   {Id: "bob", Name: "Bob", Password: "hashed"},
	}}

	handler := NewHttpHandler(conversationUc, messageUc, notificationUc, userUc)
	authMiddleware := NewAuthMiddleware(authUc)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Get("/messages", handler.ListConversations)
		r.Post("/messages", handler.SendMessage)
		r.Get("/messages/{userId}", handler.GetConversation)
		r.Get("/messages/{userId}/unread", handler.GetUnreadCount)
		r.Get("/notifications", handler.ListNotifications)
		r.Post("/notifications/read", handler.MarkNotificationsRead)
		r.Get("/user/{id}", handler.GetUser)
	})

	return &fixture{router: router, messageUc: messageUc, conversationUc: conversationUc}
}

func doRequest(t *testing.T, router *chi.Mux, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate_MissingHeaderRejected(t *testing.T) {
	fx := newFixture()

	rec := doRequest(t, fx.router, http.MethodGet, "/messages", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_BadTokenRejected(t *testing.T) {
	fx := newFixture()

	rec := doRequest(t, fx.router, http.MethodGet, "/messages", "forged-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSendMessage_SenderTakenFromToken(t *testing.T) {
	fx := newFixture()

	body := `{"receiverId":"bob","content":"hi"}`
	rec := doRequest(t, fx.router, http.MethodPost, "/messages", "alice-token", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if fx.messageUc.sentSender != "alice" {
		t.Errorf("sender should come from the token, got %q", fx.messageUc.sentSender)
	}
	if fx.messageUc.sentReceiver != "bob" || fx.messageUc.sentContent != "hi" {
		t.Errorf("unexpected send args: %q %q", fx.messageUc.sentReceiver, fx.messageUc.sentContent)
	}
}

func TestSendMessage_ValidationErrorsMapped(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"empty content", usecase.ErrEmptyContent, http.StatusBadRequest},
		{"self message", usecase.ErrSelfMessage, http.StatusBadRequest},
		{"unknown receiver", usecase.ErrReceiverNotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture()
			fx.messageUc.sendErr = tc.err

			rec := doRequest(t, fx.router, http.MethodPost, "/messages", "alice-token", `{"receiverId":"bob","content":"x"}`)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestGetConversation_OpensForAuthenticatedUser(t *testing.T) {
	fx := newFixture()

	rec := doRequest(t, fx.router, http.MethodGet, "/messages/bob", "alice-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if fx.conversationUc.openedBy != "alice" || fx.conversationUc.openedWith != "bob" {
		t.Errorf("expected open alice->bob, got %q->%q", fx.conversationUc.openedBy, fx.conversationUc.openedWith)
	}
}

func TestGetUnreadCount_DoesNotAcknowledge(t *testing.T) {
	fx := newFixture()

	rec := doRequest(t, fx.router, http.MethodGet, "/messages/bob/unread", "alice-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Data["unreadCount"] != 3 {
		t.Errorf("expected unreadCount=3, got %d", response.Data["unreadCount"])
	}
	if fx.conversationUc.openedBy != "" {
		t.Error("unread count must not open the conversation")
	}
}

func TestMarkNotificationsRead_ReturnsCount(t *testing.T) {
	fx := newFixture()

	rec := doRequest(t, fx.router, http.MethodPost, "/notifications/read", "alice-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Data["marked"] != 2 {
		t.Errorf("expected marked=2, got %d", response.Data["marked"])
	}
}

func TestHealthHandler_ReflectsStorePing(t *testing.T) {
	healthy := HealthHandler(func(ctx context.Context) error { return nil })
	rec := httptest.NewRecorder()
	healthy(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthy store: status = %d, want 200", rec.Code)
	}

	down := HealthHandler(func(ctx context.Context) error { return errors.New("connection refused") })
	rec = httptest.NewRecorder()
	down(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unreachable store: status = %d, want 503", rec.Code)
	}
}

func TestGetUser_PasswordStripped(t *testing.T) {
	fx := newFixture()

	rec := doRequest(t, fx.router, http.MethodGet, "/user/bob", "alice-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if strings.Contains(rec.Body.String(), "hashed") {
		t.Error("password leaked in user response")
	}
}
