package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	wsDelivery "gigtalk/internal/delivery/websocket"
)

// HealthHandler reports liveness of the backing store: 200 while the
// store answers a ping, 503 once it stops.
func HealthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ping(r.Context()); err != nil {
			log.Error().Err(err).Msg("health check")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func MapHttpRoutes(r *chi.Mux, httpHandler *HttpHandler, websocketHandler *wsDelivery.WebsocketHandler, authHandler *AuthHandler, authMiddleware *AuthMiddleware, ping func(ctx context.Context) error) {
	r.Handle("/ws", http.HandlerFunc(websocketHandler.HandleWebSocket))

	r.Get("/healthz", HealthHandler(ping))
	r.Handle("/metrics", promhttp.Handler())

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", http.HandlerFunc(authHandler.Register))
		r.Post("/login", http.HandlerFunc(authHandler.Login))
		r.Post("/refresh", http.HandlerFunc(authHandler.RefreshToken))
		r.Post("/logout", http.HandlerFunc(authHandler.Logout))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/logout-all", http.HandlerFunc(authHandler.LogoutAllDevices))
		})
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", http.HandlerFunc(httpHandler.ListConversations))
			r.Post("/", http.HandlerFunc(httpHandler.SendMessage))
			r.Get("/{userId}", http.HandlerFunc(httpHandler.GetConversation))
			r.Get("/{userId}/unread", http.HandlerFunc(httpHandler.GetUnreadCount))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", http.HandlerFunc(httpHandler.ListNotifications))
			r.Post("/read", http.HandlerFunc(httpHandler.MarkNotificationsRead))
		})

		r.Route("/user", func(r chi.Router) {
			r.Get("/{id}", http.HandlerFunc(httpHandler.GetUser))
		})
	})
}
