package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gigtalk/infrastructure/db"
	"gigtalk/infrastructure/ws"
	httpDelivery "gigtalk/internal/delivery/http"
	"gigtalk/internal/delivery/websocket"
	"gigtalk/internal/metrics"
	"gigtalk/internal/repository"
	"gigtalk/internal/usecase"
	"gigtalk/pkg/jwt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}

	initLogger()

	ctx := context.Background()

	mongoStore, err := db.NewMongoStore(ctx, os.Getenv("MONGODB_URI"), os.Getenv("MONGODB_DATABASE"))
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongodb")
	}
	defer mongoStore.Close(ctx)

	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure indexes")
	}
	log.Info().Msg("connected to mongodb")

	userRepo := repository.NewUserRepository(*mongoStore.DB)
	messageRepo := repository.NewMessageRepository(*mongoStore.DB)
	notificationRepo := repository.NewNotificationRepository(*mongoStore.DB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(*mongoStore.DB)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-this-in-production"
		log.Warn().Msg("using default JWT secret, set JWT_SECRET for production")
	}
	// Access token: 15 minutes, refresh token: 30 days.
	jwtManager := jwt.NewJWTManager(jwtSecret, 15*time.Minute, 30*24*time.Hour)

	var hub ws.IHub
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		serverID := os.Getenv("SERVER_ID")
		if serverID == "" {
			serverID = "server-1"
		}
		log.Info().Str("addr", redisAddr).Str("serverId", serverID).Msg("using redis hub")
		hub = ws.NewRedisHub(redisAddr, serverID)
	} else {
		log.Info().Msg("using in-memory hub (single server)")
		hub = ws.NewHub()
	}

	typing := usecase.NewTypingTracker()
	defer typing.Close()

	publisher := websocket.NewHubPublisher(hub)

	authUc := usecase.NewAuthUsecase(userRepo, refreshTokenRepo, jwtManager)
	userUc := usecase.NewUserUsecase(userRepo)
	messageUc := usecase.NewMessageUsecase(messageRepo, userRepo, notificationRepo, publisher, typing)
	conversationUc := usecase.NewConversationUsecase(messageRepo, userRepo)
	notificationUc := usecase.NewNotificationUsecase(notificationRepo)

	websocketH := websocket.NewWebsocketHandler(hub, authUc, userUc, messageUc)
	hub.SetOnSessionUnregister(websocketH.HandleUnregisterSession)

	go hub.Run()

	// Expired refresh tokens accumulate otherwise; sweep them daily.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := refreshTokenRepo.DeleteExpired(ctx); err != nil {
				log.Error().Err(err).Msg("delete expired refresh tokens")
			}
		}
	}()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger)
	router.Use(metrics.Middleware)
	router.Use(corsMiddleware)

	httpH := httpDelivery.NewHttpHandler(conversationUc, messageUc, notificationUc, userUc)
	authH := httpDelivery.NewAuthHandler(authUc)
	authMiddleware := httpDelivery.NewAuthMiddleware(authUc)

	httpDelivery.MapHttpRoutes(router, httpH, websocketH, authH, authMiddleware, mongoStore.Ping)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("http server listening")
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal().Err(err).Msg("http server")
	}
}

func initLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigin := os.Getenv("CORS_ORIGIN")
	if allowedOrigin == "" {
		allowedOrigin = "http://localhost:3000"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
