package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/7085ashishraj/Campus-Collab/internal/api/middleware"
	"github.com/7085ashishraj/Campus-Collab/internal/config"
	"github.com/7085ashishraj/Campus-Collab/internal/handlers"
	"github.com/7085ashishraj/Campus-Collab/internal/store"
)

const maxBodySize = 16 * 1024 // 16KB covers every request body we accept

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *config.Config, h *handlers.Handler, sessions store.SessionStore, db store.DataStore, limiter middleware.MessageLimiter, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(chimw.Timeout(30 * time.Second))

	corsOrigins := cfg.AllowedOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Service-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	auth := middleware.NewAuthMiddleware(sessions, db)
	msgLimit := middleware.NewRateLimiter(limiter, logger, 30, time.Minute)

	// Public routes
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/auth/session", h.CreateSession)
	r.Get("/ws", h.Socket)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Route("/chat", func(r chi.Router) {
			r.Get("/", h.ListChats)
			r.Post("/", h.AccessChat)
			r.Post("/group", h.CreateGroupChat)
			r.Put("/group/{id}", h.RenameGroup)
			r.Put("/group/{id}/add", h.AddToGroup)
			r.Put("/group/{id}/remove", h.RemoveFromGroup)
		})

		r.Route("/message", func(r chi.Router) {
			r.Get("/{chatID}", h.GetMessages)
			r.With(msgLimit.Middleware).Post("/", h.SendMessage)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Post("/", h.CreateNotification)
			r.Put("/read-all", h.MarkAllNotificationsRead)
			r.Put("/{id}/read", h.MarkNotificationRead)
			r.Delete("/{id}", h.DeleteNotification)
		})
	})

	return r
}
