package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/locolive/chat-engine/internal/auth"
	"github.com/locolive/chat-engine/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	chatHandler    *ChatHandler
	profileHandler *ProfileHandler
	healthHandler  *HealthHandler
	jwtManager     *auth.JWTManager
	corsOrigins    []string
	logger         *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	chatHandler *ChatHandler,
	profileHandler *ProfileHandler,
	healthHandler *HealthHandler,
	jwtManager *auth.JWTManager,
	corsOrigins []string,
	logger *zap.Logger,
) *Router {
	return &Router{
		chatHandler:    chatHandler,
		profileHandler: profileHandler,
		healthHandler:  healthHandler,
		jwtManager:     jwtManager,
		corsOrigins:    corsOrigins,
		logger:         logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware(rt.corsOrigins))

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.healthHandler.Health)
		r.Get("/ready", rt.healthHandler.Ready)
		r.Get("/live", rt.healthHandler.Live)
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(rt.jwtManager))

		// The session socket is long-lived; keep it out of response compression
		r.Get("/ws", rt.chatHandler.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(5))

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", rt.profileHandler.GetMe)
				r.Put("/", rt.profileHandler.UpdateMe)
			})

			r.Route("/chats", func(r chi.Router) {
				r.Post("/", rt.chatHandler.CreateChat)
				r.Get("/", rt.chatHandler.GetChats)
				r.Post("/direct", rt.chatHandler.CreateDirectChat)
				r.Post("/group", rt.chatHandler.CreateGroupChat)
				r.Get("/groups", rt.chatHandler.GetCreatedGroups)

				r.Route("/{chatId}", func(r chi.Router) {
					r.Get("/", rt.chatHandler.GetChat)
					r.Patch("/", rt.chatHandler.RenameGroup)
					r.Delete("/", rt.chatHandler.DeleteChat)
					r.Put("/members", rt.chatHandler.AddMembers)
					r.Delete("/members/{userId}", rt.chatHandler.RemoveMember)
					r.Post("/leave", rt.chatHandler.LeaveGroup)
				})
			})
		})
	})

	return r
}
