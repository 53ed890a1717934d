package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/yodateam/faceit-backend/internal/api/handlers"
	"github.com/yodateam/faceit-backend/internal/api/middleware"
	"github.com/yodateam/faceit-backend/internal/config"
	"github.com/yodateam/faceit-backend/internal/events"
	"github.com/yodateam/faceit-backend/internal/service"
)

func NewRouter(services *service.Services, hub *events.Hub, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Initialize handlers
	lobbyHandler := handlers.NewLobbyHandler(services.Lobby)
	matchHandler := handlers.NewMatchHandler(services.Accept, services.Draft)
	settlementHandler := handlers.NewSettlementHandler(services.Settlement)
	profileHandler := handlers.NewProfileHandler(services.Profile)
	wsHandler := handlers.NewWebSocketHandler(hub, cfg.JWTSecret)

	// WebSocket endpoint authenticates via query token
	r.Get("/ws", wsHandler.Handle)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/leaderboard", profileHandler.Leaderboard)
		r.Get("/players/{id}", profileHandler.Get)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", profileHandler.Me)
				r.Post("/register", profileHandler.Register)
			})

			r.Route("/lobbies", func(r chi.Router) {
				r.Get("/{mode}", lobbyHandler.List)
				r.Post("/{mode}/{index}/join", lobbyHandler.Join)
				r.Post("/{mode}/{index}/leave", lobbyHandler.Leave)
			})

			r.Route("/matches/{id}", func(r chi.Router) {
				r.Get("/", matchHandler.Get)
				r.Post("/accept", matchHandler.Accept)
				r.Post("/ban", matchHandler.Ban)
				r.Post("/pick", matchHandler.Pick)
				r.Post("/evidence", settlementHandler.Evidence)

				// Settlement controls
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdjudicator)
					r.Post("/confirm", settlementHandler.Confirm)
					r.Post("/cancel", settlementHandler.Cancel)
					r.Post("/nullify", settlementHandler.Nullify)
				})
			})
		})
	})

	return r
}
