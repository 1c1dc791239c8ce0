// Package server assembles the HTTP API: routes, middleware chain, and the
// WebSocket endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/solspore/gaming/internal/server/handler"
	"github.com/solspore/gaming/internal/server/middleware"
	"github.com/solspore/gaming/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Markets     *handler.MarketHandler
	Bets        *handler.BetHandler
	Tournaments *handler.TournamentHandler
	Auth        *handler.AuthHandler
	Admin       *handler.AdminHandler
	Leaderboard *handler.LeaderboardHandler
	Settlement  *handler.SettlementHandler
}

// Server is the HTTP + WebSocket API server for the wagering platform.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (session auth, logging, CORS) and attaches the
// WebSocket hub.
func NewServer(cfg Config, handlers Handlers, verifier middleware.TokenVerifier, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Auth endpoints.
	mux.HandleFunc("POST /api/auth/register", handlers.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", handlers.Auth.Login)
	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(handlers.Auth.Me))

	// Market endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)

	// Betting endpoints.
	mux.HandleFunc("POST /api/markets/{id}/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("GET /api/bets", handlers.Bets.ListBets)

	// Leaderboard.
	mux.HandleFunc("GET /api/leaderboard", handlers.Leaderboard.Leaderboard)

	// Tournament endpoints. Mutations are admin-only.
	mux.HandleFunc("GET /api/tournaments", handlers.Tournaments.ListTournaments)
	mux.HandleFunc("GET /api/tournaments/{id}", handlers.Tournaments.GetTournament)
	mux.HandleFunc("POST /api/tournaments", middleware.RequireAdmin(handlers.Tournaments.CreateTournament))
	mux.HandleFunc("PUT /api/tournaments/{id}", middleware.RequireAdmin(handlers.Tournaments.UpdateTournament))
	mux.HandleFunc("DELETE /api/tournaments/{id}", middleware.RequireAdmin(handlers.Tournaments.DeleteTournament))
	mux.HandleFunc("POST /api/tournaments/{id}/markets", middleware.RequireAdmin(handlers.Markets.CreateMarket))
	mux.HandleFunc("DELETE /api/tournaments/{id}/markets/{mid}", middleware.RequireAdmin(handlers.Markets.DeleteMarket))

	// Admin endpoints.
	mux.HandleFunc("GET /api/admin/users", middleware.RequireAdmin(handlers.Admin.ListUsers))
	mux.HandleFunc("PUT /api/admin/users/{id}", middleware.RequireAdmin(handlers.Admin.UpdateUser))
	mux.HandleFunc("DELETE /api/admin/users/{id}", middleware.RequireAdmin(handlers.Admin.DeleteUser))
	mux.HandleFunc("GET /api/admin/stats", middleware.RequireAdmin(handlers.Admin.Stats))
	mux.HandleFunc("POST /api/admin/settlement/sweep", middleware.RequireAdmin(handlers.Settlement.TriggerSweep))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Session(verifier)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
