package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/solspore/gaming/internal/domain"
	"github.com/solspore/gaming/internal/server/middleware"
	"github.com/solspore/gaming/internal/service"
)

// UserService defines the methods that the auth and admin handlers require
// from the service layer.
type UserService interface {
	Register(ctx context.Context, req service.RegisterRequest) (domain.User, string, error)
	Login(ctx context.Context, username, password string) (domain.User, string, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	ListUsers(ctx context.Context, opts domain.ListOpts) ([]domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	DeleteUser(ctx context.Context, id string) error
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	Stats(ctx context.Context) (domain.PlatformStats, error)
}

// AuthHandler serves registration, login, and identity endpoints.
type AuthHandler struct {
	users  UserService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// sessionResponse returns a user together with a fresh session token.
type sessionResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates a credentialed account.
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.users.Register(r.Context(), service.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

// Login verifies credentials and returns a session token.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

// Me returns the authenticated caller's user record.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	user, err := h.users.GetUser(r.Context(), identity.UserID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
