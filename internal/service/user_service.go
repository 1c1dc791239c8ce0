package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solspore/gaming/internal/auth"
	"github.com/solspore/gaming/internal/domain"
)

// RegisterRequest carries the inputs for a credentialed signup.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// UserService handles registration, login, and the admin user surface.
type UserService struct {
	users       domain.UserStore
	tournaments domain.TournamentStore
	markets     domain.MarketStore
	bets        domain.BetStore
	tokens      *auth.TokenIssuer
	logger      *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(
	users domain.UserStore,
	tournaments domain.TournamentStore,
	markets domain.MarketStore,
	bets domain.BetStore,
	tokens *auth.TokenIssuer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:       users,
		tournaments: tournaments,
		markets:     markets,
		bets:        bets,
		tokens:      tokens,
		logger:      logger,
	}
}

// Register creates a credentialed user and returns it with a session token.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (domain.User, string, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || req.Password == "" {
		return domain.User{}, "", fmt.Errorf("user_service: username, email and password required: %w", domain.ErrMissingFields)
	}

	hash, salt, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("user_service: hash password: %w", err)
	}

	now := time.Now()
	user := domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		Role:         domain.RoleUser,
		PasswordHash: &hash,
		Salt:         &salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, "", err
	}

	token, err := s.tokens.Issue(domain.Identity{UserID: user.ID, Role: user.Role})
	if err != nil {
		return domain.User{}, "", fmt.Errorf("user_service: issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username))
	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh session
// token. Unknown usernames and wrong passwords both map to
// domain.ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, username, password string) (domain.User, string, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrUnauthorized
		}
		return domain.User{}, "", err
	}

	if user.PasswordHash == nil || user.Salt == nil ||
		!auth.VerifyPassword(password, *user.PasswordHash, *user.Salt) {
		return domain.User{}, "", domain.ErrUnauthorized
	}

	token, err := s.tokens.Issue(domain.Identity{UserID: user.ID, Role: user.Role})
	if err != nil {
		return domain.User{}, "", fmt.Errorf("user_service: issue token: %w", err)
	}
	return user, token, nil
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers returns users for the admin surface.
func (s *UserService) ListUsers(ctx context.Context, opts domain.ListOpts) ([]domain.User, error) {
	return s.users.List(ctx, opts)
}

// UpdateRole changes a user's role.
func (s *UserService) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return fmt.Errorf("user_service: unknown role %q: %w", role, domain.ErrMissingFields)
	}
	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user role updated",
		slog.String("user_id", id),
		slog.String("role", string(role)))
	return nil
}

// DeleteUser removes a user.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

// Leaderboard returns the top users ranked by net winnings over settled
// bets.
func (s *UserService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return s.users.Leaderboard(ctx, limit)
}

// Stats assembles the admin dashboard counters.
func (s *UserService) Stats(ctx context.Context) (domain.PlatformStats, error) {
	var stats domain.PlatformStats
	var err error

	if stats.Users, err = s.users.Count(ctx); err != nil {
		return domain.PlatformStats{}, err
	}
	if stats.Tournaments, err = s.tournaments.Count(ctx); err != nil {
		return domain.PlatformStats{}, err
	}
	if stats.Markets, err = s.markets.Count(ctx); err != nil {
		return domain.PlatformStats{}, err
	}
	if stats.Bets, err = s.bets.Count(ctx); err != nil {
		return domain.PlatformStats{}, err
	}
	if stats.TotalStaked, err = s.markets.TotalStaked(ctx); err != nil {
		return domain.PlatformStats{}, err
	}
	return stats, nil
}
