package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solspore/gaming/internal/domain"
	"github.com/solspore/gaming/internal/odds"
)

// CreateMarketRequest carries the admin inputs for a new market.
type CreateMarketRequest struct {
	TournamentID string
	Question     string
	TeamA        string
	TeamB        string
	CloseTime    time.Time
}

// MarketService serves market reads and admin market lifecycle writes.
type MarketService struct {
	markets     domain.MarketStore
	tournaments domain.TournamentStore
	cache       domain.MarketCache
	logger      *slog.Logger
}

// NewMarketService creates a MarketService.
func NewMarketService(
	markets domain.MarketStore,
	tournaments domain.TournamentStore,
	cache domain.MarketCache,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:     markets,
		tournaments: tournaments,
		cache:       cache,
		logger:      logger,
	}
}

// GetMarket returns a market by ID, reading through the cache.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	if m, hit, err := s.cache.Get(ctx, id); err == nil && hit {
		return m, nil
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, err
	}

	if err := s.cache.Set(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "market cache set failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()))
	}
	return m, nil
}

// ListMarkets returns markets, optionally filtered by status.
func (s *MarketService) ListMarkets(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	return s.markets.List(ctx, status, opts)
}

// CreateMarket creates an open market under a tournament with default
// even odds and zero stakes.
func (s *MarketService) CreateMarket(ctx context.Context, req CreateMarketRequest) (domain.Market, error) {
	if strings.TrimSpace(req.Question) == "" ||
		strings.TrimSpace(req.TeamA) == "" ||
		strings.TrimSpace(req.TeamB) == "" {
		return domain.Market{}, fmt.Errorf("market_service: question and teams required: %w", domain.ErrMissingFields)
	}
	if !req.CloseTime.After(time.Now()) {
		return domain.Market{}, fmt.Errorf("market_service: close time must be in the future: %w", domain.ErrMarketClosed)
	}

	// The parent tournament must exist.
	if _, err := s.tournaments.GetByID(ctx, req.TournamentID); err != nil {
		return domain.Market{}, err
	}

	now := time.Now()
	m := domain.Market{
		ID:           uuid.New().String(),
		TournamentID: req.TournamentID,
		Question:     req.Question,
		TeamA:        req.TeamA,
		TeamB:        req.TeamB,
		CloseTime:    req.CloseTime,
		YesOdds:      odds.DefaultOdds,
		NoOdds:       odds.DefaultOdds,
		Status:       domain.MarketStatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.markets.Create(ctx, m); err != nil {
		return domain.Market{}, err
	}

	s.logger.InfoContext(ctx, "market created",
		slog.String("market_id", m.ID),
		slog.String("tournament_id", m.TournamentID))
	return m, nil
}

// DeleteMarket removes a market and drops its cache entry.
func (s *MarketService) DeleteMarket(ctx context.Context, id string) error {
	if err := s.markets.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "market cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()))
	}
	return nil
}
