// Package service holds the business logic between the HTTP handlers and
// the stores.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solspore/gaming/internal/domain"
	"github.com/solspore/gaming/internal/odds"
)

// PlaceBetRequest carries everything needed to accept a wager. Odds, when
// set, pins the bet to the price the caller was quoted instead of the pair
// recomputed after the stake lands.
type PlaceBetRequest struct {
	MarketID      string
	WalletAddress string
	Outcome       domain.Outcome
	Stake         float64
	Odds          *float64
	PaymentRef    string
	ContractRef   *string
}

// BettingConfig bounds bet placement.
type BettingConfig struct {
	Margin         float64
	VerifyPayments bool
	RateLimit      int
	RateWindow     time.Duration
}

// BettingService accepts wagers: it checks preconditions in a fixed order,
// verifies the funding payment, resolves the bettor's identity, and writes
// the bet and the market stake update atomically.
type BettingService struct {
	markets domain.MarketStore
	bets    domain.BetStore
	users   domain.UserStore
	cache   domain.MarketCache
	limiter domain.RateLimiter
	bus     domain.SignalBus
	rail    domain.PaymentRail
	cfg     BettingConfig
	logger  *slog.Logger
}

// NewBettingService creates a BettingService with all required dependencies.
func NewBettingService(
	markets domain.MarketStore,
	bets domain.BetStore,
	users domain.UserStore,
	cache domain.MarketCache,
	limiter domain.RateLimiter,
	bus domain.SignalBus,
	rail domain.PaymentRail,
	cfg BettingConfig,
	logger *slog.Logger,
) *BettingService {
	if cfg.Margin <= 0 {
		cfg.Margin = odds.DefaultMargin
	}
	if cfg.RateLimit < 1 {
		cfg.RateLimit = 10
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	return &BettingService{
		markets: markets,
		bets:    bets,
		users:   users,
		cache:   cache,
		limiter: limiter,
		bus:     bus,
		rail:    rail,
		cfg:     cfg,
		logger:  logger,
	}
}

// PlaceBet accepts a wager and returns the recorded bet together with the
// market's updated odds. The bet is priced at the recomputed odds for its
// side, or at the caller-pinned quote when one is supplied.
//
// Preconditions are checked in a fixed order so the caller always sees the
// most fundamental failure first: market exists, close time, market open,
// outcome, stake.
func (s *BettingService) PlaceBet(ctx context.Context, req PlaceBetRequest) (domain.Bet, domain.Market, error) {
	wallet := strings.TrimSpace(req.WalletAddress)
	if wallet == "" || strings.TrimSpace(req.PaymentRef) == "" {
		return domain.Bet{}, domain.Market{}, fmt.Errorf("betting_service: wallet and payment reference required: %w", domain.ErrMissingFields)
	}

	allowed, err := s.limiter.Allow(ctx, "bets:"+wallet, s.cfg.RateLimit, s.cfg.RateWindow)
	if err != nil {
		return domain.Bet{}, domain.Market{}, fmt.Errorf("betting_service: rate limiter: %w", err)
	}
	if !allowed {
		return domain.Bet{}, domain.Market{}, domain.ErrRateLimited
	}

	market, err := s.loadMarket(ctx, req.MarketID)
	if err != nil {
		return domain.Bet{}, domain.Market{}, err
	}

	now := time.Now()
	if !market.CloseTime.After(now) {
		return domain.Bet{}, domain.Market{}, domain.ErrMarketClosed
	}
	if market.Status != domain.MarketStatusOpen {
		return domain.Bet{}, domain.Market{}, &domain.MarketUnavailableError{Status: market.Status}
	}
	if !req.Outcome.Valid() {
		return domain.Bet{}, domain.Market{}, domain.ErrInvalidOutcome
	}
	if req.Stake <= 0 {
		return domain.Bet{}, domain.Market{}, domain.ErrInvalidStake
	}

	if s.cfg.VerifyPayments {
		if err := s.rail.VerifyPayment(ctx, req.PaymentRef); err != nil {
			return domain.Bet{}, domain.Market{}, err
		}
	}

	user, err := s.resolveUser(ctx, wallet)
	if err != nil {
		return domain.Bet{}, domain.Market{}, err
	}

	yesStake := market.YesStake
	noStake := market.NoStake
	if req.Outcome == domain.OutcomeYes {
		yesStake += req.Stake
	} else {
		noStake += req.Stake
	}
	newYes, newNo := odds.Compute(yesStake, noStake, s.cfg.Margin)

	// The bet records the odds recomputed with its own stake included,
	// unless the caller pinned the quote it was shown.
	acceptedOdds := newYes
	if req.Outcome == domain.OutcomeNo {
		acceptedOdds = newNo
	}
	if req.Odds != nil && *req.Odds > 0 {
		acceptedOdds = *req.Odds
	}

	bet := domain.Bet{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		MarketID:     market.ID,
		TournamentID: market.TournamentID,
		Outcome:      req.Outcome,
		Stake:        req.Stake,
		Odds:         acceptedOdds,
		PlacedAt:     now,
		Status:       domain.BetStatusActive,
		PaymentRef:   req.PaymentRef,
		ContractRef:  req.ContractRef,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	updated, err := s.bets.CreateWithStake(ctx, bet, domain.StakeDelta{
		Outcome: req.Outcome,
		Amount:  req.Stake,
		YesOdds: newYes,
		NoOdds:  newNo,
	})
	if err != nil {
		// The stake was already funded on the rail; flag the failure so the
		// caller can reconcile the payment against the missing bet record.
		s.logger.ErrorContext(ctx, "bet persistence failed",
			slog.String("market_id", market.ID),
			slog.String("wallet", wallet),
			slog.String("payment_ref", req.PaymentRef),
			slog.String("error", err.Error()))
		return domain.Bet{}, domain.Market{}, fmt.Errorf("betting_service: %w: %s", domain.ErrBetPersistence, err)
	}

	if err := s.cache.Set(ctx, updated); err != nil {
		s.logger.WarnContext(ctx, "market cache refresh failed",
			slog.String("market_id", market.ID),
			slog.String("error", err.Error()))
	}
	s.publishOdds(ctx, updated)

	s.logger.InfoContext(ctx, "bet placed",
		slog.String("bet_id", bet.ID),
		slog.String("market_id", market.ID),
		slog.String("outcome", string(req.Outcome)),
		slog.Float64("stake", req.Stake),
		slog.Float64("odds", acceptedOdds),
	)
	return bet, updated, nil
}

// ListUserBets returns a user's bets by wallet address or user ID.
func (s *BettingService) ListUserBets(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Bet, error) {
	return s.bets.ListByUser(ctx, userID, opts)
}

// ListWalletBets resolves a wallet to its user and returns that user's
// bets. An unknown wallet has no bets.
func (s *BettingService) ListWalletBets(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.Bet, error) {
	user, err := s.users.GetByWallet(ctx, wallet)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.Bet{}, nil
		}
		return nil, err
	}
	return s.bets.ListByUser(ctx, user.ID, opts)
}

// loadMarket reads through the cache. Cache failures degrade to the store.
func (s *BettingService) loadMarket(ctx context.Context, id string) (domain.Market, error) {
	if m, hit, err := s.cache.Get(ctx, id); err == nil && hit {
		return m, nil
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Market{}, domain.ErrMarketNotFound
		}
		return domain.Market{}, err
	}
	return m, nil
}

// resolveUser finds the wallet's user, lazily creating a guest record on
// first contact. A concurrent create loses the race cleanly: the duplicate
// key maps to a re-read.
func (s *BettingService) resolveUser(ctx context.Context, wallet string) (domain.User, error) {
	user, err := s.users.GetByWallet(ctx, wallet)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	now := time.Now()
	suffix := wallet
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	guest := domain.User{
		ID:            uuid.New().String(),
		Username:      "guest_" + suffix,
		Email:         wallet + "@wallet.local",
		Role:          domain.RoleUser,
		WalletAddress: &wallet,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, guest); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return s.users.GetByWallet(ctx, wallet)
		}
		return domain.User{}, err
	}
	return guest, nil
}

// publishOdds pushes the market's fresh odds onto its channel. Best-effort.
func (s *BettingService) publishOdds(ctx context.Context, m domain.Market) {
	payload, err := json.Marshal(struct {
		Type     string  `json:"type"`
		MarketID string  `json:"marketId"`
		YesOdds  float64 `json:"yesOdds"`
		NoOdds   float64 `json:"noOdds"`
		YesStake float64 `json:"yesStake"`
		NoStake  float64 `json:"noStake"`
	}{
		Type:     "odds",
		MarketID: m.ID,
		YesOdds:  m.YesOdds,
		NoOdds:   m.NoOdds,
		YesStake: m.YesStake,
		NoStake:  m.NoStake,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, "ch:odds:"+m.ID, payload); err != nil {
		s.logger.WarnContext(ctx, "odds publish failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()))
	}
}
