package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// StakeDelta is an atomic stake-accumulator update applied together with
// the recomputed odds in a single write.
type StakeDelta struct {
	Outcome Outcome
	Amount  float64
	YesOdds float64
	NoOdds  float64
}

// MarketStore persists markets.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	List(ctx context.Context, status MarketStatus, opts ListOpts) ([]Market, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]Market, error)
	// ListExpired returns open markets whose close time is before now.
	ListExpired(ctx context.Context, now time.Time) ([]Market, error)
	// ApplyStake atomically increments one stake accumulator and stores the
	// recomputed odds pair. Negative amounts reverse a prior addition.
	ApplyStake(ctx context.Context, id string, delta StakeDelta) (Market, error)
	// UpdateStatus transitions the market lifecycle state.
	UpdateStatus(ctx context.Context, id string, status MarketStatus) error
	// Settle marks the market settled with its result and settlement
	// reference in one write.
	Settle(ctx context.Context, id string, result Outcome, settlementRef string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	TotalStaked(ctx context.Context) (float64, error)
}

// BetStore persists bets.
type BetStore interface {
	// CreateWithStake records the bet and applies the market stake delta in
	// a single transaction, returning the updated market.
	CreateWithStake(ctx context.Context, b Bet, delta StakeDelta) (Market, error)
	ListActiveByMarket(ctx context.Context, marketID string) ([]Bet, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Bet, error)
	// SettleBet finalizes a bet's status/result/payout exactly once; a bet
	// that is already settled is not modified.
	SettleBet(ctx context.Context, id string, result BetResult, payout float64) error
	Count(ctx context.Context) (int64, error)
}

// TournamentStore persists tournaments.
type TournamentStore interface {
	Create(ctx context.Context, t Tournament) error
	GetByID(ctx context.Context, id string) (Tournament, error)
	List(ctx context.Context, typ TournamentType, opts ListOpts) ([]Tournament, error)
	Update(ctx context.Context, t Tournament) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByWallet(ctx context.Context, walletAddress string) (User, error)
	List(ctx context.Context, opts ListOpts) ([]User, error)
	UpdateRole(ctx context.Context, id string, role Role) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}
