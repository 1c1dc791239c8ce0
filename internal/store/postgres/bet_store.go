package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solspore/gaming/internal/domain"
)

// BetStore implements domain.BetStore on PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a BetStore backed by the given client.
func NewBetStore(client *Client) *BetStore {
	return &BetStore{pool: client.Pool()}
}

const betColumns = `
	id, user_id, market_id, tournament_id, outcome, stake, odds,
	placed_at, status, result, payout, payment_ref, contract_ref,
	created_at, updated_at`

const insertBetSQL = `
	INSERT INTO bets (
		id, user_id, market_id, tournament_id, outcome, stake, odds,
		placed_at, status, payment_ref, contract_ref, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func scanBet(row pgx.Row) (domain.Bet, error) {
	var (
		b      domain.Bet
		result *string
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.MarketID, &b.TournamentID, &b.Outcome, &b.Stake, &b.Odds,
		&b.PlacedAt, &b.Status, &result, &b.Payout, &b.PaymentRef, &b.ContractRef,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return domain.Bet{}, err
	}
	if result != nil {
		r := domain.BetResult(*result)
		b.Result = &r
	}
	return b, nil
}

// CreateWithStake inserts the bet and applies the market stake delta in a
// single transaction. Either both writes land or neither does.
func (s *BetStore) CreateWithStake(ctx context.Context, b domain.Bet, delta domain.StakeDelta) (domain.Market, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: begin bet tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	market, err := applyStake(ctx, tx, b.MarketID, delta)
	if err != nil {
		return domain.Market{}, err
	}

	if _, err := tx.Exec(ctx, insertBetSQL,
		b.ID, b.UserID, b.MarketID, b.TournamentID, b.Outcome, b.Stake, b.Odds,
		b.PlacedAt, b.Status, b.PaymentRef, b.ContractRef, b.CreatedAt, b.UpdatedAt,
	); err != nil {
		return domain.Market{}, fmt.Errorf("postgres: create bet %s: %w", b.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Market{}, fmt.Errorf("postgres: commit bet tx: %w", err)
	}
	return market, nil
}

// ListActiveByMarket returns the unsettled bets on a market.
func (s *BetStore) ListActiveByMarket(ctx context.Context, marketID string) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+betColumns+` FROM bets
		 WHERE market_id = $1 AND status = $2
		 ORDER BY placed_at ASC`,
		marketID, domain.BetStatusActive)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active bets for market %s: %w", marketID, err)
	}
	return collectBets(rows)
}

// ListByUser returns a user's bets, newest first.
func (s *BetStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Bet, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+betColumns+` FROM bets
		 WHERE user_id = $1
		 ORDER BY placed_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for user %s: %w", userID, err)
	}
	return collectBets(rows)
}

// SettleBet finalizes a bet exactly once. The status guard makes the
// write idempotent under settlement retries.
func (s *BetStore) SettleBet(ctx context.Context, id string, result domain.BetResult, payout float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bets
		SET status = $1, result = $2, payout = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		domain.BetStatusSettled, result, payout, id, domain.BetStatusActive)
	if err != nil {
		return fmt.Errorf("postgres: settle bet %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Already settled or missing; verify which.
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM bets WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: settle bet %s: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("postgres: settle bet %s: %w", id, domain.ErrNotFound)
		}
	}
	return nil
}

// Count returns the total number of bets.
func (s *BetStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count bets: %w", err)
	}
	return n, nil
}

func collectBets(rows pgx.Rows) ([]domain.Bet, error) {
	defer rows.Close()

	bets := make([]domain.Bet, 0)
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate bets: %w", err)
	}
	return bets, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
