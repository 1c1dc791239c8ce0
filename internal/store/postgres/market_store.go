package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solspore/gaming/internal/domain"
)

// MarketStore implements domain.MarketStore on PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given client.
func NewMarketStore(client *Client) *MarketStore {
	return &MarketStore{pool: client.Pool()}
}

const marketColumns = `
	id, tournament_id, question, team_a, team_b, close_time,
	yes_odds, no_odds, yes_stake, no_stake,
	status, result, settlement_ref, created_at, updated_at`

func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m      domain.Market
		result *string
	)
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.Question, &m.TeamA, &m.TeamB, &m.CloseTime,
		&m.YesOdds, &m.NoOdds, &m.YesStake, &m.NoStake,
		&m.Status, &result, &m.SettlementRef, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	if result != nil {
		o := domain.Outcome(*result)
		m.Result = &o
	}
	return m, nil
}

// Create inserts a new market.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO markets (
			id, tournament_id, question, team_a, team_b, close_time,
			yes_odds, no_odds, yes_stake, no_stake, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.TournamentID, m.Question, m.TeamA, m.TeamB, m.CloseTime,
		m.YesOdds, m.NoOdds, m.YesStake, m.NoStake, m.Status, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: create market %s: %w", m.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

// GetByID fetches a market by primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, domain.ErrNotFound)
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// List returns markets, optionally filtered by status, newest first.
func (s *MarketStore) List(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = s.pool.Query(ctx,
			`SELECT `+marketColumns+` FROM markets
			 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, opts.Offset)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+marketColumns+` FROM markets WHERE status = $1
			 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			status, limit, opts.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	return collectMarkets(rows)
}

// ListByTournament returns every market attached to a tournament.
func (s *MarketStore) ListByTournament(ctx context.Context, tournamentID string) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketColumns+` FROM markets
		 WHERE tournament_id = $1 ORDER BY close_time ASC`,
		tournamentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets for tournament %s: %w", tournamentID, err)
	}
	return collectMarkets(rows)
}

// ListExpired returns open markets whose close time has passed.
func (s *MarketStore) ListExpired(ctx context.Context, now time.Time) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketColumns+` FROM markets
		 WHERE status = $1 AND close_time < $2
		 ORDER BY close_time ASC`,
		domain.MarketStatusOpen, now)
	if err != nil {
		return nil, fmt.Errorf("postgres: list expired markets: %w", err)
	}
	return collectMarkets(rows)
}

// ApplyStake increments one stake accumulator and stores the recomputed
// odds pair in a single UPDATE, returning the updated row.
func (s *MarketStore) ApplyStake(ctx context.Context, id string, delta domain.StakeDelta) (domain.Market, error) {
	return applyStake(ctx, s.pool, id, delta)
}

// querier covers both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func applyStake(ctx context.Context, q querier, id string, delta domain.StakeDelta) (domain.Market, error) {
	column := "no_stake"
	if delta.Outcome == domain.OutcomeYes {
		column = "yes_stake"
	}

	row := q.QueryRow(ctx, `
		UPDATE markets
		SET `+column+` = `+column+` + $1,
		    yes_odds = $2,
		    no_odds = $3,
		    updated_at = NOW()
		WHERE id = $4
		RETURNING `+marketColumns,
		delta.Amount, delta.YesOdds, delta.NoOdds, id)

	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, fmt.Errorf("postgres: apply stake to market %s: %w", id, domain.ErrNotFound)
		}
		return domain.Market{}, fmt.Errorf("postgres: apply stake to market %s: %w", id, err)
	}
	return m, nil
}

// UpdateStatus transitions the market lifecycle state.
func (s *MarketStore) UpdateStatus(ctx context.Context, id string, status domain.MarketStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("postgres: update market %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update market %s status: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Settle writes the result and settlement reference and moves the market
// to settled in one statement.
func (s *MarketStore) Settle(ctx context.Context, id string, result domain.Outcome, settlementRef string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE markets
		SET status = $1, result = $2, settlement_ref = $3, updated_at = NOW()
		WHERE id = $4`,
		domain.MarketStatusSettled, result, settlementRef, id)
	if err != nil {
		return fmt.Errorf("postgres: settle market %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: settle market %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a market and, via cascade on the schema, nothing else.
func (s *MarketStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM markets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete market %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete market %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return n, nil
}

// TotalStaked returns the sum of both stake accumulators across all
// markets.
func (s *MarketStore) TotalStaked(ctx context.Context) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(yes_stake + no_stake), 0) FROM markets`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: total staked: %w", err)
	}
	return total, nil
}

func collectMarkets(rows pgx.Rows) ([]domain.Market, error) {
	defer rows.Close()

	markets := make([]domain.Market, 0)
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate markets: %w", err)
	}
	return markets, nil
}
