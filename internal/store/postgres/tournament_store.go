package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solspore/gaming/internal/domain"
)

// TournamentStore implements domain.TournamentStore on PostgreSQL.
type TournamentStore struct {
	pool *pgxpool.Pool
}

// NewTournamentStore creates a TournamentStore backed by the given client.
func NewTournamentStore(client *Client) *TournamentStore {
	return &TournamentStore{pool: client.Pool()}
}

const tournamentColumns = `
	id, name, image, description, start_date, end_date, game, type,
	created_at, updated_at`

func scanTournament(row pgx.Row) (domain.Tournament, error) {
	var t domain.Tournament
	err := row.Scan(
		&t.ID, &t.Name, &t.Image, &t.Description, &t.StartDate, &t.EndDate,
		&t.Game, &t.Type, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// Create inserts a new tournament.
func (s *TournamentStore) Create(ctx context.Context, t domain.Tournament) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tournaments (
			id, name, image, description, start_date, end_date, game, type,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Name, t.Image, t.Description, t.StartDate, t.EndDate, t.Game, t.Type,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: create tournament %s: %w", t.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create tournament %s: %w", t.ID, err)
	}
	return nil
}

// GetByID fetches a tournament by primary key. Markets are left for the
// caller to attach.
func (s *TournamentStore) GetByID(ctx context.Context, id string) (domain.Tournament, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
	t, err := scanTournament(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tournament{}, fmt.Errorf("postgres: get tournament %s: %w", id, domain.ErrNotFound)
		}
		return domain.Tournament{}, fmt.Errorf("postgres: get tournament %s: %w", id, err)
	}
	return t, nil
}

// List returns tournaments, optionally filtered by type, soonest first.
func (s *TournamentStore) List(ctx context.Context, typ domain.TournamentType, opts domain.ListOpts) ([]domain.Tournament, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if typ == "" {
		rows, err = s.pool.Query(ctx,
			`SELECT `+tournamentColumns+` FROM tournaments
			 ORDER BY start_date ASC LIMIT $1 OFFSET $2`,
			limit, opts.Offset)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+tournamentColumns+` FROM tournaments WHERE type = $1
			 ORDER BY start_date ASC LIMIT $2 OFFSET $3`,
			typ, limit, opts.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: list tournaments: %w", err)
	}

	defer rows.Close()
	tournaments := make([]domain.Tournament, 0)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan tournament: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate tournaments: %w", err)
	}
	return tournaments, nil
}

// Update overwrites a tournament's mutable fields.
func (s *TournamentStore) Update(ctx context.Context, t domain.Tournament) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tournaments
		SET name = $1, image = $2, description = $3, start_date = $4,
		    end_date = $5, game = $6, type = $7, updated_at = NOW()
		WHERE id = $8`,
		t.Name, t.Image, t.Description, t.StartDate, t.EndDate, t.Game, t.Type, t.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: update tournament %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update tournament %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a tournament; the schema cascades to its markets.
func (s *TournamentStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete tournament %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete tournament %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Count returns the total number of tournaments.
func (s *TournamentStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tournaments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count tournaments: %w", err)
	}
	return n, nil
}
