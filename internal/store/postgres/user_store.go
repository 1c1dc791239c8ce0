package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solspore/gaming/internal/domain"
)

// UserStore implements domain.UserStore on PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a UserStore backed by the given client.
func NewUserStore(client *Client) *UserStore {
	return &UserStore{pool: client.Pool()}
}

const userColumns = `
	id, username, email, role, wallet_address, password_hash, salt,
	created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Role, &u.WalletAddress,
		&u.PasswordHash, &u.Salt, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// Create inserts a new user. Duplicate username, email or wallet address
// maps to domain.ErrAlreadyExists.
func (s *UserStore) Create(ctx context.Context, u domain.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (
			id, username, email, role, wallet_address, password_hash, salt,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Username, u.Email, u.Role, u.WalletAddress, u.PasswordHash, u.Salt,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: create user %s: %w", u.Username, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create user %s: %w", u.Username, err)
	}
	return nil
}

// GetByID fetches a user by primary key.
func (s *UserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	return s.getBy(ctx, "id", id)
}

// GetByUsername fetches a user by unique username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.getBy(ctx, "username", username)
}

// GetByWallet fetches a user by unique wallet address.
func (s *UserStore) GetByWallet(ctx context.Context, walletAddress string) (domain.User, error) {
	return s.getBy(ctx, "wallet_address", walletAddress)
}

func (s *UserStore) getBy(ctx context.Context, column, value string) (domain.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("postgres: get user by %s: %w", column, domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("postgres: get user by %s: %w", column, err)
	}
	return u, nil
}

// List returns users ordered by creation time.
func (s *UserStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.User, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 ORDER BY created_at ASC LIMIT $1 OFFSET $2`,
		limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}

	defer rows.Close()
	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate users: %w", err)
	}
	return users, nil
}

// UpdateRole changes a user's role.
func (s *UserStore) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`,
		role, id)
	if err != nil {
		return fmt.Errorf("postgres: update user %s role: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update user %s role: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a user.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete user %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Count returns the total number of users.
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count users: %w", err)
	}
	return n, nil
}

// Leaderboard aggregates settled bets per user and ranks by net winnings.
func (s *UserStore) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.username,
		       COUNT(b.id) AS bets_settled,
		       COALESCE(SUM(b.stake), 0) AS total_staked,
		       COALESCE(SUM(b.payout), 0) AS total_payout,
		       COALESCE(SUM(b.payout), 0) - COALESCE(SUM(b.stake), 0) AS net_winnings
		FROM users u
		JOIN bets b ON b.user_id = u.id AND b.status = $1
		GROUP BY u.id, u.username
		ORDER BY net_winnings DESC
		LIMIT $2`,
		domain.BetStatusSettled, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: leaderboard: %w", err)
	}

	defer rows.Close()
	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.BetsSettled,
			&e.TotalStaked, &e.TotalPayout, &e.NetWinnings); err != nil {
			return nil, fmt.Errorf("postgres: scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate leaderboard: %w", err)
	}
	return entries, nil
}
