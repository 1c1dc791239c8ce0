package domain

import "time"

// Role gates access to administrative operations.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an identity record. Wallet-only bettors are created lazily by
// the bet ledger with no credentials; registered users carry a pbkdf2
// password hash and salt.
type User struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Email         string  `json:"email"`
	Role          Role    `json:"role"`
	WalletAddress *string `json:"walletAddress"`
	// PasswordHash and Salt are never serialized.
	PasswordHash *string   `json:"-"`
	Salt         *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the authenticated caller extracted from a session token.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the identity may perform admin-only operations.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// LeaderboardEntry is one row of the net-winnings leaderboard.
type LeaderboardEntry struct {
	UserID      string  `json:"userId"`
	Username    string  `json:"username"`
	BetsSettled int64   `json:"betsSettled"`
	TotalStaked float64 `json:"totalStaked"`
	TotalPayout float64 `json:"totalPayout"`
	NetWinnings float64 `json:"netWinnings"`
}

// PlatformStats is the admin dashboard summary.
type PlatformStats struct {
	Users       int64   `json:"users"`
	Tournaments int64   `json:"tournaments"`
	Markets     int64   `json:"markets"`
	Bets        int64   `json:"bets"`
	TotalStaked float64 `json:"totalStaked"`
}
