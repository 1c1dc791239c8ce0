package domain

import "time"

// BetStatus represents the lifecycle state of a bet.
type BetStatus string

const (
	BetStatusActive  BetStatus = "active"
	BetStatusSettled BetStatus = "settled"
)

// BetResult is the terminal win/loss outcome of a settled bet.
type BetResult string

const (
	BetResultWin  BetResult = "win"
	BetResultLoss BetResult = "loss"
)

// Bet is a wager recorded against a market at the odds in force when it
// was accepted. Outcome, stake, odds and the payment reference are
// immutable after creation; status/result/payout transition exactly once
// when the market settles.
type Bet struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	MarketID     string     `json:"marketId"`
	TournamentID string     `json:"tournamentId"`
	Outcome      Outcome    `json:"outcome"`
	Stake        float64    `json:"stake"`
	Odds         float64    `json:"odds"`
	PlacedAt     time.Time  `json:"placedAt"`
	Status       BetStatus  `json:"status"`
	Result       *BetResult `json:"result"`
	Payout       *float64   `json:"payout"`
	// PaymentRef is the payment-rail transaction signature that funded the
	// stake. Required at creation.
	PaymentRef string `json:"paymentRef"`
	// ContractRef is the (simulated) on-chain payout contract address, if
	// the caller deployed one.
	ContractRef *string   `json:"contractRef"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
