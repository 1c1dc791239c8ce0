package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusOpen    MarketStatus = "open"
	MarketStatusClosed  MarketStatus = "closed"
	MarketStatusSettled MarketStatus = "settled"
)

// Outcome is one side of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Valid reports whether o is one of the two accepted outcomes.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Market is a single binary wager proposition tied to a match. Stake
// accumulators only grow while the market is open; result and the
// settlement reference are written exactly once by settlement.
type Market struct {
	ID            string       `json:"id"`
	TournamentID  string       `json:"tournamentId"`
	Question      string       `json:"question"`
	TeamA         string       `json:"teamA"`
	TeamB         string       `json:"teamB"`
	CloseTime     time.Time    `json:"closeTime"`
	YesOdds       float64      `json:"yesOdds"`
	NoOdds        float64      `json:"noOdds"`
	YesStake      float64      `json:"yesStake"`
	NoStake       float64      `json:"noStake"`
	Status        MarketStatus `json:"status"`
	Result        *Outcome     `json:"result"`
	SettlementRef *string      `json:"settlementRef"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}
