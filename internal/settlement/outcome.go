package settlement

import "github.com/solspore/gaming/internal/domain"

// OutcomePolicy decides the winning side of an expired market. The policy
// is pluggable so an oracle or manual-resolution feed can replace the
// default without touching the sweep.
type OutcomePolicy interface {
	Decide(m domain.Market, bets []domain.Bet) domain.Outcome
}

// StakeLeaderPolicy resolves a market in favour of the side holding the
// larger stake. Ties resolve to yes.
type StakeLeaderPolicy struct{}

// Decide returns yes when the yes side carries at least as much stake as
// the no side.
func (StakeLeaderPolicy) Decide(m domain.Market, _ []domain.Bet) domain.Outcome {
	if m.YesStake >= m.NoStake {
		return domain.OutcomeYes
	}
	return domain.OutcomeNo
}

// Compile-time interface check.
var _ OutcomePolicy = StakeLeaderPolicy{}
