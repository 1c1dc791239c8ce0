package odds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		yesStake  float64
		noStake   float64
		margin    float64
		wantYes   float64
		wantNo    float64
	}{
		{
			name:     "balanced-book",
			yesStake: 100,
			noStake:  100,
			margin:   DefaultMargin,
			// 1/(0.5) * 0.95 = 1.90 on both sides, no clamping.
			wantYes: 1.90,
			wantNo:  1.90,
		},
		{
			name:     "one-sided-book-clamps-both-ends",
			yesStake: 100,
			noStake:  0, // treated as 1 for the ratio
			margin:   DefaultMargin,
			wantYes:  MinOdds,
			wantNo:   MaxOdds,
		},
		{
			name:     "heavy-favourite",
			yesStake: 300,
			noStake:  100,
			margin:   DefaultMargin,
			// yes: 1/(0.75)*0.95 = 1.2667 -> 1.27; no: 1/(0.25)*0.95 = 3.80
			wantYes: 1.27,
			wantNo:  3.80,
		},
		{
			name:     "zero-margin-fair-odds",
			yesStake: 100,
			noStake:  100,
			margin:   0,
			wantYes:  2.00,
			wantNo:   2.00,
		},
		{
			name:     "both-zero-uses-unit-floor",
			yesStake: 0,
			noStake:  0,
			margin:   DefaultMargin,
			wantYes:  1.90,
			wantNo:   1.90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotYes, gotNo := Compute(tt.yesStake, tt.noStake, tt.margin)
			assert.InDelta(t, tt.wantYes, gotYes, 1e-9)
			assert.InDelta(t, tt.wantNo, gotNo, 1e-9)
		})
	}
}

func TestComputeBounds(t *testing.T) {
	// Odds must stay in [MinOdds, MaxOdds] for any stake distribution.
	stakes := []float64{0, 0.01, 1, 10, 100, 1_000, 50_000, 1_000_000}
	for _, ys := range stakes {
		for _, ns := range stakes {
			yes, no := Compute(ys, ns, DefaultMargin)
			require.GreaterOrEqual(t, yes, MinOdds, "yes odds below floor for %v/%v", ys, ns)
			require.LessOrEqual(t, yes, MaxOdds, "yes odds above cap for %v/%v", ys, ns)
			require.GreaterOrEqual(t, no, MinOdds, "no odds below floor for %v/%v", ys, ns)
			require.LessOrEqual(t, no, MaxOdds, "no odds above cap for %v/%v", ys, ns)
		}
	}
}

func TestComputeMonotonic(t *testing.T) {
	// Shrinking a side's relative share never decreases that side's odds.
	prev := 0.0
	for _, ys := range []float64{800, 400, 200, 100, 50, 25} {
		yes, _ := Compute(ys, 100, DefaultMargin)
		require.GreaterOrEqual(t, yes, prev, "yes odds regressed at yesStake=%v", ys)
		prev = yes
	}
}

func TestComputeSequenceFromFreshMarket(t *testing.T) {
	// Bet A: 100 on yes against an empty book pins the extremes.
	yes, no := Compute(100, 0, DefaultMargin)
	assert.Equal(t, MinOdds, yes)
	assert.Equal(t, MaxOdds, no)

	// Bet B: 100 on no rebalances toward ~1.9x/1.9x.
	yes, no = Compute(100, 100, DefaultMargin)
	assert.InDelta(t, 1.90, yes, 1e-9)
	assert.InDelta(t, 1.90, no, 1e-9)
}

func TestRound2HalfUp(t *testing.T) {
	// 1.125 and 1.375 are exact in binary, so the half-cent boundary is hit
	// precisely and must round up.
	assert.Equal(t, 1.13, round2(1.125))
	assert.Equal(t, 1.38, round2(1.375))
	assert.Equal(t, 1.12, round2(1.124))
}
