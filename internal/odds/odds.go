// Package odds converts a market's stake distribution into published
// pari-mutuel odds. All functions are pure and safe for concurrent use;
// the caller is responsible for serializing the read-modify-write of the
// stake totals fed in.
package odds

import "math"

const (
	// MinOdds and MaxOdds bound every published odds value.
	MinOdds = 1.10
	MaxOdds = 10.00

	// DefaultOdds is used for a freshly created market with no stake.
	DefaultOdds = 2.00

	// DefaultMargin is the platform edge subtracted from fair odds.
	DefaultMargin = 0.05
)

// Compute derives the yes/no odds pair from the accumulated stake on each
// side. A side with zero stake is treated as holding 1 unit for the ratio
// only, so a one-sided book produces clamped extremes instead of dividing
// by zero. Results are clamped to [MinOdds, MaxOdds] and rounded half-up
// to two decimals.
func Compute(yesStake, noStake, margin float64) (yesOdds, noOdds float64) {
	ys := math.Max(yesStake, 0)
	ns := math.Max(noStake, 0)
	if ys == 0 {
		ys = 1
	}
	if ns == 0 {
		ns = 1
	}
	total := ys + ns

	yesOdds = round2(clamp(1.0 / (ys / total) * (1 - margin)))
	noOdds = round2(clamp(1.0 / (ns / total) * (1 - margin)))
	return yesOdds, noOdds
}

func clamp(v float64) float64 {
	return math.Max(MinOdds, math.Min(MaxOdds, v))
}

// round2 rounds half-up at the cent. math.Round rounds half away from
// zero, which is identical for the positive values produced by clamp.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
