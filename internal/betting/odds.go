package betting

import (
	"math"
	"time"
)

// Odds converts a historical frequency into a return multiplier. When the
// event has never happened the base rate is used instead.
func Odds(frequency float64, seen bool, baseRate float64) float64 {
	if seen && frequency > 0 {
		return 1 / frequency
	}
	if baseRate <= 0 {
		return 1
	}
	return 1 / baseRate
}

// DecayRatio scales the value of a wager placed offset into the match.
// Pre-match wagers keep full value; at or past the cutoff betting is closed
// and the ratio is 0.
func DecayRatio(offset, cutoff time.Duration) float64 {
	if offset <= 0 {
		return 1
	}
	if cutoff <= 0 || offset >= cutoff {
		return 0
	}
	return 1 - float64(offset)/float64(cutoff)
}

// ReturnFactor is the multiplier one wager contributes to its ticket.
// Targeted wagers are multiplied by the number of tracked players in the
// match.
func ReturnFactor(odds, decay float64, players int, targeted bool) float64 {
	f := odds * decay
	if targeted && players > 1 {
		f *= float64(players)
	}
	return f
}

// Payout returns the amount credited for a winning stake, never below 1.
func Payout(stake int, factors ...float64) int {
	v := float64(stake)
	for _, f := range factors {
		v *= f
	}
	p := int(math.Round(v))
	if p < 1 {
		return 1
	}
	return p
}
