package award

import "github.com/mhso/IntFar-sub002/internal/match"

// ValueFunc extracts a comparable value from a stat line.
type ValueFunc func(p match.PlayerStats, d *match.Data) float64

// Stat returns a ValueFunc reading a named stat.
func Stat(name string) ValueFunc {
	return func(p match.PlayerStats, _ *match.Data) float64 { return p.Stat(name) }
}

// Lowest returns the players tied for the lowest value.
func Lowest(d *match.Data, value ValueFunc) ([]int64, float64) {
	return extreme(d, value, func(a, b float64) bool { return a < b })
}

// Highest returns the players tied for the highest value.
func Highest(d *match.Data, value ValueFunc) ([]int64, float64) {
	return extreme(d, value, func(a, b float64) bool { return a > b })
}

func extreme(d *match.Data, value ValueFunc, better func(a, b float64) bool) ([]int64, float64) {
	var (
		ids  []int64
		best float64
	)
	for i, p := range d.Players {
		v := value(p, d)
		switch {
		case i == 0 || better(v, best):
			best = v
			ids = []int64{p.DiscordID}
		case v == best:
			ids = append(ids, p.DiscordID)
		}
	}
	return ids, best
}

// LowestBelow qualifies the players tied for the lowest value when that
// value is strictly below threshold. when, if set, must also hold for the
// match.
func LowestBelow(name string, value ValueFunc, threshold float64, when func(d *match.Data) bool) Criterion {
	return Criterion{
		Name: name,
		Evaluate: func(d *match.Data) (Qualification, bool) {
			if when != nil && !when(d) {
				return Qualification{}, false
			}
			ids, v := Lowest(d, value)
			if len(ids) == 0 || v >= threshold {
				return Qualification{}, false
			}
			return Qualification{Players: ids, Value: v}, true
		},
	}
}

// HighestAbove qualifies the players tied for the highest value when that
// value is strictly above threshold.
func HighestAbove(name string, value ValueFunc, threshold float64, when func(d *match.Data) bool) Criterion {
	return Criterion{
		Name: name,
		Evaluate: func(d *match.Data) (Qualification, bool) {
			if when != nil && !when(d) {
				return Qualification{}, false
			}
			ids, v := Highest(d, value)
			if len(ids) == 0 || v <= threshold {
				return Qualification{}, false
			}
			return Qualification{Players: ids, Value: v}, true
		},
	}
}

// AtLeast builds a highlight met when value >= threshold.
func AtLeast(name string, value ValueFunc, threshold float64) Highlight {
	return Highlight{
		Name: name,
		Met: func(p match.PlayerStats, d *match.Data) bool {
			return value(p, d) >= threshold
		},
	}
}
