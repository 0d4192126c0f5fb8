// Package award decides who receives the negative award (Int-Far) and the
// highlight awards (Doinks) for a finished match.
package award

import (
	"sort"
	"strings"

	"github.com/mhso/IntFar-sub002/internal/match"
)

// Qualification is the set of tied players meeting a criterion together
// with the stat value that qualified them.
type Qualification struct {
	Players []int64
	Value   float64
}

// Criterion is one independent negative-award rule. Evaluate sees every
// tracked player of the match and reports false when no one qualifies.
type Criterion struct {
	Name     string
	Evaluate func(d *match.Data) (Qualification, bool)
}

// Highlight is one highlight-award rule, evaluated per player.
type Highlight struct {
	Name string
	Met  func(p match.PlayerStats, d *match.Data) bool
}

// Qualifier evaluates a fixed, ordered rule set for one game.
type Qualifier struct {
	criteria   []Criterion
	highlights []Highlight
}

// New creates a Qualifier. The order of the slices fixes the bit positions
// of the criteria bitstrings.
func New(criteria []Criterion, highlights []Highlight) *Qualifier {
	return &Qualifier{criteria: criteria, highlights: highlights}
}

// Criteria returns the negative-award criteria in bit order.
func (q *Qualifier) Criteria() []Criterion { return q.criteria }

// Highlights returns the highlight rules in bit order.
func (q *Qualifier) Highlights() []Highlight { return q.highlights }

// Evaluate computes the award record of a match. It is a pure function of
// the match data.
func (q *Qualifier) Evaluate(d *match.Data) match.AwardRecord {
	record := match.AwardRecord{Values: make(map[int]float64)}
	record.Negative = q.negative(d, record.Values)
	record.Highlights = q.highlightAwards(d)
	return record
}

func (q *Qualifier) negative(d *match.Data, values map[int]float64) *match.Award {
	points := make(map[int64]int)
	bits := make(map[int64][]byte)

	for i, c := range q.criteria {
		qual, ok := c.Evaluate(d)
		if !ok || len(qual.Players) == 0 {
			continue
		}
		values[i] = qual.Value
		for _, id := range qual.Players {
			if _, seen := bits[id]; !seen {
				bits[id] = []byte(strings.Repeat("0", len(q.criteria)))
			}
			if bits[id][i] == '1' {
				continue
			}
			bits[id][i] = '1'
			points[id]++
		}
	}

	if len(points) == 0 {
		return nil
	}

	candidates := make([]int64, 0, len(points))
	best := 0
	for id, p := range points {
		if p > best {
			best = p
			candidates = candidates[:0]
		}
		if p == best {
			candidates = append(candidates, id)
		}
	}

	winner := breakTie(d, candidates)
	return &match.Award{
		DiscordID: winner,
		Criteria:  string(bits[winner]),
		Points:    points[winner],
	}
}

// breakTie orders tied candidates by most deaths, then least resources.
// The Discord id settles what remains so the order is total.
func breakTie(d *match.Data, candidates []int64) int64 {
	sort.Slice(candidates, func(i, j int) bool {
		a, _ := d.Player(candidates[i])
		b, _ := d.Player(candidates[j])
		if a.Deaths != b.Deaths {
			return a.Deaths > b.Deaths
		}
		if a.Resources != b.Resources {
			return a.Resources < b.Resources
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}

func (q *Qualifier) highlightAwards(d *match.Data) []match.Award {
	var awards []match.Award
	for _, p := range d.Players {
		bits := []byte(strings.Repeat("0", len(q.highlights)))
		count := 0
		for i, h := range q.highlights {
			if h.Met(p, d) {
				bits[i] = '1'
				count++
			}
		}
		if count > 0 {
			awards = append(awards, match.Award{
				DiscordID: p.DiscordID,
				Criteria:  string(bits),
				Points:    count,
			})
		}
	}
	return awards
}
