// Package betting resolves wagers against finished matches, prices them
// from historical frequency and commits balance changes.
package betting

import (
	"fmt"

	"github.com/mhso/IntFar-sub002/internal/award"
	"github.com/mhso/IntFar-sub002/internal/match"
)

// Kind selects the resolution strategy of an event.
type Kind int

const (
	// KindOutcome resolves on win, loss or tie.
	KindOutcome Kind = iota
	// KindNegative resolves on the negative award and its reasons.
	KindNegative
	// KindHighlight resolves on highlight awards and their reasons.
	KindHighlight
	// KindExtreme resolves on a unique leader of one stat.
	KindExtreme
)

// AnyReason matches an award regardless of which criteria were met.
const AnyReason = -1

// Event is a bettable event of one game.
type Event struct {
	ID          string
	Description string
	Kind        Kind
	Outcome     match.Outcome
	// Reason is a criterion bit index for award events, or AnyReason.
	Reason int
	// None inverts award events: the award was not given at all.
	None bool
	// Stat and Lowest configure extreme events.
	Stat   string
	Lowest bool
	// BaseRate is the assumed frequency before the event was ever seen.
	BaseRate float64
	// Targeted events may name a player; RequiresTarget events must.
	Targeted       bool
	RequiresTarget bool
}

// Resolver maps event ids of one game to resolution strategies.
type Resolver struct {
	events map[string]Event
	order  []string
}

// NewResolver creates a Resolver from an event table.
func NewResolver(events []Event) *Resolver {
	r := &Resolver{events: make(map[string]Event, len(events))}
	for _, e := range events {
		r.events[e.ID] = e
		r.order = append(r.order, e.ID)
	}
	return r
}

// Event looks up an event by id.
func (r *Resolver) Event(id string) (Event, bool) {
	e, ok := r.events[id]
	return e, ok
}

// Events returns all events in table order.
func (r *Resolver) Events() []Event {
	out := make([]Event, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.events[id])
	}
	return out
}

// Validate checks that a wager can be placed on the event.
func (r *Resolver) Validate(eventID string, target int64) error {
	e, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("%w: %s", match.ErrUnknownEvent, eventID)
	}
	if target != 0 && !e.Targeted {
		return fmt.Errorf("event %s cannot target a player", eventID)
	}
	if target == 0 && e.RequiresTarget {
		return fmt.Errorf("event %s requires a target player", eventID)
	}
	return nil
}

// Resolve reports whether the event happened. A targeted wager wins only if
// the target is the player who met the condition; an untargeted one wins if
// any player did. The result depends only on its arguments.
func (r *Resolver) Resolve(eventID string, target int64, d *match.Data, awards match.AwardRecord) (bool, error) {
	e, ok := r.events[eventID]
	if !ok {
		return false, fmt.Errorf("%w: %s", match.ErrUnknownEvent, eventID)
	}

	switch e.Kind {
	case KindOutcome:
		return d.Outcome == e.Outcome, nil

	case KindNegative:
		neg := awards.Negative
		if e.None {
			return neg == nil, nil
		}
		if neg == nil {
			return false, nil
		}
		if e.Reason != AnyReason && !neg.Met(e.Reason) {
			return false, nil
		}
		return target == 0 || neg.DiscordID == target, nil

	case KindHighlight:
		if e.None {
			return len(awards.Highlights) == 0, nil
		}
		for _, h := range awards.Highlights {
			if e.Reason != AnyReason && !h.Met(e.Reason) {
				continue
			}
			if target == 0 || h.DiscordID == target {
				return true, nil
			}
		}
		return false, nil

	case KindExtreme:
		var ids []int64
		if e.Lowest {
			ids, _ = award.Lowest(d, award.Stat(e.Stat))
		} else {
			ids, _ = award.Highest(d, award.Stat(e.Stat))
		}
		// Ties void the event.
		if len(ids) != 1 {
			return false, nil
		}
		return target == 0 || ids[0] == target, nil
	}

	return false, fmt.Errorf("event %s has unknown kind %d", eventID, e.Kind)
}

// Occurred lists the events that happened in the match, resolved
// untargeted. These feed the historical frequency of each event.
func (r *Resolver) Occurred(d *match.Data, awards match.AwardRecord) []string {
	var out []string
	for _, id := range r.order {
		ok, err := r.Resolve(id, 0, d, awards)
		if err == nil && ok {
			out = append(out, id)
		}
	}
	return out
}
