package betting

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mhso/IntFar-sub002/internal/match"
)

// Store is the persistence the ledger needs.
type Store interface {
	Balance(ctx context.Context, discordID int64) (int, error)
	PlaceTicket(ctx context.Context, t *match.Ticket) error
	CancelTicket(ctx context.Context, ticketID string) (int, error)
	PendingTickets(ctx context.Context, game match.GameType, guildID string, until time.Time) ([]match.Ticket, error)
	HoldTickets(ctx context.Context, game match.GameType, guildID, matchID string, until time.Time) (int, error)
	ResolveTickets(ctx context.Context, matchID string, outcomes []match.BetOutcome) error
	EventFrequency(ctx context.Context, game match.GameType, eventID string) (float64, bool, error)
}

// Ledger owns every token balance mutation.
type Ledger struct {
	store  Store
	cutoff time.Duration

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewLedger creates a Ledger. Wagers placed cutoff or later into a match
// are rejected.
func NewLedger(store Store, cutoff time.Duration) *Ledger {
	return &Ledger{
		store:  store,
		cutoff: cutoff,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// Cutoff returns how long into a match betting stays open.
func (l *Ledger) Cutoff() time.Duration { return l.cutoff }

// lock acquires the balance locks of the given players in id order.
func (l *Ledger) lock(ids ...int64) func() {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var held []*sync.Mutex
	var prev int64
	for i, id := range sorted {
		if i > 0 && id == prev {
			continue
		}
		prev = id
		l.mu.Lock()
		m, ok := l.locks[id]
		if !ok {
			m = &sync.Mutex{}
			l.locks[id] = m
		}
		l.mu.Unlock()
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// Balance returns a player's token balance.
func (l *Ledger) Balance(ctx context.Context, discordID int64) (int, error) {
	return l.store.Balance(ctx, discordID)
}

// PlaceTicket validates and stores a group of wagers placed together,
// debiting the total stake. offset is how far into the active match the
// ticket is placed (0 when no match is running).
func (l *Ledger) PlaceTicket(ctx context.Context, r *Resolver, t match.Ticket, offset time.Duration) (*match.Ticket, error) {
	if len(t.Wagers) == 0 {
		return nil, fmt.Errorf("ticket has no wagers")
	}
	if offset > 0 && offset >= l.cutoff {
		return nil, match.ErrBettingClosed
	}
	for _, w := range t.Wagers {
		if w.Amount <= 0 {
			return nil, fmt.Errorf("wager amount must be positive")
		}
		if err := r.Validate(w.EventID, w.TargetID); err != nil {
			return nil, err
		}
	}

	t.ID = uuid.NewString()
	now := time.Now()
	for i := range t.Wagers {
		w := &t.Wagers[i]
		w.TicketID = t.ID
		w.DiscordID = t.DiscordID
		w.GuildID = t.GuildID
		w.Game = t.Game
		w.Offset = offset
		w.Result = match.WagerPending
		w.PlacedAt = now
	}

	unlock := l.lock(t.DiscordID)
	defer unlock()

	if err := l.store.PlaceTicket(ctx, &t); err != nil {
		return nil, fmt.Errorf("failed to place ticket: %w", err)
	}
	slog.Info("Placed ticket", "ticket", t.ID, "player", t.DiscordID, "wagers", len(t.Wagers), "stake", t.Stake())
	return &t, nil
}

// CancelTicket refunds every wager of a pending ticket as one unit.
func (l *Ledger) CancelTicket(ctx context.Context, t match.Ticket) (int, error) {
	unlock := l.lock(t.DiscordID)
	defer unlock()

	refund, err := l.store.CancelTicket(ctx, t.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel ticket %s: %w", t.ID, err)
	}
	return refund, nil
}

// CancelPending refunds the pending tickets of a guild placed no later than
// until. Used when a match ends without being scored.
func (l *Ledger) CancelPending(ctx context.Context, game match.GameType, guildID string, until time.Time) error {
	tickets, err := l.store.PendingTickets(ctx, game, guildID, until)
	if err != nil {
		return fmt.Errorf("failed to load pending tickets: %w", err)
	}
	for _, t := range tickets {
		if _, err := l.CancelTicket(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Hold sets aside the pending tickets of a match that could not be scored
// so a later match never resolves them. The stakes stay debited.
func (l *Ledger) Hold(ctx context.Context, game match.GameType, guildID, matchID string, until time.Time) (int, error) {
	n, err := l.store.HoldTickets(ctx, game, guildID, matchID, until)
	if err != nil {
		return 0, fmt.Errorf("failed to hold tickets for %s: %w", matchID, err)
	}
	if n > 0 {
		slog.Info("Held tickets", "game", game, "guild", guildID, "match", matchID, "tickets", n)
	}
	return n, nil
}

// Evaluate resolves the pending tickets of the match's guild placed no
// later than until. It reads odds from the store but writes nothing.
func (l *Ledger) Evaluate(ctx context.Context, r *Resolver, d *match.Data, awards match.AwardRecord, until time.Time) ([]match.BetOutcome, error) {
	tickets, err := l.store.PendingTickets(ctx, d.Game, d.GuildID, until)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending tickets: %w", err)
	}

	odds := make(map[string]float64)
	outcomes := make([]match.BetOutcome, 0, len(tickets))
	for _, t := range tickets {
		out := match.BetOutcome{
			TicketID:  t.ID,
			DiscordID: t.DiscordID,
			Won:       true,
			Wins:      make(map[int64]bool, len(t.Wagers)),
		}
		factors := make([]float64, 0, len(t.Wagers))

		for _, w := range t.Wagers {
			won, err := r.Resolve(w.EventID, w.TargetID, d, awards)
			if err != nil {
				return nil, fmt.Errorf("ticket %s: %w", t.ID, err)
			}
			out.Wins[w.ID] = won
			out.Won = out.Won && won

			o, ok := odds[w.EventID]
			if !ok {
				o, err = l.odds(ctx, r, d.Game, w.EventID)
				if err != nil {
					return nil, err
				}
				odds[w.EventID] = o
			}
			factors = append(factors, ReturnFactor(o, DecayRatio(w.Offset, l.cutoff), len(d.Players), w.Targeted()))
		}

		if out.Won {
			out.Payout = Payout(t.Stake(), factors...)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (l *Ledger) odds(ctx context.Context, r *Resolver, game match.GameType, eventID string) (float64, error) {
	e, ok := r.Event(eventID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", match.ErrUnknownEvent, eventID)
	}
	freq, seen, err := l.store.EventFrequency(ctx, game, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to get frequency of %s: %w", eventID, err)
	}
	return Odds(freq, seen, e.BaseRate), nil
}

// Commit applies resolved outcomes in one transaction: wagers are marked
// won or lost and payouts credited.
func (l *Ledger) Commit(ctx context.Context, matchID string, outcomes []match.BetOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(outcomes))
	for _, o := range outcomes {
		ids = append(ids, o.DiscordID)
	}
	unlock := l.lock(ids...)
	defer unlock()

	if err := l.store.ResolveTickets(ctx, matchID, outcomes); err != nil {
		return fmt.Errorf("failed to resolve tickets for %s: %w", matchID, err)
	}
	return nil
}
