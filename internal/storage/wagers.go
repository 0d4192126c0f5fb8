package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mhso/IntFar-sub002/internal/match"
)

// Betting operations

func (r *Repository) ensureBalance(ctx context.Context, tx *sql.Tx, discordID int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO balances (discord_id, balance) VALUES (?, ?) ON CONFLICT(discord_id) DO NOTHING`,
		discordID, r.startingBalance,
	)
	return err
}

func addBalance(ctx context.Context, tx *sql.Tx, discordID int64, delta int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE balances SET balance = balance + ? WHERE discord_id = ?`, delta, discordID,
	)
	return err
}

// Balance returns a player's token balance. Players who never bet have the
// starting balance.
func (r *Repository) Balance(ctx context.Context, discordID int64) (int, error) {
	var balance int
	err := r.db.QueryRowContext(ctx,
		`SELECT balance FROM balances WHERE discord_id = ?`, discordID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return r.startingBalance, nil
	}
	return balance, err
}

// PlaceTicket debits the stake and stores the ticket with its wagers. Wager
// ids are filled in on success.
func (r *Repository) PlaceTicket(ctx context.Context, t *match.Ticket) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := r.ensureBalance(ctx, tx, t.DiscordID); err != nil {
			return err
		}
		var balance int
		if err := tx.QueryRowContext(ctx,
			`SELECT balance FROM balances WHERE discord_id = ?`, t.DiscordID,
		).Scan(&balance); err != nil {
			return err
		}
		if balance < t.Stake() {
			return fmt.Errorf("%w: have %d, need %d", match.ErrInsufficientFunds, balance, t.Stake())
		}
		if err := addBalance(ctx, tx, t.DiscordID, -t.Stake()); err != nil {
			return err
		}

		placed := time.Now()
		if len(t.Wagers) > 0 && !t.Wagers[0].PlacedAt.IsZero() {
			placed = t.Wagers[0].PlacedAt
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tickets (ticket_id, discord_id, guild_id, game, status, placed_at) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.DiscordID, t.GuildID, t.Game, ticketPending, placed,
		); err != nil {
			return fmt.Errorf("failed to insert ticket: %w", err)
		}

		for i := range t.Wagers {
			w := &t.Wagers[i]
			res, err := tx.ExecContext(ctx,
				`INSERT INTO wagers (ticket_id, event_id, target_id, amount, offset_ms, result) VALUES (?, ?, ?, ?, ?, ?)`,
				t.ID, w.EventID, w.TargetID, w.Amount, w.Offset.Milliseconds(), string(match.WagerPending),
			)
			if err != nil {
				return fmt.Errorf("failed to insert wager: %w", err)
			}
			if w.ID, err = res.LastInsertId(); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTicket returns a ticket with its wagers
func (r *Repository) GetTicket(ctx context.Context, ticketID string) (*match.Ticket, error) {
	tickets, err := r.tickets(ctx, `WHERE t.ticket_id = ?`, ticketID)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, match.ErrTicketNotFound
	}
	return &tickets[0], nil
}

// CancelTicket refunds the full stake of a pending ticket and returns it.
func (r *Repository) CancelTicket(ctx context.Context, ticketID string) (int, error) {
	var refund int
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var discordID int64
		err := tx.QueryRowContext(ctx,
			`SELECT discord_id FROM tickets WHERE ticket_id = ? AND status = ?`, ticketID, ticketPending,
		).Scan(&discordID)
		if errors.Is(err, sql.ErrNoRows) {
			return match.ErrTicketNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount), 0) FROM wagers WHERE ticket_id = ?`, ticketID,
		).Scan(&refund); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tickets SET status = ? WHERE ticket_id = ?`, ticketCancelled, ticketID,
		); err != nil {
			return err
		}
		return addBalance(ctx, tx, discordID, refund)
	})
	return refund, err
}

// PendingTickets returns the unresolved tickets of a guild for one game
// placed no later than until, oldest first.
func (r *Repository) PendingTickets(ctx context.Context, game match.GameType, guildID string, until time.Time) ([]match.Ticket, error) {
	tickets, err := r.tickets(ctx, `WHERE t.game = ? AND t.guild_id = ? AND t.status = ?`, game, guildID, ticketPending)
	if err != nil {
		return nil, err
	}
	return placedBy(tickets, until), nil
}

// placedBy keeps the tickets placed no later than until. Placement times
// are compared in Go since SQLite orders timestamps as text.
func placedBy(tickets []match.Ticket, until time.Time) []match.Ticket {
	out := tickets[:0]
	for _, t := range tickets {
		if !t.PlacedAt().After(until) {
			out = append(out, t)
		}
	}
	return out
}

// HoldTickets moves the pending tickets of a guild placed no later than
// until to held and binds them to matchID. It returns how many were held.
func (r *Repository) HoldTickets(ctx context.Context, game match.GameType, guildID, matchID string, until time.Time) (int, error) {
	pending, err := r.PendingTickets(ctx, game, guildID, until)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	held := 0
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		for _, t := range pending {
			res, err := tx.ExecContext(ctx,
				`UPDATE tickets SET status = ?, match_id = ? WHERE ticket_id = ? AND status = ?`,
				ticketHeld, matchID, t.ID, ticketPending,
			)
			if err != nil {
				return fmt.Errorf("failed to hold ticket %s: %w", t.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				held++
			}
		}
		return nil
	})
	return held, err
}

// HeldTickets returns the held tickets of a guild, oldest first.
func (r *Repository) HeldTickets(ctx context.Context, guildID string) ([]match.Ticket, error) {
	return r.tickets(ctx, `WHERE t.guild_id = ? AND t.status = ?`, guildID, ticketHeld)
}

func (r *Repository) tickets(ctx context.Context, where string, args ...interface{}) ([]match.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.ticket_id, t.discord_id, t.guild_id, t.game, COALESCE(t.match_id, ''), t.placed_at,
			w.id, w.event_id, w.target_id, w.amount, w.offset_ms, w.result
		 FROM tickets t
		 JOIN wagers w ON w.ticket_id = t.ticket_id
		 `+where+`
		 ORDER BY t.placed_at, t.ticket_id, w.id`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []match.Ticket
	index := make(map[string]int)
	for rows.Next() {
		var t match.Ticket
		var w match.Wager
		var offsetMS int64
		if err := rows.Scan(&t.ID, &t.DiscordID, &t.GuildID, &t.Game, &t.MatchID, &w.PlacedAt,
			&w.ID, &w.EventID, &w.TargetID, &w.Amount, &offsetMS, &w.Result); err != nil {
			return nil, err
		}
		w.TicketID = t.ID
		w.DiscordID = t.DiscordID
		w.GuildID = t.GuildID
		w.Game = t.Game
		w.Offset = time.Duration(offsetMS) * time.Millisecond

		i, ok := index[t.ID]
		if !ok {
			i = len(out)
			index[t.ID] = i
			out = append(out, t)
		}
		out[i].Wagers = append(out[i].Wagers, w)
	}
	return out, rows.Err()
}

// ResolveTickets marks tickets won or lost for a match and credits the
// payouts. Tickets no longer pending are skipped, so a match cannot pay
// twice.
func (r *Repository) ResolveTickets(ctx context.Context, matchID string, outcomes []match.BetOutcome) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, o := range outcomes {
			status, payout := ticketLost, 0
			if o.Won {
				status, payout = ticketWon, o.Payout
			}
			res, err := tx.ExecContext(ctx,
				`UPDATE tickets SET status = ?, match_id = ?, payout = ? WHERE ticket_id = ? AND status = ?`,
				status, matchID, payout, o.TicketID, ticketPending,
			)
			if err != nil {
				return fmt.Errorf("failed to resolve ticket %s: %w", o.TicketID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				continue
			}

			for id, won := range o.Wins {
				result := match.WagerLost
				if won {
					result = match.WagerWon
				}
				if _, err := tx.ExecContext(ctx,
					`UPDATE wagers SET result = ? WHERE id = ? AND ticket_id = ?`, string(result), id, o.TicketID,
				); err != nil {
					return err
				}
			}
			if payout > 0 {
				if err := addBalance(ctx, tx, o.DiscordID, payout); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
