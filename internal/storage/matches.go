package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mhso/IntFar-sub002/internal/match"
)

// Match operations

// MatchExists reports whether the match was already saved
func (r *Repository) MatchExists(ctx context.Context, game match.GameType, matchID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE game = ? AND match_id = ?`,
		game, matchID,
	).Scan(&n)
	return n > 0, err
}

// SaveMatch stores a scored match with its stats, awards and events, and
// updates streaks, all in one transaction. Returns match.ErrDuplicate when
// the match already exists.
func (r *Repository) SaveMatch(ctx context.Context, res *match.Result) error {
	if res.Data == nil {
		return fmt.Errorf("match %s has no data", res.MatchID)
	}
	d := res.Data

	return r.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM matches WHERE game = ? AND match_id = ?`, res.Game, res.MatchID,
		).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return match.ErrDuplicate
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO matches (game, match_id, guild_id, started_at, duration_seconds, mode, map, outcome)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			res.Game, res.MatchID, res.GuildID, d.StartTime, int64(d.Duration.Seconds()), d.Mode, d.Map, int(d.Outcome),
		); err != nil {
			return fmt.Errorf("failed to insert match: %w", err)
		}

		for _, p := range d.Players {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO participants (game, match_id, discord_id, account_id, kills, deaths, assists, resources)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				res.Game, res.MatchID, p.DiscordID, p.AccountID, p.Kills, p.Deaths, p.Assists, p.Resources,
			); err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
			for stat, value := range allStats(p) {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO participant_stats (game, match_id, discord_id, stat, value) VALUES (?, ?, ?, ?, ?)`,
					res.Game, res.MatchID, p.DiscordID, stat, value,
				); err != nil {
					return fmt.Errorf("failed to insert stat %s: %w", stat, err)
				}
			}
			if err := updateStreak(ctx, tx, res.Game, p.DiscordID, d.Outcome); err != nil {
				return err
			}
		}

		if res.Awards != nil {
			if a := res.Awards.Negative; a != nil {
				if err := insertAward(ctx, tx, res, "intfar", *a); err != nil {
					return err
				}
			}
			for _, a := range res.Awards.Highlights {
				if err := insertAward(ctx, tx, res, "doinks", a); err != nil {
					return err
				}
			}
		}

		for _, e := range res.Events {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO match_events (game, match_id, event_id) VALUES (?, ?, ?)`,
				res.Game, res.MatchID, e,
			); err != nil {
				return fmt.Errorf("failed to insert event %s: %w", e, err)
			}
		}
		return nil
	})
}

func allStats(p match.PlayerStats) map[string]float64 {
	out := make(map[string]float64, len(p.Stats)+4)
	for k, v := range p.Stats {
		out[k] = v
	}
	for _, k := range []string{match.StatKills, match.StatDeaths, match.StatAssists, match.StatResources} {
		out[k] = p.Stat(k)
	}
	return out
}

func insertAward(ctx context.Context, tx *sql.Tx, res *match.Result, kind string, a match.Award) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO awards (game, match_id, discord_id, kind, criteria, points) VALUES (?, ?, ?, ?, ?, ?)`,
		res.Game, res.MatchID, a.DiscordID, kind, a.Criteria, a.Points,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s award: %w", kind, err)
	}
	return nil
}

func updateStreak(ctx context.Context, tx *sql.Tx, game match.GameType, discordID int64, outcome match.Outcome) error {
	var current, length int
	err := tx.QueryRowContext(ctx,
		`SELECT outcome, length FROM streaks WHERE game = ? AND discord_id = ?`, game, discordID,
	).Scan(&current, &length)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		length = 1
	case err != nil:
		return err
	case match.Outcome(current) == outcome:
		length++
	default:
		length = 1
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO streaks (game, discord_id, outcome, length) VALUES (?, ?, ?, ?)
		 ON CONFLICT(game, discord_id) DO UPDATE SET outcome = excluded.outcome, length = excluded.length`,
		game, discordID, int(outcome), length,
	)
	if err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}
	return nil
}

// GetStreak returns a player's current streak. The zero Streak means no
// saved matches.
func (r *Repository) GetStreak(ctx context.Context, game match.GameType, discordID int64) (Streak, error) {
	var s Streak
	var outcome int
	err := r.db.QueryRowContext(ctx,
		`SELECT outcome, length FROM streaks WHERE game = ? AND discord_id = ?`, game, discordID,
	).Scan(&outcome, &s.Length)
	if errors.Is(err, sql.ErrNoRows) {
		return Streak{}, nil
	}
	s.Outcome = match.Outcome(outcome)
	return s, err
}

// RecordMissedMatch adds a match to the missed-matches ledger. Recording
// the same match again is a no-op.
func (r *Repository) RecordMissedMatch(ctx context.Context, game match.GameType, matchID, guildID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO missed_matches (game, match_id, guild_id, missed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(game, match_id) DO NOTHING`,
		game, matchID, guildID, at,
	)
	return err
}

// MissedMatches lists the missed-matches ledger, oldest first
func (r *Repository) MissedMatches(ctx context.Context) ([]MissedMatch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game, match_id, guild_id, missed_at FROM missed_matches ORDER BY missed_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MissedMatch
	for rows.Next() {
		var m MissedMatch
		if err := rows.Scan(&m.Game, &m.MatchID, &m.GuildID, &m.MissedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// EventFrequency returns the share of saved matches in which the event
// happened. ok is false when the event has never happened.
func (r *Repository) EventFrequency(ctx context.Context, game match.GameType, eventID string) (float64, bool, error) {
	var total, seen int
	err := r.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM matches WHERE game = ?),
			(SELECT COUNT(*) FROM match_events WHERE game = ? AND event_id = ?)`,
		game, game, eventID,
	).Scan(&total, &seen)
	if err != nil {
		return 0, false, err
	}
	if total == 0 || seen == 0 {
		return 0, false, nil
	}
	return float64(seen) / float64(total), true, nil
}

// StatRecord returns the best value ever recorded for a stat and its
// holder. The earliest holder keeps a shared record.
func (r *Repository) StatRecord(ctx context.Context, game match.GameType, stat string, lowerIsBetter bool) (float64, int64, bool, error) {
	order := "DESC"
	if lowerIsBetter {
		order = "ASC"
	}
	var value float64
	var holder int64
	err := r.db.QueryRowContext(ctx,
		`SELECT s.value, s.discord_id
		 FROM participant_stats s
		 JOIN matches m ON m.game = s.game AND m.match_id = s.match_id
		 WHERE s.game = ? AND s.stat = ?
		 ORDER BY s.value `+order+`, m.saved_at ASC, m.rowid ASC
		 LIMIT 1`,
		game, stat,
	).Scan(&value, &holder)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, err
	}
	return value, holder, true, nil
}

// AwardCounts returns how many negative awards each player received in a
// game, highest first.
func (r *Repository) AwardCounts(ctx context.Context, game match.GameType) ([]AwardCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT discord_id, COUNT(*) FROM awards WHERE game = ? AND kind = 'intfar' GROUP BY discord_id`,
		game,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AwardCount
	for rows.Next() {
		var c AwardCount
		if err := rows.Scan(&c.DiscordID, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].DiscordID < out[j].DiscordID
	})
	return out, rows.Err()
}
