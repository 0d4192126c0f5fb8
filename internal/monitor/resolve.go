package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mhso/IntFar-sub002/internal/game"
	"github.com/mhso/IntFar-sub002/internal/match"
)

var errUnavailable = errors.New("match details not available")

// resolve drives a finished match to a terminal status. players are the
// guild's voice players; participants are the ones seen in the match.
func (m *Monitor) resolve(guildID, matchID string, started, ended time.Time, players, participants []match.Player) *match.Result {
	ctx := m.ctx
	res := &match.Result{
		Game:    m.module.Type(),
		GuildID: guildID,
		MatchID: matchID,
		EndedAt: ended,
	}

	var tokens map[string]string
	if tc, ok := m.tokenClient(); ok {
		id, consumed, err := m.converge(ctx, tc, participants)
		if err != nil {
			res.Status = match.StatusMissing
			res.Err = err
			if res.MatchID == "" {
				res.MatchID = provisionalID(guildID, started)
			}
			return res
		}
		res.MatchID = id
		tokens = consumed
		if m.isConsumed(id) {
			res.Status = match.StatusDuplicate
			m.consume(tokens)
			return res
		}
		defer m.consume(tokens)
	}
	if res.MatchID == "" {
		res.Status = match.StatusMissing
		res.Err = fmt.Errorf("match id never observed")
		res.MatchID = provisionalID(guildID, started)
		return res
	}

	ok, err := m.claims.Claim(ctx, res.Game, res.MatchID)
	if err != nil {
		// fall back on the store's existence check
		slog.Warn("Failed to claim match", "game", res.Game, "match", res.MatchID, "error", err)
		ok = true
	}
	if !ok {
		res.Status = match.StatusDuplicate
		return res
	}
	exists, err := m.store.MatchExists(ctx, res.Game, res.MatchID)
	if err != nil {
		res.Status = match.StatusError
		res.Err = fmt.Errorf("failed to check match: %w", err)
		m.release(res)
		return res
	}
	if exists {
		res.Status = match.StatusDuplicate
		return res
	}

	d, err := m.fetch(ctx, res.MatchID, players)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			res.Status = match.StatusMissing
		case errors.Is(err, match.ErrMalformed):
			res.Status = match.StatusMalformed
		default:
			res.Status = match.StatusError
		}
		res.Err = err
		m.release(res)
		return res
	}
	d.GuildID = guildID
	d.TokensByAccount = tokens
	res.Data = d

	res.Status = m.classify(d)
	if !res.Status.Scored() {
		if err := m.ledger.CancelPending(ctx, res.Game, guildID, res.EndedAt); err != nil {
			slog.Error("Failed to cancel pending bets", "game", res.Game, "guild", guildID, "error", err)
		}
		return res
	}

	m.score(ctx, res)
	return res
}

func provisionalID(guildID string, started time.Time) string {
	return fmt.Sprintf("unresolved-%s-%d", guildID, started.Unix())
}

func (m *Monitor) release(res *match.Result) {
	if err := m.claims.Release(context.WithoutCancel(m.ctx), res.Game, res.MatchID); err != nil {
		slog.Warn("Failed to release match claim", "game", res.Game, "match", res.MatchID, "error", err)
	}
}

// classify checks the tracked player count before the game's own rules.
func (m *Monitor) classify(d *match.Data) match.Status {
	if len(d.Players) < 2 {
		return match.StatusSolo
	}
	return m.module.Classify(d, m.cfg.MinDuration)
}

// score runs awards, bets and records for an ok match and saves it.
func (m *Monitor) score(ctx context.Context, res *match.Result) {
	d := res.Data
	awards := m.module.Qualifier().Evaluate(d)
	res.Awards = &awards
	res.Events = m.module.Bets().Occurred(d, awards)
	res.Records = m.records(ctx, d)

	outcomes, err := m.ledger.Evaluate(ctx, m.module.Bets(), d, awards, res.EndedAt)
	if err != nil {
		slog.Error("Failed to resolve bets", "game", res.Game, "match", res.MatchID, "error", err)
		res.Err = fmt.Errorf("failed to resolve bets: %w", err)
		outcomes = nil
	}

	if err := m.store.SaveMatch(ctx, res); err != nil {
		if errors.Is(err, match.ErrDuplicate) {
			res.Status = match.StatusDuplicate
			res.Awards, res.Events, res.Records = nil, nil, nil
			return
		}
		// Bets are held by finish; the result is still dispatched.
		res.Status = match.StatusError
		res.Err = fmt.Errorf("failed to save match: %w", err)
		return
	}

	if outcomes == nil {
		return
	}
	if err := m.ledger.Commit(ctx, res.MatchID, outcomes); err != nil {
		slog.Error("Failed to commit bets", "game", res.Game, "match", res.MatchID, "error", err)
		res.Err = err
		return
	}
	res.Bets = outcomes
}

// records returns the stat records beaten in the match. Ties do not beat a
// record.
func (m *Monitor) records(ctx context.Context, d *match.Data) []match.StatRecord {
	var out []match.StatRecord
	for _, rs := range m.module.RecordStats() {
		prev, holder, ok, err := m.store.StatRecord(ctx, d.Game, rs.Name, rs.LowerIsBetter)
		if err != nil {
			slog.Warn("Failed to get stat record", "stat", rs.Name, "error", err)
			continue
		}
		best, bestHolder, found := bestInMatch(d, rs)
		if !found {
			continue
		}
		if ok && !beats(best, prev, rs.LowerIsBetter) {
			continue
		}
		out = append(out, match.StatRecord{
			Stat:           rs.Name,
			Value:          best,
			Holder:         bestHolder,
			PreviousValue:  prev,
			PreviousHolder: holder,
		})
	}
	return out
}

func bestInMatch(d *match.Data, rs game.RecordStat) (float64, int64, bool) {
	var best float64
	var holder int64
	found := false
	for _, p := range d.Players {
		v := p.Stat(rs.Name)
		if !found || beats(v, best, rs.LowerIsBetter) || (v == best && p.DiscordID < holder) {
			best, holder, found = v, p.DiscordID, true
		}
	}
	return best, holder, found
}

func beats(v, record float64, lowerIsBetter bool) bool {
	if lowerIsBetter {
		return v < record
	}
	return v > record
}

// fetch gets match details with bounded retry and doubling delay.
func (m *Monitor) fetch(ctx context.Context, matchID string, players []match.Player) (*match.Data, error) {
	client := m.module.Client()
	delay := m.cfg.FetchBaseDelay
	var lastErr error

	for attempt := 1; attempt <= m.cfg.FetchAttempts; attempt++ {
		d, err := client.MatchDetails(ctx, matchID, players)
		if err == nil && d != nil {
			return d, nil
		}
		if err == nil {
			err = errUnavailable
		}
		lastErr = err
		slog.Warn("Failed to fetch match details", "game", m.module.Type(), "match", matchID, "attempt", attempt, "error", err)

		if attempt == m.cfg.FetchAttempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
		if m.cfg.FetchMaxDelay > 0 && delay > m.cfg.FetchMaxDelay {
			delay = m.cfg.FetchMaxDelay
		}
	}
	return nil, fmt.Errorf("match %s unavailable after %d attempts: %w", matchID, m.cfg.FetchAttempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// converge waits until every participant's latest match token has advanced
// and returns the token most of them share, with the consumed token per
// account.
func (m *Monitor) converge(ctx context.Context, tc game.TokenClient, participants []match.Player) (string, map[string]string, error) {
	if len(participants) == 0 {
		return "", nil, fmt.Errorf("no players were seen in the match")
	}

	type cursor struct {
		account match.Account
		last    string
	}
	cursors := make(map[int64][]*cursor, len(participants))
	m.mu.Lock()
	for _, p := range participants {
		for _, a := range p.AccountsFor(m.module.Type()) {
			last := a.LastToken
			if c, ok := m.cursors[a.ID]; ok {
				last = c
			}
			cursors[p.DiscordID] = append(cursors[p.DiscordID], &cursor{account: a, last: last})
		}
	}
	m.mu.Unlock()

	advanced := make(map[int64]string, len(participants))
	tokens := make(map[string]string, len(participants))

	for attempt := 1; ; attempt++ {
		for _, p := range participants {
			if _, done := advanced[p.DiscordID]; done {
				continue
			}
			for _, c := range cursors[p.DiscordID] {
				tok, err := tc.NextMatchToken(ctx, c.account, c.last)
				if err != nil {
					slog.Warn("Failed to get next match token", "game", m.module.Type(), "account", c.account.ID, "error", err)
					continue
				}
				if tok == "" {
					continue
				}
				advanced[p.DiscordID] = tok
				tokens[c.account.ID] = tok
				break
			}
		}

		if len(advanced) == len(participants) {
			slog.Info("Match tokens converged", "game", m.module.Type(), "attempts", attempt)
			return majority(advanced), tokens, nil
		}
		if err := sleep(ctx, m.cfg.TokenPollInterval); err != nil {
			return "", nil, err
		}
	}
}

// majority returns the token shared by most players, lowest first on ties.
func majority(advanced map[int64]string) string {
	counts := make(map[string]int)
	for _, tok := range advanced {
		counts[tok]++
	}
	keys := make([]string, 0, len(counts))
	for tok := range counts {
		keys = append(keys, tok)
	}
	sort.Strings(keys)

	best := keys[0]
	for _, tok := range keys[1:] {
		if counts[tok] > counts[best] {
			best = tok
		}
	}
	return best
}

func (m *Monitor) isConsumed(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consumed[token]
}

// consume advances account cursors past the tokens of a resolved match.
func (m *Monitor) consume(tokens map[string]string) {
	ctx := context.WithoutCancel(m.ctx)
	m.mu.Lock()
	for account, tok := range tokens {
		m.cursors[account] = tok
		m.consumed[tok] = true
	}
	m.mu.Unlock()

	for account, tok := range tokens {
		if err := m.store.UpdateAccountToken(ctx, m.module.Type(), account, tok); err != nil {
			slog.Error("Failed to update match token", "game", m.module.Type(), "account", account, "error", err)
		}
	}
}

// unsettled reports whether the guild's tickets for the match were neither
// resolved nor refunded.
func unsettled(res *match.Result) bool {
	switch {
	case res.Status.Ledgered(), res.Status == match.StatusDuplicate:
		return true
	case res.Status.Scored():
		return res.Bets == nil
	}
	return false
}

// finish ledgers failed matches and hands the result to the dispatcher.
func (m *Monitor) finish(res *match.Result) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), 30*time.Second)
	defer cancel()

	res.ResolvedAt = time.Now()
	if res.Status.Ledgered() {
		if err := m.store.RecordMissedMatch(ctx, res.Game, res.MatchID, res.GuildID, res.ResolvedAt); err != nil {
			slog.Error("Failed to record missed match", "game", res.Game, "match", res.MatchID, "error", err)
		}
	}
	if unsettled(res) {
		if _, err := m.ledger.Hold(ctx, res.Game, res.GuildID, res.MatchID, res.EndedAt); err != nil {
			slog.Error("Failed to hold bets", "game", res.Game, "match", res.MatchID, "error", err)
		}
	}

	slog.Info("Match resolved", "game", res.Game, "guild", res.GuildID, "match", res.MatchID, "status", res.Status)
	m.dispatcher.OnMatchResolved(ctx, res)
}
