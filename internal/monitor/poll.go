package monitor

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mhso/IntFar-sub002/internal/game"
	"github.com/mhso/IntFar-sub002/internal/match"
)

// run is the polling loop of one guild.
func (m *Monitor) run(ctx context.Context, st *guildState, t *task, prev <-chan struct{}) {
	defer m.wg.Done()
	defer close(t.done)
	defer func() {
		m.mu.Lock()
		st.reset()
		m.mu.Unlock()
	}()

	// The previous task may still be resolving a match.
	if prev != nil {
		<-prev
	}
	if ctx.Err() != nil {
		return
	}

	slog.Info("Starting match polling", "game", m.module.Type(), "guild", st.id)

	for {
		interval := m.cfg.DormantInterval
		if m.poll(ctx, st) {
			interval = m.cfg.ActiveInterval
		}

		select {
		case <-ctx.Done():
			slog.Info("Match polling stopped", "game", m.module.Type(), "guild", st.id)
			return
		case <-time.After(interval):
		}
	}
}

// presence is the result of one presence check.
type presence struct {
	matches map[int64]*match.ActiveMatch
	// unknown is set when any player could not be checked.
	unknown bool
}

// checkPresence asks the game API whether each player is in a match. A
// player is in a match if any of their accounts is.
func (m *Monitor) checkPresence(ctx context.Context, players []match.Player) presence {
	client := m.module.Client()
	res := presence{matches: make(map[int64]*match.ActiveMatch)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(4)
	for _, p := range players {
		g.Go(func() error {
			for _, a := range p.AccountsFor(m.module.Type()) {
				am, err := client.ActiveMatch(ctx, a)
				if err != nil {
					slog.Warn("Failed to check player", "game", m.module.Type(), "player", p.DiscordID, "account", a.ID, "error", err)
					mu.Lock()
					res.unknown = true
					mu.Unlock()
					continue
				}
				if am != nil {
					mu.Lock()
					res.matches[p.DiscordID] = am
					mu.Unlock()
					return nil
				}
			}
			return nil
		})
	}
	g.Wait()
	return res
}

// poll runs one iteration and reports whether a match is active afterwards.
func (m *Monitor) poll(ctx context.Context, st *guildState) bool {
	m.mu.Lock()
	players := st.players()
	active := st.active
	m.mu.Unlock()

	if len(players) == 0 {
		return false
	}

	byID := make(map[int64]match.Player, len(players))
	for _, p := range players {
		byID[p.DiscordID] = p
	}

	pres := m.checkPresence(ctx, players)
	if ctx.Err() != nil {
		return active
	}

	if !active {
		if len(pres.matches) == 0 {
			return false
		}
		m.mu.Lock()
		st.active = true
		st.started = time.Now()
		for id, am := range pres.matches {
			st.inMatch[id] = byID[id]
			if am.ID != "" && st.matchID == "" {
				st.matchID = am.ID
			}
			if !am.StartTime.IsZero() && am.StartTime.Before(st.started) {
				st.started = am.StartTime
			}
		}
		matchID := st.matchID
		m.mu.Unlock()

		slog.Info("Match started", "game", m.module.Type(), "guild", st.id, "match", matchID, "players", len(pres.matches))
		return true
	}

	if len(pres.matches) > 0 || pres.unknown {
		m.mu.Lock()
		for id, am := range pres.matches {
			st.inMatch[id] = byID[id]
			if am.ID != "" && st.matchID == "" {
				st.matchID = am.ID
			}
		}
		m.mu.Unlock()
		return true
	}

	ended := time.Now()
	m.mu.Lock()
	st.resolving = true
	started := st.started
	matchID := st.matchID
	participants := make([]match.Player, 0, len(st.inMatch))
	for _, p := range st.inMatch {
		participants = append(participants, p)
	}
	m.mu.Unlock()
	sortPlayers(participants)

	slog.Info("Match ended, resolving", "game", m.module.Type(), "guild", st.id, "match", matchID)

	// Resolution runs on the monitor context, not the task context.
	res := m.resolve(st.id, matchID, started, ended, players, participants)
	m.finish(res)

	m.mu.Lock()
	st.reset()
	m.mu.Unlock()
	return false
}

func sortPlayers(players []match.Player) {
	sort.Slice(players, func(i, j int) bool { return players[i].DiscordID < players[j].DiscordID })
}

// tokenClient returns the convergence client of the game, if any.
func (m *Monitor) tokenClient() (game.TokenClient, bool) {
	tc, ok := m.module.Client().(game.TokenClient)
	return tc, ok
}
