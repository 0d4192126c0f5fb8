// Package monitor runs one polling task per guild that detects when tracked
// players start and finish a match, then resolves the finished match.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mhso/IntFar-sub002/internal/betting"
	"github.com/mhso/IntFar-sub002/internal/claim"
	"github.com/mhso/IntFar-sub002/internal/game"
	"github.com/mhso/IntFar-sub002/internal/match"
)

// Store is the persistence the monitor needs.
type Store interface {
	MatchExists(ctx context.Context, game match.GameType, matchID string) (bool, error)
	SaveMatch(ctx context.Context, res *match.Result) error
	RecordMissedMatch(ctx context.Context, game match.GameType, matchID, guildID string, at time.Time) error
	StatRecord(ctx context.Context, game match.GameType, stat string, lowerIsBetter bool) (float64, int64, bool, error)
	UpdateAccountToken(ctx context.Context, game match.GameType, accountID, token string) error
}

// Dispatcher receives every terminal match exactly once.
type Dispatcher interface {
	OnMatchResolved(ctx context.Context, res *match.Result)
}

// Config tunes polling and retry for one game.
type Config struct {
	// DormantInterval is the poll interval while nobody is in a match.
	DormantInterval time.Duration
	// ActiveInterval is the poll interval while a match is running.
	ActiveInterval time.Duration
	// LeaveGrace delays removing a player who left voice.
	LeaveGrace time.Duration
	// TokenPollInterval is the sleep between convergence attempts.
	TokenPollInterval time.Duration
	FetchAttempts     int
	FetchBaseDelay    time.Duration
	FetchMaxDelay     time.Duration
	// MinDuration is the shortest match that is scored.
	MinDuration time.Duration
}

// DefaultConfig returns the standard intervals.
func DefaultConfig() Config {
	return Config{
		DormantInterval:   2 * time.Minute,
		ActiveInterval:    30 * time.Second,
		TokenPollInterval: 30 * time.Second,
		FetchAttempts:     5,
		FetchBaseDelay:    10 * time.Second,
		FetchMaxDelay:     2 * time.Minute,
		MinDuration:       5 * time.Minute,
	}
}

// task is one running polling loop.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// guildState is the polling state of one guild. Guarded by Monitor.mu.
type guildState struct {
	id      string
	voice   map[int64]match.Player
	leaving map[int64]*time.Timer
	inMatch map[int64]match.Player
	matchID string
	started time.Time
	active  bool
	// resolving is set from the end of a match until its result is
	// dispatched.
	resolving bool
	task      *task
	// stopping is closed once the last stopped task has exited.
	stopping <-chan struct{}
}

func (st *guildState) players() []match.Player {
	out := make([]match.Player, 0, len(st.voice))
	for _, p := range st.voice {
		out = append(out, p)
	}
	sortPlayers(out)
	return out
}

func (st *guildState) reset() {
	st.inMatch = make(map[int64]match.Player)
	st.matchID = ""
	st.started = time.Time{}
	st.active = false
	st.resolving = false
}

// Monitor tracks matches of one game across all guilds.
type Monitor struct {
	module     game.Module
	store      Store
	ledger     *betting.Ledger
	claims     claim.Claimer
	dispatcher Dispatcher
	cfg        Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	guilds map[string]*guildState
	// cursors holds the newest consumed token per account.
	cursors  map[string]string
	consumed map[string]bool
}

// New creates a Monitor. Tasks run until Shutdown.
func New(module game.Module, store Store, ledger *betting.Ledger, claims claim.Claimer, dispatcher Dispatcher, cfg Config) *Monitor {
	if cfg.FetchAttempts < 1 {
		cfg.FetchAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		module:     module,
		store:      store,
		ledger:     ledger,
		claims:     claims,
		dispatcher: dispatcher,
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
		guilds:     make(map[string]*guildState),
		cursors:    make(map[string]string),
		consumed:   make(map[string]bool),
	}
}

// Game returns the game this monitor tracks
func (m *Monitor) Game() match.GameType {
	return m.module.Type()
}

func (m *Monitor) guild(id string) *guildState {
	st, ok := m.guilds[id]
	if !ok {
		st = &guildState{
			id:      id,
			voice:   make(map[int64]match.Player),
			leaving: make(map[int64]*time.Timer),
		}
		st.reset()
		m.guilds[id] = st
	}
	return st
}

// PlayerJoinedVoice adds a player to the guild's voice set and starts
// polling once two tracked players are present. Rejoining during the leave
// grace period cancels the pending removal.
func (m *Monitor) PlayerJoinedVoice(p match.Player, guildID string) {
	if len(p.AccountsFor(m.module.Type())) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx.Err() != nil {
		return
	}

	st := m.guild(guildID)
	if t, ok := st.leaving[p.DiscordID]; ok {
		t.Stop()
		delete(st.leaving, p.DiscordID)
		slog.Debug("Cancelled pending voice leave", "game", m.module.Type(), "guild", guildID, "player", p.DiscordID)
	}
	st.voice[p.DiscordID] = p

	if len(st.voice) >= 2 && st.task == nil {
		m.startTask(st)
	}
}

// PlayerLeftVoice removes a player from the guild's voice set after the
// configured grace period.
func (m *Monitor) PlayerLeftVoice(p match.Player, guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.guilds[guildID]
	if !ok {
		return
	}
	if _, ok := st.voice[p.DiscordID]; !ok {
		return
	}
	if m.cfg.LeaveGrace <= 0 {
		m.removePlayer(st, p.DiscordID)
		return
	}
	if _, pending := st.leaving[p.DiscordID]; pending {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(m.cfg.LeaveGrace, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// A rejoin may have replaced or cancelled this timer.
		if st.leaving[p.DiscordID] != t {
			return
		}
		m.removePlayer(st, p.DiscordID)
	})
	st.leaving[p.DiscordID] = t
}

// removePlayer must be called with mu held.
func (m *Monitor) removePlayer(st *guildState, discordID int64) {
	delete(st.leaving, discordID)
	delete(st.voice, discordID)
	if len(st.voice) < 2 && st.task != nil {
		slog.Info("Stopping match polling", "game", m.module.Type(), "guild", st.id)
		st.task.cancel()
		st.stopping = st.task.done
		st.task = nil
	}
}

// startTask must be called with mu held. A new task waits for the last
// stopped one to exit so a guild never polls twice at once.
func (m *Monitor) startTask(st *guildState) {
	prev := st.stopping
	if st.task != nil {
		prev = st.task.done
	}
	ctx, cancel := context.WithCancel(m.ctx)
	t := &task{cancel: cancel, done: make(chan struct{})}
	st.task = t

	m.wg.Add(1)
	go m.run(ctx, st, t, prev)
}

// Snapshot describes a guild's polling state
type Snapshot struct {
	Players   []int64
	Polling   bool
	Active    bool
	Resolving bool
	MatchID   string
	Started   time.Time
}

// Snapshot returns the current state of a guild
func (m *Monitor) Snapshot(guildID string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.guilds[guildID]
	if !ok {
		return Snapshot{}
	}
	s := Snapshot{
		Polling:   st.task != nil,
		Active:    st.active,
		Resolving: st.resolving,
		MatchID:   st.matchID,
		Started:   st.started,
	}
	for _, p := range st.players() {
		s.Players = append(s.Players, p.DiscordID)
	}
	return s
}

// BetOffset returns how far into the guild's running match a bet placed
// now would be. Zero when no match is running. Betting is closed while a
// finished match is being resolved.
func (m *Monitor) BetOffset(guildID string) (time.Duration, error) {
	s := m.Snapshot(guildID)
	if s.Resolving {
		return 0, match.ErrBettingClosed
	}
	if !s.Active || s.Started.IsZero() {
		return 0, nil
	}
	return time.Since(s.Started), nil
}

// Shutdown stops every guild task and waits for them to exit. Matches that
// are resolving when this is called end as missing.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	m.cancel()
	for _, st := range m.guilds {
		for id, t := range st.leaving {
			t.Stop()
			delete(st.leaving, id)
		}
		st.task = nil
	}
	m.mu.Unlock()

	m.wg.Wait()
	slog.Info("Monitor stopped", "game", m.module.Type())
}
