package lol

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mhso/IntFar-sub002/internal/award"
	"github.com/mhso/IntFar-sub002/internal/betting"
	"github.com/mhso/IntFar-sub002/internal/game"
	"github.com/mhso/IntFar-sub002/internal/match"
	"github.com/mhso/IntFar-sub002/internal/riot"
)

// Module implements game.Module for League of Legends
type Module struct {
	client    *riot.Client
	qualifier *award.Qualifier
	bets      *betting.Resolver
}

// NewModule creates a new LoL module
func NewModule(client *riot.Client) *Module {
	return &Module{
		client:    client,
		qualifier: NewQualifier(),
		bets:      NewBets(),
	}
}

// Name returns the human-readable name of the game
func (m *Module) Name() string {
	return "League of Legends"
}

// Type returns the game type identifier
func (m *Module) Type() match.GameType {
	return match.GameLoL
}

// Description returns a brief description of the game
func (m *Module) Description() string {
	return "Int-Far, Doinks and betting for League of Legends games"
}

// ValidatePlayerID validates the Riot ID format
func (m *Module) ValidatePlayerID(input string) error {
	_, _, err := splitRiotID(input)
	return err
}

func splitRiotID(input string) (string, string, error) {
	parts := strings.Split(input, "#")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid format: must be GameName#TagLine (e.g., Faker#KR1)")
	}

	gameName := strings.TrimSpace(parts[0])
	tagLine := strings.TrimSpace(parts[1])

	if gameName == "" || tagLine == "" {
		return "", "", fmt.Errorf("game name and tag line cannot be empty")
	}

	return gameName, tagLine, nil
}

// ResolveAccount looks up account information from the Riot API
func (m *Module) ResolveAccount(ctx context.Context, input string) (*match.Account, error) {
	gameName, tagLine, err := splitRiotID(input)
	if err != nil {
		return nil, err
	}

	account, err := m.client.GetAccountByRiotID(ctx, gameName, tagLine)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve player: %w", err)
	}

	return &match.Account{
		Game:        match.GameLoL,
		ID:          account.PUUID,
		DisplayName: fmt.Sprintf("%s#%s", account.GameName, account.TagLine),
	}, nil
}

// Client returns the polling client
func (m *Module) Client() game.Client { return m }

// Qualifier returns the award rules
func (m *Module) Qualifier() *award.Qualifier { return m.qualifier }

// Bets returns the bet event resolver
func (m *Module) Bets() *betting.Resolver { return m.bets }

// RecordStats lists the stats checked for new records
func (m *Module) RecordStats() []game.RecordStat {
	return []game.RecordStat{
		{Name: match.StatKills},
		{Name: match.StatDeaths},
		{Name: StatKDA},
		{Name: StatDamage},
		{Name: StatVisionScore},
		{Name: StatCSPerMin},
	}
}

// Classify maps parsed match data to a terminal status
func (m *Module) Classify(d *match.Data, minDuration time.Duration) match.Status {
	if !d.Ranked {
		return match.StatusCustomGame
	}
	if d.Remake || d.Duration < minDuration {
		return match.StatusTooShort
	}
	return match.StatusOK
}

// ActiveMatch asks the spectator API whether the account is in a game
func (m *Module) ActiveMatch(ctx context.Context, account match.Account) (*match.ActiveMatch, error) {
	g, err := m.client.GetActiveGame(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}

	active := &match.ActiveMatch{
		ID:        g.MatchID(),
		AccountID: account.ID,
		Mode:      g.GameMode,
	}
	if g.GameStartTime > 0 {
		active.StartTime = time.UnixMilli(g.GameStartTime)
	}
	return active, nil
}

// MatchDetails fetches and parses a finished match
func (m *Module) MatchDetails(ctx context.Context, matchID string, players []match.Player) (*match.Data, error) {
	raw, err := m.client.GetMatch(ctx, matchID)
	if err != nil || raw == nil {
		return nil, err
	}
	return Parse(raw, players)
}
