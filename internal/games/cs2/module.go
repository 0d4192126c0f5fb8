package cs2

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mhso/IntFar-sub002/internal/award"
	"github.com/mhso/IntFar-sub002/internal/betting"
	"github.com/mhso/IntFar-sub002/internal/game"
	"github.com/mhso/IntFar-sub002/internal/match"
	"github.com/mhso/IntFar-sub002/internal/steam"
)

var steamIDPattern = regexp.MustCompile(`^7656\d{13}$`)

// scored matchmaking modes
var rankedModes = map[string]bool{
	"premier":     true,
	"competitive": true,
	"wingman":     true,
}

// Module implements game.Module for Counter-Strike 2. Matches are only
// identified once they have finished, through share codes.
type Module struct {
	steam     *steam.Client
	stats     *steam.StatsClient
	qualifier *award.Qualifier
	bets      *betting.Resolver
}

// NewModule creates a new CS2 module
func NewModule(client *steam.Client, stats *steam.StatsClient) *Module {
	return &Module{
		steam:     client,
		stats:     stats,
		qualifier: NewQualifier(),
		bets:      NewBets(),
	}
}

// Name returns the human-readable name of the game
func (m *Module) Name() string {
	return "Counter-Strike 2"
}

// Type returns the game type identifier
func (m *Module) Type() match.GameType {
	return match.GameCS2
}

// Description returns a brief description of the game
func (m *Module) Description() string {
	return "Int-Far, Doinks and betting for Counter-Strike 2 matchmaking"
}

// ValidatePlayerID expects "steamid64 authcode sharecode"
func (m *Module) ValidatePlayerID(input string) error {
	_, err := parseAccountInput(input)
	return err
}

func parseAccountInput(input string) (*match.Account, error) {
	fields := strings.Fields(input)
	if len(fields) != 3 {
		return nil, fmt.Errorf("invalid format: must be <steam id> <auth code> <latest share code>")
	}
	if !steamIDPattern.MatchString(fields[0]) {
		return nil, fmt.Errorf("invalid Steam ID: %s", fields[0])
	}
	if !strings.HasPrefix(fields[2], "CSGO-") {
		return nil, fmt.Errorf("invalid share code: %s", fields[2])
	}
	return &match.Account{
		Game:      match.GameCS2,
		ID:        fields[0],
		AuthCode:  fields[1],
		LastToken: fields[2],
	}, nil
}

// ResolveAccount validates the input and looks up the Steam profile
func (m *Module) ResolveAccount(ctx context.Context, input string) (*match.Account, error) {
	account, err := parseAccountInput(input)
	if err != nil {
		return nil, err
	}
	summary, err := m.steam.GetPlayerSummary(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve player: %w", err)
	}
	account.DisplayName = summary.PersonaName
	return account, nil
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
		{Name: StatADR},
		{Name: StatMVPs},
	}
}

// Classify maps parsed match data to a terminal status
func (m *Module) Classify(d *match.Data, minDuration time.Duration) match.Status {
	if !d.Ranked {
		return match.StatusCustomGame
	}
	if d.Duration < minDuration {
		return match.StatusTooShort
	}
	return match.StatusOK
}

// ActiveMatch uses Steam presence. The match itself cannot be named until
// it has finished, so the returned id is always empty.
func (m *Module) ActiveMatch(ctx context.Context, account match.Account) (*match.ActiveMatch, error) {
	summary, err := m.steam.GetPlayerSummary(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if !summary.InGame(steam.AppCS2) {
		return nil, nil
	}
	return &match.ActiveMatch{AccountID: account.ID}, nil
}

// NextMatchToken returns the share code following lastToken
func (m *Module) NextMatchToken(ctx context.Context, account match.Account, lastToken string) (string, error) {
	return m.steam.GetNextMatchSharingCode(ctx, account.ID, account.AuthCode, lastToken)
}

// MatchDetails fetches the parsed demo of a finished match
func (m *Module) MatchDetails(ctx context.Context, shareCode string, players []match.Player) (*match.Data, error) {
	raw, err := m.stats.GetMatch(ctx, shareCode)
	if errors.Is(err, steam.ErrUnparsable) {
		return nil, fmt.Errorf("%w: %v", match.ErrMalformed, err)
	}
	if err != nil || raw == nil {
		return nil, err
	}
	return Parse(raw, players)
}
