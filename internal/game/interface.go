package game

import (
	"context"
	"time"

	"github.com/mhso/IntFar-sub002/internal/award"
	"github.com/mhso/IntFar-sub002/internal/betting"
	"github.com/mhso/IntFar-sub002/internal/match"
)

// Client is the polling contract every game API implements
type Client interface {
	// ActiveMatch returns the match the account is playing right now, or
	// nil when it is not in a match. An error means the state is unknown.
	ActiveMatch(ctx context.Context, account match.Account) (*match.ActiveMatch, error)

	// MatchDetails fetches a finished match restricted to the given
	// tracked players. It returns nil, nil while the match is not
	// available yet and wraps match.ErrMalformed when the upstream data
	// cannot be parsed.
	MatchDetails(ctx context.Context, matchID string, players []match.Player) (*match.Data, error)
}

// TokenClient is implemented by clients whose APIs cannot name a match
// while it is being played. Each account advances an opaque token once per
// completed match.
type TokenClient interface {
	Client

	// NextMatchToken returns the token that follows lastToken, or "" when
	// the account has not completed a newer match.
	NextMatchToken(ctx context.Context, account match.Account, lastToken string) (string, error)
}

// RecordStat is a stat tracked for all-time records
type RecordStat struct {
	Name          string
	LowerIsBetter bool
}

// Module bundles the per-game strategies used by the match monitor
type Module interface {
	// Name returns the human-readable name of the game
	Name() string

	// Type returns the game type identifier
	Type() match.GameType

	// Description returns a brief description of the game
	Description() string

	// ValidatePlayerID validates the account identifier format
	ValidatePlayerID(input string) error

	// ResolveAccount looks up an account from the game's API
	ResolveAccount(ctx context.Context, input string) (*match.Account, error)

	// Client returns the API client used for polling
	Client() Client

	// Qualifier returns the award rules of the game
	Qualifier() *award.Qualifier

	// Bets returns the bet event resolver of the game
	Bets() *betting.Resolver

	// Classify maps parsed match data to a terminal status. It does not
	// check for duplicates or solo matches.
	Classify(d *match.Data, minDuration time.Duration) match.Status

	// RecordStats lists the stats checked for new records
	RecordStats() []RecordStat
}
