package match

import "time"

// GameType represents a supported game type
type GameType string

const (
	GameLoL GameType = "lol"
	GameCS2 GameType = "cs2"
)

// Account is one in-game identity of a tracked player. A player may own
// several accounts for the same game.
type Account struct {
	Game        GameType
	ID          string // PUUID, Steam ID, ...
	DisplayName string
	// AuthCode is the per-account secret some APIs require to read match
	// history (the Steam match-history authentication code).
	AuthCode string
	// LastToken is the newest completed-match token already consumed for
	// this account. Only used by games polled by token convergence.
	LastToken string
}

// Player is a Discord user registered for match tracking.
type Player struct {
	DiscordID int64
	Name      string
	Accounts  []Account
	Active    bool
	CreatedAt time.Time
}

// AccountsFor returns the player's accounts for one game.
func (p Player) AccountsFor(game GameType) []Account {
	var out []Account
	for _, a := range p.Accounts {
		if a.Game == game {
			out = append(out, a)
		}
	}
	return out
}

// Owns reports whether accountID belongs to the player.
func (p Player) Owns(game GameType, accountID string) bool {
	for _, a := range p.Accounts {
		if a.Game == game && a.ID == accountID {
			return true
		}
	}
	return false
}
