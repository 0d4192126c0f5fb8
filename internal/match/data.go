package match

import "time"

// Common stat keys shared by every game.
const (
	StatKills     = "kills"
	StatDeaths    = "deaths"
	StatAssists   = "assists"
	StatResources = "resources"
)

// Outcome of a finished match from the tracked players' point of view.
type Outcome int

const (
	OutcomeLoss Outcome = iota - 1
	OutcomeTie
	OutcomeWin
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	default:
		return "tie"
	}
}

// ActiveMatch describes a match a tracked account is currently playing.
type ActiveMatch struct {
	// ID is empty when the API cannot name the match before it ends.
	ID        string
	AccountID string
	StartTime time.Time
	Mode      string
}

// PlayerStats is the parsed stat line of one tracked player in a match.
// Resources is gold in LoL and money spent in CS2.
type PlayerStats struct {
	DiscordID int64
	AccountID string
	Kills     int
	Deaths    int
	Assists   int
	Resources int
	// Stats holds game-specific values keyed by stat name.
	Stats map[string]float64
}

// Stat returns the named stat, looking at the common fields first.
func (p PlayerStats) Stat(name string) float64 {
	switch name {
	case StatKills:
		return float64(p.Kills)
	case StatDeaths:
		return float64(p.Deaths)
	case StatAssists:
		return float64(p.Assists)
	case StatResources:
		return float64(p.Resources)
	}
	return p.Stats[name]
}

// KDA returns (kills + assists) / max(deaths, 1).
func (p PlayerStats) KDA() float64 {
	deaths := p.Deaths
	if deaths < 1 {
		deaths = 1
	}
	return float64(p.Kills+p.Assists) / float64(deaths)
}

// Data is the parsed result of a finished match, restricted to tracked
// players.
type Data struct {
	ID        string
	Game      GameType
	GuildID   string
	StartTime time.Time
	Duration  time.Duration
	Mode      string
	// Ranked is false for custom and other non-scoring game modes.
	Ranked bool
	// Remake is set when the game was aborted early by vote.
	Remake  bool
	Outcome Outcome
	Map     string
	Players []PlayerStats
	// TokensByAccount carries the consumed completed-match token per
	// account for token-polled games.
	TokensByAccount map[string]string
}

// Player returns the stat line of a Discord user, if present.
func (d *Data) Player(discordID int64) (PlayerStats, bool) {
	for _, p := range d.Players {
		if p.DiscordID == discordID {
			return p, true
		}
	}
	return PlayerStats{}, false
}
