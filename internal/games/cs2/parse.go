package cs2

import (
	"fmt"
	"strings"
	"time"

	"github.com/mhso/IntFar-sub002/internal/match"
	"github.com/mhso/IntFar-sub002/internal/steam"
)

// Parse converts a parsed demo into match data for the tracked players
func Parse(raw *steam.MatchStats, players []match.Player) (*match.Data, error) {
	if raw.ShareCode == "" || raw.DurationSeconds <= 0 || len(raw.Players) == 0 {
		return nil, fmt.Errorf("%w: demo %q has no duration or players", match.ErrMalformed, raw.ShareCode)
	}

	mode := strings.ToLower(raw.Mode)
	d := &match.Data{
		ID:        raw.ShareCode,
		Game:      match.GameCS2,
		StartTime: raw.StartedAt,
		Duration:  time.Duration(raw.DurationSeconds) * time.Second,
		Mode:      mode,
		Ranked:    rankedModes[mode],
		Map:       raw.Map,
	}

	seen := make(map[int64]bool)
	for _, p := range raw.Players {
		owner, ok := ownerOf(players, p.SteamID)
		if !ok || seen[owner] {
			continue
		}
		seen[owner] = true

		if len(d.Players) == 0 {
			switch {
			case p.RoundsWon > p.RoundsLost:
				d.Outcome = match.OutcomeWin
			case p.RoundsWon < p.RoundsLost:
				d.Outcome = match.OutcomeLoss
			default:
				d.Outcome = match.OutcomeTie
			}
		}

		stats := match.PlayerStats{
			DiscordID: owner,
			AccountID: p.SteamID,
			Kills:     p.Kills,
			Deaths:    p.Deaths,
			Assists:   p.Assists,
			Resources: p.MoneySpent,
		}
		stats.Stats = map[string]float64{
			StatKDA:         stats.KDA(),
			StatADR:         p.ADR,
			StatHeadshotPct: p.HeadshotPct,
			StatMVPs:        float64(p.MVPs),
			StatScore:       float64(p.Score),
			StatAces:        float64(p.Aces),
			StatQuads:       float64(p.Quads),
		}
		d.Players = append(d.Players, stats)
	}
	return d, nil
}

func ownerOf(players []match.Player, steamID string) (int64, bool) {
	for _, p := range players {
		if p.Owns(match.GameCS2, steamID) {
			return p.DiscordID, true
		}
	}
	return 0, false
}
