package lol

import (
	"fmt"
	"time"

	"github.com/mhso/IntFar-sub002/internal/match"
	"github.com/mhso/IntFar-sub002/internal/riot"
)

// Parse converts a Match-V5 payload into match data for the tracked
// players found in it
func Parse(raw *riot.Match, players []match.Player) (*match.Data, error) {
	info := raw.Info
	if raw.Metadata.MatchID == "" || info.GameDuration <= 0 || len(info.Participants) == 0 {
		return nil, fmt.Errorf("%w: match %q has no duration or participants", match.ErrMalformed, raw.Metadata.MatchID)
	}

	d := &match.Data{
		ID:       raw.Metadata.MatchID,
		Game:     match.GameLoL,
		Duration: time.Duration(info.GameDuration) * time.Second,
		Mode:     info.GameMode,
		Ranked:   info.QueueID != riot.QueueCustom && riot.IsKnownQueue(info.QueueID),
		Map:      riot.GetQueueName(info.QueueID),
	}
	if info.GameStartTimestamp > 0 {
		d.StartTime = time.UnixMilli(info.GameStartTimestamp)
	}

	teamKills := make(map[int]int)
	for _, p := range info.Participants {
		teamKills[p.TeamID] += p.Kills
	}

	minutes := d.Duration.Minutes()
	seen := make(map[int64]bool)
	earlySurrender := false
	for i := range info.Participants {
		p := &info.Participants[i]
		owner, ok := ownerOf(players, p.PUUID)
		if !ok || seen[owner] {
			continue
		}
		seen[owner] = true

		if len(d.Players) == 0 {
			if p.Win {
				d.Outcome = match.OutcomeWin
			} else {
				d.Outcome = match.OutcomeLoss
			}
		}
		earlySurrender = earlySurrender || p.GameEndedInEarlySurrender

		kp := 0.0
		if p.Challenges != nil {
			kp = p.Challenges.KillParticipation * 100
		} else if tk := teamKills[p.TeamID]; tk > 0 {
			kp = float64(p.Kills+p.Assists) / float64(tk) * 100
		}

		stats := match.PlayerStats{
			DiscordID: owner,
			AccountID: p.PUUID,
			Kills:     p.Kills,
			Deaths:    p.Deaths,
			Assists:   p.Assists,
			Resources: p.GoldEarned,
		}
		stats.Stats = map[string]float64{
			StatKDA:               stats.KDA(),
			StatDamage:            float64(p.TotalDamageDealtToChampions),
			StatVisionScore:       float64(p.VisionScore),
			StatKillParticipation: kp,
			StatCSPerMin:          float64(p.TotalMinionsKilled+p.NeutralMinionsKilled) / minutes,
			StatPentaKills:        float64(p.PentaKills),
		}
		d.Players = append(d.Players, stats)
	}

	d.Remake = earlySurrender
	return d, nil
}

func ownerOf(players []match.Player, puuid string) (int64, bool) {
	for _, p := range players {
		if p.Owns(match.GameLoL, puuid) {
			return p.DiscordID, true
		}
	}
	return 0, false
}
