package cs2

import (
	"errors"
	"testing"
	"time"

	"github.com/mhso/IntFar-sub002/internal/match"
	"github.com/mhso/IntFar-sub002/internal/steam"
)

var players = []match.Player{
	{DiscordID: 1, Accounts: []match.Account{{Game: match.GameCS2, ID: "76561198000000001"}}},
	{DiscordID: 2, Accounts: []match.Account{{Game: match.GameCS2, ID: "76561198000000002"}}},
}

func rawStats(won, lost int) *steam.MatchStats {
	return &steam.MatchStats{
		ShareCode:       "CSGO-aaaaa-bbbbb-ccccc-ddddd-eeeee",
		Map:             "de_mirage",
		Mode:            "Premier",
		DurationSeconds: 2400,
		Players: []steam.PlayerStats{
			{SteamID: "76561198000000001", RoundsWon: won, RoundsLost: lost, Kills: 30, Deaths: 10, ADR: 120.5, MoneySpent: 40000, Aces: 1},
			{SteamID: "76561198000000002", RoundsWon: won, RoundsLost: lost, Kills: 5, Deaths: 20},
			{SteamID: "76561198000000099", Kills: 40},
		},
	}
}

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		won, lost int
		want      match.Outcome
	}{
		{13, 7, match.OutcomeWin},
		{7, 13, match.OutcomeLoss},
		{12, 12, match.OutcomeTie},
	}
	for _, tt := range tests {
		d, err := Parse(rawStats(tt.won, tt.lost), players)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if d.Outcome != tt.want {
			t.Errorf("%d-%d: expected %v, got %v", tt.won, tt.lost, tt.want, d.Outcome)
		}
	}
}

func TestParseStats(t *testing.T) {
	d, err := Parse(rawStats(13, 5), players)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Mode != "premier" || !d.Ranked {
		t.Errorf("expected ranked premier, got %q ranked=%v", d.Mode, d.Ranked)
	}
	if len(d.Players) != 2 {
		t.Fatalf("expected 2 tracked players, got %d", len(d.Players))
	}
	p, _ := d.Player(1)
	if p.Resources != 40000 || p.Stat(StatADR) != 120.5 || p.Stat(StatAces) != 1 {
		t.Errorf("unexpected stat line %+v", p)
	}
}

func TestParseMalformed(t *testing.T) {
	raw := rawStats(13, 5)
	raw.Players = nil
	if _, err := Parse(raw, players); !errors.Is(err, match.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	m := &Module{}
	d, _ := Parse(rawStats(13, 5), players)
	if got := m.Classify(d, 5*time.Minute); got != match.StatusOK {
		t.Errorf("expected ok, got %v", got)
	}

	raw := rawStats(13, 5)
	raw.Mode = "casual"
	d, _ = Parse(raw, players)
	if got := m.Classify(d, 5*time.Minute); got != match.StatusCustomGame {
		t.Errorf("expected custom game for casual, got %v", got)
	}

	raw = rawStats(13, 5)
	raw.DurationSeconds = 120
	d, _ = Parse(raw, players)
	if got := m.Classify(d, 5*time.Minute); got != match.StatusTooShort {
		t.Errorf("expected too short, got %v", got)
	}
}

func TestParseAccountInput(t *testing.T) {
	acc, err := parseAccountInput("76561198000000001 AAAA-BBBBB-CCCC CSGO-aaaaa-bbbbb-ccccc-ddddd-eeeee")
	if err != nil {
		t.Fatalf("parseAccountInput: %v", err)
	}
	if acc.AuthCode != "AAAA-BBBBB-CCCC" || acc.LastToken != "CSGO-aaaaa-bbbbb-ccccc-ddddd-eeeee" {
		t.Errorf("unexpected account %+v", acc)
	}
	for _, in := range []string{"", "123 a CSGO-x", "76561198000000001 a b"} {
		if _, err := parseAccountInput(in); err == nil {
			t.Errorf("expected %q to be rejected", in)
		}
	}
}
