package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mhso/IntFar-sub002/internal/match"
	"github.com/mhso/IntFar-sub002/internal/storage"
)

type sent struct {
	channel string
	embed   *discordgo.MessageEmbed
}

type fakeSender struct {
	sent []sent
}

func (f *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sent = append(f.sent, sent{channelID, embed})
	return &discordgo.Message{}, nil
}

type fakeSettings map[string]string

func (f fakeSettings) GetGuildSettings(_ context.Context, guildID string) (*storage.GuildSettings, error) {
	ch, ok := f[guildID]
	if !ok {
		return nil, nil
	}
	return &storage.GuildSettings{GuildID: guildID, NotificationChannelID: ch}, nil
}

func TestFormatNumber(t *testing.T) {
	tests := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		12345:   "12,345",
		1234567: "1,234,567",
		-2500:   "-2,500",
	}
	for n, want := range tests {
		if got := formatNumber(n); got != want {
			t.Errorf("formatNumber(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestReasons(t *testing.T) {
	labels := []string{"low KDA", "many deaths", "low KP", "low vision"}
	if got := reasons("1001", labels); got != "low KDA, low vision" {
		t.Fatalf("reasons = %q", got)
	}
	if got := reasons("00001", labels); got != "criterion 5" {
		t.Fatalf("reasons = %q", got)
	}
}

func TestOnMatchResolvedScored(t *testing.T) {
	sender := &fakeSender{}
	d := NewDiscord(sender, fakeSettings{"g1": "c1"}, map[match.GameType]Labels{
		match.GameLoL: {Criteria: []string{"low KDA", "many deaths", "low KP", "low vision"}},
	})

	d.OnMatchResolved(context.Background(), &match.Result{
		Status:     match.StatusOK,
		Game:       match.GameLoL,
		GuildID:    "g1",
		MatchID:    "EUW1_42",
		ResolvedAt: time.Now(),
		Data: &match.Data{
			Duration: 25*time.Minute + 7*time.Second,
			Outcome:  match.OutcomeWin,
			Players:  []match.PlayerStats{{DiscordID: 1, Kills: 3, Deaths: 1, Assists: 4}},
		},
		Awards: &match.AwardRecord{Negative: &match.Award{DiscordID: 1, Criteria: "0001", Points: 1}},
		Bets:   []match.BetOutcome{{DiscordID: 1, Won: true, Payout: 1333}},
	})

	if len(sender.sent) != 1 || sender.sent[0].channel != "c1" {
		t.Fatalf("sent = %+v", sender.sent)
	}
	e := sender.sent[0].embed
	if e.Title != "Victory" || !strings.Contains(e.Description, "25:07") {
		t.Fatalf("embed = %+v", e)
	}
	var text []string
	for _, f := range e.Fields {
		text = append(text, f.Value)
	}
	joined := strings.Join(text, "\n")
	if !strings.Contains(joined, "<@1> for low vision") || !strings.Contains(joined, "1,333 tokens") {
		t.Fatalf("fields = %s", joined)
	}
}

func TestOnMatchResolvedSkipsUnscored(t *testing.T) {
	sender := &fakeSender{}
	d := NewDiscord(sender, fakeSettings{"g1": "c1"}, nil)

	for _, s := range []match.Status{match.StatusSolo, match.StatusTooShort, match.StatusDuplicate, match.StatusCustomGame} {
		d.OnMatchResolved(context.Background(), &match.Result{Status: s, GuildID: "g1"})
	}
	if len(sender.sent) != 0 {
		t.Fatalf("unscored matches were posted: %+v", sender.sent)
	}

	d.OnMatchResolved(context.Background(), &match.Result{Status: match.StatusError, GuildID: "g1", MatchID: "x", Err: errors.New("boom")})
	if len(sender.sent) != 1 || sender.sent[0].embed.Color != 0xFF0000 {
		t.Fatalf("failed match was not posted: %+v", sender.sent)
	}

	// no channel configured
	d.OnMatchResolved(context.Background(), &match.Result{Status: match.StatusMissing, GuildID: "g2"})
	if len(sender.sent) != 1 {
		t.Fatalf("posted without a channel")
	}
}
