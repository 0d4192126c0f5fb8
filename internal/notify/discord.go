// Package notify posts resolved matches to Discord.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mhso/IntFar-sub002/internal/match"
	"github.com/mhso/IntFar-sub002/internal/storage"
)

// Sender is the part of the Discord session used to post messages
type Sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Settings looks up where a guild wants notifications
type Settings interface {
	GetGuildSettings(ctx context.Context, guildID string) (*storage.GuildSettings, error)
}

// Labels names criteria and highlights of one game for display
type Labels struct {
	Criteria   []string
	Highlights []string
}

// Discord sends match results to each guild's notification channel
type Discord struct {
	sender   Sender
	settings Settings
	labels   map[match.GameType]Labels
}

// NewDiscord creates a Discord dispatcher
func NewDiscord(sender Sender, settings Settings, labels map[match.GameType]Labels) *Discord {
	return &Discord{sender: sender, settings: settings, labels: labels}
}

// OnMatchResolved posts scored and failed matches. Other statuses are only
// logged.
func (d *Discord) OnMatchResolved(ctx context.Context, res *match.Result) {
	var embed *discordgo.MessageEmbed
	switch {
	case res.Status == match.StatusOK:
		embed = d.createMatchEmbed(res)
	case res.Status.Ledgered():
		embed = createFailureEmbed(res)
	default:
		slog.Info("Match not scored", "game", res.Game, "guild", res.GuildID, "match", res.MatchID, "status", res.Status)
		return
	}

	settings, err := d.settings.GetGuildSettings(ctx, res.GuildID)
	if err != nil {
		slog.Error("Failed to get guild settings", "guild", res.GuildID, "error", err)
		return
	}
	if settings == nil || settings.NotificationChannelID == "" {
		slog.Warn("No notification channel set for guild", "guild", res.GuildID)
		return
	}

	if _, err := d.sender.ChannelMessageSendEmbed(settings.NotificationChannelID, embed); err != nil {
		slog.Error("Failed to send notification", "guild", res.GuildID, "error", err)
		return
	}
	slog.Info("Sent notification", "guild", res.GuildID, "match", res.MatchID)
}

// createMatchEmbed creates a Discord embed for a scored match
func (d *Discord) createMatchEmbed(res *match.Result) *discordgo.MessageEmbed {
	data := res.Data

	// Determine color based on outcome
	color := 0xE74C3C // Red for loss
	resultText := "Defeat"
	switch data.Outcome {
	case match.OutcomeWin:
		color = 0x2ECC71 // Green for win
		resultText = "Victory"
	case match.OutcomeTie:
		color = 0x95A5A6
		resultText = "Tie"
	}

	labels := d.labels[res.Game]
	var fields []*discordgo.MessageEmbedField

	for _, p := range data.Players {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Player",
			Value:  fmt.Sprintf("%s\n%d / %d / %d (%.2f)\n%s", mention(p.DiscordID), p.Kills, p.Deaths, p.Assists, p.KDA(), formatNumber(p.Resources)),
			Inline: true,
		})
	}

	intfar := "Nobody inted this time."
	if res.Awards != nil && res.Awards.Negative != nil {
		neg := res.Awards.Negative
		intfar = fmt.Sprintf("%s for %s", mention(neg.DiscordID), reasons(neg.Criteria, labels.Criteria))
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: "Int-Far", Value: intfar})

	if res.Awards != nil && len(res.Awards.Highlights) > 0 {
		lines := make([]string, 0, len(res.Awards.Highlights))
		for _, h := range res.Awards.Highlights {
			lines = append(lines, fmt.Sprintf("%s for %s", mention(h.DiscordID), reasons(h.Criteria, labels.Highlights)))
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Doinks", Value: strings.Join(lines, "\n")})
	}

	if len(res.Bets) > 0 {
		lines := make([]string, 0, len(res.Bets))
		for _, b := range res.Bets {
			if b.Won {
				lines = append(lines, fmt.Sprintf("%s won %s tokens", mention(b.DiscordID), formatNumber(b.Payout)))
			} else {
				lines = append(lines, fmt.Sprintf("%s lost their bet", mention(b.DiscordID)))
			}
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Bets", Value: strings.Join(lines, "\n")})
	}

	if len(res.Records) > 0 {
		lines := make([]string, 0, len(res.Records))
		for _, r := range res.Records {
			lines = append(lines, fmt.Sprintf("%s set a new %s record: %s", mention(r.Holder), r.Stat, formatValue(r.Value)))
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Records", Value: strings.Join(lines, "\n")})
	}

	// Format duration
	secs := int(data.Duration.Seconds())
	durationStr := fmt.Sprintf("%d:%02d", secs/60, secs%60)

	description := durationStr
	if data.Mode != "" {
		description = fmt.Sprintf("**%s** | %s", data.Mode, durationStr)
	}

	return &discordgo.MessageEmbed{
		Title:       resultText,
		Color:       color,
		Description: description,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Match ID: %s", res.MatchID),
		},
		Timestamp: res.ResolvedAt.Format(time.RFC3339),
	}
}

// createFailureEmbed tells the guild a match could not be stored
func createFailureEmbed(res *match.Result) *discordgo.MessageEmbed {
	description := "The match could not be saved and was added to the missed matches list."
	if res.Err != nil {
		description += fmt.Sprintf("\n`%v`", res.Err)
	}
	return &discordgo.MessageEmbed{
		Title:       "Match Result",
		Description: description,
		Color:       0xFF0000,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Match ID: %s | %s", res.MatchID, res.Status),
		},
	}
}

func mention(discordID int64) string {
	return fmt.Sprintf("<@%d>", discordID)
}

// reasons lists the labels of the set bits of a criteria bitstring
func reasons(criteria string, labels []string) string {
	var out []string
	for i, c := range criteria {
		if c != '1' {
			continue
		}
		if i < len(labels) {
			out = append(out, labels[i])
		} else {
			out = append(out, fmt.Sprintf("criterion %d", i+1))
		}
	}
	return strings.Join(out, ", ")
}

// formatNumber formats large numbers with commas
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", formatNumber(n/1000), n%1000)
}

func formatValue(v float64) string {
	if v == float64(int(v)) {
		return formatNumber(int(v))
	}
	return fmt.Sprintf("%.2f", v)
}
