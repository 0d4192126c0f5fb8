package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mhso/IntFar-sub002/internal/match"
)

// handleVoiceState feeds voice joins and leaves to every monitor. Moving
// between channels of one guild is neither.
func (b *Bot) handleVoiceState(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	wasIn := vs.BeforeUpdate != nil && vs.BeforeUpdate.ChannelID != ""
	isIn := vs.ChannelID != ""
	if wasIn == isIn {
		return
	}
	b.voiceChanged(vs.GuildID, vs.UserID, isIn)
}

// handleGuildCreate seeds voice presence for players already in voice when
// the bot connects.
func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	for _, vs := range g.VoiceStates {
		if vs.ChannelID != "" {
			b.voiceChanged(g.ID, vs.UserID, true)
		}
	}
}

func (b *Bot) voiceChanged(guildID, userID string, joined bool) {
	discordID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	player, err := b.repo.GetPlayer(ctx, discordID)
	if errors.Is(err, match.ErrPlayerNotFound) {
		return
	}
	if err != nil {
		slog.Error("Failed to look up player", "player", discordID, "error", err)
		return
	}
	if !player.Active && joined {
		return
	}

	for _, m := range b.monitors {
		if joined {
			m.PlayerJoinedVoice(*player, guildID)
		} else {
			m.PlayerLeftVoice(*player, guildID)
		}
	}
	slog.Debug("Voice presence changed", "guild", guildID, "player", discordID, "joined", joined)
}
