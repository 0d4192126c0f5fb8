package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mhso/IntFar-sub002/internal/game"
	"github.com/mhso/IntFar-sub002/internal/match"
	"github.com/mhso/IntFar-sub002/internal/storage"
)

// buildGameChoices creates the game selection choices for slash commands
func (b *Bot) buildGameChoices() []*discordgo.ApplicationCommandOptionChoice {
	games := b.registry.List()
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(games))
	for i, g := range games {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{
			Name:  g.Name,
			Value: string(g.Type),
		}
	}
	return choices
}

func (b *Bot) gameOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "game",
		Description: "The game (e.g., lol)",
		Required:    true,
		Choices:     b.buildGameChoices(),
	}
}

// Slash command definitions
func (b *Bot) getCommandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "register",
			Description: "Register one of your accounts for match tracking",
			Options: []*discordgo.ApplicationCommandOption{
				b.gameOption(),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "player_id",
					Description: "Account (Faker#KR1 for LoL, '<steam id> <auth code> <share code>' for CS2)",
					Required:    true,
				},
			},
		},
		{
			Name:        "unregister",
			Description: "Stop tracking your matches",
		},
		{
			Name:        "players",
			Description: "List all tracked players",
		},
		{
			Name:        "bet",
			Description: "Bet tokens on the next match",
			Options: []*discordgo.ApplicationCommandOption{
				b.gameOption(),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "bets",
					Description: "<amount> <event> [@player], several joined with &",
					Required:    true,
				},
			},
		},
		{
			Name:        "cancelbet",
			Description: "Cancel a pending bet ticket and get your tokens back",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "ticket",
					Description: "Ticket id",
					Required:    true,
				},
			},
		},
		{
			Name:        "balance",
			Description: "Show your betting tokens",
		},
		{
			Name:        "status",
			Description: "Show match tracking status in this server",
		},
		{
			Name:        "setchannel",
			Description: "Set the channel for match notifications",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "The channel to send notifications to",
					Required:    true,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildText,
					},
				},
			},
		},
		{
			Name:        "games",
			Description: "List all supported games and their bet events",
		},
		{
			Name:        "stats",
			Description: "Show Int-Far counts and your current streak",
			Options:     []*discordgo.ApplicationCommandOption{b.gameOption()},
		},
		{
			Name:                     "missed",
			Description:              "List matches that could not be saved and their held bets",
			DefaultMemberPermissions: &adminPermission,
		},
	}
}

var adminPermission int64 = discordgo.PermissionManageServer

// registerCommands replaces the global slash commands with the current set.
// The application id defaults to the bot user id.
func (b *Bot) registerCommands() error {
	slog.Info("Registering slash commands")

	appID := b.config.DiscordApplicationID
	if appID == "" {
		appID = b.session.State.User.ID
	}

	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, "", b.getCommandDefinitions())
	if err != nil {
		return fmt.Errorf("failed to register commands for application %s: %w", appID, err)
	}
	for _, cmd := range registered {
		slog.Debug("Registered command", "name", cmd.Name)
	}

	b.commands = registered
	slog.Info("Slash commands registered", "application", appID, "count", len(registered))
	return nil
}

func commandUser(i *discordgo.InteractionCreate) (*discordgo.User, int64) {
	u := i.User
	if i.Member != nil {
		u = i.Member.User
	}
	if u == nil {
		return nil, 0
	}
	id, _ := strconv.ParseInt(u.ID, 10, 64)
	return u, id
}

// handleRegister handles the /register command
func (b *Bot) handleRegister(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	gameType := options[0].StringValue()
	playerID := options[1].StringValue()
	user, discordID := commandUser(i)
	if user == nil {
		return
	}

	// Respond immediately to avoid timeout
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})

	module, err := b.registry.Get(match.GameType(gameType))
	if err != nil {
		b.editResponse(s, i, fmt.Sprintf("Unknown game: `%s`. Use `/games` to see supported games.", gameType))
		return
	}

	// Validate player ID format
	if err := module.ValidatePlayerID(playerID); err != nil {
		b.editResponse(s, i, fmt.Sprintf("Invalid player ID format: %s", err.Error()))
		return
	}

	// Look up account from game API
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	account, err := module.ResolveAccount(ctx, playerID)
	if err != nil {
		slog.Error("Failed to look up player", "playerID", playerID, "error", err)
		b.editResponse(s, i, "Could not find that account. Please check the ID and try again.")
		return
	}

	if err := b.repo.CreatePlayer(ctx, &match.Player{DiscordID: discordID, Name: user.Username}); err != nil {
		slog.Error("Failed to save player", "error", err)
		b.editResponse(s, i, "Failed to register player. Please try again.")
		return
	}
	if err := b.repo.AddAccount(ctx, discordID, *account); err != nil {
		slog.Error("Failed to save account", "error", err)
		b.editResponse(s, i, "Failed to register account. Please try again.")
		return
	}

	slog.Info("Registered account", "player", discordID, "game", gameType, "account", account.ID)
	b.editResponse(s, i, fmt.Sprintf("Successfully registered `%s` for %s match tracking!", account.DisplayName, module.Name()))
}

// handleUnregister handles the /unregister command
func (b *Bot) handleUnregister(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_, discordID := commandUser(i)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	player, err := b.repo.GetPlayer(ctx, discordID)
	if err == nil {
		err = b.repo.DeactivatePlayer(ctx, discordID)
	}
	if errors.Is(err, match.ErrPlayerNotFound) {
		respondWithMessage(s, i, "You are not registered.")
		return
	}
	if err != nil {
		slog.Error("Failed to unregister player", "error", err)
		respondWithMessage(s, i, "Failed to unregister. Please try again.")
		return
	}

	for _, m := range b.monitors {
		m.PlayerLeftVoice(*player, i.GuildID)
	}
	respondWithMessage(s, i, "You are no longer tracked. Your match history is kept.")
}

// handlePlayers handles the /players command
func (b *Bot) handlePlayers(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("**Registered Players:**\n\n")

	found := false
	for _, module := range b.registry.GetAll() {
		players, err := b.repo.ActivePlayers(ctx, module.Type())
		if err != nil {
			slog.Error("Failed to get players", "game", module.Type(), "error", err)
			respondWithMessage(s, i, "Failed to retrieve player list.")
			return
		}
		if len(players) == 0 {
			continue
		}
		found = true

		sb.WriteString(fmt.Sprintf("**%s:**\n", module.Name()))
		for idx, p := range players {
			names := make([]string, 0, len(p.Accounts))
			for _, a := range p.Accounts {
				names = append(names, a.DisplayName)
			}
			sb.WriteString(fmt.Sprintf("  %d. <@%d> `%s`\n", idx+1, p.DiscordID, strings.Join(names, "`, `")))
		}
		sb.WriteString("\n")
	}

	if !found {
		respondWithMessage(s, i, "No players are registered.\nUse `/register` to add one!\nUse `/games` to see supported games.")
		return
	}
	respondWithMessage(s, i, sb.String())
}

// handleBet handles the /bet command
func (b *Bot) handleBet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	gameType := match.GameType(options[0].StringValue())
	_, discordID := commandUser(i)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	module, err := b.registry.Get(gameType)
	if err != nil {
		respondWithMessage(s, i, fmt.Sprintf("Unknown game: `%s`.", gameType))
		return
	}
	balance, err := b.ledger.Balance(ctx, discordID)
	if err != nil {
		slog.Error("Failed to get balance", "error", err)
		respondWithMessage(s, i, "Failed to place bet. Please try again.")
		return
	}
	wagers, err := parseWagers(options[1].StringValue(), balance)
	if err != nil {
		respondWithMessage(s, i, fmt.Sprintf("Invalid bet: %s", err.Error()))
		return
	}

	ticket := match.Ticket{
		DiscordID: discordID,
		GuildID:   i.GuildID,
		Game:      gameType,
		Wagers:    wagers,
	}
	var placed *match.Ticket
	offset, err := b.monitors[gameType].BetOffset(i.GuildID)
	if err == nil {
		placed, err = b.ledger.PlaceTicket(ctx, module.Bets(), ticket, offset)
	}
	switch {
	case errors.Is(err, match.ErrBettingClosed):
		respondWithMessage(s, i, "Betting is closed for the current match.")
		return
	case errors.Is(err, match.ErrInsufficientFunds):
		respondWithMessage(s, i, fmt.Sprintf("You only have %d tokens.", balance))
		return
	case errors.Is(err, match.ErrUnknownEvent):
		respondWithMessage(s, i, "Unknown bet event. Use `/games` to see the events.")
		return
	case err != nil:
		respondWithMessage(s, i, fmt.Sprintf("Invalid bet: %s", err.Error()))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Bet placed! Ticket `%s`\n", placed.ID))
	for _, w := range placed.Wagers {
		e, _ := module.Bets().Event(w.EventID)
		line := fmt.Sprintf("- %d tokens on **%s**", w.Amount, e.Description)
		if w.Targeted() {
			line += fmt.Sprintf(" for <@%d>", w.TargetID)
		}
		sb.WriteString(line + "\n")
	}
	if offset > 0 {
		sb.WriteString(fmt.Sprintf("Placed %d minutes into the match, the payout is reduced.", int(offset.Minutes())))
	}
	respondWithMessage(s, i, sb.String())
}

// handleCancelBet handles the /cancelbet command. Tickets can only be
// cancelled while no match is running.
func (b *Bot) handleCancelBet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ticketID := i.ApplicationCommandData().Options[0].StringValue()
	_, discordID := commandUser(i)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ticket, err := b.repo.GetTicket(ctx, ticketID)
	if err != nil || ticket.DiscordID != discordID {
		respondWithMessage(s, i, "No such ticket.")
		return
	}
	if m, ok := b.monitors[ticket.Game]; ok && m.Snapshot(ticket.GuildID).Active {
		respondWithMessage(s, i, "The match has already started, the bet can no longer be cancelled.")
		return
	}

	refund, err := b.ledger.CancelTicket(ctx, *ticket)
	if errors.Is(err, match.ErrTicketNotFound) {
		respondWithMessage(s, i, "That ticket is already resolved.")
		return
	}
	if err != nil {
		slog.Error("Failed to cancel ticket", "ticket", ticketID, "error", err)
		respondWithMessage(s, i, "Failed to cancel the bet. Please try again.")
		return
	}
	respondWithMessage(s, i, fmt.Sprintf("Ticket cancelled, %d tokens refunded.", refund))
}

// handleBalance handles the /balance command
func (b *Bot) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_, discordID := commandUser(i)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	balance, err := b.ledger.Balance(ctx, discordID)
	if err != nil {
		slog.Error("Failed to get balance", "error", err)
		respondWithMessage(s, i, "Failed to get your balance.")
		return
	}
	respondWithMessage(s, i, fmt.Sprintf("You have **%d** tokens.", balance))
}

// handleStatus handles the /status command
func (b *Bot) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var sb strings.Builder
	for _, module := range b.registry.GetAll() {
		snap := b.monitors[module.Type()].Snapshot(i.GuildID)
		sb.WriteString(fmt.Sprintf("**%s:** ", module.Name()))
		switch {
		case snap.Active:
			sb.WriteString(fmt.Sprintf("match in progress for %d minutes", int(time.Since(snap.Started).Minutes())))
		case snap.Polling:
			sb.WriteString(fmt.Sprintf("watching %d players", len(snap.Players)))
		default:
			sb.WriteString("idle")
		}
		sb.WriteString("\n")
	}
	respondWithMessage(s, i, sb.String())
}

// handleSetChannel handles the /setchannel command
func (b *Bot) handleSetChannel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channel := i.ApplicationCommandData().Options[0].ChannelValue(s)

	settings := &storage.GuildSettings{
		GuildID:               i.GuildID,
		NotificationChannelID: channel.ID,
	}

	if err := b.repo.UpsertGuildSettings(context.Background(), settings); err != nil {
		slog.Error("Failed to save guild settings", "error", err)
		respondWithMessage(s, i, "Failed to set notification channel. Please try again.")
		return
	}

	respondWithMessage(s, i, fmt.Sprintf("Match notifications will be sent to <#%s>", channel.ID))
}

// handleGames handles the /games command
func (b *Bot) handleGames(s *discordgo.Session, i *discordgo.InteractionCreate) {
	modules := b.registry.GetAll()

	if len(modules) == 0 {
		respondWithMessage(s, i, "No games are currently supported.")
		return
	}

	var sb strings.Builder
	sb.WriteString("**Supported Games:**\n\n")

	for _, module := range modules {
		sb.WriteString(fmt.Sprintf("**%s** (`%s`)\n", module.Name(), module.Type()))
		sb.WriteString(fmt.Sprintf("  %s\n", module.Description()))
		sb.WriteString(fmt.Sprintf("  Bet events: %s\n\n", eventList(module)))
	}

	sb.WriteString("Use `/register game:<game> player_id:<id>` to start tracking!")

	respondWithMessage(s, i, sb.String())
}

// handleStats handles the /stats command
func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gameType := match.GameType(i.ApplicationCommandData().Options[0].StringValue())
	_, discordID := commandUser(i)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := b.repo.AwardCounts(ctx, gameType)
	if err != nil {
		slog.Error("Failed to get award counts", "game", gameType, "error", err)
		respondWithMessage(s, i, "Failed to get stats.")
		return
	}
	streak, err := b.repo.GetStreak(ctx, gameType, discordID)
	if err != nil {
		slog.Error("Failed to get streak", "game", gameType, "user", discordID, "error", err)
		respondWithMessage(s, i, "Failed to get stats.")
		return
	}

	var sb strings.Builder
	sb.WriteString("**Int-Far awards:**\n")
	if len(counts) == 0 {
		sb.WriteString("Nobody has been Int-Far yet.\n")
	}
	for _, c := range counts {
		sb.WriteString(fmt.Sprintf("<@%d>: %d\n", c.DiscordID, c.Count))
	}
	if streak.Length > 0 {
		sb.WriteString(fmt.Sprintf("\nYou are on a %d game %s streak.", streak.Length, streak.Outcome))
	}
	respondWithMessage(s, i, sb.String())
}

// handleMissed handles the /missed command
func (b *Bot) handleMissed(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	missed, err := b.repo.MissedMatches(ctx)
	if err != nil {
		slog.Error("Failed to list missed matches", "error", err)
		respondWithMessage(s, i, "Failed to list missed matches.")
		return
	}

	var sb strings.Builder
	for _, m := range missed {
		if m.GuildID != i.GuildID {
			continue
		}
		sb.WriteString(fmt.Sprintf("`%s` %s (%s)\n", m.Game, m.MatchID, m.MissedAt.Format(time.RFC3339)))
	}

	held, err := b.repo.HeldTickets(ctx, i.GuildID)
	if err != nil {
		slog.Error("Failed to list held tickets", "guild", i.GuildID, "error", err)
	}
	if len(held) > 0 {
		sb.WriteString("\n**Held bets:**\n")
		for _, t := range held {
			sb.WriteString(fmt.Sprintf("`%s` <@%d> %d tokens on %s\n", t.ID, t.DiscordID, t.Stake(), t.MatchID))
		}
	}

	if sb.Len() == 0 {
		respondWithMessage(s, i, "No missed matches.")
		return
	}
	respondWithMessage(s, i, "**Missed matches:**\n"+sb.String())
}

func eventList(module game.Module) string {
	events := module.Bets().Events()
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, "`"+e.ID+"`")
	}
	return strings.Join(ids, ", ")
}

// Helper functions

func respondWithMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

func (b *Bot) editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
}
