package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/mhso/IntFar-sub002/internal/betting"
	"github.com/mhso/IntFar-sub002/internal/claim"
	"github.com/mhso/IntFar-sub002/internal/config"
	"github.com/mhso/IntFar-sub002/internal/game"
	"github.com/mhso/IntFar-sub002/internal/games/cs2"
	"github.com/mhso/IntFar-sub002/internal/games/lol"
	"github.com/mhso/IntFar-sub002/internal/match"
	"github.com/mhso/IntFar-sub002/internal/monitor"
	"github.com/mhso/IntFar-sub002/internal/notify"
	"github.com/mhso/IntFar-sub002/internal/riot"
	"github.com/mhso/IntFar-sub002/internal/steam"
	"github.com/mhso/IntFar-sub002/internal/storage"
)

// Bot represents the Discord bot instance
type Bot struct {
	config   *config.Config
	session  *discordgo.Session
	repo     *storage.Repository
	registry *game.Registry
	ledger   *betting.Ledger
	claims   claim.Claimer
	monitors map[match.GameType]*monitor.Monitor
	commands []*discordgo.ApplicationCommand
}

// New creates a new Bot instance
func New(ctx context.Context, cfg *config.Config) (*Bot, error) {
	// Create Discord session
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	// Set intents
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	// Initialize storage
	repo, err := storage.NewRepository(cfg.DatabasePath, cfg.StartingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize game registry and register modules
	registry := game.NewRegistry()
	registry.Register(lol.NewModule(riot.NewClient(cfg.RiotAPIKey, cfg.RiotRegion, cfg.RiotPlatform)))
	if cfg.SteamAPIKey != "" {
		registry.Register(cs2.NewModule(steam.NewClient(cfg.SteamAPIKey), steam.NewStatsClient(cfg.CS2StatsURL)))
	} else {
		slog.Warn("STEAM_API_KEY not set, Counter-Strike 2 tracking disabled")
	}

	var claims claim.Claimer = claim.NewMemory(cfg.ClaimTTL)
	if cfg.RedisURL != "" {
		r, err := claim.NewRedis(ctx, cfg.RedisURL, cfg.ClaimTTL)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		claims = r
	}

	b := &Bot{
		config:   cfg,
		session:  session,
		repo:     repo,
		registry: registry,
		ledger:   betting.NewLedger(repo, cfg.BetCutoff),
		claims:   claims,
		monitors: make(map[match.GameType]*monitor.Monitor),
	}

	dispatcher := notify.NewDiscord(session, repo, labels(registry))
	for _, module := range registry.GetAll() {
		b.monitors[module.Type()] = monitor.New(module, repo, b.ledger, claims, dispatcher, b.monitorConfig(module.Type()))
	}

	// Register event handlers
	b.registerHandlers()

	return b, nil
}

func (b *Bot) monitorConfig(gameType match.GameType) monitor.Config {
	polling := b.config.LoL
	if gameType == match.GameCS2 {
		polling = b.config.CS2
	}
	return monitor.Config{
		DormantInterval:   polling.DormantInterval,
		ActiveInterval:    polling.ActiveInterval,
		LeaveGrace:        polling.LeaveGrace,
		TokenPollInterval: b.config.TokenPollInterval,
		FetchAttempts:     b.config.FetchAttempts,
		FetchBaseDelay:    b.config.FetchBaseDelay,
		FetchMaxDelay:     b.config.FetchMaxDelay,
		MinDuration:       b.config.MinMatchDuration,
	}
}

// labels collects the award names of every game for notifications
func labels(registry *game.Registry) map[match.GameType]notify.Labels {
	out := make(map[match.GameType]notify.Labels)
	for _, module := range registry.GetAll() {
		var l notify.Labels
		for _, c := range module.Qualifier().Criteria() {
			l.Criteria = append(l.Criteria, c.Name)
		}
		for _, h := range module.Qualifier().Highlights() {
			l.Highlights = append(l.Highlights, h.Name)
		}
		out[module.Type()] = l
	}
	return out
}

// Start opens the Discord connection
func (b *Bot) Start(ctx context.Context) error {
	// Open Discord connection
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	slog.Info("Connected to Discord", "user", b.session.State.User.Username)

	// Register slash commands
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the bot
func (b *Bot) Stop() error {
	// Stop the monitors first so resolving matches are ledgered
	for _, m := range b.monitors {
		m.Shutdown()
	}

	if r, ok := b.claims.(*claim.Redis); ok {
		r.Close()
	}

	// Close storage
	if b.repo != nil {
		b.repo.Close()
	}

	// Close Discord session
	if b.session != nil {
		return b.session.Close()
	}

	return nil
}

// registerHandlers sets up Discord event handlers
func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(b.handleVoiceState)
	b.session.AddHandler(b.handleGuildCreate)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Bot is ready", "guilds", len(r.Guilds))
	})
}

// handleInteraction processes slash command interactions
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	slog.Debug("Received command", "command", data.Name, "guild", i.GuildID)

	switch data.Name {
	case "register":
		b.handleRegister(s, i)
	case "unregister":
		b.handleUnregister(s, i)
	case "players":
		b.handlePlayers(s, i)
	case "bet":
		b.handleBet(s, i)
	case "cancelbet":
		b.handleCancelBet(s, i)
	case "balance":
		b.handleBalance(s, i)
	case "status":
		b.handleStatus(s, i)
	case "setchannel":
		b.handleSetChannel(s, i)
	case "games":
		b.handleGames(s, i)
	case "stats":
		b.handleStats(s, i)
	case "missed":
		b.handleMissed(s, i)
	default:
		slog.Warn("Unknown command", "command", data.Name)
	}
}
