// Package storage persists players, matches, awards and the betting ledger
// in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Repository handles all database operations
type Repository struct {
	db              *sql.DB
	startingBalance int
}

// NewRepository creates a new repository with SQLite. New players start
// with startingBalance betting tokens.
func NewRepository(dbPath string, startingBalance int) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every match save is one transaction; a single connection serializes
	// writers across guild tasks.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db, startingBalance: startingBalance}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the database schema
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			discord_id INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			discord_id INTEGER NOT NULL,
			game VARCHAR(10) NOT NULL,
			account_id VARCHAR(100) NOT NULL,
			display_name VARCHAR(100) NOT NULL DEFAULT '',
			auth_code VARCHAR(100) NOT NULL DEFAULT '',
			last_token VARCHAR(100) NOT NULL DEFAULT '',
			FOREIGN KEY (discord_id) REFERENCES players(discord_id),
			UNIQUE(game, account_id)
		)`,
		`CREATE TABLE IF NOT EXISTS guild_settings (
			guild_id VARCHAR(20) PRIMARY KEY,
			notification_channel_id VARCHAR(20),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			game VARCHAR(10) NOT NULL,
			match_id VARCHAR(100) NOT NULL,
			guild_id VARCHAR(20) NOT NULL,
			started_at TIMESTAMP,
			duration_seconds INTEGER NOT NULL,
			mode VARCHAR(30) NOT NULL DEFAULT '',
			map VARCHAR(50) NOT NULL DEFAULT '',
			outcome INTEGER NOT NULL,
			saved_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (game, match_id)
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			game VARCHAR(10) NOT NULL,
			match_id VARCHAR(100) NOT NULL,
			discord_id INTEGER NOT NULL,
			account_id VARCHAR(100) NOT NULL,
			kills INTEGER NOT NULL,
			deaths INTEGER NOT NULL,
			assists INTEGER NOT NULL,
			resources INTEGER NOT NULL,
			PRIMARY KEY (game, match_id, discord_id),
			FOREIGN KEY (game, match_id) REFERENCES matches(game, match_id)
		)`,
		`CREATE TABLE IF NOT EXISTS participant_stats (
			game VARCHAR(10) NOT NULL,
			match_id VARCHAR(100) NOT NULL,
			discord_id INTEGER NOT NULL,
			stat VARCHAR(30) NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (game, match_id, discord_id, stat)
		)`,
		`CREATE TABLE IF NOT EXISTS awards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game VARCHAR(10) NOT NULL,
			match_id VARCHAR(100) NOT NULL,
			discord_id INTEGER NOT NULL,
			kind VARCHAR(10) NOT NULL,
			criteria VARCHAR(20) NOT NULL,
			points INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS match_events (
			game VARCHAR(10) NOT NULL,
			match_id VARCHAR(100) NOT NULL,
			event_id VARCHAR(50) NOT NULL,
			PRIMARY KEY (game, match_id, event_id)
		)`,
		`CREATE TABLE IF NOT EXISTS streaks (
			game VARCHAR(10) NOT NULL,
			discord_id INTEGER NOT NULL,
			outcome INTEGER NOT NULL,
			length INTEGER NOT NULL,
			PRIMARY KEY (game, discord_id)
		)`,
		`CREATE TABLE IF NOT EXISTS missed_matches (
			game VARCHAR(10) NOT NULL,
			match_id VARCHAR(100) NOT NULL,
			guild_id VARCHAR(20) NOT NULL,
			missed_at TIMESTAMP NOT NULL,
			UNIQUE(game, match_id)
		)`,
		`CREATE TABLE IF NOT EXISTS balances (
			discord_id INTEGER PRIMARY KEY,
			balance INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tickets (
			ticket_id VARCHAR(36) PRIMARY KEY,
			discord_id INTEGER NOT NULL,
			guild_id VARCHAR(20) NOT NULL,
			game VARCHAR(10) NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'pending',
			match_id VARCHAR(100),
			payout INTEGER NOT NULL DEFAULT 0,
			placed_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS wagers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_id VARCHAR(36) NOT NULL,
			event_id VARCHAR(50) NOT NULL,
			target_id INTEGER NOT NULL DEFAULT 0,
			amount INTEGER NOT NULL,
			offset_ms INTEGER NOT NULL DEFAULT 0,
			result VARCHAR(10) NOT NULL DEFAULT 'pending',
			FOREIGN KEY (ticket_id) REFERENCES tickets(ticket_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_player ON accounts(discord_id)`,
		`CREATE INDEX IF NOT EXISTS idx_stats_lookup ON participant_stats(game, stat)`,
		`CREATE INDEX IF NOT EXISTS idx_events_lookup ON match_events(game, event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_pending ON tickets(game, guild_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_wagers_ticket ON wagers(ticket_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Guild settings operations

// UpsertGuildSettings creates or updates guild settings
func (r *Repository) UpsertGuildSettings(ctx context.Context, settings *GuildSettings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO guild_settings (guild_id, notification_channel_id) VALUES (?, ?)
		 ON CONFLICT(guild_id) DO UPDATE SET notification_channel_id = excluded.notification_channel_id`,
		settings.GuildID, settings.NotificationChannelID,
	)
	return err
}

// GetGuildSettings retrieves guild settings. Returns nil when the guild
// has none.
func (r *Repository) GetGuildSettings(ctx context.Context, guildID string) (*GuildSettings, error) {
	settings := &GuildSettings{}
	err := r.db.QueryRowContext(ctx,
		`SELECT guild_id, notification_channel_id, created_at FROM guild_settings WHERE guild_id = ?`,
		guildID,
	).Scan(&settings.GuildID, &settings.NotificationChannelID, &settings.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// withTx runs fn in a transaction, rolling back on error
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
