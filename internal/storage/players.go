package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mhso/IntFar-sub002/internal/match"
)

// Player operations

// CreatePlayer registers a player, reactivating them if they were
// unregistered before.
func (r *Repository) CreatePlayer(ctx context.Context, p *match.Player) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO players (discord_id, name, active) VALUES (?, ?, 1)
			 ON CONFLICT(discord_id) DO UPDATE SET name = excluded.name, active = 1`,
			p.DiscordID, p.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to save player: %w", err)
		}
		return r.ensureBalance(ctx, tx, p.DiscordID)
	})
}

// AddAccount links a game account to a player. Registering an account that
// is already known updates its display name and auth code.
func (r *Repository) AddAccount(ctx context.Context, discordID int64, a match.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (discord_id, game, account_id, display_name, auth_code, last_token)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(game, account_id) DO UPDATE SET
			discord_id = excluded.discord_id,
			display_name = excluded.display_name,
			auth_code = excluded.auth_code`,
		discordID, a.Game, a.ID, a.DisplayName, a.AuthCode, a.LastToken,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// DeactivatePlayer soft-deletes a player. Historical rows keep pointing at
// them.
func (r *Repository) DeactivatePlayer(ctx context.Context, discordID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE players SET active = 0 WHERE discord_id = ?`, discordID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return match.ErrPlayerNotFound
	}
	return nil
}

// GetPlayer returns a player with all their accounts
func (r *Repository) GetPlayer(ctx context.Context, discordID int64) (*match.Player, error) {
	p := &match.Player{}
	err := r.db.QueryRowContext(ctx,
		`SELECT discord_id, name, active, created_at FROM players WHERE discord_id = ?`,
		discordID,
	).Scan(&p.DiscordID, &p.Name, &p.Active, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, match.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}

	accounts, err := r.accounts(ctx, `WHERE discord_id = ?`, discordID)
	if err != nil {
		return nil, err
	}
	p.Accounts = accounts[discordID]
	return p, nil
}

// ActivePlayers returns every active player with at least one account for
// the game. Only accounts of that game are included.
func (r *Repository) ActivePlayers(ctx context.Context, game match.GameType) ([]match.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT p.discord_id, p.name, p.active, p.created_at
		 FROM players p
		 JOIN accounts a ON a.discord_id = p.discord_id
		 WHERE p.active = 1 AND a.game = ?
		 ORDER BY p.discord_id`,
		game,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []match.Player
	for rows.Next() {
		var p match.Player
		if err := rows.Scan(&p.DiscordID, &p.Name, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	accounts, err := r.accounts(ctx, `WHERE game = ?`, game)
	if err != nil {
		return nil, err
	}
	for i := range players {
		players[i].Accounts = accounts[players[i].DiscordID]
	}
	return players, nil
}

func (r *Repository) accounts(ctx context.Context, where string, args ...interface{}) (map[int64][]match.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT discord_id, game, account_id, display_name, auth_code, last_token FROM accounts `+where+` ORDER BY id`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]match.Account)
	for rows.Next() {
		var id int64
		var a match.Account
		if err := rows.Scan(&id, &a.Game, &a.ID, &a.DisplayName, &a.AuthCode, &a.LastToken); err != nil {
			return nil, err
		}
		out[id] = append(out[id], a)
	}
	return out, rows.Err()
}

// UpdateAccountToken stores the newest consumed match token of an account
func (r *Repository) UpdateAccountToken(ctx context.Context, game match.GameType, accountID, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET last_token = ? WHERE game = ? AND account_id = ?`,
		token, game, accountID,
	)
	return err
}
