package riot

import (
	"context"
	"errors"
	"fmt"
)

// ActiveGame is the Spectator-V5 view of a game in progress
type ActiveGame struct {
	GameID            int64  `json:"gameId"`
	GameType          string `json:"gameType"`
	GameMode          string `json:"gameMode"`
	GameQueueConfigID int    `json:"gameQueueConfigId"`
	PlatformID        string `json:"platformId"`
	GameStartTime     int64  `json:"gameStartTime"` // Unix timestamp in ms, 0 while loading
	Participants      []struct {
		PUUID      string `json:"puuid"`
		ChampionID int    `json:"championId"`
		TeamID     int    `json:"teamId"`
	} `json:"participants"`
}

// MatchID returns the Match-V5 id the game will have once finished
func (g *ActiveGame) MatchID() string {
	return fmt.Sprintf("%s_%d", g.PlatformID, g.GameID)
}

// GetActiveGame returns the game the player is in, or nil when the player
// is not in a game
func (c *Client) GetActiveGame(ctx context.Context, puuid string) (*ActiveGame, error) {
	endpoint := fmt.Sprintf("%s/lol/spectator/v5/active-games/by-summoner/%s", c.platformURL, puuid)

	var game ActiveGame
	if err := c.get(ctx, endpoint, &game); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active game: %w", err)
	}
	if game.PlatformID == "" {
		return nil, fmt.Errorf("active game without platform id")
	}
	return &game, nil
}
