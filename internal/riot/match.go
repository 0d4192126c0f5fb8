package riot

import (
	"context"
	"errors"
	"fmt"
)

// Match represents match data from the Match-V5 API
type Match struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

// MatchMetadata contains match metadata
type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

// MatchInfo contains detailed match information
type MatchInfo struct {
	GameDuration       int64         `json:"gameDuration"` // in seconds
	GameMode           string        `json:"gameMode"`
	GameType           string        `json:"gameType"`
	MapID              int           `json:"mapId"`
	QueueID            int           `json:"queueId"`
	GameCreation       int64         `json:"gameCreation"`       // Unix timestamp in ms
	GameStartTimestamp int64         `json:"gameStartTimestamp"` // Unix timestamp in ms
	GameEndTimestamp   int64         `json:"gameEndTimestamp"`   // Unix timestamp in ms
	Participants       []Participant `json:"participants"`
}

// Participant represents a player in the match
type Participant struct {
	PUUID                       string      `json:"puuid"`
	RiotIdGameName              string      `json:"riotIdGameName"`
	RiotIdTagline               string      `json:"riotIdTagline"`
	ChampionName                string      `json:"championName"`
	ChampionID                  int         `json:"championId"`
	TeamID                      int         `json:"teamId"`
	Win                         bool        `json:"win"`
	GameEndedInEarlySurrender   bool        `json:"gameEndedInEarlySurrender"`
	Kills                       int         `json:"kills"`
	Deaths                      int         `json:"deaths"`
	Assists                     int         `json:"assists"`
	PentaKills                  int         `json:"pentaKills"`
	TotalMinionsKilled          int         `json:"totalMinionsKilled"`
	NeutralMinionsKilled        int         `json:"neutralMinionsKilled"`
	GoldEarned                  int         `json:"goldEarned"`
	TotalDamageDealtToChampions int         `json:"totalDamageDealtToChampions"`
	VisionScore                 int         `json:"visionScore"`
	WardsPlaced                 int         `json:"wardsPlaced"`
	Challenges                  *Challenges `json:"challenges,omitempty"`
}

// Challenges holds the derived per-player metrics Riot computes
type Challenges struct {
	KillParticipation float64 `json:"killParticipation"`
}

// GetMatch retrieves detailed match information. It returns nil, nil while
// the match has not been published yet.
func (c *Client) GetMatch(ctx context.Context, matchID string) (*Match, error) {
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.regionalURL, matchID)

	var match Match
	if err := c.get(ctx, endpoint, &match); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	return &match, nil
}

// QueueCustom is the queue id of custom games
const QueueCustom = 0

var queueNames = map[int]string{
	420:  "Ranked Solo/Duo",
	440:  "Ranked Flex",
	400:  "Normal Draft",
	430:  "Normal Blind",
	450:  "ARAM",
	490:  "Quickplay",
	900:  "URF",
	1020: "One for All",
	1300: "Nexus Blitz",
	1400: "Ultimate Spellbook",
	1700: "Arena",
}

// GetQueueName returns a human-readable queue name
func GetQueueName(queueID int) string {
	if name, ok := queueNames[queueID]; ok {
		return name
	}
	return "Custom Game"
}

// IsKnownQueue reports whether the queue is a matchmade queue the bot scores
func IsKnownQueue(queueID int) bool {
	_, ok := queueNames[queueID]
	return ok
}
