package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnparsable is returned when the stats service could not parse the
// match demo
var ErrUnparsable = errors.New("steam: demo could not be parsed")

// MatchStats is a parsed CS2 match as served by the demo stats service
type MatchStats struct {
	ShareCode       string        `json:"share_code"`
	Map             string        `json:"map"`
	Mode            string        `json:"mode"`
	StartedAt       time.Time     `json:"started_at"`
	DurationSeconds int64         `json:"duration_seconds"`
	Players         []PlayerStats `json:"players"`
}

// PlayerStats is one scoreboard line
type PlayerStats struct {
	SteamID        string  `json:"steam_id"`
	Team           int     `json:"team"`
	RoundsWon      int     `json:"rounds_won"`
	RoundsLost     int     `json:"rounds_lost"`
	Kills          int     `json:"kills"`
	Deaths         int     `json:"deaths"`
	Assists        int     `json:"assists"`
	ADR            float64 `json:"adr"`
	HeadshotPct    float64 `json:"hs_pct"`
	MVPs           int     `json:"mvps"`
	Score          int     `json:"score"`
	MoneySpent     int     `json:"money_spent"`
	Aces           int     `json:"aces"`
	Quads          int     `json:"quads"`
	EnemiesFlashed int     `json:"enemies_flashed"`
}

// StatsClient fetches parsed matches from the demo stats service
type StatsClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewStatsClient creates a stats service client
func NewStatsClient(baseURL string) *StatsClient {
	return &StatsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetMatch returns the parsed match for a share code. It returns nil, nil
// while the demo is still being downloaded or parsed.
func (s *StatsClient) GetMatch(ctx context.Context, shareCode string) (*MatchStats, error) {
	endpoint := fmt.Sprintf("%s/matches/%s", s.baseURL, url.PathEscape(shareCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusAccepted:
		return nil, nil
	case http.StatusUnprocessableEntity:
		return nil, ErrUnparsable
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stats API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var stats MatchStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode match: %w", err)
	}
	return &stats, nil
}
