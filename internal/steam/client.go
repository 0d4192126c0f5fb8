package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Steam Web API host
	BaseURL = "https://api.steampowered.com"

	// AppCS2 is the Steam app id of Counter-Strike 2
	AppCS2 = "730"

	noNextCode = "n/a"
)

// Client is a Steam Web API client with rate limiting
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Steam API client
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: BaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		// Steam allows 100k calls a day; stay well below a call per second
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

// WithBaseURL points the client at another host, used by tests
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// PlayerSummary is the subset of GetPlayerSummaries the bot reads
type PlayerSummary struct {
	SteamID     string `json:"steamid"`
	PersonaName string `json:"personaname"`
	GameID      string `json:"gameid"`
}

// InGame reports whether the player is currently running the app
func (p *PlayerSummary) InGame(appID string) bool {
	return p.GameID == appID
}

// GetPlayerSummary returns the profile and presence of one player
func (c *Client) GetPlayerSummary(ctx context.Context, steamID string) (*PlayerSummary, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("steamids", steamID)
	endpoint := fmt.Sprintf("%s/ISteamUser/GetPlayerSummaries/v2/?%s", c.baseURL, q.Encode())

	var body struct {
		Response struct {
			Players []PlayerSummary `json:"players"`
		} `json:"response"`
	}
	status, err := c.get(ctx, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to get player summary: %w", err)
	}
	if status != http.StatusOK || len(body.Response.Players) == 0 {
		return nil, fmt.Errorf("player %s not found", steamID)
	}
	return &body.Response.Players[0], nil
}

// GetNextMatchSharingCode returns the share code of the match following
// knownCode, or "" when the player has not finished a newer match
func (c *Client) GetNextMatchSharingCode(ctx context.Context, steamID, authCode, knownCode string) (string, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("steamid", steamID)
	q.Set("steamidkey", authCode)
	q.Set("knowncode", knownCode)
	endpoint := fmt.Sprintf("%s/ICSGOPlayers_730/GetNextMatchSharingCode/v1?%s", c.baseURL, q.Encode())

	var body struct {
		Result struct {
			NextCode string `json:"nextcode"`
		} `json:"result"`
	}
	status, err := c.get(ctx, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to get next sharing code: %w", err)
	}
	// 202 means the known code is the newest one
	if status == http.StatusAccepted || body.Result.NextCode == noNextCode {
		return "", nil
	}
	return body.Result.NextCode, nil
}

var errRejected = errors.New("steam: request rejected")

func (c *Client) get(ctx context.Context, endpoint string, result interface{}) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
	case http.StatusForbidden, http.StatusPreconditionFailed:
		// 412 is returned for a wrong auth code or unknown known code
		return resp.StatusCode, fmt.Errorf("%w: status %d", errRejected, resp.StatusCode)
	default:
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}
