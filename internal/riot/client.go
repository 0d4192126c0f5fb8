package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the API answers 404
var ErrNotFound = errors.New("riot: not found")

// Client is a Riot Games API client with rate limiting
type Client struct {
	apiKey      string
	regionalURL string // account-v1, match-v5
	platformURL string // spectator-v5
	platform    string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a new Riot API client. region is a regional routing
// value (e.g. "europe") and platform a platform id (e.g. "euw1").
func NewClient(apiKey, region, platform string) *Client {
	return &Client{
		apiKey:      apiKey,
		regionalURL: fmt.Sprintf("https://%s.api.riotgames.com", region),
		platformURL: fmt.Sprintf("https://%s.api.riotgames.com", platform),
		platform:    platform,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		// Personal keys allow 20 requests per second
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
	}
}

// WithBaseURLs points the client at other hosts, used by tests
func (c *Client) WithBaseURLs(regional, platform string) *Client {
	c.regionalURL = regional
	c.platformURL = platform
	return c
}

// doRequest performs an HTTP request with rate limiting
func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-Riot-Token", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		// Handle rate limiting (429): wait and retry once
		if resp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			resp.Body.Close()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryAfter(resp)):
			}
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("rate limited")
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			return d
		}
	}
	return time.Second
}

// get performs a GET request and decodes the JSON response
func (c *Client) get(ctx context.Context, url string, result interface{}) error {
	resp, err := c.doRequest(ctx, url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
