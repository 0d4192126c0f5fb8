// Package claim guarantees a finished match is resolved by a single guild
// task, even when several guilds (or processes) track the same players.
package claim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mhso/IntFar-sub002/internal/match"
)

// Claimer hands out exclusive ownership of a match id.
type Claimer interface {
	// Claim returns true for the first caller only.
	Claim(ctx context.Context, game match.GameType, matchID string) (bool, error)
	// Release gives up a claim so the match can be retried.
	Release(ctx context.Context, game match.GameType, matchID string) error
}

func key(game match.GameType, matchID string) string {
	return fmt.Sprintf("intfar:claim:%s:%s", game, matchID)
}

// Redis claims matches with SET NX, shared by every process on the server.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to redisURL and verifies the connection.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

// Claim implements Claimer
func (r *Redis) Claim(ctx context.Context, game match.GameType, matchID string) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, key(game, matchID), time.Now().Unix(), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim match %s: %w", matchID, err)
	}
	return ok, nil
}

// Release implements Claimer
func (r *Redis) Release(ctx context.Context, game match.GameType, matchID string) error {
	return r.rdb.Del(ctx, key(game, matchID)).Err()
}

// Close closes the redis connection
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// Memory claims matches within one process.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	claimed map[string]time.Time
	now     func() time.Time
}

// NewMemory creates an in-process Claimer. Claims expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		claimed: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Claim implements Claimer
func (m *Memory) Claim(_ context.Context, game match.GameType, matchID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(game, matchID)
	now := m.now()
	if at, ok := m.claimed[k]; ok && (m.ttl <= 0 || now.Sub(at) < m.ttl) {
		return false, nil
	}
	m.claimed[k] = now
	return true, nil
}

// Release implements Claimer
func (m *Memory) Release(_ context.Context, game match.GameType, matchID string) error {
	m.mu.Lock()
	delete(m.claimed, key(game, matchID))
	m.mu.Unlock()
	return nil
}
