package session

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport failure returned by [Store].
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrHandoffCorrupt is returned when a stored refresh result cannot be decoded.
var ErrHandoffCorrupt = errors.New("refresh handoff corrupt")

const minHandoffTTL = time.Second

// claimHandoffScript stores ARGV[1] under KEYS[1] unless a value is already
// present, and returns whichever value ends up stored.
const claimHandoffScript = `
local current = redis.call("GET", KEYS[1])
if current then
  return current
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return ARGV[1]
`

var claimHandoffLua = redis.NewScript(claimHandoffScript)

// Handoff is the outcome of one refresh exchange, shared between replicas
// that received the same refresh token at about the same time.
type Handoff struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Store keeps revoked token IDs and refresh hand-offs in Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a [Store] backed by the given Redis client. prefix sets
// the key namespace and defaults to "gb".
//
//	Docs: docs/session.md
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "gb"
	}
	return &Store{redis: redis, prefix: prefix}
}

func (s *Store) revokedKey(tokenID string) string {
	return s.prefix + ":rv:" + tokenID
}

func (s *Store) handoffKey(refreshToken string) string {
	return s.prefix + ":rh:" + HashToken(refreshToken)
}

// HashToken returns the key-safe digest used in place of raw token material.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Revoke records tokenID as revoked until the token would have expired on
// its own. A past or zero expiry is a no-op.
//
//	Performance: 1 Redis SET.
func (s *Store) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, s.revokedKey(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been revoked.
//
//	Performance: 1 Redis EXISTS.
func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, s.revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// ClaimHandoff publishes h as the result of exchanging refreshToken. When
// another replica already published a result for the same token, that result
// is returned instead and h is discarded, so every caller converges on one
// token pair.
//
//	Performance: 1 Redis EVALSHA.
func (s *Store) ClaimHandoff(ctx context.Context, refreshToken string, h Handoff, ttl time.Duration) (*Handoff, error) {
	if ttl < minHandoffTTL {
		ttl = minHandoffTTL
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}

	raw, err := claimHandoffLua.Run(ctx, s.redis, []string{s.handoffKey(refreshToken)}, data, ttl.Milliseconds()).Text()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return decodeHandoff(raw)
}

// LoadHandoff returns the published result for refreshToken, or nil when
// there is none.
//
//	Performance: 1 Redis GET.
func (s *Store) LoadHandoff(ctx context.Context, refreshToken string) (*Handoff, error) {
	raw, err := s.redis.Get(ctx, s.handoffKey(refreshToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return decodeHandoff(raw)
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func decodeHandoff(raw string) (*Handoff, error) {
	var h Handoff
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandoffCorrupt, err)
	}
	if h.AccessToken == "" {
		return nil, ErrHandoffCorrupt
	}
	return &h, nil
}
