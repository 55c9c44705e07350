package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"accessx/internal/proof"
)

// ErrChallengeNotFound reports a login challenge that never existed, expired,
// or was already redeemed.
var ErrChallengeNotFound = errors.New("login challenge not found or expired")

// ChallengeStore issues and redeems one-time nonces for wallet sign-in.
// Redeem consumes the challenge so each one authenticates at most once.
type ChallengeStore interface {
	Issue(ctx context.Context, wallet string) (string, error)
	Redeem(ctx context.Context, wallet string) (string, error)
}

const challengeKeyPrefix = "accessx:login:"

// RedisChallenges keeps challenges in Redis with a TTL.
type RedisChallenges struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisChallenges creates a redis-backed store.
func NewRedisChallenges(rdb *redis.Client, ttl time.Duration) *RedisChallenges {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisChallenges{rdb: rdb, ttl: ttl}
}

// Issue creates a fresh challenge for the wallet, replacing any pending one.
func (c *RedisChallenges) Issue(ctx context.Context, wallet string) (string, error) {
	nonce, err := proof.NewNonce()
	if err != nil {
		return "", err
	}
	key := challengeKeyPrefix + proof.NormalizeAddress(wallet)
	if err := c.rdb.Set(ctx, key, nonce, c.ttl).Err(); err != nil {
		return "", err
	}
	return nonce, nil
}

// Redeem consumes and returns the wallet's pending challenge.
func (c *RedisChallenges) Redeem(ctx context.Context, wallet string) (string, error) {
	key := challengeKeyPrefix + proof.NormalizeAddress(wallet)
	val, err := c.rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrChallengeNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// MemoryChallenges is an in-process store for dev and tests.
type MemoryChallenges struct {
	mu      sync.Mutex
	pending map[string]memChallenge
	ttl     time.Duration
	now     func() time.Time
}

type memChallenge struct {
	nonce   string
	expires time.Time
}

// NewMemoryChallenges creates an in-memory store.
func NewMemoryChallenges(ttl time.Duration) *MemoryChallenges {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryChallenges{pending: make(map[string]memChallenge), ttl: ttl, now: time.Now}
}

// Issue creates a fresh challenge for the wallet.
func (c *MemoryChallenges) Issue(_ context.Context, wallet string) (string, error) {
	nonce, err := proof.NewNonce()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.pending[proof.NormalizeAddress(wallet)] = memChallenge{nonce: nonce, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nonce, nil
}

// Redeem consumes and returns the wallet's pending challenge.
func (c *MemoryChallenges) Redeem(_ context.Context, wallet string) (string, error) {
	key := proof.NormalizeAddress(wallet)
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[key]
	if !ok || c.now().After(ch.expires) {
		delete(c.pending, key)
		return "", ErrChallengeNotFound
	}
	delete(c.pending, key)
	return ch.nonce, nil
}
