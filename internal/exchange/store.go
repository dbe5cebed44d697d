package exchange

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// After a Google login the callback stores a one-time code here and
// redirects with it; the SPA redeems the code for the real token pair.
// A code is valid for one redemption within the TTL.

const DefaultTTL = 2 * time.Minute

var ErrCodeInvalid = errors.New("exchange code invalid or already used")

// Store issues and redeems single-use login exchange codes.
type Store interface {
	Put(ctx context.Context, userID string) (string, error)
	Redeem(ctx context.Context, code string) (string, error)
}

func newCode() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RedisStore keeps codes in Redis under "oauthcode:<code>" with a TTL.
// GETDEL makes redemption atomic: a code pays out at most once even with
// concurrent redeem attempts.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: "oauthcode:", ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, userID string) (string, error) {
	code, err := newCode()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.prefix+code, userID, s.ttl).Err(); err != nil {
		return "", err
	}
	return code, nil
}

func (s *RedisStore) Redeem(ctx context.Context, code string) (string, error) {
	userID, err := s.client.GetDel(ctx, s.prefix+code).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCodeInvalid
		}
		return "", err
	}
	return userID, nil
}

// MemoryStore is the fallback when Redis is not configured. Suitable for a
// single-process deployment only.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]memoryEntry
	ttl   time.Duration
}

type memoryEntry struct {
	userID    string
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{codes: make(map[string]memoryEntry), ttl: ttl}
}

func (s *MemoryStore) Put(ctx context.Context, userID string) (string, error) {
	code, err := newCode()
	if err != nil {
		return "", err
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	// abandoned logins are never redeemed; sweep them here so the map
	// cannot grow without bound
	for k, e := range s.codes {
		if now.After(e.expiresAt) {
			delete(s.codes, k)
		}
	}
	s.codes[code] = memoryEntry{userID: userID, expiresAt: now.Add(s.ttl)}
	return code, nil
}

func (s *MemoryStore) Redeem(ctx context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.codes[code]
	if !ok {
		return "", ErrCodeInvalid
	}
	delete(s.codes, code)
	if time.Now().After(e.expiresAt) {
		return "", ErrCodeInvalid
	}
	return e.userID, nil
}
