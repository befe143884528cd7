package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore remembers sessions that were ended before their token expired
// (logout, account deletion). Entries only need to live as long as the token.
type SessionStore interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

var (
	_ SessionStore = (*MemorySessionStore)(nil)
	_ SessionStore = (*RedisSessionStore)(nil)
)

// MemorySessionStore keeps revoked sessions in process memory. It is the
// default when no Redis address is configured; revocations are lost on restart.
type MemorySessionStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time // session ID -> forget after
	now     func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemorySessionStore) Revoke(_ context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // token already expired, nothing to remember
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.revoked[sessionID] = now.Add(ttl)

	// Drop entries whose tokens have expired anyway.
	for id, until := range s.revoked {
		if !now.Before(until) {
			delete(s.revoked, id)
		}
	}
	return nil
}

func (s *MemorySessionStore) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.revoked[sessionID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.revoked, sessionID)
		return false, nil
	}
	return true, nil
}

const revokedKeyPrefix = "session:revoked:"

// RedisSessionStore keeps revoked sessions in Redis with a TTL equal to the
// token's remaining lifetime, so several server instances share logouts.
//
// Unlike a cache, errors are returned: a session must not be treated as live
// because Redis was unreachable.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+sessionID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoking session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisSessionStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	err := s.client.Get(ctx, revokedKeyPrefix+sessionID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("auth: checking session %s: %w", sessionID, err)
	}
	return true, nil
}
