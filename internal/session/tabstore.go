package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TabStore binds browser tab ids to user ids in Redis. The web client
// sends a per-tab id with every request so one browser can hold separate
// logins in separate tabs; the middleware rejects a request whose tab is
// bound to a different user than its bearer token.
type TabStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTabStore connects to Redis. ttl should match the refresh-token
// lifetime so bindings expire together with the session.
func NewTabStore(addr, password string, db int, ttl time.Duration) *TabStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &TabStore{client: client, ttl: ttl}
}

// Ping verifies the Redis connection at startup.
func (s *TabStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("session: redis ping: %w", err)
	}
	return nil
}

func key(tabID string) string {
	return "session:tab:" + tabID
}

// Bind associates a tab with a user, replacing any previous binding.
func (s *TabStore) Bind(ctx context.Context, tabID, userID string) error {
	if err := s.client.Set(ctx, key(tabID), userID, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: bind tab: %w", err)
	}
	return nil
}

// UserFor returns the user bound to a tab, or "" when the tab is unbound.
func (s *TabStore) UserFor(ctx context.Context, tabID string) (string, error) {
	userID, err := s.client.Get(ctx, key(tabID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session: lookup tab: %w", err)
	}
	return userID, nil
}

// Unbind drops a tab binding on logout.
func (s *TabStore) Unbind(ctx context.Context, tabID string) error {
	if err := s.client.Del(ctx, key(tabID)).Err(); err != nil {
		return fmt.Errorf("session: unbind tab: %w", err)
	}
	return nil
}
