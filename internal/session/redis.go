package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

const (
	redisSessionPrefix   = "session:"
	redisDisplayNamesKey = "display_names"
)

// RedisStore keeps sessions as JSON values. Sessions expire together with
// the cookie that references them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return redisSessionPrefix + id
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}

// DeleteCreatedBefore has nothing to do: redis drops sessions by TTL.
func (r *RedisStore) DeleteCreatedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) SetDisplayName(ctx context.Context, userID domain.ID, name string) error {
	if err := r.client.HSet(ctx, redisDisplayNamesKey, userID.String(), name).Err(); err != nil {
		return fmt.Errorf("failed to save display name: %w", err)
	}
	return nil
}

func (r *RedisStore) DisplayName(ctx context.Context, userID domain.ID) (string, error) {
	name, err := r.client.HGet(ctx, redisDisplayNamesKey, userID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load display name: %w", err)
	}
	return name, nil
}
