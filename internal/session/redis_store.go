package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keySession   = "casino:session:%s"
	keyActiveFor = "casino:session:active:%s:%s"
)

// RedisStore persists active sessions in redis so multi-round bets
// survive a process restart.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	data, err := r.client.Get(ctx, fmt.Sprintf(keySession, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *RedisStore) ActiveID(ctx context.Context, userID uuid.UUID, game string) (uuid.UUID, bool, error) {
	raw, err := r.client.Get(ctx, fmt.Sprintf(keyActiveFor, userID, game)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to load active session key: %w", err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt active session key %q: %w", raw, err)
	}
	return id, true, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", s.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(keySession, s.ID), data, r.ttl)
	if s.State == StateActive {
		pipe.Set(ctx, fmt.Sprintf(keyActiveFor, s.UserID, s.Game), s.ID.String(), r.ttl)
	} else {
		pipe.Del(ctx, fmt.Sprintf(keyActiveFor, s.UserID, s.Game))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, s *Session) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(keySession, s.ID))
	pipe.Del(ctx, fmt.Sprintf(keyActiveFor, s.UserID, s.Game))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", s.ID, err)
	}
	return nil
}
