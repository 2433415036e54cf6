package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"xcourses_bot/internal/domain/model"
)

const fieldPrefix = "f:"

// redisStore keeps each user's state in one hash: a "step" field plus
// one prefixed field per accumulator key. The TTL bounds abandoned
// conversations; every write refreshes it.
type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) Store {
	return &redisStore{rdb: rdb, ttl: ttl}
}

func (s *redisStore) key(userID int64) string {
	return fmt.Sprintf("session:%d", userID)
}

func (s *redisStore) SetStep(ctx context.Context, userID int64, step model.Step) error {
	key := s.key(userID)
	if err := s.rdb.HSet(ctx, key, "step", string(step)).Err(); err != nil {
		return fmt.Errorf("session.SetStep: %w", err)
	}
	if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("session.SetStep: expire: %w", err)
	}
	return nil
}

func (s *redisStore) UpdateData(ctx context.Context, userID int64, data map[string]string) error {
	if len(data) == 0 {
		return nil
	}
	key := s.key(userID)
	fields := make(map[string]interface{}, len(data))
	for k, v := range data {
		fields[fieldPrefix+k] = v
	}
	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("session.UpdateData: %w", err)
	}
	if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("session.UpdateData: expire: %w", err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, userID int64) (State, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return State{}, fmt.Errorf("session.Get: %w", err)
	}
	st := State{Step: model.StepIdle, Data: make(map[string]string)}
	for k, v := range raw {
		if k == "step" {
			st.Step = model.Step(v)
			continue
		}
		if name, ok := strings.CutPrefix(k, fieldPrefix); ok {
			st.Data[name] = v
		}
	}
	return st, nil
}

func (s *redisStore) Clear(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("session.Clear: %w", err)
	}
	return nil
}
