package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/seismowatch/quake-alert-service/internal/domain"
)

const sessionKeyPrefix = "presence:session:"

// RedisStore implements Store on a Redis instance shared by every viewer.
// Records are written without TTL: liveness is a reader-side judgment, and
// the registry never deletes stale sessions.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) UpsertSession(ctx context.Context, s domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+s.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *RedisStore) TouchSession(ctx context.Context, id string, at time.Time) error {
	key := sessionKeyPrefix + id
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("load session for heartbeat: %w", err)
	}

	var s domain.Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return fmt.Errorf("unmarshal session: %w", err)
	}
	s.LastSeen = at
	return r.UpsertSession(ctx, s)
}

func (r *RedisStore) ListSessions(ctx context.Context) ([]domain.Session, error) {
	var sessions []domain.Session
	iter := r.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		val, err := r.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", iter.Val(), err)
		}
		var s domain.Session
		if err := json.Unmarshal([]byte(val), &s); err != nil {
			// A corrupt record should not hide the rest of the collection.
			continue
		}
		sessions = append(sessions, s)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return sessions, nil
}
