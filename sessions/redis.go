package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/redis/go-redis/v9"
)

var _ Repo = (*RedisRepo)(nil)

const defaultRedisPrefix = "session:"

// RedisRepo stores sessions as JSON with a Redis TTL matching ExpiresAt, so
// several server processes can share one session space.
type RedisRepo struct {
	client  redis.UniversalClient
	prefix  string
	nowTime func() time.Time
}

func NewRedisRepo(client redis.UniversalClient, prefix string) *RedisRepo {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRepo{client: client, prefix: prefix, nowTime: time.Now}
}

// DialRedis connects and pings so misconfiguration fails at startup.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[DialRedis] ping %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisRepo) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisRepo) Get(ctx context.Context, sessionID string) (*SessionData, error) {
	raw, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[RedisRepo.Get] %w", err)
	}
	var data SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("[RedisRepo.Get] unmarshal: %w", err)
	}
	return &data, nil
}

func (r *RedisRepo) Upsert(ctx context.Context, data *SessionData) error {
	if data == nil || data.ID == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidArgument, "[RedisRepo.Upsert] session id is required")
	}
	ttl := data.ExpiresAt.Sub(r.nowTime())
	if ttl <= 0 {
		return r.Delete(ctx, data.ID)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("[RedisRepo.Upsert] marshal: %w", err)
	}
	if err := r.client.Set(ctx, r.key(data.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("[RedisRepo.Upsert] %w", err)
	}
	return nil
}

func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("[RedisRepo.Delete] %w", err)
	}
	return nil
}
