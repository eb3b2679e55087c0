package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spendsense/domain"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "spendsense:session:"

type RedisOptions struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisSessionRepository stores sessions as JSON with a TTL so that several
// server instances can answer follow-ups for the same user.
type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionRepository(opts RedisOptions) *RedisSessionRepository {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisSessionRepositoryFromClient(rdb, opts.TTL)
}

func NewRedisSessionRepositoryFromClient(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionRepository{client: client, ttl: ttl}
}

func (r *RedisSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisSessionRepository) Load(ctx context.Context, id string) (*domain.ConversationSession, error) {
	val, err := r.client.Get(ctx, sessionKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var record sessionRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return record.session(), nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, session *domain.ConversationSession) error {
	data, err := json.Marshal(toRecord(session))
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	return r.client.Set(ctx, sessionKeyPrefix+session.ID, data, r.ttl).Err()
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKeyPrefix+id).Err()
}

func (r *RedisSessionRepository) Close() error {
	return r.client.Close()
}
