package trace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	URL string `envconfig:"URL" split_words:"true" required:"true"`
}

// RedisStore persists traces in a Redis server reached over RESP.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, opts ...Option) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: client, keyPrefix: o.keyPrefix, ttl: o.ttl}, nil
}

func NewRedisStoreFromConfig(cfg RedisConfig, opts ...Option) (*RedisStore, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opt), opts...)
}

func (s *RedisStore) Save(ctx context.Context, t *Trace) error {
	if err := t.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.traceKey(t.ID), data, s.ttl)
	if t.SessionID != "" {
		key := s.sessionKey(t.SessionID)
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(t.StartedAt.UnixNano()), Member: t.ID})
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save trace to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Trace, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidID
	}

	data, err := s.client.Get(ctx, s.traceKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTraceNotFound
		}
		return nil, fmt.Errorf("get trace from redis: %w", err)
	}

	var t Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal trace: %w", err)
	}
	return &t, nil
}

func (s *RedisStore) SessionTraces(ctx context.Context, sessionID string) ([]string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("session id is empty")
	}
	ids, err := s.client.ZRange(ctx, s.sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list session traces: %w", err)
	}
	return ids, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) traceKey(id string) string {
	return s.keyPrefix + id
}

func (s *RedisStore) sessionKey(sessionID string) string {
	return s.keyPrefix + "session:" + sessionID
}
