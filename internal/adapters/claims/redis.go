package claims

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 500

// RedisStore shares claims between instances through Redis SETNX.
type RedisStore struct {
	client redis.UniversalClient
	opts   options
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...Option) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNoClient
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{client: client, opts: o}, nil
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStore(client, opts...)
}

func (s *RedisStore) key(player, game string) string {
	return s.opts.prefix + Key(player, game)
}

func (s *RedisStore) Claim(ctx context.Context, player, game string) (bool, error) {
	if strings.TrimSpace(player) == "" {
		return false, ErrEmptyPlayer
	}
	ok, err := s.client.SetNX(ctx, s.key(player, game), 1, s.opts.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", Key(player, game), err)
	}
	return ok, nil
}

func (s *RedisStore) Release(ctx context.Context, player, game string) error {
	if err := s.client.Del(ctx, s.key(player, game)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release %s: %w", Key(player, game), err)
	}
	return nil
}

// Size counts keys under the prefix with SCAN.
func (s *RedisStore) Size(ctx context.Context) (int64, error) {
	var (
		n      int64
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.opts.prefix+"*", scanBatch).Result()
		if err != nil {
			return 0, fmt.Errorf("scan claims: %w", err)
		}
		n += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return n, nil
		}
	}
}

// Close closes the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }
