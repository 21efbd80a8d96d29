package claim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moraeszete/webhook-payments-integrations/common/logger"
	"github.com/moraeszete/webhook-payments-integrations/internal/model"
)

const purgeScanCount = 500

// RedisStore claims keys with SET NX EX. The SET reply is the only authority;
// the store never reads a key before writing it.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Claim(ctx context.Context, key Key, payload json.RawMessage, ttl time.Duration) (Result, error) {
	if ttl < 0 {
		ttl = 0
	}

	ok, err := s.client.SetNX(ctx, key.String(), []byte(normalizePayload(payload)), ttl).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: redis set nx: %w", ErrTransient, err)
	}

	if !ok {
		return Result{Key: key, Outcome: OutcomeAlreadyClaimed}, nil
	}
	return Result{Key: key, Outcome: OutcomeCreated}, nil
}

// Get reads the payload and remaining TTL in one round trip. Redis keeps no
// creation time, so CreatedAt is left zero.
func (s *RedisStore) Get(ctx context.Context, key Key) (model.Claim, bool, error) {
	var (
		getCmd  *redis.StringCmd
		pttlCmd *redis.DurationCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, key.String())
		pttlCmd = pipe.PTTL(ctx, key.String())
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return model.Claim{}, false, nil
	}
	if err != nil {
		return model.Claim{}, false, fmt.Errorf("%w: redis get: %w", ErrTransient, err)
	}

	payload, _ := getCmd.Bytes()
	claim := model.Claim{Key: key.String(), Payload: json.RawMessage(payload)}
	if ttl := pttlCmd.Val(); ttl > 0 {
		claim.ExpiresAt = time.Now().Add(ttl)
	}
	return claim, true, nil
}

func (s *RedisStore) Release(ctx context.Context, key Key) (bool, error) {
	n, err := s.client.Del(ctx, key.String()).Result()
	if err != nil {
		return false, fmt.Errorf("%w: redis del: %w", ErrTransient, err)
	}
	return n > 0, nil
}

// PurgeRoute walks the keyspace with SCAN so a large purge never blocks Redis the way KEYS would.
func (s *RedisStore) PurgeRoute(ctx context.Context, namespace, route string) (int64, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "claim.redis"})
	prefix := RoutePrefix(namespace, route)

	var (
		cursor  uint64
		deleted int64
	)
	for _, pattern := range []string{globEscape(prefix), globEscape(prefix+Separator) + "*"} {
		cursor = 0
		for {
			keys, next, err := s.client.Scan(ctx, cursor, pattern, purgeScanCount).Result()
			if err != nil {
				return deleted, fmt.Errorf("%w: redis scan: %w", ErrTransient, err)
			}
			if len(keys) > 0 {
				n, err := s.client.Del(ctx, keys...).Result()
				if err != nil {
					return deleted, fmt.Errorf("%w: redis del: %w", ErrTransient, err)
				}
				deleted += n
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}

	slog.InfoContext(ctx, "purged route claims", "prefix", prefix, "deleted", deleted)
	return deleted, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

func globEscape(s string) string {
	return globEscaper.Replace(s)
}
