package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/heri/availabilities/services/availability-service/internal/model"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// Redis stores windows as JSON strings with a per-key TTL.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (model.Window, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Window{}, false, nil
	}
	if err != nil {
		return model.Window{}, false, err
	}

	var w model.Window
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Window{}, false, fmt.Errorf("decode cached window %s: %w", key, err)
	}
	return w, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, w model.Window, ttl time.Duration) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode window %s: %w", key, err)
	}
	return r.client.Set(ctx, key, raw, ttl).Err()
}

// InvalidateNamespace deletes every key starting with prefix. SCAN keeps the server responsive
// on large keyspaces; keys written during the scan may survive until their TTL.
func (r *Redis) InvalidateNamespace(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete %s keys: %w", prefix, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func ReadyCheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis not configured")
		}
		return client.Ping(ctx).Err()
	}
}
