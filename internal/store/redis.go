package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// driftKey holds wallets seen on the ledger with no directory entry.
const driftKey = "edchain:drift"

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// ReplaceDrift atomically replaces the drift set with the given wallets.
func (r *Redis) ReplaceDrift(ctx context.Context, wallets []string) error {
	pipe := r.Client.TxPipeline()
	pipe.Del(ctx, driftKey)
	if len(wallets) > 0 {
		members := make([]interface{}, len(wallets))
		for i, w := range wallets {
			members[i] = w
		}
		pipe.SAdd(ctx, driftKey, members...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Drift returns the wallets currently in the drift set.
func (r *Redis) Drift(ctx context.Context) ([]string, error) {
	return r.Client.SMembers(ctx, driftKey).Result()
}
