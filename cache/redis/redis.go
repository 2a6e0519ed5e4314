package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m4n5ter/ownership-cache-killer/cache"
	rdb "github.com/redis/go-redis/v9"
)

const scanCount = 256

type Options struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string // Ownership entries live under "<prefix>:<customerId>" and "<prefix>:<customerId>:*"
}

type RedisCache struct {
	client    rdb.UniversalClient
	keyPrefix string
	logger    *slog.Logger
}

func NewRedisCache(opts Options, logger *slog.Logger) *RedisCache {
	client := rdb.NewUniversalClient(&rdb.UniversalOptions{
		Addrs:    opts.Addrs,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(client, opts.KeyPrefix, logger)
}

func NewWithClient(client rdb.UniversalClient, keyPrefix string, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// Key of the customer's ownership summary entry.
func (r *RedisCache) Key(customerID string) string {
	if r.keyPrefix == "" {
		return customerID
	}
	return r.keyPrefix + ":" + customerID
}

func (r *RedisCache) DeleteFromCache(ctx context.Context, customerID string) error {
	if customerID == "" {
		return errors.New("empty customer id")
	}

	keys, err := r.customerKeys(ctx, customerID)
	if err != nil {
		return err
	}

	// One key per DEL, a cluster pipeline groups them by slot.
	cmds, err := r.client.Pipelined(ctx, func(pipe rdb.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, key)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete cache", "customer_id", customerID, "error", err)
		return fmt.Errorf("delete %d keys: %w", len(keys), err)
	}

	var deleted int64
	for _, cmd := range cmds {
		if del, ok := cmd.(*rdb.IntCmd); ok {
			deleted += del.Val()
		}
	}
	r.logger.Info("Deleted ownership cache", "customer_id", customerID, "keys", deleted)
	return nil
}

// customerKeys returns the summary key plus every per-asset key of the customer.
// SCAN only sees the node it is sent to, so a cluster is scanned master by master.
func (r *RedisCache) customerKeys(ctx context.Context, customerID string) ([]string, error) {
	pattern := r.Key(customerID) + ":*"
	keys := []string{r.Key(customerID)}

	cluster, ok := r.client.(*rdb.ClusterClient)
	if !ok {
		found, err := scan(ctx, r.client, pattern)
		if err != nil {
			return nil, err
		}
		return append(keys, found...), nil
	}

	var mu sync.Mutex
	err := cluster.ForEachMaster(ctx, func(ctx context.Context, node *rdb.Client) error {
		found, err := scan(ctx, node, pattern)
		if err != nil {
			return fmt.Errorf("%s: %w", node.Options().Addr, err)
		}
		mu.Lock()
		keys = append(keys, found...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func scan(ctx context.Context, c rdb.Cmdable, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := c.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", pattern, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (r *RedisCache) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

var _ cache.CacheKiller = (*RedisCache)(nil)
