// Package redis wraps the Redis client used for the per-property distributed
// locks that serialize evidence mutation and compilation across replicas.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/appraisehub/valuation-platform/internal/config"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/pkg/errors"
)

// Client wraps redis.Client with the platform's key prefix.
type Client struct {
	*redis.Client
	keyPrefix string
	log       logging.Logger
}

// Connect opens the client and verifies connectivity.
func Connect(ctx context.Context, cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to ping redis")
	}

	log.Info("redis connected", logging.String("addr", cfg.Addr))
	return &Client{Client: rdb, keyPrefix: cfg.KeyPrefix, log: log.Named("redis")}, nil
}

// Key prefixes a key with the configured namespace.
func (c *Client) Key(parts ...string) string {
	key := c.keyPrefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// HealthCheck verifies the connection is still serving.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis health check failed")
	}
	return nil
}
