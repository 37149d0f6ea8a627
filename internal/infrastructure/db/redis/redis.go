// Package redis holds the gateway's shared counter store. The client sits on
// the admission path of every request, so its socket timeouts are kept well
// below the gateway's request budget.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	connectTimeout = 5 * time.Second
	opTimeout      = 200 * time.Millisecond
)

// Config selects the Redis server. Zero PoolSize keeps the driver default.
type Config struct {
	Addr     string
	DB       int
	PoolSize int
	// Timeout bounds the initial ping only.
	Timeout time.Duration
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: 4,
		DialTimeout:  connectTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
		MaxRetries:   1,
	}
}

// Connect returns a client for cfg once the server answers a ping. The
// client is closed again when it does not.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: address is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = connectTimeout
	}

	client := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
