package db

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"crm_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to REDIS_URL and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.SchedulerConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.GetRedisTLSInsecure() {
		if opts.TLSConfig == nil {
			opts.TLSConfig = &tls.Config{}
		}
		opts.TLSConfig.InsecureSkipVerify = true
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
