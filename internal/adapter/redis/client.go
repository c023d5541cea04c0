package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pscheid92/feedbackpulse/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient connects to the Redis server at redisURL and verifies the
// connection. When m is non-nil every command is recorded into it.
func NewClient(ctx context.Context, redisURL string, m *metrics.RedisMetrics) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := goredis.NewClient(opts)
	if m != nil {
		client.AddHook(&MetricsHook{metrics: m})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	slog.Info("Redis connected", "addr", opts.Addr, "db", opts.DB)
	return client, nil
}
