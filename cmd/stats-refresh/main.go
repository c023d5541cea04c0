// Command stats-refresh recomputes the global sentiment counts from Postgres
// and replaces the shared Redis copy. Running instances drop their in-memory
// copy through the invalidation channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedbackpulse/internal/adapter/postgres"
	"github.com/pscheid92/feedbackpulse/internal/adapter/redis"
	"github.com/pscheid92/feedbackpulse/internal/domain"
	"github.com/pscheid92/feedbackpulse/internal/platform/logging"
)

const refreshTimeout = 30 * time.Second

func main() {
	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		redisURL    = flag.String("redis", os.Getenv("REDIS_URL"), "Redis URL (or set REDIS_URL env)")
		dryRun      = flag.Bool("dry-run", false, "Dry run mode (compare only, don't write to Redis)")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Database URL required (--database or DATABASE_URL env)")
	}
	if *redisURL == "" {
		log.Fatal("Redis URL required (--redis or REDIS_URL env)")
	}

	logLevel := "info"
	if *verbose {
		logLevel = "debug"
	}
	logging.InitLogger(logLevel, "text")

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, *databaseURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, *redisURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() { _ = rdb.Close() }()
	slog.Info("Connected to Redis", "url", sanitizeURL(*redisURL))

	feedbackRepo := postgres.NewFeedbackRepo(pool)
	cache := redis.NewStatsCache(rdb, feedbackRepo, time.Second, clockwork.NewRealClock(), nil)

	if err := refreshStats(ctx, cache, feedbackRepo, *dryRun); err != nil {
		log.Fatalf("Refresh failed: %v", err)
	}

	slog.Info("Refresh complete")
}

type statsCache interface {
	domain.StatsSource
	Cached(ctx context.Context) (domain.SentimentCounts, bool)
}

func refreshStats(ctx context.Context, cache statsCache, feedback domain.FeedbackRepository, dryRun bool) error {
	start := time.Now()

	stored, err := feedback.CountBySentiment(ctx, nil)
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}

	cached, ok := cache.Cached(ctx)
	switch {
	case !ok:
		slog.Info("No cached stats found", "stored", stored)
	case cached != stored:
		slog.Warn("Cached stats are stale", "cached", cached, "stored", stored)
	default:
		slog.Debug("Cached stats match", "counts", stored)
	}

	if dryRun {
		slog.Info("Dry run, leaving cache untouched", "dry_run", dryRun)
		return nil
	}

	if err := cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate failed: %w", err)
	}

	// Repopulate so the next request on any instance is served from Redis.
	warmed, err := cache.GlobalCounts(ctx)
	if err != nil {
		return fmt.Errorf("warm-up failed: %w", err)
	}

	slog.Info("Refresh summary",
		"positive", warmed.Positive,
		"negative", warmed.Negative,
		"neutral", warmed.Neutral,
		"total", warmed.Total(),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// sanitizeURL hides the password in a connection URL for logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid url"
	}
	return u.Redacted()
}
