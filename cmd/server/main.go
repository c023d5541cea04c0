package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/feedbackpulse/internal/adapter/aigateway"
	"github.com/pscheid92/feedbackpulse/internal/adapter/eventpublisher"
	"github.com/pscheid92/feedbackpulse/internal/adapter/httpserver"
	"github.com/pscheid92/feedbackpulse/internal/adapter/metrics"
	"github.com/pscheid92/feedbackpulse/internal/adapter/postgres"
	"github.com/pscheid92/feedbackpulse/internal/adapter/redis"
	"github.com/pscheid92/feedbackpulse/internal/adapter/websocket"
	"github.com/pscheid92/feedbackpulse/internal/app"
	"github.com/pscheid92/feedbackpulse/internal/domain"
	"github.com/pscheid92/feedbackpulse/internal/platform/config"
	"github.com/pscheid92/feedbackpulse/internal/platform/logging"
	"github.com/pscheid92/feedbackpulse/internal/sentiment"
	goredis "github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout       = 10 * time.Second
	statsEvictionInterval = time.Minute
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, m *metrics.DatabaseMetrics) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, m)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config, m *metrics.RedisMetrics) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL, m)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

// setupRemoteClassifier returns nil when no gateway key is configured, so the
// classifier answers every request with the heuristic scorer.
func setupRemoteClassifier(cfg *config.Config, reg prometheus.Registerer) domain.RemoteClassifier {
	if !cfg.RemoteClassifierEnabled() {
		slog.Info("AI gateway key not set, using heuristic sentiment scoring only")
		return nil
	}

	return aigateway.NewClient(aigateway.Config{
		BaseURL: cfg.AIGatewayURL,
		APIKey:  cfg.AIGatewayAPIKey,
		Model:   cfg.AIGatewayModel,
		Timeout: cfg.AIGatewayTimeout,
	}, metrics.NewCircuitBreakerMetrics(reg))
}

func setupLiveFeed(cfg *config.Config, users domain.UserRepository, m *metrics.LiveFeedMetrics) *centrifuge.Node {
	node, err := websocket.NewNode(users, m, cfg.LogLevel)
	if err != nil {
		slog.Error("Failed to create live feed node", "error", err)
		os.Exit(1)
	}

	if err := websocket.SetupRedis(node, cfg.RedisURL); err != nil {
		slog.Error("Failed to set up live feed broker", "error", err)
		os.Exit(1)
	}

	if err := node.Run(); err != nil {
		slog.Error("Failed to start live feed node", "error", err)
		os.Exit(1)
	}
	return node
}

func healthChecks(pool *pgxpool.Pool, redisClient *goredis.Client) []httpserver.HealthCheck {
	return []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}
}

type shutdownDeps struct {
	srv          *httpserver.Server
	node         *centrifuge.Node
	stopEviction func()
	stopSubs     context.CancelFunc
}

func runGracefulShutdown(deps shutdownDeps) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := deps.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.node.Shutdown(shutdownCtx); err != nil {
			slog.Error("Live feed shutdown error", "error", err)
		}

		deps.stopSubs()
		deps.stopEviction()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	reg := metrics.NewRegistry()
	liveFeedMetrics := metrics.NewLiveFeedMetrics(reg)

	pool := setupDB(cfg, metrics.NewDatabaseMetrics(reg))
	defer pool.Close()

	redisClient := setupRedis(cfg, metrics.NewRedisMetrics(reg))
	defer func() { _ = redisClient.Close() }()

	userRepo := postgres.NewUserRepo(pool)
	feedbackRepo := postgres.NewFeedbackRepo(pool)

	statsCache := redis.NewStatsCache(redisClient, feedbackRepo, cfg.StatsCacheTTL, clock, metrics.NewCacheMetrics(reg))
	stopEviction := statsCache.StartEvictionTimer(statsEvictionInterval)

	subsCtx, stopSubs := context.WithCancel(context.Background())
	go redis.NewStatsInvalidationSubscriber(statsCache).Start(subsCtx)

	classifier := sentiment.NewClassifier(setupRemoteClassifier(cfg, reg), metrics.NewClassificationMetrics(reg), clock)

	node := setupLiveFeed(cfg, userRepo, liveFeedMetrics)
	events := eventpublisher.New(websocket.NewPublisher(node, liveFeedMetrics), statsCache)

	appSvc := app.NewService(app.Deps{
		Users:      userRepo,
		Feedback:   feedbackRepo,
		Stats:      statsCache,
		Classifier: classifier,
		Events:     events,
		Clock:      clock,
		Metrics:    metrics.NewFeedbackMetrics(reg),
	}, cfg.AdminSignupCode)

	wsHandler := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		CheckOrigin: websocket.NewCheckOrigin(cfg.AppURL, !cfg.IsProduction()),
	})

	srv, err := httpserver.NewServer(cfg, appSvc, httpserver.Handlers{
		Websocket:   wsHandler,
		Metrics:     metrics.Handler(reg),
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
	}, healthChecks(pool, redisClient))
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(shutdownDeps{
		srv:          srv,
		node:         node,
		stopEviction: stopEviction,
		stopSubs:     stopSubs,
	})

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
