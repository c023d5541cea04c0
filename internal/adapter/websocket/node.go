package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"
	"github.com/pscheid92/feedbackpulse/internal/adapter/metrics"
	"github.com/pscheid92/feedbackpulse/internal/domain"
)

// AdminChannel carries feedback events to connected admins.
const AdminChannel = "feedback:admin"

// NewNode creates the Centrifuge node serving the admin live feed. Connections
// are authenticated by credentials the HTTP layer derives from the session.
func NewNode(users domain.UserRepository, m *metrics.LiveFeedMetrics, logLevel string) (*centrifuge.Node, error) {
	conf := centrifuge.Config{LogLevel: parseCentrifugeLogLevel(logLevel), LogHandler: slogHandler}
	node, err := centrifuge.New(conf)
	if err != nil {
		return nil, fmt.Errorf("create centrifuge node: %w", err)
	}

	node.OnConnecting(onConnecting(users))
	node.OnConnect(onConnect(m))

	return node, nil
}

func onConnecting(users domain.UserRepository) func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
	return func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		cred, ok := centrifuge.GetCredentials(ctx)
		if !ok || cred.UserID == "" {
			return centrifuge.ConnectReply{}, centrifuge.DisconnectServerError
		}

		userID, err := uuid.Parse(cred.UserID)
		if err != nil {
			slog.Warn("Invalid live feed user ID", "user_id", cred.UserID, "error", err)
			return centrifuge.ConnectReply{}, centrifuge.DisconnectServerError
		}

		user, err := users.GetByID(ctx, userID)
		if errors.Is(err, domain.ErrUserNotFound) {
			return centrifuge.ConnectReply{}, centrifuge.ErrorUnauthorized
		}
		if err != nil {
			slog.Warn("Failed to resolve live feed user", "user_id", cred.UserID, "error", err)
			return centrifuge.ConnectReply{}, centrifuge.DisconnectServerError
		}
		if !user.IsAdmin() {
			return centrifuge.ConnectReply{}, centrifuge.ErrorPermissionDenied
		}

		reply := centrifuge.ConnectReply{
			Subscriptions: map[string]centrifuge.SubscribeOptions{
				AdminChannel: {},
			},
		}
		return reply, nil
	}
}

func onConnect(m *metrics.LiveFeedMetrics) func(client *centrifuge.Client) {
	return func(client *centrifuge.Client) {
		slog.Debug("Client connected", "client_id", client.ID(), "user_id", client.UserID())

		if m != nil {
			m.ActiveConnections.Inc()
		}

		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			if e.Channel != AdminChannel {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
				return
			}
			cb(centrifuge.SubscribeReply{}, nil)
		})

		client.OnDisconnect(func(e centrifuge.DisconnectEvent) {
			slog.Debug("Client disconnected", "client_id", client.ID(), "reason", e.Reason)
			if m != nil {
				m.ActiveConnections.Dec()
			}
		})
	}
}

// SetupRedis switches the node to a Redis broker so that events published on
// one instance reach admins connected to another. redisAddr may be host:port
// or a redis:// URL.
func SetupRedis(node *centrifuge.Node, redisAddr string) error {
	shardConfig := centrifuge.RedisShardConfig{Address: redisAddr}
	shard, err := centrifuge.NewRedisShard(node, shardConfig)
	if err != nil {
		return fmt.Errorf("create redis shard: %w", err)
	}

	brokerConfig := centrifuge.RedisBrokerConfig{Prefix: "feedbackpulse", Shards: []*centrifuge.RedisShard{shard}}
	broker, err := centrifuge.NewRedisBroker(node, brokerConfig)
	if err != nil {
		return fmt.Errorf("create redis broker: %w", err)
	}
	node.SetBroker(broker)

	pmConfig := centrifuge.RedisPresenceManagerConfig{Prefix: "feedbackpulse", Shards: []*centrifuge.RedisShard{shard}}
	presenceManager, err := centrifuge.NewRedisPresenceManager(node, pmConfig)
	if err != nil {
		return fmt.Errorf("create redis presence manager: %w", err)
	}
	node.SetPresenceManager(presenceManager)

	return nil
}

func slogHandler(entry centrifuge.LogEntry) {
	attrs := make([]any, 0, len(entry.Fields)*2)
	for k, v := range entry.Fields {
		attrs = append(attrs, k, v)
	}
	switch entry.Level {
	case centrifuge.LogLevelTrace, centrifuge.LogLevelDebug:
		slog.Debug(entry.Message, attrs...)
	case centrifuge.LogLevelInfo:
		slog.Info(entry.Message, attrs...)
	case centrifuge.LogLevelWarn:
		slog.Warn(entry.Message, attrs...)
	case centrifuge.LogLevelError:
		slog.Error(entry.Message, attrs...)
	case centrifuge.LogLevelNone:
		// EMPTY
	}
}

func parseCentrifugeLogLevel(level string) centrifuge.LogLevel {
	switch level {
	case "debug":
		return centrifuge.LogLevelDebug
	case "warn":
		return centrifuge.LogLevelWarn
	case "error":
		return centrifuge.LogLevelError
	default:
		return centrifuge.LogLevelInfo
	}
}
