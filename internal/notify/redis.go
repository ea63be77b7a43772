package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"wallet-transfers/internal/domain"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisPublisher publishes each event on the receiver's private pub/sub
// channel, e.g. "user.42", for a push gateway to fan out.
type RedisPublisher struct {
	client redis.UniversalClient
	logger *slog.Logger
}

func NewRedisPublisher(client redis.UniversalClient, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *domain.TransferCompleted) error {
	data, err := encode(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	receivers, err := p.client.Publish(ctx, event.Channel(), data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", event.Channel(), err)
	}

	p.logger.Debug("Published transfer notification",
		"channel", event.Channel(),
		"transaction_id", event.TransactionID,
		"subscribers", receivers)
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
