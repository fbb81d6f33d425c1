package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/locolive/chat-engine/internal/domain"
)

// RedisRelay carries notification deliveries between API instances. Every
// instance subscribes to the same channel and delivers to its own sessions.
type RedisRelay struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisRelay(client *redis.Client, channel string, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, logger: logger}
}

// Broadcast implements domain.Broadcaster.
func (r *RedisRelay) Broadcast(ctx context.Context, delivery domain.Delivery) error {
	data, err := json.Marshal(delivery)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery: %w", err)
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Run subscribes to the relay channel and hands every delivery to deliver
// until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context, deliver func(domain.Delivery)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before reporting ready.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.logger.Info("Relay subscribed", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var delivery domain.Delivery
			if err := json.Unmarshal([]byte(msg.Payload), &delivery); err != nil {
				r.logger.Warn("Dropping malformed relay message", zap.Error(err))
				continue
			}
			deliver(delivery)
		}
	}
}
