package managers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowbaker/workflow-monitor/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "workflow-monitor.events"

// RedisEventPublisher publishes monitor events as JSON on a Redis pub/sub channel so
// other processes (dashboards, notifiers) can follow what the monitor does.
type RedisEventPublisher struct {
	client  redis.UniversalClient
	channel string
}

type RedisEventPublisherDependencies struct {
	Client  redis.UniversalClient
	Channel string
}

func NewRedisEventPublisher(deps RedisEventPublisherDependencies) *RedisEventPublisher {
	channel := deps.Channel
	if channel == "" {
		channel = DefaultRedisChannel
	}

	return &RedisEventPublisher{
		client:  deps.Client,
		channel: channel,
	}
}

// NewRedisClientFromURL parses a redis:// URL into a client
func NewRedisClientFromURL(redisURL string) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return redis.NewClient(options), nil
}

func (p *RedisEventPublisher) PublishEvent(ctx context.Context, event domain.Event) error {
	payload, err := encodeRedisEvent(event)
	if err != nil {
		return err
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event to redis: %w", err)
	}

	return nil
}

func (p *RedisEventPublisher) Close() error {
	return p.client.Close()
}

func encodeRedisEvent(event domain.Event) ([]byte, error) {
	payload, err := json.Marshal(struct {
		EventType domain.EventType `json:"event_type"`
		Data      domain.Event     `json:"data"`
	}{
		EventType: event.GetType(),
		Data:      event,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return payload, nil
}
