package database

import (
	"context"
	"fmt"
	"time"

	"realtime-service/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates the redis client used for the presence mirror and the
// cross-instance event channel. A nil return (connection failure) degrades
// the service to single-instance operation instead of failing startup.
func NewRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

// PublishConversationEvent mirrors a room broadcast onto the shared channel
// so additional instances (or side consumers) can fan it out to their own
// connections. The local hub does its own delivery; this is the horizontal
// scaling extension point.
func PublishConversationEvent(ctx context.Context, client *redis.Client, conversationID string, payload []byte) error {
	if client == nil {
		return nil
	}
	channel := fmt.Sprintf("conversation:%s", conversationID)
	return client.Publish(ctx, channel, payload).Err()
}

// PublishPresenceEvent mirrors presence transitions onto the shared channel.
func PublishPresenceEvent(ctx context.Context, client *redis.Client, payload []byte) error {
	if client == nil {
		return nil
	}
	return client.Publish(ctx, "presence:events", payload).Err()
}

// SetUserOnline writes the presence mirror key read by other instances.
func SetUserOnline(ctx context.Context, client *redis.Client, userID string) error {
	if client == nil {
		return nil
	}
	return client.Set(ctx, fmt.Sprintf("presence:%s", userID), "ONLINE", 0).Err()
}

// SetUserOffline clears the presence mirror key.
func SetUserOffline(ctx context.Context, client *redis.Client, userID string) error {
	if client == nil {
		return nil
	}
	return client.Del(ctx, fmt.Sprintf("presence:%s", userID)).Err()
}
