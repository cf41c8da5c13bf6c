package redisdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"washbot/config"
	"washbot/pkg/logger"
	"washbot/pkg/models"
)

const orderEventsChannel = "orders:events"

// Cache wraps the Redis client behind the role-cache and event-bus roles.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.ILogger
}

func New(cfg config.Config, log logger.ILogger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}

	log.Info("Redis connected")

	return &Cache{
		client: client,
		ttl:    cfg.ProfileCacheTTL,
		log:    log,
	}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func profileKey(teleID int64) string {
	return fmt.Sprintf("profile:%d", teleID)
}

func (c *Cache) GetProfile(ctx context.Context, teleID int64) (*models.CachedProfile, error) {
	data, err := c.client.Get(ctx, profileKey(teleID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var entry models.CachedProfile
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Cache) SetProfile(ctx context.Context, user *models.User) error {
	entry := models.CachedProfile{
		User:      *user,
		FetchedAt: time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, profileKey(user.TelegramID), data, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, teleID int64) error {
	return c.client.Del(ctx, profileKey(teleID)).Err()
}

func (c *Cache) PublishOrderEvent(ctx context.Context, evt models.OrderEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, orderEventsChannel, data).Err()
}

// SubscribeOrderEvents consumes the order-events channel until ctx is done.
// Malformed payloads are logged and skipped.
func (c *Cache) SubscribeOrderEvents(ctx context.Context, fn func(models.OrderEvent)) error {
	sub := c.client.Subscribe(ctx, orderEventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt models.OrderEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					c.log.Error("bad order event payload", logger.Error(err))
					continue
				}
				fn(evt)
			}
		}
	}()
	return nil
}
