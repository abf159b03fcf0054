package handoff

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChannel is a broker-backed channel: one Redis key acts as the shared
// clipboard slot. Send overwrites the key, Receive consumes it with GETDEL.
type RedisChannel struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection with a ping. The
// payload expires after ttl so a stale capture is not consumed days later;
// ttl <= 0 disables expiry.
func NewRedis(ctx context.Context, addr, password, key string, ttl time.Duration) (*RedisChannel, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("handoff: connect to redis: %w", err)
	}
	return &RedisChannel{
		client: client,
		key:    key,
		ttl:    ttl,
	}, nil
}

func (c *RedisChannel) Send(ctx context.Context, payload string) Outcome {
	if err := c.client.Set(ctx, c.key, payload, c.ttl).Err(); err != nil {
		return classify(err)
	}
	return Delivered
}

func (c *RedisChannel) Receive(ctx context.Context) (string, bool, error) {
	payload, err := c.client.GetDel(ctx, c.key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("handoff: receive: %w", err)
	}
	return payload, true, nil
}

func (c *RedisChannel) Close() error {
	return c.client.Close()
}

// classify maps broker errors onto the transfer outcomes: auth rejections are
// PermissionDenied, everything else means the medium is unreachable.
func classify(err error) Outcome {
	msg := err.Error()
	if strings.Contains(msg, "NOAUTH") || strings.Contains(msg, "WRONGPASS") || strings.Contains(msg, "NOPERM") {
		return PermissionDenied
	}
	return Unavailable
}
