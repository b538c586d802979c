package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// topUpDedupeTTL bounds how long a processed payment event id is remembered.
const topUpDedupeTTL = 24 * time.Hour

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

func TopUpEventKey(eventID string) string {
	return fmt.Sprintf("topup:%s", eventID)
}

// ReserveTopUpEvent claims a payment event id. Returns false when the event
// was already processed.
func (c *Client) ReserveTopUpEvent(ctx context.Context, eventID string) (bool, error) {
	return c.SetNX(ctx, TopUpEventKey(eventID), "1", topUpDedupeTTL).Result()
}

// ReleaseTopUpEvent frees a claimed event id so the provider's retry can land
// after a failed apply.
func (c *Client) ReleaseTopUpEvent(ctx context.Context, eventID string) {
	if err := c.Del(ctx, TopUpEventKey(eventID)).Err(); err != nil {
		log.Warn().Err(err).Str("eventId", eventID).Msg("failed to release topup event reservation")
	}
}
