package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"naturalpuff/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// CacheAttempt stores a short-TTL hint copy of a payment attempt. The
// Postgres ledger is the source of truth; this only saves a query on the
// common redirect-back path.
func (c *Client) CacheAttempt(ctx context.Context, attempt *models.PaymentAttempt, ttl time.Duration) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("attempt:%s", attempt.TxnRef), data, ttl).Err()
}

// GetCachedAttempt retrieves a cached attempt, or nil on miss
func (c *Client) GetCachedAttempt(ctx context.Context, txnRef string) (*models.PaymentAttempt, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("attempt:%s", txnRef)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var attempt models.PaymentAttempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// CachePaymentState stores the last provider verdict for an order so rapid
// polling from the verification page does not hammer the provider.
func (c *Client) CachePaymentState(ctx context.Context, orderID, state string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("paystate:%s", orderID), state, ttl).Err()
}

// GetCachedPaymentState retrieves the cached provider verdict, "" on miss
func (c *Client) GetCachedPaymentState(ctx context.Context, orderID string) (string, error) {
	state, err := c.rdb.Get(ctx, fmt.Sprintf("paystate:%s", orderID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return state, err
}

// IsEventSeen is the fast-path duplicate check for webhook deliveries. The
// processed_events table remains the durable record; this just
// short-circuits hot retries.
func (c *Client) IsEventSeen(ctx context.Context, eventID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, fmt.Sprintf("event:%s", eventID)).Result()
	return n > 0, err
}

// MarkEventSeen records a delivered event id. Called only after the event
// was processed successfully, so a failed delivery stays invisible here and
// the provider's retry is handled for real instead of swallowed as a
// duplicate.
func (c *Client) MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("event:%s", eventID), "1", ttl).Result()
}

// AcquireLock acquires a distributed lock, used to serialize the
// reconciler and the webhook receiver on one order.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
