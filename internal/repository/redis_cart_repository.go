package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const redisCartKeyPrefix = "cart:"

type redisCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCart stores each cart as a JSON snapshot under cart:<ownerID>.
// A zero ttl keeps snapshots until they are overwritten or cleared.
func NewRedisCart(client *redis.Client, ttl time.Duration) port.CartStorage {
	return &redisCartRepository{
		client: client,
		ttl:    ttl,
	}
}

type redisLineItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Quantity int             `json:"quantity"`
}

func (r *redisCartRepository) Load(ctx context.Context, ownerID string) ([]domain.LineItem, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ownerID is empty")
	}

	data, err := r.client.Get(ctx, redisCartKeyPrefix+ownerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("client.Get: %w", err)
	}

	var stored []redisLineItem
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}

	var items []domain.LineItem
	for _, s := range stored {
		items = append(items, domain.LineItem(s))
	}

	return items, nil
}

func (r *redisCartRepository) Save(ctx context.Context, ownerID string, items []domain.LineItem) error {
	if ownerID == "" {
		return fmt.Errorf("ownerID is empty")
	}

	key := redisCartKeyPrefix + ownerID

	if len(items) == 0 {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("client.Del: %w", err)
		}
		return nil
	}

	stored := make([]redisLineItem, 0, len(items))
	for _, item := range items {
		stored = append(stored, redisLineItem(item))
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("client.Set: %w", err)
	}

	return nil
}

const maxPingBackoff = 30 * time.Second

// PingRedis waits until the server answers PING, backing off exponentially up to 30s between attempts.
func PingRedis(ctx context.Context, client *redis.Client, attempts int, log logrus.FieldLogger) error {
	if attempts < 1 {
		return fmt.Errorf("ping attempts[%d] must be at least 1", attempts)
	}

	var lastErr error

	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()

		if lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		backoff := pingBackoff(i)
		log.WithError(lastErr).WithField("attempt", i+1).Warnf("redis ping failed, retrying in %v", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("redis not reachable after %d attempts: %w", attempts, lastErr)
}

// pingBackoff is 1s doubled per attempt, capped before the shift can overflow.
func pingBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxPingBackoff
	}
	return min(time.Duration(1<<attempt)*time.Second, maxPingBackoff)
}
