package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/outbound"
)

const usageCategoriesKeyPrefix = "photos:usage:categories:"

// usageCache implements outbound.UsageCachePort.
type usageCache struct {
	client *redis.Client
}

// NewUsageCache creates a new usage cache adapter.
func NewUsageCache(client *redis.Client) outbound.UsageCachePort {
	return &usageCache{client: client}
}

func (c *usageCache) categoriesKey(accountID string) string {
	return fmt.Sprintf("%s%s", usageCategoriesKeyPrefix, accountID)
}

func (c *usageCache) GetCategories(ctx context.Context, accountID string) ([]model.CategorySummary, error) {
	data, err := c.client.Get(ctx, c.categoriesKey(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, outbound.ErrCacheMiss
		}
		return nil, err
	}

	var summaries []model.CategorySummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, fmt.Errorf("decode cached categories: %w", err)
	}
	return summaries, nil
}

func (c *usageCache) SetCategories(ctx context.Context, accountID string, summaries []model.CategorySummary, ttl time.Duration) error {
	data, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	return c.client.Set(ctx, c.categoriesKey(accountID), data, ttl).Err()
}

func (c *usageCache) Invalidate(ctx context.Context, accountID string) error {
	return c.client.Del(ctx, c.categoriesKey(accountID)).Err()
}

// Compile-time check
var _ outbound.UsageCachePort = (*usageCache)(nil)
