package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/uniedit/photos/internal/model"
)

var ErrCacheMiss = errors.New("cache miss")

// UsageCachePort caches derived usage views per account.
type UsageCachePort interface {
	// GetCategories returns the cached category breakdown or ErrCacheMiss.
	GetCategories(ctx context.Context, accountID string) ([]model.CategorySummary, error)

	// SetCategories stores the category breakdown with TTL.
	SetCategories(ctx context.Context, accountID string, summaries []model.CategorySummary, ttl time.Duration) error

	// Invalidate drops every cached view of the account.
	Invalidate(ctx context.Context, accountID string) error
}

// RateLimiterPort defines a shared request budget per key.
type RateLimiterPort interface {
	// Allow records one request for key and reports whether it is within limit per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
