package photos

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/uniedit/photos/internal/infra/events"
	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/outbound"
	"go.uber.org/zap"
)

// CategoryOther collects unclassified photos and labels outside the catalog.
const CategoryOther = "other"

type categoryInfo struct {
	label string
	icon  string
}

var categoryCatalog = map[string]categoryInfo{
	"screenshot":  {label: "Screenshots", icon: "monitor"},
	"food":        {label: "Food", icon: "utensils"},
	"landscape":   {label: "Landscapes", icon: "mountain"},
	"people":      {label: "People", icon: "users"},
	"document":    {label: "Documents", icon: "file-text"},
	"animal":      {label: "Animals", icon: "paw-print"},
	"vehicle":     {label: "Vehicles", icon: "car"},
	"building":    {label: "Buildings", icon: "building"},
	CategoryOther: {label: "Other", icon: "image"},
}

// Labels some classifier versions emit for catalog categories.
var categoryAliases = map[string]string{
	"essen":       "food",
	"screenshots": "screenshot",
	"documents":   "document",
	"animals":     "animal",
}

// NormalizeCategory maps a raw classifier label to its catalog key.
func NormalizeCategory(raw string) string {
	if key, ok := catalogKey(raw); ok {
		return key
	}
	return CategoryOther
}

// catalogKey resolves raw to a catalog key when it names one directly or
// through an alias.
func catalogKey(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := categoryAliases[key]; ok {
		key = alias
	}
	_, ok := categoryCatalog[key]
	return key, ok
}

// Aggregator builds the per-category usage breakdown from the photo store.
type Aggregator struct {
	store    outbound.PhotoStorePort
	cache    outbound.UsageCachePort
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewAggregator creates a new aggregator. cache may be nil.
func NewAggregator(store outbound.PhotoStorePort, cache outbound.UsageCachePort, cacheTTL time.Duration, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.Named("aggregator"),
	}
}

// Summarize returns the account's active usage grouped by category, largest first.
func (a *Aggregator) Summarize(ctx context.Context, accountID string) ([]model.CategorySummary, error) {
	if a.cache != nil {
		cached, err := a.cache.GetCategories(ctx, accountID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, outbound.ErrCacheMiss) {
			a.logger.Warn("category cache read failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}

	totals, err := a.store.ListByCategory(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	summaries := Summarize(totals)

	if a.cache != nil && a.cacheTTL > 0 {
		if err := a.cache.SetCategories(ctx, accountID, summaries, a.cacheTTL); err != nil {
			a.logger.Warn("category cache write failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}
	return summaries, nil
}

// Handles implements events.Handler. Every usage change invalidates the cached breakdown.
func (a *Aggregator) Handles() []string {
	return UsageChangedTypes
}

// Handle implements events.Handler.
func (a *Aggregator) Handle(ctx context.Context, event events.Event) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Invalidate(ctx, event.AccountID())
}

// Summarize folds raw category totals into catalog entries.
// Ties on size are ordered by key so output is stable.
func Summarize(totals []model.CategoryTotal) []model.CategorySummary {
	merged := make(map[string]*model.CategorySummary)
	for _, t := range totals {
		key := NormalizeCategory(t.Category)
		s, ok := merged[key]
		if !ok {
			info := categoryCatalog[key]
			s = &model.CategorySummary{Key: key, Label: info.label, Icon: info.icon}
			merged[key] = s
		}
		s.Count += t.Count
		s.TotalBytes += t.TotalBytes
	}

	out := make([]model.CategorySummary, 0, len(merged))
	for _, s := range merged {
		s.Formatted = model.FormatBytes(s.TotalBytes)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalBytes != out[j].TotalBytes {
			return out[i].TotalBytes > out[j].TotalBytes
		}
		return out[i].Key < out[j].Key
	})
	return out
}

var _ events.Handler = (*Aggregator)(nil)
