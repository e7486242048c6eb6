package photos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uniedit/photos/internal/adapter/outbound/memory"
	"github.com/uniedit/photos/internal/infra/events"
	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/outbound"
	"go.uber.org/zap"
)

// MockUsageCache is a mock of outbound.UsageCachePort.
type MockUsageCache struct {
	mock.Mock
}

func (m *MockUsageCache) GetCategories(ctx context.Context, accountID string) ([]model.CategorySummary, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CategorySummary), args.Error(1)
}

func (m *MockUsageCache) SetCategories(ctx context.Context, accountID string, summaries []model.CategorySummary, ttl time.Duration) error {
	args := m.Called(ctx, accountID, summaries, ttl)
	return args.Error(0)
}

func (m *MockUsageCache) Invalidate(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"food", "food"},
		{" Food ", "food"},
		{"essen", "food"},
		{"Screenshots", "screenshot"},
		{"", CategoryOther},
		{"spaceship", CategoryOther},
		{"other", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCategory(tt.raw))
		})
	}
}

func TestSummarize(t *testing.T) {
	summaries := Summarize([]model.CategoryTotal{
		{Category: "", Count: 2, TotalBytes: 100},
		{Category: "food", Count: 1, TotalBytes: 2048},
		{Category: "essen", Count: 1, TotalBytes: 1024},
		{Category: "unknown", Count: 3, TotalBytes: 300},
		{Category: "people", Count: 1, TotalBytes: 400},
	})

	require.Len(t, summaries, 3)

	assert.Equal(t, "food", summaries[0].Key)
	assert.Equal(t, "Food", summaries[0].Label)
	assert.Equal(t, "utensils", summaries[0].Icon)
	assert.Equal(t, int64(2), summaries[0].Count)
	assert.Equal(t, int64(3072), summaries[0].TotalBytes)
	assert.Equal(t, "3 KB", summaries[0].Formatted)

	// other and people tie at 400 bytes; ties are ordered by key.
	assert.Equal(t, CategoryOther, summaries[1].Key)
	assert.Equal(t, int64(5), summaries[1].Count)
	assert.Equal(t, "people", summaries[2].Key)
}

func TestSummarize_Empty(t *testing.T) {
	summaries := Summarize(nil)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
}

func TestAggregator_Summarize(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *memory.PhotoStore {
		store := memory.NewPhotoStore()
		require.NoError(t, store.Insert(ctx, &model.Photo{PhotoID: "p1", OwnerAccountID: "acc", SizeBytes: 10, Category: strPtr("food")}))
		require.NoError(t, store.Insert(ctx, &model.Photo{PhotoID: "p2", OwnerAccountID: "acc", SizeBytes: 20, Category: strPtr("animal")}))
		return store
	}

	t.Run("without cache", func(t *testing.T) {
		agg := NewAggregator(newStore(t), nil, time.Minute, zap.NewNop())
		summaries, err := agg.Summarize(ctx, "acc")
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, "animal", summaries[0].Key)
	})

	t.Run("cache hit skips store", func(t *testing.T) {
		cached := []model.CategorySummary{{Key: "food", TotalBytes: 1}}
		cache := new(MockUsageCache)
		cache.On("GetCategories", ctx, "acc").Return(cached, nil)

		agg := NewAggregator(memory.NewPhotoStore(), cache, time.Minute, zap.NewNop())
		summaries, err := agg.Summarize(ctx, "acc")
		require.NoError(t, err)
		assert.Equal(t, cached, summaries)
		cache.AssertExpectations(t)
	})

	t.Run("cache miss fills cache", func(t *testing.T) {
		cache := new(MockUsageCache)
		cache.On("GetCategories", ctx, "acc").Return(nil, outbound.ErrCacheMiss)
		cache.On("SetCategories", ctx, "acc", mock.AnythingOfType("[]model.CategorySummary"), time.Minute).Return(nil)

		agg := NewAggregator(newStore(t), cache, time.Minute, zap.NewNop())
		summaries, err := agg.Summarize(ctx, "acc")
		require.NoError(t, err)
		assert.Len(t, summaries, 2)
		cache.AssertExpectations(t)
	})

	t.Run("cache errors do not fail the read", func(t *testing.T) {
		cache := new(MockUsageCache)
		cache.On("GetCategories", ctx, "acc").Return(nil, errors.New("redis down"))
		cache.On("SetCategories", ctx, "acc", mock.Anything, time.Minute).Return(errors.New("redis down"))

		agg := NewAggregator(newStore(t), cache, time.Minute, zap.NewNop())
		summaries, err := agg.Summarize(ctx, "acc")
		require.NoError(t, err)
		assert.Len(t, summaries, 2)
	})
}

func TestAggregator_HandleInvalidates(t *testing.T) {
	ctx := context.Background()
	cache := new(MockUsageCache)
	cache.On("Invalidate", ctx, "acc").Return(nil)

	agg := NewAggregator(memory.NewPhotoStore(), cache, time.Minute, zap.NewNop())
	assert.Contains(t, agg.Handles(), PhotosTrashedType)
	assert.NotContains(t, agg.Handles(), PhotoReleaseFailedType)

	bus := events.NewBus(zap.NewNop())
	bus.Register(agg)
	bus.Publish(ctx, newPhotosTrashedEvent("acc", []string{"p1"}, 10, testEpoch))

	cache.AssertExpectations(t)
}
