package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/outbound"
)

func strPtr(s string) *string { return &s }

func seedPhoto(t *testing.T, s *PhotoStore, id, owner string, size int64, category *string) {
	t.Helper()
	require.NoError(t, s.Insert(context.Background(), &model.Photo{
		PhotoID:        id,
		OwnerAccountID: owner,
		SizeBytes:      size,
		Category:       category,
		LifecycleState: model.LifecycleActive,
	}))
}

func TestLedgerStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create if absent is idempotent", func(t *testing.T) {
		s := NewLedgerStore()
		first, err := s.CreateIfAbsent(ctx, &model.Account{AccountID: "a", PlanID: "free", LimitBytes: 100})
		require.NoError(t, err)

		_, err = s.Increment(ctx, "a", 40, 1)
		require.NoError(t, err)

		second, err := s.CreateIfAbsent(ctx, &model.Account{AccountID: "a", PlanID: "pro", LimitBytes: 999})
		require.NoError(t, err)
		assert.Equal(t, "free", second.PlanID)
		assert.Equal(t, int64(40), second.UsedBytes)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)
	})

	t.Run("missing account returns nil", func(t *testing.T) {
		s := NewLedgerStore()
		change, err := s.Increment(ctx, "ghost", 1, 1)
		assert.NoError(t, err)
		assert.Nil(t, change)

		acc, err := s.Get(ctx, "ghost")
		assert.NoError(t, err)
		assert.Nil(t, acc)
	})

	t.Run("decrement clamps and reports previous values", func(t *testing.T) {
		s := NewLedgerStore()
		s.Put(&model.Account{AccountID: "a", LimitBytes: 100, UsedBytes: 10, PhotoCount: 1})

		change, err := s.Decrement(ctx, "a", 25, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(0), change.Account.UsedBytes)
		assert.Equal(t, int64(0), change.Account.PhotoCount)
		assert.Equal(t, int64(10), change.PrevUsedBytes)
		assert.True(t, change.Clamped(25, 2))
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		s := NewLedgerStore()
		s.Put(&model.Account{AccountID: "a", LimitBytes: 1 << 40})

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.Increment(ctx, "a", 3, 1)
			}()
		}
		wg.Wait()

		acc, _ := s.Get(ctx, "a")
		assert.Equal(t, int64(300), acc.UsedBytes)
		assert.Equal(t, int64(100), acc.PhotoCount)
	})

	t.Run("list pages by id", func(t *testing.T) {
		s := NewLedgerStore()
		for _, id := range []string{"c", "a", "b"} {
			s.Put(&model.Account{AccountID: id})
		}

		page, err := s.List(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "a", page[0].AccountID)
		assert.Equal(t, "b", page[1].AccountID)

		page, err = s.List(ctx, "b", 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "c", page[0].AccountID)
	})
}

func TestPhotoStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("insert rejects duplicate id", func(t *testing.T) {
		s := NewPhotoStore()
		seedPhoto(t, s, "p1", "a", 10, nil)
		err := s.Insert(ctx, &model.Photo{PhotoID: "p1", OwnerAccountID: "b", SizeBytes: 5})
		assert.ErrorIs(t, err, outbound.ErrDuplicateKey)
	})

	t.Run("mark trashed moves only owned active rows", func(t *testing.T) {
		s := NewPhotoStore()
		seedPhoto(t, s, "p1", "a", 10, nil)
		seedPhoto(t, s, "p2", "a", 20, nil)
		seedPhoto(t, s, "p3", "b", 30, nil)

		moved, err := s.MarkTrashed(ctx, "a", []string{"p1", "p3", "missing"}, now)
		require.NoError(t, err)
		require.Len(t, moved, 1)
		assert.Equal(t, "p1", moved[0].PhotoID)
		assert.Equal(t, model.LifecycleTrashed, moved[0].LifecycleState)
		require.NotNil(t, moved[0].TrashedAt)

		again, err := s.MarkTrashed(ctx, "a", []string{"p1"}, now)
		require.NoError(t, err)
		assert.Empty(t, again)
	})

	t.Run("purged rows cannot be restored and are removed", func(t *testing.T) {
		s := NewPhotoStore()
		seedPhoto(t, s, "p1", "a", 10, nil)
		_, _ = s.MarkTrashed(ctx, "a", []string{"p1"}, now)

		claimed, err := s.MarkPurged(ctx, "a", []string{"p1"}, now)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		restored, err := s.MarkActive(ctx, "a", []string{"p1"}, now)
		require.NoError(t, err)
		assert.Empty(t, restored)

		n, err := s.Remove(ctx, []string{"p1"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Nil(t, s.Get("p1"))

		n, err = s.Remove(ctx, []string{"p1"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("remove ignores rows that are not purged", func(t *testing.T) {
		s := NewPhotoStore()
		seedPhoto(t, s, "p1", "a", 10, nil)
		n, err := s.Remove(ctx, []string{"p1"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
		assert.NotNil(t, s.Get("p1"))
	})

	t.Run("concurrent claims move a row once", func(t *testing.T) {
		s := NewPhotoStore()
		seedPhoto(t, s, "p1", "a", 10, nil)
		_, _ = s.MarkTrashed(ctx, "a", []string{"p1"}, now)

		var wins int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				claimed, _ := s.MarkPurged(ctx, "a", []string{"p1"}, now)
				atomic.AddInt32(&wins, int32(len(claimed)))
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins)
	})

	t.Run("category totals cover active photos only", func(t *testing.T) {
		s := NewPhotoStore()
		seedPhoto(t, s, "p1", "a", 10, strPtr("food"))
		seedPhoto(t, s, "p2", "a", 20, strPtr("food"))
		seedPhoto(t, s, "p3", "a", 5, nil)
		seedPhoto(t, s, "p4", "a", 7, strPtr("food"))
		_, _ = s.MarkTrashed(ctx, "a", []string{"p4"}, now)

		totals, err := s.ListByCategory(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []model.CategoryTotal{
			{Category: "", Count: 1, TotalBytes: 5},
			{Category: "food", Count: 2, TotalBytes: 30},
		}, totals)

		ids, err := s.ListActiveIDsByCategory(ctx, "a", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"p3"}, ids)
	})

	t.Run("expired trash and leftovers", func(t *testing.T) {
		s := NewPhotoStore()
		seedPhoto(t, s, "old", "a", 10, nil)
		seedPhoto(t, s, "new", "b", 10, nil)
		_, _ = s.MarkTrashed(ctx, "a", []string{"old"}, now.Add(-40*24*time.Hour))
		_, _ = s.MarkTrashed(ctx, "b", []string{"new"}, now)

		expired, err := s.ListTrashedBefore(ctx, now.Add(-30*24*time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, "old", expired[0].PhotoID)

		_, _ = s.MarkPurged(ctx, "a", []string{"old"}, now.Add(-2*time.Hour))
		leftovers, err := s.ListPurged(ctx, now.Add(-time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, leftovers, 1)

		leftovers, err = s.ListPurged(ctx, now.Add(-3*time.Hour), 10)
		require.NoError(t, err)
		assert.Empty(t, leftovers)
	})

	t.Run("mark active stamps the given time", func(t *testing.T) {
		s := NewPhotoStore()
		seedPhoto(t, s, "p1", "a", 10, nil)
		_, _ = s.MarkTrashed(ctx, "a", []string{"p1"}, now)

		later := now.Add(time.Hour)
		restored, err := s.MarkActive(ctx, "a", []string{"p1"}, later)
		require.NoError(t, err)
		require.Len(t, restored, 1)
		assert.Nil(t, restored[0].TrashedAt)
		assert.Equal(t, later, restored[0].UpdatedAt)
	})

	t.Run("update category", func(t *testing.T) {
		s := NewPhotoStore()
		seedPhoto(t, s, "p1", "a", 10, nil)
		seedPhoto(t, s, "p2", "a", 10, strPtr("food"))
		_, _ = s.MarkTrashed(ctx, "a", []string{"p2"}, now)
		_, _ = s.MarkPurged(ctx, "a", []string{"p2"}, now)

		conf := 0.9
		updated, err := s.UpdateCategory(ctx, "a", "p1", strPtr("animal"), &conf, now)
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "animal", updated.CategoryKey())
		assert.Equal(t, 0.9, *updated.CategoryConfidence)
		assert.Equal(t, now, updated.UpdatedAt)

		cleared, err := s.UpdateCategory(ctx, "a", "p1", nil, nil, now)
		require.NoError(t, err)
		assert.Nil(t, cleared.Category)
		assert.Nil(t, cleared.CategoryConfidence)

		foreign, err := s.UpdateCategory(ctx, "b", "p1", strPtr("food"), nil, now)
		require.NoError(t, err)
		assert.Nil(t, foreign)

		purged, err := s.UpdateCategory(ctx, "a", "p2", strPtr("animal"), nil, now)
		require.NoError(t, err)
		assert.Nil(t, purged)
	})

	t.Run("sum active", func(t *testing.T) {
		s := NewPhotoStore()
		seedPhoto(t, s, "p1", "a", 10, nil)
		seedPhoto(t, s, "p2", "a", 15, nil)
		_, _ = s.MarkTrashed(ctx, "a", []string{"p2"}, now)

		bytes, count, err := s.SumActive(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(10), bytes)
		assert.Equal(t, int64(1), count)
	})
}

func TestBlobStorage(t *testing.T) {
	ctx := context.Background()
	b := NewBlobStorage()
	b.Put("k1")
	b.Put("k2")

	b.FailOn("k2", assert.AnError)
	assert.ErrorIs(t, b.Delete(ctx, []string{"k1", "k2"}), assert.AnError)
	assert.True(t, b.Exists("k1"))

	b.FailOn("k2", nil)
	require.NoError(t, b.Delete(ctx, []string{"k1", "k2"}))
	assert.False(t, b.Exists("k1"))
	assert.Equal(t, 1, b.DeleteCount("k2"))
}
