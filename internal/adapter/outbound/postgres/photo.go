package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// photoAdapter implements outbound.PhotoStorePort.
type photoAdapter struct {
	db *gorm.DB
}

// NewPhotoAdapter creates a new photo database adapter.
func NewPhotoAdapter(db *gorm.DB) outbound.PhotoStorePort {
	return &photoAdapter{db: db}
}

func (a *photoAdapter) Insert(ctx context.Context, photo *model.Photo) error {
	err := a.db.WithContext(ctx).Create(photo).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return outbound.ErrDuplicateKey
	}
	return err
}

func (a *photoAdapter) FindByIDs(ctx context.Context, accountID string, ids []string) ([]*model.Photo, error) {
	var photos []*model.Photo
	if len(ids) == 0 {
		return photos, nil
	}
	err := a.db.WithContext(ctx).
		Where("photo_id IN ? AND owner_account_id = ?", ids, accountID).
		Find(&photos).Error
	return photos, err
}

// transition moves rows in one guarded UPDATE and returns the rows it touched.
// Two concurrent callers can never both see the same row in their result.
func (a *photoAdapter) transition(ctx context.Context, accountID string, ids []string, from, to model.LifecycleState, updates map[string]interface{}) ([]*model.Photo, error) {
	var moved []*model.Photo
	if len(ids) == 0 {
		return moved, nil
	}
	if err := from.TransitionTo(to); err != nil {
		return nil, err
	}

	updates["lifecycle_state"] = string(to)
	err := a.db.WithContext(ctx).
		Model(&moved).
		Clauses(clause.Returning{}).
		Where("photo_id IN ? AND owner_account_id = ? AND lifecycle_state = ?", ids, accountID, string(from)).
		Updates(updates).Error
	return moved, err
}

func (a *photoAdapter) MarkTrashed(ctx context.Context, accountID string, ids []string, at time.Time) ([]*model.Photo, error) {
	return a.transition(ctx, accountID, ids, model.LifecycleActive, model.LifecycleTrashed, map[string]interface{}{
		"trashed_at": at,
		"updated_at": at,
	})
}

func (a *photoAdapter) MarkActive(ctx context.Context, accountID string, ids []string, at time.Time) ([]*model.Photo, error) {
	return a.transition(ctx, accountID, ids, model.LifecycleTrashed, model.LifecycleActive, map[string]interface{}{
		"trashed_at": nil,
		"updated_at": at,
	})
}

func (a *photoAdapter) MarkPurged(ctx context.Context, accountID string, ids []string, at time.Time) ([]*model.Photo, error) {
	return a.transition(ctx, accountID, ids, model.LifecycleTrashed, model.LifecyclePurged, map[string]interface{}{
		"updated_at": at,
	})
}

func (a *photoAdapter) UpdateCategory(ctx context.Context, accountID, photoID string, category *string, confidence *float64, at time.Time) (*model.Photo, error) {
	var updated []*model.Photo
	err := a.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("photo_id = ? AND owner_account_id = ? AND lifecycle_state <> ?", photoID, accountID, string(model.LifecyclePurged)).
		Updates(map[string]interface{}{
			"category":            category,
			"category_confidence": confidence,
			"updated_at":          at,
		}).Error
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, nil
	}
	return updated[0], nil
}

func (a *photoAdapter) Remove(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := a.db.WithContext(ctx).
		Where("photo_id IN ? AND lifecycle_state = ?", ids, string(model.LifecyclePurged)).
		Delete(&model.Photo{})
	return result.RowsAffected, result.Error
}

func (a *photoAdapter) ListByCategory(ctx context.Context, accountID string) ([]model.CategoryTotal, error) {
	var totals []model.CategoryTotal
	err := a.db.WithContext(ctx).
		Model(&model.Photo{}).
		Select("COALESCE(category, '') AS category, COUNT(*) AS count, COALESCE(SUM(size_bytes), 0) AS total_bytes").
		Where("owner_account_id = ? AND lifecycle_state = ?", accountID, string(model.LifecycleActive)).
		Group("COALESCE(category, '')").
		Order("category ASC").
		Scan(&totals).Error
	return totals, err
}

func (a *photoAdapter) ListActiveIDsByCategory(ctx context.Context, accountID, category string) ([]string, error) {
	query := a.db.WithContext(ctx).
		Model(&model.Photo{}).
		Where("owner_account_id = ? AND lifecycle_state = ?", accountID, string(model.LifecycleActive))
	if category == "" {
		query = query.Where("category IS NULL OR category = ''")
	} else {
		query = query.Where("category = ?", category)
	}

	var ids []string
	err := query.Order("photo_id ASC").Pluck("photo_id", &ids).Error
	return ids, err
}

func (a *photoAdapter) ListTrashed(ctx context.Context, accountID string) ([]*model.Photo, error) {
	var photos []*model.Photo
	err := a.db.WithContext(ctx).
		Where("owner_account_id = ? AND lifecycle_state = ?", accountID, string(model.LifecycleTrashed)).
		Order("trashed_at DESC, photo_id ASC").
		Find(&photos).Error
	return photos, err
}

func (a *photoAdapter) ListLarge(ctx context.Context, accountID string, minBytes int64, limit int) ([]*model.Photo, error) {
	var photos []*model.Photo
	err := a.db.WithContext(ctx).
		Where("owner_account_id = ? AND lifecycle_state = ? AND size_bytes > ?", accountID, string(model.LifecycleActive), minBytes).
		Order("size_bytes DESC, photo_id ASC").
		Scopes(limitRows(limit)).
		Find(&photos).Error
	return photos, err
}

func (a *photoAdapter) ListLowQuality(ctx context.Context, accountID string, criteria model.LowQualityCriteria, limit int) ([]*model.Photo, error) {
	var photos []*model.Photo
	// Comparisons against NULL are never true, so unknown values never match.
	err := a.db.WithContext(ctx).
		Where("owner_account_id = ? AND lifecycle_state = ?", accountID, string(model.LifecycleActive)).
		Where("width < ? OR height < ? OR category_confidence < ?", criteria.MinWidth, criteria.MinHeight, criteria.MinConfidence).
		Order("size_bytes DESC, photo_id ASC").
		Scopes(limitRows(limit)).
		Find(&photos).Error
	return photos, err
}

func (a *photoAdapter) ListTrashedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Photo, error) {
	var photos []*model.Photo
	err := a.db.WithContext(ctx).
		Where("lifecycle_state = ? AND trashed_at < ?", string(model.LifecycleTrashed), cutoff).
		Order("trashed_at ASC, photo_id ASC").
		Scopes(limitRows(limit)).
		Find(&photos).Error
	return photos, err
}

func (a *photoAdapter) ListPurged(ctx context.Context, cutoff time.Time, limit int) ([]*model.Photo, error) {
	var photos []*model.Photo
	err := a.db.WithContext(ctx).
		Where("lifecycle_state = ? AND updated_at < ?", string(model.LifecyclePurged), cutoff).
		Order("photo_id ASC").
		Scopes(limitRows(limit)).
		Find(&photos).Error
	return photos, err
}

func (a *photoAdapter) SumActive(ctx context.Context, accountID string) (int64, int64, error) {
	var sum struct {
		Bytes int64
		Count int64
	}
	err := a.db.WithContext(ctx).
		Model(&model.Photo{}).
		Select("COALESCE(SUM(size_bytes), 0) AS bytes, COUNT(*) AS count").
		Where("owner_account_id = ? AND lifecycle_state = ?", accountID, string(model.LifecycleActive)).
		Scan(&sum).Error
	return sum.Bytes, sum.Count, err
}

// limitRows applies a LIMIT only when limit is positive.
func limitRows(limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit > 0 {
			return db.Limit(limit)
		}
		return db
	}
}

// Compile-time check
var _ outbound.PhotoStorePort = (*photoAdapter)(nil)
