package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/uniedit/photos/internal/model"
)

// ErrDuplicateKey is returned when an insert collides with an existing primary key.
var ErrDuplicateKey = errors.New("duplicate key")

// LedgerChange is the result of one atomic counter adjustment.
type LedgerChange struct {
	Account        *model.Account
	PrevUsedBytes  int64
	PrevPhotoCount int64
}

// Clamped reports whether a decrement of bytes/count had to stop at zero.
func (c *LedgerChange) Clamped(bytes, count int64) bool {
	return c.PrevUsedBytes < bytes || c.PrevPhotoCount < count
}

// AccountLedgerPort defines persistence for per-account usage counters.
// Every method is a single atomic operation on one account row.
type AccountLedgerPort interface {
	// CreateIfAbsent inserts the account unless it exists and returns the stored row.
	CreateIfAbsent(ctx context.Context, account *model.Account) (*model.Account, error)

	// Get gets an account. Returns nil, nil when missing.
	Get(ctx context.Context, accountID string) (*model.Account, error)

	// Increment adds to used bytes and photo count. Returns nil, nil when missing.
	Increment(ctx context.Context, accountID string, bytes, count int64) (*LedgerChange, error)

	// Decrement subtracts from used bytes and photo count, stopping at zero.
	// Returns nil, nil when missing.
	Decrement(ctx context.Context, accountID string, bytes, count int64) (*LedgerChange, error)

	// SetLimit overwrites the plan and limit. Returns nil, nil when missing.
	SetLimit(ctx context.Context, accountID, planID string, limitBytes int64) (*model.Account, error)

	// List lists accounts ordered by id, starting after afterID.
	List(ctx context.Context, afterID string, limit int) ([]*model.Account, error)
}

// PhotoStorePort defines persistence for photo records and their lifecycle state.
// Transition methods only move rows that are owned by the account and in the
// expected source state, and return exactly the rows they moved.
type PhotoStorePort interface {
	// Insert inserts an active photo. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, photo *model.Photo) error

	// FindByIDs returns the account's photos among ids, in any state.
	FindByIDs(ctx context.Context, accountID string, ids []string) ([]*model.Photo, error)

	// MarkTrashed moves active photos to trashed.
	MarkTrashed(ctx context.Context, accountID string, ids []string, at time.Time) ([]*model.Photo, error)

	// MarkActive moves trashed photos back to active.
	MarkActive(ctx context.Context, accountID string, ids []string, at time.Time) ([]*model.Photo, error)

	// MarkPurged claims trashed photos for physical release.
	MarkPurged(ctx context.Context, accountID string, ids []string, at time.Time) ([]*model.Photo, error)

	// UpdateCategory sets the classifier result of an owned photo that is not
	// purged. A nil category marks the photo unclassified. Returns nil, nil when
	// no such photo exists.
	UpdateCategory(ctx context.Context, accountID, photoID string, category *string, confidence *float64, at time.Time) (*model.Photo, error)

	// Remove permanently deletes purged photos and returns how many rows went away.
	Remove(ctx context.Context, ids []string) (int64, error)

	// ListByCategory returns grouped totals of active photos. Unclassified photos use "".
	ListByCategory(ctx context.Context, accountID string) ([]model.CategoryTotal, error)

	// ListActiveIDsByCategory lists active photo ids with the given raw category.
	// An empty category selects unclassified photos.
	ListActiveIDsByCategory(ctx context.Context, accountID, category string) ([]string, error)

	// ListTrashed lists trashed photos, most recently trashed first.
	ListTrashed(ctx context.Context, accountID string) ([]*model.Photo, error)

	// ListLarge lists active photos above minBytes, largest first.
	ListLarge(ctx context.Context, accountID string, minBytes int64, limit int) ([]*model.Photo, error)

	// ListLowQuality lists active photos matching the criteria, largest first.
	ListLowQuality(ctx context.Context, accountID string, criteria model.LowQualityCriteria, limit int) ([]*model.Photo, error)

	// ListTrashedBefore lists trashed photos of any account trashed before cutoff.
	ListTrashedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Photo, error)

	// ListPurged lists photos that entered the purged state before cutoff and were never removed.
	ListPurged(ctx context.Context, cutoff time.Time, limit int) ([]*model.Photo, error)

	// SumActive returns the total size and count of the account's active photos.
	SumActive(ctx context.Context, accountID string) (bytes int64, count int64, err error)
}
