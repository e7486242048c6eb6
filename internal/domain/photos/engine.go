package photos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/outbound"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// EngineConfig tunes admission and physical release.
type EngineConfig struct {
	MaxPhotoBytes   int64
	ReleaseAttempts int
	ReleaseBackoff  time.Duration
	// ReleaseRate caps blob release calls per second; zero disables pacing.
	ReleaseRate    float64
	ReleaseBurst   int
	SweepBatchSize int
	// LeftoverGrace is how long a photo may sit in the purged state before a
	// sweep treats it as abandoned by a crashed purge.
	LeftoverGrace time.Duration
}

// DefaultEngineConfig returns default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MaxPhotoBytes:   50 * 1024 * 1024,
		ReleaseAttempts: 3,
		ReleaseBackoff:  200 * time.Millisecond,
		ReleaseRate:     50,
		ReleaseBurst:    10,
		SweepBatchSize:  500,
		LeftoverGrace:   time.Hour,
	}
}

// Engine sequences store transitions and ledger adjustments.
// The store is always written before the ledger, and the ledger is only
// adjusted by the sizes of rows the store reports as actually moved.
type Engine struct {
	ledger    *Ledger
	store     outbound.PhotoStorePort
	blobs     outbound.BlobStoragePort
	limiter   *rate.Limiter
	publisher Publisher
	metrics   Metrics
	clock     Clock
	config    *EngineConfig
	logger    *zap.Logger
}

// NewEngine creates a new lifecycle engine. blobs may be nil when photo bytes
// are not managed by this service.
func NewEngine(
	ledger *Ledger,
	store outbound.PhotoStorePort,
	blobs outbound.BlobStoragePort,
	publisher Publisher,
	metrics Metrics,
	clock Clock,
	config *EngineConfig,
	logger *zap.Logger,
) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if clock == nil {
		clock = RealClock{}
	}

	var limiter *rate.Limiter
	if config.ReleaseRate > 0 {
		burst := config.ReleaseBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.ReleaseRate), burst)
	}

	return &Engine{
		ledger:    ledger,
		store:     store,
		blobs:     blobs,
		limiter:   limiter,
		publisher: publisher,
		metrics:   metrics,
		clock:     clock,
		config:    config,
		logger:    logger.Named("engine"),
	}
}

// AdmitUpload checks whether a photo of sizeBytes may be uploaded.
func (e *Engine) AdmitUpload(ctx context.Context, accountID string, sizeBytes int64) (*model.Account, error) {
	if sizeBytes <= 0 {
		return nil, ErrInvalidRequest
	}
	if e.config.MaxPhotoBytes > 0 && sizeBytes > e.config.MaxPhotoBytes {
		e.metrics.QuotaRejected("photo_too_large")
		return nil, fmt.Errorf("%w: %s exceeds %s", ErrPhotoTooLarge,
			model.FormatBytes(sizeBytes), model.FormatBytes(e.config.MaxPhotoBytes))
	}

	account, err := e.ledger.Read(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.CanFit(sizeBytes) {
		e.metrics.QuotaRejected("upload")
		return nil, &QuotaError{NeededBytes: sizeBytes, AvailableBytes: account.AvailableBytes()}
	}
	return account, nil
}

// RecordUpload stores an uploaded photo as active and counts it against the account.
// The limit is not checked here; admission happens before the bytes arrive.
func (e *Engine) RecordUpload(ctx context.Context, accountID string, meta *model.UploadMeta) (*model.Photo, *model.Account, error) {
	if meta == nil || strings.TrimSpace(meta.PhotoID) == "" || meta.SizeBytes <= 0 {
		return nil, nil, ErrInvalidRequest
	}

	now := e.clock.Now()
	photo := &model.Photo{
		PhotoID:            meta.PhotoID,
		OwnerAccountID:     accountID,
		SizeBytes:          meta.SizeBytes,
		Category:           meta.Category,
		CategoryConfidence: meta.CategoryConfidence,
		Width:              meta.Width,
		Height:             meta.Height,
		CapturedAt:         meta.CapturedAt,
		StorageKey:         meta.StorageKey,
		ThumbnailKey:       meta.ThumbnailKey,
		LifecycleState:     model.LifecycleActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := e.store.Insert(ctx, photo); err != nil {
		if errors.Is(err, outbound.ErrDuplicateKey) {
			return nil, nil, ErrDuplicateID
		}
		return nil, nil, fmt.Errorf("insert photo: %w", err)
	}

	account, err := e.ledger.Increment(ctx, accountID, photo.SizeBytes, 1)
	if err != nil {
		e.logger.Error("photo stored but usage not counted",
			zap.String("account_id", accountID),
			zap.String("photo_id", photo.PhotoID),
			zap.Int64("size_bytes", photo.SizeBytes),
			zap.Error(err),
		)
		return nil, nil, err
	}

	e.publisher.Publish(ctx, newPhotoUploadedEvent(accountID, photo.PhotoID, photo.SizeBytes, now))
	return photo, account, nil
}

// SoftDelete moves the account's active photos among photoIDs to trash and
// releases their quota. Ids that are missing, foreign or not active are skipped.
func (e *Engine) SoftDelete(ctx context.Context, accountID string, photoIDs []string) (*model.DeleteResult, error) {
	ids := uniqueIDs(photoIDs)
	if len(ids) == 0 {
		return nil, ErrInvalidRequest
	}

	account, err := e.ledger.Read(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	moved, err := e.store.MarkTrashed(ctx, accountID, ids, now)
	if err != nil {
		return nil, fmt.Errorf("mark trashed: %w", err)
	}

	result := &model.DeleteResult{
		DeletedIDs: photoIDsOf(moved),
		SkippedIDs: missingIDs(ids, moved),
		FreedBytes: totalSize(moved),
		Account:    account,
	}
	if len(moved) == 0 {
		return result, nil
	}

	account, err = e.ledger.Decrement(ctx, accountID, result.FreedBytes, int64(len(moved)))
	if err != nil {
		e.logger.Error("photos trashed but usage not released",
			zap.String("account_id", accountID),
			zap.Int("photo_count", len(moved)),
			zap.Int64("freed_bytes", result.FreedBytes),
			zap.Error(err),
		)
		return nil, err
	}
	result.Account = account

	e.publisher.Publish(ctx, newPhotosTrashedEvent(accountID, result.DeletedIDs, result.FreedBytes, now))
	return result, nil
}

// SoftDeleteByCategory trashes the active photos of one category. Catalog keys
// and their aliases select everything the usage breakdown shows under that key,
// so "other" includes unclassified photos. Any other name matches the stored
// label exactly.
func (e *Engine) SoftDeleteByCategory(ctx context.Context, accountID, category string) (*model.DeleteResult, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrInvalidRequest
	}

	var ids []string
	if target, ok := catalogKey(category); ok {
		totals, err := e.store.ListByCategory(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		for _, t := range totals {
			if NormalizeCategory(t.Category) != target {
				continue
			}
			found, err := e.store.ListActiveIDsByCategory(ctx, accountID, t.Category)
			if err != nil {
				return nil, fmt.Errorf("list category photos: %w", err)
			}
			ids = append(ids, found...)
		}
	} else {
		found, err := e.store.ListActiveIDsByCategory(ctx, accountID, category)
		if err != nil {
			return nil, fmt.Errorf("list category photos: %w", err)
		}
		ids = found
	}

	if len(ids) == 0 {
		account, err := e.ledger.Read(ctx, accountID)
		if err != nil {
			return nil, err
		}
		return &model.DeleteResult{DeletedIDs: []string{}, SkippedIDs: []string{}, Account: account}, nil
	}
	return e.SoftDelete(ctx, accountID, ids)
}

// ReclassifyPhoto records a classifier result that arrived after upload.
// Size is unchanged, so only the category breakdown goes stale.
func (e *Engine) ReclassifyPhoto(ctx context.Context, accountID, photoID string, category *string, confidence *float64) (*model.Photo, error) {
	photoID = strings.TrimSpace(photoID)
	if photoID == "" {
		return nil, ErrInvalidRequest
	}
	if confidence != nil && (*confidence < 0 || *confidence > 1) {
		return nil, fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidRequest)
	}
	if category != nil {
		trimmed := strings.TrimSpace(*category)
		category = &trimmed
		if trimmed == "" {
			category = nil
		}
	}

	now := e.clock.Now()
	photo, err := e.store.UpdateCategory(ctx, accountID, photoID, category, confidence, now)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	if photo == nil {
		return nil, ErrPhotoNotFound
	}

	e.publisher.Publish(ctx, newPhotoReclassifiedEvent(accountID, photoID, photo.CategoryKey(), now))
	return photo, nil
}

// Restore moves trashed photos back to active. The whole request is rejected
// with ErrQuotaExceeded when the restorable photos do not fit under the limit.
func (e *Engine) Restore(ctx context.Context, accountID string, photoIDs []string) (*model.RestoreResult, error) {
	ids := uniqueIDs(photoIDs)
	if len(ids) == 0 {
		return nil, ErrInvalidRequest
	}

	account, err := e.ledger.Read(ctx, accountID)
	if err != nil {
		return nil, err
	}

	found, err := e.store.FindByIDs(ctx, accountID, ids)
	if err != nil {
		return nil, fmt.Errorf("find photos: %w", err)
	}

	var candidates []string
	var needed int64
	for _, p := range found {
		if p.LifecycleState == model.LifecycleTrashed {
			candidates = append(candidates, p.PhotoID)
			needed += p.SizeBytes
		}
	}

	if len(candidates) == 0 {
		return &model.RestoreResult{RestoredIDs: []string{}, SkippedIDs: ids, Account: account}, nil
	}
	if !account.CanFit(needed) {
		e.metrics.QuotaRejected("restore")
		return nil, &QuotaError{NeededBytes: needed, AvailableBytes: account.AvailableBytes()}
	}

	moved, err := e.store.MarkActive(ctx, accountID, candidates, e.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("mark active: %w", err)
	}

	result := &model.RestoreResult{
		RestoredIDs:   photoIDsOf(moved),
		SkippedIDs:    missingIDs(ids, moved),
		RestoredBytes: totalSize(moved),
		Account:       account,
	}
	if len(moved) == 0 {
		return result, nil
	}

	account, err = e.ledger.Increment(ctx, accountID, result.RestoredBytes, int64(len(moved)))
	if err != nil {
		e.logger.Error("photos restored but usage not counted",
			zap.String("account_id", accountID),
			zap.Int("photo_count", len(moved)),
			zap.Int64("restored_bytes", result.RestoredBytes),
			zap.Error(err),
		)
		return nil, err
	}
	result.Account = account

	e.publisher.Publish(ctx, newPhotosRestoredEvent(accountID, result.RestoredIDs, result.RestoredBytes, e.clock.Now()))
	return result, nil
}

// PurgeTrash permanently removes every trashed photo of the account.
// Quota was already released at soft delete, so the ledger is not touched.
func (e *Engine) PurgeTrash(ctx context.Context, accountID string) (*model.PurgeResult, error) {
	if _, err := e.ledger.Read(ctx, accountID); err != nil {
		return nil, err
	}

	trashed, err := e.store.ListTrashed(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}

	result, err := e.purge(ctx, accountID, photoIDsOf(trashed))
	if err != nil {
		return nil, err
	}

	result.Account, err = e.ledger.Read(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PurgeExpired purges photos that have been in trash longer than retention,
// then removes rows abandoned in the purged state by interrupted purges.
func (e *Engine) PurgeExpired(ctx context.Context, retention time.Duration) (*model.SweepResult, error) {
	now := e.clock.Now()
	cutoff := now.Add(-retention)
	sweep := &model.SweepResult{}
	accounts := make(map[string]struct{})

	for {
		if err := ctx.Err(); err != nil {
			return sweep, err
		}

		expired, err := e.store.ListTrashedBefore(ctx, cutoff, e.config.SweepBatchSize)
		if err != nil {
			return sweep, fmt.Errorf("list expired trash: %w", err)
		}
		if len(expired) == 0 {
			break
		}

		for accountID, ids := range groupByOwner(expired) {
			result, err := e.purge(ctx, accountID, ids)
			if err != nil {
				return sweep, err
			}
			accounts[accountID] = struct{}{}
			sweep.PurgedCount += len(result.PurgedIDs)
			sweep.FailedCount += len(result.Failed)
			sweep.ReclaimedDiskBytes += result.ReclaimedDiskBytes
		}

		if len(expired) < e.config.SweepBatchSize {
			break
		}
	}
	sweep.AccountsProcessed = len(accounts)

	leftovers, err := e.store.ListPurged(ctx, now.Add(-e.config.LeftoverGrace), e.config.SweepBatchSize)
	if err != nil {
		return sweep, fmt.Errorf("list leftovers: %w", err)
	}
	if len(leftovers) > 0 {
		for _, p := range leftovers {
			if err := e.release(ctx, p); err != nil {
				e.reportReleaseFailure(ctx, p, err)
			}
		}
		removed, err := e.store.Remove(ctx, photoIDsOf(leftovers))
		if err != nil {
			return sweep, fmt.Errorf("remove leftovers: %w", err)
		}
		sweep.LeftoversRemoved = removed
		e.logger.Warn("removed photos abandoned in purged state", zap.Int64("count", removed))
	}

	return sweep, nil
}

// purge claims the given trashed photos, releases their bytes and removes the rows.
// Rows are removed even when release fails; failures are reported, not retried later.
func (e *Engine) purge(ctx context.Context, accountID string, ids []string) (*model.PurgeResult, error) {
	result := &model.PurgeResult{PurgedIDs: []string{}, Failed: []model.ReleaseFailure{}}
	if len(ids) == 0 {
		return result, nil
	}

	claimed, err := e.store.MarkPurged(ctx, accountID, ids, e.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("claim trash: %w", err)
	}
	if len(claimed) == 0 {
		return result, nil
	}

	for _, p := range claimed {
		if err := e.release(ctx, p); err != nil {
			e.reportReleaseFailure(ctx, p, err)
			result.Failed = append(result.Failed, model.ReleaseFailure{PhotoID: p.PhotoID, Reason: err.Error()})
			continue
		}
		result.ReclaimedDiskBytes += p.SizeBytes
	}

	// The release context may be cancelled; removal must still happen.
	removeCtx := context.WithoutCancel(ctx)
	if _, err := e.store.Remove(removeCtx, photoIDsOf(claimed)); err != nil {
		return nil, fmt.Errorf("remove purged: %w", err)
	}
	result.PurgedIDs = photoIDsOf(claimed)

	e.metrics.PhotosPurged(len(claimed))
	e.metrics.BytesReleased(result.ReclaimedDiskBytes)
	e.logger.Info("trash purged",
		zap.String("account_id", accountID),
		zap.Int("purged", len(claimed)),
		zap.Int("release_failures", len(result.Failed)),
		zap.Int64("reclaimed_disk_bytes", result.ReclaimedDiskBytes),
	)
	e.publisher.Publish(removeCtx, newTrashPurgedEvent(accountID, result.PurgedIDs, result.ReclaimedDiskBytes, e.clock.Now()))
	return result, nil
}

// release deletes a photo's objects with bounded retries.
func (e *Engine) release(ctx context.Context, p *model.Photo) error {
	keys := p.BlobKeys()
	if e.blobs == nil || len(keys) == 0 {
		return nil
	}

	attempts := e.config.ReleaseAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("wait for release slot: %w", err)
			}
		}

		lastErr = e.blobs.Delete(ctx, keys)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, outbound.ErrBlobStoreUnavailable) {
			return fmt.Errorf("release: %w", lastErr)
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.config.ReleaseBackoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("release after %d attempts: %w", attempts, lastErr)
}

func (e *Engine) reportReleaseFailure(ctx context.Context, p *model.Photo, err error) {
	e.metrics.ReleaseFailed()
	e.logger.Error("failed to release photo bytes",
		zap.String("account_id", p.OwnerAccountID),
		zap.String("photo_id", p.PhotoID),
		zap.Strings("keys", p.BlobKeys()),
		zap.Error(err),
	)
	e.publisher.Publish(context.WithoutCancel(ctx),
		newPhotoReleaseFailedEvent(p.OwnerAccountID, p.PhotoID, p.BlobKeys(), err.Error(), e.clock.Now()))
}

// --- helpers ---

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func photoIDsOf(photos []*model.Photo) []string {
	out := make([]string, 0, len(photos))
	for _, p := range photos {
		out = append(out, p.PhotoID)
	}
	return out
}

func totalSize(photos []*model.Photo) int64 {
	var total int64
	for _, p := range photos {
		total += p.SizeBytes
	}
	return total
}

// missingIDs returns the requested ids that are not among moved, in request order.
func missingIDs(requested []string, moved []*model.Photo) []string {
	got := make(map[string]struct{}, len(moved))
	for _, p := range moved {
		got[p.PhotoID] = struct{}{}
	}
	out := []string{}
	for _, id := range requested {
		if _, ok := got[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func groupByOwner(photos []*model.Photo) map[string][]string {
	out := make(map[string][]string)
	for _, p := range photos {
		out[p.OwnerAccountID] = append(out[p.OwnerAccountID], p.PhotoID)
	}
	return out
}
