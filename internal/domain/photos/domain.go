package photos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uniedit/photos/internal/infra/events"
	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/inbound"
	"github.com/uniedit/photos/internal/port/outbound"
	"go.uber.org/zap"
)

// Config holds photo domain configuration.
type Config struct {
	Engine           *EngineConfig
	DefaultPlanID    string
	LargeFileBytes   int64
	LargeFileLimit   int
	LowQualityLimit  int
	LowQuality       model.LowQualityCriteria
	CategoryCacheTTL time.Duration
}

// DefaultConfig returns default domain configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine:           DefaultEngineConfig(),
		DefaultPlanID:    DefaultPlanID,
		LargeFileBytes:   5 * 1024 * 1024,
		LargeFileLimit:   50,
		LowQualityLimit:  20,
		LowQuality:       model.DefaultLowQualityCriteria(),
		CategoryCacheTTL: 5 * time.Minute,
	}
}

// Domain implements the storage quota use cases on top of the ledger,
// the photo store and the derived views.
type Domain struct {
	ledger     *Ledger
	store      outbound.PhotoStorePort
	engine     *Engine
	aggregator *Aggregator
	estimator  *Estimator
	catalog    *PlanCatalog
	plans      *PlanManager
	config     *Config
	logger     *zap.Logger
}

// NewPhotosDomain creates a new photos domain service.
func NewPhotosDomain(
	ledgerDB outbound.AccountLedgerPort,
	photoDB outbound.PhotoStorePort,
	blobs outbound.BlobStoragePort,
	usageCache outbound.UsageCachePort,
	catalog *PlanCatalog,
	publisher Publisher,
	metrics Metrics,
	clock Clock,
	config *Config,
	logger *zap.Logger,
) (*Domain, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DefaultPlanID == "" {
		config.DefaultPlanID = DefaultPlanID
	}
	if catalog == nil {
		var err error
		if catalog, err = NewPlanCatalog(nil); err != nil {
			return nil, err
		}
	}
	if _, err := catalog.Lookup(config.DefaultPlanID); err != nil {
		return nil, fmt.Errorf("default plan %q: %w", config.DefaultPlanID, err)
	}

	ledger := NewLedger(ledgerDB, metrics, logger)
	return &Domain{
		ledger:     ledger,
		store:      photoDB,
		engine:     NewEngine(ledger, photoDB, blobs, publisher, metrics, clock, config.Engine, logger),
		aggregator: NewAggregator(photoDB, usageCache, config.CategoryCacheTTL, logger),
		estimator:  NewEstimator(clock),
		catalog:    catalog,
		plans:      NewPlanManager(catalog, ledger, publisher, clock, logger),
		config:     config,
		logger:     logger,
	}, nil
}

// Compile-time interface check
var _ inbound.PhotosDomain = (*Domain)(nil)

// CacheInvalidator returns the handler that drops cached usage views on change.
func (d *Domain) CacheInvalidator() events.Handler {
	return d.aggregator
}

// --- Accounts and analytics ---

// EnsureAccount provisions the account on the default plan if it does not exist yet.
func (d *Domain) EnsureAccount(ctx context.Context, accountID string) (*model.Account, error) {
	tier, err := d.catalog.Lookup(d.config.DefaultPlanID)
	if err != nil {
		return nil, err
	}
	return d.ledger.Provision(ctx, accountID, tier)
}

func (d *Domain) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	return d.ledger.Read(ctx, accountID)
}

// GetUsage assembles the usage view: snapshot, category breakdown, projection and drill-downs.
func (d *Domain) GetUsage(ctx context.Context, accountID string) (*model.UsageReport, error) {
	account, err := d.ledger.Read(ctx, accountID)
	if err != nil {
		return nil, err
	}

	categories, err := d.aggregator.Summarize(ctx, accountID)
	if err != nil {
		return nil, err
	}

	large, err := d.store.ListLarge(ctx, accountID, d.config.LargeFileBytes, d.config.LargeFileLimit)
	if err != nil {
		return nil, fmt.Errorf("list large files: %w", err)
	}

	lowQuality, err := d.store.ListLowQuality(ctx, accountID, d.config.LowQuality, d.config.LowQualityLimit)
	if err != nil {
		return nil, fmt.Errorf("list low quality: %w", err)
	}

	return &model.UsageReport{
		Account:    account.ToResponse(),
		Categories: categories,
		Projection: d.estimator.Estimate(account),
		LargeFiles: toPhotoResponses(large),
		LowQuality: toPhotoResponses(lowQuality),
	}, nil
}

func (d *Domain) ListTrash(ctx context.Context, accountID string) ([]*model.Photo, error) {
	if _, err := d.ledger.Read(ctx, accountID); err != nil {
		return nil, err
	}
	photos, err := d.store.ListTrashed(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	return photos, nil
}

// --- Lifecycle ---

// AdmitUpload provisions the account if needed and checks the upload fits.
func (d *Domain) AdmitUpload(ctx context.Context, accountID string, sizeBytes int64) (*model.Account, error) {
	if _, err := d.EnsureAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return d.engine.AdmitUpload(ctx, accountID, sizeBytes)
}

// RecordUpload provisions the account if needed and records the stored photo.
func (d *Domain) RecordUpload(ctx context.Context, accountID string, meta *model.UploadMeta) (*model.Photo, *model.Account, error) {
	if _, err := d.EnsureAccount(ctx, accountID); err != nil {
		return nil, nil, err
	}
	return d.engine.RecordUpload(ctx, accountID, meta)
}

func (d *Domain) SoftDelete(ctx context.Context, accountID string, photoIDs []string) (*model.DeleteResult, error) {
	return d.engine.SoftDelete(ctx, accountID, photoIDs)
}

func (d *Domain) SoftDeleteByCategory(ctx context.Context, accountID, category string) (*model.DeleteResult, error) {
	return d.engine.SoftDeleteByCategory(ctx, accountID, category)
}

func (d *Domain) ReclassifyPhoto(ctx context.Context, accountID, photoID string, category *string, confidence *float64) (*model.Photo, error) {
	return d.engine.ReclassifyPhoto(ctx, accountID, photoID, category, confidence)
}

func (d *Domain) Restore(ctx context.Context, accountID string, photoIDs []string) (*model.RestoreResult, error) {
	return d.engine.Restore(ctx, accountID, photoIDs)
}

func (d *Domain) PurgeTrash(ctx context.Context, accountID string) (*model.PurgeResult, error) {
	return d.engine.PurgeTrash(ctx, accountID)
}

func (d *Domain) PurgeExpired(ctx context.Context, retention time.Duration) (*model.SweepResult, error) {
	if retention < 0 {
		return nil, ErrInvalidRequest
	}
	return d.engine.PurgeExpired(ctx, retention)
}

// --- Plans ---

func (d *Domain) ListPlans() []model.PlanTier {
	return d.plans.ListPlans()
}

func (d *Domain) ChangePlan(ctx context.Context, accountID, tierID string) (*model.Account, error) {
	return d.plans.ChangePlan(ctx, accountID, tierID)
}

// --- Operations ---

// AuditDrift compares every ledger row with the sum of its active photos.
// It only reports; correcting drift is left to the operator.
func (d *Domain) AuditDrift(ctx context.Context, pageSize int) ([]model.DriftReport, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	var reports []model.DriftReport
	after := ""
	for {
		accounts, err := d.ledger.db.List(ctx, after, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}

		for _, a := range accounts {
			bytes, count, err := d.store.SumActive(ctx, a.AccountID)
			if err != nil {
				return nil, fmt.Errorf("sum active for %s: %w", a.AccountID, err)
			}
			report := model.DriftReport{
				AccountID:   a.AccountID,
				LedgerBytes: a.UsedBytes,
				ActiveBytes: bytes,
				LedgerCount: a.PhotoCount,
				ActiveCount: count,
			}
			if report.Drifted() {
				reports = append(reports, report)
			}
		}

		if len(accounts) < pageSize {
			return reports, nil
		}
		after = accounts[len(accounts)-1].AccountID
	}
}

func toPhotoResponses(photos []*model.Photo) []*model.PhotoResponse {
	out := make([]*model.PhotoResponse, 0, len(photos))
	for _, p := range photos {
		out = append(out, p.ToResponse())
	}
	return out
}

// IsClientError reports whether err is caused by the request rather than the service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrUnknownPlan) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrPhotoTooLarge) ||
		errors.Is(err, ErrDuplicateID) ||
		errors.Is(err, ErrPhotoNotFound) ||
		errors.Is(err, ErrInvalidTransition)
}
