package photos

import (
	"context"
	"fmt"
	"strings"

	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/outbound"
	"go.uber.org/zap"
)

// Ledger owns the per-account usage counters and limits.
// It never looks at photo records; callers pass the amounts to apply.
type Ledger struct {
	db      outbound.AccountLedgerPort
	metrics Metrics
	logger  *zap.Logger
}

// NewLedger creates a new ledger.
func NewLedger(db outbound.AccountLedgerPort, metrics Metrics, logger *zap.Logger) *Ledger {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Ledger{
		db:      db,
		metrics: metrics,
		logger:  logger.Named("ledger"),
	}
}

// Provision creates the account on the given tier unless it already exists.
// An existing account is returned untouched.
func (l *Ledger) Provision(ctx context.Context, accountID string, tier model.PlanTier) (*model.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, ErrInvalidRequest
	}

	account, err := l.db.CreateIfAbsent(ctx, &model.Account{
		AccountID:  accountID,
		PlanID:     tier.TierID,
		LimitBytes: tier.LimitBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("provision account: %w", err)
	}
	return account, nil
}

// Read returns the current snapshot of an account.
func (l *Ledger) Read(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := l.db.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// Increment adds bytes and photos to the account's usage.
func (l *Ledger) Increment(ctx context.Context, accountID string, bytes, photos int64) (*model.Account, error) {
	if bytes < 0 || photos < 0 {
		return nil, ErrInvalidRequest
	}

	change, err := l.db.Increment(ctx, accountID, bytes, photos)
	if err != nil {
		return nil, fmt.Errorf("increment usage: %w", err)
	}
	if change == nil {
		return nil, ErrAccountNotFound
	}
	return change.Account, nil
}

// Decrement subtracts bytes and photos from the account's usage.
// Counters stop at zero; a clamp means the ledger had drifted and is logged for audit.
func (l *Ledger) Decrement(ctx context.Context, accountID string, bytes, photos int64) (*model.Account, error) {
	if bytes < 0 || photos < 0 {
		return nil, ErrInvalidRequest
	}

	change, err := l.db.Decrement(ctx, accountID, bytes, photos)
	if err != nil {
		return nil, fmt.Errorf("decrement usage: %w", err)
	}
	if change == nil {
		return nil, ErrAccountNotFound
	}

	if change.Clamped(bytes, photos) {
		l.metrics.LedgerClamped()
		l.logger.Warn("usage decrement clamped at zero",
			zap.String("account_id", accountID),
			zap.Int64("prev_used_bytes", change.PrevUsedBytes),
			zap.Int64("prev_photo_count", change.PrevPhotoCount),
			zap.Int64("decrement_bytes", bytes),
			zap.Int64("decrement_photos", photos),
		)
	}
	return change.Account, nil
}

// SetLimit overwrites the account's plan and limit. Usage is not consulted.
func (l *Ledger) SetLimit(ctx context.Context, accountID, planID string, limitBytes int64) (*model.Account, error) {
	if limitBytes < 0 {
		return nil, ErrInvalidRequest
	}

	account, err := l.db.SetLimit(ctx, accountID, planID, limitBytes)
	if err != nil {
		return nil, fmt.Errorf("set limit: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

