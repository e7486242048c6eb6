package postgres

import (
	"context"
	"errors"

	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// adjustUsageSQL locks the row, applies the delta clamped at zero and returns
// the new row together with the values it replaced.
const adjustUsageSQL = `
	WITH prev AS (
		SELECT account_id, used_bytes, photo_count
		FROM photo_accounts
		WHERE account_id = ?
		FOR UPDATE
	)
	UPDATE photo_accounts AS a SET
		used_bytes = GREATEST(a.used_bytes + ?, 0),
		photo_count = GREATEST(a.photo_count + ?, 0),
		updated_at = NOW()
	FROM prev
	WHERE a.account_id = prev.account_id
	RETURNING a.*, prev.used_bytes AS prev_used_bytes, prev.photo_count AS prev_photo_count
`

type ledgerRow struct {
	model.Account
	PrevUsedBytes  int64
	PrevPhotoCount int64
}

// accountAdapter implements outbound.AccountLedgerPort.
type accountAdapter struct {
	db *gorm.DB
}

// NewAccountAdapter creates a new account ledger database adapter.
func NewAccountAdapter(db *gorm.DB) outbound.AccountLedgerPort {
	return &accountAdapter{db: db}
}

func (a *accountAdapter) CreateIfAbsent(ctx context.Context, account *model.Account) (*model.Account, error) {
	row := *account
	err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "account_id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	return a.Get(ctx, account.AccountID)
}

func (a *accountAdapter) Get(ctx context.Context, accountID string) (*model.Account, error) {
	var account model.Account
	err := a.db.WithContext(ctx).First(&account, "account_id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (a *accountAdapter) Increment(ctx context.Context, accountID string, bytes, count int64) (*outbound.LedgerChange, error) {
	return a.adjust(ctx, accountID, bytes, count)
}

func (a *accountAdapter) Decrement(ctx context.Context, accountID string, bytes, count int64) (*outbound.LedgerChange, error) {
	return a.adjust(ctx, accountID, -bytes, -count)
}

func (a *accountAdapter) adjust(ctx context.Context, accountID string, bytes, count int64) (*outbound.LedgerChange, error) {
	var row ledgerRow
	result := a.db.WithContext(ctx).Raw(adjustUsageSQL, accountID, bytes, count).Scan(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	account := row.Account
	return &outbound.LedgerChange{
		Account:        &account,
		PrevUsedBytes:  row.PrevUsedBytes,
		PrevPhotoCount: row.PrevPhotoCount,
	}, nil
}

func (a *accountAdapter) SetLimit(ctx context.Context, accountID, planID string, limitBytes int64) (*model.Account, error) {
	var account model.Account
	result := a.db.WithContext(ctx).
		Model(&account).
		Clauses(clause.Returning{}).
		Where("account_id = ?", accountID).
		Updates(map[string]interface{}{
			"plan_id":     planID,
			"limit_bytes": limitBytes,
			"updated_at":  gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &account, nil
}

func (a *accountAdapter) List(ctx context.Context, afterID string, limit int) ([]*model.Account, error) {
	var accounts []*model.Account
	err := a.db.WithContext(ctx).
		Where("account_id > ?", afterID).
		Order("account_id ASC").
		Scopes(limitRows(limit)).
		Find(&accounts).Error
	return accounts, err
}

// Compile-time check
var _ outbound.AccountLedgerPort = (*accountAdapter)(nil)
