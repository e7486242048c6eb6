package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/outbound"
)

// LedgerStore is an in-memory implementation of outbound.AccountLedgerPort.
// Each call runs under one lock, so adjustments are atomic per call.
// It is safe for concurrent use.
type LedgerStore struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	now      func() time.Time
}

// NewLedgerStore creates an empty in-memory ledger.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		accounts: make(map[string]*model.Account),
		now:      time.Now,
	}
}

// Put stores an account as-is, replacing any existing row. Intended for seeding.
func (s *LedgerStore) Put(account *model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *account
	s.accounts[account.AccountID] = &cp
}

func (s *LedgerStore) CreateIfAbsent(ctx context.Context, account *model.Account) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.accounts[account.AccountID]; ok {
		cp := *existing
		return &cp, nil
	}

	now := s.now()
	row := *account
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	s.accounts[row.AccountID] = &row

	cp := row
	return &cp, nil
}

func (s *LedgerStore) Get(ctx context.Context, accountID string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (s *LedgerStore) Increment(ctx context.Context, accountID string, bytes, count int64) (*outbound.LedgerChange, error) {
	return s.adjust(accountID, bytes, count)
}

func (s *LedgerStore) Decrement(ctx context.Context, accountID string, bytes, count int64) (*outbound.LedgerChange, error) {
	return s.adjust(accountID, -bytes, -count)
}

func (s *LedgerStore) adjust(accountID string, bytes, count int64) (*outbound.LedgerChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}

	change := &outbound.LedgerChange{
		PrevUsedBytes:  row.UsedBytes,
		PrevPhotoCount: row.PhotoCount,
	}
	row.UsedBytes = max(row.UsedBytes+bytes, 0)
	row.PhotoCount = max(row.PhotoCount+count, 0)
	row.UpdatedAt = s.now()

	cp := *row
	change.Account = &cp
	return change, nil
}

func (s *LedgerStore) SetLimit(ctx context.Context, accountID, planID string, limitBytes int64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}
	row.PlanID = planID
	row.LimitBytes = limitBytes
	row.UpdatedAt = s.now()

	cp := *row
	return &cp, nil
}

func (s *LedgerStore) List(ctx context.Context, afterID string, limit int) ([]*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]*model.Account, 0, len(ids))
	for _, id := range ids {
		cp := *s.accounts[id]
		out = append(out, &cp)
	}
	return out, nil
}

var _ outbound.AccountLedgerPort = (*LedgerStore)(nil)
