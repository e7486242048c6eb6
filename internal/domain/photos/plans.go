package photos

import (
	"context"
	"fmt"
	"sort"

	"github.com/uniedit/photos/internal/model"
	"go.uber.org/zap"
)

const gib = int64(1024 * 1024 * 1024)

// DefaultPlanID is the tier new accounts start on.
const DefaultPlanID = "free"

// DefaultPlanTiers returns the built-in catalog.
func DefaultPlanTiers() []model.PlanTier {
	return []model.PlanTier{
		{TierID: "free", DisplayName: "Free", LimitBytes: 5 * gib, MonthlyPriceCents: 0},
		{TierID: "plus", DisplayName: "Plus", LimitBytes: 25 * gib, MonthlyPriceCents: 299},
		{TierID: "pro", DisplayName: "Pro", LimitBytes: 50 * gib, MonthlyPriceCents: 499},
	}
}

// PlanCatalog is the immutable set of tiers loaded at startup.
type PlanCatalog struct {
	tiers map[string]model.PlanTier
	order []model.PlanTier
}

// NewPlanCatalog builds a catalog. An empty list yields the built-in tiers.
func NewPlanCatalog(tiers []model.PlanTier) (*PlanCatalog, error) {
	if len(tiers) == 0 {
		tiers = DefaultPlanTiers()
	}

	c := &PlanCatalog{tiers: make(map[string]model.PlanTier, len(tiers))}
	for _, t := range tiers {
		if t.TierID == "" || t.LimitBytes < 0 {
			return nil, fmt.Errorf("%w: tier %q", ErrInvalidRequest, t.TierID)
		}
		if _, dup := c.tiers[t.TierID]; dup {
			return nil, fmt.Errorf("%w: duplicate tier %q", ErrInvalidRequest, t.TierID)
		}
		c.tiers[t.TierID] = t
		c.order = append(c.order, t)
	}
	sort.SliceStable(c.order, func(i, j int) bool {
		return c.order[i].LimitBytes < c.order[j].LimitBytes
	})
	return c, nil
}

// Lookup returns the tier with the given id.
func (c *PlanCatalog) Lookup(tierID string) (model.PlanTier, error) {
	t, ok := c.tiers[tierID]
	if !ok {
		return model.PlanTier{}, ErrUnknownPlan
	}
	return t, nil
}

// List returns all tiers, smallest limit first.
func (c *PlanCatalog) List() []model.PlanTier {
	out := make([]model.PlanTier, len(c.order))
	copy(out, c.order)
	return out
}

// PlanManager applies tier changes to the ledger.
type PlanManager struct {
	catalog   *PlanCatalog
	ledger    *Ledger
	publisher Publisher
	clock     Clock
	logger    *zap.Logger
}

// NewPlanManager creates a new plan manager.
func NewPlanManager(catalog *PlanCatalog, ledger *Ledger, publisher Publisher, clock Clock, logger *zap.Logger) *PlanManager {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &PlanManager{
		catalog:   catalog,
		ledger:    ledger,
		publisher: publisher,
		clock:     clock,
		logger:    logger.Named("plans"),
	}
}

// ChangePlan sets the account's limit to the tier's limit.
// A limit below current usage is accepted; it blocks further growth only.
func (m *PlanManager) ChangePlan(ctx context.Context, accountID, tierID string) (*model.Account, error) {
	tier, err := m.catalog.Lookup(tierID)
	if err != nil {
		return nil, err
	}

	account, err := m.ledger.SetLimit(ctx, accountID, tier.TierID, tier.LimitBytes)
	if err != nil {
		return nil, err
	}

	if account.UsedBytes > account.LimitBytes {
		m.logger.Info("account over limit after plan change",
			zap.String("account_id", accountID),
			zap.String("plan_id", tier.TierID),
			zap.Int64("used_bytes", account.UsedBytes),
			zap.Int64("limit_bytes", account.LimitBytes),
		)
	}

	m.publisher.Publish(ctx, newPlanChangedEvent(accountID, tier.TierID, tier.LimitBytes, m.clock.Now()))
	return account, nil
}

// ListPlans returns the catalog.
func (m *PlanManager) ListPlans() []model.PlanTier {
	return m.catalog.List()
}
