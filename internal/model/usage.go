package model

// CategorySummary is one row of the per-category usage breakdown.
type CategorySummary struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Icon       string `json:"icon"`
	Count      int64  `json:"count"`
	TotalBytes int64  `json:"total_bytes"`
	Formatted  string `json:"formatted"`
}

// Projection estimates when an account will fill its limit.
type Projection struct {
	YearsUntilFull   float64 `json:"years_until_full"`
	MonthlyRateBytes int64   `json:"monthly_rate_bytes"`
	UsedPercent      float64 `json:"used_percent"`
}

// UsageReport is everything the usage view shows for an account.
type UsageReport struct {
	Account    *AccountResponse  `json:"account"`
	Categories []CategorySummary `json:"categories"`
	Projection Projection        `json:"projection"`
	LargeFiles []*PhotoResponse  `json:"large_files"`
	LowQuality []*PhotoResponse  `json:"low_quality"`
}

// DeleteResult reports the outcome of a soft delete.
// Only DeletedIDs were moved to trash; SkippedIDs were missing, not owned, or not active.
type DeleteResult struct {
	DeletedIDs []string `json:"deleted_ids"`
	SkippedIDs []string `json:"skipped_ids"`
	FreedBytes int64    `json:"freed_bytes"`
	Account    *Account `json:"-"`
}

// RestoreResult reports the outcome of a restore.
type RestoreResult struct {
	RestoredIDs   []string `json:"restored_ids"`
	SkippedIDs    []string `json:"skipped_ids"`
	RestoredBytes int64    `json:"restored_bytes"`
	Account       *Account `json:"-"`
}

// ReleaseFailure records a photo whose bytes could not be released.
type ReleaseFailure struct {
	PhotoID string `json:"photo_id"`
	Reason  string `json:"reason"`
}

// PurgeResult reports the outcome of emptying trash.
type PurgeResult struct {
	PurgedIDs          []string         `json:"purged_ids"`
	ReclaimedDiskBytes int64            `json:"reclaimed_disk_bytes"`
	Failed             []ReleaseFailure `json:"failed"`
	Account            *Account         `json:"-"`
}

// SweepResult summarizes one scheduled purge of expired trash.
type SweepResult struct {
	AccountsProcessed  int   `json:"accounts_processed"`
	PurgedCount        int   `json:"purged_count"`
	FailedCount        int   `json:"failed_count"`
	ReclaimedDiskBytes int64 `json:"reclaimed_disk_bytes"`
	LeftoversRemoved   int64 `json:"leftovers_removed"`
}

// DriftReport describes a ledger row whose counter disagrees with its active photos.
type DriftReport struct {
	AccountID   string `json:"account_id"`
	LedgerBytes int64  `json:"ledger_bytes"`
	ActiveBytes int64  `json:"active_bytes"`
	LedgerCount int64  `json:"ledger_count"`
	ActiveCount int64  `json:"active_count"`
}

// Drifted reports whether the ledger and the active sum disagree.
func (d *DriftReport) Drifted() bool {
	return d.LedgerBytes != d.ActiveBytes || d.LedgerCount != d.ActiveCount
}
