package model

import (
	"fmt"
	"math"
	"time"
)

// Account is the per-account storage ledger row.
// UsedBytes tracks the sum of active photo sizes and never goes negative.
type Account struct {
	AccountID  string    `json:"account_id" gorm:"primaryKey"`
	PlanID     string    `json:"plan_id" gorm:"not null"`
	LimitBytes int64     `json:"limit_bytes" gorm:"not null"`
	UsedBytes  int64     `json:"used_bytes" gorm:"not null;default:0"`
	PhotoCount int64     `json:"photo_count" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Account) TableName() string {
	return "photo_accounts"
}

// AvailableBytes returns the remaining capacity, zero when over the limit.
func (a *Account) AvailableBytes() int64 {
	if a.UsedBytes >= a.LimitBytes {
		return 0
	}
	return a.LimitBytes - a.UsedBytes
}

// UsedPercent returns usage as a percentage of the limit, rounded to one decimal.
func (a *Account) UsedPercent() float64 {
	if a.LimitBytes <= 0 {
		return 0
	}
	return math.Round(float64(a.UsedBytes)/float64(a.LimitBytes)*1000) / 10
}

// CanFit reports whether adding size bytes keeps the account within its limit.
func (a *Account) CanFit(size int64) bool {
	return a.UsedBytes+size <= a.LimitBytes
}

// AccountResponse represents an account snapshot in API responses.
type AccountResponse struct {
	AccountID          string  `json:"account_id"`
	PlanID             string  `json:"plan_id"`
	UsedBytes          int64   `json:"used_bytes"`
	LimitBytes         int64   `json:"limit_bytes"`
	AvailableBytes     int64   `json:"available_bytes"`
	PhotoCount         int64   `json:"photo_count"`
	UsedPercent        float64 `json:"used_percent"`
	UsedFormatted      string  `json:"used_formatted"`
	LimitFormatted     string  `json:"limit_formatted"`
	AvailableFormatted string  `json:"available_formatted"`
}

// ToResponse converts Account to AccountResponse.
func (a *Account) ToResponse() *AccountResponse {
	return &AccountResponse{
		AccountID:          a.AccountID,
		PlanID:             a.PlanID,
		UsedBytes:          a.UsedBytes,
		LimitBytes:         a.LimitBytes,
		AvailableBytes:     a.AvailableBytes(),
		PhotoCount:         a.PhotoCount,
		UsedPercent:        a.UsedPercent(),
		UsedFormatted:      FormatBytes(a.UsedBytes),
		LimitFormatted:     FormatBytes(a.LimitBytes),
		AvailableFormatted: FormatBytes(a.AvailableBytes()),
	}
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with 1024-based units, e.g. "1.5 GB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	rounded := math.Round(value*100) / 100
	return fmt.Sprintf("%s %s", trimFloat(rounded), byteUnits[unit])
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
