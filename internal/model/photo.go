package model

import (
	"errors"
	"fmt"
	"time"
)

// LifecycleState represents where a photo sits in the trash lifecycle.
type LifecycleState string

const (
	LifecycleActive  LifecycleState = "active"
	LifecycleTrashed LifecycleState = "trashed"
	LifecyclePurged  LifecycleState = "purged"
)

// String returns the string representation of the state.
func (s LifecycleState) String() string {
	return string(s)
}

// IsValid checks if the state is a known lifecycle state.
func (s LifecycleState) IsValid() bool {
	switch s {
	case LifecycleActive, LifecycleTrashed, LifecyclePurged:
		return true
	}
	return false
}

// ErrInvalidTransition is returned when a lifecycle move is not allowed.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// lifecycleTransitions lists the allowed moves. Purged is terminal.
var lifecycleTransitions = map[LifecycleState][]LifecycleState{
	LifecycleActive:  {LifecycleTrashed},
	LifecycleTrashed: {LifecycleActive, LifecyclePurged},
	LifecyclePurged:  {},
}

// CanTransitionTo checks if moving to next is allowed.
func (s LifecycleState) CanTransitionTo(next LifecycleState) bool {
	for _, allowed := range lifecycleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo validates a move from s to next.
func (s LifecycleState) TransitionTo(next LifecycleState) error {
	if !s.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}

// Photo is one stored item. SizeBytes never changes after insert.
type Photo struct {
	PhotoID            string         `json:"photo_id" gorm:"primaryKey"`
	OwnerAccountID     string         `json:"owner_account_id" gorm:"not null;index"`
	SizeBytes          int64          `json:"size_bytes" gorm:"not null"`
	Category           *string        `json:"category,omitempty"`
	CategoryConfidence *float64       `json:"category_confidence,omitempty"`
	Width              *int           `json:"width,omitempty"`
	Height             *int           `json:"height,omitempty"`
	CapturedAt         *time.Time     `json:"captured_at,omitempty"`
	StorageKey         string         `json:"storage_key,omitempty"`
	ThumbnailKey       string         `json:"thumbnail_key,omitempty"`
	LifecycleState     LifecycleState `json:"lifecycle_state" gorm:"not null;default:active;index"`
	TrashedAt          *time.Time     `json:"trashed_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// TableName returns the database table name.
func (Photo) TableName() string {
	return "photos"
}

// CategoryKey returns the raw classifier label, or "" when unclassified.
func (p *Photo) CategoryKey() string {
	if p.Category == nil {
		return ""
	}
	return *p.Category
}

// BlobKeys returns the object keys that hold this photo's bytes.
func (p *Photo) BlobKeys() []string {
	keys := make([]string, 0, 2)
	if p.StorageKey != "" {
		keys = append(keys, p.StorageKey)
	}
	if p.ThumbnailKey != "" {
		keys = append(keys, p.ThumbnailKey)
	}
	return keys
}

// PhotoResponse represents a photo in API responses.
type PhotoResponse struct {
	PhotoID        string     `json:"photo_id"`
	SizeBytes      int64      `json:"size_bytes"`
	SizeFormatted  string     `json:"size_formatted"`
	Category       string     `json:"category,omitempty"`
	Width          *int       `json:"width,omitempty"`
	Height         *int       `json:"height,omitempty"`
	CapturedAt     *time.Time `json:"captured_at,omitempty"`
	LifecycleState string     `json:"lifecycle_state"`
	TrashedAt      *time.Time `json:"trashed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToResponse converts Photo to PhotoResponse.
func (p *Photo) ToResponse() *PhotoResponse {
	return &PhotoResponse{
		PhotoID:        p.PhotoID,
		SizeBytes:      p.SizeBytes,
		SizeFormatted:  FormatBytes(p.SizeBytes),
		Category:       p.CategoryKey(),
		Width:          p.Width,
		Height:         p.Height,
		CapturedAt:     p.CapturedAt,
		LifecycleState: p.LifecycleState.String(),
		TrashedAt:      p.TrashedAt,
		CreatedAt:      p.CreatedAt,
	}
}

// UploadMeta carries the metadata the ingestion pipeline reports for a stored photo.
type UploadMeta struct {
	PhotoID            string     `json:"photo_id" binding:"required"`
	SizeBytes          int64      `json:"size_bytes" binding:"required,gt=0"`
	Category           *string    `json:"category,omitempty"`
	CategoryConfidence *float64   `json:"category_confidence,omitempty"`
	Width              *int       `json:"width,omitempty"`
	Height             *int       `json:"height,omitempty"`
	CapturedAt         *time.Time `json:"captured_at,omitempty"`
	StorageKey         string     `json:"storage_key,omitempty"`
	ThumbnailKey       string     `json:"thumbnail_key,omitempty"`
}

// CategoryTotal is a grouped total of active photos for one raw category.
type CategoryTotal struct {
	Category   string `json:"category"`
	Count      int64  `json:"count"`
	TotalBytes int64  `json:"total_bytes"`
}

// LowQualityCriteria selects photos likely to be worth reviewing for deletion.
type LowQualityCriteria struct {
	MinWidth      int
	MinHeight     int
	MinConfidence float64
}

// DefaultLowQualityCriteria returns the thresholds used by the usage view.
func DefaultLowQualityCriteria() LowQualityCriteria {
	return LowQualityCriteria{
		MinWidth:      500,
		MinHeight:     500,
		MinConfidence: 0.3,
	}
}

// Matches reports whether p falls below any threshold. Unknown dimensions never match.
func (c LowQualityCriteria) Matches(p *Photo) bool {
	if p.Width != nil && *p.Width < c.MinWidth {
		return true
	}
	if p.Height != nil && *p.Height < c.MinHeight {
		return true
	}
	return p.CategoryConfidence != nil && *p.CategoryConfidence < c.MinConfidence
}
