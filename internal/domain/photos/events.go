package photos

import (
	"context"
	"time"

	"github.com/uniedit/photos/internal/infra/events"
)

// Event type constants.
const (
	PhotoUploadedType      = "PhotoUploaded"
	PhotosTrashedType      = "PhotosTrashed"
	PhotosRestoredType     = "PhotosRestored"
	TrashPurgedType        = "TrashPurged"
	PhotoReleaseFailedType = "PhotoReleaseFailed"
	PhotoReclassifiedType  = "PhotoReclassified"
	PlanChangedType        = "PlanChanged"
)

// UsageChangedTypes lists every event after which derived usage views are stale.
var UsageChangedTypes = []string{
	PhotoUploadedType,
	PhotosTrashedType,
	PhotosRestoredType,
	TrashPurgedType,
	PhotoReclassifiedType,
	PlanChangedType,
}

// Publisher is the subset of the event bus the domain needs.
type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.Event) {}

// PhotoUploadedEvent is emitted after an upload is recorded and counted.
type PhotoUploadedEvent struct {
	events.BaseEvent
	PhotoID   string `json:"photo_id"`
	SizeBytes int64  `json:"size_bytes"`
}

// PhotosTrashedEvent is emitted after photos move to trash.
type PhotosTrashedEvent struct {
	events.BaseEvent
	PhotoIDs   []string `json:"photo_ids"`
	FreedBytes int64    `json:"freed_bytes"`
}

// PhotosRestoredEvent is emitted after photos leave trash.
type PhotosRestoredEvent struct {
	events.BaseEvent
	PhotoIDs      []string `json:"photo_ids"`
	RestoredBytes int64    `json:"restored_bytes"`
}

// TrashPurgedEvent is emitted after trashed photos are permanently removed.
type TrashPurgedEvent struct {
	events.BaseEvent
	PhotoIDs           []string `json:"photo_ids"`
	ReclaimedDiskBytes int64    `json:"reclaimed_disk_bytes"`
}

// PhotoReleaseFailedEvent is emitted when a photo's bytes could not be released.
// The record is gone; the orphaned objects need external cleanup.
type PhotoReleaseFailedEvent struct {
	events.BaseEvent
	PhotoID string   `json:"photo_id"`
	Keys    []string `json:"keys"`
	Reason  string   `json:"reason"`
}

// PhotoReclassifiedEvent is emitted after a photo's category changes.
// Category is the raw label, "" when unclassified.
type PhotoReclassifiedEvent struct {
	events.BaseEvent
	PhotoID  string `json:"photo_id"`
	Category string `json:"category"`
}

// PlanChangedEvent is emitted after an account's limit changes.
type PlanChangedEvent struct {
	events.BaseEvent
	PlanID     string `json:"plan_id"`
	LimitBytes int64  `json:"limit_bytes"`
}

func newPhotoUploadedEvent(accountID, photoID string, size int64, at time.Time) *PhotoUploadedEvent {
	return &PhotoUploadedEvent{
		BaseEvent: events.NewBaseEvent(PhotoUploadedType, accountID, at),
		PhotoID:   photoID,
		SizeBytes: size,
	}
}

func newPhotosTrashedEvent(accountID string, ids []string, freed int64, at time.Time) *PhotosTrashedEvent {
	return &PhotosTrashedEvent{
		BaseEvent:  events.NewBaseEvent(PhotosTrashedType, accountID, at),
		PhotoIDs:   ids,
		FreedBytes: freed,
	}
}

func newPhotosRestoredEvent(accountID string, ids []string, restored int64, at time.Time) *PhotosRestoredEvent {
	return &PhotosRestoredEvent{
		BaseEvent:     events.NewBaseEvent(PhotosRestoredType, accountID, at),
		PhotoIDs:      ids,
		RestoredBytes: restored,
	}
}

func newTrashPurgedEvent(accountID string, ids []string, reclaimed int64, at time.Time) *TrashPurgedEvent {
	return &TrashPurgedEvent{
		BaseEvent:          events.NewBaseEvent(TrashPurgedType, accountID, at),
		PhotoIDs:           ids,
		ReclaimedDiskBytes: reclaimed,
	}
}

func newPhotoReleaseFailedEvent(accountID, photoID string, keys []string, reason string, at time.Time) *PhotoReleaseFailedEvent {
	return &PhotoReleaseFailedEvent{
		BaseEvent: events.NewBaseEvent(PhotoReleaseFailedType, accountID, at),
		PhotoID:   photoID,
		Keys:      keys,
		Reason:    reason,
	}
}

func newPhotoReclassifiedEvent(accountID, photoID, category string, at time.Time) *PhotoReclassifiedEvent {
	return &PhotoReclassifiedEvent{
		BaseEvent: events.NewBaseEvent(PhotoReclassifiedType, accountID, at),
		PhotoID:   photoID,
		Category:  category,
	}
}

func newPlanChangedEvent(accountID, planID string, limit int64, at time.Time) *PlanChangedEvent {
	return &PlanChangedEvent{
		BaseEvent:  events.NewBaseEvent(PlanChangedType, accountID, at),
		PlanID:     planID,
		LimitBytes: limit,
	}
}
