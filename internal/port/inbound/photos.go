package inbound

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uniedit/photos/internal/model"
)

// PhotosDomain defines the storage-quota inbound port.
type PhotosDomain interface {
	// Accounts and analytics
	EnsureAccount(ctx context.Context, accountID string) (*model.Account, error)
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	GetUsage(ctx context.Context, accountID string) (*model.UsageReport, error)
	ListTrash(ctx context.Context, accountID string) ([]*model.Photo, error)

	// Lifecycle
	AdmitUpload(ctx context.Context, accountID string, sizeBytes int64) (*model.Account, error)
	RecordUpload(ctx context.Context, accountID string, meta *model.UploadMeta) (*model.Photo, *model.Account, error)
	SoftDelete(ctx context.Context, accountID string, photoIDs []string) (*model.DeleteResult, error)
	SoftDeleteByCategory(ctx context.Context, accountID, category string) (*model.DeleteResult, error)
	Restore(ctx context.Context, accountID string, photoIDs []string) (*model.RestoreResult, error)
	ReclassifyPhoto(ctx context.Context, accountID, photoID string, category *string, confidence *float64) (*model.Photo, error)
	PurgeTrash(ctx context.Context, accountID string) (*model.PurgeResult, error)
	PurgeExpired(ctx context.Context, retention time.Duration) (*model.SweepResult, error)

	// Plans
	ListPlans() []model.PlanTier
	ChangePlan(ctx context.Context, accountID, tierID string) (*model.Account, error)

	// Operations
	AuditDrift(ctx context.Context, pageSize int) ([]model.DriftReport, error)
}

// PhotosHttpPort defines the photo storage HTTP handler interface.
type PhotosHttpPort interface {
	// GetUsage handles GET /photos/usage.
	GetUsage(c *gin.Context)

	// ListTrash handles GET /photos/trash.
	ListTrash(c *gin.Context)

	// DeletePhotos handles POST /photos/delete.
	DeletePhotos(c *gin.Context)

	// DeleteCategory handles POST /photos/delete-category.
	DeleteCategory(c *gin.Context)

	// RestorePhotos handles POST /photos/restore.
	RestorePhotos(c *gin.Context)

	// EmptyTrash handles POST /photos/trash/empty.
	EmptyTrash(c *gin.Context)

	// ListPlans handles GET /photos/plans.
	ListPlans(c *gin.Context)

	// ChangePlan handles POST /photos/plan.
	ChangePlan(c *gin.Context)

	// CreateAccount handles POST /photos/accounts.
	CreateAccount(c *gin.Context)

	// AdmitUpload handles POST /photos/uploads/admit.
	AdmitUpload(c *gin.Context)

	// RecordUpload handles POST /photos/uploads.
	RecordUpload(c *gin.Context)

	// ReclassifyPhoto handles POST /photos/classify.
	ReclassifyPhoto(c *gin.Context)

	// RegisterRoutes mounts the handlers on r.
	RegisterRoutes(r *gin.RouterGroup)
}
