package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/inbound"
	"github.com/uniedit/photos/internal/utils/pagination"
)

// photosHandler implements inbound.PhotosHttpPort.
type photosHandler struct {
	photos inbound.PhotosDomain
}

// NewPhotosHandler creates a new photos HTTP handler.
func NewPhotosHandler(photos inbound.PhotosDomain) inbound.PhotosHttpPort {
	return &photosHandler{photos: photos}
}

// RegisterRoutes registers the photo storage routes under /photos.
func (h *photosHandler) RegisterRoutes(r *gin.RouterGroup) {
	photos := r.Group("/photos")
	{
		photos.GET("/usage", h.GetUsage)
		photos.GET("/trash", h.ListTrash)
		photos.POST("/delete", h.DeletePhotos)
		photos.POST("/delete-category", h.DeleteCategory)
		photos.POST("/restore", h.RestorePhotos)
		photos.POST("/trash/empty", h.EmptyTrash)
		photos.GET("/plans", h.ListPlans)
		photos.POST("/plan", h.ChangePlan)
		photos.POST("/accounts", h.CreateAccount)
		photos.POST("/uploads/admit", h.AdmitUpload)
		photos.POST("/uploads", h.RecordUpload)
		photos.POST("/classify", h.ReclassifyPhoto)
	}
}

// ===== Requests =====

type accountQuery struct {
	AccountID string `form:"account_id" binding:"required"`
}

type trashQuery struct {
	AccountID string `form:"account_id" binding:"required"`
	pagination.Pagination
}

type accountRequest struct {
	AccountID string `json:"account_id" binding:"required"`
}

type photoIDsRequest struct {
	AccountID string   `json:"account_id" binding:"required"`
	PhotoIDs  []string `json:"photo_ids" binding:"required,min=1,dive,required"`
}

type deleteCategoryRequest struct {
	AccountID string `json:"account_id" binding:"required"`
	Category  string `json:"category" binding:"required"`
}

type changePlanRequest struct {
	AccountID string `json:"account_id" binding:"required"`
	TierID    string `json:"tier_id" binding:"required"`
}

type admitUploadRequest struct {
	AccountID string `json:"account_id" binding:"required"`
	SizeBytes int64  `json:"size_bytes" binding:"required,gt=0"`
}

type recordUploadRequest struct {
	AccountID string `json:"account_id" binding:"required"`
	model.UploadMeta
}

type reclassifyRequest struct {
	AccountID          string   `json:"account_id" binding:"required"`
	PhotoID            string   `json:"photo_id" binding:"required"`
	Category           *string  `json:"category"`
	CategoryConfidence *float64 `json:"category_confidence"`
}

// ===== Responses =====

type deleteResponse struct {
	DeletedCount int      `json:"deleted_count"`
	DeletedIDs   []string `json:"deleted_ids"`
	SkippedIDs   []string `json:"skipped_ids"`
	FreedBytes   int64    `json:"freed_bytes"`
	model.QuotaState
}

type restoreResponse struct {
	RestoredCount int      `json:"restored_count"`
	RestoredIDs   []string `json:"restored_ids"`
	SkippedIDs    []string `json:"skipped_ids"`
	RestoredBytes int64    `json:"restored_bytes"`
	model.QuotaState
}

type emptyTrashResponse struct {
	PurgedCount        int                    `json:"purged_count"`
	ReclaimedDiskBytes int64                  `json:"reclaimed_disk_bytes"`
	Failed             []model.ReleaseFailure `json:"failed"`
	model.QuotaState
}

type planResponse struct {
	PlanID string `json:"plan_id"`
	model.QuotaState
}

type admitResponse struct {
	Allowed        bool  `json:"allowed"`
	AvailableBytes int64 `json:"available_bytes"`
	model.QuotaState
}

type uploadResponse struct {
	Photo *model.PhotoResponse `json:"photo"`
	model.QuotaState
}

func newDeleteResponse(result *model.DeleteResult) deleteResponse {
	return deleteResponse{
		DeletedCount: len(result.DeletedIDs),
		DeletedIDs:   nonNil(result.DeletedIDs),
		SkippedIDs:   nonNil(result.SkippedIDs),
		FreedBytes:   result.FreedBytes,
		QuotaState:   model.QuotaStateOf(result.Account),
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// ===== Handlers =====

func (h *photosHandler) GetUsage(c *gin.Context) {
	var q accountQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.photos.GetUsage(c.Request.Context(), q.AccountID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *photosHandler) ListTrash(c *gin.Context) {
	var q trashQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	trashed, err := h.photos.ListTrash(c.Request.Context(), q.AccountID)
	if err != nil {
		handleError(c, err)
		return
	}

	// Totals cover the whole trash, not just the page.
	var total int64
	for _, p := range trashed {
		total += p.SizeBytes
	}

	page := pagination.Slice(trashed, &q.Pagination)
	items := make([]*model.PhotoResponse, 0, len(page))
	for _, p := range page {
		items = append(items, p.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"photos":          items,
		"total":           len(trashed),
		"total_bytes":     total,
		"total_formatted": model.FormatBytes(total),
		"page_info":       q.Pagination.Info(int64(len(trashed))),
	})
}

func (h *photosHandler) DeletePhotos(c *gin.Context) {
	var req photoIDsRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.photos.SoftDelete(c.Request.Context(), req.AccountID, req.PhotoIDs)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, newDeleteResponse(result))
}

func (h *photosHandler) DeleteCategory(c *gin.Context) {
	var req deleteCategoryRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.photos.SoftDeleteByCategory(c.Request.Context(), req.AccountID, req.Category)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, newDeleteResponse(result))
}

func (h *photosHandler) RestorePhotos(c *gin.Context) {
	var req photoIDsRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.photos.Restore(c.Request.Context(), req.AccountID, req.PhotoIDs)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, restoreResponse{
		RestoredCount: len(result.RestoredIDs),
		RestoredIDs:   nonNil(result.RestoredIDs),
		SkippedIDs:    nonNil(result.SkippedIDs),
		RestoredBytes: result.RestoredBytes,
		QuotaState:    model.QuotaStateOf(result.Account),
	})
}

func (h *photosHandler) EmptyTrash(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.photos.PurgeTrash(c.Request.Context(), req.AccountID)
	if err != nil {
		handleError(c, err)
		return
	}

	failed := result.Failed
	if failed == nil {
		failed = []model.ReleaseFailure{}
	}
	c.JSON(http.StatusOK, emptyTrashResponse{
		PurgedCount:        len(result.PurgedIDs),
		ReclaimedDiskBytes: result.ReclaimedDiskBytes,
		Failed:             failed,
		QuotaState:         model.QuotaStateOf(result.Account),
	})
}

func (h *photosHandler) ListPlans(c *gin.Context) {
	tiers := h.photos.ListPlans()

	plans := make([]*model.PlanTierResponse, 0, len(tiers))
	for i := range tiers {
		plans = append(plans, tiers[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *photosHandler) ChangePlan(c *gin.Context) {
	var req changePlanRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		bindError(c, err)
		return
	}

	account, err := h.photos.ChangePlan(c.Request.Context(), req.AccountID, req.TierID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, planResponse{
		PlanID:     account.PlanID,
		QuotaState: model.QuotaStateOf(account),
	})
}

func (h *photosHandler) CreateAccount(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		bindError(c, err)
		return
	}

	account, err := h.photos.EnsureAccount(c.Request.Context(), req.AccountID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, account.ToResponse())
}

func (h *photosHandler) AdmitUpload(c *gin.Context) {
	var req admitUploadRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		bindError(c, err)
		return
	}

	account, err := h.photos.AdmitUpload(c.Request.Context(), req.AccountID, req.SizeBytes)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, admitResponse{
		Allowed:        true,
		AvailableBytes: account.AvailableBytes(),
		QuotaState:     model.QuotaStateOf(account),
	})
}

func (h *photosHandler) RecordUpload(c *gin.Context) {
	var req recordUploadRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		bindError(c, err)
		return
	}

	photo, account, err := h.photos.RecordUpload(c.Request.Context(), req.AccountID, &req.UploadMeta)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, uploadResponse{
		Photo:      photo.ToResponse(),
		QuotaState: model.QuotaStateOf(account),
	})
}

// ReclassifyPhoto stores a category assigned after upload, typically by the
// classifier. A null or blank category clears the label.
func (h *photosHandler) ReclassifyPhoto(c *gin.Context) {
	var req reclassifyRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		bindError(c, err)
		return
	}

	photo, err := h.photos.ReclassifyPhoto(c.Request.Context(), req.AccountID, req.PhotoID, req.Category, req.CategoryConfidence)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"photo": photo.ToResponse()})
}

// Compile-time check
var _ inbound.PhotosHttpPort = (*photosHandler)(nil)
