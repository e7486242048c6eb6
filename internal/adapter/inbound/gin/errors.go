package gin

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/uniedit/photos/internal/domain/photos"
	"github.com/uniedit/photos/internal/port/outbound"
	"github.com/uniedit/photos/internal/shared/logger"
	apperrors "github.com/uniedit/photos/internal/utils/errors"
	"go.uber.org/zap"
)

// handleError maps domain errors to HTTP responses.
func handleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	var quotaErr *photos.QuotaError

	switch {
	case errors.As(err, &appErr):

	case errors.Is(err, photos.ErrAccountNotFound):
		appErr = apperrors.NotFound("account")

	case errors.Is(err, photos.ErrPhotoNotFound):
		appErr = apperrors.NotFound("photo")

	case errors.Is(err, photos.ErrUnknownPlan):
		appErr = apperrors.BadRequest("Unknown plan")
		appErr.Code = "unknown_plan"

	case errors.As(err, &quotaErr):
		appErr = apperrors.QuotaExceeded("Storage limit reached").WithDetails(map[string]any{
			"needed_bytes":    quotaErr.NeededBytes,
			"available_bytes": quotaErr.AvailableBytes,
		})

	case errors.Is(err, photos.ErrQuotaExceeded):
		appErr = apperrors.QuotaExceeded("Storage limit reached")

	case errors.Is(err, photos.ErrPhotoTooLarge):
		appErr = apperrors.TooLarge("Photo exceeds maximum size")

	case errors.Is(err, photos.ErrDuplicateID):
		appErr = apperrors.Conflict("duplicate_photo", "Photo already recorded")

	case errors.Is(err, photos.ErrInvalidTransition):
		appErr = apperrors.Conflict("invalid_transition", "Photo is not in a state that allows this operation")

	case errors.Is(err, photos.ErrInvalidRequest):
		appErr = apperrors.BadRequest(err.Error())
		appErr.Code = "invalid_request"

	case errors.Is(err, outbound.ErrBlobStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		appErr = apperrors.ServiceUnavailable("")

	default:
		appErr = apperrors.Internal(err)
	}

	if appErr.StatusCode >= 500 {
		logger.FromContext(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
	}

	c.JSON(appErr.StatusCode, appErr.ToResponse())
}

// bindError answers a request whose body or query failed validation.
func bindError(c *gin.Context, err error) {
	appErr := apperrors.BadRequest(err.Error())
	c.JSON(appErr.StatusCode, appErr.ToResponse())
}
