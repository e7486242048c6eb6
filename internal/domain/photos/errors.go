package photos

import (
	"errors"
	"fmt"

	"github.com/uniedit/photos/internal/model"
)

// Domain errors for photo storage.
var (
	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrUnknownPlan     = errors.New("unknown plan")

	// Quota errors
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrPhotoTooLarge = errors.New("photo exceeds maximum size")

	// Photo errors
	ErrDuplicateID       = errors.New("photo id already exists")
	ErrPhotoNotFound     = errors.New("photo not found")
	ErrInvalidTransition = model.ErrInvalidTransition

	ErrInvalidRequest = errors.New("invalid request")
)

// QuotaError reports how far a request overshot the account's limit.
// It matches ErrQuotaExceeded under errors.Is.
type QuotaError struct {
	NeededBytes    int64
	AvailableBytes int64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%v: need %d bytes, %d available", ErrQuotaExceeded, e.NeededBytes, e.AvailableBytes)
}

func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}
