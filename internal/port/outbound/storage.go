package outbound

import (
	"context"
	"errors"
)

// ErrBlobStoreUnavailable is returned by a BlobStoragePort that is refusing
// calls outright, such as while a circuit breaker is open. Retrying
// immediately will not help.
var ErrBlobStoreUnavailable = errors.New("blob storage unavailable")

// BlobStoragePort releases the physical bytes behind photos.
type BlobStoragePort interface {
	// Delete removes objects by key. Keys that do not exist are not an error.
	Delete(ctx context.Context, keys []string) error
}
