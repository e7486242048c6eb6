package memory

import (
	"context"
	"sync"

	"github.com/uniedit/photos/internal/port/outbound"
)

// BlobStorage is an in-memory implementation of outbound.BlobStoragePort.
// It records how often each key was deleted and can be told to fail for given keys.
// It is safe for concurrent use.
type BlobStorage struct {
	mu      sync.Mutex
	objects map[string]struct{}
	deletes map[string]int
	calls   map[string]int
	failing map[string]error
}

// NewBlobStorage creates an empty in-memory blob storage.
func NewBlobStorage() *BlobStorage {
	return &BlobStorage{
		objects: make(map[string]struct{}),
		deletes: make(map[string]int),
		calls:   make(map[string]int),
		failing: make(map[string]error),
	}
}

// Put registers an object key.
func (b *BlobStorage) Put(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = struct{}{}
}

// FailOn makes every delete that includes key return err. A nil err clears it.
func (b *BlobStorage) FailOn(key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failing, key)
		return
	}
	b.failing[key] = err
}

func (b *BlobStorage) Delete(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range keys {
		b.calls[key]++
	}
	for _, key := range keys {
		if err, ok := b.failing[key]; ok {
			return err
		}
	}
	for _, key := range keys {
		delete(b.objects, key)
		b.deletes[key]++
	}
	return nil
}

// Exists reports whether key is still stored.
func (b *BlobStorage) Exists(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

// DeleteCount returns how many successful deletes included key.
func (b *BlobStorage) DeleteCount(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deletes[key]
}

var _ outbound.BlobStoragePort = (*BlobStorage)(nil)

// CallCount returns how many delete calls included key, failed ones too.
func (b *BlobStorage) CallCount(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}
