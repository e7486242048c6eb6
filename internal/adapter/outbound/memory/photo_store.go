package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/outbound"
)

// PhotoStore is an in-memory implementation of outbound.PhotoStorePort.
// Transitions check and move each row under one lock, so two concurrent
// callers can never both move the same row. It is safe for concurrent use.
type PhotoStore struct {
	mu     sync.RWMutex
	photos map[string]*model.Photo
}

// NewPhotoStore creates an empty in-memory photo store.
func NewPhotoStore() *PhotoStore {
	return &PhotoStore{photos: make(map[string]*model.Photo)}
}

func clonePhoto(p *model.Photo) *model.Photo {
	cp := *p
	return &cp
}

func (s *PhotoStore) Insert(ctx context.Context, photo *model.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.photos[photo.PhotoID]; ok {
		return outbound.ErrDuplicateKey
	}
	row := clonePhoto(photo)
	if row.LifecycleState == "" {
		row.LifecycleState = model.LifecycleActive
	}
	s.photos[row.PhotoID] = row
	return nil
}

func (s *PhotoStore) FindByIDs(ctx context.Context, accountID string, ids []string) ([]*model.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Photo
	for _, id := range ids {
		if p, ok := s.photos[id]; ok && p.OwnerAccountID == accountID {
			out = append(out, clonePhoto(p))
		}
	}
	return out, nil
}

// transition moves the owned rows among ids from one state to another and
// returns copies of the rows it moved.
func (s *PhotoStore) transition(accountID string, ids []string, from, to model.LifecycleState, apply func(*model.Photo)) []*model.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()

	var moved []*model.Photo
	for _, id := range ids {
		p, ok := s.photos[id]
		if !ok || p.OwnerAccountID != accountID || p.LifecycleState != from {
			continue
		}
		if err := p.LifecycleState.TransitionTo(to); err != nil {
			continue
		}
		p.LifecycleState = to
		apply(p)
		moved = append(moved, clonePhoto(p))
	}
	return moved
}

func (s *PhotoStore) MarkTrashed(ctx context.Context, accountID string, ids []string, at time.Time) ([]*model.Photo, error) {
	return s.transition(accountID, ids, model.LifecycleActive, model.LifecycleTrashed, func(p *model.Photo) {
		t := at
		p.TrashedAt = &t
		p.UpdatedAt = at
	}), nil
}

func (s *PhotoStore) MarkActive(ctx context.Context, accountID string, ids []string, at time.Time) ([]*model.Photo, error) {
	return s.transition(accountID, ids, model.LifecycleTrashed, model.LifecycleActive, func(p *model.Photo) {
		p.TrashedAt = nil
		p.UpdatedAt = at
	}), nil
}

func (s *PhotoStore) MarkPurged(ctx context.Context, accountID string, ids []string, at time.Time) ([]*model.Photo, error) {
	return s.transition(accountID, ids, model.LifecycleTrashed, model.LifecyclePurged, func(p *model.Photo) {
		p.UpdatedAt = at
	}), nil
}

func (s *PhotoStore) UpdateCategory(ctx context.Context, accountID, photoID string, category *string, confidence *float64, at time.Time) (*model.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.photos[photoID]
	if !ok || p.OwnerAccountID != accountID || p.LifecycleState == model.LifecyclePurged {
		return nil, nil
	}
	p.Category = nil
	if category != nil {
		c := *category
		p.Category = &c
	}
	p.CategoryConfidence = nil
	if confidence != nil {
		c := *confidence
		p.CategoryConfidence = &c
	}
	p.UpdatedAt = at
	return clonePhoto(p), nil
}

func (s *PhotoStore) Remove(ctx context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for _, id := range ids {
		if p, ok := s.photos[id]; ok && p.LifecycleState == model.LifecyclePurged {
			delete(s.photos, id)
			removed++
		}
	}
	return removed, nil
}

func (s *PhotoStore) ListByCategory(ctx context.Context, accountID string) ([]model.CategoryTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]*model.CategoryTotal)
	for _, p := range s.photos {
		if p.OwnerAccountID != accountID || p.LifecycleState != model.LifecycleActive {
			continue
		}
		key := p.CategoryKey()
		t, ok := totals[key]
		if !ok {
			t = &model.CategoryTotal{Category: key}
			totals[key] = t
		}
		t.Count++
		t.TotalBytes += p.SizeBytes
	}

	out := make([]model.CategoryTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *PhotoStore) ListActiveIDsByCategory(ctx context.Context, accountID, category string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, p := range s.photos {
		if p.OwnerAccountID == accountID && p.LifecycleState == model.LifecycleActive && p.CategoryKey() == category {
			ids = append(ids, p.PhotoID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// filter returns copies of matching rows sorted by less, truncated to limit when positive.
func (s *PhotoStore) filter(match func(*model.Photo) bool, less func(a, b *model.Photo) bool, limit int) []*model.Photo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Photo
	for _, p := range s.photos {
		if match(p) {
			out = append(out, clonePhoto(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func bySizeDesc(a, b *model.Photo) bool {
	if a.SizeBytes != b.SizeBytes {
		return a.SizeBytes > b.SizeBytes
	}
	return a.PhotoID < b.PhotoID
}

func byTrashedAtAsc(a, b *model.Photo) bool {
	if !a.TrashedAt.Equal(*b.TrashedAt) {
		return a.TrashedAt.Before(*b.TrashedAt)
	}
	return a.PhotoID < b.PhotoID
}

func (s *PhotoStore) ListTrashed(ctx context.Context, accountID string) ([]*model.Photo, error) {
	return s.filter(func(p *model.Photo) bool {
		return p.OwnerAccountID == accountID && p.LifecycleState == model.LifecycleTrashed
	}, func(a, b *model.Photo) bool { return byTrashedAtAsc(b, a) }, 0), nil
}

func (s *PhotoStore) ListLarge(ctx context.Context, accountID string, minBytes int64, limit int) ([]*model.Photo, error) {
	return s.filter(func(p *model.Photo) bool {
		return p.OwnerAccountID == accountID && p.LifecycleState == model.LifecycleActive && p.SizeBytes > minBytes
	}, bySizeDesc, limit), nil
}

func (s *PhotoStore) ListLowQuality(ctx context.Context, accountID string, criteria model.LowQualityCriteria, limit int) ([]*model.Photo, error) {
	return s.filter(func(p *model.Photo) bool {
		return p.OwnerAccountID == accountID && p.LifecycleState == model.LifecycleActive && criteria.Matches(p)
	}, bySizeDesc, limit), nil
}

func (s *PhotoStore) ListTrashedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Photo, error) {
	return s.filter(func(p *model.Photo) bool {
		return p.LifecycleState == model.LifecycleTrashed && p.TrashedAt != nil && p.TrashedAt.Before(cutoff)
	}, byTrashedAtAsc, limit), nil
}

func (s *PhotoStore) ListPurged(ctx context.Context, cutoff time.Time, limit int) ([]*model.Photo, error) {
	return s.filter(func(p *model.Photo) bool {
		return p.LifecycleState == model.LifecyclePurged && p.UpdatedAt.Before(cutoff)
	}, func(a, b *model.Photo) bool { return a.PhotoID < b.PhotoID }, limit), nil
}

func (s *PhotoStore) SumActive(ctx context.Context, accountID string) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bytes, count int64
	for _, p := range s.photos {
		if p.OwnerAccountID == accountID && p.LifecycleState == model.LifecycleActive {
			bytes += p.SizeBytes
			count++
		}
	}
	return bytes, count, nil
}

// Get returns a copy of a photo in any state, or nil. Intended for tests and tooling.
func (s *PhotoStore) Get(photoID string) *model.Photo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.photos[photoID]; ok {
		return clonePhoto(p)
	}
	return nil
}

var _ outbound.PhotoStorePort = (*PhotoStore)(nil)
