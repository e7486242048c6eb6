package photos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uniedit/photos/internal/adapter/outbound/memory"
	"github.com/uniedit/photos/internal/infra/events"
	"github.com/uniedit/photos/internal/model"
	"go.uber.org/zap"
)

// ===== Test doubles =====

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStubClock(t time.Time) *stubClock {
	return &stubClock{now: t}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type countingMetrics struct {
	mu            sync.Mutex
	clamped       int
	rejected      map[string]int
	purged        int
	bytesReleased int64
	releaseFailed int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{rejected: make(map[string]int)}
}

func (m *countingMetrics) LedgerClamped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clamped++
}

func (m *countingMetrics) QuotaRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *countingMetrics) PhotosPurged(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged += count
}

func (m *countingMetrics) BytesReleased(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesReleased += bytes
}

func (m *countingMetrics) ReleaseFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseFailed++
}

// ===== Fixture =====

var testEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	domain    *Domain
	ledgerDB  *memory.LedgerStore
	photoDB   *memory.PhotoStore
	blobs     *memory.BlobStorage
	clock     *stubClock
	publisher *recordingPublisher
	metrics   *countingMetrics
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Engine.ReleaseBackoff = time.Millisecond
	cfg.Engine.ReleaseRate = 0
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, testConfig())
}

// newFixtureWithConfig builds a domain over in-memory adapters. Without tiers
// the built-in catalog is used.
func newFixtureWithConfig(t *testing.T, cfg *Config, tiers ...model.PlanTier) *fixture {
	t.Helper()

	catalog, err := NewPlanCatalog(tiers)
	require.NoError(t, err)

	f := &fixture{
		ledgerDB:  memory.NewLedgerStore(),
		photoDB:   memory.NewPhotoStore(),
		blobs:     memory.NewBlobStorage(),
		clock:     newStubClock(testEpoch),
		publisher: &recordingPublisher{},
		metrics:   newCountingMetrics(),
	}

	d, err := NewPhotosDomain(f.ledgerDB, f.photoDB, f.blobs, nil, catalog, f.publisher, f.metrics, f.clock, cfg, zap.NewNop())
	require.NoError(t, err)
	f.domain = d
	return f
}

// seedAccount stores an account created at the fixture's current time.
func (f *fixture) seedAccount(id string, limit int64) {
	f.ledgerDB.Put(&model.Account{
		AccountID:  id,
		PlanID:     "custom",
		LimitBytes: limit,
		CreatedAt:  f.clock.Now(),
		UpdatedAt:  f.clock.Now(),
	})
}

// upload records a photo with a stored blob.
func (f *fixture) upload(t *testing.T, accountID, photoID string, size int64, category *string) *model.Photo {
	t.Helper()
	key := "photos/" + accountID + "/" + photoID
	f.blobs.Put(key)
	photo, _, err := f.domain.RecordUpload(context.Background(), accountID, &model.UploadMeta{
		PhotoID:    photoID,
		SizeBytes:  size,
		Category:   category,
		StorageKey: key,
	})
	require.NoError(t, err)
	return photo
}

func (f *fixture) account(t *testing.T, id string) *model.Account {
	t.Helper()
	acc, err := f.domain.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }
