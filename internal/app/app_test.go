package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/shared/config"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{CORSOrigins: []string{"*"}},
		Database: config.DatabaseConfig{Driver: "memory"},
		Log:      config.LogConfig{Level: "info", Format: "json"},
		Photos: config.PhotosConfig{
			DefaultPlan: "free",
			Plans: []model.PlanTier{
				{TierID: "free", LimitBytes: 1000},
				{TierID: "plus", LimitBytes: 5000},
			},
			MaxPhotoBytes:   800,
			TrashRetention:  time.Hour,
			PurgeInterval:   time.Hour,
			ReleaseAttempts: 1,
			ReleaseBackoff:  time.Millisecond,
			MutationsPerMin: 100,
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := NewWithLogger(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Stop)
	return a
}

func post(t *testing.T, a *App, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	return w
}

func TestApp_Health(t *testing.T) {
	a := newTestApp(t, testConfig())

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "memory", body.Checks["database"])
	assert.NotContains(t, body.Checks, "redis")
}

func TestApp_RoutesAndMetrics(t *testing.T) {
	a := newTestApp(t, testConfig())

	w := post(t, a, "/api/v1/photos/uploads", map[string]any{
		"account_id": "acc",
		"photo_id":   "p1",
		"size_bytes": 100,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `photos_http_requests_total{method="POST",path="/api/v1/photos/uploads",status="2xx"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestApp_PurgeExpired(t *testing.T) {
	a := newTestApp(t, testConfig())
	ctx := context.Background()

	require.Equal(t, http.StatusCreated, post(t, a, "/api/v1/photos/uploads", map[string]any{
		"account_id": "acc", "photo_id": "p1", "size_bytes": 100,
	}).Code)
	require.Equal(t, http.StatusOK, post(t, a, "/api/v1/photos/delete", map[string]any{
		"account_id": "acc", "photo_ids": []string{"p1"},
	}).Code)

	// Retention has not elapsed yet.
	result, err := a.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.PurgedCount)

	result, err = a.Photos().PurgeExpired(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PurgedCount)

	trash, err := a.Photos().ListTrash(ctx, "acc")
	require.NoError(t, err)
	assert.Empty(t, trash)
}

func TestApp_StartStop(t *testing.T) {
	a := newTestApp(t, testConfig())
	a.Start(context.Background())
	a.Stop()
}

func TestApp_InvalidPlans(t *testing.T) {
	cfg := testConfig()
	cfg.Photos.DefaultPlan = "gold"

	_, err := NewWithLogger(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestDomainConfig(t *testing.T) {
	cfg := testConfig().Photos
	cfg.LargeFileBytes = 42
	cfg.SweepBatchSize = 7
	cfg.ReleaseRate = 3

	dc := domainConfig(&cfg)
	assert.Equal(t, "free", dc.DefaultPlanID)
	assert.Equal(t, int64(42), dc.LargeFileBytes)
	assert.Equal(t, 50, dc.LargeFileLimit)
	assert.Equal(t, int64(800), dc.Engine.MaxPhotoBytes)
	assert.Equal(t, 1, dc.Engine.ReleaseAttempts)
	assert.Equal(t, 7, dc.Engine.SweepBatchSize)
	assert.Equal(t, float64(3), dc.Engine.ReleaseRate)
}
