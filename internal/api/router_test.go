package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderhub/tender-insight-hub/internal/config"
	"github.com/tenderhub/tender-insight-hub/internal/storage"
	_ "github.com/tenderhub/tender-insight-hub/internal/storage/local"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// minimal storage.Storage mock for readiness tests
// ---------------------------------------------------------------------------

type readinessMockStorage struct{ existsErr error }

func (m *readinessMockStorage) Upload(_ context.Context, _ string, _ io.Reader, _ int64) (*storage.UploadResult, error) {
	return nil, nil
}
func (m *readinessMockStorage) Download(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, nil
}
func (m *readinessMockStorage) Delete(_ context.Context, _ string) error { return nil }
func (m *readinessMockStorage) GetURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", nil
}
func (m *readinessMockStorage) Exists(_ context.Context, _ string) (bool, error) {
	return m.existsErr == nil, m.existsErr
}

// ---------------------------------------------------------------------------
// healthCheckHandler
// ---------------------------------------------------------------------------

func newHealthDB(t *testing.T, pingOK bool) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if pingOK {
		mock.ExpectPing()
	} else {
		mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	}
	return db
}

func TestHealthCheckHandler_Healthy(t *testing.T) {
	db := newHealthDB(t, true)

	r := gin.New()
	r.GET("/health", healthCheckHandler(db))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestHealthCheckHandler_Unhealthy(t *testing.T) {
	db := newHealthDB(t, false)

	r := gin.New()
	r.GET("/health", healthCheckHandler(db))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "unhealthy" {
		t.Errorf("status = %v, want unhealthy", body["status"])
	}
}

// ---------------------------------------------------------------------------
// readinessHandler
// ---------------------------------------------------------------------------

func TestReadinessHandler_Ready(t *testing.T) {
	db := newHealthDB(t, true)

	r := gin.New()
	r.GET("/ready", readinessHandler(db, &readinessMockStorage{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["ready"] != true {
		t.Errorf("ready = %v, want true", body["ready"])
	}
}

func TestReadinessHandler_NotReady(t *testing.T) {
	db := newHealthDB(t, false)

	r := gin.New()
	r.GET("/ready", readinessHandler(db, &readinessMockStorage{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["ready"] != false {
		t.Errorf("ready = %v, want false", body["ready"])
	}
}

// ---------------------------------------------------------------------------
// versionHandler
// ---------------------------------------------------------------------------

func TestVersionHandler(t *testing.T) {
	r := gin.New()
	r.GET("/version", versionHandler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["version"] == nil {
		t.Error("response missing 'version'")
	}
	if body["api_version"] == nil {
		t.Error("response missing 'api_version'")
	}
}

func TestReadinessHandler_StorageUnavailable(t *testing.T) {
	db := newHealthDB(t, true)

	r := gin.New()
	r.GET("/ready", readinessHandler(db, &readinessMockStorage{existsErr: errors.New("bucket unreachable")}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Ready  bool              `json:"ready"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "unhealthy", body.Checks["storage"])
}

// ---------------------------------------------------------------------------
// NewRouter
// ---------------------------------------------------------------------------

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Storage.DefaultBackend = "local"
	cfg.Storage.Local.BasePath = t.TempDir()
	cfg.Server.MaxUploadSize = 1 << 20
	cfg.Security.CORS.AllowedOrigins = []string{"*"}
	return cfg
}

func TestNewRouter_RegistersRoutes(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	router, bg, err := NewRouter(newTestConfig(t), db)
	require.NoError(t, err)
	defer bg.Shutdown()

	got := make(map[string]bool)
	for _, r := range router.Routes() {
		got[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"GET /ready",
		"GET /version",
		"POST /api/auth/login",
		"POST /api/auth/register",
		"GET /api/auth/me",
		"GET /api/tenders",
		"GET /api/tenders/export",
		"GET /api/tenders/:id",
		"POST /api/tenders/:id/analyze",
		"GET /api/tenders/:id/analyses",
		"POST /api/tenders/:id/documents",
		"GET /api/tenders/:id/documents/:docID/download",
		"GET /api/dashboard/stats",
	} {
		assert.True(t, got[want], "route %q not registered", want)
	}
}

func TestNewRouter_DeadlineJobOptIn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, bg, err := NewRouter(newTestConfig(t), db)
	require.NoError(t, err)
	bg.Shutdown()
	assert.Nil(t, bg.deadlines, "deadline job must not start without an interval")
	assert.NoError(t, mock.ExpectationsWereMet(), "no tender rows may be touched at startup")

	cfg := newTestConfig(t)
	cfg.Ingestion.DeadlineInterval = time.Hour
	mock.ExpectExec("UPDATE tenders SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	_, bg, err = NewRouter(cfg, db)
	require.NoError(t, err)
	defer bg.Shutdown()
	assert.NotNil(t, bg.deadlines)
}

func TestNewRouter_UnknownStorageBackend(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := newTestConfig(t)
	cfg.Storage.DefaultBackend = "floppy"

	_, _, err = NewRouter(cfg, db)
	assert.Error(t, err)
}

func TestNewRouter_ProtectedRoutesRequireToken(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	router, bg, err := NewRouter(newTestConfig(t), db)
	require.NoError(t, err)
	defer bg.Shutdown()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/tenders/tender-1/documents"},
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	}
}

func TestNewRouter_SetsSecurityHeaders(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	router, bg, err := NewRouter(newTestConfig(t), db)
	require.NoError(t, err)
	defer bg.Shutdown()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

// ---------------------------------------------------------------------------
// newRateLimiters
// ---------------------------------------------------------------------------

func TestNewRateLimiters_Disabled(t *testing.T) {
	bg := &BackgroundServices{}
	general, authLimit := newRateLimiters(config.RateLimitingConfig{}, bg)
	assert.Nil(t, general)
	assert.Nil(t, authLimit)
	assert.Empty(t, bg.rateLimiters)
}

func TestNewRateLimiters_InMemory(t *testing.T) {
	bg := &BackgroundServices{}
	general, authLimit := newRateLimiters(config.RateLimitingConfig{
		Enabled:           true,
		RequestsPerMinute: 120,
		Burst:             10,
		AuthPerMinute:     5,
	}, bg)
	defer bg.Shutdown()

	require.NotNil(t, general)
	require.NotNil(t, authLimit)
	assert.Len(t, bg.rateLimiters, 2)
	assert.Nil(t, bg.redis)

	decision, err := authLimit.Take(context.Background(), "client-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
