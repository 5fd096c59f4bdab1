package tenders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
	"github.com/tenderhub/tender-insight-hub/internal/middleware"
	"github.com/tenderhub/tender-insight-hub/internal/scoring"
	"github.com/tenderhub/tender-insight-hub/internal/search"
	"github.com/tenderhub/tender-insight-hub/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeFinder struct {
	tenders    map[string]*models.Tender
	err        error
	lastFilter search.Filter
}

func (f *fakeFinder) Search(_ context.Context, flt search.Filter) ([]*models.Tender, error) {
	f.lastFilter = flt
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Tender
	for _, id := range []string{"tender-1", "tender-2"} {
		if t, ok := f.tenders[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeFinder) Get(_ context.Context, id string) (*models.Tender, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tenders[id]
	if !ok {
		return nil, services.ErrTenderNotFound
	}
	return t, nil
}

type fakeAnalyzer struct {
	err       error
	lastOrg   string
	lastLimit int
	calls     int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, tenderID, orgID string) (*models.TenderAnalysis, error) {
	f.lastOrg = orgID
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	return &models.TenderAnalysis{
		ID:               fmt.Sprintf("analysis-%d", f.calls),
		TenderID:         tenderID,
		OrganizationID:   orgID,
		Summary:          models.AnalysisSummary{Objective: "To procure road maintenance services"},
		ReadinessScore:   models.ReadinessScore{Score: 78, Confidence: 0.85},
		ProcessedAt:      time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC),
		ProcessingTimeMs: scoring.NominalProcessingTime,
	}, nil
}

func (f *fakeAnalyzer) List(_ context.Context, tenderID string, limit int) ([]*models.TenderAnalysis, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []*models.TenderAnalysis{{ID: "a2", TenderID: tenderID}, {ID: "a1", TenderID: tenderID}}, nil
}

type fakeDocuments struct {
	uploadErr   error
	download    *services.DocumentDownload
	downloadErr error
	gotName     string
	gotBody     string
}

func (f *fakeDocuments) Upload(_ context.Context, tenderID, fileName string, size int64, r io.Reader) (*models.TenderDocument, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	b, _ := io.ReadAll(r)
	f.gotName, f.gotBody = fileName, string(b)
	return &models.TenderDocument{ID: "doc-1", TenderID: tenderID, Name: fileName, Type: "pdf", Size: int64(len(b)),
		URL: "/api/tenders/" + tenderID + "/documents/doc-1/download"}, nil
}

func (f *fakeDocuments) Download(context.Context, string, string) (*services.DocumentDownload, error) {
	return f.download, f.downloadErr
}

func sampleTenders() map[string]*models.Tender {
	lo, hi := 5000000.0, 15000000.0
	return map[string]*models.Tender{
		"tender-1": {
			ID: "tender-1", Title: "Road Maintenance Services", Province: "Gauteng",
			BudgetMin: &lo, BudgetMax: &hi, Currency: "ZAR", Status: models.TenderStatusOpen,
			Deadline:      time.Date(2024, 10, 15, 17, 0, 0, 0, time.UTC),
			PublishedDate: time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC),
			Categories:    models.StringList{"Construction"},
		},
		"tender-2": {
			ID: "tender-2", Title: "Security Services", Province: "Western Cape", Currency: "ZAR",
			Deadline:      time.Date(2024, 9, 30, 17, 0, 0, 0, time.UTC),
			PublishedDate: time.Date(2024, 8, 10, 9, 0, 0, 0, time.UTC),
		},
	}
}

type harness struct {
	finder    *fakeFinder
	analyzer  *fakeAnalyzer
	documents *fakeDocuments
	router    *gin.Engine
}

func newHarness(user *models.User) *harness {
	h := &harness{
		finder:    &fakeFinder{tenders: sampleTenders()},
		analyzer:  &fakeAnalyzer{},
		documents: &fakeDocuments{},
	}
	handler := NewHandler(h.finder, h.analyzer, h.documents, 512)
	handler.now = func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }

	withUser := func(c *gin.Context) {
		if user != nil {
			c.Set(middleware.UserKey, user)
		}
		c.Next()
	}

	r := gin.New()
	r.GET("/api/tenders", handler.List)
	r.GET("/api/tenders/export", handler.Export)
	r.GET("/api/tenders/:id", handler.Get)
	r.POST("/api/tenders/:id/analyze", withUser, handler.Analyze)
	r.GET("/api/tenders/:id/analyses", handler.ListAnalyses)
	r.POST("/api/tenders/:id/documents", withUser, handler.UploadDocument)
	r.GET("/api/tenders/:id/documents/:docID/download", handler.DownloadDocument)
	h.router = r
	return h
}

func (h *harness) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body["error"]
}

// ---------------------------------------------------------------------------
// List / Get
// ---------------------------------------------------------------------------

func TestList_ParsesFilter(t *testing.T) {
	h := newHarness(nil)
	w := h.do(http.MethodGet, "/api/tenders?keywords=Road&provinces=Gauteng,Limpopo&budget_min=5000000&deadline_to=2024-12-31", nil, "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "road", h.finder.lastFilter.Keywords)
	assert.Equal(t, []string{"Gauteng", "Limpopo"}, h.finder.lastFilter.Provinces)
	require.NotNil(t, h.finder.lastFilter.BudgetMin)
	assert.Equal(t, 5000000.0, *h.finder.lastFilter.BudgetMin)
	require.NotNil(t, h.finder.lastFilter.DeadlineTo)

	var tenders []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tenders))
	require.Len(t, tenders, 2)
	assert.Equal(t, "tender-1", tenders[0]["id"])
	assert.Equal(t, "2024-10-15T17:00:00Z", tenders[0]["deadline"])
	assert.Equal(t, []interface{}{}, tenders[0]["documents"])
}

func TestList_MalformedFilter(t *testing.T) {
	w := newHarness(nil).do(http.MethodGet, "/api/tenders?budget_min=lots", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorBody(t, w), "budget_min")
}

func TestList_EmptyResultIsArray(t *testing.T) {
	h := newHarness(nil)
	h.finder.tenders = map[string]*models.Tender{}
	w := h.do(http.MethodGet, "/api/tenders", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestList_StoreError(t *testing.T) {
	h := newHarness(nil)
	h.finder.err = errors.New("db down")
	w := h.do(http.MethodGet, "/api/tenders", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGet(t *testing.T) {
	h := newHarness(nil)

	w := h.do(http.MethodGet, "/api/tenders/tender-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var tender map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tender))
	assert.Equal(t, map[string]interface{}{"min": 5000000.0, "max": 15000000.0, "currency": "ZAR"}, tender["budget"])

	w = h.do(http.MethodGet, "/api/tenders/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Tender not found", errorBody(t, w))
}

// ---------------------------------------------------------------------------
// Export
// ---------------------------------------------------------------------------

func TestExport(t *testing.T) {
	w := newHarness(nil).do(http.MethodGet, "/api/tenders/export?provinces=Gauteng", nil, "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="tenders-20261015-080000.xlsx"`, w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Tenders")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

// ---------------------------------------------------------------------------
// Analyze / ListAnalyses
// ---------------------------------------------------------------------------

func TestAnalyze_UsesCallerOrganization(t *testing.T) {
	h := newHarness(&models.User{ID: "user-1", OrganizationID: "org-7"})

	w := h.do(http.MethodPost, "/api/tenders/tender-1/analyze", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "org-7", h.analyzer.lastOrg)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "tender-1", body["tenderId"])
	assert.Equal(t, 2500.0, body["processingTimeMs"])
	assert.Equal(t, "2026-10-15T08:00:00Z", body["processedAt"])
}

func TestAnalyze_Anonymous(t *testing.T) {
	h := newHarness(nil)
	w := h.do(http.MethodPost, "/api/tenders/tender-1/analyze", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", h.analyzer.lastOrg)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"missing tender", services.ErrTenderNotFound, http.StatusNotFound},
		{"incomplete budget", scoring.ErrIncompleteBudget, http.StatusUnprocessableEntity},
		{"store failure", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(nil)
			h.analyzer.err = tt.err
			w := h.do(http.MethodPost, "/api/tenders/tender-1/analyze", nil, "")
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestListAnalyses(t *testing.T) {
	h := newHarness(nil)
	w := h.do(http.MethodGet, "/api/tenders/tender-1/analyses?limit=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, h.analyzer.lastLimit)

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body, 2)

	h.analyzer.err = services.ErrTenderNotFound
	w = h.do(http.MethodGet, "/api/tenders/nope/analyses?limit=x", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, h.analyzer.lastLimit)
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

func multipartBody(t *testing.T, field, name, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	h := newHarness(&models.User{ID: "user-1"})
	body, ct := multipartBody(t, "file", "spec.pdf", "%PDF")

	w := h.do(http.MethodPost, "/api/tenders/tender-1/documents", body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "spec.pdf", h.documents.gotName)
	assert.Equal(t, "%PDF", h.documents.gotBody)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "doc-1", doc["id"])
	assert.Equal(t, "/api/tenders/tender-1/documents/doc-1/download", doc["url"])
}

func TestUploadDocument_MissingFile(t *testing.T) {
	body, ct := multipartBody(t, "attachment", "spec.pdf", "%PDF")
	w := newHarness(nil).do(http.MethodPost, "/api/tenders/tender-1/documents", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadDocument_TooLarge(t *testing.T) {
	body, ct := multipartBody(t, "file", "big.pdf", strings.Repeat("x", 1024))
	w := newHarness(nil).do(http.MethodPost, "/api/tenders/tender-1/documents", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUploadDocument_ServiceErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{services.ErrTenderNotFound, http.StatusNotFound},
		{&services.ValidationError{Field: "file", Message: "must have a file name"}, http.StatusBadRequest},
		{errors.New("bucket unreachable"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := newHarness(nil)
		h.documents.uploadErr = tt.err
		body, ct := multipartBody(t, "file", "a.pdf", "x")
		w := h.do(http.MethodPost, "/api/tenders/tender-1/documents", body, ct)
		assert.Equal(t, tt.code, w.Code, tt.err.Error())
	}
}

func TestDownloadDocument_Redirect(t *testing.T) {
	h := newHarness(nil)
	h.documents.download = &services.DocumentDownload{
		Document: &models.TenderDocument{ID: "doc-1", Name: "bid.pdf"},
		URL:      "https://etenders.example/bid.pdf",
	}
	w := h.do(http.MethodGet, "/api/tenders/tender-1/documents/doc-1/download", nil, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://etenders.example/bid.pdf", w.Header().Get("Location"))
}

func TestDownloadDocument_Stream(t *testing.T) {
	h := newHarness(nil)
	h.documents.download = &services.DocumentDownload{
		Document: &models.TenderDocument{ID: "doc-1", Name: "terms.pdf", Size: 4},
		Body:     io.NopCloser(strings.NewReader("%PDF")),
	}
	w := h.do(http.MethodGet, "/api/tenders/tender-1/documents/doc-1/download", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=terms.pdf", w.Header().Get("Content-Disposition"))
}

func TestDownloadDocument_NotFound(t *testing.T) {
	h := newHarness(nil)
	h.documents.downloadErr = services.ErrDocumentNotFound
	w := h.do(http.MethodGet, "/api/tenders/tender-1/documents/doc-9/download", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Document not found", errorBody(t, w))
}
