// Package tenders implements the tender search, detail, export, analysis and
// document endpoints.
package tenders

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tenderhub/tender-insight-hub/internal/api/views"
	"github.com/tenderhub/tender-insight-hub/internal/db/models"
	"github.com/tenderhub/tender-insight-hub/internal/export"
	"github.com/tenderhub/tender-insight-hub/internal/search"
	"github.com/tenderhub/tender-insight-hub/internal/services"
	"github.com/tenderhub/tender-insight-hub/internal/telemetry"
)

// Finder looks tenders up.
type Finder interface {
	Search(ctx context.Context, f search.Filter) ([]*models.Tender, error)
	Get(ctx context.Context, id string) (*models.Tender, error)
}

// Analyzer runs and lists readiness analyses.
type Analyzer interface {
	Analyze(ctx context.Context, tenderID, orgID string) (*models.TenderAnalysis, error)
	List(ctx context.Context, tenderID string, limit int) ([]*models.TenderAnalysis, error)
}

// Documents stores and serves tender documents.
type Documents interface {
	Upload(ctx context.Context, tenderID, fileName string, size int64, content io.Reader) (*models.TenderDocument, error)
	Download(ctx context.Context, tenderID, docID string) (*services.DocumentDownload, error)
}

// Handler handles tender requests
type Handler struct {
	tenders       Finder
	analyses      Analyzer
	documents     Documents
	maxUploadSize int64
	now           func() time.Time
}

// NewHandler creates a new tender handler. maxUploadSize caps document
// uploads in bytes.
func NewHandler(tenders Finder, analyses Analyzer, documents Documents, maxUploadSize int64) *Handler {
	return &Handler{
		tenders:       tenders,
		analyses:      analyses,
		documents:     documents,
		maxUploadSize: maxUploadSize,
		now:           time.Now,
	}
}

func (h *Handler) search(c *gin.Context) ([]*models.Tender, bool) {
	f, err := search.ParseFilter(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	tenders, err := h.tenders.Search(c.Request.Context(), f)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search tenders"})
		return nil, false
	}
	return tenders, true
}

// @Summary      Search tenders
// @Description  Lists tenders matching every supplied filter, newest first, with their documents.
// @Tags         Tenders
// @Produce      json
// @Param        keywords       query  string  false  "Case-insensitive match on title or description"
// @Param        provinces      query  string  false  "Comma-separated provinces"
// @Param        categories     query  string  false  "Comma-separated categories (accepted, not applied)"
// @Param        budget_min     query  number  false  "Lowest acceptable budget upper bound"
// @Param        budget_max     query  number  false  "Highest acceptable budget lower bound"
// @Param        deadline_from  query  string  false  "ISO-8601 inclusive lower deadline bound"
// @Param        deadline_to    query  string  false  "ISO-8601 inclusive upper deadline bound"
// @Success      200  {array}   views.Tender
// @Failure      400  {object}  map[string]interface{}  "Malformed filter value"
// @Router       /api/tenders [get]
// List handles GET /api/tenders
func (h *Handler) List(c *gin.Context) {
	tenders, ok := h.search(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, views.NewTenders(tenders))
}

// @Summary      Get tender
// @Tags         Tenders
// @Produce      json
// @Param        id  path  string  true  "Tender ID"
// @Success      200  {object}  views.Tender
// @Failure      404  {object}  map[string]interface{}  "Tender not found"
// @Router       /api/tenders/{id} [get]
// Get handles GET /api/tenders/:id
func (h *Handler) Get(c *gin.Context) {
	tender, err := h.tenders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrTenderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tender not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get tender"})
		return
	}
	c.JSON(http.StatusOK, views.NewTender(tender))
}

// @Summary      Export tenders
// @Description  Returns the tenders matching the search filters as an XLSX workbook.
// @Tags         Tenders
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  {file}    file
// @Failure      400  {object}  map[string]interface{}  "Malformed filter value"
// @Router       /api/tenders/export [get]
// Export handles GET /api/tenders/export
func (h *Handler) Export(c *gin.Context) {
	tenders, ok := h.search(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTenders(&buf, tenders); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export tenders"})
		return
	}

	telemetry.TenderExportsTotal.Inc()
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(h.now())+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
