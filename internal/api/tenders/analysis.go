package tenders

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tenderhub/tender-insight-hub/internal/api/views"
	"github.com/tenderhub/tender-insight-hub/internal/middleware"
	"github.com/tenderhub/tender-insight-hub/internal/scoring"
	"github.com/tenderhub/tender-insight-hub/internal/services"
)

// @Summary      Analyze tender
// @Description  Scores the tender for the caller's organization and stores the analysis. Every call creates a new analysis.
// @Tags         Analysis
// @Produce      json
// @Param        id  path  string  true  "Tender ID"
// @Success      200  {object}  views.Analysis
// @Failure      404  {object}  map[string]interface{}  "Tender not found"
// @Failure      422  {object}  map[string]interface{}  "Tender budget is incomplete"
// @Router       /api/tenders/{id}/analyze [post]
// Analyze handles POST /api/tenders/:id/analyze
func (h *Handler) Analyze(c *gin.Context) {
	var orgID string
	if user := middleware.CurrentUser(c); user != nil {
		orgID = user.OrganizationID
	}

	analysis, err := h.analyses.Analyze(c.Request.Context(), c.Param("id"), orgID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTenderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Tender not found"})
		case errors.Is(err, scoring.ErrIncompleteBudget):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Tender budget is incomplete"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze tender"})
		}
		return
	}

	c.JSON(http.StatusOK, views.NewAnalysis(analysis))
}

// @Summary      List analyses
// @Description  Returns previous analyses of a tender, newest first.
// @Tags         Analysis
// @Produce      json
// @Param        id     path   string  true   "Tender ID"
// @Param        limit  query  int     false  "Maximum results (default and max 20)"
// @Success      200  {array}   views.Analysis
// @Failure      404  {object}  map[string]interface{}  "Tender not found"
// @Router       /api/tenders/{id}/analyses [get]
// ListAnalyses handles GET /api/tenders/:id/analyses
func (h *Handler) ListAnalyses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	analyses, err := h.analyses.List(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		if errors.Is(err, services.ErrTenderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tender not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list analyses"})
		return
	}

	c.JSON(http.StatusOK, views.NewAnalyses(analyses))
}
