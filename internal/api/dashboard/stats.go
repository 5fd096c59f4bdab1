// Package dashboard serves the dashboard aggregate.
package dashboard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tenderhub/tender-insight-hub/internal/api/views"
	"github.com/tenderhub/tender-insight-hub/internal/services"
)

// StatsSource computes the dashboard aggregate.
type StatsSource interface {
	Stats(ctx context.Context) (*services.DashboardStats, error)
}

// StatsHandler handles dashboard requests
type StatsHandler struct {
	stats StatsSource
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(stats StatsSource) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// @Summary      Dashboard statistics
// @Description  Returns tender totals, the most recent tenders, tenders closing within 30 days and open tenders per province.
// @Tags         Dashboard
// @Produce      json
// @Success      200  {object}  views.Dashboard
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/dashboard/stats [get]
// GetStats handles GET /api/dashboard/stats
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute dashboard statistics"})
		return
	}
	c.JSON(http.StatusOK, views.NewDashboard(stats))
}
