package services

import (
	"context"
	"time"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
	"github.com/tenderhub/tender-insight-hub/internal/db/repositories"
)

const (
	// RecentTenderCount is how many of the latest tenders the dashboard lists.
	RecentTenderCount = 3
	// UrgentWindow is how far ahead a deadline counts as urgent.
	UrgentWindow = 30 * 24 * time.Hour
)

// Saved and interested counts are fixed until users can bookmark tenders.
const (
	placeholderSavedTenders      = 2
	placeholderInterestedTenders = 1
)

// DashboardStats is the aggregate shown on the dashboard landing page.
type DashboardStats struct {
	TotalTenders      int
	TotalValue        float64
	SavedTenders      int
	InterestedTenders int
	RecentTenders     []*models.Tender
	UrgentDeadlines   []*models.Tender
	OpenByProvince    []repositories.ProvinceCount
}

// DashboardService computes dashboard aggregates over all tenders
type DashboardService struct {
	tenders TenderStore
	stats   StatsStore
	now     func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(tenders TenderStore, stats StatsStore) *DashboardService {
	return &DashboardService{
		tenders: tenders,
		stats:   stats,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Stats aggregates the whole tender store. Urgent deadlines have no lower
// bound, so tenders already past their deadline are included.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	totals, err := s.stats.TenderTotals(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.tenders.ListRecent(ctx, RecentTenderCount)
	if err != nil {
		return nil, err
	}

	urgent, err := s.tenders.ListDeadlineBefore(ctx, s.now().Add(UrgentWindow))
	if err != nil {
		return nil, err
	}

	byProvince, err := s.stats.OpenTendersByProvince(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalTenders:      totals.Count,
		TotalValue:        totals.TotalValue,
		SavedTenders:      placeholderSavedTenders,
		InterestedTenders: placeholderInterestedTenders,
		RecentTenders:     recent,
		UrgentDeadlines:   urgent,
		OpenByProvince:    byProvince,
	}, nil
}
