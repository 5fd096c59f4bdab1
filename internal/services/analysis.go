package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
	"github.com/tenderhub/tender-insight-hub/internal/scoring"
	"github.com/tenderhub/tender-insight-hub/internal/telemetry"
)

// DefaultAnalysisListLimit caps how many past analyses List returns.
const DefaultAnalysisListLimit = 20

// AnalysisService runs readiness analyses and records every run
type AnalysisService struct {
	tenders  TenderStore
	analyses AnalysisStore
	scorer   scoring.Scorer
	now      func() time.Time
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(tenders TenderStore, analyses AnalysisStore, scorer scoring.Scorer) *AnalysisService {
	return &AnalysisService{
		tenders:  tenders,
		analyses: analyses,
		scorer:   scorer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Analyze scores a tender for orgID and stores the result as a new row.
// Repeated calls are not deduplicated. An empty orgID falls back to the
// organization that owns the tender, if any.
func (s *AnalysisService) Analyze(ctx context.Context, tenderID, orgID string) (*models.TenderAnalysis, error) {
	tender, err := s.tenders.GetByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if tender == nil {
		return nil, ErrTenderNotFound
	}

	result, err := s.scorer.Score(ctx, tender)
	if err != nil {
		outcome := "error"
		if errors.Is(err, scoring.ErrIncompleteBudget) {
			outcome = "incomplete_budget"
		}
		telemetry.TenderAnalysesTotal.WithLabelValues(s.scorer.Name(), outcome).Inc()
		return nil, err
	}

	if orgID == "" && tender.OrganizationID != nil {
		orgID = *tender.OrganizationID
	}

	analysis := &models.TenderAnalysis{
		ID:               uuid.New().String(),
		TenderID:         tender.ID,
		OrganizationID:   orgID,
		Summary:          result.Summary,
		ReadinessScore:   result.ReadinessScore,
		ProcessedAt:      s.now(),
		ProcessingTimeMs: result.ProcessingTimeMs,
	}
	if err := s.analyses.Create(ctx, analysis); err != nil {
		telemetry.TenderAnalysesTotal.WithLabelValues(s.scorer.Name(), "error").Inc()
		return nil, err
	}

	telemetry.TenderAnalysesTotal.WithLabelValues(s.scorer.Name(), "success").Inc()
	return analysis, nil
}

// List returns the most recent analyses of a tender, newest first.
func (s *AnalysisService) List(ctx context.Context, tenderID string, limit int) ([]*models.TenderAnalysis, error) {
	tender, err := s.tenders.GetByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if tender == nil {
		return nil, ErrTenderNotFound
	}
	if limit <= 0 || limit > DefaultAnalysisListLimit {
		limit = DefaultAnalysisListLimit
	}
	return s.analyses.ListByTender(ctx, tenderID, limit)
}
