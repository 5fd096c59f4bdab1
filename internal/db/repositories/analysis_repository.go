package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
)

// AnalysisRepository stores readiness analyses. Rows are append-only.
type AnalysisRepository struct {
	db *sql.DB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Create inserts a new analysis row.
func (r *AnalysisRepository) Create(ctx context.Context, a *models.TenderAnalysis) error {
	var orgID interface{}
	if a.OrganizationID != "" {
		orgID = a.OrganizationID
	}

	query := `
		INSERT INTO tender_analyses (id, tender_id, organization_id, summary, readiness_score, processed_at, processing_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.TenderID,
		orgID,
		a.Summary,
		a.ReadinessScore,
		a.ProcessedAt,
		a.ProcessingTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// ListByTender returns analyses of a tender, newest first.
func (r *AnalysisRepository) ListByTender(ctx context.Context, tenderID string, limit int) ([]*models.TenderAnalysis, error) {
	query := `
		SELECT id, tender_id, COALESCE(organization_id, ''), summary, readiness_score, processed_at, processing_time_ms
		FROM tender_analyses
		WHERE tender_id = $1
		ORDER BY processed_at DESC, id
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, tenderID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := make([]*models.TenderAnalysis, 0)
	for rows.Next() {
		a := &models.TenderAnalysis{}
		if err := rows.Scan(
			&a.ID,
			&a.TenderID,
			&a.OrganizationID,
			&a.Summary,
			&a.ReadinessScore,
			&a.ProcessedAt,
			&a.ProcessingTimeMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return analyses, nil
}
