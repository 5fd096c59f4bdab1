// tender_repository.go implements TenderRepository: filtered search, lookups
// and the write paths used by seeding, OCDS ingestion and deadline closing.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
	"github.com/tenderhub/tender-insight-hub/internal/search"
)

var tenderColumns = []string{
	"id", "title", "description", "buyer", "province",
	"budget_min", "budget_max", "currency", "deadline", "published_date",
	"status", "categories", "source", "ocds_id", "organization_id",
}

// TenderRepository handles database operations for tenders
type TenderRepository struct {
	db *sql.DB
}

// NewTenderRepository creates a new tender repository
func NewTenderRepository(db *sql.DB) *TenderRepository {
	return &TenderRepository{db: db}
}

func scanTender(row interface{ Scan(...interface{}) error }) (*models.Tender, error) {
	t := &models.Tender{}
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Buyer,
		&t.Province,
		&t.BudgetMin,
		&t.BudgetMax,
		&t.Currency,
		&t.Deadline,
		&t.PublishedDate,
		&t.Status,
		&t.Categories,
		&t.Source,
		&t.OCDSID,
		&t.OrganizationID,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TenderRepository) queryTenders(ctx context.Context, query string, args ...interface{}) ([]*models.Tender, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenders := make([]*models.Tender, 0)
	for rows.Next() {
		t, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, t)
	}
	return tenders, rows.Err()
}

// Search returns all tenders matching every predicate in f, most recently
// published first. Documents are not loaded.
func (r *TenderRepository) Search(ctx context.Context, f search.Filter) ([]*models.Tender, error) {
	query, args := search.Build(f, tenderColumns...)
	tenders, err := r.queryTenders(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search tenders: %w", err)
	}
	return tenders, nil
}

// GetByID retrieves a tender by ID. It returns nil, nil when absent.
func (r *TenderRepository) GetByID(ctx context.Context, id string) (*models.Tender, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(tenderColumns...).From("tenders").Where(sb.Equal("id", id))
	query, args := sb.Build()

	t, err := scanTender(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tender: %w", err)
	}
	return t, nil
}

// ListRecent returns the most recently published tenders.
func (r *TenderRepository) ListRecent(ctx context.Context, limit int) ([]*models.Tender, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(tenderColumns...).From("tenders").
		OrderBy("published_date DESC", "id ASC").
		Limit(limit)
	query, args := sb.Build()

	tenders, err := r.queryTenders(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent tenders: %w", err)
	}
	return tenders, nil
}

// ListDeadlineBefore returns tenders whose deadline is at or before cutoff,
// soonest first. There is no lower bound: overdue tenders are included.
func (r *TenderRepository) ListDeadlineBefore(ctx context.Context, cutoff time.Time) ([]*models.Tender, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(tenderColumns...).From("tenders").
		Where(sb.LessEqualThan("deadline", cutoff)).
		OrderBy("deadline ASC", "id ASC")
	query, args := sb.Build()

	tenders, err := r.queryTenders(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenders by deadline: %w", err)
	}
	return tenders, nil
}

// Count returns the number of stored tenders.
func (r *TenderRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tenders: %w", err)
	}
	return n, nil
}

// Create inserts a tender. ID, currency, status, source and published date
// receive their defaults when empty.
func (r *TenderRepository) Create(ctx context.Context, t *models.Tender) error {
	applyTenderDefaults(t)

	query := `
		INSERT INTO tenders (id, title, description, buyer, province, budget_min, budget_max, currency,
			deadline, published_date, status, categories, source, ocds_id, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query, tenderArgs(t)...)
	if err != nil {
		return fmt.Errorf("failed to create tender: %w", err)
	}
	return nil
}

// UpsertByOCDSID inserts a tender or, when a tender with the same OCDS id
// exists, refreshes its published fields. The stored tender's id is written
// back to t. created reports whether a new row was inserted.
func (r *TenderRepository) UpsertByOCDSID(ctx context.Context, t *models.Tender) (created bool, err error) {
	if t.OCDSID == nil || *t.OCDSID == "" {
		return false, fmt.Errorf("failed to upsert tender: ocds id is required")
	}
	applyTenderDefaults(t)

	query := `
		INSERT INTO tenders (id, title, description, buyer, province, budget_min, budget_max, currency,
			deadline, published_date, status, categories, source, ocds_id, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (ocds_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			buyer = EXCLUDED.buyer,
			province = EXCLUDED.province,
			budget_min = EXCLUDED.budget_min,
			budget_max = EXCLUDED.budget_max,
			currency = EXCLUDED.currency,
			deadline = EXCLUDED.deadline,
			status = EXCLUDED.status,
			categories = EXCLUDED.categories
		RETURNING id, (xmax = 0) AS inserted
	`
	err = r.db.QueryRowContext(ctx, query, tenderArgs(t)...).Scan(&t.ID, &created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert tender: %w", err)
	}
	return created, nil
}

// CloseExpired marks open tenders whose deadline is before now as closed and
// returns how many rows changed.
func (r *TenderRepository) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tenders SET status = $1 WHERE status = $2 AND deadline < $3`,
		models.TenderStatusClosed, models.TenderStatusOpen, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to close expired tenders: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to close expired tenders: %w", err)
	}
	return n, nil
}

func applyTenderDefaults(t *models.Tender) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Currency == "" {
		t.Currency = models.DefaultCurrency
	}
	if t.Status == "" {
		t.Status = models.TenderStatusOpen
	}
	if t.Source == "" {
		t.Source = models.SourceOCDS
	}
	if t.PublishedDate.IsZero() {
		t.PublishedDate = time.Now().UTC()
	}
	if t.Categories == nil {
		t.Categories = models.StringList{}
	}
}

func tenderArgs(t *models.Tender) []interface{} {
	return []interface{}{
		t.ID,
		t.Title,
		t.Description,
		t.Buyer,
		t.Province,
		t.BudgetMin,
		t.BudgetMax,
		t.Currency,
		t.Deadline,
		t.PublishedDate,
		t.Status,
		t.Categories,
		t.Source,
		t.OCDSID,
		t.OrganizationID,
	}
}
