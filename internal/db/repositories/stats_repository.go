package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TenderTotals are store-wide tender aggregates.
type TenderTotals struct {
	Count      int     `db:"total_tenders"`
	TotalValue float64 `db:"total_value"`
}

// StatsRepository computes dashboard aggregates.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// TenderTotals counts all tenders and sums their budget ceilings. Tenders
// without a ceiling contribute nothing; an empty store sums to zero.
func (r *StatsRepository) TenderTotals(ctx context.Context) (TenderTotals, error) {
	var totals TenderTotals
	err := r.db.GetContext(ctx, &totals, `
		SELECT COUNT(*) AS total_tenders, COALESCE(SUM(budget_max), 0) AS total_value
		FROM tenders
	`)
	if err != nil {
		return TenderTotals{}, fmt.Errorf("failed to compute tender totals: %w", err)
	}
	return totals, nil
}

// ProvinceCount is the number of open tenders in a province.
type ProvinceCount struct {
	Province string `db:"province" json:"province"`
	Count    int    `db:"count" json:"count"`
}

// OpenTendersByProvince groups open tenders by province, largest first.
func (r *StatsRepository) OpenTendersByProvince(ctx context.Context) ([]ProvinceCount, error) {
	out := []ProvinceCount{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT province, COUNT(*) AS count
		FROM tenders
		WHERE status = 'open'
		GROUP BY province
		ORDER BY count DESC, province
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tenders by province: %w", err)
	}
	return out, nil
}
