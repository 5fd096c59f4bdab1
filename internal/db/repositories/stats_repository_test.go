package repositories

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatsRepo(t *testing.T) (*StatsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStatsRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestTenderTotals(t *testing.T) {
	repo, mock := newStatsRepo(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total_tenders, COALESCE\(SUM\(budget_max\), 0\) AS total_value`).
		WillReturnRows(sqlmock.NewRows([]string{"total_tenders", "total_value"}).AddRow(3, 34000000.0))

	totals, err := repo.TenderTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, totals.Count)
	assert.Equal(t, 34000000.0, totals.TotalValue)
}

func TestTenderTotals_EmptyStore(t *testing.T) {
	repo, mock := newStatsRepo(t)
	mock.ExpectQuery("FROM tenders").
		WillReturnRows(sqlmock.NewRows([]string{"total_tenders", "total_value"}).AddRow(0, 0.0))

	totals, err := repo.TenderTotals(context.Background())
	require.NoError(t, err)
	assert.Zero(t, totals.Count)
	assert.Zero(t, totals.TotalValue)
}

func TestTenderTotals_DBError(t *testing.T) {
	repo, mock := newStatsRepo(t)
	mock.ExpectQuery("FROM tenders").WillReturnError(errDB)

	_, err := repo.TenderTotals(context.Background())
	assert.True(t, errors.Is(err, errDB))
}

func TestOpenTendersByProvince(t *testing.T) {
	repo, mock := newStatsRepo(t)
	mock.ExpectQuery("GROUP BY province").
		WillReturnRows(sqlmock.NewRows([]string{"province", "count"}).
			AddRow("Gauteng", 2).
			AddRow("Western Cape", 1))

	got, err := repo.OpenTendersByProvince(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ProvinceCount{Province: "Gauteng", Count: 2}, got[0])
}
