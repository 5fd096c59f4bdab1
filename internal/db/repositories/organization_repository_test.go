package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
)

var errDB = errors.New("db error")

var orgCols = []string{"id", "name", "plan", "max_users", "current_users", "subscription", "created_at"}

func newOrgRepo(t *testing.T) (*OrganizationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewOrganizationRepository(db), mock
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestOrganizationGetByID_Found(t *testing.T) {
	repo, mock := newOrgRepo(t)
	created := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT.*FROM organizations.*WHERE id").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows(orgCols).AddRow(
			"org-1", "Acme Civils", "basic", 3, 1,
			[]byte(`{"status":"trial","expiresAt":"2024-08-31T00:00:00Z"}`), created,
		))

	org, err := repo.GetByID(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if org == nil {
		t.Fatal("expected organization, got nil")
	}
	if org.Plan != "basic" || org.MaxUsers != 3 {
		t.Errorf("org = %+v", org)
	}
	if org.Subscription == nil || org.Subscription.Status != "trial" {
		t.Errorf("Subscription = %+v, want trial", org.Subscription)
	}
}

func TestOrganizationGetByID_NullSubscription(t *testing.T) {
	repo, mock := newOrgRepo(t)
	mock.ExpectQuery("SELECT.*FROM organizations").
		WillReturnRows(sqlmock.NewRows(orgCols).AddRow("sample-org", "Sample Organization", "free", 10, 1, nil, time.Now()))

	org, err := repo.GetByID(context.Background(), "sample-org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if org.Subscription != nil {
		t.Errorf("Subscription = %+v, want nil", org.Subscription)
	}
}

func TestOrganizationGetByID_NotFound(t *testing.T) {
	repo, mock := newOrgRepo(t)
	mock.ExpectQuery("SELECT.*FROM organizations").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(orgCols))

	org, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if org != nil {
		t.Errorf("expected nil, got %+v", org)
	}
}

func TestOrganizationGetByID_DBError(t *testing.T) {
	repo, mock := newOrgRepo(t)
	mock.ExpectQuery("SELECT.*FROM organizations").WillReturnError(errDB)

	if _, err := repo.GetByID(context.Background(), "org-1"); !errors.Is(err, errDB) {
		t.Errorf("error = %v, want wrapped errDB", err)
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestOrganizationCreate_FillsDefaults(t *testing.T) {
	repo, mock := newOrgRepo(t)
	mock.ExpectExec("INSERT INTO organizations").
		WithArgs(sqlmock.AnyArg(), "Acme", "free", 1, 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	org := &models.Organization{Name: "Acme", Plan: "free", MaxUsers: 1, CurrentUsers: 1}
	if err := repo.Create(context.Background(), org); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if org.ID == "" {
		t.Error("ID not generated")
	}
	if org.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestOrganizationCreate_KeepsGivenID(t *testing.T) {
	repo, mock := newOrgRepo(t)
	mock.ExpectExec("INSERT INTO organizations").
		WithArgs("sample-org", "Sample Organization", "free", 10, 1, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	org := &models.Organization{ID: "sample-org", Name: "Sample Organization", Plan: "free", MaxUsers: 10, CurrentUsers: 1}
	if err := repo.Create(context.Background(), org); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if org.ID != "sample-org" {
		t.Errorf("ID = %q, want sample-org", org.ID)
	}
}

func TestOrganizationCreate_DBError(t *testing.T) {
	repo, mock := newOrgRepo(t)
	mock.ExpectExec("INSERT INTO organizations").WillReturnError(errDB)

	if err := repo.Create(context.Background(), &models.Organization{Name: "x"}); !errors.Is(err, errDB) {
		t.Errorf("error = %v, want wrapped errDB", err)
	}
}
