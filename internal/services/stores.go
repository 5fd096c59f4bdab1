// Package services implements the business logic that sits between the HTTP
// handlers and the repositories: account sessions, tender lookups, readiness
// analyses, document uploads and dashboard aggregates.
//
// Services depend on the narrow store interfaces below. The repositories in
// internal/db/repositories satisfy them in production.
package services

import (
	"context"
	"time"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
	"github.com/tenderhub/tender-insight-hub/internal/db/repositories"
	"github.com/tenderhub/tender-insight-hub/internal/search"
)

// UserStore persists users.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	CreateWithOrganization(ctx context.Context, org *models.Organization, user *models.User) error
}

// OrganizationStore reads organizations.
type OrganizationStore interface {
	GetByID(ctx context.Context, id string) (*models.Organization, error)
}

// TenderStore reads tenders.
type TenderStore interface {
	Search(ctx context.Context, f search.Filter) ([]*models.Tender, error)
	GetByID(ctx context.Context, id string) (*models.Tender, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Tender, error)
	ListDeadlineBefore(ctx context.Context, cutoff time.Time) ([]*models.Tender, error)
}

// DocumentStore persists tender documents.
type DocumentStore interface {
	AttachTo(ctx context.Context, tenders ...*models.Tender) error
	GetByID(ctx context.Context, tenderID, docID string) (*models.TenderDocument, error)
	Upsert(ctx context.Context, d *models.TenderDocument) error
}

// AnalysisStore persists readiness analyses.
type AnalysisStore interface {
	Create(ctx context.Context, a *models.TenderAnalysis) error
	ListByTender(ctx context.Context, tenderID string, limit int) ([]*models.TenderAnalysis, error)
}

// StatsStore computes store-wide aggregates.
type StatsStore interface {
	TenderTotals(ctx context.Context) (repositories.TenderTotals, error)
	OpenTendersByProvince(ctx context.Context) ([]repositories.ProvinceCount, error)
}

var (
	_ UserStore         = (*repositories.UserRepository)(nil)
	_ OrganizationStore = (*repositories.OrganizationRepository)(nil)
	_ TenderStore       = (*repositories.TenderRepository)(nil)
	_ DocumentStore     = (*repositories.DocumentRepository)(nil)
	_ AnalysisStore     = (*repositories.AnalysisRepository)(nil)
	_ StatsStore        = (*repositories.StatsRepository)(nil)
)
