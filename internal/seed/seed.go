// Package seed loads the sample organization and tenders into an empty store.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
)

// SampleOrganizationID owns the seeded tenders.
const SampleOrganizationID = "sample-org"

// TenderStore is the subset of the tender repository the seeder needs.
type TenderStore interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, t *models.Tender) error
}

// OrganizationStore creates organizations.
type OrganizationStore interface {
	Create(ctx context.Context, org *models.Organization) error
}

// Seeder writes the sample data set
type Seeder struct {
	tenders TenderStore
	orgs    OrganizationStore
}

// NewSeeder creates a new seeder
func NewSeeder(tenders TenderStore, orgs OrganizationStore) *Seeder {
	return &Seeder{tenders: tenders, orgs: orgs}
}

// Run seeds the sample organization and tenders when the tender store is
// empty. It reports whether anything was written.
func (s *Seeder) Run(ctx context.Context) (bool, error) {
	n, err := s.tenders.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count tenders: %w", err)
	}
	if n > 0 {
		slog.Debug("tender store not empty, skipping seed", "tenders", n)
		return false, nil
	}

	if err := s.orgs.Create(ctx, SampleOrganization()); err != nil {
		return false, fmt.Errorf("failed to seed organization: %w", err)
	}
	tenders := SampleTenders()
	for _, t := range tenders {
		if err := s.tenders.Create(ctx, t); err != nil {
			return false, fmt.Errorf("failed to seed tender %s: %w", t.ID, err)
		}
	}

	slog.Info("seeded sample data", "organization_id", SampleOrganizationID, "tenders", len(tenders))
	return true, nil
}

// SampleOrganization returns the organization that owns the sample tenders.
func SampleOrganization() *models.Organization {
	return &models.Organization{
		ID:           SampleOrganizationID,
		Name:         "Sample Organization",
		Plan:         models.PlanFree,
		MaxUsers:     10,
		CurrentUsers: 1,
	}
}

// SampleTenders returns three open tenders across Gauteng, Western Cape and
// KwaZulu-Natal.
func SampleTenders() []*models.Tender {
	org := SampleOrganizationID
	return []*models.Tender{
		{
			ID:             "tender-1",
			Title:          "Road Maintenance Services - Gauteng Province",
			Description:    "Supply and delivery of road maintenance services including pothole repairs, line marking, and general road upkeep for provincial roads.",
			Buyer:          "Gauteng Department of Infrastructure Development",
			Province:       "Gauteng",
			BudgetMin:      float(5000000),
			BudgetMax:      float(15000000),
			Currency:       models.DefaultCurrency,
			Deadline:       at(2024, time.October, 15, 17),
			PublishedDate:  at(2024, time.August, 15, 10),
			Status:         models.TenderStatusOpen,
			Categories:     models.StringList{"Construction", "Infrastructure", "Maintenance"},
			Source:         models.SourceOCDS,
			OCDSID:         str("ZA-GP-001-2024"),
			OrganizationID: &org,
		},
		{
			ID:             "tender-2",
			Title:          "Security Services for Government Buildings",
			Description:    "Provision of comprehensive security services for government buildings in Western Cape, including access control, monitoring, and emergency response.",
			Buyer:          "Western Cape Department of Public Works",
			Province:       "Western Cape",
			BudgetMin:      float(8000000),
			BudgetMax:      float(12000000),
			Currency:       models.DefaultCurrency,
			Deadline:       at(2024, time.September, 30, 17),
			PublishedDate:  at(2024, time.August, 10, 9),
			Status:         models.TenderStatusOpen,
			Categories:     models.StringList{"Security", "Services"},
			Source:         models.SourceOCDS,
			OCDSID:         str("ZA-WC-002-2024"),
			OrganizationID: &org,
		},
		{
			ID:             "tender-3",
			Title:          "ICT Equipment Supply and Installation",
			Description:    "Supply, installation and configuration of ICT equipment including computers, servers, networking equipment for municipal offices.",
			Buyer:          "eThekwini Municipality",
			Province:       "KwaZulu-Natal",
			BudgetMin:      float(3000000),
			BudgetMax:      float(7000000),
			Currency:       models.DefaultCurrency,
			Deadline:       at(2024, time.November, 20, 17),
			PublishedDate:  at(2024, time.August, 20, 11),
			Status:         models.TenderStatusOpen,
			Categories:     models.StringList{"ICT", "Equipment", "Installation"},
			Source:         models.SourceOCDS,
			OCDSID:         str("ZA-KZN-003-2024"),
			OrganizationID: &org,
		},
	}
}

func at(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func float(v float64) *float64 { return &v }

func str(s string) *string { return &s }
