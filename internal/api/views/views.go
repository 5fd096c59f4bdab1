// Package views defines the JSON shapes returned by the HTTP API and converts
// models into them. All timestamps are rendered as RFC 3339 in UTC with a
// trailing "Z".
package views

import (
	"time"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
	"github.com/tenderhub/tender-insight-hub/internal/db/repositories"
	"github.com/tenderhub/tender-insight-hub/internal/services"
)

// Timestamp formats t in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := Timestamp(*t)
	return &s
}

// Budget is the value range of a tender.
type Budget struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Currency string   `json:"currency"`
}

// Document is a tender attachment.
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Tender is a tender listing with its documents.
type Tender struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Buyer         string     `json:"buyer"`
	Province      string     `json:"province"`
	Budget        Budget     `json:"budget"`
	Deadline      string     `json:"deadline"`
	PublishedDate string     `json:"publishedDate"`
	Status        string     `json:"status"`
	Categories    []string   `json:"categories"`
	Documents     []Document `json:"documents"`
	Source        string     `json:"source"`
	OCDSID        *string    `json:"ocdsId"`
}

// NewDocument converts a stored document.
func NewDocument(d *models.TenderDocument) Document {
	return Document{ID: d.ID, Name: d.Name, URL: d.URL, Type: d.Type, Size: d.Size}
}

// NewTender converts a tender. Nil categories and documents render as [].
func NewTender(t *models.Tender) Tender {
	docs := make([]Document, 0, len(t.Documents))
	for i := range t.Documents {
		docs = append(docs, NewDocument(&t.Documents[i]))
	}
	categories := []string(t.Categories)
	if categories == nil {
		categories = []string{}
	}
	return Tender{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Buyer:       t.Buyer,
		Province:    t.Province,
		Budget: Budget{
			Min:      t.BudgetMin,
			Max:      t.BudgetMax,
			Currency: t.Currency,
		},
		Deadline:      Timestamp(t.Deadline),
		PublishedDate: Timestamp(t.PublishedDate),
		Status:        t.Status,
		Categories:    categories,
		Documents:     docs,
		Source:        t.Source,
		OCDSID:        t.OCDSID,
	}
}

// NewTenders converts a list, rendering an empty result as [].
func NewTenders(tenders []*models.Tender) []Tender {
	out := make([]Tender, 0, len(tenders))
	for _, t := range tenders {
		out = append(out, NewTender(t))
	}
	return out
}

// TenderSummary is a tender without its documents, used in lists where
// documents are not loaded.
type TenderSummary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Buyer         string   `json:"buyer"`
	Province      string   `json:"province"`
	Budget        Budget   `json:"budget"`
	Deadline      string   `json:"deadline"`
	PublishedDate string   `json:"publishedDate"`
	Status        string   `json:"status"`
	Categories    []string `json:"categories"`
	Source        string   `json:"source"`
	OCDSID        *string  `json:"ocdsId"`
}

// NewTenderSummaries converts a list without documents.
func NewTenderSummaries(tenders []*models.Tender) []TenderSummary {
	out := make([]TenderSummary, 0, len(tenders))
	for _, t := range tenders {
		v := NewTender(t)
		out = append(out, TenderSummary{
			ID:            v.ID,
			Title:         v.Title,
			Description:   v.Description,
			Buyer:         v.Buyer,
			Province:      v.Province,
			Budget:        v.Budget,
			Deadline:      v.Deadline,
			PublishedDate: v.PublishedDate,
			Status:        v.Status,
			Categories:    v.Categories,
			Source:        v.Source,
			OCDSID:        v.OCDSID,
		})
	}
	return out
}

// User is an account without its credentials.
type User struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Role           string  `json:"role"`
	OrganizationID string  `json:"organizationId"`
	CreatedAt      string  `json:"createdAt"`
	LastLogin      *string `json:"lastLogin"`
}

// NewUser converts a user.
func NewUser(u *models.User) User {
	return User{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
		CreatedAt:      Timestamp(u.CreatedAt),
		LastLogin:      optionalTimestamp(u.LastLogin),
	}
}

// Subscription is the billing state of an organization.
type Subscription struct {
	Status    string `json:"status"`
	ExpiresAt string `json:"expiresAt"`
}

// Organization is a customer organization.
type Organization struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Plan         string        `json:"plan"`
	MaxUsers     int           `json:"maxUsers"`
	CurrentUsers int           `json:"currentUsers"`
	CreatedAt    string        `json:"createdAt"`
	Subscription *Subscription `json:"subscription"`
}

// NewOrganization converts an organization. A nil organization (a user whose
// organization row is gone) renders as null.
func NewOrganization(o *models.Organization) *Organization {
	if o == nil {
		return nil
	}
	out := &Organization{
		ID:           o.ID,
		Name:         o.Name,
		Plan:         o.Plan,
		MaxUsers:     o.MaxUsers,
		CurrentUsers: o.CurrentUsers,
		CreatedAt:    Timestamp(o.CreatedAt),
	}
	if o.Subscription != nil {
		out.Subscription = &Subscription{
			Status:    o.Subscription.Status,
			ExpiresAt: Timestamp(o.Subscription.ExpiresAt),
		}
	}
	return out
}

// Session is the body returned by login and registration.
type Session struct {
	User         User          `json:"user"`
	Organization *Organization `json:"organization"`
	Token        string        `json:"token"`
}

// NewSession converts an authenticated session.
func NewSession(s *services.Session) Session {
	return Session{
		User:         NewUser(s.User),
		Organization: NewOrganization(s.Organization),
		Token:        s.Token,
	}
}

// Profile is the body of GET /api/auth/me.
type Profile struct {
	User         User          `json:"user"`
	Organization *Organization `json:"organization"`
}

// AnalysisSummary mirrors models.AnalysisSummary with a formatted deadline.
type AnalysisSummary struct {
	Objective           string   `json:"objective"`
	Scope               string   `json:"scope"`
	Deadline            string   `json:"deadline"`
	EligibilityCriteria []string `json:"eligibilityCriteria"`
	KeyRequirements     []string `json:"keyRequirements"`
	EstimatedValue      string   `json:"estimatedValue"`
}

// Analysis is one readiness analysis.
type Analysis struct {
	ID               string                `json:"id"`
	TenderID         string                `json:"tenderId"`
	OrganizationID   string                `json:"organizationId"`
	Summary          AnalysisSummary       `json:"summary"`
	ReadinessScore   models.ReadinessScore `json:"readinessScore"`
	ProcessedAt      string                `json:"processedAt"`
	ProcessingTimeMs int                   `json:"processingTimeMs"`
}

// NewAnalysis converts an analysis.
func NewAnalysis(a *models.TenderAnalysis) Analysis {
	return Analysis{
		ID:             a.ID,
		TenderID:       a.TenderID,
		OrganizationID: a.OrganizationID,
		Summary: AnalysisSummary{
			Objective:           a.Summary.Objective,
			Scope:               a.Summary.Scope,
			Deadline:            Timestamp(a.Summary.Deadline),
			EligibilityCriteria: a.Summary.EligibilityCriteria,
			KeyRequirements:     a.Summary.KeyRequirements,
			EstimatedValue:      a.Summary.EstimatedValue,
		},
		ReadinessScore:   a.ReadinessScore,
		ProcessedAt:      Timestamp(a.ProcessedAt),
		ProcessingTimeMs: a.ProcessingTimeMs,
	}
}

// NewAnalyses converts a list of analyses.
func NewAnalyses(as []*models.TenderAnalysis) []Analysis {
	out := make([]Analysis, 0, len(as))
	for _, a := range as {
		out = append(out, NewAnalysis(a))
	}
	return out
}

// Dashboard is the aggregate returned by GET /api/dashboard/stats.
type Dashboard struct {
	TotalTenders          int                          `json:"totalTenders"`
	TotalValue            float64                      `json:"totalValue"`
	SavedTenders          int                          `json:"savedTenders"`
	InterestedTenders     int                          `json:"interestedTenders"`
	RecentTenders         []TenderSummary              `json:"recentTenders"`
	UrgentDeadlines       []TenderSummary              `json:"urgentDeadlines"`
	OpenTendersByProvince []repositories.ProvinceCount `json:"openTendersByProvince"`
}

// NewDashboard converts dashboard stats.
func NewDashboard(s *services.DashboardStats) Dashboard {
	byProvince := s.OpenByProvince
	if byProvince == nil {
		byProvince = []repositories.ProvinceCount{}
	}
	return Dashboard{
		TotalTenders:          s.TotalTenders,
		TotalValue:            s.TotalValue,
		SavedTenders:          s.SavedTenders,
		InterestedTenders:     s.InterestedTenders,
		RecentTenders:         NewTenderSummaries(s.RecentTenders),
		UrgentDeadlines:       NewTenderSummaries(s.UrgentDeadlines),
		OpenTendersByProvince: byProvince,
	}
}
