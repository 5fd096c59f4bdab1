package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/tenderhub/tender-insight-hub/internal/auth"
	"github.com/tenderhub/tender-insight-hub/internal/db"
	"github.com/tenderhub/tender-insight-hub/internal/db/models"
	"github.com/tenderhub/tender-insight-hub/internal/telemetry"
)

// RegisterRequest is a new organization with its first user.
type RegisterRequest struct {
	Email            string
	Password         string
	FirstName        string
	LastName         string
	OrganizationName string
	Plan             string
}

// Session is an authenticated user with their organization and bearer token.
type Session struct {
	User         *models.User
	Organization *models.Organization
	Token        string
}

// AccountOptions tunes AccountService.
type AccountOptions struct {
	TokenTTL          time.Duration
	MinPasswordLength int
}

// AccountService handles login, registration and profile lookups
type AccountService struct {
	users UserStore
	orgs  OrganizationStore
	opts  AccountOptions
	now   func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(users UserStore, orgs OrganizationStore, opts AccountOptions) *AccountService {
	return &AccountService{
		users: users,
		orgs:  orgs,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeEmail lowercases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies credentials and opens a session. Any mismatch, including an
// unknown email or an inactive account, returns ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		telemetry.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	var hash string
	if user != nil {
		hash = user.HashedPassword
	}
	if !auth.CheckPassword(hash, password) || user == nil || !user.IsActive {
		telemetry.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}

	org, err := s.orgs.GetByID(ctx, user.OrganizationID)
	if err != nil {
		telemetry.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		telemetry.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	user.LastLogin = &now

	token, err := auth.GenerateJWT(user.ID, user.Email, user.OrganizationID, s.opts.TokenTTL)
	if err != nil {
		telemetry.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	telemetry.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return &Session{User: user, Organization: org, Token: token}, nil
}

func (s *AccountService) validate(req *RegisterRequest) error {
	req.Email = NormalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.OrganizationName = strings.TrimSpace(req.OrganizationName)
	// Plan names are matched exactly; "Free" is not the free tier.
	if req.Plan == "" {
		req.Plan = models.PlanFree
	}

	if _, err := mail.ParseAddress(req.Email); err != nil || !strings.Contains(req.Email, "@") {
		return &ValidationError{Field: "email", Message: "is not a valid address"}
	}
	if len(req.Password) < s.opts.MinPasswordLength {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", s.opts.MinPasswordLength)}
	}
	if req.OrganizationName == "" {
		return &ValidationError{Field: "organizationName", Message: "is required"}
	}
	return nil
}

// Register creates an organization on the requested plan together with its
// admin user and opens a session for that user.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	taken, err := s.users.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	org := &models.Organization{
		Name:         req.OrganizationName,
		Plan:         req.Plan,
		MaxUsers:     models.SeatLimit(req.Plan),
		CurrentUsers: 1,
		Subscription: models.NewSubscription(req.Plan, now),
		CreatedAt:    now,
	}
	user := &models.User{
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		HashedPassword: hash,
		Role:           models.RoleAdmin,
		IsActive:       true,
		CreatedAt:      now,
	}

	if err := s.users.CreateWithOrganization(ctx, org, user); err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	token, err := auth.GenerateJWT(user.ID, user.Email, org.ID, s.opts.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	telemetry.RegistrationsTotal.WithLabelValues(planLabel(req.Plan)).Inc()
	return &Session{User: user, Organization: org, Token: token}, nil
}

// Profile loads the user behind a token and their organization.
func (s *AccountService) Profile(ctx context.Context, userID string) (*models.User, *models.Organization, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil, ErrUserNotFound
	}
	org, err := s.orgs.GetByID(ctx, user.OrganizationID)
	if err != nil {
		return nil, nil, err
	}
	return user, org, nil
}

// planLabel keeps the metric label set bounded.
func planLabel(plan string) string {
	switch plan {
	case models.PlanFree, models.PlanBasic, models.PlanPro:
		return plan
	}
	return "other"
}
