package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderhub/tender-insight-hub/internal/auth"
	"github.com/tenderhub/tender-insight-hub/internal/db/models"
)

var testAccountOpts = AccountOptions{TokenTTL: 30 * time.Minute, MinPasswordLength: 8}

func newLoginFixture(t *testing.T, active bool) (*AccountService, *fakeUsers) {
	t.Helper()
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)

	users := newFakeUsers(&models.User{
		ID:             "user-1",
		Email:          "demo@example.com",
		HashedPassword: hash,
		Role:           models.RoleAdmin,
		OrganizationID: "org-1",
		IsActive:       active,
	})
	orgs := newFakeOrgs(&models.Organization{ID: "org-1", Name: "Acme", Plan: models.PlanFree})
	return NewAccountService(users, orgs, testAccountOpts), users
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestLogin_Success(t *testing.T) {
	svc, users := newLoginFixture(t, true)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	session, err := svc.Login(context.Background(), "  Demo@Example.COM ", "correct-horse")
	require.NoError(t, err)

	assert.Equal(t, "user-1", session.User.ID)
	assert.Equal(t, "Acme", session.Organization.Name)
	require.NotNil(t, session.User.LastLogin)
	assert.Equal(t, at, *session.User.LastLogin)
	assert.Equal(t, at, users.lastLogin["user-1"])

	claims, err := auth.ValidateJWT(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", claims.Subject)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "org-1", claims.OrganizationID)
}

func TestLogin_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		active   bool
		email    string
		password string
	}{
		{"wrong password", true, "demo@example.com", "wrong-horse"},
		{"unknown email", true, "nobody@example.com", "correct-horse"},
		{"inactive account", false, "demo@example.com", "correct-horse"},
		{"empty password", true, "demo@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users := newLoginFixture(t, tt.active)
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Empty(t, users.lastLogin)
		})
	}
}

func TestLogin_StoreError(t *testing.T) {
	svc, users := newLoginFixture(t, true)
	users.err = errStore
	_, err := svc.Login(context.Background(), "demo@example.com", "correct-horse")
	assert.ErrorIs(t, err, errStore)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Email:            "Founder@NewCo.example",
		Password:         "long-enough-password",
		FirstName:        " Thandi ",
		LastName:         "Nkosi",
		OrganizationName: "NewCo",
	}
}

func TestRegister_DefaultsToFreePlan(t *testing.T) {
	users := newFakeUsers()
	svc := NewAccountService(users, newFakeOrgs(), testAccountOpts)
	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	session, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	assert.Equal(t, "founder@newco.example", session.User.Email)
	assert.Equal(t, "Thandi", session.User.FirstName)
	assert.Equal(t, models.RoleAdmin, session.User.Role)
	assert.True(t, session.User.IsActive)
	assert.NotEqual(t, "long-enough-password", session.User.HashedPassword)
	assert.True(t, auth.CheckPassword(session.User.HashedPassword, "long-enough-password"))

	org := session.Organization
	assert.Equal(t, models.PlanFree, org.Plan)
	assert.Equal(t, 1, org.MaxUsers)
	assert.Equal(t, 1, org.CurrentUsers)
	require.NotNil(t, org.Subscription)
	assert.Equal(t, models.SubscriptionActive, org.Subscription.Status)
	assert.Equal(t, at.Add(30*24*time.Hour), org.Subscription.ExpiresAt)
	assert.Equal(t, org.ID, session.User.OrganizationID)

	claims, err := auth.ValidateJWT(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
}

func TestRegister_PlanSeatsAndTrial(t *testing.T) {
	tests := []struct {
		plan     string
		seats    int
		sub      string
		wantPlan string
	}{
		{"basic", 3, models.SubscriptionTrial, "basic"},
		{"PRO", 999, models.SubscriptionTrial, "PRO"},
		{"Free", 999, models.SubscriptionTrial, "Free"},
		{"enterprise", 999, models.SubscriptionTrial, "enterprise"},
	}
	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			svc := NewAccountService(newFakeUsers(), newFakeOrgs(), testAccountOpts)
			req := validRegistration()
			req.Plan = tt.plan

			session, err := svc.Register(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlan, session.Organization.Plan)
			assert.Equal(t, tt.seats, session.Organization.MaxUsers)
			assert.Equal(t, tt.sub, session.Organization.Subscription.Status)
		})
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	users := newFakeUsers(&models.User{ID: "u", Email: "founder@newco.example", IsActive: true})
	svc := NewAccountService(users, newFakeOrgs(), testAccountOpts)

	_, err := svc.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_EmailTakenRace(t *testing.T) {
	users := newFakeUsers()
	users.createErr = &pq.Error{Code: "23505", Constraint: "users_email_key"}
	svc := NewAccountService(users, newFakeOrgs(), testAccountOpts)

	_, err := svc.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*RegisterRequest)
		field string
	}{
		{"bad email", func(r *RegisterRequest) { r.Email = "not-an-email" }, "email"},
		{"short password", func(r *RegisterRequest) { r.Password = "short" }, "password"},
		{"missing organization", func(r *RegisterRequest) { r.OrganizationName = "   " }, "organizationName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAccountService(newFakeUsers(), newFakeOrgs(), testAccountOpts)
			req := validRegistration()
			tt.mut(&req)

			_, err := svc.Register(context.Background(), req)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

// ---------------------------------------------------------------------------
// Profile
// ---------------------------------------------------------------------------

func TestProfile(t *testing.T) {
	svc, _ := newLoginFixture(t, true)

	user, org, err := svc.Profile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", user.Email)
	assert.Equal(t, "org-1", org.ID)

	_, _, err = svc.Profile(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPlanLabel(t *testing.T) {
	assert.Equal(t, "basic", planLabel("basic"))
	assert.Equal(t, "other", planLabel("enterprise"))
}
