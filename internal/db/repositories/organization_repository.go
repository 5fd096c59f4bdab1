// Package repositories implements the data access layer for Tender Insight Hub.
// Each repository type encapsulates all database queries for one entity;
// handlers and services never issue SQL directly.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// OrganizationRepository handles database operations for organizations
type OrganizationRepository struct {
	db *sql.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// GetByID retrieves an organization by ID. It returns nil, nil when absent.
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	query := `
		SELECT id, name, plan, max_users, current_users, subscription, created_at
		FROM organizations
		WHERE id = $1
	`

	org := &models.Organization{}
	var sub nullSubscription
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.Plan,
		&org.MaxUsers,
		&org.CurrentUsers,
		&sub,
		&org.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	org.Subscription = sub.ptr()

	return org, nil
}

// Create inserts a new organization. ID and CreatedAt are filled in when empty.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	if err := insertOrganization(ctx, r.db, org); err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func insertOrganization(ctx context.Context, ex execer, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}

	var sub interface{}
	if org.Subscription != nil {
		sub = *org.Subscription
	}

	query := `
		INSERT INTO organizations (id, name, plan, max_users, current_users, subscription, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := ex.ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.Plan,
		org.MaxUsers,
		org.CurrentUsers,
		sub,
		org.CreatedAt,
	)
	return err
}

// nullSubscription scans a nullable JSONB subscription column.
type nullSubscription struct {
	sub   models.Subscription
	valid bool
}

func (n *nullSubscription) Scan(src interface{}) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.sub.Scan(src)
}

func (n nullSubscription) ptr() *models.Subscription {
	if !n.valid {
		return nil
	}
	s := n.sub
	return &s
}
