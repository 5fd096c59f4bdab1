// Package models - organization.go defines the Organization model: the tenant
// that owns users, analyses and (optionally) tenders, plus its plan seat limits.
package models

import (
	"database/sql/driver"
	"time"
)

// Plans offered at registration. Any other plan string is accepted and treated
// as an unlimited tier.
const (
	PlanFree  = "free"
	PlanBasic = "basic"
	PlanPro   = "pro"
)

// Subscription states.
const (
	SubscriptionActive = "active"
	SubscriptionTrial  = "trial"
)

// SubscriptionPeriod is how long a new subscription (or trial) lasts.
const SubscriptionPeriod = 30 * 24 * time.Hour

// Organization represents a customer organization
type Organization struct {
	ID           string
	Name         string
	Plan         string
	MaxUsers     int
	CurrentUsers int
	Subscription *Subscription
	CreatedAt    time.Time
}

// Subscription is stored as JSONB on the organization row.
type Subscription struct {
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Value implements driver.Valuer.
func (s Subscription) Value() (driver.Value, error) {
	return jsonValue(s)
}

// Scan implements sql.Scanner.
func (s *Subscription) Scan(src interface{}) error {
	return jsonScan(src, s)
}

// SeatLimit returns the maximum number of users allowed on a plan.
func SeatLimit(plan string) int {
	switch plan {
	case PlanFree:
		return 1
	case PlanBasic:
		return 3
	default:
		return 999
	}
}

// NewSubscription returns the subscription granted at registration: free plans
// are active immediately, paid plans start on a trial.
func NewSubscription(plan string, now time.Time) *Subscription {
	status := SubscriptionTrial
	if plan == PlanFree {
		status = SubscriptionActive
	}
	return &Subscription{Status: status, ExpiresAt: now.Add(SubscriptionPeriod)}
}
