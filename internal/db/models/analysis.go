// Package models - analysis.go defines TenderAnalysis, the append-only record
// produced each time a readiness analysis is requested for a tender.
package models

import (
	"database/sql/driver"
	"time"
)

// TenderAnalysis is one readiness analysis run. Rows are never updated.
type TenderAnalysis struct {
	ID               string          `json:"id"`
	TenderID         string          `json:"tenderId"`
	OrganizationID   string          `json:"organizationId"`
	Summary          AnalysisSummary `json:"summary"`
	ReadinessScore   ReadinessScore  `json:"readinessScore"`
	ProcessedAt      time.Time       `json:"processedAt"`
	ProcessingTimeMs int             `json:"processingTimeMs"`
}

// AnalysisSummary condenses the tender into the fields a bid team reads first.
type AnalysisSummary struct {
	Objective           string    `json:"objective"`
	Scope               string    `json:"scope"`
	Deadline            time.Time `json:"deadline"`
	EligibilityCriteria []string  `json:"eligibilityCriteria"`
	KeyRequirements     []string  `json:"keyRequirements"`
	EstimatedValue      string    `json:"estimatedValue"`
}

// Value implements driver.Valuer.
func (s AnalysisSummary) Value() (driver.Value, error) {
	return jsonValue(s)
}

// Scan implements sql.Scanner.
func (s *AnalysisSummary) Scan(src interface{}) error {
	return jsonScan(src, s)
}

// ReadinessScore rates how well the organization fits the tender.
type ReadinessScore struct {
	Score          int              `json:"score"`
	Breakdown      []ScoreBreakdown `json:"breakdown"`
	Recommendation string           `json:"recommendation"`
	Confidence     float64          `json:"confidence"`
}

// ScoreBreakdown is one criterion contributing to the score.
type ScoreBreakdown struct {
	Criteria   string `json:"criteria"`
	Matched    bool   `json:"matched"`
	Importance string `json:"importance"`
	Details    string `json:"details"`
}

// Importance tiers used in a breakdown.
const (
	ImportanceHigh   = "high"
	ImportanceMedium = "medium"
	ImportanceLow    = "low"
)

// Value implements driver.Valuer.
func (r ReadinessScore) Value() (driver.Value, error) {
	return jsonValue(r)
}

// Scan implements sql.Scanner.
func (r *ReadinessScore) Scan(src interface{}) error {
	return jsonScan(src, r)
}
