// Package scoring produces the readiness analysis shown to bid teams: a short
// summary of the tender and a score of how well the organization fits it.
//
// The only implementation today is StaticScorer, which derives the summary
// from the tender and returns a fixed score. A data-driven model can replace
// it behind the Scorer interface without touching callers.
package scoring

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
)

// ErrIncompleteBudget is returned when a tender lacks one of its budget bounds
// and no estimated value can be stated.
var ErrIncompleteBudget = errors.New("tender budget is incomplete")

// ScopeLimit is the number of characters of the description kept in the scope.
const ScopeLimit = 200

// NominalProcessingTime is reported as processingTimeMs by StaticScorer.
const NominalProcessingTime = 2500

// Result is the output of one scoring run.
type Result struct {
	Summary          models.AnalysisSummary
	ReadinessScore   models.ReadinessScore
	ProcessingTimeMs int
}

// Scorer rates a tender for the calling organization.
type Scorer interface {
	Name() string
	Score(ctx context.Context, tender *models.Tender) (*Result, error)
}

var (
	eligibilityCriteria = []string{
		"Valid business registration",
		"Relevant industry experience",
		"Financial capacity requirements",
		"BEE compliance",
	}
	keyRequirements = []string{
		"Technical specifications compliance",
		"Quality assurance program",
		"Project management capability",
		"Local content requirements",
	}
)

// StaticScorer returns a fixed readiness score of 78.
type StaticScorer struct{}

// NewStaticScorer creates the default scorer
func NewStaticScorer() *StaticScorer {
	return &StaticScorer{}
}

// Name implements Scorer.
func (s *StaticScorer) Name() string { return "static" }

// Score implements Scorer.
func (s *StaticScorer) Score(_ context.Context, tender *models.Tender) (*Result, error) {
	value, err := EstimatedValue(tender)
	if err != nil {
		return nil, err
	}

	return &Result{
		Summary: models.AnalysisSummary{
			Objective:           "To procure " + strings.ToLower(tender.Title),
			Scope:               Truncate(tender.Description, ScopeLimit),
			Deadline:            tender.Deadline,
			EligibilityCriteria: append([]string(nil), eligibilityCriteria...),
			KeyRequirements:     append([]string(nil), keyRequirements...),
			EstimatedValue:      value,
		},
		ReadinessScore: models.ReadinessScore{
			Score: 78,
			Breakdown: []models.ScoreBreakdown{
				{
					Criteria:   "Industry Experience",
					Matched:    true,
					Importance: models.ImportanceHigh,
					Details:    "Company has relevant experience in this sector",
				},
				{
					Criteria:   "Geographic Coverage",
					Matched:    true,
					Importance: models.ImportanceMedium,
					Details:    "Currently operating in " + tender.Province,
				},
				{
					Criteria:   "Financial Capacity",
					Matched:    false,
					Importance: models.ImportanceHigh,
					Details:    "May need additional financial backing",
				},
			},
			Recommendation: "Suitable with some improvements needed",
			Confidence:     0.85,
		},
		ProcessingTimeMs: NominalProcessingTime,
	}, nil
}

// EstimatedValue formats the budget range as "R5,000,000 - R15,000,000".
func EstimatedValue(tender *models.Tender) (string, error) {
	if !tender.HasBudget() {
		return "", ErrIncompleteBudget
	}
	return "R" + humanize.Commaf(*tender.BudgetMin) + " - R" + humanize.Commaf(*tender.BudgetMax), nil
}

// Truncate keeps the first limit characters of s, appending "..." when
// anything was cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
