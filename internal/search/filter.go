// Package search turns tender search requests into SQL predicates.
//
// Every supplied filter narrows the result set; absent filters leave it open.
// Budget filters test for overlap between the requested range and the tender's
// own budget range, so a tender with no recorded bounds never matches one.
package search

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
)

// Filter is a parsed tender search request.
type Filter struct {
	Keywords  string
	Provinces []string
	// Categories is accepted from clients but not matched against tenders.
	Categories   []string
	BudgetMin    *float64
	BudgetMax    *float64
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time
}

// FilterError reports a query parameter that could not be parsed.
type FilterError struct {
	Param string
	Value string
	Err   error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Param, e.Value, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// Active reports whether at least one predicate will be applied.
func (f Filter) Active() bool {
	return f.Keywords != "" ||
		len(f.Provinces) > 0 ||
		f.BudgetMin != nil ||
		f.BudgetMax != nil ||
		f.DeadlineFrom != nil ||
		f.DeadlineTo != nil
}

// ParseFilter reads a filter from query parameters. Parameter names are the
// snake_case forms; camelCase aliases (budgetMin, deadlineFrom, ...) are
// accepted too.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Keywords:   strings.ToLower(strings.TrimSpace(q.Get("keywords"))),
		Provinces:  splitList(q.Get("provinces")),
		Categories: splitList(q.Get("categories")),
	}

	var err error
	if f.BudgetMin, err = parseBudget(q, "budget_min", "budgetMin"); err != nil {
		return Filter{}, err
	}
	if f.BudgetMax, err = parseBudget(q, "budget_max", "budgetMax"); err != nil {
		return Filter{}, err
	}
	if f.DeadlineFrom, err = parseDeadline(q, "deadline_from", "deadlineFrom"); err != nil {
		return Filter{}, err
	}
	if f.DeadlineTo, err = parseDeadline(q, "deadline_to", "deadlineTo"); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Apply adds the filter's predicates to sb. Predicates are AND-ed.
func Apply(sb *sqlbuilder.SelectBuilder, f Filter) {
	if f.Keywords != "" {
		pattern := "%" + f.Keywords + "%"
		sb.Where(sb.Or(
			sb.Like("LOWER(title)", pattern),
			sb.Like("LOWER(description)", pattern),
		))
	}
	if len(f.Provinces) > 0 {
		sb.Where(sb.In("province", sqlbuilder.Flatten(f.Provinces)...))
	}
	if f.BudgetMin != nil {
		sb.Where(sb.GreaterEqualThan("budget_max", *f.BudgetMin))
	}
	if f.BudgetMax != nil {
		sb.Where(sb.LessEqualThan("budget_min", *f.BudgetMax))
	}
	if f.DeadlineFrom != nil {
		sb.Where(sb.GreaterEqualThan("deadline", *f.DeadlineFrom))
	}
	if f.DeadlineTo != nil {
		sb.Where(sb.LessEqualThan("deadline", *f.DeadlineTo))
	}
}

// Build renders the full search query over the tenders table, newest
// publications first with id as the tie-breaker.
func Build(f Filter, columns ...string) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...).From("tenders")
	Apply(sb, f)
	sb.OrderBy("published_date DESC", "id ASC")
	return sb.Build()
}

func lookup(q url.Values, names ...string) (string, string) {
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return name, v
		}
	}
	return "", ""
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBudget(q url.Values, names ...string) (*float64, error) {
	name, raw := lookup(q, names...)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
		err = fmt.Errorf("not a finite number")
	}
	if err != nil {
		return nil, &FilterError{Param: name, Value: raw, Err: err}
	}
	// Zero means no bound.
	if v == 0 {
		return nil, nil
	}
	return &v, nil
}

func parseDeadline(q url.Values, names ...string) (*time.Time, error) {
	name, raw := lookup(q, names...)
	if raw == "" {
		return nil, nil
	}
	t, err := ParseTime(raw)
	if err != nil {
		return nil, &FilterError{Param: name, Value: raw, Err: err}
	}
	return &t, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 timestamp. Offsets (including "Z") are
// honoured; naive timestamps and plain dates are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	// A "+" in an unencoded query string arrives as a space.
	if strings.Contains(s, "T") {
		s = strings.Replace(s, " ", "+", 1)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO-8601 timestamp")
}
