// Package models - tender.go defines the Tender listing and its documents.
package models

import (
	"database/sql/driver"
	"time"
)

// Tender statuses.
const (
	TenderStatusOpen    = "open"
	TenderStatusClosed  = "closed"
	TenderStatusAwarded = "awarded"
)

// Tender sources.
const (
	SourceOCDS   = "ocds"
	SourceManual = "manual"
)

// DefaultCurrency is applied to tenders that do not state one.
const DefaultCurrency = "ZAR"

// Tender represents a published procurement opportunity
type Tender struct {
	ID             string
	Title          string
	Description    string
	Buyer          string
	Province       string
	BudgetMin      *float64
	BudgetMax      *float64
	Currency       string
	Deadline       time.Time
	PublishedDate  time.Time
	Status         string
	Categories     StringList
	Source         string
	OCDSID         *string
	OrganizationID *string

	// Documents is populated by the repository on demand; it is not a column.
	Documents []TenderDocument
}

// HasBudget reports whether both budget bounds are recorded.
func (t *Tender) HasBudget() bool {
	return t.BudgetMin != nil && t.BudgetMax != nil
}

// TenderDocument is a file attached to a tender. StoragePath and Checksum are
// set only for documents uploaded into the document store; harvested documents
// just carry the publisher URL.
type TenderDocument struct {
	ID          string
	TenderID    string
	Name        string
	URL         string
	Type        string
	Size        int64
	StoragePath *string
	Checksum    *string
}

// Stored reports whether the document content lives in our storage backend.
func (d *TenderDocument) Stored() bool {
	return d.StoragePath != nil && *d.StoragePath != ""
}

// StringList is an ordered list of strings stored as a JSONB array.
type StringList []string

// Value implements driver.Valuer. A nil list is stored as an empty array.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return jsonValue([]string(l))
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := jsonScan(src, &out); err != nil {
		return err
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}
