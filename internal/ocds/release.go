package ocds

import (
	"time"
)

// ReleasePackage is one page of the OCDSReleases endpoint.
type ReleasePackage struct {
	URI           string    `json:"uri"`
	PublishedDate string    `json:"publishedDate"`
	Releases      []Release `json:"releases"`
}

// Release is a single OCDS release. Only the fields mapped onto tenders are
// decoded.
type Release struct {
	OCID  string        `json:"ocid"`
	ID    string        `json:"id"`
	Date  string        `json:"date"`
	Tag   []string      `json:"tag"`
	Buyer *Organization `json:"buyer"`

	// Tender is nil for releases that carry no tender stage.
	Tender *ReleaseTender `json:"tender"`
}

// Organization references a party by name.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReleaseTender is the tender section of a release.
type ReleaseTender struct {
	ID                              string        `json:"id"`
	Title                           string        `json:"title"`
	Description                     string        `json:"description"`
	Status                          string        `json:"status"`
	ProcuringEntity                 *Organization `json:"procuringEntity"`
	Value                           *Value        `json:"value"`
	MinValue                        *Value        `json:"minValue"`
	TenderPeriod                    *Period       `json:"tenderPeriod"`
	MainProcurementCategory         string        `json:"mainProcurementCategory"`
	AdditionalProcurementCategories []string      `json:"additionalProcurementCategories"`
	DeliveryAddress                 *Address      `json:"deliveryAddress"`
	Documents                       []Document    `json:"documents"`

	// Category and Province are eTenders extensions.
	Category string `json:"category"`
	Province string `json:"province"`
}

// Value is an amount in a currency.
type Value struct {
	Amount   *float64 `json:"amount"`
	Currency string   `json:"currency"`
}

// Period is a date range.
type Period struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Address is a postal address.
type Address struct {
	Locality string `json:"locality"`
	Region   string `json:"region"`
}

// Document is a published tender document.
type Document struct {
	ID            string `json:"id"`
	DocumentType  string `json:"documentType"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	Format        string `json:"format"`
	DatePublished string `json:"datePublished"`
}

// parseTime accepts the timestamp shapes portals publish: RFC 3339 with or
// without fractional seconds, naive datetimes (taken as UTC) and plain dates.
func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
