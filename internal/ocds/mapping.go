package ocds

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
)

// ErrNotATender is returned for releases that cannot become a tender: no tender
// section, no title or no closing date.
var ErrNotATender = errors.New("release does not describe a biddable tender")

// documentNamespace derives stable document ids so re-ingesting a release
// updates its documents in place.
var documentNamespace = uuid.MustParse("6f1c1d0e-7a0b-4d8e-9a59-3b0c2f1e4a77")

// ToTender maps a release onto a Tender with its documents attached.
func ToTender(r Release) (*models.Tender, error) {
	t := r.Tender
	if t == nil || strings.TrimSpace(t.Title) == "" || r.OCID == "" {
		return nil, ErrNotATender
	}
	if t.TenderPeriod == nil {
		return nil, fmt.Errorf("%w: %s has no tender period", ErrNotATender, r.OCID)
	}
	deadline, ok := parseTime(t.TenderPeriod.EndDate)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no valid closing date", ErrNotATender, r.OCID)
	}

	published, ok := parseTime(r.Date)
	if !ok && t.TenderPeriod.StartDate != "" {
		published, _ = parseTime(t.TenderPeriod.StartDate)
	}

	ocid := r.OCID
	tender := &models.Tender{
		Title:         strings.TrimSpace(t.Title),
		Description:   strings.TrimSpace(t.Description),
		Buyer:         buyerName(r),
		Province:      province(t),
		Currency:      models.DefaultCurrency,
		Deadline:      deadline,
		PublishedDate: published,
		Status:        tenderStatus(t.Status),
		Categories:    categories(t),
		Source:        models.SourceOCDS,
		OCDSID:        &ocid,
	}

	if t.Value != nil && t.Value.Amount != nil {
		hi := *t.Value.Amount
		tender.BudgetMax = &hi
		if t.Value.Currency != "" {
			tender.Currency = strings.ToUpper(t.Value.Currency)
		}
	}
	if t.MinValue != nil && t.MinValue.Amount != nil {
		lo := *t.MinValue.Amount
		tender.BudgetMin = &lo
	} else if tender.BudgetMax != nil {
		lo := *tender.BudgetMax
		tender.BudgetMin = &lo
	}

	tender.Documents = make([]models.TenderDocument, 0, len(t.Documents))
	for _, d := range t.Documents {
		if d.URL == "" {
			continue
		}
		tender.Documents = append(tender.Documents, models.TenderDocument{
			ID:   uuid.NewSHA1(documentNamespace, []byte(ocid+"/"+d.ID+"/"+d.URL)).String(),
			Name: documentName(d),
			URL:  d.URL,
			Type: documentType(d),
		})
	}

	return tender, nil
}

func buyerName(r Release) string {
	if p := r.Tender.ProcuringEntity; p != nil && p.Name != "" {
		return strings.TrimSpace(p.Name)
	}
	if r.Buyer != nil {
		return strings.TrimSpace(r.Buyer.Name)
	}
	return ""
}

func province(t *ReleaseTender) string {
	if t.DeliveryAddress != nil && t.DeliveryAddress.Region != "" {
		return strings.TrimSpace(t.DeliveryAddress.Region)
	}
	return strings.TrimSpace(t.Province)
}

// tenderStatus folds the OCDS tender status codelist onto open, closed and awarded.
func tenderStatus(s string) string {
	switch strings.ToLower(s) {
	case "", "planning", "planned", "active":
		return models.TenderStatusOpen
	case "complete":
		return models.TenderStatusAwarded
	default:
		return models.TenderStatusClosed
	}
}

func categories(t *ReleaseTender) models.StringList {
	out := models.StringList{}
	seen := map[string]bool{}
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" || seen[strings.ToLower(c)] {
			return
		}
		seen[strings.ToLower(c)] = true
		out = append(out, c)
	}
	add(t.Category)
	add(t.MainProcurementCategory)
	for _, c := range t.AdditionalProcurementCategories {
		add(c)
	}
	return out
}

func documentName(d Document) string {
	if d.Title != "" {
		return strings.TrimSpace(d.Title)
	}
	return path.Base(urlPath(d.URL))
}

func urlPath(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		return u.Path
	}
	return raw
}

var formatTypes = map[string]string{
	"application/pdf":    "pdf",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/vnd.ms-excel": "xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "xlsx",
	"application/zip":              "zip",
	"application/x-zip-compressed": "zip",
}

// documentType prefers the MIME format and falls back to the URL extension.
func documentType(d Document) string {
	format, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(d.Format)), ";")
	if t, ok := formatTypes[strings.TrimSpace(format)]; ok {
		return t
	}
	if ext := strings.TrimPrefix(strings.ToLower(path.Ext(urlPath(d.URL))), "."); ext != "" {
		return ext
	}
	return "file"
}
