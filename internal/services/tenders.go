package services

import (
	"context"
	"strconv"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
	"github.com/tenderhub/tender-insight-hub/internal/search"
	"github.com/tenderhub/tender-insight-hub/internal/telemetry"
)

// TenderService answers tender searches and lookups with documents attached
type TenderService struct {
	tenders   TenderStore
	documents DocumentStore
}

// NewTenderService creates a new tender service
func NewTenderService(tenders TenderStore, documents DocumentStore) *TenderService {
	return &TenderService{tenders: tenders, documents: documents}
}

// Search returns every tender matching f, each with its documents.
func (s *TenderService) Search(ctx context.Context, f search.Filter) ([]*models.Tender, error) {
	telemetry.TenderSearchesTotal.WithLabelValues(strconv.FormatBool(f.Active())).Inc()

	tenders, err := s.tenders.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(tenders) == 0 {
		return tenders, nil
	}
	if err := s.documents.AttachTo(ctx, tenders...); err != nil {
		return nil, err
	}
	return tenders, nil
}

// Get returns one tender with its documents, or ErrTenderNotFound.
func (s *TenderService) Get(ctx context.Context, id string) (*models.Tender, error) {
	tender, err := s.tenders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tender == nil {
		return nil, ErrTenderNotFound
	}
	if err := s.documents.AttachTo(ctx, tender); err != nil {
		return nil, err
	}
	return tender, nil
}
