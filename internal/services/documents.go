package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
	"github.com/tenderhub/tender-insight-hub/internal/storage"
	"github.com/tenderhub/tender-insight-hub/internal/telemetry"
)

// DocumentDownload is how a document should be delivered: either a URL to
// redirect to, or a body to stream. Callers close Body when set.
type DocumentDownload struct {
	Document *models.TenderDocument
	URL      string
	Body     io.ReadCloser
}

// DocumentService stores uploaded tender documents and resolves downloads
type DocumentService struct {
	tenders   TenderStore
	documents DocumentStore
	store     storage.Storage
	backend   string
	urlTTL    time.Duration
}

// NewDocumentService creates a new document service. backend names the
// storage backend for metrics.
func NewDocumentService(tenders TenderStore, documents DocumentStore, store storage.Storage, backend string, urlTTL time.Duration) *DocumentService {
	return &DocumentService{
		tenders:   tenders,
		documents: documents,
		store:     store,
		backend:   backend,
		urlTTL:    urlTTL,
	}
}

// DocumentType derives the short type label ("pdf", "docx") from a file name.
func DocumentType(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if ext == "" {
		return "file"
	}
	return ext
}

func cleanFileName(name string) (string, error) {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", &ValidationError{Field: "file", Message: "must have a file name"}
	}
	return name, nil
}

// Upload stores the content under the tender and records it as a document.
// The blob is removed again when the row cannot be written.
func (s *DocumentService) Upload(ctx context.Context, tenderID, fileName string, size int64, content io.Reader) (*models.TenderDocument, error) {
	tender, err := s.tenders.GetByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if tender == nil {
		return nil, ErrTenderNotFound
	}

	name, err := cleanFileName(fileName)
	if err != nil {
		return nil, err
	}

	docID := uuid.New().String()
	blobPath := fmt.Sprintf("tenders/%s/%s/%s", tender.ID, docID, name)

	res, err := s.store.Upload(ctx, blobPath, content, size)
	if err != nil {
		return nil, err
	}

	doc := &models.TenderDocument{
		ID:          docID,
		TenderID:    tender.ID,
		Name:        name,
		URL:         fmt.Sprintf("/api/tenders/%s/documents/%s/download", tender.ID, docID),
		Type:        DocumentType(name),
		Size:        res.Size,
		StoragePath: &res.Path,
		Checksum:    &res.Checksum,
	}
	if err := s.documents.Upsert(ctx, doc); err != nil {
		_ = s.store.Delete(ctx, res.Path)
		return nil, err
	}

	telemetry.DocumentUploadsTotal.WithLabelValues(s.backend).Inc()
	return doc, nil
}

// Download resolves how to deliver a document. Documents harvested from a
// publisher redirect to the publisher URL; stored documents redirect to a
// backend URL when the backend issues one and stream otherwise.
func (s *DocumentService) Download(ctx context.Context, tenderID, docID string) (*DocumentDownload, error) {
	doc, err := s.documents.GetByID(ctx, tenderID, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	if !doc.Stored() {
		return &DocumentDownload{Document: doc, URL: doc.URL}, nil
	}

	url, err := s.store.GetURL(ctx, *doc.StoragePath, s.urlTTL)
	switch {
	case err == nil:
		return &DocumentDownload{Document: doc, URL: url}, nil
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrDocumentNotFound
	case !errors.Is(err, storage.ErrNoDirectURL):
		return nil, err
	}

	body, err := s.store.Download(ctx, *doc.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return &DocumentDownload{Document: doc, Body: body}, nil
}
