package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
)

const documentColumns = `id, tender_id, name, url, type, size, storage_path, checksum`

// DocumentRepository handles database operations for tender documents
type DocumentRepository struct {
	db *sql.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func scanDocument(row interface{ Scan(...interface{}) error }) (*models.TenderDocument, error) {
	d := &models.TenderDocument{}
	err := row.Scan(
		&d.ID,
		&d.TenderID,
		&d.Name,
		&d.URL,
		&d.Type,
		&d.Size,
		&d.StoragePath,
		&d.Checksum,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListByTenderIDs loads the documents of many tenders in one query, keyed by
// tender id. Tenders without documents are absent from the map.
func (r *DocumentRepository) ListByTenderIDs(ctx context.Context, tenderIDs []string) (map[string][]models.TenderDocument, error) {
	out := make(map[string][]models.TenderDocument, len(tenderIDs))
	if len(tenderIDs) == 0 {
		return out, nil
	}

	query := `SELECT ` + documentColumns + ` FROM tender_documents WHERE tender_id = ANY($1) ORDER BY tender_id, name, id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(tenderIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out[d.TenderID] = append(out[d.TenderID], *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return out, nil
}

// AttachTo fills Documents on every tender with a single batched query.
func (r *DocumentRepository) AttachTo(ctx context.Context, tenders ...*models.Tender) error {
	ids := make([]string, 0, len(tenders))
	for _, t := range tenders {
		ids = append(ids, t.ID)
	}
	docs, err := r.ListByTenderIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, t := range tenders {
		t.Documents = docs[t.ID]
		if t.Documents == nil {
			t.Documents = []models.TenderDocument{}
		}
	}
	return nil
}

// GetByID retrieves one document of a tender. It returns nil, nil when absent.
func (r *DocumentRepository) GetByID(ctx context.Context, tenderID, docID string) (*models.TenderDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM tender_documents WHERE tender_id = $1 AND id = $2`

	d, err := scanDocument(r.db.QueryRowContext(ctx, query, tenderID, docID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return d, nil
}

// Upsert inserts a document or replaces the stored one with the same id.
func (r *DocumentRepository) Upsert(ctx context.Context, d *models.TenderDocument) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}

	query := `
		INSERT INTO tender_documents (id, tender_id, name, url, type, size, storage_path, checksum)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			type = EXCLUDED.type,
			size = EXCLUDED.size,
			storage_path = COALESCE(EXCLUDED.storage_path, tender_documents.storage_path),
			checksum = COALESCE(EXCLUDED.checksum, tender_documents.checksum)
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.TenderID,
		d.Name,
		d.URL,
		d.Type,
		d.Size,
		d.StoragePath,
		d.Checksum,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}
