package editing

import (
	"context"

	models "casefile/internal/domain/models/editing"
)

// DocumentRepository defines data access operations for documents
type DocumentRepository interface {
	// Create inserts a document with CurrentVersionNumber 0; the caller appends
	// version 1 in the same transaction
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document including its head content
	GetByID(ctx context.Context, id string) (*models.Document, error)

	// GetForUpdate retrieves a document and, inside a transaction, holds its
	// row lock until commit. This is the per-document critical section.
	GetForUpdate(ctx context.Context, id string) (*models.Document, error)
}
