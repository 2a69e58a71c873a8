package editing

import (
	"context"

	models "casefile/internal/domain/models/editing"
)

// LockRepository persists the single lock row of each document
type LockRepository interface {
	// Get returns the lock row for a document, or ErrNotFound if the document
	// was never locked. The row may be released or expired.
	Get(ctx context.Context, documentID string) (*models.Lock, error)

	// Upsert writes the lock row, replacing any previous holder
	Upsert(ctx context.Context, lock *models.Lock) error
}
