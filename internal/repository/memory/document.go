package memory

import (
	"context"
	"fmt"

	"casefile/internal/domain"
	models "casefile/internal/domain/models/editing"
)

type documentRepository struct {
	s *Store
}

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.documents[doc.ID]; exists {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("document %s already exists", doc.ID),
			ResourceType: "document",
			ResourceID:   doc.ID,
		}
	}
	r.s.documents[doc.ID] = copyDocument(doc)

	id := doc.ID
	onRollback(ctx, func() {
		r.s.mu.Lock()
		delete(r.s.documents, id)
		delete(r.s.versions, id)
		delete(r.s.locks, id)
		r.s.mu.Unlock()
	})
	return nil
}

func (r *documentRepository) GetByID(_ context.Context, id string) (*models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	doc, ok := r.s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return copyDocument(doc), nil
}

// GetForUpdate is GetByID; the coordinator's guard provides the row lock
func (r *documentRepository) GetForUpdate(ctx context.Context, id string) (*models.Document, error) {
	return r.GetByID(ctx, id)
}
