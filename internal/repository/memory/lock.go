package memory

import (
	"context"
	"fmt"

	"casefile/internal/domain"
	models "casefile/internal/domain/models/editing"
)

type lockRepository struct {
	s *Store
}

func (r *lockRepository) Get(_ context.Context, documentID string) (*models.Lock, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	lock, ok := r.s.locks[documentID]
	if !ok {
		return nil, fmt.Errorf("lock for document %s: %w", documentID, domain.ErrNotFound)
	}
	return copyLock(lock), nil
}

func (r *lockRepository) Upsert(ctx context.Context, lock *models.Lock) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.documents[lock.DocumentID]; !ok {
		return fmt.Errorf("document %s: %w", lock.DocumentID, domain.ErrNotFound)
	}
	previous, had := r.s.locks[lock.DocumentID]
	r.s.locks[lock.DocumentID] = copyLock(lock)

	onRollback(ctx, func() {
		r.s.mu.Lock()
		if had {
			r.s.locks[lock.DocumentID] = previous
		} else {
			delete(r.s.locks, lock.DocumentID)
		}
		r.s.mu.Unlock()
	})
	return nil
}
