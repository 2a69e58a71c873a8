package memory

import (
	"context"
	"fmt"

	"casefile/internal/domain"
	models "casefile/internal/domain/models/editing"
)

type versionRepository struct {
	s *Store
}

func (r *versionRepository) Append(ctx context.Context, v *models.Version, head *models.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.documents[head.ID]
	if !ok {
		return fmt.Errorf("document %s: %w", head.ID, domain.ErrNotFound)
	}
	if current.CurrentVersionNumber != v.VersionNumber-1 || len(r.s.versions[head.ID]) != v.VersionNumber-1 {
		return fmt.Errorf("document %s is no longer at version %d: %w", head.ID, v.VersionNumber-1, domain.ErrConflict)
	}

	previous := current
	r.s.documents[head.ID] = copyDocument(head)
	r.s.versions[head.ID] = append(r.s.versions[head.ID], copyVersion(v))

	onRollback(ctx, func() {
		r.s.mu.Lock()
		r.s.documents[head.ID] = previous
		if log := r.s.versions[head.ID]; len(log) > 0 {
			r.s.versions[head.ID] = log[:len(log)-1]
		}
		r.s.mu.Unlock()
	})
	return nil
}

func (r *versionRepository) GetByID(_ context.Context, documentID, id string) (*models.Version, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, v := range r.s.versions[documentID] {
		if v.ID == id {
			return copyVersion(v), nil
		}
	}
	return nil, fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
}

func (r *versionRepository) GetByNumber(_ context.Context, documentID string, number int) (*models.Version, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	log := r.s.versions[documentID]
	if number < 1 || number > len(log) {
		return nil, fmt.Errorf("version %d: %w", number, domain.ErrNotFound)
	}
	return copyVersion(log[number-1]), nil
}

func (r *versionRepository) List(_ context.Context, documentID string, beforeNumber, limit int) ([]models.Version, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	log := r.s.versions[documentID]
	end := len(log)
	if beforeNumber > 0 && beforeNumber-1 < end {
		end = beforeNumber - 1
	}

	versions := make([]models.Version, 0, end)
	for i := end - 1; i >= 0; i-- {
		if limit > 0 && len(versions) == limit {
			break
		}
		versions = append(versions, *copyVersion(log[i]))
	}
	return versions, nil
}

func (r *versionRepository) UpdateTierState(ctx context.Context, v *models.Version) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	log := r.s.versions[v.DocumentID]
	for i, stored := range log {
		if stored.ID != v.ID {
			continue
		}
		previous := copyVersion(stored)
		updated := copyVersion(stored)
		updated.Tier = v.Tier
		updated.Archived = v.Archived
		updated.RehydrationState = v.RehydrationState
		updated.RehydrationRequestedAt = copyVersion(v).RehydrationRequestedAt
		updated.RehydratedAt = copyVersion(v).RehydratedAt
		log[i] = updated

		onRollback(ctx, func() {
			r.s.mu.Lock()
			r.s.versions[v.DocumentID][i] = previous
			r.s.mu.Unlock()
		})
		return nil
	}
	return fmt.Errorf("version %s: %w", v.ID, domain.ErrNotFound)
}
