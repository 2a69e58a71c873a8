package editing

import (
	"context"
	"errors"
	"fmt"

	"casefile/internal/domain"
	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// tierService implements the TierService interface
type tierService struct {
	*Coordinator
}

// NewTierService creates a new tier service
func NewTierService(c *Coordinator) editingSvc.TierService {
	return &tierService{Coordinator: c}
}

// Availability folds tier and rehydration state into the tagged union
func (s *tierService) Availability(ctx context.Context, documentID string, versionNumber int) (models.ContentAvailability, error) {
	v, err := s.lookup(ctx, documentID, versionNumber)
	if err != nil {
		return models.ContentAvailability{}, err
	}

	if v.ContentGated() && v.RehydrationState == models.RehydrationPending {
		if v, err = s.refreshRehydration(ctx, documentID, versionNumber); err != nil {
			return models.ContentAvailability{}, err
		}
	}
	if v.ContentGated() {
		if v.RehydrationState == models.RehydrationPending && v.RehydrationRequestedAt != nil {
			return models.PendingContent(s.estimate(*v.RehydrationRequestedAt)), nil
		}
		return models.NotRequestedContent(), nil
	}

	content, err := s.readContent(ctx, v)
	if err != nil {
		return availabilityFromError(err)
	}
	return models.AvailableContent(content), nil
}

// RequestRehydration moves an archived version from none to pending and asks
// the backend to restore it
func (s *tierService) RequestRehydration(ctx context.Context, documentID string, versionNumber int) (*editingSvc.RehydrationResult, error) {
	if versionNumber < 1 {
		return nil, fmt.Errorf("%w: version numbers start at 1", domain.ErrValidation)
	}

	var result *editingSvc.RehydrationResult
	err := s.withDocument(ctx, documentID, func(txCtx context.Context, doc *models.Document) error {
		v, err := s.versions.GetByNumber(txCtx, doc.ID, versionNumber)
		if err != nil {
			return versionLookupError(err)
		}
		if !v.Archived && v.Tier != models.TierArchive {
			return fmt.Errorf("version %d: %w", versionNumber, domain.ErrNotArchived)
		}

		switch v.RehydrationState {
		case models.RehydrationReady:
			result = &editingSvc.RehydrationResult{Accepted: true, Ready: true, State: v.RehydrationState}
			return nil
		case models.RehydrationPending:
			result = &editingSvc.RehydrationResult{Accepted: true, AlreadyPending: true, State: v.RehydrationState}
			if v.RehydrationRequestedAt != nil {
				eta := s.estimate(*v.RehydrationRequestedAt)
				result.EstimatedWaitRange = &eta
			}
			return nil
		}

		if err := s.content.RequestRestore(txCtx, v.ContentRef); err != nil {
			return domain.NewPersistenceError("request restore", err)
		}

		now := s.now()
		v.RehydrationState = models.RehydrationPending
		v.RehydrationRequestedAt = &now
		v.RehydratedAt = nil
		if err := s.versions.UpdateTierState(txCtx, v); err != nil {
			return domain.NewPersistenceError("record rehydration request", err)
		}

		eta := s.estimate(now)
		result = &editingSvc.RehydrationResult{
			Accepted:           true,
			EstimatedWaitRange: &eta,
			State:              v.RehydrationState,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("rehydration requested",
		"document_id", documentID,
		"version", versionNumber,
		"already_pending", result.AlreadyPending,
		"ready", result.Ready,
	)
	return result, nil
}

// RefreshRehydration polls the backend for a pending restore
func (s *tierService) RefreshRehydration(ctx context.Context, documentID string, versionNumber int) (*models.Version, error) {
	if _, err := s.ensureDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.refreshRehydration(ctx, documentID, versionNumber)
}

// CompleteRehydration records a backend completion notification
func (s *tierService) CompleteRehydration(ctx context.Context, documentID string, versionNumber int) (*models.Version, error) {
	if _, err := s.ensureDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.markRehydrated(ctx, documentID, versionNumber)
}

// SetTier records a demotion or promotion made outside this service. Any
// earlier rehydration no longer applies to the new placement.
func (s *tierService) SetTier(ctx context.Context, documentID string, versionNumber int, tier models.Tier) (*models.Version, error) {
	if err := validation.Validate(tier, validation.Required, validation.In(models.Tiers...)); err != nil {
		return nil, fmt.Errorf("%w: tier: %v", domain.ErrValidation, err)
	}

	var updated *models.Version
	err := s.withDocument(ctx, documentID, func(txCtx context.Context, doc *models.Document) error {
		v, err := s.versions.GetByNumber(txCtx, doc.ID, versionNumber)
		if err != nil {
			return versionLookupError(err)
		}
		v.Tier = tier
		v.Archived = tier == models.TierArchive
		v.RehydrationState = models.RehydrationNone
		v.RehydrationRequestedAt = nil
		v.RehydratedAt = nil
		if err := s.versions.UpdateTierState(txCtx, v); err != nil {
			return domain.NewPersistenceError("update tier", err)
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("version tier changed",
		"document_id", documentID,
		"version", versionNumber,
		"tier", tier,
	)
	return updated, nil
}

func (s *tierService) lookup(ctx context.Context, documentID string, versionNumber int) (*models.Version, error) {
	if _, err := s.ensureDocument(ctx, documentID); err != nil {
		return nil, err
	}
	v, err := s.versions.GetByNumber(ctx, documentID, versionNumber)
	if err != nil {
		return nil, versionLookupError(err)
	}
	return v, nil
}

// availabilityFromError maps a gated read that raced with a tier change
func availabilityFromError(err error) (models.ContentAvailability, error) {
	var archived *domain.ArchivedContentUnavailableError
	if !errors.As(err, &archived) {
		return models.ContentAvailability{}, err
	}
	if archived.RehydrationPending {
		return models.PendingContent(models.WaitRange{}), nil
	}
	return models.NotRequestedContent(), nil
}
