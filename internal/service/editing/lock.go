package editing

import (
	"context"
	"fmt"

	"casefile/internal/domain"
	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// lockService implements the LockService interface
type lockService struct {
	*Coordinator
}

// NewLockService creates a new lock service
func NewLockService(c *Coordinator) editingSvc.LockService {
	return &lockService{Coordinator: c}
}

// Acquire grants the document lock. Expiry is always computed from the
// coordinator clock; nothing the client reports extends it.
func (s *lockService) Acquire(ctx context.Context, req *editingSvc.AcquireLockRequest) (*models.Lock, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.HolderID, validation.Required),
		validation.Field(&req.SessionID, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	holderName := req.HolderName
	if holderName == "" {
		holderName = req.HolderID
	}

	var granted *models.Lock
	err := s.withDocument(ctx, req.DocumentID, func(txCtx context.Context, doc *models.Document) error {
		existing, err := s.currentLock(txCtx, doc.ID)
		if err != nil {
			return err
		}

		now := s.now()
		if existing.Active(now) {
			if existing.SessionID != req.SessionID || existing.HolderID != req.HolderID {
				return &domain.LockHeldByOtherError{
					DocumentID:        doc.ID,
					CurrentHolderID:   existing.HolderID,
					CurrentHolderName: existing.HolderName,
					ExpiresAt:         existing.ExpiresAt,
				}
			}
			// Re-acquire by the holder refreshes expiry
			existing.LastHeartbeatAt = now
			existing.ExpiresAt = now.Add(s.lockTTL)
			granted = existing
		} else {
			if existing != nil && existing.ReleasedAt == nil {
				s.logger.Info("lock expired, granting to new session",
					"document_id", doc.ID,
					"previous_session_id", existing.SessionID,
					"previous_holder_id", existing.HolderID,
					"release_reason", models.ReleaseTimeout,
				)
			}
			granted = &models.Lock{
				DocumentID:      doc.ID,
				HolderID:        req.HolderID,
				HolderName:      holderName,
				SessionID:       req.SessionID,
				AcquiredAt:      now,
				LastHeartbeatAt: now,
				ExpiresAt:       now.Add(s.lockTTL),
			}
		}

		if err := s.locks.Upsert(txCtx, granted); err != nil {
			return domain.NewPersistenceError("write lock", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("lock granted",
		"document_id", granted.DocumentID,
		"holder_id", granted.HolderID,
		"session_id", granted.SessionID,
		"expires_at", granted.ExpiresAt,
	)
	return granted, nil
}

// Heartbeat extends the lock by one TTL window from now
func (s *lockService) Heartbeat(ctx context.Context, documentID, holderID, sessionID string) (*models.Lock, error) {
	if documentID == "" || holderID == "" || sessionID == "" {
		return nil, fmt.Errorf("%w: document, holder and session are required", domain.ErrValidation)
	}

	var renewed *models.Lock
	err := s.withDocument(ctx, documentID, func(txCtx context.Context, doc *models.Document) error {
		lock, err := s.requireLock(txCtx, doc.ID, holderID, sessionID)
		if err != nil {
			return err
		}
		now := s.now()
		lock.LastHeartbeatAt = now
		lock.ExpiresAt = now.Add(s.lockTTL)
		if err := s.locks.Upsert(txCtx, lock); err != nil {
			return domain.NewPersistenceError("renew lock", err)
		}
		renewed = lock
		return nil
	})
	if err != nil {
		return nil, err
	}
	return renewed, nil
}

// Release clears the session's lock. A lock that lapsed while still held by
// this session is recorded with reason timeout.
func (s *lockService) Release(ctx context.Context, documentID, holderID, sessionID string, reason models.ReleaseReason) error {
	if err := validation.Validate(reason, validation.Required, validation.In(models.ReleaseReasons...)); err != nil {
		return fmt.Errorf("%w: release reason: %v", domain.ErrValidation, err)
	}
	if documentID == "" || holderID == "" || sessionID == "" {
		return fmt.Errorf("%w: document, holder and session are required", domain.ErrValidation)
	}

	return s.withDocument(ctx, documentID, func(txCtx context.Context, doc *models.Document) error {
		lock, err := s.currentLock(txCtx, doc.ID)
		if err != nil {
			return err
		}
		if lock == nil || lock.ReleasedAt != nil {
			return nil
		}

		now := s.now()
		if !lock.OwnedBy(holderID, sessionID) {
			notHeld := &domain.LockNotHeldError{DocumentID: doc.ID, SessionID: sessionID}
			if lock.Active(now) {
				notHeld.CurrentHolderName = lock.HolderName
			}
			return notHeld
		}

		if !lock.Active(now) {
			reason = models.ReleaseTimeout
		}
		lock.ReleasedAt = &now
		lock.ReleaseReason = &reason
		if err := s.locks.Upsert(txCtx, lock); err != nil {
			return domain.NewPersistenceError("release lock", err)
		}

		s.logger.Debug("lock released",
			"document_id", doc.ID,
			"holder_id", holderID,
			"session_id", sessionID,
			"reason", reason,
		)
		return nil
	})
}

// Status returns the active lock or nil
func (s *lockService) Status(ctx context.Context, documentID string) (*models.Lock, error) {
	if _, err := s.ensureDocument(ctx, documentID); err != nil {
		return nil, err
	}
	lock, err := s.currentLock(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !lock.Active(s.now()) {
		return nil, nil
	}
	return lock, nil
}
