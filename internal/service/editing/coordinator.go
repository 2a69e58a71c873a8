package editing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"casefile/internal/domain"
	models "casefile/internal/domain/models/editing"
	"casefile/internal/domain/repositories"
	editingRepo "casefile/internal/domain/repositories/editing"
	editingSvc "casefile/internal/domain/services/editing"

	"golang.org/x/sync/singleflight"
)

// Config holds the collaborators shared by the editing services
type Config struct {
	Documents editingRepo.DocumentRepository
	Locks     editingRepo.LockRepository
	Versions  editingRepo.VersionRepository
	Content   editingRepo.ContentStore
	TxManager repositories.TransactionManager
	Analyzer  editingSvc.ContentAnalyzer
	LockTTL   time.Duration
	Clock     func() time.Time // Coordinator clock; defaults to time.Now
	Logger    *slog.Logger
}

// Coordinator owns the per-document critical sections. Every editing service
// built from the same Coordinator serializes on the same keys, so lock checks
// and version appends for one document never interleave.
type Coordinator struct {
	documents editingRepo.DocumentRepository
	locks     editingRepo.LockRepository
	versions  editingRepo.VersionRepository
	content   editingRepo.ContentStore
	txManager repositories.TransactionManager
	analyzer  editingSvc.ContentAnalyzer
	lockTTL   time.Duration
	now       func() time.Time
	guard     *KeyedMutex
	refreshes singleflight.Group
	logger    *slog.Logger
}

// NewCoordinator creates the shared coordinator for the editing services
func NewCoordinator(cfg *Config) *Coordinator {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = NewContentAnalyzer()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		documents: cfg.Documents,
		locks:     cfg.Locks,
		versions:  cfg.Versions,
		content:   cfg.Content,
		txManager: cfg.TxManager,
		analyzer:  analyzer,
		lockTTL:   cfg.LockTTL,
		now:       now,
		guard:     NewKeyedMutex(),
		logger:    logger,
	}
}

// withDocument runs fn inside the document's critical section: the in-process
// keyed mutex plus a transaction holding the document row lock
func (c *Coordinator) withDocument(ctx context.Context, documentID string, fn func(txCtx context.Context, doc *models.Document) error) error {
	unlock := c.guard.Lock(documentID)
	defer unlock()

	return c.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		doc, err := c.documents.GetForUpdate(txCtx, documentID)
		if err != nil {
			return unknownDocument(documentID, err)
		}
		return fn(txCtx, doc)
	})
}

// ensureDocument checks a document exists outside any critical section
func (c *Coordinator) ensureDocument(ctx context.Context, documentID string) (*models.Document, error) {
	doc, err := c.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, unknownDocument(documentID, err)
	}
	return doc, nil
}

// unknownDocument turns a missing document into a validation failure; an
// operation naming a document that does not exist is a malformed request
func unknownDocument(documentID string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: unknown document %s", domain.ErrValidation, documentID)
	}
	return domain.NewPersistenceError("load document", err)
}

// currentLock returns the lock row, nil if the document was never locked
func (c *Coordinator) currentLock(ctx context.Context, documentID string) (*models.Lock, error) {
	lock, err := c.locks.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, domain.NewPersistenceError("load lock", err)
	}
	return lock, nil
}

// requireLock fails with LockNotHeld unless holderID holds the active lock
// through sessionID. A session whose lock was superseded is rejected rather
// than allowed to overwrite: reject-on-conflict.
func (c *Coordinator) requireLock(ctx context.Context, documentID, holderID, sessionID string) (*models.Lock, error) {
	lock, err := c.currentLock(ctx, documentID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	if lock.HeldBy(holderID, sessionID, now) {
		return lock, nil
	}
	notHeld := &domain.LockNotHeldError{DocumentID: documentID, SessionID: sessionID}
	if lock.Active(now) {
		notHeld.CurrentHolderName = lock.HolderName
	}
	return nil, notHeld
}

// readContent loads version content, enforcing the archive gate. A pending
// rehydration is re-checked with the backend first so polling readers see
// completion without a separate refresh call.
func (c *Coordinator) readContent(ctx context.Context, v *models.Version) (string, error) {
	if v.ContentGated() && v.RehydrationState == models.RehydrationPending {
		refreshed, err := c.refreshRehydration(ctx, v.DocumentID, v.VersionNumber)
		if err != nil {
			return "", err
		}
		v = refreshed
	}
	if v.ContentGated() {
		return "", &domain.ArchivedContentUnavailableError{
			DocumentID:         v.DocumentID,
			VersionNumber:      v.VersionNumber,
			RehydrationPending: v.RehydrationState == models.RehydrationPending,
		}
	}

	data, err := c.content.Get(ctx, v.ContentRef)
	if err != nil {
		if errors.Is(err, editingRepo.ErrContentArchived) {
			return "", c.restoredCopyExpired(ctx, v)
		}
		return "", domain.NewPersistenceError("read version content", err)
	}
	return string(data), nil
}

// restoredCopyExpired handles a version recorded as ready whose restored copy
// the backend has since dropped: the handshake starts over
func (c *Coordinator) restoredCopyExpired(ctx context.Context, v *models.Version) error {
	c.logger.Warn("restored copy no longer readable, resetting rehydration",
		"document_id", v.DocumentID,
		"version", v.VersionNumber,
	)
	err := c.withDocument(ctx, v.DocumentID, func(txCtx context.Context, _ *models.Document) error {
		current, err := c.versions.GetByNumber(txCtx, v.DocumentID, v.VersionNumber)
		if err != nil {
			return err
		}
		current.Archived = true
		current.Tier = models.TierArchive
		current.RehydrationState = models.RehydrationNone
		current.RehydrationRequestedAt = nil
		current.RehydratedAt = nil
		return c.versions.UpdateTierState(txCtx, current)
	})
	if err != nil {
		return domain.NewPersistenceError("reset rehydration", err)
	}
	return &domain.ArchivedContentUnavailableError{
		DocumentID:    v.DocumentID,
		VersionNumber: v.VersionNumber,
	}
}

// refreshRehydration polls the backend for a pending restore. Concurrent
// pollers of the same version share one backend call.
func (c *Coordinator) refreshRehydration(ctx context.Context, documentID string, number int) (*models.Version, error) {
	key := fmt.Sprintf("%s/%d", documentID, number)
	result, err, _ := c.refreshes.Do(key, func() (interface{}, error) {
		v, err := c.versions.GetByNumber(ctx, documentID, number)
		if err != nil {
			return nil, versionLookupError(err)
		}
		if v.RehydrationState != models.RehydrationPending {
			return v, nil
		}

		status, err := c.content.RestoreStatus(ctx, v.ContentRef)
		if err != nil {
			return nil, domain.NewPersistenceError("check restore status", err)
		}
		switch status {
		case editingRepo.RestoreDone:
			return c.markRehydrated(ctx, documentID, number)
		case editingRepo.RestoreNone:
			c.logger.Warn("backend has no restore for pending version",
				"document_id", documentID,
				"version", number,
			)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	v := *result.(*models.Version)
	return &v, nil
}

// markRehydrated records pending -> ready under the document's critical section
func (c *Coordinator) markRehydrated(ctx context.Context, documentID string, number int) (*models.Version, error) {
	var updated *models.Version
	err := c.withDocument(ctx, documentID, func(txCtx context.Context, _ *models.Document) error {
		v, err := c.versions.GetByNumber(txCtx, documentID, number)
		if err != nil {
			return versionLookupError(err)
		}
		if !v.Archived && v.Tier != models.TierArchive {
			return fmt.Errorf("version %d: %w", number, domain.ErrNotArchived)
		}
		if v.RehydrationState != models.RehydrationReady {
			now := c.now()
			v.RehydrationState = models.RehydrationReady
			v.RehydratedAt = &now
			if err := c.versions.UpdateTierState(txCtx, v); err != nil {
				return domain.NewPersistenceError("mark rehydrated", err)
			}
			c.logger.Info("version rehydrated",
				"document_id", documentID,
				"version", number,
			)
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// estimate derives the wait range of a pending restore from the backend window
func (c *Coordinator) estimate(requestedAt time.Time) models.WaitRange {
	lo, hi := c.content.RestoreWindow()
	return models.WaitRange{Earliest: requestedAt.Add(lo), Latest: requestedAt.Add(hi)}
}

func versionLookupError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %v", domain.ErrVersionNotFound, err)
	}
	return domain.NewPersistenceError("load version", err)
}

// contentKey is the blob key of a version's content
func contentKey(documentID, versionID string) string {
	return fmt.Sprintf("documents/%s/versions/%s", documentID, versionID)
}
