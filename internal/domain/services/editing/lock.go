package editing

import (
	"context"

	models "casefile/internal/domain/models/editing"
)

// LockService grants, renews and releases the exclusive edit lock
type LockService interface {
	// Acquire grants the lock if none is active, the active one expired, or
	// the session already holds it (refreshing expiry). Otherwise it fails
	// with *domain.LockHeldByOtherError.
	Acquire(ctx context.Context, req *AcquireLockRequest) (*models.Lock, error)

	// Heartbeat extends the expiry of a lock the holder's session still
	// holds, or fails with *domain.LockNotHeldError
	Heartbeat(ctx context.Context, documentID, holderID, sessionID string) (*models.Lock, error)

	// Release clears the lock held by the holder's session. Releasing an
	// already released lock is a no-op.
	Release(ctx context.Context, documentID, holderID, sessionID string, reason models.ReleaseReason) error

	// Status returns the active lock, or nil when the document is unlocked
	Status(ctx context.Context, documentID string) (*models.Lock, error)
}

// AcquireLockRequest identifies the requesting editor
type AcquireLockRequest struct {
	DocumentID string `json:"document_id"`
	HolderID   string `json:"-"` // Set by handler from auth context
	HolderName string `json:"-"` // Set by handler from auth context
	SessionID  string `json:"-"` // Set by handler from the session header
}
