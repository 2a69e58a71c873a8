package editing

import (
	"context"

	models "casefile/internal/domain/models/editing"
)

// TierService exposes and enforces the consequences of storage tiers.
// It never decides demotion; SetTier is the hook for the external scheduler.
type TierService interface {
	// Availability reports whether a version's content can be read now
	Availability(ctx context.Context, documentID string, versionNumber int) (models.ContentAvailability, error)

	// RequestRehydration starts restoring an archived version. Repeated
	// requests while pending are accepted idempotently.
	RequestRehydration(ctx context.Context, documentID string, versionNumber int) (*RehydrationResult, error)

	// RefreshRehydration asks the storage backend whether a pending restore
	// finished and records pending -> ready when it has
	RefreshRehydration(ctx context.Context, documentID string, versionNumber int) (*models.Version, error)

	// CompleteRehydration records pending -> ready on a backend notification
	CompleteRehydration(ctx context.Context, documentID string, versionNumber int) (*models.Version, error)

	// SetTier records a tier change made by the demotion scheduler
	SetTier(ctx context.Context, documentID string, versionNumber int, tier models.Tier) (*models.Version, error)
}

// RehydrationResult answers a rehydration request
type RehydrationResult struct {
	Accepted           bool                    `json:"accepted"`
	AlreadyPending     bool                    `json:"already_pending,omitempty"`
	Ready              bool                    `json:"ready,omitempty"`
	EstimatedWaitRange *models.WaitRange       `json:"estimated_wait_range,omitempty"`
	State              models.RehydrationState `json:"rehydration_state"`
}
