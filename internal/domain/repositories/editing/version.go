package editing

import (
	"context"

	models "casefile/internal/domain/models/editing"
)

// VersionRepository is the append-only version log
type VersionRepository interface {
	// Append inserts v and advances head to it as one atomic step.
	// v.VersionNumber must be head's previous CurrentVersionNumber + 1;
	// head carries the new name, content and hash. A stale head fails with
	// ErrConflict and nothing is written.
	Append(ctx context.Context, v *models.Version, head *models.Document) error

	// GetByID retrieves a version of a document by its ID
	GetByID(ctx context.Context, documentID, id string) (*models.Version, error)

	// GetByNumber retrieves a version of a document by its number
	GetByNumber(ctx context.Context, documentID string, number int) (*models.Version, error)

	// List returns version metadata newest first. beforeNumber > 0 restricts
	// to lower numbers (cursor); limit <= 0 means no limit.
	List(ctx context.Context, documentID string, beforeNumber, limit int) ([]models.Version, error)

	// UpdateTierState writes the tier, archived and rehydration columns of v.
	// All other columns are immutable.
	UpdateTierState(ctx context.Context, v *models.Version) error
}
