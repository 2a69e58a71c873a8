package editing

import (
	"context"
	"errors"
	"time"
)

// ErrContentArchived is returned by ContentStore.Get when the object sits in
// archive storage and has no readable restored copy
var ErrContentArchived = errors.New("content is in archive storage")

// RestoreStatus is the backend's view of a restore request
type RestoreStatus string

const (
	RestoreNone    RestoreStatus = "none"
	RestoreOngoing RestoreStatus = "ongoing"
	RestoreDone    RestoreStatus = "done"
)

// ContentStore is the tiered blob backend holding version content
type ContentStore interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)

	// RequestRestore starts an asynchronous restore of archived content.
	// Requesting while a restore is ongoing is not an error.
	RequestRestore(ctx context.Context, key string) error

	// RestoreStatus reports progress of the restore for key
	RestoreStatus(ctx context.Context, key string) (RestoreStatus, error)

	// RestoreWindow is the backend's typical restore latency range
	RestoreWindow() (min, max time.Duration)
}
