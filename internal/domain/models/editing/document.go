package editing

import (
	"time"
)

// Document is the unit of exclusive editing. Content is the head working copy
// and always matches the highest-numbered version.
type Document struct {
	ID                   string    `json:"id" db:"id"`
	Name                 string    `json:"name" db:"name"`
	Content              string    `json:"content,omitempty" db:"content"`
	ContentHash          string    `json:"content_hash" db:"content_hash"`
	CurrentVersionNumber int       `json:"current_version_number" db:"current_version_number"`
	CreatedBy            string    `json:"created_by" db:"created_by"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
	ActiveLock           *Lock     `json:"active_lock,omitempty"` // Computed, not stored on the row
}
