package editing

import "time"

// ChangeType describes what produced a version
type ChangeType string

const (
	ChangeCreate   ChangeType = "create"
	ChangeEdit     ChangeType = "edit"
	ChangeRestore  ChangeType = "restore"
	ChangeMerge    ChangeType = "merge"
	ChangeAutoSave ChangeType = "auto_save"
	ChangeSync     ChangeType = "sync"
	ChangeRename   ChangeType = "rename"
)

// SaveChangeTypes are the change types a caller may pass to CreateVersion.
// create, restore and rename are produced by their dedicated operations.
var SaveChangeTypes = []interface{}{ChangeEdit, ChangeMerge, ChangeAutoSave, ChangeSync}

// Tier is the storage class of a version's content
type Tier string

const (
	TierHot     Tier = "hot"
	TierCool    Tier = "cool"
	TierArchive Tier = "archive"
)

// Tiers lists every storage tier
var Tiers = []interface{}{TierHot, TierCool, TierArchive}

// RehydrationState tracks the restore handshake for archived content
type RehydrationState string

const (
	RehydrationNone    RehydrationState = "none"
	RehydrationPending RehydrationState = "pending"
	RehydrationReady   RehydrationState = "ready"
)

// Version is an immutable, sequentially numbered snapshot of a document.
// Only the tier and rehydration columns change after creation, and those are
// driven from outside the version log.
type Version struct {
	ID                     string           `json:"id" db:"id"`
	DocumentID             string           `json:"document_id" db:"document_id"`
	VersionNumber          int              `json:"version_number" db:"version_number"`
	Label                  *string          `json:"label,omitempty" db:"label"`
	ChangeSummary          *string          `json:"change_summary,omitempty" db:"change_summary"`
	ChangeType             ChangeType       `json:"change_type" db:"change_type"`
	ContentRef             string           `json:"content_ref" db:"content_ref"`
	ContentHash            string           `json:"content_hash" db:"content_hash"`
	WordCount              int              `json:"word_count" db:"word_count"`
	CharacterCount         int              `json:"character_count" db:"character_count"`
	WordsAdded             int              `json:"words_added" db:"words_added"`
	WordsRemoved           int              `json:"words_removed" db:"words_removed"`
	SizeBytes              int64            `json:"size_bytes" db:"size_bytes"`
	CreatedBy              string           `json:"created_by" db:"created_by"`
	CreatedAt              time.Time        `json:"created_at" db:"created_at"`
	Tier                   Tier             `json:"tier" db:"tier"`
	Archived               bool             `json:"archived" db:"archived"`
	RehydrationState       RehydrationState `json:"rehydration_state" db:"rehydration_state"`
	RehydrationRequestedAt *time.Time       `json:"rehydration_requested_at,omitempty" db:"rehydration_requested_at"`
	RehydratedAt           *time.Time       `json:"rehydrated_at,omitempty" db:"rehydrated_at"`
}

// ContentGated reports whether reading the content must wait for rehydration
func (v *Version) ContentGated() bool {
	return (v.Archived || v.Tier == TierArchive) && v.RehydrationState != RehydrationReady
}

// Stats is the per-version summary rendered next to a diff
type Stats struct {
	VersionNumber  int        `json:"version_number"`
	ChangeType     ChangeType `json:"change_type"`
	WordCount      int        `json:"word_count"`
	CharacterCount int        `json:"character_count"`
	WordsAdded     int        `json:"words_added"`
	WordsRemoved   int        `json:"words_removed"`
	SizeBytes      int64      `json:"size_bytes"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

// StatsOf extracts the rendering stats of a version
func StatsOf(v *Version) Stats {
	return Stats{
		VersionNumber:  v.VersionNumber,
		ChangeType:     v.ChangeType,
		WordCount:      v.WordCount,
		CharacterCount: v.CharacterCount,
		WordsAdded:     v.WordsAdded,
		WordsRemoved:   v.WordsRemoved,
		SizeBytes:      v.SizeBytes,
		CreatedBy:      v.CreatedBy,
		CreatedAt:      v.CreatedAt,
	}
}
