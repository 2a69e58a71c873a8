package editing

import (
	"context"

	models "casefile/internal/domain/models/editing"
)

// VersionService is the append-only version log with lock-gated writes
type VersionService interface {
	// CreateDocument creates a document together with version 1 (change type
	// create). No lock is needed: nobody else can know the document yet.
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*models.Document, *models.Version, error)

	// GetDocument retrieves a document with its active lock, if any
	GetDocument(ctx context.Context, documentID string) (*models.Document, error)

	// CreateVersion appends a version if the session holds the lock.
	// Content identical to the head after normalization is skipped without
	// allocating a version number.
	CreateVersion(ctx context.Context, req *CreateVersionRequest) (*CreateVersionResult, error)

	// ListVersions returns version metadata, newest first
	ListVersions(ctx context.Context, documentID string, opts *ListVersionsOptions) ([]models.Version, error)

	// GetVersionContent returns content, or *domain.ArchivedContentUnavailableError
	// while the version is archived and not rehydrated
	GetVersionContent(ctx context.Context, documentID, versionID string) (string, error)

	// RestoreVersion appends a restore version carrying the target's content.
	// It always appends, even when the content equals the head.
	RestoreVersion(ctx context.Context, req *RestoreVersionRequest) (*models.Version, error)

	// CompareVersions diffs two versions; the lower number is "before"
	CompareVersions(ctx context.Context, documentID string, numberA, numberB int) (*models.DiffResult, error)

	// RenameDocument renames under the lock and appends a rename version
	RenameDocument(ctx context.Context, req *RenameDocumentRequest) (*models.Document, *models.Version, error)
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	UserID  string `json:"-"` // Set by handler from auth context, not from request body
}

// CreateVersionRequest represents a save attempt
type CreateVersionRequest struct {
	DocumentID string            `json:"-"`
	SessionID  string            `json:"-"`
	UserID     string            `json:"-"`
	Content    string            `json:"content"`
	ChangeType models.ChangeType `json:"change_type"`
	Label      *string           `json:"label,omitempty"`
	Summary    *string           `json:"change_summary,omitempty"`
}

// CreateVersionResult is either a new version or a skipped no-op save
type CreateVersionResult struct {
	Version *models.Version `json:"version,omitempty"`
	Skipped bool            `json:"skipped"`
}

// ListVersionsOptions pages through the log. Zero values list everything.
type ListVersionsOptions struct {
	BeforeNumber int `json:"before,omitempty"`
	Limit        int `json:"limit,omitempty"`
}

// RestoreVersionRequest carries an old version forward as the new head
type RestoreVersionRequest struct {
	DocumentID      string `json:"-"`
	SessionID       string `json:"-"`
	UserID          string `json:"-"`
	TargetVersionID string `json:"-"`
}

// RenameDocumentRequest renames a locked document
type RenameDocumentRequest struct {
	DocumentID string `json:"-"`
	SessionID  string `json:"-"`
	UserID     string `json:"-"`
	Name       string `json:"name"`
}
