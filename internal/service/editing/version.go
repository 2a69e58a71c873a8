package editing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"casefile/internal/config"
	"casefile/internal/domain"
	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// versionService implements the VersionService interface
type versionService struct {
	*Coordinator
}

// NewVersionService creates a new version service
func NewVersionService(c *Coordinator) editingSvc.VersionService {
	return &versionService{Coordinator: c}
}

// appendParams describes one append to the version log
type appendParams struct {
	sessionID   string
	userID      string
	content     string
	keepContent bool // carry the head content forward instead of content
	name        *string
	changeType  models.ChangeType
	label       *string
	summary     *string
	force       bool // bypass the no-op dedup rule
	requireLock bool
}

// CreateDocument creates the document and version 1 in one transaction
func (s *versionService) CreateDocument(ctx context.Context, req *editingSvc.CreateDocumentRequest) (*models.Document, *models.Version, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxDocumentNameLength), storableText),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Content, validation.Length(0, config.MaxContentLength), storableText),
	); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	now := s.now()
	doc := &models.Document{
		ID:          uuid.NewString(),
		Name:        req.Name,
		ContentHash: s.analyzer.Hash(""),
		CreatedBy:   req.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	unlock := s.guard.Lock(doc.ID)
	defer unlock()

	var first *models.Version
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.documents.Create(txCtx, doc); err != nil {
			return domain.NewPersistenceError("create document", err)
		}
		result, err := s.appendTo(txCtx, doc, appendParams{
			userID:     req.UserID,
			content:    req.Content,
			changeType: models.ChangeCreate,
			force:      true,
		})
		if err != nil {
			return err
		}
		first = result.Version
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"name", doc.Name,
		"created_by", doc.CreatedBy,
		"word_count", first.WordCount,
	)
	return doc, first, nil
}

// GetDocument retrieves a document with its active lock
func (s *versionService) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, domain.NewPersistenceError("get document", err)
	}
	lock, err := s.currentLock(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if lock.Active(s.now()) {
		doc.ActiveLock = lock
	}
	return doc, nil
}

// CreateVersion appends a save if the session holds the lock
func (s *versionService) CreateVersion(ctx context.Context, req *editingSvc.CreateVersionRequest) (*editingSvc.CreateVersionResult, error) {
	if req.ChangeType == "" {
		req.ChangeType = models.ChangeEdit
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.SessionID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.ChangeType, validation.In(models.SaveChangeTypes...)),
		validation.Field(&req.Content, validation.Length(0, config.MaxContentLength), storableText),
		validation.Field(&req.Label, validation.NilOrNotEmpty, validation.Length(0, config.MaxVersionLabelLength), storableText),
		validation.Field(&req.Summary, storableText),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	return s.append(ctx, req.DocumentID, appendParams{
		sessionID:   req.SessionID,
		userID:      req.UserID,
		content:     req.Content,
		changeType:  req.ChangeType,
		label:       req.Label,
		summary:     req.Summary,
		requireLock: true,
	})
}

// ListVersions returns metadata newest first
func (s *versionService) ListVersions(ctx context.Context, documentID string, opts *editingSvc.ListVersionsOptions) ([]models.Version, error) {
	if _, err := s.ensureDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &editingSvc.ListVersionsOptions{}
	}
	if opts.BeforeNumber < 0 || opts.Limit < 0 {
		return nil, fmt.Errorf("%w: before and limit must not be negative", domain.ErrValidation)
	}
	if opts.Limit > config.MaxVersionPageSize {
		opts.Limit = config.MaxVersionPageSize
	}

	versions, err := s.versions.List(ctx, documentID, opts.BeforeNumber, opts.Limit)
	if err != nil {
		return nil, domain.NewPersistenceError("list versions", err)
	}
	if versions == nil {
		versions = []models.Version{}
	}
	return versions, nil
}

// GetVersionContent reads content through the archive gate
func (s *versionService) GetVersionContent(ctx context.Context, documentID, versionID string) (string, error) {
	if _, err := s.ensureDocument(ctx, documentID); err != nil {
		return "", err
	}
	v, err := s.versions.GetByID(ctx, documentID, versionID)
	if err != nil {
		return "", versionLookupError(err)
	}
	return s.readContent(ctx, v)
}

// RestoreVersion appends the target's content as a new restore version.
// The target is read before entering the critical section because reading
// may itself record a completed rehydration.
func (s *versionService) RestoreVersion(ctx context.Context, req *editingSvc.RestoreVersionRequest) (*models.Version, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.SessionID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.TargetVersionID, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.ensureDocument(ctx, req.DocumentID); err != nil {
		return nil, err
	}
	target, err := s.versions.GetByID(ctx, req.DocumentID, req.TargetVersionID)
	if err != nil {
		return nil, versionLookupError(err)
	}
	content, err := s.readContent(ctx, target)
	if err != nil {
		return nil, err
	}

	summary := fmt.Sprintf("Restored from version %d", target.VersionNumber)
	result, err := s.append(ctx, req.DocumentID, appendParams{
		sessionID:   req.SessionID,
		userID:      req.UserID,
		content:     content,
		changeType:  models.ChangeRestore,
		summary:     &summary,
		force:       true,
		requireLock: true,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("version restored",
		"document_id", req.DocumentID,
		"from_version", target.VersionNumber,
		"new_version", result.Version.VersionNumber,
	)
	return result.Version, nil
}

// CompareVersions diffs two versions by number
func (s *versionService) CompareVersions(ctx context.Context, documentID string, numberA, numberB int) (*models.DiffResult, error) {
	if numberA < 1 || numberB < 1 {
		return nil, fmt.Errorf("%w: version numbers start at 1", domain.ErrValidation)
	}
	if _, err := s.ensureDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if numberA > numberB {
		numberA, numberB = numberB, numberA
	}

	before, err := s.versions.GetByNumber(ctx, documentID, numberA)
	if err != nil {
		return nil, versionLookupError(err)
	}
	after, err := s.versions.GetByNumber(ctx, documentID, numberB)
	if err != nil {
		return nil, versionLookupError(err)
	}

	beforeContent, err := s.readContent(ctx, before)
	if err != nil {
		return nil, err
	}
	afterContent, err := s.readContent(ctx, after)
	if err != nil {
		return nil, err
	}

	beforeWords := s.analyzer.Tokenize(beforeContent)
	afterWords := s.analyzer.Tokenize(afterContent)
	added, removed := s.analyzer.WordDelta(beforeWords, afterWords)

	return &models.DiffResult{
		DocumentID:   documentID,
		Before:       models.StatsOf(before),
		After:        models.StatsOf(after),
		WordsAdded:   added,
		WordsRemoved: removed,
		Segments:     s.analyzer.Diff(beforeWords, afterWords),
	}, nil
}

// RenameDocument renames under the lock and records a rename version
func (s *versionService) RenameDocument(ctx context.Context, req *editingSvc.RenameDocumentRequest) (*models.Document, *models.Version, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.SessionID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxDocumentNameLength), storableText),
	); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	summary := fmt.Sprintf("Renamed to %q", req.Name)
	result, err := s.append(ctx, req.DocumentID, appendParams{
		sessionID:   req.SessionID,
		userID:      req.UserID,
		keepContent: true,
		name:        &req.Name,
		changeType:  models.ChangeRename,
		summary:     &summary,
		force:       true,
		requireLock: true,
	})
	if err != nil {
		return nil, nil, err
	}

	doc, err := s.GetDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	return doc, result.Version, nil
}

// append runs appendTo inside the document's critical section
func (s *versionService) append(ctx context.Context, documentID string, p appendParams) (*editingSvc.CreateVersionResult, error) {
	var result *editingSvc.CreateVersionResult
	err := s.withDocument(ctx, documentID, func(txCtx context.Context, doc *models.Document) error {
		var err error
		result, err = s.appendTo(txCtx, doc, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.Skipped {
		s.logger.Debug("save skipped, content unchanged",
			"document_id", documentID,
			"session_id", p.sessionID,
			"change_type", p.changeType,
		)
	} else {
		s.logger.Info("version created",
			"document_id", documentID,
			"version", result.Version.VersionNumber,
			"change_type", result.Version.ChangeType,
			"words_added", result.Version.WordsAdded,
			"words_removed", result.Version.WordsRemoved,
		)
	}
	return result, nil
}

// appendTo allocates the next number and writes the version and the new head
// in the caller's transaction. The content blob is written first under a key
// only this version references, so a failed commit leaves at most an orphan
// blob and never a visible partial version.
func (s *versionService) appendTo(txCtx context.Context, doc *models.Document, p appendParams) (*editingSvc.CreateVersionResult, error) {
	if p.requireLock {
		if _, err := s.requireLock(txCtx, doc.ID, p.userID, p.sessionID); err != nil {
			return nil, err
		}
	}

	content := p.content
	if p.keepContent {
		content = doc.Content
	}
	// Normalization only decides dedup; the version stores what was saved
	hash := s.analyzer.Hash(s.analyzer.Normalize(content))
	if !p.force && hash == doc.ContentHash {
		return &editingSvc.CreateVersionResult{Skipped: true}, nil
	}

	beforeWords := s.analyzer.Tokenize(doc.Content)
	afterWords := s.analyzer.Tokenize(content)
	added, removed := s.analyzer.WordDelta(beforeWords, afterWords)

	now := s.now()
	versionID := uuid.NewString()
	v := &models.Version{
		ID:               versionID,
		DocumentID:       doc.ID,
		VersionNumber:    doc.CurrentVersionNumber + 1,
		Label:            p.label,
		ChangeSummary:    p.summary,
		ChangeType:       p.changeType,
		ContentRef:       contentKey(doc.ID, versionID),
		ContentHash:      hash,
		WordCount:        len(afterWords),
		CharacterCount:   s.analyzer.CountCharacters(content),
		WordsAdded:       added,
		WordsRemoved:     removed,
		SizeBytes:        int64(len(content)),
		CreatedBy:        p.userID,
		CreatedAt:        now,
		Tier:             models.TierHot,
		RehydrationState: models.RehydrationNone,
	}

	if err := s.content.Put(txCtx, v.ContentRef, []byte(content)); err != nil {
		return nil, domain.NewPersistenceError("store version content", err)
	}

	head := *doc
	head.Content = content
	head.ContentHash = hash
	head.CurrentVersionNumber = v.VersionNumber
	head.UpdatedAt = now
	if p.name != nil {
		head.Name = *p.name
	}

	if err := s.versions.Append(txCtx, v, &head); err != nil {
		return nil, domain.NewPersistenceError("append version", err)
	}
	*doc = head

	return &editingSvc.CreateVersionResult{Version: v}, nil
}

// storableText rejects strings a Postgres TEXT column refuses, so they fail
// as bad input rather than as a retryable persistence error
var storableText = validation.By(func(value interface{}) error {
	v, isNil := validation.Indirect(value)
	text, ok := v.(string)
	if isNil || !ok {
		return nil
	}
	if !utf8.ValidString(text) {
		return errors.New("must be valid UTF-8")
	}
	if strings.ContainsRune(text, 0) {
		return errors.New("must not contain NUL characters")
	}
	return nil
})
