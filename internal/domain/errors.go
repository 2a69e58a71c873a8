package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling (OCP compliance).
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

// Is allows errors.Is() to match the typed errors against their sentinels
func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrLockHeldByOther            = errors.New("lock held by another session")
	ErrLockNotHeld                = errors.New("lock not held")
	ErrArchivedContentUnavailable = errors.New("archived content unavailable")
	ErrNotArchived                = errors.New("version is not archived")
	ErrPersistence                = errors.New("persistence failure")

	// ErrVersionNotFound wraps ErrNotFound so generic not-found handling applies
	ErrVersionNotFound = fmt.Errorf("version %w", ErrNotFound)
)

// ConflictError represents a resource conflict with details about the existing resource
// Implements HTTPError interface for extensible error handling
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (document, version)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// LockHeldByOtherError is returned by lock acquisition when another live
// session owns the document. It is recoverable: the caller may wait and retry.
type LockHeldByOtherError struct {
	DocumentID        string
	CurrentHolderID   string
	CurrentHolderName string
	ExpiresAt         time.Time
}

func (e *LockHeldByOtherError) Error() string {
	return fmt.Sprintf("document %s is being edited by %s", e.DocumentID, e.CurrentHolderName)
}

func (e *LockHeldByOtherError) StatusCode() int { return http.StatusLocked }

func (e *LockHeldByOtherError) Is(target error) bool { return target == ErrLockHeldByOther }

// LockNotHeldError means the calling session does not hold the document's
// active lock (never acquired, expired, or superseded). CurrentHolderName is
// set when some other session holds the lock right now.
type LockNotHeldError struct {
	DocumentID        string
	SessionID         string
	CurrentHolderName string
}

func (e *LockNotHeldError) Error() string {
	if e.CurrentHolderName != "" {
		return fmt.Sprintf("session %s does not hold the lock on document %s (held by %s)", e.SessionID, e.DocumentID, e.CurrentHolderName)
	}
	return fmt.Sprintf("session %s does not hold the lock on document %s", e.SessionID, e.DocumentID)
}

func (e *LockNotHeldError) StatusCode() int { return http.StatusConflict }

func (e *LockNotHeldError) Is(target error) bool { return target == ErrLockNotHeld }

// ArchivedContentUnavailableError signals a pending operation rather than a
// failure: the content exists but sits in archive storage.
type ArchivedContentUnavailableError struct {
	DocumentID         string
	VersionNumber      int
	RehydrationPending bool
}

func (e *ArchivedContentUnavailableError) Error() string {
	if e.RehydrationPending {
		return fmt.Sprintf("version %d of document %s is archived; rehydration pending", e.VersionNumber, e.DocumentID)
	}
	return fmt.Sprintf("version %d of document %s is archived; request rehydration to read it", e.VersionNumber, e.DocumentID)
}

func (e *ArchivedContentUnavailableError) StatusCode() int { return http.StatusConflict }

func (e *ArchivedContentUnavailableError) Is(target error) bool {
	return target == ErrArchivedContentUnavailable
}

// PersistenceError wraps a storage backend failure. Callers must retry the
// operation; it is never dropped silently.
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError wraps err, leaving domain errors untouched
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return err
	}
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrLockNotHeld, ErrLockHeldByOther, ErrNotArchived} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) StatusCode() int { return http.StatusServiceUnavailable }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
