package handler

import (
	"errors"
	"net/http"
	"time"

	"casefile/internal/domain"
	"casefile/internal/httputil"
	"casefile/internal/session"
)

// retryAfterSeconds is sent with 503s from storage failures
const retryAfterSeconds = "2"

// handleError converts domain errors to HTTP responses. Lock and archive
// errors carry the fields a client needs to render "held by" or "restoring".
func handleError(w http.ResponseWriter, err error) {
	var (
		heldErr     *domain.LockHeldByOtherError
		notHeldErr  *domain.LockNotHeldError
		archivedErr *domain.ArchivedContentUnavailableError
		persistErr  *domain.PersistenceError
		conflictErr *domain.ConflictError
	)

	switch {
	case errors.As(err, &heldErr):
		httputil.RespondErrorWithExtras(w, http.StatusLocked, heldErr.Error(), map[string]interface{}{
			"code":        "lock_held",
			"holder_id":   heldErr.CurrentHolderID,
			"holder_name": heldErr.CurrentHolderName,
			"expires_at":  heldErr.ExpiresAt.Format(time.RFC3339),
		})
	case errors.As(err, &notHeldErr):
		extras := map[string]interface{}{"code": "lock_not_held"}
		if notHeldErr.CurrentHolderName != "" {
			extras["holder_name"] = notHeldErr.CurrentHolderName
		}
		httputil.RespondErrorWithExtras(w, http.StatusConflict, notHeldErr.Error(), extras)
	case errors.As(err, &archivedErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, archivedErr.Error(), map[string]interface{}{
			"code":                "content_archived",
			"version_number":      archivedErr.VersionNumber,
			"rehydration_pending": archivedErr.RehydrationPending,
		})
	case errors.As(err, &persistErr):
		w.Header().Set("Retry-After", retryAfterSeconds)
		httputil.RespondErrorWithExtras(w, http.StatusServiceUnavailable, "storage temporarily unavailable, retry the request", map[string]interface{}{
			"code": "persistence_failure",
		})
	case errors.Is(err, domain.ErrNotArchived):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, err.Error(), map[string]interface{}{"code": "not_archived"})
	case errors.Is(err, session.ErrNotWritable):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, err.Error(), map[string]interface{}{"code": "not_writable"})
	case errors.Is(err, session.ErrSessionClosed):
		httputil.RespondError(w, http.StatusGone, err.Error())
	case errors.Is(err, session.ErrRetryTooSoon):
		httputil.RespondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflictErr), errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// requireSession returns the edit session header or writes a 400
func requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := httputil.GetSessionID(r)
	if sessionID == "" {
		httputil.RespondError(w, http.StatusBadRequest, httputil.SessionHeader+" header is required")
		return "", false
	}
	return sessionID, true
}
