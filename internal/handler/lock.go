package handler

import (
	"log/slog"
	"net/http"

	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"
	"casefile/internal/httputil"
)

// LockHandler exposes the edit lock over HTTP for clients that manage their
// own heartbeats instead of using a websocket session
type LockHandler struct {
	locks  editingSvc.LockService
	logger *slog.Logger
}

// NewLockHandler creates a new lock handler
func NewLockHandler(locks editingSvc.LockService, logger *slog.Logger) *LockHandler {
	return &LockHandler{locks: locks, logger: logger}
}

// LockStatus wraps the active lock; Lock is null when the document is free
type LockStatus struct {
	Locked bool         `json:"locked"`
	Lock   *models.Lock `json:"lock"`
}

// GetLock returns the active lock
// GET /api/documents/{id}/lock
func (h *LockHandler) GetLock(w http.ResponseWriter, r *http.Request) {
	lock, err := h.locks.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, LockStatus{Locked: lock != nil, Lock: lock})
}

// AcquireLock grants or refreshes the caller's lock
// POST /api/documents/{id}/lock
// Returns 423 with holder_name when another session holds it
func (h *LockHandler) AcquireLock(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	lock, err := h.locks.Acquire(r.Context(), &editingSvc.AcquireLockRequest{
		DocumentID: r.PathValue("id"),
		HolderID:   httputil.GetUserID(r),
		HolderName: httputil.GetUserName(r),
		SessionID:  sessionID,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, lock)
}

// Heartbeat extends the caller's lock
// POST /api/documents/{id}/lock/heartbeat
func (h *LockHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	lock, err := h.locks.Heartbeat(r.Context(), r.PathValue("id"), httputil.GetUserID(r), sessionID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, lock)
}

// ReleaseLock releases the caller's lock
// DELETE /api/documents/{id}/lock?reason=explicit_close
func (h *LockHandler) ReleaseLock(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	reason := models.ReleaseReason(r.URL.Query().Get("reason"))
	if reason == "" {
		reason = models.ReleaseExplicitClose
	}

	if err := h.locks.Release(r.Context(), r.PathValue("id"), httputil.GetUserID(r), sessionID, reason); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
