package handler

import (
	"net/http"

	"casefile/internal/middleware"
)

// Handlers groups the HTTP handlers registered on the router
type Handlers struct {
	Documents *DocumentHandler
	Locks     *LockHandler
	Versions  *VersionHandler
	Tiers     *TierHandler
	Sessions  *SessionHandler
}

// NewRouter registers every route (Go 1.22+ enhanced patterns). The
// /internal/ routes require internalToken; the rest expect the auth
// middleware to wrap the returned mux.
func NewRouter(h *Handlers, internalToken string) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", h.Documents.HealthCheck)

	// Document routes
	mux.HandleFunc("POST /api/documents", h.Documents.CreateDocument)
	mux.HandleFunc("GET /api/documents/{id}", h.Documents.GetDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", h.Documents.RenameDocument)

	// Lock routes
	mux.HandleFunc("GET /api/documents/{id}/lock", h.Locks.GetLock)
	mux.HandleFunc("POST /api/documents/{id}/lock", h.Locks.AcquireLock)
	mux.HandleFunc("POST /api/documents/{id}/lock/heartbeat", h.Locks.Heartbeat)
	mux.HandleFunc("DELETE /api/documents/{id}/lock", h.Locks.ReleaseLock)

	// Version routes
	mux.HandleFunc("GET /api/documents/{id}/versions", h.Versions.ListVersions)
	mux.HandleFunc("POST /api/documents/{id}/versions", h.Versions.CreateVersion)
	mux.HandleFunc("GET /api/documents/{id}/versions/compare", h.Versions.CompareVersions)
	mux.HandleFunc("GET /api/documents/{id}/versions/{versionId}/content", h.Versions.GetVersionContent)
	mux.HandleFunc("POST /api/documents/{id}/versions/{versionId}/restore", h.Versions.RestoreVersion)

	// Tier routes
	mux.HandleFunc("GET /api/documents/{id}/versions/{number}/availability", h.Tiers.GetAvailability)
	mux.HandleFunc("POST /api/documents/{id}/versions/{number}/rehydration", h.Tiers.RequestRehydration)
	mux.HandleFunc("POST /api/documents/{id}/versions/{number}/rehydration/refresh", h.Tiers.RefreshRehydration)

	// Edit session websocket
	mux.HandleFunc("GET /api/documents/{id}/session", h.Sessions.Connect)

	// Internal hooks for the tier scheduler and storage notifications
	internal := middleware.InternalToken(internalToken)
	mux.Handle("PUT /internal/documents/{id}/versions/{number}/tier", internal(http.HandlerFunc(h.Tiers.SetTier)))
	mux.Handle("POST /internal/documents/{id}/versions/{number}/rehydration/complete", internal(http.HandlerFunc(h.Tiers.CompleteRehydration)))

	return mux
}
