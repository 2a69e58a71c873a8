package handler

import (
	"context"
	"log/slog"
	"net/http"

	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"
	"casefile/internal/httputil"
)

// TierHandler exposes content availability and rehydration. The internal
// routes are called by the demotion scheduler and storage notifications.
type TierHandler struct {
	tiers  editingSvc.TierService
	logger *slog.Logger
}

// NewTierHandler creates a new tier handler
func NewTierHandler(tiers editingSvc.TierService, logger *slog.Logger) *TierHandler {
	return &TierHandler{tiers: tiers, logger: logger}
}

// GetAvailability reports whether a version can be read now
// GET /api/documents/{id}/versions/{number}/availability
func (h *TierHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	number, err := httputil.PathInt(r, "number")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	availability, err := h.tiers.Availability(r.Context(), r.PathValue("id"), number)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, availability)
}

// RequestRehydration starts restoring an archived version
// POST /api/documents/{id}/versions/{number}/rehydration
// Returns 202 while the restore runs, 200 once the content is readable
func (h *TierHandler) RequestRehydration(w http.ResponseWriter, r *http.Request) {
	number, err := httputil.PathInt(r, "number")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.tiers.RequestRehydration(r.Context(), r.PathValue("id"), number)
	if err != nil {
		handleError(w, err)
		return
	}

	status := http.StatusAccepted
	if result.Ready {
		status = http.StatusOK
	}
	httputil.RespondJSON(w, status, result)
}

// RefreshRehydration polls storage for a pending restore
// POST /api/documents/{id}/versions/{number}/rehydration/refresh
func (h *TierHandler) RefreshRehydration(w http.ResponseWriter, r *http.Request) {
	h.respondVersion(w, r, h.tiers.RefreshRehydration)
}

// CompleteRehydration records a storage completion notification
// POST /internal/documents/{id}/versions/{number}/rehydration/complete
func (h *TierHandler) CompleteRehydration(w http.ResponseWriter, r *http.Request) {
	h.respondVersion(w, r, h.tiers.CompleteRehydration)
}

// SetTier records a demotion or promotion
// PUT /internal/documents/{id}/versions/{number}/tier
func (h *TierHandler) SetTier(w http.ResponseWriter, r *http.Request) {
	number, err := httputil.PathInt(r, "number")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Tier models.Tier `json:"tier"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	version, err := h.tiers.SetTier(r.Context(), r.PathValue("id"), number, req.Tier)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, version)
}

type versionOp func(ctx context.Context, documentID string, versionNumber int) (*models.Version, error)

func (h *TierHandler) respondVersion(w http.ResponseWriter, r *http.Request, op versionOp) {
	number, err := httputil.PathInt(r, "number")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	version, err := op(r.Context(), r.PathValue("id"), number)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, version)
}
