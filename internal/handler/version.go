package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"
	"casefile/internal/httputil"
)

// VersionHandler handles version log HTTP requests
type VersionHandler struct {
	versions editingSvc.VersionService
	logger   *slog.Logger
}

// NewVersionHandler creates a new version handler
func NewVersionHandler(versions editingSvc.VersionService, logger *slog.Logger) *VersionHandler {
	return &VersionHandler{versions: versions, logger: logger}
}

// VersionPage is one page of history, newest first. NextBefore is the
// cursor for the following page; zero when this is the last one.
type VersionPage struct {
	Versions   []models.Version `json:"versions"`
	NextBefore int              `json:"next_before,omitempty"`
}

// ListVersions lists version metadata
// GET /api/documents/{id}/versions?before=&limit=
func (h *VersionHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	before, err := httputil.QueryInt(r, "before")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := httputil.QueryInt(r, "limit")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	versions, err := h.versions.ListVersions(r.Context(), r.PathValue("id"), &editingSvc.ListVersionsOptions{
		BeforeNumber: before,
		Limit:        limit,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	page := VersionPage{Versions: versions}
	if limit > 0 && len(versions) == limit {
		if last := versions[len(versions)-1].VersionNumber; last > 1 {
			page.NextBefore = last
		}
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// CreateVersion saves new content under the caller's lock
// POST /api/documents/{id}/versions
// Returns 201 with the version, or 200 with skipped=true for a no-op save
func (h *VersionHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req editingSvc.CreateVersionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.DocumentID = r.PathValue("id")
	req.SessionID = sessionID
	req.UserID = httputil.GetUserID(r)

	result, err := h.versions.CreateVersion(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Skipped {
		status = http.StatusOK
	}
	httputil.RespondJSON(w, status, result)
}

// GetVersionContent returns a version's content
// GET /api/documents/{id}/versions/{versionId}/content
// Returns 409 with rehydration_pending while the version is archived
func (h *VersionHandler) GetVersionContent(w http.ResponseWriter, r *http.Request) {
	versionID := r.PathValue("versionId")
	content, err := h.versions.GetVersionContent(r.Context(), r.PathValue("id"), versionID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"version_id": versionID,
		"content":    content,
	})
}

// RestoreVersion appends a copy of an old version as the new head
// POST /api/documents/{id}/versions/{versionId}/restore
func (h *VersionHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	version, err := h.versions.RestoreVersion(r.Context(), &editingSvc.RestoreVersionRequest{
		DocumentID:      r.PathValue("id"),
		SessionID:       sessionID,
		UserID:          httputil.GetUserID(r),
		TargetVersionID: r.PathValue("versionId"),
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, version)
}

// CompareVersions diffs two versions by number
// GET /api/documents/{id}/versions/compare?a=&b=
func (h *VersionHandler) CompareVersions(w http.ResponseWriter, r *http.Request) {
	a, errA := strconv.Atoi(r.URL.Query().Get("a"))
	b, errB := strconv.Atoi(r.URL.Query().Get("b"))
	if errA != nil || errB != nil {
		httputil.RespondError(w, http.StatusBadRequest, "a and b must be version numbers")
		return
	}

	diff, err := h.versions.CompareVersions(r.Context(), r.PathValue("id"), a, b)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, diff)
}
