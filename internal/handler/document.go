package handler

import (
	"log/slog"
	"net/http"

	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"
	"casefile/internal/httputil"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	versions editingSvc.VersionService
	logger   *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(versions editingSvc.VersionService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		versions: versions,
		logger:   logger,
	}
}

// DocumentWithVersion is returned by operations that append a version
type DocumentWithVersion struct {
	Document *models.Document `json:"document"`
	Version  *models.Version  `json:"version"`
}

// CreateDocument creates a document with its first version
// POST /api/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req editingSvc.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = httputil.GetUserID(r)

	doc, version, err := h.versions.CreateDocument(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, DocumentWithVersion{Document: doc, Version: version})
}

// GetDocument retrieves a document with its head content and active lock
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.versions.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// RenameDocument renames a document the caller holds the lock on
// PATCH /api/documents/{id}
func (h *DocumentHandler) RenameDocument(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req editingSvc.RenameDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.DocumentID = r.PathValue("id")
	req.SessionID = sessionID
	req.UserID = httputil.GetUserID(r)

	doc, version, err := h.versions.RenameDocument(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, DocumentWithVersion{Document: doc, Version: version})
}

// HealthCheck reports liveness
// GET /health
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
