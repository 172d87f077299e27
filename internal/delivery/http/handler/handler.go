package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AeonDevWorks/clarity-snapshot/internal/delivery/http/response"
	"github.com/AeonDevWorks/clarity-snapshot/internal/repository"
	"github.com/AeonDevWorks/clarity-snapshot/internal/usecase"
)

// maxUploadBytes caps multipart upload bodies at 10MB.
const maxUploadBytes = 10 << 20

type Handler struct {
	snapshots usecase.SnapshotService
	audit     repository.FetchAuditRepository
}

func NewHandler(snapshots usecase.SnapshotService, audit repository.FetchAuditRepository) *Handler {
	return &Handler{
		snapshots: snapshots,
		audit:     audit,
	}
}

// HandlePing is the health/warmup check. No side effects.
func (h *Handler) HandlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		slog.Error("Failed to write ping response", "error", err)
	}
}

func (h *Handler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.writeJSONError(w, "Missing url parameter", http.StatusBadRequest)
		return
	}
	force := r.URL.Query().Get("force") == "true"
	waitSelector := r.URL.Query().Get("wait_for")

	snap, err := h.snapshots.FetchURL(r.Context(), rawURL, force, waitSelector)
	if err != nil {
		h.writeSnapshotError(w, rawURL, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response.FromSnapshot(snap))
}

func (h *Handler) HandleUploadScreenshot(w http.ResponseWriter, r *http.Request) {
	data, mimeType, ok := h.readUpload(w, r, "screenshot")
	if !ok {
		return
	}

	snap, err := h.snapshots.UploadScreenshot(r.Context(), data, mimeType)
	if err != nil {
		h.writeSnapshotError(w, "", err)
		return
	}

	h.writeJSON(w, http.StatusOK, response.FromSnapshot(snap))
}

func (h *Handler) HandleUploadHTML(w http.ResponseWriter, r *http.Request) {
	data, _, ok := h.readUpload(w, r, "html")
	if !ok {
		return
	}

	snap, err := h.snapshots.UploadHTML(r.Context(), data)
	if err != nil {
		h.writeSnapshotError(w, "", err)
		return
	}

	h.writeJSON(w, http.StatusOK, response.FromSnapshot(snap))
}

// HandleAuditLog exposes the recent fetch-audit trail (denied domains and
// render failures) for security review.
func (h *Handler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events, err := h.audit.RecentEvents(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to read audit events", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, response.FromAuditEvents(events))
}

// readUpload extracts one multipart file field, enforcing the upload size
// cap. On failure the response is already written and ok is false.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, field string) (data []byte, mimeType string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile(field)
	if err != nil {
		h.writeJSONError(w, "No file uploaded", http.StatusBadRequest)
		return nil, "", false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		slog.Error("Failed to read uploaded file", "field", field, "error", err)
		h.writeJSONError(w, "Failed to read uploaded file", http.StatusBadRequest)
		return nil, "", false
	}

	return data, header.Header.Get("Content-Type"), true
}

// writeSnapshotError maps the use-case error taxonomy onto HTTP statuses:
// validation 400, forbidden 403, render/driver failure 500.
func (h *Handler) writeSnapshotError(w http.ResponseWriter, rawURL string, err error) {
	switch {
	case errors.Is(err, usecase.ErrMissingInput):
		// The fetch handler rejects an absent url before reaching the use
		// case, so this branch covers empty upload bodies.
		h.writeJSONError(w, "No file uploaded", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrDomainNotAllowed):
		h.writeJSONError(w, "Domain not allowed", http.StatusForbidden)
	case errors.Is(err, usecase.ErrInvalidUploadType):
		h.writeJSONError(w, "Invalid file type", http.StatusBadRequest)
	case errors.Is(err, repository.ErrBrowserUnavailable):
		slog.Error("Browser unavailable", "url", rawURL, "error", err)
		h.writeJSONError(w, "Render driver unavailable", http.StatusInternalServerError)
	default:
		slog.Error("Fetch failed", "url", rawURL, "error", err)
		h.writeJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
