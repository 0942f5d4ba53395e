package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vidrelay/vidrelay/internal/app"
)

// Machine-readable error codes carried in the response envelope. The four
// delivery rejection codes stay distinct so clients can tell a vanished file
// from an ungoverned one and a wrong token from a stale URL.
const (
	CodeMissingURL       = "MISSING_URL"
	CodeInvalidFormats   = "INVALID_FORMATS"
	CodeDownloadFailed   = "DOWNLOAD_FAILED"
	CodeExtractionFailed = "EXTRACTION_FAILED"
	CodeFileNotFound     = "FILE_NOT_FOUND"
	CodeFileExpired      = "FILE_EXPIRED"
	CodeForbidden        = "FORBIDDEN"
	CodeURLExpired       = "URL_EXPIRED"
	CodeInternal         = "INTERNAL_ERROR"
)

// errorBody is the JSON error envelope shared by all endpoints.
type errorBody struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// writeError writes the JSON error envelope with the given status code.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Status: "error", Message: msg, ErrorCode: code})
	if cid, ok := GetCorrelationID(ctx); ok {
		slog.Debug("wrote error response", "cid", cid, "status", status, "code", code)
	}
}

// mapServiceError maps app-layer errors to HTTP responses. Extraction
// failures surface the collaborator's message verbatim; the caller shares
// the operator's trust domain.
func (h *Handler) mapServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	cid, _ := GetCorrelationID(ctx)
	switch {
	case errors.Is(err, app.ErrMissingURL):
		slog.Warn("service error", "cid", cid, "code", CodeMissingURL)
		h.writeError(ctx, w, http.StatusBadRequest, CodeMissingURL, "URL is required")
	case errors.Is(err, app.ErrBadFormats):
		slog.Warn("service error", "cid", cid, "code", CodeInvalidFormats)
		h.writeError(ctx, w, http.StatusBadRequest, CodeInvalidFormats, "formats must be non-empty strings")
	case errors.Is(err, app.ErrExtraction):
		slog.Error("service error", "cid", cid, "code", CodeDownloadFailed, "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, CodeDownloadFailed, err.Error())
	case errors.Is(err, app.ErrFileNotFound):
		slog.Info("service error", "cid", cid, "code", CodeFileNotFound)
		h.writeError(ctx, w, http.StatusNotFound, CodeFileNotFound, "file not found")
	case errors.Is(err, app.ErrFileExpired):
		slog.Info("service error", "cid", cid, "code", CodeFileExpired)
		h.writeError(ctx, w, http.StatusGone, CodeFileExpired, "file expired")
	case errors.Is(err, app.ErrForbidden):
		slog.Warn("service error", "cid", cid, "code", CodeForbidden)
		h.writeError(ctx, w, http.StatusForbidden, CodeForbidden, "invalid download token")
	case errors.Is(err, app.ErrURLExpired):
		slog.Info("service error", "cid", cid, "code", CodeURLExpired)
		h.writeError(ctx, w, http.StatusForbidden, CodeURLExpired, "download URL expired")
	default:
		slog.Error("unhandled service error", "cid", cid, "code", CodeInternal)
		h.writeError(ctx, w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}
