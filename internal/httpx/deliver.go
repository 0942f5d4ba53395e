package httpx

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
)

// handleDeliver implements GET /downloads/{filename}?token={token}. A valid
// pair streams the stored file with an attachment disposition; the four
// rejection kinds map to distinct status/error codes.
func (h *Handler) handleDeliver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, CodeInternal, "method not allowed")
		return
	}
	const prefix = "/downloads/"
	if len(r.URL.Path) <= len(prefix) || r.URL.Path[:len(prefix)] != prefix {
		h.writeError(ctx, w, http.StatusNotFound, CodeFileNotFound, "file not found")
		return
	}
	filename := r.URL.Path[len(prefix):] // mux delivers the path already unescaped
	token := r.URL.Query().Get("token")

	rc, size, err := h.Service.Deliver(ctx, filename, token)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	defer rc.Close()

	ctype := mime.TypeByExtension(filepath.Ext(filename))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.CopyN(w, rc, size)
}
