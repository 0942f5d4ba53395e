package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vidrelay/vidrelay/internal/app"
)

// formatsRequest is the POST /formats body.
type formatsRequest struct {
	URL     string `json:"url"`
	Cookies string `json:"cookies"`
}

// formatInfo mirrors one source format in the probe response.
type formatInfo struct {
	FormatID   string `json:"formatId"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution"`
	Bitrate    int64  `json:"bitrate"`
	Size       int64  `json:"size"`
	VCodec     string `json:"vcodec"`
	ACodec     string `json:"acodec"`
	URL        string `json:"url,omitempty"`
}

// handleFormats implements POST /formats: it resolves source metadata and
// the advertised formats without downloading anything, so clients can pick
// format specifiers for a later /download call.
func (h *Handler) handleFormats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, CodeInternal, "method not allowed")
		return
	}
	var req formatsRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, CodeMissingURL, "invalid request body")
		return
	}
	info, err := h.Service.Probe(ctx, req.URL, req.Cookies)
	if err != nil {
		// Probe failures keep their own code: nothing was asked to download.
		if errors.Is(err, app.ErrExtraction) {
			h.writeError(ctx, w, http.StatusInternalServerError, CodeExtractionFailed, err.Error())
			return
		}
		h.mapServiceError(ctx, w, err)
		return
	}
	formats := make([]formatInfo, 0, len(info.Formats))
	for _, f := range info.Formats {
		formats = append(formats, formatInfo{
			FormatID:   f.FormatID,
			Ext:        f.Ext,
			Resolution: f.Resolution,
			Bitrate:    f.Bitrate,
			Size:       f.Size,
			VCodec:     f.VCodec,
			ACodec:     f.ACodec,
			URL:        f.URL,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    any    `json:"data"`
	}{
		Status:  "success",
		Message: "Format URLs extracted successfully",
		Data: map[string]any{
			"title":     info.Title,
			"thumbnail": info.Thumbnail,
			"duration":  info.Duration,
			"formats":   formats,
		},
	})
}
