package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/vidrelay/vidrelay/internal/app"
)

// downloadRequest is the POST /download body.
type downloadRequest struct {
	URL     string   `json:"url"`
	Cookies string   `json:"cookies"`
	Formats []string `json:"formats"`
}

// downloadResult is one produced artifact in the success envelope.
type downloadResult struct {
	FilePath string  `json:"file_path"`
	VideoURL string  `json:"video_url"`
	Format   string  `json:"format"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Ext      string  `json:"ext"`
}

// handleDownload implements POST /download: it drives ingestion for every
// requested format and answers with one result record per produced file,
// each embedding a tokenized download URL.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, CodeInternal, "method not allowed")
		return
	}
	var req downloadRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, CodeMissingURL, "invalid request body")
		return
	}
	results, err := h.Service.Ingest(ctx, app.IngestRequest{
		URL:     req.URL,
		Cookies: req.Cookies,
		Formats: req.Formats,
	})
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	data := make([]downloadResult, 0, len(results))
	for _, res := range results {
		data = append(data, downloadResult{
			FilePath: res.Filename,
			VideoURL: res.DownloadURL,
			Format:   res.Format,
			Title:    res.Title,
			Duration: res.Duration,
			Ext:      res.Ext,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(struct {
		Status string           `json:"status"`
		Data   []downloadResult `json:"data"`
	}{Status: "success", Data: data})
}

// decodeBody decodes a JSON request body, bounded by MaxBody.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := r.Body
	if h.MaxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.MaxBody)
	}
	defer body.Close()
	dec := json.NewDecoder(body)
	return dec.Decode(v)
}
