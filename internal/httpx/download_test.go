package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vidrelay/vidrelay/internal/app"
)

func postDownload(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.handleDownload(rr, req)
	return rr
}

func TestDownloadSuccess(t *testing.T) {
	svc := &fakeService{ingestResults: []app.IngestResult{{
		Filename:    "My_Clip_best.mp4",
		DownloadURL: "http://localhost:8080/downloads/My_Clip_best.mp4?token=0123456789abcdef0123456789abcdef",
		Format:      "best",
		Title:       "My Clip",
		Duration:    42.5,
		Ext:         "mp4",
	}}}
	h := New(svc, 1<<20, nil)

	rr := postDownload(t, h, `{"url":"https://example.com/v1","formats":["best"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			FilePath string  `json:"file_path"`
			VideoURL string  `json:"video_url"`
			Format   string  `json:"format"`
			Title    string  `json:"title"`
			Duration float64 `json:"duration"`
			Ext      string  `json:"ext"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" || len(resp.Data) != 1 {
		t.Fatalf("envelope %+v", resp)
	}
	d := resp.Data[0]
	if d.FilePath != "My_Clip_best.mp4" || !strings.Contains(d.VideoURL, "token=") || d.Duration != 42.5 {
		t.Fatalf("record %+v", d)
	}
	if svc.lastIngest.URL != "https://example.com/v1" || len(svc.lastIngest.Formats) != 1 {
		t.Fatalf("request passed to service %+v", svc.lastIngest)
	}
}

func TestDownloadPassesCookies(t *testing.T) {
	svc := &fakeService{}
	h := New(svc, 1<<20, nil)
	rr := postDownload(t, h, `{"url":"https://example.com/v1","cookies":"# Netscape"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if svc.lastIngest.Cookies != "# Netscape" {
		t.Fatalf("cookies %q", svc.lastIngest.Cookies)
	}
}

func TestDownloadErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "missing_url", err: app.ErrMissingURL, wantStatus: http.StatusBadRequest, wantCode: CodeMissingURL},
		{name: "invalid_formats", err: app.ErrBadFormats, wantStatus: http.StatusBadRequest, wantCode: CodeInvalidFormats},
		{name: "download_failed", err: fmt.Errorf("%w: yt-dlp exited 1", app.ErrExtraction), wantStatus: http.StatusInternalServerError, wantCode: CodeDownloadFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := New(&fakeService{ingestErr: tc.err}, 1<<20, nil)
			rr := postDownload(t, h, `{"url":"https://example.com/v1"}`)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status %d, want %d", rr.Code, tc.wantStatus)
			}
			body := decodeError(t, rr)
			if body.ErrorCode != tc.wantCode || body.Status != "error" {
				t.Fatalf("body %+v", body)
			}
		})
	}
}

func TestDownloadFailureSurfacesCollaboratorMessage(t *testing.T) {
	h := New(&fakeService{ingestErr: fmt.Errorf("%w: format %q: requested format is not available", app.ErrExtraction, "144p")}, 1<<20, nil)
	rr := postDownload(t, h, `{"url":"https://example.com/v1","formats":["144p"]}`)
	body := decodeError(t, rr)
	if !strings.Contains(body.Message, "requested format is not available") {
		t.Fatalf("cause not surfaced: %q", body.Message)
	}
}

func TestDownloadMalformedBody(t *testing.T) {
	h := New(&fakeService{}, 1<<20, nil)
	rr := postDownload(t, h, `{"url": `)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
	if decodeError(t, rr).ErrorCode != CodeMissingURL {
		t.Fatalf("body %s", rr.Body.String())
	}
}

func TestDownloadMethodNotAllowed(t *testing.T) {
	h := New(&fakeService{}, 1<<20, nil)
	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	rr := httptest.NewRecorder()
	h.handleDownload(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestDownloadBodyTooLarge(t *testing.T) {
	h := New(&fakeService{}, 16, nil)
	rr := postDownload(t, h, `{"url":"https://example.com/a-very-long-url-beyond-the-limit"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
}
