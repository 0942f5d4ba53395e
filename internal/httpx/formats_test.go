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

func postFormats(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/formats", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.handleFormats(rr, req)
	return rr
}

func TestFormatsSuccess(t *testing.T) {
	svc := &fakeService{probeResult: app.ProbeResult{
		MediaInfo: app.MediaInfo{Title: "My Clip", Duration: 42.5, Ext: "mp4", Thumbnail: "https://i.example.com/t.jpg"},
		Formats: []app.FormatInfo{
			{FormatID: "140", Ext: "m4a", Resolution: "audio only", Bitrate: 129, Size: 1048576, VCodec: "none", ACodec: "mp4a.40.2", URL: "https://cdn.example.com/a"},
			{FormatID: "137", Ext: "mp4", Resolution: "1920x1080", VCodec: "avc1", ACodec: "none"},
		},
	}}
	h := New(svc, 1<<20, nil)

	rr := postFormats(t, h, `{"url":"https://example.com/v1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Title     string  `json:"title"`
			Thumbnail string  `json:"thumbnail"`
			Duration  float64 `json:"duration"`
			Formats   []struct {
				FormatID   string `json:"formatId"`
				Resolution string `json:"resolution"`
			} `json:"formats"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" || resp.Data.Title != "My Clip" || len(resp.Data.Formats) != 2 {
		t.Fatalf("envelope %+v", resp)
	}
	if resp.Data.Formats[0].Resolution != "audio only" {
		t.Fatalf("formats %+v", resp.Data.Formats)
	}
}

func TestFormatsExtractionFailure(t *testing.T) {
	h := New(&fakeService{probeErr: fmt.Errorf("%w: unsupported url", app.ErrExtraction)}, 1<<20, nil)
	rr := postFormats(t, h, `{"url":"https://example.com/v1"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rr.Code)
	}
	body := decodeError(t, rr)
	if body.ErrorCode != CodeExtractionFailed {
		t.Fatalf("code %q", body.ErrorCode)
	}
	if !strings.Contains(body.Message, "unsupported url") {
		t.Fatalf("message %q", body.Message)
	}
}

func TestFormatsMissingURL(t *testing.T) {
	h := New(&fakeService{probeErr: app.ErrMissingURL}, 1<<20, nil)
	rr := postFormats(t, h, `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
	if decodeError(t, rr).ErrorCode != CodeMissingURL {
		t.Fatalf("body %s", rr.Body.String())
	}
}

func TestFormatsMethodNotAllowed(t *testing.T) {
	h := New(&fakeService{}, 1<<20, nil)
	req := httptest.NewRequest(http.MethodGet, "/formats", nil)
	rr := httptest.NewRecorder()
	h.handleFormats(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d", rr.Code)
	}
}
