// Package httpx contains the HTTP delivery layer (net/http handlers) for the
// vidrelay service. It maps HTTP requests to the application service while
// enforcing validation, size limits, security headers, streaming semantics,
// and error translation. Handlers are split across files (download.go,
// deliver.go, formats.go, health.go, errors.go).
package httpx

import (
	"context"
	"io"
	"net/http"

	"github.com/vidrelay/vidrelay/internal/app"
)

// ServicePort abstracts the subset of app.Service used by the HTTP layer.
// It is satisfied by *app.Service in production and mocked in tests.
type ServicePort interface {
	Ingest(ctx context.Context, req app.IngestRequest) ([]app.IngestResult, error)
	Probe(ctx context.Context, url, cookies string) (app.ProbeResult, error)
	Deliver(ctx context.Context, filename, token string) (io.ReadCloser, int64, error)
}

// Handler wires HTTP endpoints to the application service.
// It is safe for concurrent use. Zero-value is not valid; construct via New.
type Handler struct {
	Service   ServicePort
	MaxBody   int64                       // maximum request body size (0 disables the extra check)
	Readiness func(context.Context) error // optional readiness probe
	Metrics   http.Handler                // optional metrics snapshot endpoint
}

// New returns a configured Handler.
func New(svc ServicePort, maxBody int64, readiness func(context.Context) error) *Handler {
	return &Handler{Service: svc, MaxBody: maxBody, Readiness: readiness}
}

// Router constructs and returns an http.Handler with all routes mounted and
// the correlation + security-header middleware applied.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/download", h.handleDownload)
	mux.HandleFunc("/formats", h.handleFormats)
	mux.HandleFunc("/downloads/", h.handleDeliver) // expect /downloads/{filename}?token=...
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/readyz", h.handleReady)
	if h.Metrics != nil {
		mux.Handle("/metrics", h.Metrics)
	}
	return CorrelationIDMiddleware(h.secureHeaders(mux))
}

// secureHeaders middleware adds standard security & cache control headers.
// Responses carry tokens in bodies, so everything defaults to no-store.
func (h *Handler) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
