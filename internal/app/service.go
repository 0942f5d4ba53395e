// Package app contains the application orchestration layer for vidrelay. It
// wires domain validation with the extraction, storage, and registry ports
// without performing any I/O itself.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/vidrelay/vidrelay/internal/domain"
)

// ErrMissingURL indicates the request named no source URL.
var ErrMissingURL = errors.New("url is required")

// ErrBadFormats indicates the format list contained an empty or blank specifier.
var ErrBadFormats = errors.New("invalid formats")

// ErrExtraction wraps any failure of the external extraction collaborator,
// including credential staging and artifact persistence. The underlying
// cause is carried in the message.
var ErrExtraction = errors.New("download failed")

// Delivery rejection kinds, evaluated in strict order. The four must stay
// distinct so clients can tell a vanished file from an ungoverned one, a
// wrong token from a stale URL.
var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileExpired  = errors.New("file expired")
	ErrForbidden    = errors.New("forbidden")
	ErrURLExpired   = errors.New("url expired")
)

// IngestRequest names a remote source and the desired formats.
type IngestRequest struct {
	URL     string
	Cookies string   // optional credential blob, staged per request
	Formats []string // ordered; empty means ["best"]
}

// IngestResult is one successfully produced artifact.
type IngestResult struct {
	Filename    string
	DownloadURL string
	Format      string
	Title       string
	Duration    float64
	Ext         string
}

// Service orchestrates ingestion and delivery using the injected ports.
type Service struct {
	Registry    GrantRegistry
	Files       FileStore
	Extractor   Extractor
	Cookies     CredentialStager
	Clock       Clock
	Metrics     Recorder // optional
	BaseURL     string   // public base, e.g. "http://localhost:8080"
	URLValidity time.Duration
	Logger      *slog.Logger // optional
}

// Ingest drives the extraction collaborator for each requested format in
// order, persists results into the file store, and registers a fresh grant
// per produced file.
//
// Failure policy is fail-fast without rollback: the first failing format
// aborts the request and the whole response reports failure, but files and
// grants committed for earlier formats remain live and retrievable. This
// asymmetry is deliberate, observable behavior.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) ([]IngestResult, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, ErrMissingURL
	}
	formats := req.Formats
	if len(formats) == 0 {
		formats = []string{"best"}
	}
	for _, f := range formats {
		if strings.TrimSpace(f) == "" {
			return nil, ErrBadFormats
		}
	}

	opts, release, err := s.stageCredentials(req.Cookies)
	if err != nil {
		return nil, fmt.Errorf("%w: stage credentials: %v", ErrExtraction, err)
	}
	defer release()

	info, err := s.Extractor.Probe(ctx, req.URL, opts)
	if err != nil {
		s.inc(CounterExtractionFailed, 1)
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	results := make([]IngestResult, 0, len(formats))
	for _, format := range formats {
		src, err := s.Extractor.Fetch(ctx, req.URL, format, opts)
		if err != nil {
			s.inc(CounterExtractionFailed, 1)
			return nil, fmt.Errorf("%w: format %q: %v", ErrExtraction, format, err)
		}
		name := domain.DeriveFilename(info.Title, format, info.Ext)
		if err := s.Files.Ingest(src, name); err != nil {
			return nil, fmt.Errorf("%w: persist %q: %v", ErrExtraction, name, err)
		}
		grant, err := domain.NewGrant(name, s.Clock.Now())
		if err != nil {
			return nil, err
		}
		s.Registry.Put(name, grant)
		s.inc(CounterDownloads, 1)
		results = append(results, IngestResult{
			Filename:    name,
			DownloadURL: s.downloadURL(name, grant.Token),
			Format:      format,
			Title:       info.Title,
			Duration:    info.Duration,
			Ext:         info.Ext,
		})
	}
	return results, nil
}

// Probe resolves source metadata and available formats without downloading.
func (s *Service) Probe(ctx context.Context, srcURL, cookies string) (ProbeResult, error) {
	if strings.TrimSpace(srcURL) == "" {
		return ProbeResult{}, ErrMissingURL
	}
	opts, release, err := s.stageCredentials(cookies)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("%w: stage credentials: %v", ErrExtraction, err)
	}
	defer release()
	info, err := s.Extractor.Probe(ctx, srcURL, opts)
	if err != nil {
		s.inc(CounterExtractionFailed, 1)
		return ProbeResult{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return info, nil
}

// Deliver validates a (filename, token) pair and returns a stream over the
// file content. The checks run in strict order; the first failing check
// determines the error kind.
func (s *Service) Deliver(ctx context.Context, filename, token string) (io.ReadCloser, int64, error) {
	_ = ctx
	if !domain.ValidFilename(filename) {
		return nil, 0, ErrFileNotFound
	}
	if !s.Files.Exists(filename) {
		s.inc(CounterDeliveryRejected, 1)
		return nil, 0, ErrFileNotFound
	}
	grant, ok := s.Registry.Get(filename)
	if !ok {
		// File present but ungoverned: the narrow race where the reaper (or a
		// crash) removed the entry but the file survives.
		s.inc(CounterDeliveryRejected, 1)
		return nil, 0, ErrFileExpired
	}
	tok, err := domain.ParseToken(token)
	if err != nil || !grant.Token.Equal(tok) {
		s.inc(CounterDeliveryRejected, 1)
		return nil, 0, ErrForbidden
	}
	if grant.ExpiredAfter(s.Clock.Now(), s.URLValidity) {
		s.inc(CounterDeliveryRejected, 1)
		return nil, 0, ErrURLExpired
	}
	rc, size, err := s.Files.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Reaped between the Exists check and Open.
			s.inc(CounterDeliveryRejected, 1)
			return nil, 0, ErrFileNotFound
		}
		return nil, 0, err
	}
	s.inc(CounterDeliveries, 1)
	return rc, size, nil
}

// stageCredentials stages the cookie blob if present and returns the extract
// options plus a release func that is safe on every exit path.
func (s *Service) stageCredentials(blob string) (ExtractOptions, func(), error) {
	if blob == "" || s.Cookies == nil {
		return ExtractOptions{}, func() {}, nil
	}
	path, cleanup, err := s.Cookies.Stage(blob)
	if err != nil {
		return ExtractOptions{}, func() {}, err
	}
	release := func() {
		if cerr := cleanup(); cerr != nil && s.Logger != nil {
			s.Logger.Warn("remove staged credentials", "error", cerr)
		}
	}
	return ExtractOptions{CookieFile: path}, release, nil
}

// downloadURL embeds the filename and token into a public delivery URL.
func (s *Service) downloadURL(filename string, tok domain.Token) string {
	base := strings.TrimRight(s.BaseURL, "/")
	return base + "/downloads/" + url.PathEscape(filename) + "?token=" + tok.String()
}

func (s *Service) inc(name string, delta int64) {
	if s.Metrics != nil {
		s.Metrics.Inc(name, delta)
	}
}
