// Package app defines the application layer "ports" (interfaces) and simple
// data contracts that the core use-cases of vidrelay depend upon. It follows
// a hexagonal (ports & adapters) design: this package declares what the core
// needs, while adapter packages (go-ytdlp extraction, filesystem store, HTTP
// layer, reaper job) provide concrete implementations. No I/O, logging, or
// network concerns belong here.
package app

import (
	"context"
	"io"
	"time"

	"github.com/vidrelay/vidrelay/internal/domain"
)

// Clock abstracts time to enable deterministic testing of window expiry logic.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
}

// MediaInfo is the per-request source metadata resolved once before any
// format is fetched.
type MediaInfo struct {
	Title     string
	Duration  float64 // seconds, as reported by the extractor
	Ext       string  // container extension of the preferred format
	Thumbnail string
}

// FormatInfo describes one downloadable format offered by the source.
type FormatInfo struct {
	FormatID   string
	Ext        string
	Resolution string
	Bitrate    int64
	Size       int64
	VCodec     string
	ACodec     string
	URL        string
}

// ProbeResult is the full extraction probe: source metadata plus every
// format the collaborator reports, without downloading anything.
type ProbeResult struct {
	MediaInfo
	Formats []FormatInfo
}

// ExtractOptions carries per-request options through to the extraction
// collaborator. CookieFile, when non-empty, points at staged credential
// material owned by the request.
type ExtractOptions struct {
	CookieFile string
}

// Extractor is the external extraction collaborator. Both operations may
// fail for arbitrary remote-content reasons; the service translates every
// such failure into its own extraction error kind.
type Extractor interface {
	// Probe resolves source metadata and the available formats without
	// downloading.
	Probe(ctx context.Context, url string, opts ExtractOptions) (ProbeResult, error)

	// Fetch downloads the source in the given format and returns the local
	// path of the produced artifact. The caller owns the file afterwards.
	Fetch(ctx context.Context, url, format string, opts ExtractOptions) (string, error)
}

// CredentialStager stages an opaque credential blob (a cookies file in
// Netscape format) into a transient location scoped to one request. The
// returned cleanup must be safe to call exactly once on every exit path.
type CredentialStager interface {
	Stage(blob string) (path string, cleanup func() error, err error)
}

// GrantRegistry is the registry port consumed by the request paths.
// The reaper declares its own narrower view in its package.
type GrantRegistry interface {
	Put(filename string, g domain.Grant)
	Get(filename string) (domain.Grant, bool)
}

// FileStore is the storage port for downloaded artifacts.
type FileStore interface {
	// Ingest moves a produced artifact into the store under its public name,
	// replacing any previous file with that name.
	Ingest(src, name string) error
	// Open returns a reader over the stored bytes and their size.
	Open(name string) (io.ReadCloser, int64, error)
	// Exists reports whether the file is currently present.
	Exists(name string) bool
}

// Recorder is the optional metrics port. Implementations must be safe for
// concurrent use; a nil Recorder disables recording.
type Recorder interface {
	Inc(name string, delta int64)
}

// Counter names recorded by the service.
const (
	CounterDownloads        = "downloads_total"
	CounterDeliveries       = "deliveries_total"
	CounterDeliveryRejected = "delivery_rejected_total"
	CounterExtractionFailed = "extraction_failed_total"
)
