// Package extract adapts yt-dlp (via go-ytdlp) to the app.Extractor port.
// It is the only package that talks to the external extraction collaborator;
// every failure it returns is translated by the service into the single
// opaque download-failed kind, with the collaborator's message as cause.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lrstanley/go-ytdlp"

	"github.com/vidrelay/vidrelay/internal/app"
)

// Client implements app.Extractor by shelling out to yt-dlp. Artifacts are
// produced into per-call scratch directories under Dir; the caller takes
// ownership of the returned path.
type Client struct {
	dir    string
	logger *slog.Logger
}

// New returns a Client writing scratch artifacts under dir.
func New(dir string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{dir: dir, logger: logger}
}

// Install ensures a usable yt-dlp binary is present, downloading one if the
// host has none. Called once at startup.
func Install(ctx context.Context) error {
	_, err := ytdlp.Install(ctx, nil)
	return err
}

// probePayload mirrors the subset of yt-dlp's single-JSON dump this service
// consumes.
type probePayload struct {
	Title     string               `json:"title"`
	Thumbnail string               `json:"thumbnail"`
	Duration  float64              `json:"duration"`
	Ext       string               `json:"ext"`
	Formats   []probeFormatPayload `json:"formats"`
}

type probeFormatPayload struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Resolution     string  `json:"resolution"`
	TBR            float64 `json:"tbr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	URL            string  `json:"url"`
}

// Probe resolves source metadata and the advertised formats without
// downloading anything.
func (c *Client) Probe(ctx context.Context, url string, opts app.ExtractOptions) (app.ProbeResult, error) {
	cmd := ytdlp.New().
		SkipDownload().
		DumpSingleJSON().
		NoPlaylist().
		NoWarnings()
	if opts.CookieFile != "" {
		cmd = cmd.Cookies(opts.CookieFile)
	}
	res, err := cmd.Run(ctx, url)
	if err != nil {
		return app.ProbeResult{}, err
	}
	var raw probePayload
	if err := json.Unmarshal([]byte(res.Stdout), &raw); err != nil {
		return app.ProbeResult{}, fmt.Errorf("parse extractor output: %w", err)
	}
	return toProbeResult(raw), nil
}

// toProbeResult maps the raw yt-dlp dump onto the port types. Video-less
// formats report "audio only" in place of a resolution.
func toProbeResult(raw probePayload) app.ProbeResult {
	out := app.ProbeResult{
		MediaInfo: app.MediaInfo{
			Title:     orUnknown(raw.Title),
			Duration:  raw.Duration,
			Ext:       raw.Ext,
			Thumbnail: raw.Thumbnail,
		},
		Formats: make([]app.FormatInfo, 0, len(raw.Formats)),
	}
	for _, f := range raw.Formats {
		resolution := f.Resolution
		if f.VCodec == "" || f.VCodec == "none" {
			resolution = "audio only"
		} else if resolution == "" {
			resolution = "unknown"
		}
		size := f.Filesize
		if size == 0 {
			size = f.FilesizeApprox
		}
		out.Formats = append(out.Formats, app.FormatInfo{
			FormatID:   orUnknown(f.FormatID),
			Ext:        orUnknown(f.Ext),
			Resolution: resolution,
			Bitrate:    int64(f.TBR),
			Size:       size,
			VCodec:     orNone(f.VCodec),
			ACodec:     orNone(f.ACodec),
			URL:        f.URL,
		})
	}
	return out
}

// Fetch downloads the source in the given format and returns the produced
// file's path inside a fresh scratch directory.
func (c *Client) Fetch(ctx context.Context, url, format string, opts app.ExtractOptions) (string, error) {
	scratch, err := os.MkdirTemp(c.dir, "fetch-")
	if err != nil {
		return "", err
	}
	cmd := ytdlp.New().
		Format(format).
		NoPlaylist().
		RestrictFilenames().
		ForceOverwrites().
		NoWarnings().
		Output(filepath.Join(scratch, "%(title)s [%(id)s].%(ext)s"))
	if opts.CookieFile != "" {
		cmd = cmd.Cookies(opts.CookieFile)
	}
	res, err := cmd.Run(ctx, url)
	if err != nil {
		_ = os.RemoveAll(scratch)
		return "", err
	}
	path, err := producedFile(res, scratch)
	if err != nil {
		_ = os.RemoveAll(scratch)
		return "", err
	}
	return path, nil
}

// producedFile resolves the artifact path from the run result, falling back
// to a scratch-directory scan when yt-dlp does not report a filename.
func producedFile(res *ytdlp.Result, scratch string) (string, error) {
	if info, err := res.GetExtractedInfo(); err == nil {
		for _, i := range info {
			if i != nil && i.Filename != nil && *i.Filename != "" {
				return *i.Filename, nil
			}
		}
	}
	entries, err := os.ReadDir(scratch)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() {
			return filepath.Join(scratch, e.Name()), nil
		}
	}
	return "", errors.New("extractor reported no output file")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
