// Package reaper implements background reclamation of stored files whose
// grants have outlived the retention window. It operates independently from
// the request path to keep lifecycle concerns (periodic deletion) isolated
// from ingestion and delivery logic.
//
// The reaper only ever touches files that have a registry entry; stray files
// without one (e.g. survivors of a crash) are never reclaimed and read as
// expired to clients until manually cleared.
package reaper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vidrelay/vidrelay/internal/domain"
)

// Grants abstracts the minimal registry operations the reaper requires.
type Grants interface {
	// Snapshot returns a consistent point-in-time copy of all grants.
	Snapshot() []domain.Grant
	// Remove deletes the entry for filename if present.
	Remove(filename string)
}

// Files abstracts file deletion. Remove must be idempotent: an already-absent
// file is success.
type Files interface {
	Remove(name string) error
}

// Clock abstracts time so tests can simulate elapsed retention without
// sleeping.
type Clock interface {
	Now() time.Time
}

// Recorder is the optional metrics sink.
type Recorder interface {
	Inc(name string, delta int64)
	Observe(name string, value int64)
}

// Metric names emitted per cycle.
const (
	CounterFilesReaped    = "files_reaped_total"
	SummaryReapedPerCycle = "reaper_deleted_per_cycle"
)

// Config holds tunables for the Reaper.
type Config struct {
	// Interval is how often a scan cycle begins (default 5 minutes).
	Interval time.Duration
	// Retention is the grant age beyond which a file and its entry are
	// reclaimed.
	Retention time.Duration
	Logger    *slog.Logger // optional logger (defaults to slog.Default())
}

// Metrics accumulates counters (in-memory) for operational insight.
type Metrics struct {
	mu                  sync.Mutex
	Cycles              uint64
	Reaped              uint64
	Failed              uint64
	CycleLastDurationMS int64
}

// MetricsView is a read-only snapshot safe to copy.
type MetricsView struct {
	Cycles              uint64
	Reaped              uint64
	Failed              uint64
	CycleLastDurationMS int64
}

func (m *Metrics) addReaped(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.Reaped += uint64(n)
	m.mu.Unlock()
}

func (m *Metrics) addFailed(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.Failed += uint64(n)
	m.mu.Unlock()
}

func (m *Metrics) recordCycle(d time.Duration) {
	m.mu.Lock()
	m.Cycles++
	m.CycleLastDurationMS = d.Milliseconds()
	m.mu.Unlock()
}

// Reaper encapsulates the background reclamation loop. It is started once at
// process startup and expected to run for the process lifetime; Stop exists
// so a graceful shutdown can let an in-flight cycle finish.
type Reaper struct {
	grants   Grants
	files    Files
	clock    Clock
	cfg      Config
	metrics  *Metrics
	recorder Recorder

	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New constructs but does not start a Reaper.
func New(grants Grants, files Files, clock Clock, cfg Config) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Reaper{
		grants:  grants,
		files:   files,
		clock:   clock,
		cfg:     cfg,
		metrics: &Metrics{},
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// SetRecorder attaches an optional metrics sink. Must be called before Start.
func (r *Reaper) SetRecorder(rec Recorder) { r.recorder = rec }

// Start launches the reaper loop in a new goroutine.
func (r *Reaper) Start(ctx context.Context) {
	if r.ticker != nil {
		return
	} // already started
	r.ticker = time.NewTicker(r.cfg.Interval)
	go r.loop(ctx)
}

// Stop signals the loop to exit and waits for completion.
func (r *Reaper) Stop() {
	r.once.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

// MetricsSnapshot returns a copy of current metrics.
func (r *Reaper) MetricsSnapshot() MetricsView {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()
	return MetricsView{
		Cycles:              r.metrics.Cycles,
		Reaped:              r.metrics.Reaped,
		Failed:              r.metrics.Failed,
		CycleLastDurationMS: r.metrics.CycleLastDurationMS,
	}
}

func (r *Reaper) loop(ctx context.Context) {
	log := r.cfg.Logger.With("domain", "reaper")
	defer func() {
		if r.ticker != nil {
			r.ticker.Stop()
		}
		close(r.doneCh)
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("reaper stop", "reason", "context_cancel")
			return
		case <-r.stopCh:
			log.Info("reaper stop", "reason", "stop_signal")
			return
		case <-r.ticker.C:
			r.runCycle()
		}
	}
}

// runCycle performs one scan over a registry snapshot. For each grant past
// retention the backing file is deleted first, then the registry entry is
// removed; the entry is removed even when the file deletion fails, since a
// missing file is equivalent to reclaimed from the client's perspective.
func (r *Reaper) runCycle() {
	start := time.Now()
	log := r.cfg.Logger.With("domain", "reaper", "action", "cycle")
	now := r.clock.Now()
	reaped, failed := 0, 0
	for _, g := range r.grants.Snapshot() {
		if !g.ExpiredAfter(now, r.cfg.Retention) {
			continue
		}
		if err := r.files.Remove(g.Filename); err != nil {
			failed++
			log.Error("remove file", "filename", g.Filename, "error", err)
		}
		r.grants.Remove(g.Filename)
		reaped++
	}
	r.metrics.addReaped(reaped)
	r.metrics.addFailed(failed)
	r.metrics.recordCycle(time.Since(start))
	if r.recorder != nil {
		r.recorder.Inc(CounterFilesReaped, int64(reaped))
		r.recorder.Observe(SummaryReapedPerCycle, int64(reaped))
	}
	log.Info("cycle complete", "reaped", reaped, "failed_removes", failed, "ms", time.Since(start).Milliseconds())
}
