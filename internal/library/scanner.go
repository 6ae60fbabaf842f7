package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	defaultWorkers     = 8
	defaultReadTimeout = 10 * time.Second
)

// ErrScanActive is returned when a scan is requested while one is
// already running. Watch-driven triggers merge instead.
var ErrScanActive = errors.New("a scan is already running")

// ScanOptions tunes one reconciliation pass.
type ScanOptions struct {
	Full        bool // re-parse everything, ignoring modification times
	Fingerprint bool // hash changed files to suppress no-op rewrites
	Workers     int
	ReadTimeout time.Duration // per-file read timeout
}

func (o ScanOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return defaultWorkers
}

func (o ScanOptions) readTimeout() time.Duration {
	if o.ReadTimeout > 0 {
		return o.ReadTimeout
	}
	return defaultReadTimeout
}

// ScanProgress reports the progress of a scan.
type ScanProgress struct {
	Phase       string // "scanning", "processing", "cleaning", "done"
	Current     int
	Total       int
	CurrentFile string
}

// ScanStats holds the outcome of a completed scan.
type ScanStats struct {
	Found      int
	Added      int
	Updated    int
	Linked     int
	Skipped    int
	Removed    int
	Excluded   int
	Collisions int
	Errors     map[string]string // path -> error, scan continued past these
}

// Scan runs one reconciliation pass over the configured roots. At most
// one scan runs per library; a second call fails with ErrScanActive
// rather than racing.
func (l *Library) Scan(ctx context.Context, opts ScanOptions, progress chan<- ScanProgress) (*ScanStats, error) {
	if !l.beginScan() {
		if progress != nil {
			close(progress)
		}
		return nil, ErrScanActive
	}
	defer l.endScan()
	return l.scan(ctx, opts, progress)
}

// TriggerScan requests a scan without blocking. If one is running the
// request is merged: the active scan is followed by exactly one more,
// regardless of how many triggers arrived meanwhile. Watch events
// funnel through here so they share the manual scan path.
func (l *Library) TriggerScan(ctx context.Context, opts ScanOptions) {
	l.scanMu.Lock()
	if l.scanActive {
		l.scanQueued = true
		l.queuedCtx, l.queuedOpts = ctx, opts
		l.scanMu.Unlock()
		return
	}
	l.scanActive = true
	l.scanMu.Unlock()

	go l.runScans(ctx, opts)
}

// runScans runs one scan pass plus any pass queued while it ran. The
// caller must hold the active-scan flag; runScans releases it.
func (l *Library) runScans(ctx context.Context, opts ScanOptions) {
	for {
		if ctx.Err() == nil {
			if _, err := l.scan(ctx, opts, nil); err != nil {
				l.log.Error("triggered scan failed", "error", err)
			}
		}
		l.scanMu.Lock()
		if l.scanQueued {
			l.scanQueued = false
			ctx, opts = l.queuedCtx, l.queuedOpts
			l.scanMu.Unlock()
			continue
		}
		l.scanActive = false
		l.scanMu.Unlock()
		return
	}
}

func (l *Library) beginScan() bool {
	l.scanMu.Lock()
	defer l.scanMu.Unlock()
	if l.scanActive {
		return false
	}
	l.scanActive = true
	return true
}

// endScan releases the active-scan flag, first handing it to any pass
// queued by TriggerScan while this scan ran: a deferred trigger is run,
// never discarded.
func (l *Library) endScan() {
	l.scanMu.Lock()
	if l.scanQueued {
		l.scanQueued = false
		ctx, opts := l.queuedCtx, l.queuedOpts
		l.scanMu.Unlock()
		go l.runScans(ctx, opts)
		return
	}
	l.scanActive = false
	l.scanMu.Unlock()
}

func (l *Library) scan(ctx context.Context, opts ScanOptions, progress chan<- ScanProgress) (*ScanStats, error) {
	if progress != nil {
		defer close(progress)
	}
	report := func(p ScanProgress) {
		if progress != nil {
			progress <- p
		}
	}

	stats := &ScanStats{Errors: make(map[string]string)}

	rules, err := l.enabledRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load folder rules: %w", err)
	}
	if len(rules.roots()) == 0 {
		// No configured roots: a valid no-op over an empty set.
		report(ScanProgress{Phase: "done"})
		return stats, nil
	}

	// Phase 1: enumerate roots and classify.
	report(ScanProgress{Phase: "scanning"})
	files := discoverFiles(rules, report)
	stats.Found = len(files)

	existing, err := l.existingFiles(ctx, rules)
	if err != nil {
		return nil, err
	}

	// Change detection: modification time is the primary signal.
	toProcess := make([]fileInfo, 0, len(files))
	discovered := make(map[string]bool, len(files))
	for _, f := range files {
		discovered[f.path] = true
		ex := existing[f.path]
		if ex != nil && !opts.Full && !ex.Missing &&
			ex.Mtime == f.mtime && ex.Classification == f.class {
			// Excluded files stay excluded in the stats whether or not
			// they changed, so identical trees report identically.
			if f.class == ClassExcluded {
				stats.Excluded++
			} else {
				stats.Skipped++
			}
			continue
		}
		f.existing = ex
		toProcess = append(toProcess, f)
	}

	// Phase 2: parse changed files in parallel, commit sequentially.
	if len(toProcess) > 0 {
		l.processFiles(ctx, toProcess, opts, stats, report)
	}

	// Phase 3: unlink files that vanished from disk. Rows stay: absence
	// is an observable state, not a deletion.
	report(ScanProgress{Phase: "cleaning"})
	for path, ex := range existing {
		if discovered[path] || ex.Missing {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if err := l.unlinkFile(context.WithoutCancel(ctx), ex.ID, true); err != nil {
			stats.Errors[path] = err.Error()
			continue
		}
		stats.Removed++
	}

	report(ScanProgress{Phase: "done", Current: stats.Found, Total: stats.Found})
	if ctx.Err() != nil {
		return stats, ctx.Err()
	}
	return stats, nil
}

// existingFiles returns tracked files under the scanned roots, by path.
// Rows outside every configured root are left untouched by the scan.
func (l *Library) existingFiles(ctx context.Context, rules *ruleSet) (map[string]*File, error) {
	files, err := l.Files(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*File, len(files))
	for i := range files {
		if underAny(files[i].Path, rules.roots()) {
			out[files[i].Path] = &files[i]
		}
	}
	return out, nil
}

func fingerprintBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fingerprintFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return fingerprintBytes(data), nil
}
