package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/llehouerou/songbook/internal/abc"
)

// fileResult is the output of one parse worker.
type fileResult struct {
	info        fileInfo
	song        abc.Song
	snapshot    []byte
	fingerprint string
	readErr     error
}

// processFiles parses changed files on a worker pool and commits each
// outcome sequentially. Extraction and resolution are pure functions of
// one file's bytes; all identity lookups, catalog creation and writes
// happen on this goroutine only, which is the serialization the
// identity resolver requires.
func (l *Library) processFiles(ctx context.Context, toProcess []fileInfo, opts ScanOptions, stats *ScanStats, report func(ScanProgress)) {
	total := len(toProcess)
	workCh := make(chan fileInfo, total)
	resultCh := make(chan fileResult, total)

	var wg sync.WaitGroup
	for range opts.workers() {
		wg.Go(func() {
			for f := range workCh {
				if ctx.Err() != nil {
					continue
				}
				resultCh <- parseFile(f, opts)
			}
		})
	}

	go func() {
		for _, f := range toProcess {
			workCh <- f
		}
		close(workCh)
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	done := 0
	for res := range resultCh {
		// Cancellation takes effect between files; a file already being
		// committed finishes, a file not yet started is abandoned.
		if ctx.Err() != nil {
			continue
		}
		if err := l.commitResult(context.WithoutCancel(ctx), res, opts, stats); err != nil {
			stats.Errors[res.info.path] = err.Error()
			l.log.Error("reconcile failed", "path", res.info.path, "error", err)
		}
		done++
		report(ScanProgress{Phase: "processing", Current: done, Total: total, CurrentFile: res.info.path})
	}
}

// parseFile reads and parses one file. Pure except for the read itself:
// a stuck file times out and is reported as errored, never retried
// within the same scan.
func parseFile(f fileInfo, opts ScanOptions) fileResult {
	res := fileResult{info: f}
	if f.class == ClassExcluded {
		// Excluded files are tracked but never parsed.
		return res
	}

	data, err := readFileTimeout(f.path, opts.readTimeout())
	if err != nil {
		res.readErr = err
		return res
	}
	if opts.Fingerprint {
		res.fingerprint = fingerprintBytes(data)
	}
	header := abc.Extract(string(data))
	res.song = abc.Resolve(header, filepath.Base(f.path))
	res.snapshot, _ = json.Marshal(res.song)
	return res
}

// commitResult applies one file's outcome to the store. Each file
// commits independently; a failure here is recorded against the file
// and the scan continues.
func (l *Library) commitResult(ctx context.Context, res fileResult, opts ScanOptions, stats *ScanStats) error {
	f := res.info

	if res.readErr != nil {
		if _, err := l.markFileState(ctx, f.path, f.mtime, f.class, res.readErr.Error()); err != nil {
			return err
		}
		stats.Errors[f.path] = res.readErr.Error()
		return nil
	}

	if f.class == ClassExcluded {
		file, err := l.markFileState(ctx, f.path, f.mtime, ClassExcluded, "")
		if err != nil {
			return err
		}
		if file.SongID != 0 {
			if err := l.unlinkFile(ctx, file.ID, false); err != nil {
				return err
			}
		}
		stats.Excluded++
		return nil
	}

	// Fingerprint fast path: mtime moved but the bytes did not (touch
	// without edit). Record the new mtime, write nothing derived.
	if ex := f.existing; ex != nil && opts.Fingerprint &&
		ex.Fingerprint != "" && ex.Fingerprint == res.fingerprint &&
		ex.Classification == f.class && !ex.Missing && ex.ParseError == "" {
		if err := l.touchFile(ctx, ex.ID, f.mtime); err != nil {
			return err
		}
		stats.Skipped++
		return nil
	}

	file, err := l.upsertFile(ctx, f.path, f.mtime, res.fingerprint,
		res.song.ExportTimestamp, f.class, res.snapshot)
	if err != nil {
		return err
	}

	parts, err := l.resolveParts(ctx, res.song)
	if err != nil {
		return fmt.Errorf("resolve instruments: %w", err)
	}

	outcome, err := l.resolveFile(ctx, file, res.song, parts)
	if err != nil {
		return err
	}
	switch outcome {
	case "added":
		stats.Added++
	case "updated":
		stats.Updated++
	case "linked", "ignored":
		stats.Linked++
	case "collision":
		stats.Collisions++
	}
	return nil
}

// readFileTimeout reads a file, giving up after timeout so one stuck
// file cannot block a scan.
func readFileTimeout(path string, timeout time.Duration) ([]byte, error) {
	type readResult struct {
		data []byte
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		data, err := os.ReadFile(path)
		ch <- readResult{data, err}
	}()
	select {
	case r := <-ch:
		return r.data, r.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("read %s: timed out after %s", path, timeout)
	}
}
