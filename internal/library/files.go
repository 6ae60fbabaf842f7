package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/llehouerou/songbook/internal/db"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*File, error) {
	var f File
	var songID sql.NullInt64
	var fingerprint, exportTS, parseErr sql.NullString
	var classification string
	var missing, ignored int

	err := row.Scan(&f.ID, &songID, &f.Path, &f.Mtime, &fingerprint, &exportTS,
		&classification, &missing, &ignored, &parseErr)
	if err != nil {
		return nil, err
	}
	f.SongID = db.NullInt64Value(songID)
	f.Fingerprint = db.NullStringValue(fingerprint)
	f.ExportTimestamp = db.NullStringValue(exportTS)
	f.Classification = Classification(classification)
	f.Missing = missing != 0
	f.Ignored = ignored != 0
	f.ParseError = db.NullStringValue(parseErr)
	return &f, nil
}

const fileColumns = `id, song_id, path, mtime, fingerprint, export_timestamp,
	classification, missing, ignored, parse_error`

// FileByPath returns the tracked file for a path, or nil when untracked.
func (l *Library) FileByPath(ctx context.Context, path string) (*File, error) {
	f, err := scanFile(l.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM song_files WHERE path = ?`, path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// FileByID returns a tracked file by id.
func (l *Library) FileByID(ctx context.Context, id int64) (*File, error) {
	f, err := scanFile(l.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM song_files WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Files returns all tracked files ordered by path.
func (l *Library) Files(ctx context.Context) ([]File, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM song_files ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// FilesForSong returns the tracked files linked to a song.
func (l *Library) FilesForSong(ctx context.Context, songID int64) ([]File, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM song_files WHERE song_id = ? ORDER BY path`, songID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// upsertFile writes the parsed state of a file, preserving any existing
// song link and ignored flag and clearing a previous error state.
// Returns the row with its id.
func (l *Library) upsertFile(ctx context.Context, path string, mtime int64,
	fingerprint, exportTS string, class Classification, snapshot []byte,
) (*File, error) {
	now := time.Now().Unix()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO song_files (path, mtime, fingerprint, export_timestamp,
			classification, missing, ignored, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime = excluded.mtime,
			fingerprint = excluded.fingerprint,
			export_timestamp = excluded.export_timestamp,
			classification = excluded.classification,
			missing = 0,
			parse_error = NULL,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at
	`, path, mtime, db.NullString(fingerprint), db.NullString(exportTS),
		string(class), snapshotValue(snapshot), now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert file %s: %w", path, err)
	}
	return l.FileByPath(ctx, path)
}

func snapshotValue(snapshot []byte) any {
	if len(snapshot) == 0 {
		return nil
	}
	return string(snapshot)
}

// markFileState upserts only the observed state of a file (mtime,
// classification, error), preserving any stored fingerprint, export
// timestamp and parse snapshot. Used for unreadable and excluded files.
func (l *Library) markFileState(ctx context.Context, path string, mtime int64,
	class Classification, parseErr string,
) (*File, error) {
	now := time.Now().Unix()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO song_files (path, mtime, classification, missing, ignored,
			parse_error, created_at, updated_at)
		VALUES (?, ?, ?, 0, 0, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime = excluded.mtime,
			classification = excluded.classification,
			missing = 0,
			parse_error = excluded.parse_error,
			updated_at = excluded.updated_at
	`, path, mtime, string(class), db.NullString(parseErr), now, now)
	if err != nil {
		return nil, fmt.Errorf("mark file %s: %w", path, err)
	}
	return l.FileByPath(ctx, path)
}

// touchFile records a new mtime without any derived-field writes. Used
// when the fingerprint proves the content did not change.
func (l *Library) touchFile(ctx context.Context, id, mtime int64) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE song_files SET mtime = ?, updated_at = ? WHERE id = ?`,
		mtime, time.Now().Unix(), id)
	return err
}

// linkFile points a file at a song.
func (l *Library) linkFile(ctx context.Context, fileID, songID int64) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE song_files SET song_id = ?, ignored = 0, updated_at = ? WHERE id = ?
	`, songID, time.Now().Unix(), fileID)
	if err != nil {
		return fmt.Errorf("link file %d: %w", fileID, err)
	}
	return nil
}

// unlinkFile clears a file's song reference. The row itself is kept:
// absence on disk and exclusion are states, not deletions.
func (l *Library) unlinkFile(ctx context.Context, fileID int64, markMissing bool) error {
	missing := 0
	if markMissing {
		missing = 1
	}
	_, err := l.db.ExecContext(ctx, `
		UPDATE song_files SET song_id = NULL, missing = ?, updated_at = ? WHERE id = ?
	`, missing, time.Now().Unix(), fileID)
	return err
}

// fileSnapshot returns the last-parsed snapshot bytes for a file.
func (l *Library) fileSnapshot(ctx context.Context, fileID int64) ([]byte, error) {
	var snap sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT snapshot FROM song_files WHERE id = ?`, fileID).Scan(&snap)
	if err != nil {
		return nil, err
	}
	if !snap.Valid {
		return nil, nil
	}
	return []byte(snap.String), nil
}

// EditConflict reports whether the on-disk file changed since the index
// last recorded it. The editor collaborator calls this before saving an
// in-app edit; resolution policy is its problem, detection is ours.
func (l *Library) EditConflict(ctx context.Context, path string) (bool, error) {
	f, err := l.FileByPath(ctx, path)
	if err != nil {
		return false, err
	}
	if f == nil {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		// Gone on disk counts as an external change.
		return true, nil //nolint:nilerr
	}
	if info.ModTime().Unix() == f.Mtime {
		return false, nil
	}
	if f.Fingerprint != "" {
		sum, err := fingerprintFile(path)
		if err == nil && sum == f.Fingerprint {
			return false, nil
		}
	}
	return true, nil
}
