package library

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/llehouerou/songbook/internal/abc"
	"github.com/llehouerou/songbook/internal/db"
)

var spaceRe = regexp.MustCompile(`\s+`)

// titleKey normalizes a title for identity matching: case-fold and
// whitespace-collapse. Punctuation is kept; two titles differing only in
// punctuation are different songs.
func titleKey(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(strings.ToLower(s), " "))
}

// identityKey is the logical identity of a parsed file. It is derived,
// never stored: the composer string is used verbatim (trimmed only) and
// the part count comes from the segmenter.
type identityKey struct {
	title     string
	composers string
	partCount int
}

func keyFor(song abc.Song) identityKey {
	return identityKey{
		title:     titleKey(song.Title),
		composers: strings.TrimSpace(song.Composers),
		partCount: len(song.Parts),
	}
}

// findSongsByKey returns ids of songs matching key, lowest id first,
// excluding excludeSongID when non-zero.
func (l *Library) findSongsByKey(ctx context.Context, key identityKey, excludeSongID int64) ([]int64, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT s.id FROM songs s
		WHERE s.title_key = ? AND TRIM(s.composers) = ?
		  AND (SELECT COUNT(*) FROM song_parts p WHERE p.song_id = s.id) = ?
		  AND s.id <> ?
		ORDER BY s.id
	`, key.title, key.composers, key.partCount, excludeSongID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// newestLinkedFile returns the most recently modified non-missing file
// linked to a song, optionally restricted to primary files and excluding
// one file id. Returns nil when there is none.
func (l *Library) newestLinkedFile(ctx context.Context, songID, excludeFileID int64, primaryOnly bool) (*File, error) {
	q := `
		SELECT id, song_id, path, mtime, fingerprint, export_timestamp,
		       classification, missing, ignored, parse_error
		FROM song_files
		WHERE song_id = ? AND missing = 0 AND id <> ?
	`
	if primaryOnly {
		q += ` AND classification = 'primary'`
	}
	q += ` ORDER BY mtime DESC, id LIMIT 1`

	f, err := scanFile(l.db.QueryRowContext(ctx, q, songID, excludeFileID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// hasUnresolvedCollision reports whether any unresolved collision
// involves a file linked to songID.
func (l *Library) hasUnresolvedCollision(ctx context.Context, songID int64) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM collisions c
		JOIN song_files fa ON fa.id = c.file_a
		JOIN song_files fb ON fb.id = c.file_b
		WHERE c.state = 'unresolved' AND (fa.song_id = ? OR fb.song_id = ?)
	`, songID, songID).Scan(&n)
	return n > 0, err
}

// resolveFile runs the identity algorithm for one successfully parsed
// file whose row has already been upserted. It links, creates or flags
// and keeps derived fields in sync. Must only be called from the single
// scan committer: identity lookups and collision creation are not safe
// to interleave.
func (l *Library) resolveFile(ctx context.Context, file *File, song abc.Song, parts []Part) (outcome string, err error) {
	key := keyFor(song)

	if file.SongID != 0 {
		return l.resolveLinked(ctx, file, song, parts, key)
	}
	if file.Ignored {
		// A previously ignored collision loser stays unlinked.
		return "ignored", nil
	}

	matches, err := l.findSongsByKey(ctx, key, 0)
	if err != nil {
		return "", fmt.Errorf("identity lookup: %w", err)
	}

	if len(matches) == 0 {
		songID, err := l.createSong(ctx, song, parts)
		if err != nil {
			return "", err
		}
		if err := l.linkFile(ctx, file.ID, songID); err != nil {
			return "", err
		}
		file.SongID = songID
		return "added", nil
	}

	match := matches[0]

	if file.Classification == ClassSetCopy {
		// Set copies resolve identically but never raise collisions.
		if err := l.linkFile(ctx, file.ID, match); err != nil {
			return "", err
		}
		file.SongID = match
		return l.syncIfAuthoritative(ctx, file, song, parts)
	}

	otherPrimary, err := l.newestLinkedFile(ctx, match, file.ID, true)
	if err != nil {
		return "", err
	}
	pending, err := l.hasUnresolvedCollision(ctx, match)
	if err != nil {
		return "", err
	}

	if otherPrimary != nil || pending || len(matches) > 1 {
		// Ambiguity: another primary file already claims this identity,
		// or a collision is in flight. Flag for a human, never merge.
		peer := otherPrimary
		if peer == nil {
			peer, err = l.newestLinkedFile(ctx, match, file.ID, false)
			if err != nil {
				return "", err
			}
		}
		if peer == nil {
			// Nothing concrete to pair against; safe to link.
			if err := l.linkFile(ctx, file.ID, match); err != nil {
				return "", err
			}
			file.SongID = match
			return l.syncIfAuthoritative(ctx, file, song, parts)
		}
		if err := l.createCollision(ctx, peer.ID, file.ID); err != nil {
			return "", err
		}
		return "collision", nil
	}

	// Exactly one match with no competing primary: the rename/reappear
	// case. Relink so app-only fields survive.
	if err := l.linkFile(ctx, file.ID, match); err != nil {
		return "", err
	}
	file.SongID = match
	return l.syncIfAuthoritative(ctx, file, song, parts)
}

// resolveLinked re-syncs an already linked file and flags identity
// drift onto another existing song instead of silently merging.
func (l *Library) resolveLinked(ctx context.Context, file *File, song abc.Song, parts []Part, key identityKey) (string, error) {
	outcome, err := l.syncIfAuthoritative(ctx, file, song, parts)
	if err != nil {
		return "", err
	}

	drifted, err := l.findSongsByKey(ctx, key, file.SongID)
	if err != nil {
		return "", fmt.Errorf("identity lookup: %w", err)
	}
	if len(drifted) > 0 && file.Classification == ClassPrimary {
		peer, err := l.newestLinkedFile(ctx, drifted[0], file.ID, false)
		if err != nil {
			return "", err
		}
		if peer != nil {
			if err := l.createCollision(ctx, peer.ID, file.ID); err != nil {
				return "", err
			}
			return "collision", nil
		}
	}
	return outcome, nil
}

// syncIfAuthoritative updates the song's derived fields when this file
// is the one they should reflect: the most recently modified linked
// primary file, or any file when no primary is linked.
func (l *Library) syncIfAuthoritative(ctx context.Context, file *File, song abc.Song, parts []Part) (string, error) {
	newestPrimary, err := l.newestLinkedFile(ctx, file.SongID, 0, true)
	if err != nil {
		return "", err
	}
	authoritative := newestPrimary == nil || newestPrimary.ID == file.ID
	if file.Classification != ClassPrimary && newestPrimary != nil {
		authoritative = false
	}
	if !authoritative {
		return "linked", nil
	}
	if err := l.syncSong(ctx, file.SongID, song, parts); err != nil {
		return "", err
	}
	return "updated", nil
}

// syncSong is the one-directional file-state -> derived-fields function.
// App-only columns are deliberately absent from the UPDATE.
func (l *Library) syncSong(ctx context.Context, songID int64, song abc.Song, parts []Part) error {
	return db.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		now := time.Now().Unix()
		_, err := tx.ExecContext(ctx, `
			UPDATE songs SET
				title = ?, title_key = ?, composers = ?, transcriber = ?,
				duration_seconds = ?,
				title_source = ?, composers_source = ?,
				transcriber_source = ?, duration_source = ?,
				updated_at = ?
			WHERE id = ?
		`, song.Title, titleKey(song.Title), song.Composers,
			db.NullString(song.Transcriber), db.NullInt64(int64(song.DurationSeconds)),
			string(song.Provenance.Title), string(song.Provenance.Composers),
			string(song.Provenance.Transcriber), string(song.Provenance.Duration),
			now, songID)
		if err != nil {
			return fmt.Errorf("update song %d: %w", songID, err)
		}
		return replaceParts(ctx, tx, songID, parts)
	})
}

// createSong inserts a new song with derived fields from the parse and
// all app-only fields at their defaults.
func (l *Library) createSong(ctx context.Context, song abc.Song, parts []Part) (int64, error) {
	var songID int64
	err := db.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		now := time.Now().Unix()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO songs (
				title, title_key, composers, transcriber, duration_seconds,
				title_source, composers_source, transcriber_source, duration_source,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, song.Title, titleKey(song.Title), song.Composers,
			db.NullString(song.Transcriber), db.NullInt64(int64(song.DurationSeconds)),
			string(song.Provenance.Title), string(song.Provenance.Composers),
			string(song.Provenance.Transcriber), string(song.Provenance.Duration),
			now, now)
		if err != nil {
			return fmt.Errorf("insert song: %w", err)
		}
		songID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		return replaceParts(ctx, tx, songID, parts)
	})
	return songID, err
}

func replaceParts(ctx context.Context, tx *sql.Tx, songID int64, parts []Part) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM song_parts WHERE song_id = ?`, songID); err != nil {
		return fmt.Errorf("clear parts: %w", err)
	}
	for _, p := range parts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO song_parts (song_id, part_number, part_name, instrument_id)
			VALUES (?, ?, ?, ?)
		`, songID, p.Number, db.NullString(p.Name), db.NullInt64(p.InstrumentID))
		if err != nil {
			return fmt.Errorf("insert part %d: %w", p.Number, err)
		}
	}
	return nil
}
