package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/llehouerou/songbook/internal/db"
)

const songColumns = `id, title, composers, transcriber, duration_seconds,
	title_source, composers_source, transcriber_source, duration_source,
	rating, status, notes, lyrics, last_played_at, total_plays`

func scanSong(row rowScanner) (*Song, error) {
	var s Song
	var transcriber, status, notes, lyrics sql.NullString
	var duration, rating, lastPlayed sql.NullInt64

	err := row.Scan(&s.ID, &s.Title, &s.Composers, &transcriber, &duration,
		&s.TitleSource, &s.ComposersSource, &s.TranscriberSource, &s.DurationSource,
		&rating, &status, &notes, &lyrics, &lastPlayed, &s.TotalPlays)
	if err != nil {
		return nil, err
	}
	s.Transcriber = db.NullStringValue(transcriber)
	s.DurationSeconds = int(db.NullInt64Value(duration))
	s.Rating = int(db.NullInt64Value(rating))
	s.Status = db.NullStringValue(status)
	s.Notes = db.NullStringValue(notes)
	s.Lyrics = db.NullStringValue(lyrics)
	s.LastPlayedAt = db.NullInt64Value(lastPlayed)
	return &s, nil
}

// Songs returns songs with at least one linked primary file, ordered by
// title. This is the default consumer surface; set-copy-only and
// orphaned songs are hidden.
func (l *Library) Songs(ctx context.Context) ([]Song, error) {
	return l.querySongs(ctx, `
		SELECT `+songColumns+` FROM songs
		WHERE id IN (
			SELECT song_id FROM song_files
			WHERE song_id IS NOT NULL AND classification = 'primary' AND missing = 0
		)
		ORDER BY title_key, id
	`)
}

// AllSongs returns every song, including set-copy-only and orphaned
// ones.
func (l *Library) AllSongs(ctx context.Context) ([]Song, error) {
	return l.querySongs(ctx, `SELECT `+songColumns+` FROM songs ORDER BY title_key, id`)
}

func (l *Library) querySongs(ctx context.Context, query string, args ...any) ([]Song, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range songs {
		parts, err := l.songParts(ctx, songs[i].ID)
		if err != nil {
			return nil, err
		}
		songs[i].Parts = parts
	}
	return songs, nil
}

// SongByID returns one song with its parts, or nil when absent. This is
// the lookup the live-broadcast collaborator reads.
func (l *Library) SongByID(ctx context.Context, id int64) (*Song, error) {
	s, err := scanSong(l.db.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Parts, err = l.songParts(ctx, id)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NextSong returns the song following id in title order, wrapping to the
// first song. Read access only; there is no push mechanism here.
func (l *Library) NextSong(ctx context.Context, id int64) (*Song, error) {
	cur, err := l.SongByID(ctx, id)
	if err != nil || cur == nil {
		return nil, err
	}
	row := l.db.QueryRowContext(ctx, `
		SELECT id FROM songs
		WHERE (title_key, id) > (?, ?)
		ORDER BY title_key, id LIMIT 1
	`, titleKey(cur.Title), id)
	var nextID int64
	err = row.Scan(&nextID)
	if err == sql.ErrNoRows {
		err = l.db.QueryRowContext(ctx,
			`SELECT id FROM songs ORDER BY title_key, id LIMIT 1`).Scan(&nextID)
	}
	if err != nil {
		return nil, err
	}
	return l.SongByID(ctx, nextID)
}

func (l *Library) songParts(ctx context.Context, songID int64) ([]Part, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT part_number, part_name, instrument_id
		FROM song_parts WHERE song_id = ? ORDER BY part_number
	`, songID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		var p Part
		var name sql.NullString
		var instrument sql.NullInt64
		if err := rows.Scan(&p.Number, &name, &instrument); err != nil {
			return nil, err
		}
		p.Name = db.NullStringValue(name)
		p.InstrumentID = db.NullInt64Value(instrument)
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// DeleteSong removes a song after nulling out every file link. File rows
// are never cascade-deleted: they encode scan state independent of song
// identity.
func (l *Library) DeleteSong(ctx context.Context, id int64) error {
	return db.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE song_files SET song_id = NULL WHERE song_id = ?`, id); err != nil {
			return fmt.Errorf("unlink files: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM song_parts WHERE song_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM songs WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete song: %w", err)
		}
		return nil
	})
}

// SetRating updates an app-only field; scans never touch it.
func (l *Library) SetRating(ctx context.Context, id int64, rating int) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE songs SET rating = ?, updated_at = ? WHERE id = ?`,
		db.NullInt64(int64(rating)), time.Now().Unix(), id)
	return err
}

// RecordPlay bumps the app-only play statistics.
func (l *Library) RecordPlay(ctx context.Context, id int64) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE songs SET total_plays = total_plays + 1, last_played_at = ?, updated_at = ?
		WHERE id = ?
	`, time.Now().Unix(), time.Now().Unix(), id)
	return err
}
