package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/llehouerou/songbook/internal/abc"
	"github.com/llehouerou/songbook/internal/db"
)

// CollisionState is the resolution state of a pending collision.
type CollisionState string

const (
	CollisionUnresolved   CollisionState = "unresolved"
	CollisionMerged       CollisionState = "merged"
	CollisionKeptSeparate CollisionState = "kept-separate"
	CollisionIgnoredOne   CollisionState = "ignored-one"
)

// Outcome is a human decision applied to a collision.
type Outcome string

const (
	OutcomeMerge        Outcome = "merge"
	OutcomeKeepSeparate Outcome = "keep-separate"
	OutcomeIgnoreOne    Outcome = "ignore-one"
)

// Collision records two primary files claiming one identity. It is
// created by the identity resolver and cleared only by ResolveCollision,
// never automatically.
type Collision struct {
	ID         int64
	FileA      int64
	FileB      int64
	State      CollisionState
	CreatedAt  int64
	ResolvedAt int64
}

// createCollision flags a file pair, once. An unresolved collision on
// the same pair (either order) is left alone.
func (l *Library) createCollision(ctx context.Context, fileA, fileB int64) error {
	var n int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM collisions
		WHERE state = 'unresolved'
		  AND ((file_a = ? AND file_b = ?) OR (file_a = ? AND file_b = ?))
	`, fileA, fileB, fileB, fileA).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO collisions (file_a, file_b, state, created_at) VALUES (?, ?, 'unresolved', ?)
	`, fileA, fileB, time.Now().Unix())
	if db.IsUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create collision: %w", err)
	}
	return nil
}

// Collisions returns unresolved collisions, oldest first.
func (l *Library) Collisions(ctx context.Context) ([]Collision, error) {
	return l.queryCollisions(ctx, `
		SELECT id, file_a, file_b, state, created_at, resolved_at
		FROM collisions WHERE state = 'unresolved' ORDER BY created_at, id
	`)
}

// AllCollisions includes resolved history.
func (l *Library) AllCollisions(ctx context.Context) ([]Collision, error) {
	return l.queryCollisions(ctx, `
		SELECT id, file_a, file_b, state, created_at, resolved_at
		FROM collisions ORDER BY created_at, id
	`)
}

func (l *Library) queryCollisions(ctx context.Context, query string) ([]Collision, error) {
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Collision
	for rows.Next() {
		var c Collision
		var state string
		var resolved sql.NullInt64
		if err := rows.Scan(&c.ID, &c.FileA, &c.FileB, &state, &c.CreatedAt, &resolved); err != nil {
			return nil, err
		}
		c.State = CollisionState(state)
		c.ResolvedAt = db.NullInt64Value(resolved)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ResolveCollision applies a human decision to an unresolved collision:
//
//   - merge: both files end up linked to one song; an emptied song is
//     deleted after its links are moved.
//   - keep-separate: each file gets its own song.
//   - ignore-one: the newer file (file_b) stays tracked but unlinked and
//     is skipped by future scans.
func (l *Library) ResolveCollision(ctx context.Context, id int64, outcome Outcome) error {
	c, err := l.collisionByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("collision %d not found", id)
	}
	if c.State != CollisionUnresolved {
		return fmt.Errorf("collision %d already resolved (%s)", id, c.State)
	}

	fileA, err := l.FileByID(ctx, c.FileA)
	if err != nil {
		return err
	}
	fileB, err := l.FileByID(ctx, c.FileB)
	if err != nil {
		return err
	}
	if fileA == nil || fileB == nil {
		return fmt.Errorf("collision %d references a deleted file row", id)
	}

	var state CollisionState
	switch outcome {
	case OutcomeMerge:
		state = CollisionMerged
		err = l.mergeFiles(ctx, fileA, fileB)
	case OutcomeKeepSeparate:
		state = CollisionKeptSeparate
		err = l.separateFiles(ctx, fileA, fileB)
	case OutcomeIgnoreOne:
		state = CollisionIgnoredOne
		_, err = l.db.ExecContext(ctx, `
			UPDATE song_files SET song_id = NULL, ignored = 1, updated_at = ? WHERE id = ?
		`, time.Now().Unix(), fileB.ID)
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}
	if err != nil {
		return err
	}

	_, err = l.db.ExecContext(ctx, `
		UPDATE collisions SET state = ?, resolved_at = ? WHERE id = ?
	`, string(state), time.Now().Unix(), id)
	return err
}

func (l *Library) collisionByID(ctx context.Context, id int64) (*Collision, error) {
	var c Collision
	var state string
	var resolved sql.NullInt64
	err := l.db.QueryRowContext(ctx, `
		SELECT id, file_a, file_b, state, created_at, resolved_at
		FROM collisions WHERE id = ?
	`, id).Scan(&c.ID, &c.FileA, &c.FileB, &state, &c.CreatedAt, &resolved)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.State = CollisionState(state)
	c.ResolvedAt = db.NullInt64Value(resolved)
	return &c, nil
}

// mergeFiles links both files to one song. Whichever file already has a
// song keeps it; the other joins. The merged song re-syncs from the
// newest primary file.
func (l *Library) mergeFiles(ctx context.Context, fileA, fileB *File) error {
	songID := fileA.SongID
	if songID == 0 {
		songID = fileB.SongID
	}
	if songID == 0 {
		var err error
		songID, err = l.songFromSnapshot(ctx, fileA)
		if err != nil {
			return err
		}
	}

	for _, f := range []*File{fileA, fileB} {
		orphan := f.SongID
		if err := l.linkFile(ctx, f.ID, songID); err != nil {
			return err
		}
		if orphan != 0 && orphan != songID {
			if err := l.deleteIfOrphan(ctx, orphan); err != nil {
				return err
			}
		}
	}
	return l.resyncFromNewest(ctx, songID)
}

// separateFiles gives each file its own song, creating one from the
// stored parse snapshot where missing.
func (l *Library) separateFiles(ctx context.Context, fileA, fileB *File) error {
	for _, f := range []*File{fileA, fileB} {
		if f.SongID != 0 {
			continue
		}
		songID, err := l.songFromSnapshot(ctx, f)
		if err != nil {
			return err
		}
		if err := l.linkFile(ctx, f.ID, songID); err != nil {
			return err
		}
	}
	return nil
}

// songFromSnapshot creates a song from a file's last-parsed snapshot.
func (l *Library) songFromSnapshot(ctx context.Context, f *File) (int64, error) {
	snap, err := l.fileSnapshot(ctx, f.ID)
	if err != nil {
		return 0, err
	}
	if len(snap) == 0 {
		return 0, fmt.Errorf("file %s has no parse snapshot", f.Path)
	}
	var song abc.Song
	if err := json.Unmarshal(snap, &song); err != nil {
		return 0, fmt.Errorf("decode snapshot for %s: %w", f.Path, err)
	}
	parts, err := l.resolveParts(ctx, song)
	if err != nil {
		return 0, err
	}
	return l.createSong(ctx, song, parts)
}

// resyncFromNewest re-runs the derived-field sync for a song from its
// newest linked primary file's snapshot.
func (l *Library) resyncFromNewest(ctx context.Context, songID int64) error {
	newest, err := l.newestLinkedFile(ctx, songID, 0, true)
	if err != nil {
		return err
	}
	if newest == nil {
		newest, err = l.newestLinkedFile(ctx, songID, 0, false)
		if err != nil || newest == nil {
			return err
		}
	}
	snap, err := l.fileSnapshot(ctx, newest.ID)
	if err != nil || len(snap) == 0 {
		return err
	}
	var song abc.Song
	if err := json.Unmarshal(snap, &song); err != nil {
		return fmt.Errorf("decode snapshot for %s: %w", newest.Path, err)
	}
	parts, err := l.resolveParts(ctx, song)
	if err != nil {
		return err
	}
	return l.syncSong(ctx, songID, song, parts)
}

// resolveParts maps parsed parts to part rows with catalog instrument
// references.
func (l *Library) resolveParts(ctx context.Context, song abc.Song) ([]Part, error) {
	parts := make([]Part, 0, len(song.Parts))
	for _, p := range song.Parts {
		part := Part{Number: p.Number, Name: p.Name}
		if p.MadeFor != "" {
			id, err := l.ResolveInstrument(ctx, p.MadeFor)
			if err != nil {
				return nil, err
			}
			part.InstrumentID = id
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// deleteIfOrphan removes a song that no longer has any linked files.
func (l *Library) deleteIfOrphan(ctx context.Context, songID int64) error {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM song_files WHERE song_id = ?`, songID).Scan(&n)
	if err != nil || n > 0 {
		return err
	}
	return l.DeleteSong(ctx, songID)
}
