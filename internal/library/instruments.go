package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/llehouerou/songbook/internal/db"
)

// ResolveInstrument matches made-for text to a catalog entry by primary
// name, then alternative names, creating a new entry on no match. The
// display name is stored as given; matching uses case/whitespace
// normalization only. Creation retries on the unique constraint so
// concurrent discovery of the same name yields exactly one entry.
func (l *Library) ResolveInstrument(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, nil
	}
	key := titleKey(name)

	for range 3 {
		id, err := l.matchInstrument(ctx, key)
		if err != nil {
			return 0, err
		}
		if id != 0 {
			return id, nil
		}

		now := time.Now().Unix()
		res, err := l.db.ExecContext(ctx, `
			INSERT INTO instruments (name, name_key, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, name, key, now, now)
		if db.IsUniqueViolation(err) {
			continue // lost the creation race, re-match
		}
		if err != nil {
			return 0, fmt.Errorf("create instrument %q: %w", name, err)
		}
		return res.LastInsertId()
	}
	return 0, fmt.Errorf("create instrument %q: retries exhausted", name)
}

// matchInstrument returns the id matching a normalized name via primary
// name or alternative-name list, or 0.
func (l *Library) matchInstrument(ctx context.Context, key string) (int64, error) {
	var id int64
	err := l.db.QueryRowContext(ctx,
		`SELECT id FROM instruments WHERE name_key = ?`, key).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	// The catalog is small; alternative names are matched in Go since
	// their normalization lives here.
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, alternative_names FROM instruments WHERE alternative_names IS NOT NULL`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var rowID int64
		var alts string
		if err := rows.Scan(&rowID, &alts); err != nil {
			return 0, err
		}
		for alt := range strings.SplitSeq(alts, ",") {
			if titleKey(alt) == key {
				return rowID, nil
			}
		}
	}
	return 0, rows.Err()
}

// Instruments returns the catalog ordered by name.
func (l *Library) Instruments(ctx context.Context) ([]Instrument, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, alternative_names FROM instruments ORDER BY name COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Instrument
	for rows.Next() {
		var i Instrument
		var alts sql.NullString
		if err := rows.Scan(&i.ID, &i.Name, &alts); err != nil {
			return nil, err
		}
		i.AlternativeNames = db.NullStringValue(alts)
		out = append(out, i)
	}
	return out, rows.Err()
}

// InstrumentByID returns one catalog entry, or nil.
func (l *Library) InstrumentByID(ctx context.Context, id int64) (*Instrument, error) {
	var i Instrument
	var alts sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT id, name, alternative_names FROM instruments WHERE id = ?`, id).
		Scan(&i.ID, &i.Name, &alts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	i.AlternativeNames = db.NullStringValue(alts)
	return &i, nil
}

// SetAlternativeNames replaces the comma-separated alias list used for
// matching.
func (l *Library) SetAlternativeNames(ctx context.Context, id int64, alts string) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE instruments SET alternative_names = ?, updated_at = ? WHERE id = ?
	`, db.NullString(strings.TrimSpace(alts)), time.Now().Unix(), id)
	return err
}
