package library

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS songs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			title_key TEXT NOT NULL,
			composers TEXT NOT NULL,
			transcriber TEXT,
			duration_seconds INTEGER,
			title_source TEXT NOT NULL DEFAULT 'none',
			composers_source TEXT NOT NULL DEFAULT 'none',
			transcriber_source TEXT NOT NULL DEFAULT 'none',
			duration_source TEXT NOT NULL DEFAULT 'none',
			-- App-only fields. Created NULL/0 and never written by the
			-- scan pipeline; they survive every derived-field re-sync.
			rating INTEGER,
			status TEXT,
			notes TEXT,
			lyrics TEXT,
			last_played_at INTEGER,
			total_plays INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_songs_title_key ON songs(title_key);

		CREATE TABLE IF NOT EXISTS song_parts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			song_id INTEGER NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
			part_number INTEGER NOT NULL,
			part_name TEXT,
			instrument_id INTEGER REFERENCES instruments(id),
			UNIQUE(song_id, part_number)
		);

		CREATE INDEX IF NOT EXISTS idx_song_parts_song ON song_parts(song_id);

		CREATE TABLE IF NOT EXISTS song_files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			song_id INTEGER REFERENCES songs(id),
			path TEXT NOT NULL UNIQUE,
			mtime INTEGER NOT NULL DEFAULT 0,
			fingerprint TEXT,
			export_timestamp TEXT,
			classification TEXT NOT NULL DEFAULT 'primary',
			missing INTEGER NOT NULL DEFAULT 0,
			ignored INTEGER NOT NULL DEFAULT 0,
			parse_error TEXT,
			snapshot TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_song_files_song ON song_files(song_id);

		CREATE TABLE IF NOT EXISTS instruments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL UNIQUE,
			alternative_names TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS collisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_a INTEGER NOT NULL REFERENCES song_files(id),
			file_b INTEGER NOT NULL REFERENCES song_files(id),
			state TEXT NOT NULL DEFAULT 'unresolved',
			created_at INTEGER NOT NULL,
			resolved_at INTEGER,
			UNIQUE(file_a, file_b)
		);

		CREATE INDEX IF NOT EXISTS idx_collisions_state ON collisions(state);

		CREATE TABLE IF NOT EXISTS folder_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			kind TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_folder_rules_kind ON folder_rules(kind);
	`)
	if err != nil {
		return err
	}

	_, err = conn.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	return err
}
