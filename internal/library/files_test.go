package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestUpsertFilePreservesLinkAndIgnored(t *testing.T) {
	lib := setupTestLib(t)
	ctx := context.Background()

	file, _ := resolveContent(t, lib, "/music/song.abc", 1000, ClassPrimary, twoPartSong)
	songID := file.SongID

	// Re-upsert with new parse state; the song link must survive.
	again, err := lib.upsertFile(ctx, "/music/song.abc", 2000, "abcd", "2024-01-01", ClassPrimary, []byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if again.SongID != songID {
		t.Errorf("song id = %d, want %d", again.SongID, songID)
	}
	if again.Mtime != 2000 || again.Fingerprint != "abcd" {
		t.Errorf("file = %+v", again)
	}
	if again.ExportTimestamp != "2024-01-01" {
		t.Errorf("export = %q", again.ExportTimestamp)
	}
}

func TestMarkFileStatePreservesSnapshot(t *testing.T) {
	lib := setupTestLib(t)
	ctx := context.Background()

	file, _ := resolveContent(t, lib, "/music/song.abc", 1000, ClassPrimary, twoPartSong)
	before, err := lib.fileSnapshot(ctx, file.ID)
	if err != nil || len(before) == 0 {
		t.Fatalf("snapshot missing: %v", err)
	}

	// The file becomes unreadable: the error is recorded but the last
	// good parse stays available for collision resolution.
	marked, err := lib.markFileState(ctx, "/music/song.abc", 2000, ClassPrimary, "read timeout")
	if err != nil {
		t.Fatal(err)
	}
	if marked.ParseError != "read timeout" {
		t.Errorf("parse error = %q", marked.ParseError)
	}
	after, err := lib.fileSnapshot(ctx, file.ID)
	if err != nil || string(after) != string(before) {
		t.Errorf("snapshot changed: %v", err)
	}

	// A later clean parse clears the error.
	cleared, err := lib.upsertFile(ctx, "/music/song.abc", 3000, "", "", ClassPrimary, before)
	if err != nil {
		t.Fatal(err)
	}
	if cleared.ParseError != "" {
		t.Errorf("parse error = %q, want cleared", cleared.ParseError)
	}
}

func TestEditConflict(t *testing.T) {
	lib := setupTestLib(t)
	ctx := context.Background()
	dir := t.TempDir()

	path := filepath.Join(dir, "song.abc")
	if err := os.WriteFile(path, []byte(twoPartSong), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	sum, err := fingerprintFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lib.upsertFile(ctx, path, info.ModTime().Unix(), sum, "", ClassPrimary, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	conflict, err := lib.EditConflict(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if conflict {
		t.Error("no edit happened, no conflict expected")
	}

	// Touch without edit: the fingerprint clears it.
	later := info.ModTime().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	conflict, err = lib.EditConflict(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if conflict {
		t.Error("touch without edit must not conflict")
	}

	// A real external edit conflicts.
	if err := os.WriteFile(path, []byte(twoPartSong+"%%song-duration 9:00\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, later.Add(time.Minute), later.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	conflict, err = lib.EditConflict(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if !conflict {
		t.Error("external edit not detected")
	}

	// A vanished file counts as changed.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	conflict, _ = lib.EditConflict(ctx, path)
	if !conflict {
		t.Error("missing file should conflict")
	}

	// Untracked paths never conflict.
	conflict, err = lib.EditConflict(ctx, filepath.Join(dir, "other.abc"))
	if err != nil || conflict {
		t.Errorf("untracked = %v, %v", conflict, err)
	}
}
