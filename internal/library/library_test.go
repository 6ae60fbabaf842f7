package library

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/llehouerou/songbook/internal/abc"
	"github.com/llehouerou/songbook/internal/db"
)

func setupTestLib(t *testing.T) *Library {
	t.Helper()
	conn, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	lib, err := New(conn)
	if err != nil {
		t.Fatalf("failed to init library: %v", err)
	}
	return lib
}

// resolveContent pushes one file through the same steps the scan
// committer runs: upsert, instrument resolution, identity resolution.
func resolveContent(t *testing.T, lib *Library, path string, mtime int64, class Classification, content string) (*File, string) {
	t.Helper()
	ctx := context.Background()

	song := abc.Resolve(abc.Extract(content), filepath.Base(path))
	snapshot, err := json.Marshal(song)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	file, err := lib.upsertFile(ctx, path, mtime, "", song.ExportTimestamp, class, snapshot)
	if err != nil {
		t.Fatalf("upsert %s: %v", path, err)
	}
	parts, err := lib.resolveParts(ctx, song)
	if err != nil {
		t.Fatalf("resolve parts for %s: %v", path, err)
	}
	outcome, err := lib.resolveFile(ctx, file, song, parts)
	if err != nil {
		t.Fatalf("resolve %s: %v", path, err)
	}
	return file, outcome
}

const twoPartSong = `X: 1
T: The Misty Mountains
C: Thorin
%%song-duration 2:30
%%part-name Lute
%%made-for Lute of Ages
abc |
X: 2
%%part-name Flute
def |
`

func TestFileStatus(t *testing.T) {
	tests := []struct {
		file File
		want string
	}{
		{File{Classification: ClassExcluded}, "excluded"},
		{File{Classification: ClassPrimary, Missing: true}, "missing"},
		{File{Classification: ClassPrimary, ParseError: "boom"}, "error"},
		{File{Classification: ClassPrimary, Ignored: true}, "ignored"},
		{File{Classification: ClassPrimary}, "collision"},
		{File{Classification: ClassPrimary, SongID: 1}, "parsed"},
	}
	for _, tt := range tests {
		if got := tt.file.Status(); got != tt.want {
			t.Errorf("Status(%+v) = %q, want %q", tt.file, got, tt.want)
		}
	}
}
