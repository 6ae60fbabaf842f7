package library

import (
	"context"
	"testing"
)

// collide sets up the canonical two-primary-files collision and returns
// the pair plus the collision id.
func collide(t *testing.T, lib *Library) (fileA, fileB *File, id int64) {
	t.Helper()
	fileA, _ = resolveContent(t, lib, "/music/a.abc", 1000, ClassPrimary, twoPartSong)
	fileB, outcome := resolveContent(t, lib, "/music/b.abc", 2000, ClassPrimary, twoPartSong)
	if outcome != "collision" {
		t.Fatalf("outcome = %q, want collision", outcome)
	}
	collisions, err := lib.Collisions(context.Background())
	if err != nil || len(collisions) != 1 {
		t.Fatalf("collisions = %v, %v", collisions, err)
	}
	return fileA, fileB, collisions[0].ID
}

func TestResolveCollisionMerge(t *testing.T) {
	lib := setupTestLib(t)
	ctx := context.Background()
	fileA, fileB, id := collide(t, lib)

	if err := lib.ResolveCollision(ctx, id, OutcomeMerge); err != nil {
		t.Fatalf("merge: %v", err)
	}

	a, _ := lib.FileByID(ctx, fileA.ID)
	b, _ := lib.FileByID(ctx, fileB.ID)
	if a.SongID == 0 || a.SongID != b.SongID {
		t.Errorf("after merge: song ids %d, %d; want both on one song", a.SongID, b.SongID)
	}

	songs, _ := lib.AllSongs(ctx)
	if len(songs) != 1 {
		t.Errorf("songs = %d, want 1", len(songs))
	}
	if unresolved, _ := lib.Collisions(ctx); len(unresolved) != 0 {
		t.Errorf("unresolved = %d, want 0", len(unresolved))
	}

	all, _ := lib.AllCollisions(ctx)
	if len(all) != 1 || all[0].State != CollisionMerged {
		t.Errorf("history = %+v, want one merged entry", all)
	}
	if all[0].ResolvedAt == 0 {
		t.Error("resolved_at not set")
	}
}

func TestResolveCollisionKeepSeparate(t *testing.T) {
	lib := setupTestLib(t)
	ctx := context.Background()
	fileA, fileB, id := collide(t, lib)

	if err := lib.ResolveCollision(ctx, id, OutcomeKeepSeparate); err != nil {
		t.Fatalf("keep-separate: %v", err)
	}

	a, _ := lib.FileByID(ctx, fileA.ID)
	b, _ := lib.FileByID(ctx, fileB.ID)
	if a.SongID == 0 || b.SongID == 0 {
		t.Fatal("both files must be linked after keep-separate")
	}
	if a.SongID == b.SongID {
		t.Error("files share a song, want two distinct songs")
	}

	songs, _ := lib.AllSongs(ctx)
	if len(songs) != 2 {
		t.Errorf("songs = %d, want 2", len(songs))
	}
}

func TestResolveCollisionIgnoreOne(t *testing.T) {
	lib := setupTestLib(t)
	ctx := context.Background()
	fileA, fileB, id := collide(t, lib)

	if err := lib.ResolveCollision(ctx, id, OutcomeIgnoreOne); err != nil {
		t.Fatalf("ignore-one: %v", err)
	}

	a, _ := lib.FileByID(ctx, fileA.ID)
	b, _ := lib.FileByID(ctx, fileB.ID)
	if a.SongID == 0 {
		t.Error("kept file must stay linked")
	}
	if b.SongID != 0 || !b.Ignored {
		t.Errorf("ignored file = %+v, want unlinked and ignored", b)
	}

	// A future scan of the ignored file leaves it alone.
	_, outcome := resolveContent(t, lib, "/music/b.abc", 3000, ClassPrimary, twoPartSong)
	if outcome != "ignored" {
		t.Errorf("rescan outcome = %q, want ignored", outcome)
	}
}

func TestResolveCollisionTwiceFails(t *testing.T) {
	lib := setupTestLib(t)
	ctx := context.Background()
	_, _, id := collide(t, lib)

	if err := lib.ResolveCollision(ctx, id, OutcomeMerge); err != nil {
		t.Fatal(err)
	}
	if err := lib.ResolveCollision(ctx, id, OutcomeMerge); err == nil {
		t.Error("second resolution should fail")
	}
}

func TestResolveCollisionUnknownOutcome(t *testing.T) {
	lib := setupTestLib(t)
	ctx := context.Background()
	_, _, id := collide(t, lib)

	if err := lib.ResolveCollision(ctx, id, Outcome("flip-a-coin")); err == nil {
		t.Error("unknown outcome should fail")
	}
	// Still unresolved after the bad request.
	if unresolved, _ := lib.Collisions(ctx); len(unresolved) != 1 {
		t.Errorf("unresolved = %d, want 1", len(unresolved))
	}
}

func TestResolveCollisionNotFound(t *testing.T) {
	lib := setupTestLib(t)
	if err := lib.ResolveCollision(context.Background(), 999, OutcomeMerge); err == nil {
		t.Error("missing collision should fail")
	}
}
