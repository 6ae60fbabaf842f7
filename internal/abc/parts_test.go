package abc

import "testing"

func TestPartsBasic(t *testing.T) {
	h := Extract(`X: 1
%%part-name Lute
%%made-for Lute of Ages
X: 2
%%part-name Flute
X: 3
`)
	parts := Parts(h)
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(parts))
	}
	if parts[0].Name != "Lute" || parts[0].MadeFor != "Lute of Ages" {
		t.Errorf("part 1 = %+v", parts[0])
	}
	if parts[1].Name != "Flute" || parts[1].MadeFor != "" {
		t.Errorf("part 2 = %+v", parts[1])
	}
	if parts[2].Name != "" || parts[2].MadeFor != "" {
		t.Errorf("part 3 = %+v", parts[2])
	}
}

func TestPartsFirstTagWins(t *testing.T) {
	h := Extract(`X: 1
%%part-name First
%%part-name Second
%%made-for Harp
%%made-for Drums
`)
	parts := Parts(h)
	if len(parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(parts))
	}
	if parts[0].Name != "First" {
		t.Errorf("name = %q, want First", parts[0].Name)
	}
	if parts[0].MadeFor != "Harp" {
		t.Errorf("made-for = %q, want Harp", parts[0].MadeFor)
	}
}

func TestPartsNoBlocks(t *testing.T) {
	h := Extract("%%song-title No Parts Here\n")
	if parts := Parts(h); len(parts) != 0 {
		t.Errorf("parts = %d, want 0", len(parts))
	}
}

func TestPartsTagBeforeFirstBlockIgnored(t *testing.T) {
	// File-scope tags before any X: line belong to no part.
	h := Extract(`%%part-name Floating
X: 1
abc |
`)
	parts := Parts(h)
	if len(parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(parts))
	}
	if parts[0].Name != "" {
		t.Errorf("name = %q, want empty", parts[0].Name)
	}
}
