package abc

import (
	"reflect"
	"testing"
)

func TestResolveTagBeatsHeader(t *testing.T) {
	h := Extract(`X: 1
T: Header Title
C: Header Composer
%%song-title Tag Title
%%song-composer Tag Composer
`)
	s := Resolve(h, "file.abc")

	if s.Title != "Tag Title" || s.Provenance.Title != SourceTag {
		t.Errorf("title = %q (%s)", s.Title, s.Provenance.Title)
	}
	if s.Composers != "Tag Composer" || s.Provenance.Composers != SourceTag {
		t.Errorf("composers = %q (%s)", s.Composers, s.Provenance.Composers)
	}
}

func TestResolveHeaderFallback(t *testing.T) {
	h := Extract(`X: 1
T: Header Title
C: Header Composer
Z: Header Transcriber
`)
	s := Resolve(h, "file.abc")

	if s.Title != "Header Title" || s.Provenance.Title != SourceHeader {
		t.Errorf("title = %q (%s)", s.Title, s.Provenance.Title)
	}
	if s.Composers != "Header Composer" || s.Provenance.Composers != SourceHeader {
		t.Errorf("composers = %q (%s)", s.Composers, s.Provenance.Composers)
	}
	if s.Transcriber != "Header Transcriber" || s.Provenance.Transcriber != SourceHeader {
		t.Errorf("transcriber = %q (%s)", s.Transcriber, s.Provenance.Transcriber)
	}
}

func TestResolveTitleFromFilename(t *testing.T) {
	s := Resolve(Extract("X: 1\n"), "/music/The Misty Mountains.abc")
	if s.Title != "The Misty Mountains" || s.Provenance.Title != SourceFilename {
		t.Errorf("title = %q (%s)", s.Title, s.Provenance.Title)
	}
}

func TestResolveDefaults(t *testing.T) {
	s := Resolve(Header{}, "")

	if s.Title != "Unknown" || s.Provenance.Title != SourceDefault {
		t.Errorf("title = %q (%s)", s.Title, s.Provenance.Title)
	}
	if s.Composers != "Unknown" || s.Provenance.Composers != SourceDefault {
		t.Errorf("composers = %q (%s)", s.Composers, s.Provenance.Composers)
	}
	if s.Transcriber != "" || s.Provenance.Transcriber != SourceNone {
		t.Errorf("transcriber = %q (%s)", s.Transcriber, s.Provenance.Transcriber)
	}
	if s.DurationSeconds != 0 || s.Provenance.Duration != SourceNone {
		t.Errorf("duration = %d (%s)", s.DurationSeconds, s.Provenance.Duration)
	}
}

func TestResolveComposersVerbatim(t *testing.T) {
	// A multi-composer string stays one verbatim string, never split.
	h := Extract("%%song-composer Bilbo Baggins, Frodo Baggins & Sam Gamgee\n")
	s := Resolve(h, "file.abc")
	if s.Composers != "Bilbo Baggins, Frodo Baggins & Sam Gamgee" {
		t.Errorf("composers = %q", s.Composers)
	}
}

func TestResolveRepeatedTagUsesLast(t *testing.T) {
	h := Extract("%%song-title First\n%%song-title Second\n")
	s := Resolve(h, "file.abc")
	if s.Title != "Second" {
		t.Errorf("title = %q, a repeated tag overwrites earlier values", s.Title)
	}
}

func TestResolveDuration(t *testing.T) {
	h := Extract("%%song-duration 3:42\n")
	s := Resolve(h, "file.abc")
	if s.DurationSeconds != 222 || s.Provenance.Duration != SourceTag {
		t.Errorf("duration = %d (%s)", s.DurationSeconds, s.Provenance.Duration)
	}
}

func TestResolveZeroDurationIsStated(t *testing.T) {
	s := Resolve(Extract("%%song-duration 0:00\n"), "file.abc")
	if s.DurationSeconds != 0 || s.Provenance.Duration != SourceTag {
		t.Errorf("duration = %d (%s), a literal 0:00 is stated, not unknown",
			s.DurationSeconds, s.Provenance.Duration)
	}
}

func TestResolveInvalidDurationIgnored(t *testing.T) {
	for _, v := range []string{"garbage", "3:75", "222", ":", "-1:30"} {
		s := Resolve(Extract("%%song-duration "+v+"\n"), "file.abc")
		if s.DurationSeconds != 0 || s.Provenance.Duration != SourceNone {
			t.Errorf("duration(%q) = %d (%s), want unknown", v, s.DurationSeconds, s.Provenance.Duration)
		}
	}
}

func TestResolveExportTimestamp(t *testing.T) {
	h := Extract("%%export-timestamp 2024-03-01 18:22:07\n")
	s := Resolve(h, "file.abc")
	if s.ExportTimestamp != "2024-03-01 18:22:07" {
		t.Errorf("export timestamp = %q", s.ExportTimestamp)
	}
}

func TestResolveDuplicatePartNumbers(t *testing.T) {
	h := Extract(`X: 1
%%part-name First One
X: 2
X: 1
%%part-name Duplicate
`)
	s := Resolve(h, "file.abc")
	if len(s.Parts) != 2 {
		t.Fatalf("parts = %d, want 2 after dedupe", len(s.Parts))
	}
	if s.Parts[0].Number != 1 || s.Parts[0].Name != "First One" {
		t.Errorf("part[0] = %+v, want first occurrence kept", s.Parts[0])
	}
}

func TestResolveDeterministic(t *testing.T) {
	content := `X: 1
T: Some Title
C: Someone
%%song-duration 2:10
%%made-for Lute of Ages
`
	a := Resolve(Extract(content), "song.abc")
	b := Resolve(Extract(content), "song.abc")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("resolution is not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		secs  int
		ok    bool
	}{
		{"3:42", 222, true},
		{"0:59", 59, true},
		{"0:00", 0, true},
		{"12:05", 725, true},
		{" 1:30 ", 90, true},
		{"3:60", 0, false},
		{"90", 0, false},
		{"a:b", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		secs, ok := ParseDuration(tt.input)
		if secs != tt.secs || ok != tt.ok {
			t.Errorf("ParseDuration(%q) = %d, %v, want %d, %v", tt.input, secs, ok, tt.secs, tt.ok)
		}
	}
}
