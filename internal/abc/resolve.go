package abc

import (
	"path/filepath"
	"strings"
)

// Source records which tier of the fallback chain supplied a field.
type Source string

const (
	SourceTag      Source = "tag"      // %% comment tag
	SourceHeader   Source = "header"   // classic T:/C:/Z: field
	SourceFilename Source = "filename" // filename stem
	SourceDefault  Source = "default"  // literal fallback value
	SourceNone     Source = "none"     // no value available
)

// Provenance maps each resolved scalar to its source.
type Provenance struct {
	Title       Source
	Composers   Source
	Transcriber Source
	Duration    Source
}

// Song is the resolved metadata for one file: canonical scalars, the
// ordered part list and per-field provenance. No note content.
type Song struct {
	Title           string
	Composers       string // single verbatim string, never split
	Transcriber     string
	DurationSeconds int // unknown when Provenance.Duration is SourceNone
	ExportTimestamp string
	Parts           []Part
	Provenance      Provenance
}

// Tag names interpreted at file scope.
const (
	tagTitle       = "song-title"
	tagComposer    = "song-composer"
	tagTranscriber = "song-transcriber"
	tagDuration    = "song-duration"
	tagExportTime  = "export-timestamp"
)

// Resolve applies the fallback-priority rules to a header record.
// filename is used only as the last-resort title source. Resolution is
// pure: the same header and filename always yield the same Song.
func Resolve(h Header, filename string) Song {
	s := Song{Parts: dedupeParts(Parts(h))}

	s.Title, s.Provenance.Title = resolveChain(h, tagTitle, 'T')
	if s.Title == "" {
		if stem := filenameStem(filename); stem != "" {
			s.Title = stem
			s.Provenance.Title = SourceFilename
		} else {
			s.Title = "Unknown"
			s.Provenance.Title = SourceDefault
		}
	}

	s.Composers, s.Provenance.Composers = resolveChain(h, tagComposer, 'C')
	if s.Composers == "" {
		s.Composers = "Unknown"
		s.Provenance.Composers = SourceDefault
	}

	s.Transcriber, s.Provenance.Transcriber = resolveChain(h, tagTranscriber, 'Z')
	if s.Transcriber == "" {
		s.Provenance.Transcriber = SourceNone
	}

	// Provenance, not the zero value, distinguishes a stated 0:00 from
	// an absent or malformed duration.
	s.Provenance.Duration = SourceNone
	if v, ok := h.TagValue(tagDuration); ok {
		if secs, ok := ParseDuration(v); ok {
			s.DurationSeconds = secs
			s.Provenance.Duration = SourceTag
		}
	}

	if v, ok := h.TagValue(tagExportTime); ok {
		s.ExportTimestamp = v
	}
	return s
}

// resolveChain tries the comment tag first, then the classic field.
func resolveChain(h Header, tag string, letter byte) (string, Source) {
	if v, ok := h.TagValue(tag); ok && v != "" {
		return v, SourceTag
	}
	if v, ok := h.FieldValue(letter); ok && v != "" {
		return v, SourceHeader
	}
	return "", SourceNone
}

// ParseDuration converts a mm:ss string to total seconds.
func ParseDuration(v string) (int, bool) {
	mm, ss, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, false
	}
	m, mok := parseInt(strings.TrimSpace(mm))
	s, sok := parseInt(strings.TrimSpace(ss))
	if !mok || !sok || s >= 60 {
		return 0, false
	}
	return m*60 + s, true
}

// dedupeParts drops later duplicates of a part number so the unique
// part-number invariant holds regardless of file content.
func dedupeParts(parts []Part) []Part {
	if len(parts) < 2 {
		return parts
	}
	seen := make(map[int]bool, len(parts))
	out := parts[:0]
	for _, p := range parts {
		if seen[p.Number] {
			continue
		}
		seen[p.Number] = true
		out = append(out, p)
	}
	return out
}

func filenameStem(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
