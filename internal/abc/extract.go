// Package abc parses the metadata layer of ABC music files: %% comment
// tags, classic single-letter header fields and X: part blocks. Note
// bodies are never interpreted.
package abc

import (
	"regexp"
	"strings"
)

// Tag is one %%name value comment tag.
type Tag struct {
	Name  string
	Value string
}

// Field is one classic header field (single uppercase letter + colon).
type Field struct {
	Letter byte
	Value  string
}

// Block is one raw part block, started by an X: line.
type Block struct {
	Number int
	Lines  []string // lines after the boundary, up to the next boundary
}

// Header is the raw extraction result for one file. Tags and Fields keep
// file order; Blocks keep part order.
type Header struct {
	Tags   []Tag
	Fields []Field
	Blocks []Block
}

var (
	// %% + tag name (letters/digits/hyphen, case-sensitive) + optional
	// space + rest-of-line value.
	tagRe = regexp.MustCompile(`^%%([A-Za-z0-9]+(?:-[A-Za-z0-9]+)*)\s*(.*)$`)
	// Part boundary: X: + optional whitespace + integer. Case-insensitive
	// in the wild, so accept x: too.
	partRe  = regexp.MustCompile(`(?i)^x:\s*(\d+)`)
	fieldRe = regexp.MustCompile(`^([A-Z]):(.*)$`)
)

// Extract tokenizes content into a Header. It never fails: malformed
// lines are skipped and unparseable input yields an empty Header.
//
// Tags and classic fields are collected across the whole file (LOTRO
// exporters put T:/C:/Z: and %% tags inside the first X: block), while
// blocks are segmented so per-part tags can be read in context.
func Extract(content string) Header {
	var h Header
	inBlock := false

	for line := range strings.Lines(content) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		boundary := false
		if m := partRe.FindStringSubmatch(trimmed); m != nil {
			if n, ok := parseInt(m[1]); ok {
				h.Blocks = append(h.Blocks, Block{Number: n})
				inBlock = true
				boundary = true
			}
			// A non-integer X: line is not a boundary; it folds into
			// the preceding block body like any other line.
		}
		if !boundary && inBlock {
			last := &h.Blocks[len(h.Blocks)-1]
			last.Lines = append(last.Lines, trimmed)
		}
		if boundary {
			continue
		}

		if m := tagRe.FindStringSubmatch(trimmed); m != nil {
			h.Tags = append(h.Tags, Tag{Name: m[1], Value: strings.TrimSpace(m[2])})
			continue
		}
		if m := fieldRe.FindStringSubmatch(trimmed); m != nil {
			h.Fields = append(h.Fields, Field{Letter: m[1][0], Value: strings.TrimSpace(m[2])})
		}
	}
	return h
}

// TagValue returns the value of the last file-scope tag with the given
// name: a repeated tag overwrites earlier occurrences. Names are matched
// case-sensitively.
func (h Header) TagValue(name string) (string, bool) {
	value, found := "", false
	for _, t := range h.Tags {
		if t.Name == name {
			value, found = t.Value, true
		}
	}
	return value, found
}

// FieldValue returns the first classic header field with the given letter.
func (h Header) FieldValue(letter byte) (string, bool) {
	for _, f := range h.Fields {
		if f.Letter == letter {
			return f.Value, true
		}
	}
	return "", false
}

func parseInt(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
		if n > 1<<30 {
			return 0, false
		}
	}
	return n, len(s) > 0
}
