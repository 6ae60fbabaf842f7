// Package library maintains the sqlite index over a collection of ABC
// files: tracked files, logical songs, the instrument catalog, folder
// rules and pending identity collisions. Files on disk stay the source
// of truth; everything derived here can be rebuilt by a scan.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
)

// Classification of a tracked file by folder rule.
type Classification string

const (
	ClassPrimary  Classification = "primary"
	ClassSetCopy  Classification = "set-copy"
	ClassExcluded Classification = "excluded"
)

// RuleKind is the kind of a configured folder rule.
type RuleKind string

const (
	RulePrimaryRoot RuleKind = "primary"
	RuleSetRoot     RuleKind = "set"
	RuleExclude     RuleKind = "exclude"
)

// Song is one canonical musical work. Derived fields mirror the most
// recently parsed linked primary file; the app-only fields (Rating,
// Status, Notes, Lyrics, play stats) are never written by scans.
type Song struct {
	ID              int64
	Title           string
	Composers       string
	Transcriber     string
	DurationSeconds int // unknown when DurationSource is "none"

	TitleSource       string
	ComposersSource   string
	TranscriberSource string
	DurationSource    string

	Rating       int
	Status       string
	Notes        string
	Lyrics       string
	LastPlayedAt int64
	TotalPlays   int

	Parts []Part
}

// Part is one part row of a song. InstrumentID 0 means no instrument.
type Part struct {
	Number       int
	Name         string
	InstrumentID int64
}

// File is one tracked on-disk file. SongID 0 means unlinked.
type File struct {
	ID              int64
	SongID          int64
	Path            string
	Mtime           int64
	Fingerprint     string
	ExportTimestamp string
	Classification  Classification
	Missing         bool
	Ignored         bool
	ParseError      string
}

// Status summarizes a file for display.
func (f File) Status() string {
	switch {
	case f.Classification == ClassExcluded:
		return "excluded"
	case f.Missing:
		return "missing"
	case f.ParseError != "":
		return "error"
	case f.Ignored:
		return "ignored"
	case f.SongID == 0:
		return "collision"
	default:
		return "parsed"
	}
}

// Instrument is one catalog entry. AlternativeNames is a comma-separated
// list used only for matching, never for display.
type Instrument struct {
	ID               int64
	Name             string
	AlternativeNames string
}

// Rule is one configured folder rule.
type Rule struct {
	ID      int64
	Path    string
	Kind    RuleKind
	Enabled bool
}

// Library wraps the database and serializes scans.
type Library struct {
	db  *sql.DB
	log *slog.Logger

	scanMu     sync.Mutex
	scanActive bool
	scanQueued bool
	queuedCtx  context.Context
	queuedOpts ScanOptions
}

// New creates a Library on an open database, initializing the schema.
func New(conn *sql.DB) (*Library, error) {
	if err := initSchema(conn); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Library{db: conn, log: slog.Default()}, nil
}

// SetLogger overrides the scan diagnostics logger.
func (l *Library) SetLogger(logger *slog.Logger) {
	if logger != nil {
		l.log = logger
	}
}
