package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llehouerou/songbook/internal/config"
	"github.com/llehouerou/songbook/internal/db"
	"github.com/llehouerou/songbook/internal/library"
)

func newRootCommand() *cobra.Command {
	var dbFlag string

	rootCmd := &cobra.Command{
		Use:           "songbook",
		Short:         "Index and reconcile a library of ABC music files",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Database path (default: XDG data dir)")

	env := &cmdEnv{dbFlag: &dbFlag}
	rootCmd.AddCommand(newScanCommand(env))
	rootCmd.AddCommand(newWatchCommand(env))
	rootCmd.AddCommand(newSongsCommand(env))
	rootCmd.AddCommand(newSongCommand(env))
	rootCmd.AddCommand(newCollisionsCommand(env))
	rootCmd.AddCommand(newResolveCommand(env))
	rootCmd.AddCommand(newInstrumentsCommand(env))
	rootCmd.AddCommand(newRulesCommand(env))
	rootCmd.AddCommand(newFilesCommand(env))

	return rootCmd
}

// cmdEnv lazily opens config, database and library for a command.
type cmdEnv struct {
	dbFlag *string

	cfg  *config.Config
	conn *sql.DB
	lib  *library.Library
}

func (e *cmdEnv) open(ctx context.Context) (*library.Library, *config.Config, error) {
	if e.lib != nil {
		return e.lib, e.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	path := cfg.Database
	if *e.dbFlag != "" {
		path = *e.dbFlag
	}
	conn, err := db.Open(path)
	if err != nil {
		return nil, nil, err
	}
	lib, err := library.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	if err := lib.MigrateRules(ctx, cfg.LibraryRoots, cfg.SetExportDir, cfg.ExcludePaths); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("seed folder rules: %w", err)
	}
	e.cfg, e.conn, e.lib = cfg, conn, lib
	return lib, cfg, nil
}

func (e *cmdEnv) close() {
	if e.conn != nil {
		_ = e.conn.Close()
	}
}

func (e *cmdEnv) scanOptions(full bool) library.ScanOptions {
	return library.ScanOptions{
		Full:        full,
		Fingerprint: e.cfg.FingerprintEnabled(),
		Workers:     e.cfg.Workers(),
	}
}
