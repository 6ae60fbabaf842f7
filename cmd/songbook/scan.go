package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/llehouerou/songbook/internal/library"
	"github.com/llehouerou/songbook/internal/watch"
)

func newScanCommand(env *cmdEnv) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Reconcile the index against the configured folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			lib, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			progress := make(chan library.ScanProgress, 16)
			go func() {
				for p := range progress {
					if p.Phase == "processing" {
						fmt.Printf("\r%s %d/%d", p.Phase, p.Current, p.Total)
					}
				}
				fmt.Println()
			}()

			stats, err := lib.Scan(ctx, env.scanOptions(full), progress)
			if err != nil {
				return err
			}
			printStats(stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Re-parse every file, ignoring modification times")
	return cmd
}

func printStats(stats *library.ScanStats) {
	fmt.Printf("found %d, added %d, updated %d, linked %d, skipped %d, removed %d, excluded %d\n",
		stats.Found, stats.Added, stats.Updated, stats.Linked,
		stats.Skipped, stats.Removed, stats.Excluded)
	if stats.Collisions > 0 {
		fmt.Printf("%d identity collision(s) need a decision: run 'songbook collisions'\n", stats.Collisions)
	}
	for path, msg := range stats.Errors {
		fmt.Fprintf(os.Stderr, "error: %s: %s\n", path, msg)
	}
}

func newWatchCommand(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Scan once, then rescan on filesystem changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			lib, cfg, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			opts := env.scanOptions(false)
			stats, err := lib.Scan(ctx, opts, nil)
			if err != nil {
				return err
			}
			printStats(stats)

			fmt.Println("watching for changes (ctrl-c to stop)")
			w := watch.New(lib, opts, cfg.WatchDebounce())
			return w.Run(ctx)
		},
	}
}
