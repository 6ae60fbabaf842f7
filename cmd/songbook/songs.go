package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSongsCommand(env *cmdEnv) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "songs",
		Short: "List indexed songs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			songs, err := lib.Songs(ctx)
			if all {
				songs, err = lib.AllSongs(ctx)
			}
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(songs))
			for _, s := range songs {
				rows = append(rows, []string{
					strconv.FormatInt(s.ID, 10),
					s.Title,
					s.Composers,
					formatDuration(s.DurationSeconds),
					strconv.Itoa(len(s.Parts)),
				})
			}
			fmt.Println(renderTable([]string{"ID", "Title", "Composers", "Duration", "Parts"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include set-copy-only and orphaned songs")
	return cmd
}

func newSongCommand(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "song <id>",
		Short: "Show one song with its parts and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid song id %q", args[0])
			}
			ctx := cmd.Context()
			lib, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			s, err := lib.SongByID(ctx, id)
			if err != nil {
				return err
			}
			if s == nil {
				return fmt.Errorf("song %d not found", id)
			}

			fmt.Printf("%s\n", s.Title)
			fmt.Printf("  composers:   %s (%s)\n", s.Composers, s.ComposersSource)
			if s.Transcriber != "" {
				fmt.Printf("  transcriber: %s (%s)\n", s.Transcriber, s.TranscriberSource)
			}
			fmt.Printf("  duration:    %s\n", formatDuration(s.DurationSeconds))
			if s.TotalPlays > 0 {
				fmt.Printf("  plays:       %d, last %s\n", s.TotalPlays, relTime(s.LastPlayedAt))
			}

			for _, p := range s.Parts {
				name := p.Name
				if name == "" {
					name = "-"
				}
				instrument := "-"
				if p.InstrumentID != 0 {
					if inst, instErr := lib.InstrumentByID(ctx, p.InstrumentID); instErr == nil && inst != nil {
						instrument = inst.Name
					}
				}
				fmt.Printf("  part %d: %s [%s]\n", p.Number, name, instrument)
			}

			files, err := lib.FilesForSong(ctx, id)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Printf("  file: %s (%s, %s)\n", f.Path, f.Classification, f.Status())
			}
			return nil
		},
	}
}

func newFilesCommand(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List tracked files and their per-file status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			files, err := lib.Files(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(files))
			for _, f := range files {
				song := "-"
				if f.SongID != 0 {
					song = strconv.FormatInt(f.SongID, 10)
				}
				rows = append(rows, []string{
					f.Path, string(f.Classification), f.Status(), song,
				})
			}
			fmt.Println(renderTable([]string{"Path", "Class", "Status", "Song"}, rows))
			return nil
		},
	}
}
