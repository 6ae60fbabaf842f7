package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/llehouerou/songbook/internal/library"
)

func newCollisionsCommand(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "collisions",
		Short: "List unresolved identity collisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			collisions, err := lib.Collisions(ctx)
			if err != nil {
				return err
			}
			if len(collisions) == 0 {
				fmt.Println("no unresolved collisions")
				return nil
			}

			rows := make([][]string, 0, len(collisions))
			for _, c := range collisions {
				fileA, err := lib.FileByID(ctx, c.FileA)
				if err != nil {
					return err
				}
				fileB, err := lib.FileByID(ctx, c.FileB)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					strconv.FormatInt(c.ID, 10),
					describeFile(fileA),
					describeFile(fileB),
					relTime(c.CreatedAt),
				})
			}
			fmt.Println(renderTable([]string{"ID", "File A", "File B", "Flagged"}, rows))
			fmt.Println("resolve with: songbook resolve <id> <merge|keep-separate|ignore-one>")
			return nil
		},
	}
}

// describeFile shows the path plus the export timestamp when present:
// it is the auxiliary discriminator a human uses to tell copies apart.
func describeFile(f *library.File) string {
	if f == nil {
		return "(deleted)"
	}
	if f.ExportTimestamp != "" {
		return fmt.Sprintf("%s (exported %s)", f.Path, f.ExportTimestamp)
	}
	return f.Path
}

func newResolveCommand(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id> <merge|keep-separate|ignore-one>",
		Short: "Apply a decision to a pending collision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid collision id %q", args[0])
			}
			outcome := library.Outcome(args[1])

			ctx := cmd.Context()
			lib, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			if err := lib.ResolveCollision(ctx, id, outcome); err != nil {
				return err
			}
			fmt.Printf("collision %d resolved: %s\n", id, outcome)
			return nil
		},
	}
}
