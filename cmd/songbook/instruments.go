package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newInstrumentsCommand(env *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instruments",
		Short: "List the instrument catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			instruments, err := lib.Instruments(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(instruments))
			for _, i := range instruments {
				alts := i.AlternativeNames
				if alts == "" {
					alts = "-"
				}
				rows = append(rows, []string{
					strconv.FormatInt(i.ID, 10), i.Name, alts,
				})
			}
			fmt.Println(renderTable([]string{"ID", "Name", "Alternative names"}, rows))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "alias <id> <comma-separated-names>",
		Short: "Replace an instrument's alternative-name list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid instrument id %q", args[0])
			}
			ctx := cmd.Context()
			lib, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer env.close()
			return lib.SetAlternativeNames(ctx, id, args[1])
		},
	})

	return cmd
}
