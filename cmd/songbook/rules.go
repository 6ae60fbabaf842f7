package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/llehouerou/songbook/internal/library"
)

func newRulesCommand(env *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the folder rules a scan follows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			rules, err := lib.Rules(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(rules))
			for _, r := range rules {
				enabled := "yes"
				if !r.Enabled {
					enabled = "no"
				}
				rows = append(rows, []string{
					strconv.FormatInt(r.ID, 10), string(r.Kind), r.Path, enabled,
				})
			}
			fmt.Println(renderTable([]string{"ID", "Kind", "Path", "Enabled"}, rows))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <primary|set|exclude> <path>",
		Short: "Add a folder rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			id, err := lib.AddRule(ctx, args[1], library.RuleKind(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("rule %d added\n", id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a folder rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}
			ctx := cmd.Context()
			lib, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer env.close()
			return lib.RemoveRule(ctx, id)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a folder rule",
		Args:  cobra.ExactArgs(1),
		RunE:  setRuleEnabled(env, true),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a folder rule without removing it",
		Args:  cobra.ExactArgs(1),
		RunE:  setRuleEnabled(env, false),
	})

	return cmd
}

func setRuleEnabled(env *cmdEnv, enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid rule id %q", args[0])
		}
		ctx := cmd.Context()
		lib, _, err := env.open(ctx)
		if err != nil {
			return err
		}
		defer env.close()
		return lib.SetRuleEnabled(ctx, id, enabled)
	}
}
