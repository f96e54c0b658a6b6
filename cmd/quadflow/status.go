package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/quadflow/internal/status"
)

func statusCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show statement counts per graph and the next step",
		Long: `Show how many statements each named graph of the store holds. Most
useful with --db, where the store outlives the command.

Example:
  quadflow status --db ./store`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := status.Get(ctx, a.store)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			status.Write(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
