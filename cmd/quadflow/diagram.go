package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/quadflow/internal/export"
)

func diagramCmd(flags *globalFlags) *cobra.Command {
	var (
		lf        loadFlags
		format    string
		withRules bool
		ruleSets  []string
		name      string
	)
	cmd := &cobra.Command{
		Use:   "diagram [url]...",
		Short: "Map the store to a node/edge diagram",
		Long: `Load the given documents (if any), optionally run inference, and print
the diagram as Mermaid or JSON.

Example:
  quadflow diagram --format mermaid people.ttl
  quadflow diagram --reason --format json --ontology schema.ttl data.ttl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "mermaid" && format != "json" {
				return fmt.Errorf("unknown format %q: use mermaid or json", format)
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) > 0 || len(lf.Ontologies) > 0 {
				reqs, err := lf.requests(args)
				if err != nil {
					return err
				}
				if _, err := a.session.LoadAll(ctx, reqs); err != nil {
					return err
				}
			}
			if withRules {
				if _, err := a.session.Reason(ctx, ruleSets); err != nil {
					return err
				}
			}

			res, err := a.session.Diagram(ctx)
			if err != nil {
				return err
			}
			if format == "mermaid" {
				fmt.Fprint(cmd.OutOrStdout(), export.GenerateMermaid(res))
				return nil
			}
			return export.WriteJSON(cmd.OutOrStdout(), export.ExportDiagram(name, res, time.Now()))
		},
	}
	lf.register(cmd)
	cmd.Flags().StringVar(&format, "format", "mermaid", "output format: mermaid or json")
	cmd.Flags().BoolVar(&withRules, "reason", false, "run inference before mapping")
	cmd.Flags().StringSliceVar(&ruleSets, "rules", nil, "rule set ids used with --reason")
	cmd.Flags().StringVar(&name, "name", "", "name recorded in the JSON export")
	return cmd
}
