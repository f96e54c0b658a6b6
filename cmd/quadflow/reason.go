package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func reasonCmd(flags *globalFlags) *cobra.Command {
	var (
		lf       loadFlags
		ruleSets []string
		failOn   bool
	)
	cmd := &cobra.Command{
		Use:   "reason [url]...",
		Short: "Run inference over the store and print the diff",
		Long: `Load the given documents (if any), run forward-chaining inference with
the selected rule sets and print the added statements, validation findings
and inference descriptors as JSON.

Embedded rule sets: best-practice.n3 (default), rdfs.n3, owl-basic.n3,
shacl-lite.n3.

Example:
  quadflow reason --rules rdfs.n3,owl-basic.n3 data.ttl`,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			res, err := a.session.Reason(ctx, ruleSets)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if failOn && len(res.Errors) > 0 {
				return fmt.Errorf("%d validation errors", len(res.Errors))
			}
			return nil
		},
	}
	lf.register(cmd)
	cmd.Flags().StringSliceVar(&ruleSets, "rules", nil, "rule set ids (default from config, else best-practice.n3)")
	cmd.Flags().BoolVar(&failOn, "fail-on-errors", false, "exit non-zero when critical findings are reported")
	return cmd
}
