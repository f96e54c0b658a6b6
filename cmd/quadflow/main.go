package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden with -ldflags "-X main.version=...".
var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	ConfigDir string
	LogLevel  string
	DBPath    string
	Verbose   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:   "quadflow",
		Short: "RDF ingestion, reasoning and diagram mapping",
		Long: `quadflow streams RDF documents into a statement store under
acknowledgement-based flow control, runs rule-based inference over the
store and maps the result to a node/edge diagram.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigDir, "config-dir", ".", "directory containing quadflow.yml")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&flags.DBPath, "db", "", "KuzuDB directory for a persistent store (overrides config)")
	pf.BoolVar(&flags.Verbose, "verbose", false, "print progress to stderr")

	root.AddCommand(loadCmd(&flags))
	root.AddCommand(reasonCmd(&flags))
	root.AddCommand(diagramCmd(&flags))
	root.AddCommand(statusCmd(&flags))
	root.AddCommand(serveCmd(&flags))
	root.AddCommand(serveMCPCmd(&flags))
	root.AddCommand(versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
