// morpipe is the model-order-reduction CLI: reduce (run the pipeline on a
// recipe), phases (enumerate the excitation phases), runs (show run
// history).
//
// Usage:
//
//	morpipe reduce recipe.yaml [--modes=N] [--phases=0,2] [--dry-run]
//	morpipe phases --actuators=2
//	morpipe runs [--db=<path>]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"morpipe/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "morpipe",
	Short: "Model-order reduction pipeline for simulated deformable models",
	Long: "Morpipe reduces a full-order simulated model to a fast reduced-order\npackage: it samples the model under scheduled excitations, extracts a\nmode basis, trains a sparse integration domain, and assembles a\nredistributable package.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logging.Init(logging.ParseLevel(rootFlags.logLevel), rootFlags.logFormat)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text|json)")

	rootCmd.AddCommand(reduceCmd)
	rootCmd.AddCommand(phasesCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
