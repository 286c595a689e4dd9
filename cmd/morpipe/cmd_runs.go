package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"morpipe/internal/runstore"
)

var runsFlags struct {
	dbPath string
	phases bool
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recorded reduction runs",
	RunE:  runRuns,
}

func init() {
	f := runsCmd.Flags()
	f.StringVar(&runsFlags.dbPath, "db", defaultDBPath(), "Run-history database")
	f.BoolVar(&runsFlags.phases, "phases", false, "Also list each run's phase timings")
}

func runRuns(cmd *cobra.Command, _ []string) error {
	store, err := runstore.Open(runsFlags.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "#%d  %s  %s  %s  started %s\n", r.ID, r.PackageName, r.Node, r.Status, r.StartedAt)
		if !runsFlags.phases {
			continue
		}
		phases, err := store.PhasesForRun(r.ID)
		if err != nil {
			return err
		}
		for _, p := range phases {
			line := fmt.Sprintf("  %-9s %6dms", p.Phase, p.ElapsedMS)
			if p.Error != "" {
				line += "  error: " + p.Error
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}
