package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"morpipe/internal/phase"
)

var phasesFlags struct {
	actuators int
}

var phasesCmd = &cobra.Command{
	Use:   "phases",
	Short: "Enumerate the excitation phases for a number of actuators",
	RunE:  runPhases,
}

func init() {
	f := phasesCmd.Flags()
	f.IntVar(&phasesFlags.actuators, "actuators", 0, "Number of actuators (required)")
	_ = phasesCmd.MarkFlagRequired("actuators")
}

func runPhases(cmd *cobra.Command, _ []string) error {
	if phasesFlags.actuators < 0 {
		return fmt.Errorf("--actuators must be non-negative")
	}
	out := cmd.OutOrStdout()
	set := phase.Generate(phasesFlags.actuators)
	for i, v := range set {
		fmt.Fprintf(out, "%3d  %s  weight=%d\n", i, v, v.Weight())
	}
	fmt.Fprintf(out, "%s phases\n", strconv.Itoa(len(set)))
	return nil
}
