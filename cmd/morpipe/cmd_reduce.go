package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"morpipe/internal/excite"
	"morpipe/internal/launch"
	"morpipe/internal/numeric"
	"morpipe/internal/pipeline"
	"morpipe/internal/recipe"
	"morpipe/internal/runstore"
	"morpipe/internal/wiring"
)

var reduceFlags struct {
	recipePath string
	modes      int
	phases     string
	workers    int
	dbPath     string
	runner     []string
	basisCmd   []string
	domainCmd  []string
	nodesCmd   []string
	dryRun     bool
	stubModes  int
}

var reduceCmd = &cobra.Command{
	Use:   "reduce [recipe]",
	Short: "Run the full reduction pipeline on a recipe",
	Long: `Reduce runs the four pipeline phases on the recipe's model: snapshot
simulations under every excitation phase, mode-basis extraction,
hyper-reduction training, and package assembly.

Usage:
  morpipe reduce finger.yaml                       # Recipe as positional arg
  morpipe reduce --recipe=finger.yaml --modes=25   # Keep 25 modes
  morpipe reduce finger.yaml --phases=0,3          # Snapshot/train a subset
  morpipe reduce finger.yaml --dry-run             # Stub runner and numerics

The simulation runner and the three numeric procedures are external
commands, configured with --runner, --basis-cmd, --domain-cmd and
--nodes-cmd.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReduce,
}

func init() {
	f := reduceCmd.Flags()
	f.StringVar(&reduceFlags.recipePath, "recipe", "", "Recipe file (YAML or JSON)")
	f.IntVar(&reduceFlags.modes, "modes", pipeline.ModeCountAll, "Modes to keep (-1 = all extracted)")
	f.StringVar(&reduceFlags.phases, "phases", "", "Comma-separated phase indices to execute (default all)")
	f.IntVar(&reduceFlags.workers, "workers", 0, "Parallel jobs (overrides the recipe)")
	f.StringVar(&reduceFlags.dbPath, "db", defaultDBPath(), "Run-history database")
	f.StringSliceVar(&reduceFlags.runner, "runner", []string{"runSofa", "-g", "batch"}, "Simulation runner argv")
	f.StringSliceVar(&reduceFlags.basisCmd, "basis-cmd", nil, "Basis-extraction command argv")
	f.StringSliceVar(&reduceFlags.domainCmd, "domain-cmd", nil, "Domain/weight-computation command argv")
	f.StringSliceVar(&reduceFlags.nodesCmd, "nodes-cmd", nil, "Active-node conversion command argv")
	f.BoolVar(&reduceFlags.dryRun, "dry-run", false, "Stub the runner and numeric procedures")
	f.IntVar(&reduceFlags.stubModes, "stub-modes", 5, "Mode count the dry-run stub advertises")
}

func runReduce(cmd *cobra.Command, args []string) error {
	path := reduceFlags.recipePath
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no recipe given; pass a path or --recipe")
	}

	rec, err := recipe.LoadFromPath(path)
	if err != nil {
		return err
	}
	if reduceFlags.workers > 0 {
		rec.Workers = reduceFlags.workers
	}

	phases, err := parsePhaseList(reduceFlags.phases)
	if err != nil {
		return err
	}

	collab, err := collaborators(rec.NodeToReduce)
	if err != nil {
		return err
	}

	store, err := runstore.Open(reduceFlags.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := wiring.RunPhases(cmd.Context(), rec, excite.Default(), collab, store, reduceFlags.modes, phases); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reduced package assembled in %s\n", rec.OutputDir)
	return nil
}

func collaborators(nodeToReduce string) (wiring.Collaborators, error) {
	if reduceFlags.dryRun {
		return wiring.DryRun(nodeToReduce, reduceFlags.stubModes), nil
	}
	for name, argv := range map[string][]string{
		"--basis-cmd":  reduceFlags.basisCmd,
		"--domain-cmd": reduceFlags.domainCmd,
		"--nodes-cmd":  reduceFlags.nodesCmd,
	} {
		if len(argv) == 0 {
			return wiring.Collaborators{}, fmt.Errorf("%s is required unless --dry-run is set", name)
		}
	}
	return wiring.Collaborators{
		Launcher:  launch.NewParallelLauncher(reduceFlags.runner, ""),
		Basis:     &numeric.ExecBasisExtractor{Argv: reduceFlags.basisCmd},
		Domain:    &numeric.ExecDomainComputer{Argv: reduceFlags.domainCmd},
		Converter: &numeric.ExecActiveNodeConverter{Argv: reduceFlags.nodesCmd},
	}, nil
}

func parsePhaseList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parse --phases: %q is not a phase index", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".morpipe/runs.db"
	}
	return filepath.Join(home, ".morpipe", "runs.db")
}
