// Package wiring connects the loaded recipe, the run store, and the
// pipeline collaborators into one executed reduction.
package wiring

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"morpipe/internal/excite"
	"morpipe/internal/launch"
	"morpipe/internal/numeric"
	"morpipe/internal/pipeline"
	"morpipe/internal/recipe"
	"morpipe/internal/reduce"
	"morpipe/internal/runstore"
)

// Collaborators are the external pieces a reduction needs: the job
// launcher and the three numeric procedures.
type Collaborators struct {
	Launcher  launch.Launcher
	Basis     numeric.BasisExtractor
	Domain    numeric.DomainComputer
	Converter numeric.ActiveNodeConverter
}

// Run resolves rec against reg, executes the full pipeline with the given
// collaborators, and records history in store. A nil store disables
// recording. modeCount selects the kept modes; pipeline.ModeCountAll
// keeps everything the extraction produced.
func Run(ctx context.Context, rec *recipe.Recipe, reg *excite.Registry, c Collaborators, store *runstore.Store, modeCount int) error {
	return RunPhases(ctx, rec, reg, c, store, modeCount, nil)
}

// RunPhases is Run restricted to a subset of the excitation phases; nil
// selects every phase.
func RunPhases(ctx context.Context, rec *recipe.Recipe, reg *excite.Registry, c Collaborators, store *runstore.Store, modeCount int, phases []int) error {
	cfg, err := rec.Config(reg)
	if err != nil {
		return err
	}

	var opts []pipeline.Option
	var runID int64
	if store != nil {
		runID, err = store.CreateRun(cfg.Scene, cfg.NodeToReduce, cfg.PackageName)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithRecorder(store.Recorder(runID)))
	}

	o, err := pipeline.New(cfg, c.Launcher, c.Basis, c.Domain, c.Converter, opts...)
	if err != nil {
		if store != nil {
			_ = store.FinishRun(runID, pipeline.StateFailed.String())
		}
		return err
	}

	runErr := o.RunPhases(ctx, modeCount, phases)
	if store != nil {
		_ = store.FinishRun(runID, o.State().String())
	}
	return runErr
}

// DryRun returns collaborators that execute nothing: the launcher renders
// the scenes and fabricates the artifacts each one would have written,
// and the numeric procedures produce fixed placeholder outputs. modes is
// the mode count the stub extraction advertises.
func DryRun(nodeToReduce string, modes int) Collaborators {
	files := reduce.DeriveFileNames(nodeToReduce)
	populate := func(job launch.Job, scene, dir string) error {
		write := func(name, body string) error {
			return os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644)
		}
		switch filepath.Base(scene) {
		case "phase1_snapshots.py":
			return write(reduce.StateFileName, "T= 1\nT= 2\n")
		case "phase2_prepareECSW.py":
			if err := write(reduce.StateFileName, "T= 1\nT= 2\n"); err != nil {
				return err
			}
			if err := write(files.Gie[0], job.ID+"\n"); err != nil {
				return err
			}
			if err := write(files.SavedElements[0], "0\n1\n2\n"); err != nil {
				return err
			}
			return write("mass_reduced.txt", "1.0\n")
		case "phase3_performECSW.py":
			pkg, _ := job.Vars["PackageName"].(string)
			if err := write(pkg+".py", "# placeholder package\n"); err != nil {
				return err
			}
			return write(reduce.MeshManifestName, "")
		}
		return fmt.Errorf("unexpected scene %s", scene)
	}
	return Collaborators{
		Launcher:  &launch.StubLauncher{Populate: populate},
		Basis:     &numeric.StubBasisExtractor{Modes: modes},
		Domain:    &numeric.StubDomainComputer{Domain: []int{0, 1}},
		Converter: &numeric.StubActiveNodeConverter{Nodes: []int{0, 1, 2}},
	}
}
