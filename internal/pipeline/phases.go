package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"morpipe/internal/assemble"
	"morpipe/internal/reduce"
)

// Run executes the full pipeline: snapshot, modes, train, assemble.
// modeCount selects how many modes the reduced model keeps; ModeCountAll
// keeps every mode the extraction produced. Any phase failure leaves the
// orchestrator in StateFailed with the artifacts written so far intact.
func (o *Orchestrator) Run(ctx context.Context, modeCount int) error {
	return o.RunPhases(ctx, modeCount, nil)
}

// RunPhases is Run restricted to a subset of the excitation phases. The
// subset must include the reference phase; nil selects every phase.
func (o *Orchestrator) RunPhases(ctx context.Context, modeCount int, indices []int) error {
	if err := o.Snapshot(ctx, indices); err != nil {
		return err
	}
	if err := o.Modes(ctx); err != nil {
		return err
	}
	if err := o.Train(ctx, modeCount, indices); err != nil {
		return err
	}
	if err := o.Assemble(ctx, modeCount); err != nil {
		return err
	}
	o.state = StateDone
	return nil
}

// Snapshot runs the selected excitation phases (all when indices is nil)
// against the original scene, merges their state timelines into the debug
// area, and stages the reference phase's instrumentation scene.
func (o *Orchestrator) Snapshot(ctx context.Context, indices []int) error {
	return o.runStep(StateSnapshot, func() error { return o.runSnapshot(ctx, indices) })
}

// Modes extracts the orthonormal basis from the merged timeline and
// records how many modes the truncation tolerance kept.
func (o *Orchestrator) Modes(ctx context.Context) error {
	return o.runStep(StateModes, func() error { return o.runModes(ctx) })
}

// Train reruns the selected phases with reduction components attached,
// capturing error indicators, saved elements, and the reduced mass.
func (o *Orchestrator) Train(ctx context.Context, modeCount int, indices []int) error {
	return o.runStep(StateTrain, func() error { return o.runTrain(ctx, modeCount, indices) })
}

// Assemble derives the sparse integration domain from the training
// artifacts, runs the final scene, and finalizes the output package.
func (o *Orchestrator) Assemble(ctx context.Context, modeCount int) error {
	return o.runStep(StateAssemble, func() error { return o.runAssemble(ctx, modeCount) })
}

func (o *Orchestrator) runSnapshot(ctx context.Context, indices []int) error {
	indices, err := o.resolvePhases(indices)
	if err != nil {
		return err
	}
	if err := o.asm.EnsureLayout(); err != nil {
		return err
	}

	jobs, err := o.buildJobs(indices, o.params.ModeCount)
	if err != nil {
		return err
	}
	templates, err := sceneTemplates("phase1_snapshots.py", reduce.DebugSceneName)
	if err != nil {
		return err
	}

	o.log.Info("launching snapshot phases", "jobs", len(jobs), "workers", o.cfg.Workers)
	results, err := o.launcher.Launch(ctx, jobs, templates, o.cfg.Workers)
	if err != nil {
		return err
	}
	if err := verifyResults(jobs, results); err != nil {
		return err
	}
	o.recordJobs(StateSnapshot, results)

	if err := o.asm.MergeStateTimelines(results, o.params.SavePeriod, reduce.StateFileName, nil); err != nil {
		return err
	}

	ref, err := o.referenceResult(results)
	if err != nil {
		return err
	}
	return o.asm.StageAsset(filepath.Join(ref.Dir, reduce.DebugSceneName), o.asm.DebugDir)
}

func (o *Orchestrator) runModes(ctx context.Context) error {
	statePath := filepath.Join(o.asm.DebugDir, reduce.StateFileName)
	if _, err := os.Stat(statePath); err != nil {
		if os.IsNotExist(err) {
			return &assemble.MissingArtifactError{Path: statePath}
		}
		return err
	}

	modesPath := filepath.Join(o.asm.DataDir, reduce.ModesFileName)
	n, err := o.basis.ComputeModes(ctx, statePath, modesPath, o.cfg.TolModes, o.cfg.RigidBodyModes)
	if err != nil {
		return err
	}
	o.availableModes = n
	o.log.Info("basis extracted", "modes", n, "tolerance", o.cfg.TolModes)
	return nil
}

// validateModeCount resolves a requested mode count against what the
// extraction produced, reading the modes file when this process has not
// run the modes phase itself.
func (o *Orchestrator) validateModeCount(requested int) (int, error) {
	available := o.availableModes
	if available == 0 {
		n, err := o.asm.ModeCount(filepath.Join(o.asm.DataDir, reduce.ModesFileName))
		if err != nil {
			return 0, err
		}
		available = n
		o.availableModes = n
	}
	if requested == ModeCountAll {
		return available, nil
	}
	if requested < 1 || requested > available {
		return 0, &ConfigurationError{
			Reason: fmt.Sprintf("requested %d modes, available [1, %d]", requested, available),
		}
	}
	return requested, nil
}

func (o *Orchestrator) runTrain(ctx context.Context, modeCount int, indices []int) error {
	indices, err := o.resolvePhases(indices)
	if err != nil {
		return err
	}
	n, err := o.validateModeCount(modeCount)
	if err != nil {
		return err
	}
	o.params.ModeCount = n
	o.params.Wrapper = o.params.BuildWrapper(o.cfg.NodeToReduce, reduce.StageTraining, o.cfg.WrapperOverride)

	jobs, err := o.buildJobs(indices, n)
	if err != nil {
		return err
	}
	templates, err := sceneTemplates("phase2_prepareECSW.py")
	if err != nil {
		return err
	}

	o.log.Info("launching training phases", "jobs", len(jobs), "modes", n)
	results, err := o.launcher.Launch(ctx, jobs, templates, o.cfg.Workers)
	if err != nil {
		return err
	}
	if err := verifyResults(jobs, results); err != nil {
		return err
	}
	o.recordJobs(StateTrain, results)

	ref, err := o.referenceResult(results)
	if err != nil {
		return err
	}

	gieNames, err := globBase(ref.Dir, "*_Gie.txt")
	if err != nil {
		return err
	}
	if len(gieNames) == 0 {
		return &assemble.MissingArtifactError{Path: filepath.Join(ref.Dir, "*_Gie.txt")}
	}
	elmtsNames, err := globBase(ref.Dir, "elmts_*.txt")
	if err != nil {
		return err
	}
	massNames, err := globBase(ref.Dir, "*_reduced.txt")
	if err != nil {
		return err
	}
	if len(massNames) == 0 {
		return &assemble.MissingArtifactError{Path: filepath.Join(ref.Dir, "*_reduced.txt")}
	}

	// Saved elements and the reduced mass come from the reference phase
	// only; the error indicators are concatenated across every phase.
	for _, name := range elmtsNames {
		if err := o.asm.StageAsset(filepath.Join(ref.Dir, name), o.asm.DebugDir); err != nil {
			return err
		}
	}
	for _, name := range massNames {
		if err := o.asm.StageAsset(filepath.Join(ref.Dir, name), o.asm.DataDir); err != nil {
			return err
		}
	}
	o.params.MassFileName = massNames[0]
	o.params.Files.Gie = gieNames
	o.params.Files.SavedElements = elmtsNames

	return o.asm.MergeStateTimelines(results, o.params.SavePeriod, "step2_"+reduce.StateFileName, gieNames)
}

func (o *Orchestrator) runAssemble(ctx context.Context, modeCount int) error {
	n, err := o.validateModeCount(modeCount)
	if err != nil {
		return err
	}
	o.params.ModeCount = n
	if o.params.MassFileName == "" {
		if massNames, err := globBase(o.asm.DataDir, "*_reduced.txt"); err != nil {
			return err
		} else if len(massNames) > 0 {
			o.params.MassFileName = massNames[0]
		}
	}
	if o.params.MassFileName == "" {
		return &assemble.MissingArtifactError{Path: filepath.Join(o.asm.DataDir, "*_reduced.txt")}
	}

	gieNames, err := globBase(o.asm.DebugDir, "*_Gie.txt")
	if err != nil {
		return err
	}
	if len(gieNames) == 0 {
		return &assemble.MissingArtifactError{Path: filepath.Join(o.asm.DebugDir, "*_Gie.txt")}
	}
	elmtsNames, err := globBase(o.asm.DebugDir, "elmts_*.txt")
	if err != nil {
		return err
	}
	if err := alignByNode(gieNames, elmtsNames); err != nil {
		return err
	}

	active := map[int]struct{}{}
	for i, gie := range gieNames {
		node := nodeFromGie(gie)
		files := reduce.DeriveFileNames(node)
		ridPath := filepath.Join(o.asm.DataDir, files.RID[0])
		weightsPath := filepath.Join(o.asm.DataDir, files.Weights[0])

		if err := o.domain.ComputeDomain(ctx, filepath.Join(o.asm.DebugDir, gie), ridPath, weightsPath, o.cfg.TolGIE); err != nil {
			return err
		}
		nodes, err := o.converter.Convert(ctx, ridPath,
			filepath.Join(o.asm.DebugDir, elmtsNames[i]),
			filepath.Join(o.asm.DataDir, files.ActiveNodes[0]))
		if err != nil {
			return err
		}
		for _, idx := range nodes {
			active[idx] = struct{}{}
		}
	}

	union := make([]int, 0, len(active))
	for idx := range active {
		union = append(union, idx)
	}
	sort.Ints(union)
	if err := assemble.WriteActiveNodes(filepath.Join(o.asm.DataDir, reduce.ActiveNodesFileName), union); err != nil {
		return err
	}
	o.log.Info("sparse domain derived", "pairs", len(gieNames), "activeNodes", len(union))

	o.params.Wrapper = o.params.BuildWrapper(o.cfg.NodeToReduce, reduce.StageProduction, o.cfg.WrapperOverride)

	jobs, err := o.buildJobs([]int{o.saveIndex}, n)
	if err != nil {
		return err
	}
	animations := make([]string, len(o.cfg.Actuators))
	for i, spec := range o.cfg.Actuators {
		animations[i] = spec.Location
	}
	animYAML, err := yaml.Marshal(animations)
	if err != nil {
		return fmt.Errorf("marshal animation paths: %w", err)
	}
	jobs[0].ID = "final"
	jobs[0].Vars["AnimationPaths"] = string(animYAML)

	templates, err := sceneTemplates("phase3_performECSW.py")
	if err != nil {
		return err
	}
	results, err := o.launcher.Launch(ctx, jobs, templates, 1)
	if err != nil {
		return err
	}
	if err := verifyResults(jobs, results); err != nil {
		return err
	}
	o.recordJobs(StateAssemble, results)

	return o.asm.FinalizePackage(results[0])
}

// globBase returns the base names matching pattern under dir, sorted.
func globBase(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Base(m)
	}
	sort.Strings(out)
	return out, nil
}

// nodeFromGie recovers the node name embedded in an error-indicator file
// name.
func nodeFromGie(name string) string {
	name = strings.TrimSuffix(name, "_Gie.txt")
	if i := strings.Index(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// alignByNode reorders elmts in place so elmts[i] belongs to the same node
// as gie[i].
func alignByNode(gie, elmts []string) error {
	if len(gie) != len(elmts) {
		return fmt.Errorf("%d error-indicator files against %d saved-element files", len(gie), len(elmts))
	}
	for i, g := range gie {
		node := nodeFromGie(g)
		found := -1
		for j := i; j < len(elmts); j++ {
			if strings.Contains(elmts[j], node) {
				found = j
				break
			}
		}
		if found < 0 {
			return fmt.Errorf("no saved-element file for node %s", node)
		}
		elmts[i], elmts[found] = elmts[found], elmts[i]
	}
	return nil
}
