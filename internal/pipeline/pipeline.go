// Package pipeline drives the four-phase model-order-reduction run:
// snapshot simulations under every excitation phase, basis extraction,
// hyper-reduction training, and final package assembly.
package pipeline

import (
	"embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"morpipe/internal/assemble"
	"morpipe/internal/excite"
	"morpipe/internal/launch"
	"morpipe/internal/logging"
	"morpipe/internal/numeric"
	"morpipe/internal/phase"
	"morpipe/internal/reduce"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ModeCountAll requests every mode the extraction produced.
const ModeCountAll = -1

// DefaultWorkers bounds the launcher pool when the config leaves it unset.
const DefaultWorkers = 4

// Config describes one reduction run. Actuator specs are referenced, not
// copied; they are owned by the caller.
type Config struct {
	Scene        string
	NodeToReduce string
	Actuators    []*excite.Spec

	TolModes float64
	TolGIE   float64

	OutputDir   string
	PackageName string

	AddToLibrary bool
	// LibraryRoot locates the shared library packages are registered in.
	// Explicit configuration; never derived from the installation layout.
	LibraryRoot string

	RigidBodyModes bool
	Workers        int

	// PhaseToSave selects the reference phase whose job directory supplies
	// the instrumentation scene, saved elements, and reduced mass. Nil
	// means the all-zero (no actuation) phase.
	PhaseToSave phase.Vector

	// IterationOverride replaces the budget derived from the actuators'
	// ramp descriptions. Used verbatim, ceiling-rounded.
	IterationOverride *float64

	// WrapperOverride supplies all three sub-configs verbatim.
	WrapperOverride *reduce.Wrapper
}

// Recorder observes phase and job completion, typically backed by the run
// store. A nil recorder is valid.
type Recorder interface {
	PhaseFinished(state State, elapsed time.Duration, err error)
	JobsFinished(state State, results []launch.Result)
}

// Orchestrator owns one reduction run. Not safe for concurrent use: the
// stage parameters are mutated between phases.
type Orchestrator struct {
	cfg Config

	launcher  launch.Launcher
	basis     numeric.BasisExtractor
	domain    numeric.DomainComputer
	converter numeric.ActiveNodeConverter
	recorder  Recorder

	asm    *assemble.Assembler
	params *reduce.Params
	phases phase.Set
	budget int

	saveVector phase.Vector
	saveIndex  int

	// availableModes is what the basis extraction produced; zero until the
	// modes phase has run in this process.
	availableModes int

	state State
	log   *slog.Logger
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithRecorder attaches a run recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// New validates the config and prepares the training-stage parameters.
func New(cfg Config, launcher launch.Launcher, basis numeric.BasisExtractor,
	domain numeric.DomainComputer, converter numeric.ActiveNodeConverter, opts ...Option,
) (*Orchestrator, error) {
	switch {
	case cfg.Scene == "":
		return nil, &ConfigurationError{Reason: "no original scene"}
	case cfg.NodeToReduce == "":
		return nil, &ConfigurationError{Reason: "no node to reduce"}
	case len(cfg.Actuators) == 0:
		return nil, &ConfigurationError{Reason: "no actuators"}
	case launcher == nil || basis == nil || domain == nil || converter == nil:
		return nil, &ConfigurationError{Reason: "missing external collaborator"}
	}
	if cfg.Workers < 1 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.PackageName == "" {
		cfg.PackageName = "myReducedModel"
	}

	asm, err := assemble.New(cfg.OutputDir, cfg.PackageName, cfg.LibraryRoot, cfg.AddToLibrary)
	if err != nil {
		return nil, err
	}

	params := reduce.NewParams(cfg.TolModes, cfg.TolGIE, cfg.RigidBodyModes, asm.DataDir)
	first := cfg.Actuators[0]
	if incr := first.Params[excite.ParamIncrement]; incr != 0 {
		_ = params.SetTrainingSetSize(first.Params[excite.ParamRange], incr)
	}
	params.Wrapper = params.BuildWrapper(cfg.NodeToReduce, reduce.StageTraining, cfg.WrapperOverride)
	params.SetFileNames(cfg.NodeToReduce)

	phases := phase.Generate(len(cfg.Actuators))
	saveVector := cfg.PhaseToSave
	if saveVector == nil {
		saveVector = make(phase.Vector, len(cfg.Actuators))
	}
	saveIndex := phases.Index(saveVector)
	if saveIndex < 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("phase to save %s is not a valid phase for %d actuators", saveVector, len(cfg.Actuators))}
	}

	o := &Orchestrator{
		cfg:        cfg,
		launcher:   launcher,
		basis:      basis,
		domain:     domain,
		converter:  converter,
		asm:        asm,
		params:     params,
		phases:     phases,
		budget:     phase.IterationBudget(cfg.Actuators, cfg.IterationOverride),
		saveVector: saveVector,
		saveIndex:  saveIndex,
		state:      StateInit,
		log:        logging.New("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.log.Info("pipeline prepared",
		"phases", len(phases),
		"iterations", o.budget,
		"savePeriod", params.SavePeriod,
		"trainingSet", params.TrainingSetSize)
	return o, nil
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State { return o.state }

// Phases returns the ordered phase set.
func (o *Orchestrator) Phases() phase.Set { return o.phases }

// Assembler exposes the output layout for callers inspecting artifacts.
func (o *Orchestrator) Assembler() *assemble.Assembler { return o.asm }

// resolvePhases expands the default (all phases) and validates indices.
func (o *Orchestrator) resolvePhases(indices []int) ([]int, error) {
	if len(indices) == 0 {
		indices = make([]int, len(o.phases))
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(o.phases) {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("phase index %d outside [0, %d)", idx, len(o.phases))}
		}
	}
	return indices, nil
}

func jobID(phaseIndex int) string {
	return fmt.Sprintf("phase-%03d", phaseIndex)
}

func (o *Orchestrator) referenceJobID() string {
	return jobID(o.saveIndex)
}

// verifyResults checks the launcher honored its contract: one result per
// job, in submission order, echoing each job's identifier.
func verifyResults(jobs []launch.Job, results []launch.Result) error {
	if len(results) != len(jobs) {
		return fmt.Errorf("launcher returned %d results for %d jobs", len(results), len(jobs))
	}
	for i := range jobs {
		if results[i].ID != jobs[i].ID {
			return fmt.Errorf("launcher result %d tagged %q, submitted as %q", i, results[i].ID, jobs[i].ID)
		}
	}
	return nil
}

// referenceResult locates the reference phase's result by identifier.
func (o *Orchestrator) referenceResult(results []launch.Result) (launch.Result, error) {
	res, ok := launch.ByID(results, o.referenceJobID())
	if !ok {
		return launch.Result{}, &ConfigurationError{
			Reason: fmt.Sprintf("reference phase %s was not among the executed phases", o.saveVector),
		}
	}
	return res, nil
}

func vectorList(v phase.Vector) string {
	parts := make([]string, len(v))
	for i, b := range v {
		parts[i] = strconv.Itoa(b)
	}
	return strings.Join(parts, ", ")
}

// buildJobs renders the template-variable mapping for each selected phase.
func (o *Orchestrator) buildJobs(indices []int, modeCount int) ([]launch.Job, error) {
	wrapperYAML, err := yaml.Marshal(o.params.Wrapper)
	if err != nil {
		return nil, fmt.Errorf("marshal parameter wrapper: %w", err)
	}
	actuators := make([]map[string]any, len(o.cfg.Actuators))
	for i, spec := range o.cfg.Actuators {
		actuators[i] = map[string]any{
			"location": spec.Location,
			"function": spec.Function,
			"params":   spec.Params,
		}
	}
	actuatorsYAML, err := yaml.Marshal(actuators)
	if err != nil {
		return nil, fmt.Errorf("marshal actuators: %w", err)
	}

	jobs := make([]launch.Job, 0, len(indices))
	for _, idx := range indices {
		jobs = append(jobs, launch.Job{
			ID: jobID(idx),
			Vars: map[string]any{
				"Scene":       o.cfg.Scene,
				"Node":        o.cfg.NodeToReduce,
				"Phase":       vectorList(o.phases[idx]),
				"PhaseToSave": vectorList(o.saveVector),
				"Iterations":  o.budget,
				"SavePeriod":  o.params.SavePeriod,
				"ModeCount":   modeCount,
				"Actuators":   string(actuatorsYAML),
				"Wrapper":     string(wrapperYAML),
				"PackageName": o.asm.PackageName,
			},
		})
	}
	return jobs, nil
}

func sceneTemplates(names ...string) ([]launch.Template, error) {
	out := make([]launch.Template, 0, len(names))
	for _, name := range names {
		data, err := templateFS.ReadFile("templates/" + name + ".tmpl")
		if err != nil {
			return nil, fmt.Errorf("load scene template %s: %w", name, err)
		}
		out = append(out, launch.Template{Name: name, Text: string(data)})
	}
	return out, nil
}

// runStep executes one phase with state bookkeeping and recording.
func (o *Orchestrator) runStep(state State, fn func() error) error {
	o.state = state
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if o.recorder != nil {
		o.recorder.PhaseFinished(state, elapsed, err)
	}
	if err != nil {
		o.state = StateFailed
		o.log.Error("phase failed", "phase", state.String(), "error", err)
		return fmt.Errorf("%s: %w", state, err)
	}
	o.log.Info("phase finished", "phase", state.String(), "elapsed", elapsed)
	return nil
}

func (o *Orchestrator) recordJobs(state State, results []launch.Result) {
	if o.recorder != nil {
		o.recorder.JobsFinished(state, results)
	}
}
