package runstore

import (
	"log/slog"
	"time"

	"morpipe/internal/launch"
	"morpipe/internal/logging"
	"morpipe/internal/pipeline"
)

// Recorder adapts a Store to the pipeline's recorder interface for one
// run. Persistence failures are logged, never propagated: history must
// not fail a reduction.
type Recorder struct {
	store *Store
	runID int64
	log   *slog.Logger
}

// Recorder returns a pipeline recorder bound to runID.
func (s *Store) Recorder(runID int64) *Recorder {
	return &Recorder{store: s, runID: runID, log: logging.New("runstore")}
}

var _ pipeline.Recorder = (*Recorder)(nil)

func (r *Recorder) PhaseFinished(state pipeline.State, elapsed time.Duration, err error) {
	if rerr := r.store.RecordPhase(r.runID, state.String(), elapsed, err); rerr != nil {
		r.log.Warn("phase record dropped", "run", r.runID, "phase", state.String(), "error", rerr)
	}
}

func (r *Recorder) JobsFinished(state pipeline.State, results []launch.Result) {
	for _, res := range results {
		if err := r.store.RecordJob(r.runID, state.String(), res.ID, res.Dir, res.Duration); err != nil {
			r.log.Warn("job record dropped", "run", r.runID, "job", res.ID, "error", err)
		}
	}
}
