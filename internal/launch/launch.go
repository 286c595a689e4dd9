// Package launch defines the contract between the pipeline and the job
// launcher: ordered, identifier-tagged simulation jobs rendered from scene
// templates into private working directories.
package launch

import (
	"context"
	"time"
)

// Job is the template-variable mapping for one launcher invocation.
// ID tags the job so results are correlated explicitly instead of by
// position. Jobs are transient and never persisted.
type Job struct {
	ID   string
	Vars map[string]any
}

// Template is one scene template: Name is the file name it is rendered to
// inside each job directory, Text the template body.
type Template struct {
	Name string
	Text string
}

// Result describes one finished job. Results come back in submission
// order, each echoing the ID of the job that produced it.
type Result struct {
	ID       string
	Dir      string
	Scene    string
	Duration time.Duration
}

// Launcher executes all jobs, at most workers at a time, and returns one
// result per job in submission order. All jobs form a barrier: Launch does
// not return until every job has finished.
type Launcher interface {
	Launch(ctx context.Context, jobs []Job, templates []Template, workers int) ([]Result, error)
}

// ByID returns the result tagged with id.
func ByID(results []Result, id string) (Result, bool) {
	for _, r := range results {
		if r.ID == id {
			return r, true
		}
	}
	return Result{}, false
}
