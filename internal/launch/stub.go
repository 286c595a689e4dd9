package launch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StubLauncher renders scene templates like the real launcher but never
// executes a runner. Populate fabricates each job's output files instead.
// Used by dry runs and wiring tests.
type StubLauncher struct {
	// BaseDir is the parent of the per-job directories; empty means the
	// system temp directory.
	BaseDir string
	// Populate fills dir with the artifacts the scene would have written.
	// Nil leaves the directory with only the rendered scenes.
	Populate func(job Job, scene string, dir string) error
}

// Launch renders all jobs sequentially and returns results in submission
// order.
func (l *StubLauncher) Launch(_ context.Context, jobs []Job, templates []Template, _ int) ([]Result, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("launch: no scene templates")
	}

	results := make([]Result, 0, len(jobs))
	for _, job := range jobs {
		dir, err := os.MkdirTemp(l.BaseDir, "morpipe-"+job.ID+"-")
		if err != nil {
			return nil, fmt.Errorf("create job dir: %w", err)
		}
		var scenePath string
		for i, t := range templates {
			rendered, err := renderTemplate(t, job.Vars)
			if err != nil {
				return nil, fmt.Errorf("job %s: %w", job.ID, err)
			}
			target := filepath.Join(dir, t.Name)
			if err := os.WriteFile(target, rendered, 0o644); err != nil {
				return nil, fmt.Errorf("write scene %s: %w", t.Name, err)
			}
			if i == 0 {
				scenePath = target
			}
		}

		start := time.Now()
		if l.Populate != nil {
			if err := l.Populate(job, scenePath, dir); err != nil {
				return nil, fmt.Errorf("job %s: %w", job.ID, err)
			}
		}
		results = append(results, Result{
			ID:       job.ID,
			Dir:      dir,
			Scene:    scenePath,
			Duration: time.Since(start),
		})
	}
	return results, nil
}
