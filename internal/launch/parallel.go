package launch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"

	"morpipe/internal/logging"
)

// ParallelLauncher runs jobs locally: each job gets a private working
// directory, the scene templates rendered with its variables, and one
// invocation of the runner command with the first template's rendered
// path appended to the argv.
type ParallelLauncher struct {
	// Runner is the simulation runner argv, e.g. {"runSofa", "-g", "batch"}.
	Runner []string
	// BaseDir is the parent of the per-job directories; empty means the
	// system temp directory.
	BaseDir string
}

// NewParallelLauncher returns a launcher invoking runner for every job.
func NewParallelLauncher(runner []string, baseDir string) *ParallelLauncher {
	return &ParallelLauncher{Runner: runner, BaseDir: baseDir}
}

// Launch renders and executes all jobs, workers at a time, and returns the
// results in submission order. The first job error cancels the remaining
// jobs and is returned.
func (l *ParallelLauncher) Launch(ctx context.Context, jobs []Job, templates []Template, workers int) ([]Result, error) {
	if len(l.Runner) == 0 {
		return nil, fmt.Errorf("launch: no runner command configured")
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("launch: no scene templates")
	}
	if workers < 1 {
		workers = 1
	}

	logger := logging.New("launch")
	logger.Info("submitting jobs", "jobs", len(jobs), "workers", workers)

	results := make([]Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := l.runJob(ctx, job, templates)
			if err != nil {
				return fmt.Errorf("job %s: %w", job.ID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (l *ParallelLauncher) runJob(ctx context.Context, job Job, templates []Template) (Result, error) {
	dir, err := os.MkdirTemp(l.BaseDir, "morpipe-"+job.ID+"-")
	if err != nil {
		return Result{}, fmt.Errorf("create job dir: %w", err)
	}

	var scenePath string
	for i, t := range templates {
		rendered, err := renderTemplate(t, job.Vars)
		if err != nil {
			return Result{}, err
		}
		target := filepath.Join(dir, t.Name)
		if err := os.WriteFile(target, rendered, 0o644); err != nil {
			return Result{}, fmt.Errorf("write scene %s: %w", t.Name, err)
		}
		if i == 0 {
			scenePath = target
		}
	}

	argv := append(append([]string{}, l.Runner...), scenePath)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, fmt.Errorf("run %s: %w (output: %s)", scenePath, err, out)
	}

	return Result{
		ID:       job.ID,
		Dir:      dir,
		Scene:    scenePath,
		Duration: elapsed,
	}, nil
}

func renderTemplate(t Template, vars map[string]any) ([]byte, error) {
	tmpl, err := template.New(t.Name).Parse(t.Text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", t.Name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("render template %s: %w", t.Name, err)
	}
	return buf.Bytes(), nil
}
