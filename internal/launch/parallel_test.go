package launch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeRunner(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "runner.sh")
	// Touches a marker next to the scene so the test can verify the
	// runner ran inside the job directory.
	body := "#!/bin/sh\ntouch \"$(dirname \"$1\")/ran.marker\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write runner: %v", err)
	}
	return script
}

func TestParallelLauncher_SubmissionOrderAndIDs(t *testing.T) {
	l := NewParallelLauncher([]string{writeRunner(t)}, t.TempDir())

	templates := []Template{
		{Name: "scene.py", Text: "phase = {{.Phase}}\n"},
		{Name: "aux.py", Text: "aux\n"},
	}
	jobs := []Job{
		{ID: "phase-000", Vars: map[string]any{"Phase": "00"}},
		{ID: "phase-001", Vars: map[string]any{"Phase": "01"}},
		{ID: "phase-002", Vars: map[string]any{"Phase": "10"}},
	}

	results, err := l.Launch(context.Background(), jobs, templates, 2)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if len(results) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(results), len(jobs))
	}
	for i, res := range results {
		if res.ID != jobs[i].ID {
			t.Errorf("result %d tagged %q, want %q", i, res.ID, jobs[i].ID)
		}
		if _, err := os.Stat(filepath.Join(res.Dir, "ran.marker")); err != nil {
			t.Errorf("job %s: runner did not execute in its directory: %v", res.ID, err)
		}
		scene, err := os.ReadFile(filepath.Join(res.Dir, "scene.py"))
		if err != nil {
			t.Fatalf("read rendered scene: %v", err)
		}
		want := "phase = " + jobs[i].Vars["Phase"].(string) + "\n"
		if string(scene) != want {
			t.Errorf("job %s scene = %q, want %q", res.ID, scene, want)
		}
		if _, err := os.Stat(filepath.Join(res.Dir, "aux.py")); err != nil {
			t.Errorf("job %s: auxiliary template not rendered: %v", res.ID, err)
		}
	}
}

func TestParallelLauncher_RunnerFailure(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fail.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write runner: %v", err)
	}
	l := NewParallelLauncher([]string{script}, t.TempDir())

	_, err := l.Launch(context.Background(),
		[]Job{{ID: "phase-000"}},
		[]Template{{Name: "scene.py", Text: "x"}}, 1)
	if err == nil {
		t.Fatal("expected runner failure to surface")
	}
}

func TestByID(t *testing.T) {
	results := []Result{{ID: "a"}, {ID: "b"}}
	if r, ok := ByID(results, "b"); !ok || r.ID != "b" {
		t.Errorf("ByID(b) = %+v, %v", r, ok)
	}
	if _, ok := ByID(results, "c"); ok {
		t.Error("ByID(c) should not match")
	}
}
