package assemble

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"morpipe/internal/launch"
)

func newAssembler(t *testing.T) *Assembler {
	t.Helper()
	a, err := New(t.TempDir(), "finger", "", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestEnsureLayout_Idempotent(t *testing.T) {
	a := newAssembler(t)
	for i := 0; i < 2; i++ {
		if err := a.EnsureLayout(); err != nil {
			t.Fatalf("EnsureLayout pass %d: %v", i+1, err)
		}
	}
	for _, dir := range []string{a.DataDir, a.DebugDir, a.MeshDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s, got %v, %v", dir, info, err)
		}
	}
}

func TestNew_PackageNamePrefix(t *testing.T) {
	a := newAssembler(t)
	if a.PackageName != "reduced_finger" {
		t.Errorf("PackageName = %q, want reduced_finger", a.PackageName)
	}
}

func TestNew_LibraryCollision(t *testing.T) {
	lib := t.TempDir()
	if err := os.MkdirAll(filepath.Join(lib, "reduced_finger"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := New(t.TempDir(), "finger", lib, true); err == nil {
		t.Fatal("expected collision with existing library package")
	}
}

func TestModeCount(t *testing.T) {
	a := newAssembler(t)
	if err := a.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(a.DataDir, "modes.txt")
	if err := os.WriteFile(path, []byte("NDOF 37 extra\nrest is opaque\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := a.ModeCount(path)
	if err != nil {
		t.Fatalf("ModeCount: %v", err)
	}
	if n != 37 {
		t.Errorf("ModeCount = %d, want 37", n)
	}
}

func TestModeCount_MissingFile(t *testing.T) {
	a := newAssembler(t)
	_, err := a.ModeCount(filepath.Join(a.DataDir, "modes.txt"))
	var missing *MissingArtifactError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingArtifactError, got %v", err)
	}
}

func jobDir(t *testing.T, timeline string) launch.Result {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "stateFile.state"), []byte(timeline), 0o644); err != nil {
		t.Fatal(err)
	}
	return launch.Result{Dir: dir}
}

func TestMergeStateTimelines_RenumbersAcrossJobs(t *testing.T) {
	a := newAssembler(t)

	jobA := jobDir(t, "X 1.0\nT= 3\ndata\nT= 9\nT= 12\n")
	jobB := jobDir(t, "T= 1\nY 2.0\nT= 2\nT= 5\n")

	if err := a.MergeStateTimelines([]launch.Result{jobA, jobB}, 6, "stateFile.state", nil); err != nil {
		t.Fatalf("MergeStateTimelines: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(a.DebugDir, "stateFile.state"))
	if err != nil {
		t.Fatal(err)
	}
	var markers []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "T= ") {
			markers = append(markers, strings.TrimPrefix(line, "T= "))
		}
	}
	want := []string{"6", "12", "18", "24", "30", "36"}
	if len(markers) != len(want) {
		t.Fatalf("got %d markers %v, want %v", len(markers), markers, want)
	}
	for i := range want {
		if markers[i] != want[i] {
			t.Errorf("marker %d = %s, want %s", i, markers[i], want[i])
		}
	}
	if !strings.Contains(string(data), "X 1.0") || !strings.Contains(string(data), "Y 2.0") {
		t.Error("non-marker lines must be preserved verbatim")
	}
}

func TestMergeStateTimelines_ReplacesStaleOutput(t *testing.T) {
	a := newAssembler(t)
	if err := os.MkdirAll(a.DebugDir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(a.DebugDir, "stateFile.state")
	if err := os.WriteFile(stale, []byte("stale content\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	job := jobDir(t, "T= 4\n")
	if err := a.MergeStateTimelines([]launch.Result{job}, 6, "stateFile.state", nil); err != nil {
		t.Fatalf("MergeStateTimelines: %v", err)
	}
	data, _ := os.ReadFile(stale)
	if strings.Contains(string(data), "stale") {
		t.Error("stale output must be replaced, not appended to")
	}
}

func TestMergeStateTimelines_AuxiliaryConcat(t *testing.T) {
	a := newAssembler(t)

	jobA := jobDir(t, "T= 1\n")
	jobB := jobDir(t, "T= 1\n")
	gie := "HyperReducedFEMForceField_finger_Gie.txt"
	if err := os.WriteFile(filepath.Join(jobA.Dir, gie), []byte("a1\na2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(jobB.Dir, gie), []byte("b1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := a.MergeStateTimelines([]launch.Result{jobA, jobB}, 6, "step2_stateFile.state", []string{gie}); err != nil {
		t.Fatalf("MergeStateTimelines: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(a.DebugDir, gie))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a1\na2\nb1\n" {
		t.Errorf("auxiliary concat = %q, want jobs in submission order without renumbering", data)
	}
}

func TestMergeStateTimelines_MissingJobFile(t *testing.T) {
	a := newAssembler(t)
	missing := launch.Result{Dir: t.TempDir()}
	err := a.MergeStateTimelines([]launch.Result{missing}, 6, "stateFile.state", nil)
	var m *MissingArtifactError
	if !errors.As(err, &m) {
		t.Fatalf("expected MissingArtifactError, got %v", err)
	}
}

func TestStageAsset_FileAndTree(t *testing.T) {
	a := newAssembler(t)
	if err := a.EnsureLayout(); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(t.TempDir(), "liver.vtk")
	if err := os.WriteFile(src, []byte("mesh"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := a.StageAsset(src, a.MeshDir); err != nil {
		t.Fatalf("StageAsset file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(a.MeshDir, "liver.vtk")); err != nil {
		t.Errorf("file not staged into directory: %v", err)
	}

	treeSrc := t.TempDir()
	if err := os.MkdirAll(filepath.Join(treeSrc, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(treeSrc, "sub", "x.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "copy")
	if err := a.StageAsset(treeSrc, dst); err != nil {
		t.Fatalf("StageAsset tree: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "sub", "x.txt")); err != nil {
		t.Errorf("tree not copied: %v", err)
	}
}

func TestWriteActiveNodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listActiveNodes.txt")
	if err := WriteActiveNodes(path, []int{1, 3, 4, 5}); err != nil {
		t.Fatalf("WriteActiveNodes: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "1\n3\n4\n5\n" {
		t.Errorf("file = %q", data)
	}
}
