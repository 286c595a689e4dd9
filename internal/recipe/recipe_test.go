package recipe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"morpipe/internal/excite"
)

const fingerYAML = `
scene: /scenes/finger.py
nodeToReduce: /finger
actuators:
  - location: /finger/cableNodeTip
    params:
      incr: 5
      incrPeriod: 10
      rangeOfAction: 40
  - location: /finger/cableNodeSide
    function: shake
    params:
      incr: 5
      incrPeriod: 10
      rangeOfAction: 40
tolModes: 0.001
tolGIE: 0.05
outputDir: /tmp/out
packageName: finger
addRigidBodyModes: [0, 0, 1]
workers: 4
phaseToSave: [0, 1]
nbIterations: 50.2
`

func TestLoad_YAML(t *testing.T) {
	r, err := Load([]byte(fingerYAML), ".yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &Recipe{
		Scene:        "/scenes/finger.py",
		NodeToReduce: "/finger",
		Actuators: []Actuator{
			{Location: "/finger/cableNodeTip", Params: map[string]float64{"incr": 5, "incrPeriod": 10, "rangeOfAction": 40}},
			{Location: "/finger/cableNodeSide", Function: "shake", Params: map[string]float64{"incr": 5, "incrPeriod": 10, "rangeOfAction": 40}},
		},
		TolModes:          0.001,
		TolGIE:            0.05,
		OutputDir:         "/tmp/out",
		PackageName:       "finger",
		AddRigidBodyModes: []int{0, 0, 1},
		Workers:           4,
		PhaseToSave:       []int{0, 1},
	}
	iters := 50.2
	want.NbIterations = &iters
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("recipe mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_JSONByContent(t *testing.T) {
	data := []byte(`{"scene": "/scenes/liver.py", "nodeToReduce": "/liver", "actuators": [{"location": "/liver/p"}]}`)
	r, err := Load(data, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Scene != "/scenes/liver.py" || len(r.Actuators) != 1 {
		t.Errorf("parsed %+v", r)
	}
}

func TestLoadFromPath_ExtensionHint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finger.yml")
	if err := os.WriteFile(path, []byte(fingerYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if r.NodeToReduce != "/finger" {
		t.Errorf("NodeToReduce = %q", r.NodeToReduce)
	}
}

func TestConfig_BuildsSpecs(t *testing.T) {
	r, err := Load([]byte(fingerYAML), ".yaml")
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := r.Config(excite.Default())
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if len(cfg.Actuators) != 2 {
		t.Fatalf("actuators = %d, want 2", len(cfg.Actuators))
	}
	if cfg.Actuators[0].Function != excite.DefaultFunction {
		t.Errorf("empty function must resolve to the default, got %q", cfg.Actuators[0].Function)
	}
	if cfg.IterationOverride == nil || *cfg.IterationOverride != 50.2 {
		t.Errorf("IterationOverride = %v", cfg.IterationOverride)
	}
	if len(cfg.PhaseToSave) != 2 {
		t.Errorf("PhaseToSave = %v", cfg.PhaseToSave)
	}
	if !cfg.RigidBodyModes {
		t.Error("any non-zero axis must enable rigid-body modes")
	}
}

func TestConfig_NoRigidBodyAxes(t *testing.T) {
	r := &Recipe{
		Scene:             "s",
		NodeToReduce:      "n",
		Actuators:         []Actuator{{Location: "/p"}},
		AddRigidBodyModes: []int{0, 0, 0},
	}
	cfg, err := r.Config(excite.Default())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RigidBodyModes {
		t.Error("all-zero axis list must not enable rigid-body modes")
	}
}

func TestConfig_UnknownExcitation(t *testing.T) {
	r := &Recipe{
		Scene:        "s",
		NodeToReduce: "n",
		Actuators:    []Actuator{{Location: "/p", Function: "warp"}},
	}
	_, err := r.Config(excite.Default())
	if err == nil || !strings.Contains(err.Error(), "warp") {
		t.Fatalf("expected unknown-excitation error naming the function, got %v", err)
	}
}
