// Package reduce holds the parameters threaded through the reduction
// stages: tolerances, generated artifact names, and the per-stage
// parameter wrappers consumed by the scene templates.
package reduce

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Fixed artifact names of the data contract.
const (
	StateFileName       = "stateFile.state"
	ModesFileName       = "modes.txt"
	ActiveNodesFileName = "listActiveNodes.txt"
	MeshManifestName    = "meshFiles.txt"
	DebugSceneName      = "debug_scene.py"
)

// DefaultSavePeriod is the step interval at which states and error
// indicators are captured during training.
const DefaultSavePeriod = 6

// FileNames are the per-node artifact names derived from the node path.
// Gie and SavedElements are re-discovered from job directories during
// training, so they are slices even for a single reduced node.
type FileNames struct {
	Gie           []string
	RID           []string
	Weights       []string
	SavedElements []string
	ActiveNodes   []string
}

// Params carries everything the four stages share. It is mutated between
// phases by the orchestrator and never shared concurrently.
type Params struct {
	TolModes          float64
	TolGIE            float64
	AddRigidBodyModes bool

	// DataDir is the absolute data directory; DataFolder is its
	// relocatable relative form used by production packages.
	DataDir    string
	DataFolder string

	SavePeriod      int
	TrainingSetSize int
	ModeCount       int
	MassFileName    string

	Files   FileNames
	Wrapper *Wrapper
}

// NewParams returns Params with the defaults of a fresh reduction: save
// period DefaultSavePeriod, unknown mode count and training-set size.
func NewParams(tolModes, tolGIE float64, addRigidBodyModes bool, dataDir string) *Params {
	return &Params{
		TolModes:          tolModes,
		TolGIE:            tolGIE,
		AddRigidBodyModes: addRigidBodyModes,
		DataDir:           dataDir,
		DataFolder:        path.Join(filepath.Base(dataDir)) + "/",
		SavePeriod:        DefaultSavePeriod,
		TrainingSetSize:   -1,
		ModeCount:         -1,
	}
}

// SetTrainingSetSize derives the training-set size from a ramp description.
func (p *Params) SetTrainingSetSize(rangeOfAction, incr float64) error {
	if incr == 0 {
		return fmt.Errorf("training set size: zero increment")
	}
	p.TrainingSetSize = int(rangeOfAction / incr)
	return nil
}

// NodeName returns the trailing segment of a node path.
func NodeName(nodePath string) string {
	nodePath = strings.TrimRight(nodePath, "/")
	if i := strings.LastIndex(nodePath, "/"); i >= 0 {
		return nodePath[i+1:]
	}
	return nodePath
}

// DeriveFileNames substitutes the node name into the fixed artifact name
// templates. Deterministic: the same node path yields the same names on
// every call.
func DeriveFileNames(nodePath string) FileNames {
	name := NodeName(nodePath)
	return FileNames{
		Gie:           []string{"HyperReducedFEMForceField_" + name + "_Gie.txt"},
		RID:           []string{"RID_" + name + ".txt"},
		Weights:       []string{"weight_" + name + ".txt"},
		SavedElements: []string{"elmts_" + name + ".txt"},
		ActiveNodes:   []string{"listActiveNodes_" + name + ".txt"},
	}
}

// SetFileNames installs the derived names for nodePath on p.
func (p *Params) SetFileNames(nodePath string) {
	p.Files = DeriveFileNames(nodePath)
}
