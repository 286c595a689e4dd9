package reduce

import "path"

// Stage selects which parameter wrapper defaults are built: the training
// stage captures error indicators against absolute data paths, the
// production stage consumes the precomputed sparse domain through
// relocatable relative paths.
type Stage int

const (
	StageTraining Stage = iota
	StageProduction
)

func (s Stage) String() string {
	if s == StageProduction {
		return "production"
	}
	return "training"
}

// ForceFieldConfig parametrizes the hyper-reducible force model.
type ForceFieldConfig struct {
	PrepareECSW     bool   `yaml:"prepareECSW,omitempty"`
	PerformECSW     bool   `yaml:"performECSW,omitempty"`
	ModesPath       string `yaml:"modesPath"`
	SavePeriod      int    `yaml:"periodSaveGIE,omitempty"`
	TrainingSetSize int    `yaml:"nbTrainingSet,omitempty"`
	RIDPath         string `yaml:"RIDPath,omitempty"`
	WeightsPath     string `yaml:"weightsPath,omitempty"`
}

// MappingConfig parametrizes the reduced-coordinate mapping.
type MappingConfig struct {
	Input     string `yaml:"input"`
	ModesPath string `yaml:"modesPath"`
}

// MatrixMappingConfig parametrizes the reduced mass/matrix mapping.
type MatrixMappingConfig struct {
	NodeToParse           string `yaml:"nodeToParse"`
	Template              string `yaml:"template"`
	Object1               string `yaml:"object1"`
	Object2               string `yaml:"object2"`
	TimeInvariantMapping1 bool   `yaml:"timeInvariantMapping1"`
	TimeInvariantMapping2 bool   `yaml:"timeInvariantMapping2"`
	PerformECSW           bool   `yaml:"performECSW"`
	ActiveNodesPath       string `yaml:"listActiveNodesPath,omitempty"`
	UsePrecomputedMass    bool   `yaml:"usePrecomputedMass,omitempty"`
	PrecomputedMassPath   string `yaml:"precomputedMassPath,omitempty"`
}

// Wrapper is the nested per-node configuration handed to the scene
// templates. Node keeps the original node path for reference.
type Wrapper struct {
	Node          string              `yaml:"node"`
	ForceField    ForceFieldConfig    `yaml:"paramForcefield"`
	Mapping       MappingConfig       `yaml:"paramMORMapping"`
	MatrixMapping MatrixMappingConfig `yaml:"paramMappedMatrixMapping"`
}

// BuildWrapper assembles the wrapper for nodePath in the given stage.
// A non-nil override supplies all three sub-configs and is returned
// unchanged. The node addressing convention (the parsed node and its
// mechanical-state object) is the same in both stages.
func (p *Params) BuildWrapper(nodePath string, stage Stage, override *Wrapper) *Wrapper {
	if override != nil {
		return override
	}

	w := &Wrapper{
		Node: nodePath,
		Mapping: MappingConfig{
			Input: "@../MechanicalObject",
		},
		MatrixMapping: MatrixMappingConfig{
			NodeToParse:           "@." + nodePath,
			Template:              "Vec1d,Vec1d",
			Object1:               "@./MechanicalObject",
			Object2:               "@./MechanicalObject",
			TimeInvariantMapping1: true,
			TimeInvariantMapping2: true,
		},
	}

	switch stage {
	case StageProduction:
		w.ForceField = ForceFieldConfig{
			PerformECSW: true,
			ModesPath:   path.Join(p.DataFolder, ModesFileName),
			RIDPath:     p.DataFolder,
			WeightsPath: p.DataFolder,
		}
		w.Mapping.ModesPath = path.Join(p.DataFolder, ModesFileName)
		w.MatrixMapping.PerformECSW = true
		w.MatrixMapping.ActiveNodesPath = path.Join(p.DataFolder, ActiveNodesFileName)
		w.MatrixMapping.UsePrecomputedMass = true
		w.MatrixMapping.PrecomputedMassPath = path.Join(p.DataFolder, p.MassFileName)
	default:
		w.ForceField = ForceFieldConfig{
			PrepareECSW:     true,
			ModesPath:       path.Join(p.DataDir, ModesFileName),
			SavePeriod:      p.SavePeriod,
			TrainingSetSize: p.TrainingSetSize,
		}
		w.Mapping.ModesPath = path.Join(p.DataDir, ModesFileName)
	}

	return w
}
