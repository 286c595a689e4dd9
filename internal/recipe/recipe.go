// Package recipe loads the reduction recipe file: the user-facing
// description of a run, parsed from YAML or JSON and resolved into a
// pipeline configuration.
package recipe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"morpipe/internal/excite"
	"morpipe/internal/phase"
	"morpipe/internal/pipeline"
)

// Actuator is one actuated location and its excitation description.
type Actuator struct {
	Location string             `yaml:"location" json:"location"`
	Function string             `yaml:"function,omitempty" json:"function,omitempty"`
	Params   map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
}

// Recipe is the on-disk run description.
type Recipe struct {
	Scene        string     `yaml:"scene" json:"scene"`
	NodeToReduce string     `yaml:"nodeToReduce" json:"nodeToReduce"`
	Actuators    []Actuator `yaml:"actuators" json:"actuators"`

	TolModes float64 `yaml:"tolModes" json:"tolModes"`
	TolGIE   float64 `yaml:"tolGIE" json:"tolGIE"`

	OutputDir   string `yaml:"outputDir" json:"outputDir"`
	PackageName string `yaml:"packageName,omitempty" json:"packageName,omitempty"`

	AddToLibrary bool   `yaml:"addToLibrary,omitempty" json:"addToLibrary,omitempty"`
	LibraryRoot  string `yaml:"libraryRoot,omitempty" json:"libraryRoot,omitempty"`

	// AddRigidBodyModes is the per-axis rigid-body flag list (0/1 per
	// axis); any non-zero entry enables rigid-body modes for the basis
	// extraction.
	AddRigidBodyModes []int `yaml:"addRigidBodyModes,omitempty,flow" json:"addRigidBodyModes,omitempty"`
	Workers           int   `yaml:"workers,omitempty" json:"workers,omitempty"`

	PhaseToSave  []int    `yaml:"phaseToSave,omitempty" json:"phaseToSave,omitempty"`
	NbIterations *float64 `yaml:"nbIterations,omitempty" json:"nbIterations,omitempty"`
}

// LoadFromPath reads a recipe file (YAML or JSON). Format is detected by
// extension (.yaml/.yml/.json) or by content (first non-whitespace char).
func LoadFromPath(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses a recipe from bytes. ext is the file extension for a format
// hint; empty means detect from content.
func Load(data []byte, ext string) (*Recipe, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	switch ext {
	case ".yaml":
		return parseYAML(data)
	case ".json":
		return parseJSON(data)
	}
	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		return parseJSON(data)
	}
	return parseYAML(data)
}

func parseYAML(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse recipe yaml: %w", err)
	}
	return &r, nil
}

func parseJSON(data []byte) (*Recipe, error) {
	var r Recipe
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse recipe json: %w", err)
	}
	return &r, nil
}

// Config resolves the recipe into a pipeline configuration, validating
// every actuator's excitation name against reg.
func (r *Recipe) Config(reg *excite.Registry) (pipeline.Config, error) {
	specs := make([]*excite.Spec, 0, len(r.Actuators))
	for i, a := range r.Actuators {
		spec, err := excite.NewSpec(reg, a.Location, a.Function, a.Params)
		if err != nil {
			return pipeline.Config{}, fmt.Errorf("actuator %d: %w", i, err)
		}
		specs = append(specs, spec)
	}

	rigid := false
	for _, axis := range r.AddRigidBodyModes {
		if axis != 0 {
			rigid = true
			break
		}
	}

	cfg := pipeline.Config{
		Scene:             r.Scene,
		NodeToReduce:      r.NodeToReduce,
		Actuators:         specs,
		TolModes:          r.TolModes,
		TolGIE:            r.TolGIE,
		OutputDir:         r.OutputDir,
		PackageName:       r.PackageName,
		AddToLibrary:      r.AddToLibrary,
		LibraryRoot:       r.LibraryRoot,
		RigidBodyModes:    rigid,
		Workers:           r.Workers,
		IterationOverride: r.NbIterations,
	}
	if r.PhaseToSave != nil {
		cfg.PhaseToSave = phase.Vector(r.PhaseToSave)
	}
	return cfg, nil
}
