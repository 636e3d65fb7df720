// Package loopspec defines the loop specification: the registry of known
// stages, their upstream priority ordering, and the barrier requirements
// of each join stage. A spec can be decoded from YAML to override the
// built-in default.
package loopspec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Spec describes one version of the startup loop.
type Spec struct {
	Version  string    `yaml:"version"`
	Stages   []string  `yaml:"stages"`
	Barriers []Barrier `yaml:"barriers"`
}

// Barrier describes one join stage and the upstream inputs it merges.
type Barrier struct {
	Stage        string        `yaml:"stage"`
	OutputKey    string        `yaml:"output_key"`
	OutputFile   string        `yaml:"output_file"`
	Requirements []Requirement `yaml:"requirements"`
}

// Requirement names one upstream artifact a barrier consumes.
type Requirement struct {
	Stage       string `yaml:"stage"`
	ArtifactKey string `yaml:"artifact_key"`
	Label       string `yaml:"label"`
	Required    bool   `yaml:"required"`
}

// Default returns the built-in loop spec. Stage order doubles as the
// upstream priority order used for bottleneck tie-breaking.
func Default() Spec {
	return Spec{
		Version: "1.0.0",
		Stages: []string{
			"S0", "S1", "S2", "S2B", "S3", "S4", "S5", "S6", "S6B", "S7", "S8", "S9", "S10",
		},
		Barriers: []Barrier{
			{
				Stage:      "S4",
				OutputKey:  "handoff",
				OutputFile: "handoff.md",
				Requirements: []Requirement{
					{Stage: "S2", ArtifactKey: "research", Label: "Market research", Required: true},
					{Stage: "S2B", ArtifactKey: "pricing", Label: "Pricing model", Required: true},
					{Stage: "S3", ArtifactKey: "forecast", Label: "Baseline forecast", Required: true},
					{Stage: "S1", ArtifactKey: "positioning", Label: "Positioning notes", Required: false},
				},
			},
			{
				Stage:      "S8",
				OutputKey:  "content_packet",
				OutputFile: "content-packet.md",
				Requirements: []Requirement{
					{Stage: "S4", ArtifactKey: "handoff", Label: "Planning handoff", Required: true},
					{Stage: "S6", ArtifactKey: "channel_plan", Label: "Channel plan", Required: true},
					{Stage: "S7", ArtifactKey: "interviews", Label: "Customer interviews", Required: false},
				},
			},
		},
	}
}

// Parse decodes a YAML spec document and validates it.
func Parse(data []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Spec{}, fmt.Errorf("failed to parse loop spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Validate checks internal consistency of the spec.
func (s Spec) Validate() error {
	if s.Version == "" {
		return fmt.Errorf("loop spec missing version")
	}
	if len(s.Stages) == 0 {
		return fmt.Errorf("loop spec has no stages")
	}
	known := make(map[string]bool, len(s.Stages))
	for _, stage := range s.Stages {
		if known[stage] {
			return fmt.Errorf("duplicate stage %s in loop spec", stage)
		}
		known[stage] = true
	}
	for _, b := range s.Barriers {
		if !known[b.Stage] {
			return fmt.Errorf("barrier stage %s not in stage registry", b.Stage)
		}
		for _, req := range b.Requirements {
			if !known[req.Stage] {
				return fmt.Errorf("barrier %s requires unknown stage %s", b.Stage, req.Stage)
			}
		}
	}
	return nil
}

// HasStage reports whether the stage id is in the registry.
func (s Spec) HasStage(stage string) bool {
	return s.PriorityIndex(stage) < len(s.Stages)
}

// PriorityIndex returns the stage's position in the upstream priority
// order, or len(Stages) for stages outside the registry so they rank
// after every registered stage.
func (s Spec) PriorityIndex(stage string) int {
	for i, id := range s.Stages {
		if id == stage {
			return i
		}
	}
	return len(s.Stages)
}

// BarrierFor returns the barrier definition for a join stage, if any.
func (s Spec) BarrierFor(stage string) (Barrier, bool) {
	for _, b := range s.Barriers {
		if b.Stage == stage {
			return b, true
		}
	}
	return Barrier{}, false
}
