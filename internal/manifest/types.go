package manifest

import "fmt"

// OptionType is the declared kind of a block option
type OptionType string

const (
	TypeString  OptionType = "string"
	TypeNumber  OptionType = "number"
	TypeBoolean OptionType = "boolean"
)

// Valid reports whether t is one of the supported option kinds
func (t OptionType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean:
		return true
	}
	return false
}

// BlockManifest describes one invocable generator
type BlockManifest struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	Entry       Entry        `json:"entry" yaml:"entry"`
	Options     []OptionSpec `json:"options" yaml:"options"`
	Outputs     []string     `json:"outputs" yaml:"outputs"` // Informational glob hints

	Source string `json:"-" yaml:"-"` // File the manifest was read from
}

// Option returns the declared option for flag
func (m BlockManifest) Option(flag string) (OptionSpec, bool) {
	for _, opt := range m.Options {
		if opt.Flag == flag {
			return opt, true
		}
	}
	return OptionSpec{}, false
}

// OptionSpec is one CLI flag a block accepts
type OptionSpec struct {
	Flag        string     `json:"flag" yaml:"flag"` // e.g., "--name"
	Type        OptionType `json:"type" yaml:"type"`
	Required    bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// WorkflowDefinition chains block invocations through explicit dependencies
type WorkflowDefinition struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Variables   Variables `json:"variables,omitempty" yaml:"variables,omitempty"`
	Steps       []Step    `json:"steps" yaml:"steps"`

	Source string `json:"-" yaml:"-"`
}

// Step is one node of a workflow's dependency graph
type Step struct {
	ID        string   `json:"id" yaml:"id"`
	Block     string   `json:"block" yaml:"block"`
	Args      []string `json:"args,omitempty" yaml:"args,omitempty"`
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

// Variables holds workflow variable values. Values are string, bool or a
// number (int, int64 or float64 depending on the document decoder).
type Variables map[string]any

// Clone returns a shallow copy of the variables.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	for key, value := range v {
		out[key] = value
	}
	return out
}

// StepID returns the step's declared id or its positional fallback.
// index is zero-based.
func StepID(step Step, index int) string {
	if step.ID != "" {
		return step.ID
	}
	return FallbackStepID(index)
}

// FallbackStepID is the id given to the step at index when none is declared.
func FallbackStepID(index int) string {
	return fmt.Sprintf("step-%d", index+1)
}
