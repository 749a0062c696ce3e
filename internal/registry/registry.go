// Package registry holds the in-memory catalog of blocks and workflows built
// from a workspace's manifest and workflow directories.
package registry

import (
	"fmt"
	"io/fs"

	"github.com/solid-auto/app-blocks/internal/manifest"
)

// Registry is an immutable, name-sorted catalog.
type Registry struct {
	blocks    []manifest.BlockManifest
	workflows []manifest.WorkflowDefinition

	blockIndex    map[string]int
	workflowIndex map[string]int
}

// New builds a registry and checks that every workflow step names a known
// block.
func New(blocks []manifest.BlockManifest, workflows []manifest.WorkflowDefinition) (*Registry, error) {
	r := &Registry{
		blocks:        blocks,
		workflows:     workflows,
		blockIndex:    make(map[string]int, len(blocks)),
		workflowIndex: make(map[string]int, len(workflows)),
	}
	for i, b := range blocks {
		r.blockIndex[b.Name] = i
	}
	for i, wf := range workflows {
		r.workflowIndex[wf.Name] = i
		for j, step := range wf.Steps {
			if _, ok := r.blockIndex[step.Block]; !ok {
				return nil, &manifest.SchemaError{
					Source:  wf.Source,
					Field:   fmt.Sprintf("steps[%d].block", j),
					Message: fmt.Sprintf("step %q references unknown block %q.", step.ID, step.Block),
				}
			}
		}
	}
	return r, nil
}

// Block returns the manifest named name
func (r *Registry) Block(name string) (manifest.BlockManifest, bool) {
	i, ok := r.blockIndex[name]
	if !ok {
		return manifest.BlockManifest{}, false
	}
	return r.blocks[i], true
}

// Workflow returns the workflow named name
func (r *Registry) Workflow(name string) (manifest.WorkflowDefinition, bool) {
	i, ok := r.workflowIndex[name]
	if !ok {
		return manifest.WorkflowDefinition{}, false
	}
	return r.workflows[i], true
}

// Blocks returns all manifests sorted by name
func (r *Registry) Blocks() []manifest.BlockManifest {
	return append([]manifest.BlockManifest(nil), r.blocks...)
}

// Workflows returns all workflows sorted by name
func (r *Registry) Workflows() []manifest.WorkflowDefinition {
	return append([]manifest.WorkflowDefinition(nil), r.workflows...)
}

// LoadManifests reads the block manifests in dir
func LoadManifests(dir string, scripts fs.StatFS) ([]manifest.BlockManifest, error) {
	return NewLoader("", dir, "", scripts).LoadManifests()
}

// LoadWorkflows reads the workflow definitions in dir
func LoadWorkflows(dir string) ([]manifest.WorkflowDefinition, error) {
	return NewLoader("", "", dir, nil).LoadWorkflows()
}

// Load reads both catalog directories into a registry
func Load(manifestsDir, workflowsDir string, scripts fs.StatFS) (*Registry, error) {
	return NewLoader("", manifestsDir, workflowsDir, scripts).Load()
}
