// Package graph orders workflow steps so every step runs after the steps it
// depends on.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	dgraph "github.com/dominikbraun/graph"

	"github.com/solid-auto/app-blocks/internal/manifest"
)

// Kind classifies resolution failures.
type Kind string

const (
	KindDuplicate Kind = "duplicate"
	KindDangling  Kind = "dangling"
	KindCycle     Kind = "cycle"
)

// Error reports why a workflow's steps cannot be ordered. For cycles, Cycles
// holds each group of mutually dependent steps in declaration order.
type Error struct {
	Workflow   string
	Kind       Kind
	Step       string
	Dependency string
	Cycles     [][]string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDuplicate:
		return fmt.Sprintf("Workflow %q has duplicate step id %q.", e.Workflow, e.Step)
	case KindDangling:
		return fmt.Sprintf("Workflow %q step %q references unknown dependency %q.", e.Workflow, e.Step, e.Dependency)
	}

	groups := make([]string, 0, len(e.Cycles))
	for _, members := range e.Cycles {
		if len(members) == 1 {
			groups = append(groups, members[0]+" -> "+members[0])
			continue
		}
		groups = append(groups, strings.Join(members, " -> "))
	}
	if len(groups) == 0 {
		return fmt.Sprintf("Workflow %q has circular dependencies.", e.Workflow)
	}
	return fmt.Sprintf("Workflow %q has circular dependencies (cycle: %s).", e.Workflow, strings.Join(groups, "; "))
}

// ResolveWorkflowSteps returns wf's steps in execution order. Steps without
// an id get their positional fallback id. Ready steps leave the queue in
// declaration order, so the result is stable for a given document.
func ResolveWorkflowSteps(wf manifest.WorkflowDefinition) ([]manifest.Step, error) {
	steps := make([]manifest.Step, len(wf.Steps))
	position := make(map[string]int, len(wf.Steps))
	for i, step := range wf.Steps {
		step.ID = manifest.StepID(step, i)
		if _, ok := position[step.ID]; ok {
			return nil, &Error{Workflow: wf.Name, Kind: KindDuplicate, Step: step.ID}
		}
		position[step.ID] = i
		steps[i] = step
	}

	inDegree := make([]int, len(steps))
	dependents := make([][]int, len(steps))
	for i, step := range steps {
		seen := map[string]struct{}{}
		for _, dep := range step.DependsOn {
			j, ok := position[dep]
			if !ok {
				return nil, &Error{Workflow: wf.Name, Kind: KindDangling, Step: step.ID, Dependency: dep}
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			inDegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	queue := make([]int, 0, len(steps))
	for i := range steps {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	ordered := make([]manifest.Step, 0, len(steps))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		ordered = append(ordered, steps[i])
		for _, j := range dependents[i] {
			inDegree[j]--
			if inDegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}

	if len(ordered) < len(steps) {
		var pending []manifest.Step
		for i, step := range steps {
			if inDegree[i] > 0 {
				pending = append(pending, step)
			}
		}
		cycles, err := findCycles(pending, position)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect dependency cycle: %w", err)
		}
		return nil, &Error{Workflow: wf.Name, Kind: KindCycle, Cycles: cycles}
	}

	return ordered, nil
}

// findCycles returns the strongly connected groups among pending steps that
// form a cycle, either through two or more steps or a self dependency.
// Steps that merely wait on a cycle are left out.
func findCycles(pending []manifest.Step, position map[string]int) ([][]string, error) {
	g := dgraph.New(dgraph.StringHash, dgraph.Directed())
	selfLoop := map[string]bool{}

	for _, step := range pending {
		if err := g.AddVertex(step.ID); err != nil && !errors.Is(err, dgraph.ErrVertexAlreadyExists) {
			return nil, err
		}
	}
	for _, step := range pending {
		for _, dep := range step.DependsOn {
			if dep == step.ID {
				selfLoop[dep] = true
				continue
			}
			if _, err := g.Vertex(dep); err != nil {
				// dependency already ran; it cannot be part of a cycle
				continue
			}
			if err := g.AddEdge(dep, step.ID); err != nil && !errors.Is(err, dgraph.ErrEdgeAlreadyExists) {
				return nil, err
			}
		}
	}

	components, err := dgraph.StronglyConnectedComponents(g)
	if err != nil {
		return nil, err
	}

	var cycles [][]string
	for _, members := range components {
		if len(members) == 1 && !selfLoop[members[0]] {
			continue
		}
		sort.Slice(members, func(a, b int) bool {
			return position[members[a]] < position[members[b]]
		})
		cycles = append(cycles, members)
	}
	sort.Slice(cycles, func(a, b int) bool {
		return position[cycles[a][0]] < position[cycles[b][0]]
	})
	return cycles, nil
}
