// Package workflow plans and runs workflows: every step is resolved and
// checked up front, then steps run one at a time in dependency order.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/solid-auto/app-blocks/internal/contract"
	"github.com/solid-auto/app-blocks/internal/graph"
	"github.com/solid-auto/app-blocks/internal/interpolate"
	"github.com/solid-auto/app-blocks/internal/manifest"
	"github.com/solid-auto/app-blocks/internal/registry"
	"github.com/solid-auto/app-blocks/internal/runner"
)

// Phase is a state of a workflow run
type Phase string

const (
	PhaseLoaded        Phase = "loaded"
	PhaseValidated     Phase = "validated"
	PhaseGraphResolved Phase = "graph-resolved"
	PhaseStepRunning   Phase = "step-running"
	PhaseStepSucceeded Phase = "step-succeeded"
	PhaseCompleted     Phase = "completed"
	PhaseAborted       Phase = "aborted"
)

// PlannedStep is a step with its block, final arguments and command
type PlannedStep struct {
	Step    manifest.Step
	Block   manifest.BlockManifest
	Args    []string
	Command runner.Command
}

// Plan is a workflow ready to run
type Plan struct {
	Workflow  string
	Variables manifest.Variables
	Steps     []PlannedStep
}

// Run records one execution of a workflow
type Run struct {
	ID        string
	Workflow  string
	DryRun    bool
	Phase     Phase
	History   []Phase
	Plan      *Plan
	Completed []string // step ids that finished, in order
	Failed    string   // id of the step that stopped the run, if any
	Started   time.Time
	Finished  time.Time
}

func (r *Run) transition(p Phase) {
	r.Phase = p
	r.History = append(r.History, p)
}

// Engine plans and runs workflows against a registry
type Engine struct {
	Registry *registry.Registry
	Runner   *runner.Runner
	Logger   zerolog.Logger
}

// NewEngine creates a new workflow engine
func NewEngine(reg *registry.Registry, r *runner.Runner, logger zerolog.Logger) *Engine {
	return &Engine{Registry: reg, Runner: r, Logger: logger}
}

// Plan merges overrides over wf's variables, orders the steps and resolves
// every step's command. Nothing is executed.
func (e *Engine) Plan(wf manifest.WorkflowDefinition, overrides manifest.Variables) (*Plan, error) {
	run := &Run{Workflow: wf.Name}
	return e.plan(run, wf, overrides, e.Logger)
}

// Run plans wf and then executes the steps in order. The first failing step
// aborts the run; steps that already ran are left as they are. The returned
// Run is never nil.
func (e *Engine) Run(ctx context.Context, wf manifest.WorkflowDefinition, overrides manifest.Variables, dryRun bool) (*Run, error) {
	run := &Run{
		ID:       uuid.NewString(),
		Workflow: wf.Name,
		DryRun:   dryRun,
		Started:  time.Now(),
	}
	logger := e.Logger.With().Str("run", run.ID).Str("workflow", wf.Name).Logger()

	abort := func(err error) (*Run, error) {
		run.transition(PhaseAborted)
		run.Finished = time.Now()
		logger.Warn().Err(err).Str("step", run.Failed).Msg("workflow aborted")
		return run, err
	}

	plan, err := e.plan(run, wf, overrides, logger)
	if err != nil {
		return abort(err)
	}
	run.Plan = plan

	for _, ps := range plan.Steps {
		if err := ctx.Err(); err != nil {
			run.Failed = ps.Step.ID
			return abort(err)
		}

		run.transition(PhaseStepRunning)
		logger.Debug().Str("step", ps.Step.ID).Str("block", ps.Block.Name).Msg("running step")

		if err := e.Runner.Run(ctx, ps.Command, runner.Options{DryRun: dryRun}); err != nil {
			run.Failed = ps.Step.ID
			return abort(fmt.Errorf("step %q (%s) failed: %w", ps.Step.ID, ps.Block.Name, err))
		}

		run.Completed = append(run.Completed, ps.Step.ID)
		run.transition(PhaseStepSucceeded)
	}

	run.transition(PhaseCompleted)
	run.Finished = time.Now()
	logger.Info().Int("steps", len(run.Completed)).Dur("took", run.Finished.Sub(run.Started)).Msg("workflow completed")
	return run, nil
}

func (e *Engine) plan(run *Run, wf manifest.WorkflowDefinition, overrides manifest.Variables, logger zerolog.Logger) (*Plan, error) {
	run.transition(PhaseLoaded)

	blocks := make(map[string]manifest.BlockManifest, len(wf.Steps))
	for i, step := range wf.Steps {
		id := manifest.StepID(step, i)
		b, ok := e.Registry.Block(step.Block)
		if !ok {
			run.Failed = id
			return nil, fmt.Errorf("step %q references unknown block %q.", id, step.Block)
		}
		blocks[step.Block] = b
	}
	run.transition(PhaseValidated)

	ordered, err := graph.ResolveWorkflowSteps(wf)
	if err != nil {
		return nil, err
	}
	run.transition(PhaseGraphResolved)

	vars := interpolate.Merge(wf.Variables, overrides)
	plan := &Plan{Workflow: wf.Name, Variables: vars}
	for _, step := range ordered {
		b := blocks[step.Block]

		args, err := interpolate.ResolveStepArgs(step, vars)
		if err != nil {
			run.Failed = step.ID
			return nil, fmt.Errorf("step %q: %w", step.ID, err)
		}
		if err := contract.ValidatePassthroughArgs(b, args); err != nil {
			run.Failed = step.ID
			return nil, fmt.Errorf("step %q: %w", step.ID, err)
		}
		cmd, err := e.Runner.Resolve(b, args)
		if err != nil {
			run.Failed = step.ID
			return nil, fmt.Errorf("step %q: %w", step.ID, err)
		}

		plan.Steps = append(plan.Steps, PlannedStep{Step: step, Block: b, Args: args, Command: cmd})
	}

	logger.Debug().Int("steps", len(plan.Steps)).Msg("workflow planned")
	return plan, nil
}
