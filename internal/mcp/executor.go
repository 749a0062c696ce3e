package mcp

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/solid-auto/app-blocks/internal/contract"
	"github.com/solid-auto/app-blocks/internal/interpolate"
	"github.com/solid-auto/app-blocks/internal/manifest"
	"github.com/solid-auto/app-blocks/internal/registry"
	"github.com/solid-auto/app-blocks/internal/runner"
	"github.com/solid-auto/app-blocks/internal/workflow"
)

// CommandExecutor runs tool calls through the same contract checks and
// runner as the CLI, capturing generator output for the tool result.
type CommandExecutor struct {
	registry *registry.Registry
	runner   runner.Runner
	logger   zerolog.Logger
}

// NewCommandExecutor creates a new command executor. base supplies the
// workspace and script roots; its streams are replaced per call.
func NewCommandExecutor(reg *registry.Registry, base *runner.Runner, logger zerolog.Logger) *CommandExecutor {
	return &CommandExecutor{
		registry: reg,
		runner:   *base,
		logger:   logger,
	}
}

// ExecuteBlock runs one block with tool arguments mapped onto its flags
func (e *CommandExecutor) ExecuteBlock(ctx context.Context, name string, args map[string]any, dryRun bool) (string, error) {
	m, ok := e.registry.Block(name)
	if !ok {
		return "", fmt.Errorf("Unknown block %q.", name)
	}

	tokens := BlockTokens(m, args)
	if err := contract.ValidatePassthroughArgs(m, tokens); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	r := e.capture(&buf)
	err := r.RunStep(ctx, m, tokens, runner.Options{DryRun: dryRun})
	return buf.String(), err
}

// ExecuteWorkflow runs a workflow with tool arguments as variable overrides
func (e *CommandExecutor) ExecuteWorkflow(ctx context.Context, name string, args map[string]any, dryRun bool) (string, error) {
	wf, ok := e.registry.Workflow(name)
	if !ok {
		return "", fmt.Errorf("Unknown workflow %q.", name)
	}

	overrides := make(manifest.Variables, len(args))
	for key, value := range args {
		overrides[key] = value
	}

	var buf bytes.Buffer
	r := e.capture(&buf)
	run, err := workflow.NewEngine(e.registry, r, e.logger).Run(ctx, wf, overrides, dryRun)
	if err != nil {
		return buf.String(), err
	}
	fmt.Fprintf(&buf, "workflow %s completed (%d step(s), run %s)\n", wf.Name, len(run.Completed), run.ID)
	return buf.String(), nil
}

func (e *CommandExecutor) capture(buf *bytes.Buffer) *runner.Runner {
	r := e.runner
	r.Stdout = buf
	r.Stderr = buf
	r.Stdin = nil
	return &r
}

// BlockTokens renders tool arguments as "--key=value" flag tokens: declared
// options first in declaration order, then unknown keys sorted so the
// contract check names the same one every time.
func BlockTokens(m manifest.BlockManifest, args map[string]any) []string {
	var tokens []string
	seen := make(map[string]struct{}, len(args))

	for _, opt := range m.Options {
		key := opt.Flag[2:]
		value, ok := args[key]
		if !ok {
			continue
		}
		seen[key] = struct{}{}
		tokens = append(tokens, token(opt.Flag, value))
	}

	var extra []string
	for key := range args {
		if _, ok := seen[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		tokens = append(tokens, token("--"+key, args[key]))
	}
	return tokens
}

func token(flag string, value any) string {
	if b, ok := value.(bool); ok && b {
		return flag
	}
	return flag + "=" + interpolate.Stringify(value)
}
