// Package runner turns a block manifest plus checked arguments into a
// generator process and runs it, or only prints it on a dry run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"

	"github.com/solid-auto/app-blocks/internal/manifest"
)

// Command is a fully resolved generator invocation
type Command struct {
	Program string
	Args    []string
	Dir     string
	Env     []string // extra KEY=VALUE entries on top of the inherited environment
}

// String renders the command line with every argument shell-quoted. It is
// for display only; Run never goes through a shell.
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Program}, c.Args...)...)
}

// ExitError reports a generator that exited with a non-zero status
type ExitError struct {
	Command Command
	Code    int
	Err     error
}

func (e *ExitError) Error() string {
	if e.Code < 0 {
		return fmt.Sprintf("command failed: %s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("command failed with exit code %d: %s", e.Code, e.Command)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Options control a single run
type Options struct {
	DryRun bool
}

// Runner spawns generator processes in a workspace
type Runner struct {
	WorkspaceRoot string // working directory of every generator
	ScriptRoot    string // base for relative entry scripts
	Tag           string // prefix of announced command lines, e.g. "create-block"
	Env           []string

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger zerolog.Logger
}

// NewRunner creates a runner wired to the process's standard streams
func NewRunner(workspaceRoot, scriptRoot, tag string, logger zerolog.Logger) *Runner {
	return &Runner{
		WorkspaceRoot: workspaceRoot,
		ScriptRoot:    scriptRoot,
		Tag:           tag,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		Stdin:         os.Stdin,
		Logger:        logger,
	}
}

// Resolve builds the command for m: the entry program, the entry script
// made absolute against the script root, the entry's own trailing
// arguments, then args.
func (r *Runner) Resolve(m manifest.BlockManifest, args []string) (Command, error) {
	if m.Entry.Program == "" || m.Entry.Script == "" {
		entry, err := manifest.ParseEntry(m.Entry.Raw)
		if err != nil {
			return Command{}, fmt.Errorf("block %q: %w", m.Name, err)
		}
		m.Entry = entry
	}

	script := m.Entry.Script
	if !filepath.IsAbs(script) {
		root := r.ScriptRoot
		if root == "" {
			root = r.WorkspaceRoot
		}
		script = filepath.Join(root, filepath.FromSlash(script))
	}

	cmdArgs := make([]string, 0, 1+len(m.Entry.Args)+len(args))
	cmdArgs = append(cmdArgs, script)
	cmdArgs = append(cmdArgs, m.Entry.Args...)
	cmdArgs = append(cmdArgs, args...)

	return Command{
		Program: m.Entry.Program,
		Args:    cmdArgs,
		Dir:     r.WorkspaceRoot,
		Env:     append([]string(nil), r.Env...),
	}, nil
}

// Run announces cmd and, unless this is a dry run, executes it synchronously
// with the runner's stdio.
func (r *Runner) Run(ctx context.Context, cmd Command, opts Options) error {
	if opts.DryRun {
		fmt.Fprintf(r.stdout(), "%s[dry-run] %s\n", r.prefix(), cmd)
		r.Logger.Debug().Str("command", cmd.String()).Msg("dry run, command not started")
		return nil
	}

	fmt.Fprintf(r.stdout(), "%s%s\n", r.prefix(), cmd)

	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = r.stdout()
	c.Stderr = r.stderr()
	c.Stdin = r.Stdin
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	r.Logger.Debug().Str("command", cmd.String()).Str("dir", cmd.Dir).Msg("starting generator")
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Command: cmd, Code: exitErr.ExitCode(), Err: err}
		}
		return &ExitError{Command: cmd, Code: -1, Err: err}
	}
	r.Logger.Debug().Str("command", cmd.String()).Msg("generator finished")
	return nil
}

// RunStep resolves and runs one block invocation
func (r *Runner) RunStep(ctx context.Context, m manifest.BlockManifest, args []string, opts Options) error {
	cmd, err := r.Resolve(m, args)
	if err != nil {
		return err
	}
	return r.Run(ctx, cmd, opts)
}

func (r *Runner) prefix() string {
	if r.Tag == "" {
		return ""
	}
	return "[" + r.Tag + "] "
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout == nil {
		return io.Discard
	}
	return r.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr == nil {
		return io.Discard
	}
	return r.Stderr
}
