package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solid-auto/app-blocks/internal/output"
	"github.com/solid-auto/app-blocks/internal/workflow"
)

const workflowTag = "create-workflow"

const workflowUsage = `Usage:
  app-blocks create-workflow --workflow <name> [--var value]
  app-blocks create-workflow --workflow <name> --dry-run [--var value]
  app-blocks create-workflow --list [--json]

Examples:
  app-blocks create-workflow --workflow examples
  app-blocks create-workflow --workflow examples --web admin --api api --web-port 3200
`

func newCreateWorkflowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-workflow --workflow <name> [--dry-run] [--<var> <value>]...",
		Short: "Run a workflow of block generators in dependency order",
		Long: `Run every step of a workflow in dependency order. Variable flags are
camel-cased (--web-port becomes webPort) and override the workflow's
defaults. Every step is checked before the first one starts.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runCreateWorkflow(cmd, args); err != nil {
				return report(cmd, workflowTag, err)
			}
			return nil
		},
	}
}

func runCreateWorkflow(cmd *cobra.Command, args []string) error {
	inv := parseInvocation(args, "workflow", "w")
	overrides, err := workflow.ParseVariableFlags(inv.rest)
	if err != nil {
		return err
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	reg, err := e.loader.Load()
	if err != nil {
		return err
	}

	formatter := output.NewFormatter(cmd.OutOrStdout(), inv.json)
	if inv.help {
		if !inv.json {
			fmt.Fprintln(cmd.OutOrStdout(), workflowUsage)
		}
		return formatter.Workflows(reg.Workflows())
	}
	if inv.list {
		return formatter.Workflows(reg.Workflows())
	}

	if inv.target == "" {
		return fmt.Errorf(`Missing "--workflow <name>". Run with "--list" to see available workflows.`)
	}
	wf, ok := reg.Workflow(inv.target)
	if !ok {
		return fmt.Errorf(`Unknown workflow %q. Run "app-blocks create-workflow --list" to see valid names.`, inv.target)
	}

	r, err := e.runner(cmd, workflowTag)
	if err != nil {
		return err
	}
	run, err := workflow.NewEngine(reg, r, e.logger).Run(cmd.Context(), wf, overrides, inv.dryRun)
	if err != nil {
		return err
	}
	e.logger.Debug().Str("run", run.ID).Strs("steps", run.Completed).Msg("workflow finished")
	return nil
}
