package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solid-auto/app-blocks/internal/contract"
	"github.com/solid-auto/app-blocks/internal/output"
	"github.com/solid-auto/app-blocks/internal/runner"
)

const blockTag = "create-block"

const blockUsage = `Usage:
  app-blocks create-block --block <name> [--dry-run] [--] [generator flags]
  app-blocks create-block --list [--json]

Examples:
  app-blocks create-block --block next-app --name admin --port 3002
  app-blocks create-block --block next-app --dry-run -- --name admin
`

func newCreateBlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-block --block <name> [--dry-run] [generator flags]",
		Short: "Run one block generator",
		Long: `Run the generator declared by a block manifest. Generator flags are checked
against the options the manifest declares before anything is started.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runCreateBlock(cmd, args); err != nil {
				return report(cmd, blockTag, err)
			}
			return nil
		},
	}
}

func runCreateBlock(cmd *cobra.Command, args []string) error {
	inv := parseInvocation(args, "block", "b")

	e, err := loadEnv()
	if err != nil {
		return err
	}
	reg, err := e.loader.LoadBlocks()
	if err != nil {
		return err
	}

	formatter := output.NewFormatter(cmd.OutOrStdout(), inv.json)
	if inv.help {
		if !inv.json {
			fmt.Fprintln(cmd.OutOrStdout(), blockUsage)
		}
		return formatter.Blocks(reg.Blocks())
	}
	if inv.list {
		return formatter.Blocks(reg.Blocks())
	}

	if inv.target == "" {
		return fmt.Errorf(`Missing "--block <name>". Run with "--list" to see available blocks.`)
	}
	m, ok := reg.Block(inv.target)
	if !ok {
		return fmt.Errorf(`Unknown block %q. Run "app-blocks create-block --list" to see valid names.`, inv.target)
	}

	if err := contract.ValidatePassthroughArgs(m, inv.rest); err != nil {
		return err
	}

	r, err := e.runner(cmd, blockTag)
	if err != nil {
		return err
	}
	e.logger.Debug().Str("block", m.Name).Bool("dry_run", inv.dryRun).Msg("running block")
	return r.RunStep(cmd.Context(), m, inv.rest, runner.Options{DryRun: inv.dryRun})
}
