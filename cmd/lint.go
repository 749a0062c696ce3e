package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solid-auto/app-blocks/internal/lint"
)

const lintTag = "lint"

func newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check every manifest and workflow in the catalog",
		Long: `Validate the whole catalog and print every problem found: schema errors,
names that do not match their file, unknown blocks, undefined workflow
variables and dependency cycles.`,
		Args: cobra.NoArgs,
		RunE: runLint,
	}
}

func runLint(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return report(cmd, lintTag, err)
	}

	result, _ := lint.Run(e.loader)
	if result.OK() {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %d manifest(s) and %d workflow(s) passed.\n", lintTag, result.Manifests, result.Workflows)
		return nil
	}

	for _, problem := range result.Problems {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %v\n", lintTag, problem)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %d problem(s) found.\n", lintTag, len(result.Problems))
	return errReported
}
