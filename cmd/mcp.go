package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solid-auto/app-blocks/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run MCP server for AI assistant integration",
		Long: `Run the Model Context Protocol (MCP) server on stdio. Every block and
workflow in the catalog is exposed as a tool; calls go through the same
checks as create-block and create-workflow.`,
		Args: cobra.NoArgs,
		RunE: runMCP,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	reg, err := e.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	r, err := e.runner(cmd, "")
	if err != nil {
		return err
	}

	executor := mcp.NewCommandExecutor(reg, r, e.logger)
	server := mcp.NewServer(reg, executor, Version, cmd.InOrStdin(), cmd.OutOrStdout())

	return server.Run(cmd.Context())
}
