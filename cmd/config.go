package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solid-auto/app-blocks/internal/config"
	"github.com/solid-auto/app-blocks/internal/output"
)

var configDisplayKeys = []string{"workspace-root", "script-root", "manifests-dir", "workflows-dir", "log-level"}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change workspace settings",
		Long: `Show the resolved workspace settings or change the optional
.app-blocks.json settings file in the workspace root. Environment
overrides always take precedence over the file.`,
	}

	configSetCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a workspace setting",
		Long: `Set a value in the workspace settings file. Available keys:
  manifests-dir  Directory of block manifests
  workflows-dir  Directory of workflow definitions
  script-root    Base directory of relative entry scripts
  log-level      Diagnostic log level (debug, info, warn, error, off)`,
		Args: cobra.ExactArgs(2),
		RunE: runConfigSet,
	}

	configGetCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get resolved setting(s)",
		Long:  `Get a specific resolved setting or all of them if no key is provided.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigGet,
	}
	configGetCmd.Flags().Bool("json", false, "Output as JSON")

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	return configCmd
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Set(key, value); err != nil {
		return fmt.Errorf("%w\nAvailable keys: %s", err, strings.Join(config.Keys, ", "))
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(args) == 1 {
		value, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	}

	values := make(map[string]any, len(configDisplayKeys))
	for _, key := range configDisplayKeys {
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		values[key] = value
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return output.NewFormatter(cmd.OutOrStdout(), jsonOutput).Object(configDisplayKeys, values)
}
