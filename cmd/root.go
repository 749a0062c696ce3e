package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solid-auto/app-blocks/internal/config"
	"github.com/solid-auto/app-blocks/internal/logging"
	"github.com/solid-auto/app-blocks/internal/registry"
	"github.com/solid-auto/app-blocks/internal/runner"
)

// errReported marks a failure whose message was already printed
var errReported = errors.New("reported")

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "app-blocks",
		Short: "Scaffold workspace code from block generators and workflows",
		Long: `app-blocks runs code generators ("blocks") declared by manifests in the
workspace catalog, either one at a time or chained into workflows whose
steps run in dependency order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCreateBlockCmd())
	root.AddCommand(newCreateWorkflowCmd())
	root.AddCommand(newLintCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newMCPCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// env is what every command needs: resolved settings, a logger, and the
// catalog loader.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
	loader *registry.Loader
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.GetLogLevel()
	logger := logging.ForCommand(level)
	if _, ok := logging.ParseLevel(level); !ok {
		logger.Warn().Str("level", level).Msg("unknown log level, using warn")
	}

	scriptRoot, err := cfg.GetScriptRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve script root: %w", err)
	}
	scripts, _ := os.DirFS(scriptRoot).(fs.StatFS)

	logger.Debug().
		Str("workspace", cfg.Root()).
		Str("scripts", scriptRoot).
		Msg("workspace resolved")

	return &env{
		cfg:    cfg,
		logger: logger,
		loader: registry.NewLoader(cfg.Root(), cfg.GetManifestsDir(), cfg.GetWorkflowsDir(), scripts),
	}, nil
}

func (e *env) runner(cmd *cobra.Command, tag string) (*runner.Runner, error) {
	scriptRoot, err := e.cfg.GetScriptRoot()
	if err != nil {
		return nil, err
	}
	childEnv, err := e.cfg.Env()
	if err != nil {
		return nil, err
	}

	r := runner.NewRunner(e.cfg.Root(), scriptRoot, tag, e.logger)
	r.Stdout = cmd.OutOrStdout()
	r.Stderr = cmd.ErrOrStderr()
	r.Stdin = cmd.InOrStdin()
	r.Env = childEnv
	return r, nil
}

// report prints err as a single tagged line on stderr
func report(cmd *cobra.Command, tag string, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %v\n", tag, err)
	return errReported
}
