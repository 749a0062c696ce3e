package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	EnvRepoRoot   = "SOLID_AUTO_APP_BLOCKS_REPO_ROOT"
	EnvScriptRoot = "SOLID_AUTO_APP_BLOCKS_SCRIPT_ROOT"
	EnvLogLevel   = "SOLID_AUTO_APP_BLOCKS_LOG_LEVEL"

	DefaultManifestsDir = "automations/manifests"
	DefaultWorkflowsDir = "automations/workflows"
	DefaultLogLevel     = "warn"

	configFileName = ".app-blocks.json"
	dotEnvFileName = ".env"
)

// Keys accepted by Set, in display order
var Keys = []string{"manifests-dir", "workflows-dir", "script-root", "log-level"}

// Config is the optional per-workspace settings file. Environment overrides
// always win over it.
type Config struct {
	ManifestsPath string `json:"manifests_dir,omitempty"`
	WorkflowsPath string `json:"workflows_dir,omitempty"`
	ScriptPath    string `json:"script_root,omitempty"`
	LogLevel      string `json:"log_level,omitempty"`

	root string
}

// LoadEnv reads .env from the working directory into the environment.
// Variables that are already set keep their value.
func LoadEnv() error {
	if err := godotenv.Load(dotEnvFileName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", dotEnvFileName, err)
	}
	return nil
}

// WorkspaceRoot returns the absolute workspace root: the repo root override
// when set, the working directory otherwise.
func WorkspaceRoot() (string, error) {
	if env := os.Getenv(EnvRepoRoot); env != "" {
		return filepath.Abs(env)
	}
	return os.Getwd()
}

// Load resolves the workspace root and reads its settings file, if any
func Load() (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}

	root, err := WorkspaceRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	return LoadFrom(root)
}

// LoadFrom reads the settings file of the workspace at root
func LoadFrom(root string) (*Config, error) {
	cfg := &Config{root: root}

	data, err := os.ReadFile(cfg.path())
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configFileName, err)
	}
	return cfg, nil
}

// Save writes the settings file into the workspace root
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(), append(data, '\n'), 0o644)
}

// Set changes one settings file value
func (c *Config) Set(key, value string) error {
	switch key {
	case "manifests-dir":
		c.ManifestsPath = value
	case "workflows-dir":
		c.WorkflowsPath = value
	case "script-root":
		c.ScriptPath = value
	case "log-level":
		c.LogLevel = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Get returns the effective value for key
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "workspace-root":
		return c.Root(), nil
	case "manifests-dir":
		return c.GetManifestsDir(), nil
	case "workflows-dir":
		return c.GetWorkflowsDir(), nil
	case "script-root":
		return c.GetScriptRoot()
	case "log-level":
		return c.GetLogLevel(), nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

// Root is the absolute workspace root generators run in
func (c *Config) Root() string {
	return c.root
}

// Path is the location of the settings file
func (c *Config) Path() string {
	return c.path()
}

func (c *Config) GetManifestsDir() string {
	return c.resolve(c.ManifestsPath, DefaultManifestsDir)
}

func (c *Config) GetWorkflowsDir() string {
	return c.resolve(c.WorkflowsPath, DefaultWorkflowsDir)
}

// GetScriptRoot returns the absolute base for relative entry scripts.
// Defaults to the workspace root.
func (c *Config) GetScriptRoot() (string, error) {
	if env := os.Getenv(EnvScriptRoot); env != "" {
		return filepath.Abs(env)
	}
	return c.resolve(c.ScriptPath, "."), nil
}

func (c *Config) GetLogLevel() string {
	if env := os.Getenv(EnvLogLevel); env != "" {
		return env
	}
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return DefaultLogLevel
}

// Env returns the root overrides as KEY=VALUE entries for child processes,
// so generators resolve the same workspace and script roots.
func (c *Config) Env() ([]string, error) {
	scripts, err := c.GetScriptRoot()
	if err != nil {
		return nil, err
	}
	return []string{
		EnvRepoRoot + "=" + c.root,
		EnvScriptRoot + "=" + scripts,
	}, nil
}

func (c *Config) resolve(value, fallback string) string {
	if value == "" {
		value = fallback
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(c.root, filepath.FromSlash(value))
}

func (c *Config) path() string {
	return filepath.Join(c.root, configFileName)
}
