package cmd

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solid-auto/app-blocks/internal/config"
)

// genScript appends its arguments to generated.log in the working directory
const genScript = `#!/bin/sh
echo "$*" >> generated.log
`

const nextAppManifest = `{
  "name": "next-app",
  "description": "Next.js application",
  "entry": "sh automations/generators/gen.sh next-app",
  "options": [
    {"flag": "--name", "type": "string", "required": true, "description": "App name"},
    {"flag": "--port", "type": "number"}
  ],
  "outputs": ["apps/<name>/**"]
}`

const expressAPIManifest = `name: express-api
description: Express API
entry: sh automations/generators/gen.sh express-api
options:
  - flag: --name
    type: string
    required: true
  - flag: --port
    type: number
outputs: []
`

const examplesWorkflow = `{
  "name": "examples",
  "description": "Demo apps",
  "variables": {"web": "web", "api": "api", "apiPort": 3001},
  "steps": [
    {"id": "api", "block": "express-api", "args": ["--name", "{{api}}", "--port", "{{apiPort}}"], "dependsOn": ["web"]},
    {"id": "web", "block": "next-app", "args": ["--name", "{{web}}"]}
  ]
}`

func newWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"automations/generators/gen.sh":          genScript,
		"automations/manifests/next-app.json":    nextAppManifest,
		"automations/manifests/express-api.yaml": expressAPIManifest,
		"automations/workflows/examples.json":    examplesWorkflow,
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	chdir(t, root)
	t.Setenv(config.EnvRepoRoot, root)
	t.Setenv(config.EnvScriptRoot, "")
	t.Setenv(config.EnvLogLevel, "off")
	return root
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCreateBlockMissingRequiredOption(t *testing.T) {
	newWorkspace(t)

	stdout, stderr, err := execute(t, "create-block", "--block", "next-app")
	require.ErrorIs(t, err, errReported)
	assert.Empty(t, stdout)
	assert.Equal(t, "[create-block] Missing required option \"--name\" for block \"next-app\".\n", stderr)
}

func TestCreateBlockDryRun(t *testing.T) {
	root := newWorkspace(t)

	stdout, stderr, err := execute(t, "create-block", "--block", "next-app", "--dry-run", "--", "--name", "admin", "--port", "3002")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	script := filepath.Join(root, "automations", "generators", "gen.sh")
	assert.Equal(t, "[create-block] [dry-run] sh "+script+" next-app --name admin --port 3002\n", stdout)
	assert.NoFileExists(t, filepath.Join(root, "generated.log"))
}

func TestCreateBlockRunsGenerator(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	root := newWorkspace(t)

	_, _, err := execute(t, "create-block", "-b", "next-app", "--name", "admin")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "generated.log"))
	require.NoError(t, err)
	assert.Equal(t, "next-app --name admin\n", string(data))
}

func TestCreateBlockErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "missing target",
			args: []string{"create-block", "--name", "admin"},
			want: `[create-block] Missing "--block <name>". Run with "--list" to see available blocks.`,
		},
		{
			name: "unknown block",
			args: []string{"create-block", "--block", "ghost"},
			want: `[create-block] Unknown block "ghost". Run "app-blocks create-block --list" to see valid names.`,
		},
		{
			name: "unknown flag",
			args: []string{"create-block", "--block", "next-app", "--name", "a", "--verbose"},
			want: `[create-block] Unknown flag "--verbose" for block "next-app".`,
		},
		{
			name: "bad number",
			args: []string{"create-block", "--block=next-app", "--name", "a", "--port", "http"},
			want: `[create-block] Option "--port" for block "next-app" expects a number, got "http".`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newWorkspace(t)
			_, stderr, err := execute(t, tt.args...)
			require.ErrorIs(t, err, errReported)
			assert.Equal(t, tt.want+"\n", stderr)
		})
	}
}

func TestCreateBlockList(t *testing.T) {
	newWorkspace(t)

	stdout, _, err := execute(t, "create-block", "--list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Available blocks:")
	assert.Contains(t, stdout, "  - express-api (express-api.yaml)")
	assert.Contains(t, stdout, "  - next-app (next-app.json)")
	assert.Less(t, strings.Index(stdout, "express-api"), strings.Index(stdout, "next-app"))
}

func TestCreateWorkflowDryRunOrder(t *testing.T) {
	root := newWorkspace(t)

	stdout, stderr, err := execute(t, "create-workflow", "--workflow", "examples", "--dry-run", "--api", "orders", "--api-port", "4000")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	script := filepath.Join(root, "automations", "generators", "gen.sh")
	want := "[create-workflow] [dry-run] sh " + script + " next-app --name web\n" +
		"[create-workflow] [dry-run] sh " + script + " express-api --name orders --port 4000\n"
	assert.Equal(t, want, stdout)
}

func TestCreateWorkflowErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "positional argument",
			args: []string{"create-workflow", "--workflow", "examples", "extra"},
			want: `[create-workflow] Unexpected positional argument "extra".`,
		},
		{
			name: "unknown workflow",
			args: []string{"create-workflow", "-w", "ghost"},
			want: `[create-workflow] Unknown workflow "ghost". Run "app-blocks create-workflow --list" to see valid names.`,
		},
		{
			name: "missing target",
			args: []string{"create-workflow", "--dry-run"},
			want: `[create-workflow] Missing "--workflow <name>". Run with "--list" to see available workflows.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newWorkspace(t)
			_, stderr, err := execute(t, tt.args...)
			require.ErrorIs(t, err, errReported)
			assert.Equal(t, tt.want+"\n", stderr)
		})
	}
}

func TestLint(t *testing.T) {
	root := newWorkspace(t)

	stdout, _, err := execute(t, "lint")
	require.NoError(t, err)
	assert.Equal(t, "[lint] 2 manifest(s) and 1 workflow(s) passed.\n", stdout)

	broken := `{"name": "loop", "description": "", "steps": [
  {"id": "a", "block": "next-app", "args": ["--name", "{{ghost}}"], "dependsOn": ["a"]}
]}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "automations", "workflows", "loop.json"), []byte(broken), 0o644))

	_, stderr, err := execute(t, "lint")
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, `step "a" references undefined variable "ghost".`)
	assert.Contains(t, stderr, "circular dependencies (cycle: a -> a)")
	assert.True(t, strings.HasSuffix(stderr, "[lint] 2 problem(s) found.\n"))
}

func TestConfigSetAndGet(t *testing.T) {
	root := newWorkspace(t)

	stdout, _, err := execute(t, "config", "set", "manifests-dir", "catalog/blocks")
	require.NoError(t, err)
	assert.Equal(t, "Set manifests-dir = catalog/blocks\n", stdout)
	assert.FileExists(t, filepath.Join(root, ".app-blocks.json"))

	stdout, _, err = execute(t, "config", "get", "manifests-dir")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "catalog", "blocks")+"\n", stdout)

	_, _, err = execute(t, "config", "set", "colour", "blue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key: colour")
}

func TestParseInvocation(t *testing.T) {
	inv := parseInvocation([]string{"--block", "next-app", "--dry-run", "--", "--name", "admin", "--list", "--block=api"}, "block", "b")
	assert.Equal(t, "api", inv.target)
	assert.True(t, inv.dryRun)
	assert.True(t, inv.list)
	assert.False(t, inv.help)
	assert.Equal(t, []string{"--name", "admin"}, inv.rest)

	inv = parseInvocation([]string{"-h", "--json", "-w", "examples", "--web-port", "3200"}, "workflow", "w")
	assert.True(t, inv.help)
	assert.True(t, inv.json)
	assert.Equal(t, "examples", inv.target)
	assert.Equal(t, []string{"--web-port", "3200"}, inv.rest)
}
