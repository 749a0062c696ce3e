package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solid-auto/app-blocks/internal/manifest"
)

func catalog(t *testing.T) []manifest.BlockManifest {
	t.Helper()
	entry, err := manifest.ParseEntry("node automations/generators/next-app.js")
	require.NoError(t, err)
	return []manifest.BlockManifest{{
		Name:        "next-app",
		Description: "Next.js application",
		Entry:       entry,
		Source:      "automations/manifests/next-app.json",
		Options: []manifest.OptionSpec{
			{Flag: "--name", Type: manifest.TypeString, Required: true, Description: "App directory name"},
			{Flag: "--force", Type: manifest.TypeBoolean},
		},
	}}
}

func TestBlocksText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, false).Blocks(catalog(t)))

	assert.Equal(t, `Available blocks:
  - next-app (next-app.json)
    Next.js application
      --name <string> (required)  App directory name
      --force
`, buf.String())
}

func TestBlocksJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, true).Blocks(catalog(t)))

	var items []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "node automations/generators/next-app.js", items[0]["entry"])
	assert.Equal(t, "automations/manifests/next-app.json", items[0]["source"])
	assert.Equal(t, []any{}, items[0]["outputs"])
	assert.Len(t, items[0]["options"], 2)
}

func TestWorkflowsText(t *testing.T) {
	var buf bytes.Buffer
	err := NewFormatter(&buf, false).Workflows([]manifest.WorkflowDefinition{{
		Name:        "examples",
		Description: "Demo apps",
		Source:      "automations/workflows/examples.yaml",
		Variables:   manifest.Variables{"web": "web", "webPort": 3000.0, "auth": true},
	}})
	require.NoError(t, err)

	assert.Equal(t, `Available workflows:
  - examples (examples.yaml)
    Demo apps
    variables: auth=true, web=web, webPort=3000
`, buf.String())
}

func TestEmptyListings(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, false)
	require.NoError(t, f.Blocks(nil))
	require.NoError(t, f.Workflows(nil))
	assert.Equal(t, "Available blocks:\n  (none)\nAvailable workflows:\n  (none)\n", buf.String())

	buf.Reset()
	require.NoError(t, NewFormatter(&buf, true).Workflows(nil))
	assert.JSONEq(t, "[]", buf.String())
}

func TestObject(t *testing.T) {
	var buf bytes.Buffer
	err := NewFormatter(&buf, false).Object(
		[]string{"workspace-root", "log-level"},
		map[string]any{"workspace-root": "/repo", "log-level": "warn"},
	)
	require.NoError(t, err)
	assert.Equal(t, "workspace-root: /repo\nlog-level     : warn\n", buf.String())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "3", formatValue(3.0))
	assert.Equal(t, "3.5", formatValue(3.5))
	assert.Equal(t, "a, b", formatValue([]any{"a", "b"}))
	assert.Equal(t, `{"k":1}`, formatValue(map[string]any{"k": 1}))
	assert.Equal(t, "", formatValue(nil))
}
