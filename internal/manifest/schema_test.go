package manifest

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testScripts = fstest.MapFS{
	"automations/generators/next-app.js": &fstest.MapFile{Data: []byte("// generator")},
}

func validManifestDoc() Document {
	return Document{
		"name":        "next-app",
		"description": "Scaffold a Next.js app",
		"entry":       "node automations/generators/next-app.js",
		"options": []any{
			map[string]any{"flag": "--name", "type": "string", "required": true},
			map[string]any{"flag": "--port", "type": "number"},
			map[string]any{"flag": "--force", "type": "boolean"},
		},
		"outputs": []any{"apps/{{name}}/**"},
	}
}

func validWorkflowDoc() Document {
	return Document{
		"name":        "examples",
		"description": "Example apps",
		"variables":   map[string]any{"web": "web", "webPort": 3000},
		"steps": []any{
			map[string]any{"id": "api", "block": "nest-app", "dependsOn": []any{"web"}},
			map[string]any{"id": "web", "block": "next-app", "args": []any{"--name", "{{web}}"}},
		},
	}
}

func TestValidateManifest(t *testing.T) {
	t.Run("accepts a complete manifest", func(t *testing.T) {
		require.NoError(t, ValidateManifest(validManifestDoc(), "next-app.json", testScripts))
	})

	t.Run("nil script filesystem skips the existence check", func(t *testing.T) {
		doc := validManifestDoc()
		doc["entry"] = "node does/not/exist.js"
		require.NoError(t, ValidateManifest(doc, "next-app.json", nil))
	})

	cases := []struct {
		name   string
		mutate func(Document)
		field  string
		msg    string
	}{
		{"missing name", func(d Document) { delete(d, "name") }, "name", `next-app.json: missing non-empty "name".`},
		{"empty name", func(d Document) { d["name"] = "" }, "name", `next-app.json: missing non-empty "name".`},
		{"description not a string", func(d Document) { d["description"] = 4 }, "description", `next-app.json: missing "description" string.`},
		{"empty entry", func(d Document) { d["entry"] = "" }, "entry", `next-app.json: missing non-empty "entry".`},
		{"entry without script", func(d Document) { d["entry"] = "node" }, "entry", ""},
		{"missing script", func(d Document) { d["entry"] = "node automations/generators/missing.js" }, "entry",
			"next-app.json: entry script does not exist (automations/generators/missing.js)."},
		{"script is a directory", func(d Document) { d["entry"] = "node automations/generators" }, "entry", ""},
		{"options not an array", func(d Document) { d["options"] = "--name" }, "options", `next-app.json: missing "options" array.`},
		{"outputs missing", func(d Document) { delete(d, "outputs") }, "outputs", `next-app.json: missing "outputs" array.`},
		{"short flag", func(d Document) {
			d["options"] = []any{map[string]any{"flag": "-n", "type": "string"}}
		}, "options[0].flag", "next-app.json: option #1 must have a long-form flag (e.g. --name)."},
		{"unsupported type", func(d Document) {
			d["options"] = []any{map[string]any{"flag": "--tags", "type": "array"}}
		}, "options[0].type", `next-app.json: option #1 has unsupported type "array".`},
		{"required not boolean", func(d Document) {
			d["options"] = []any{map[string]any{"flag": "--name", "type": "string", "required": "yes"}}
		}, "options[0].required", `next-app.json: option #1 "required" must be boolean when provided.`},
		{"duplicate flags", func(d Document) {
			d["options"] = []any{
				map[string]any{"flag": "--name", "type": "string"},
				map[string]any{"flag": "--name", "type": "number"},
			}
		}, "options[1].flag", "next-app.json: option #2 duplicates flag --name."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := validManifestDoc()
			tc.mutate(doc)

			err := ValidateManifest(doc, "next-app.json", testScripts)
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tc.field, schemaErr.Field)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, err.Error())
			}
		})
	}
}

func TestValidateWorkflow(t *testing.T) {
	t.Run("accepts a complete workflow", func(t *testing.T) {
		require.NoError(t, ValidateWorkflow(validWorkflowDoc(), "examples.json"))
	})

	cases := []struct {
		name   string
		mutate func(Document)
		msg    string
	}{
		{"missing steps", func(d Document) { delete(d, "steps") }, `examples.json: missing "steps" array.`},
		{"variables not an object", func(d Document) { d["variables"] = []any{"x"} },
			`examples.json: has invalid "variables" (expected object).`},
		{"variable not scalar", func(d Document) { d["variables"] = map[string]any{"b": []any{1}, "a": map[string]any{}} },
			`examples.json: variable "a" must be a string, number or boolean.`},
		{"step missing block", func(d Document) { d["steps"] = []any{map[string]any{"id": "web"}} },
			`examples.json: step "web" is missing "block".`},
		{"fallback id in labels", func(d Document) { d["steps"] = []any{map[string]any{"block": ""}} },
			`examples.json: step "step-1" is missing "block".`},
		{"args not an array", func(d Document) {
			d["steps"] = []any{map[string]any{"id": "web", "block": "next-app", "args": "--name web"}}
		}, `examples.json: step "web" has invalid "args" (expected string array).`},
		{"args with non-string", func(d Document) {
			d["steps"] = []any{map[string]any{"id": "web", "block": "next-app", "args": []any{"--port", 3000}}}
		}, `examples.json: step "web" has invalid "args" (expected string array).`},
		{"dependsOn not an array", func(d Document) {
			d["steps"] = []any{map[string]any{"id": "web", "block": "next-app", "dependsOn": "api"}}
		}, `examples.json: step "web" has invalid "dependsOn" (expected string array).`},
		{"duplicate ids", func(d Document) {
			d["steps"] = []any{
				map[string]any{"id": "web", "block": "next-app"},
				map[string]any{"id": "web", "block": "nest-app"},
			}
		}, `examples.json: has duplicate step id "web".`},
		{"explicit id clashing with fallback", func(d Document) {
			d["steps"] = []any{
				map[string]any{"block": "next-app"},
				map[string]any{"id": "step-1", "block": "nest-app"},
			}
		}, `examples.json: has duplicate step id "step-1".`},
		{"dangling dependency", func(d Document) {
			d["steps"] = []any{map[string]any{"id": "api", "block": "nest-app", "dependsOn": []any{"db"}}}
		}, `examples.json: step "api" references unknown dependency "db".`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := validWorkflowDoc()
			tc.mutate(doc)
			err := ValidateWorkflow(doc, "examples.json")
			require.Error(t, err)
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestValidationIsIdempotent(t *testing.T) {
	doc := validWorkflowDoc()
	doc["variables"] = map[string]any{"z": []any{}, "m": map[string]any{}, "a": []any{}}

	first := ValidateWorkflow(doc, "examples.json")
	require.Error(t, first)
	for i := 0; i < 10; i++ {
		again := ValidateWorkflow(doc, "examples.json")
		require.Error(t, again)
		assert.Equal(t, first.Error(), again.Error())
	}

	blockDoc := validManifestDoc()
	require.NoError(t, ValidateManifest(blockDoc, "next-app.json", testScripts))
	require.NoError(t, ValidateManifest(blockDoc, "next-app.json", testScripts))
}

func TestDecodeManifest(t *testing.T) {
	m, err := DecodeManifest(validManifestDoc(), "next-app.json", testScripts)
	require.NoError(t, err)

	assert.Equal(t, "next-app", m.Name)
	assert.Equal(t, "node", m.Entry.Program)
	assert.Equal(t, "automations/generators/next-app.js", m.Entry.Script)
	assert.Equal(t, []string{"apps/{{name}}/**"}, m.Outputs)
	require.Len(t, m.Options, 3)
	assert.Equal(t, OptionSpec{Flag: "--name", Type: TypeString, Required: true}, m.Options[0])
	assert.False(t, m.Options[1].Required)

	opt, ok := m.Option("--force")
	require.True(t, ok)
	assert.Equal(t, TypeBoolean, opt.Type)
	_, ok = m.Option("--missing")
	assert.False(t, ok)
}

func TestDecodeWorkflowAssignsFallbackIDs(t *testing.T) {
	doc := Document{
		"name":        "pair",
		"description": "",
		"steps": []any{
			map[string]any{"block": "next-app"},
			map[string]any{"block": "nest-app", "dependsOn": []any{"step-1"}},
		},
	}

	wf, err := DecodeWorkflow(doc, "pair.yaml")
	require.NoError(t, err)
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, "step-1", wf.Steps[0].ID)
	assert.Equal(t, "step-2", wf.Steps[1].ID)
	assert.Equal(t, []string{"step-1"}, wf.Steps[1].DependsOn)
	assert.Empty(t, wf.Variables)
	assert.Equal(t, "pair.yaml", wf.Source)
}

func TestDecodeRejectsInvalidDocuments(t *testing.T) {
	doc := validManifestDoc()
	delete(doc, "entry")
	_, err := DecodeManifest(doc, "next-app.json", nil)
	require.Error(t, err)

	wfDoc := validWorkflowDoc()
	delete(wfDoc, "name")
	_, err = DecodeWorkflow(wfDoc, "examples.json")
	require.Error(t, err)
}
