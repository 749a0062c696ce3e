package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// SchemaError reports a manifest or workflow document that failed validation.
type SchemaError struct {
	Source  string // document path
	Field   string // e.g. "options[1].type"
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

func schemaErr(source, field, format string, args ...any) error {
	return &SchemaError{Source: source, Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateManifest checks a block manifest document. Relative entry scripts
// are looked up in scripts; a nil scripts skips the existence check.
func ValidateManifest(doc Document, source string, scripts fs.StatFS) error {
	if _, ok := nonEmptyString(doc["name"]); !ok {
		return schemaErr(source, "name", `missing non-empty "name".`)
	}
	if _, ok := doc["description"].(string); !ok {
		return schemaErr(source, "description", `missing "description" string.`)
	}

	rawEntry, ok := nonEmptyString(doc["entry"])
	if !ok {
		return schemaErr(source, "entry", `missing non-empty "entry".`)
	}
	entry, err := ParseEntry(rawEntry)
	if err != nil {
		return schemaErr(source, "entry", `"entry" must be "<program> <script-path> [args...]" (%v).`, err)
	}
	if err := checkScript(scripts, entry.Script); err != nil {
		return schemaErr(source, "entry", "entry script does not exist (%s).", entry.Script)
	}

	options, ok := doc["options"].([]any)
	if !ok {
		return schemaErr(source, "options", `missing "options" array.`)
	}
	outputs, ok := doc["outputs"].([]any)
	if !ok {
		return schemaErr(source, "outputs", `missing "outputs" array.`)
	}
	for i, out := range outputs {
		if _, ok := out.(string); !ok {
			return schemaErr(source, fmt.Sprintf("outputs[%d]", i), "output #%d must be a string.", i+1)
		}
	}

	seen := make(map[string]struct{}, len(options))
	for i, raw := range options {
		field := fmt.Sprintf("options[%d]", i)
		label := fmt.Sprintf("option #%d", i+1)

		opt, ok := raw.(map[string]any)
		if !ok {
			return schemaErr(source, field, "%s must be an object.", label)
		}
		flag, ok := opt["flag"].(string)
		if !ok || !strings.HasPrefix(flag, "--") || len(flag) == 2 {
			return schemaErr(source, field+".flag", "%s must have a long-form flag (e.g. --name).", label)
		}
		typ, _ := opt["type"].(string)
		if !OptionType(typ).Valid() {
			return schemaErr(source, field+".type", "%s has unsupported type %q.", label, fmt.Sprint(opt["type"]))
		}
		if req, present := opt["required"]; present {
			if _, ok := req.(bool); !ok {
				return schemaErr(source, field+".required", `%s "required" must be boolean when provided.`, label)
			}
		}
		if desc, present := opt["description"]; present {
			if _, ok := desc.(string); !ok {
				return schemaErr(source, field+".description", `%s "description" must be a string when provided.`, label)
			}
		}
		if _, dup := seen[flag]; dup {
			return schemaErr(source, field+".flag", "%s duplicates flag %s.", label, flag)
		}
		seen[flag] = struct{}{}
	}

	return nil
}

// ValidateWorkflow checks a workflow document: required fields, step shape,
// unique step ids and dependsOn targets.
func ValidateWorkflow(doc Document, source string) error {
	if _, ok := nonEmptyString(doc["name"]); !ok {
		return schemaErr(source, "name", `missing non-empty "name".`)
	}
	if _, ok := doc["description"].(string); !ok {
		return schemaErr(source, "description", `missing "description" string.`)
	}
	steps, ok := doc["steps"].([]any)
	if !ok {
		return schemaErr(source, "steps", `missing "steps" array.`)
	}

	if raw, present := doc["variables"]; present {
		vars, ok := raw.(map[string]any)
		if !ok {
			return schemaErr(source, "variables", `has invalid "variables" (expected object).`)
		}
		keys := make([]string, 0, len(vars))
		for key := range vars {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if !isScalar(vars[key]) {
				return schemaErr(source, "variables."+key, "variable %q must be a string, number or boolean.", key)
			}
		}
	}

	ids := make(map[string]struct{}, len(steps))
	for i, raw := range steps {
		field := fmt.Sprintf("steps[%d]", i)
		step, ok := raw.(map[string]any)
		if !ok {
			return schemaErr(source, field, "step #%d must be an object.", i+1)
		}

		id := FallbackStepID(i)
		if rawID, present := step["id"]; present {
			value, ok := nonEmptyString(rawID)
			if !ok {
				return schemaErr(source, field+".id", `step #%d "id" must be a non-empty string when provided.`, i+1)
			}
			id = value
		}
		label := fmt.Sprintf("step %q", id)

		if _, ok := nonEmptyString(step["block"]); !ok {
			return schemaErr(source, field+".block", `%s is missing "block".`, label)
		}
		if rawArgs, present := step["args"]; present {
			if _, ok := stringSlice(rawArgs); !ok {
				return schemaErr(source, field+".args", `%s has invalid "args" (expected string array).`, label)
			}
		}
		if rawDeps, present := step["dependsOn"]; present {
			if _, ok := stringSlice(rawDeps); !ok {
				return schemaErr(source, field+".dependsOn", `%s has invalid "dependsOn" (expected string array).`, label)
			}
		}

		if _, dup := ids[id]; dup {
			return schemaErr(source, field+".id", "has duplicate step id %q.", id)
		}
		ids[id] = struct{}{}
	}

	for i, raw := range steps {
		step := raw.(map[string]any)
		id := FallbackStepID(i)
		if value, ok := nonEmptyString(step["id"]); ok {
			id = value
		}
		deps, _ := stringSlice(step["dependsOn"])
		for _, dep := range deps {
			if _, ok := ids[dep]; !ok {
				return schemaErr(source, fmt.Sprintf("steps[%d].dependsOn", i),
					"step %q references unknown dependency %q.", id, dep)
			}
		}
	}

	return nil
}

// DecodeManifest validates doc and converts it into a BlockManifest.
func DecodeManifest(doc Document, source string, scripts fs.StatFS) (BlockManifest, error) {
	if err := ValidateManifest(doc, source, scripts); err != nil {
		return BlockManifest{}, err
	}

	entry, _ := ParseEntry(doc["entry"].(string))
	m := BlockManifest{
		Name:        doc["name"].(string),
		Description: doc["description"].(string),
		Entry:       entry,
		Source:      source,
	}
	for _, raw := range doc["options"].([]any) {
		opt := raw.(map[string]any)
		spec := OptionSpec{
			Flag: opt["flag"].(string),
			Type: OptionType(opt["type"].(string)),
		}
		spec.Required, _ = opt["required"].(bool)
		spec.Description, _ = opt["description"].(string)
		m.Options = append(m.Options, spec)
	}
	m.Outputs, _ = stringSlice(doc["outputs"])
	return m, nil
}

// DecodeWorkflow validates doc and converts it into a WorkflowDefinition.
// Steps without an id receive their positional fallback id.
func DecodeWorkflow(doc Document, source string) (WorkflowDefinition, error) {
	if err := ValidateWorkflow(doc, source); err != nil {
		return WorkflowDefinition{}, err
	}

	wf := WorkflowDefinition{
		Name:        doc["name"].(string),
		Description: doc["description"].(string),
		Variables:   Variables{},
		Source:      source,
	}
	if vars, ok := doc["variables"].(map[string]any); ok {
		for key, value := range vars {
			wf.Variables[key] = value
		}
	}
	for i, raw := range doc["steps"].([]any) {
		fields := raw.(map[string]any)
		step := Step{Block: fields["block"].(string)}
		step.ID, _ = fields["id"].(string)
		step.ID = StepID(step, i)
		if raw, present := fields["args"]; present {
			step.Args, _ = stringSlice(raw)
		}
		if raw, present := fields["dependsOn"]; present {
			step.DependsOn, _ = stringSlice(raw)
		}
		wf.Steps = append(wf.Steps, step)
	}
	return wf, nil
}

func checkScript(scripts fs.StatFS, script string) error {
	if scripts == nil {
		return nil
	}

	var (
		info fs.FileInfo
		err  error
	)
	if filepath.IsAbs(script) {
		info, err = os.Stat(script)
	} else {
		name := path.Clean(filepath.ToSlash(script))
		if !fs.ValidPath(name) {
			return fmt.Errorf("script path %q leaves the script root", script)
		}
		info, err = scripts.Stat(name)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", script)
	}
	return nil
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// stringSlice accepts []any whose items are all strings.
func stringSlice(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int64, uint64, float64:
		return true
	}
	return false
}
