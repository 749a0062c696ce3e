// Package interpolate substitutes {{variable}} placeholders in workflow step
// arguments. Unlike lenient template helpers, a reference to an undefined
// variable is always an error: a missing value would otherwise produce a
// malformed generator command line.
package interpolate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/solid-auto/app-blocks/internal/manifest"
)

var placeholder = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// MissingVariablesError lists every referenced variable that has no value.
type MissingVariablesError struct {
	Names []string
}

func (e *MissingVariablesError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("Missing workflow variable %q.", e.Names[0])
	}
	quoted := make([]string, len(e.Names))
	for i, name := range e.Names {
		quoted[i] = strconv.Quote(name)
	}
	return fmt.Sprintf("Missing workflow variables %s.", strings.Join(quoted, ", "))
}

// References returns the variable names used in value, in order of first
// appearance and without duplicates.
func References(value string) []string {
	var names []string
	seen := map[string]struct{}{}
	for _, match := range placeholder.FindAllStringSubmatch(value, -1) {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Missing returns the names from refs that are not keys of variables.
func Missing(refs []string, variables manifest.Variables) []string {
	var missing []string
	for _, name := range refs {
		if _, ok := variables[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// InterpolateTemplate replaces every placeholder in value. All references are
// checked before any substitution happens; substituted text is not scanned
// again.
func InterpolateTemplate(value string, variables manifest.Variables) (string, error) {
	if missing := Missing(References(value), variables); len(missing) > 0 {
		return "", &MissingVariablesError{Names: missing}
	}
	return substitute(value, variables), nil
}

// ResolveStepArgs interpolates every argument of step, reporting all missing
// variables across the arguments at once.
func ResolveStepArgs(step manifest.Step, variables manifest.Variables) ([]string, error) {
	var refs []string
	for _, arg := range step.Args {
		refs = append(refs, References(arg)...)
	}
	if missing := dedupe(Missing(refs, variables)); len(missing) > 0 {
		return nil, &MissingVariablesError{Names: missing}
	}

	resolved := make([]string, len(step.Args))
	for i, arg := range step.Args {
		resolved[i] = substitute(arg, variables)
	}
	return resolved, nil
}

// Merge returns defaults overridden by overrides. Neither input is modified.
func Merge(defaults, overrides manifest.Variables) manifest.Variables {
	merged := make(manifest.Variables, len(defaults)+len(overrides))
	for key, value := range defaults {
		merged[key] = value
	}
	for key, value := range overrides {
		merged[key] = value
	}
	return merged
}

// Stringify renders a variable value for substitution.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func substitute(value string, variables manifest.Variables) string {
	return placeholder.ReplaceAllStringFunc(value, func(token string) string {
		name := placeholder.FindStringSubmatch(token)[1]
		return Stringify(variables[name])
	})
}

func dedupe(names []string) []string {
	if len(names) < 2 {
		return names
	}
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
