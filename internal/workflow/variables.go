package workflow

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/solid-auto/app-blocks/internal/flags"
	"github.com/solid-auto/app-blocks/internal/manifest"
)

var kebab = regexp.MustCompile(`-([a-z])`)

// ParseVariableFlags turns "--web-port 3200" style tokens into variable
// overrides: names are camel-cased and values coerced.
func ParseVariableFlags(tokens []string) (manifest.Variables, error) {
	parsed, err := flags.Parse(tokens)
	if err != nil {
		return nil, err
	}

	vars := make(manifest.Variables, len(parsed.Order))
	for _, flag := range parsed.Order {
		vars[CamelCase(strings.TrimPrefix(flag, "--"))] = CoerceValue(parsed.Values[flag])
	}
	return vars, nil
}

// CamelCase converts a kebab-case name: "web-port" becomes "webPort"
func CamelCase(name string) string {
	return kebab.ReplaceAllStringFunc(name, func(m string) string {
		return strings.ToUpper(m[1:])
	})
}

// CoerceValue maps a flag value to a variable: bare flags and "true" are
// true, "false" is false, numeric text is a float64, anything else stays a
// string.
func CoerceValue(v flags.Value) any {
	if v.Bare || v.Raw == "true" {
		return true
	}
	if v.Raw == "false" {
		return false
	}
	if trimmed := strings.TrimSpace(v.Raw); trimmed != "" {
		if n, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
			return n
		}
	}
	return v.Raw
}
