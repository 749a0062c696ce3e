package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/solid-auto/app-blocks/internal/manifest"
)

// Formatter prints catalog listings as text or JSON
type Formatter struct {
	w          io.Writer
	jsonOutput bool
}

// NewFormatter creates a new output formatter
func NewFormatter(w io.Writer, jsonOutput bool) *Formatter {
	return &Formatter{w: w, jsonOutput: jsonOutput}
}

type blockSummary struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Entry       string                `json:"entry"`
	Source      string                `json:"source"`
	Options     []manifest.OptionSpec `json:"options"`
	Outputs     []string              `json:"outputs"`
}

type workflowSummary struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Source      string             `json:"source"`
	Variables   manifest.Variables `json:"variables"`
	Steps       []manifest.Step    `json:"steps"`
}

// Blocks prints the block catalog
func (f *Formatter) Blocks(blocks []manifest.BlockManifest) error {
	if f.jsonOutput {
		items := make([]blockSummary, len(blocks))
		for i, b := range blocks {
			items[i] = blockSummary{
				Name:        b.Name,
				Description: b.Description,
				Entry:       b.Entry.String(),
				Source:      b.Source,
				Options:     nonNil(b.Options),
				Outputs:     nonNil(b.Outputs),
			}
		}
		return f.printJSON(items)
	}

	fmt.Fprintln(f.w, "Available blocks:")
	if len(blocks) == 0 {
		fmt.Fprintln(f.w, "  (none)")
		return nil
	}
	for _, b := range blocks {
		fmt.Fprintf(f.w, "  - %s (%s)\n", b.Name, path.Base(b.Source))
		if b.Description != "" {
			fmt.Fprintf(f.w, "    %s\n", b.Description)
		}
		f.options(b.Options)
	}
	return nil
}

// Workflows prints the workflow catalog
func (f *Formatter) Workflows(workflows []manifest.WorkflowDefinition) error {
	if f.jsonOutput {
		items := make([]workflowSummary, len(workflows))
		for i, wf := range workflows {
			vars := wf.Variables
			if vars == nil {
				vars = manifest.Variables{}
			}
			items[i] = workflowSummary{
				Name:        wf.Name,
				Description: wf.Description,
				Source:      wf.Source,
				Variables:   vars,
				Steps:       nonNil(wf.Steps),
			}
		}
		return f.printJSON(items)
	}

	fmt.Fprintln(f.w, "Available workflows:")
	if len(workflows) == 0 {
		fmt.Fprintln(f.w, "  (none)")
		return nil
	}
	for _, wf := range workflows {
		fmt.Fprintf(f.w, "  - %s (%s)\n", wf.Name, path.Base(wf.Source))
		if wf.Description != "" {
			fmt.Fprintf(f.w, "    %s\n", wf.Description)
		}
		if len(wf.Variables) > 0 {
			keys := make([]string, 0, len(wf.Variables))
			for key := range wf.Variables {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			pairs := make([]string, len(keys))
			for i, key := range keys {
				pairs[i] = key + "=" + formatValue(wf.Variables[key])
			}
			fmt.Fprintf(f.w, "    variables: %s\n", strings.Join(pairs, ", "))
		}
	}
	return nil
}

// Object prints values as aligned "key: value" lines in the order of fields
func (f *Formatter) Object(fields []string, values map[string]any) error {
	if f.jsonOutput {
		return f.printJSON(values)
	}

	maxLen := 0
	for _, field := range fields {
		if len(field) > maxLen {
			maxLen = len(field)
		}
	}
	for _, field := range fields {
		fmt.Fprintf(f.w, "%-*s: %s\n", maxLen, field, formatValue(values[field]))
	}
	return nil
}

func (f *Formatter) options(opts []manifest.OptionSpec) {
	if len(opts) == 0 {
		return
	}

	usages := make([]string, len(opts))
	width := 0
	for i, opt := range opts {
		usage := opt.Flag
		if opt.Type != manifest.TypeBoolean {
			usage += " <" + string(opt.Type) + ">"
		}
		if opt.Required {
			usage += " (required)"
		}
		usages[i] = usage
		if len(usage) > width {
			width = len(usage)
		}
	}
	for i, opt := range opts {
		line := fmt.Sprintf("      %-*s  %s", width, usages[i], opt.Description)
		fmt.Fprintln(f.w, strings.TrimRight(line, " "))
	}
}

func (f *Formatter) printJSON(v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(f.w, string(pretty))
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func formatValue(v any) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case []string:
		return strings.Join(val, ", ")
	case []any:
		strs := make([]string, len(val))
		for i, item := range val {
			strs[i] = formatValue(item)
		}
		return strings.Join(strs, ", ")
	case map[string]any:
		data, _ := json.Marshal(val)
		return string(data)
	default:
		return fmt.Sprintf("%v", val)
	}
}
