// Package lint checks the whole catalog and reports every problem it finds,
// unlike the registry loader which stops at the first bad document.
package lint

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/solid-auto/app-blocks/internal/graph"
	"github.com/solid-auto/app-blocks/internal/interpolate"
	"github.com/solid-auto/app-blocks/internal/manifest"
	"github.com/solid-auto/app-blocks/internal/registry"
)

// Report summarizes a lint pass
type Report struct {
	Manifests int
	Workflows int
	Problems  []error
}

// OK reports whether no problems were found
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

// Err combines every problem into one error, nil when the catalog is clean
func (r *Report) Err() error {
	return multierr.Combine(r.Problems...)
}

func (r *Report) add(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Errorf(format, args...))
}

// Run lints the manifests and workflows l points at. The error is non-nil
// when any problem was found; the report lists them individually. A catalog
// directory that cannot be read is itself a problem and ends the pass.
func Run(l *registry.Loader) (*Report, error) {
	report := &Report{}

	blocks, err := lintManifests(l, report)
	if err != nil {
		report.Problems = append(report.Problems, err)
		return report, report.Err()
	}
	if err := lintWorkflows(l, blocks, report); err != nil {
		report.Problems = append(report.Problems, err)
	}

	return report, report.Err()
}

func lintManifests(l *registry.Loader, report *Report) (map[string]struct{}, error) {
	entries, err := l.Documents(l.ManifestsDir())
	if err != nil {
		return nil, err
	}
	report.Manifests = len(entries)

	known := make(map[string]struct{}, len(entries))
	owners := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.Err != nil {
			report.Problems = append(report.Problems, entry.Err)
			continue
		}

		name, _ := entry.Doc["name"].(string)
		if name != "" {
			known[name] = struct{}{}
			if first, dup := owners[name]; dup {
				report.add("%s: duplicates manifest name %q (already declared by %s).", entry.Source, name, first)
			} else {
				owners[name] = entry.Source
			}
		}

		if err := manifest.ValidateManifest(entry.Doc, entry.Source, l.Scripts()); err != nil {
			report.Problems = append(report.Problems, err)
			continue
		}
		if name != entry.Stem {
			report.add("%s: manifest name must match filename (%s).", entry.Source, entry.Stem)
		}
	}
	return known, nil
}

func lintWorkflows(l *registry.Loader, blocks map[string]struct{}, report *Report) error {
	entries, err := l.Documents(l.WorkflowsDir())
	if err != nil {
		return err
	}
	report.Workflows = len(entries)

	owners := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.Err != nil {
			report.Problems = append(report.Problems, entry.Err)
			continue
		}

		wf, err := manifest.DecodeWorkflow(entry.Doc, entry.Source)
		if err != nil {
			report.Problems = append(report.Problems, err)
			continue
		}

		if first, dup := owners[wf.Name]; dup {
			report.add("%s: duplicates workflow name %q (already declared by %s).", entry.Source, wf.Name, first)
		} else {
			owners[wf.Name] = entry.Source
		}
		if wf.Name != entry.Stem {
			report.add("%s: workflow name must match filename (%s).", entry.Source, entry.Stem)
		}

		for _, step := range wf.Steps {
			if _, ok := blocks[step.Block]; !ok {
				report.add("%s: step %q references unknown block %q.", entry.Source, step.ID, step.Block)
			}
			var missing *interpolate.MissingVariablesError
			if _, err := interpolate.ResolveStepArgs(step, wf.Variables); errors.As(err, &missing) {
				for _, name := range missing.Names {
					report.add("%s: step %q references undefined variable %q.", entry.Source, step.ID, name)
				}
			}
		}

		if _, err := graph.ResolveWorkflowSteps(wf); err != nil {
			report.add("%s: %w", entry.Source, err)
		}
	}
	return nil
}
