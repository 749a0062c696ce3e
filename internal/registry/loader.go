package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/solid-auto/app-blocks/internal/manifest"
)

// Loader reads block manifests and workflow definitions from the catalog
// directories of a workspace
type Loader struct {
	root         string
	manifestsDir string
	workflowsDir string
	scripts      fs.StatFS
}

// NewLoader creates a new catalog loader. Document sources are reported
// relative to root; entry scripts are checked against scripts (nil skips the
// check).
func NewLoader(root, manifestsDir, workflowsDir string, scripts fs.StatFS) *Loader {
	return &Loader{
		root:         root,
		manifestsDir: manifestsDir,
		workflowsDir: workflowsDir,
		scripts:      scripts,
	}
}

// Load reads the whole catalog. Any invalid document fails the load.
func (l *Loader) Load() (*Registry, error) {
	blocks, err := l.LoadManifests()
	if err != nil {
		return nil, err
	}
	workflows, err := l.LoadWorkflows()
	if err != nil {
		return nil, err
	}
	return New(blocks, workflows)
}

// LoadBlocks reads only the block manifests
func (l *Loader) LoadBlocks() (*Registry, error) {
	blocks, err := l.LoadManifests()
	if err != nil {
		return nil, err
	}
	return New(blocks, nil)
}

// LoadManifests returns the valid block manifests sorted by name
func (l *Loader) LoadManifests() ([]manifest.BlockManifest, error) {
	var blocks []manifest.BlockManifest
	err := l.walk(l.manifestsDir, func(doc manifest.Document, source, stem string) error {
		m, err := manifest.DecodeManifest(doc, source, l.scripts)
		if err != nil {
			return err
		}
		if m.Name != stem {
			return &manifest.SchemaError{
				Source:  source,
				Field:   "name",
				Message: fmt.Sprintf("manifest name must match filename (%s).", stem),
			}
		}
		blocks = append(blocks, m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Name < blocks[j].Name })
	for i := 1; i < len(blocks); i++ {
		if blocks[i].Name == blocks[i-1].Name {
			return nil, fmt.Errorf("duplicate block %q (%s and %s)", blocks[i].Name, blocks[i-1].Source, blocks[i].Source)
		}
	}
	return blocks, nil
}

// LoadWorkflows returns the valid workflow definitions sorted by name
func (l *Loader) LoadWorkflows() ([]manifest.WorkflowDefinition, error) {
	var workflows []manifest.WorkflowDefinition
	err := l.walk(l.workflowsDir, func(doc manifest.Document, source, stem string) error {
		wf, err := manifest.DecodeWorkflow(doc, source)
		if err != nil {
			return err
		}
		if wf.Name != stem {
			return &manifest.SchemaError{
				Source:  source,
				Field:   "name",
				Message: fmt.Sprintf("workflow name must match filename (%s).", stem),
			}
		}
		workflows = append(workflows, wf)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(workflows, func(i, j int) bool { return workflows[i].Name < workflows[j].Name })
	for i := 1; i < len(workflows); i++ {
		if workflows[i].Name == workflows[i-1].Name {
			return nil, fmt.Errorf("duplicate workflow %q (%s and %s)", workflows[i].Name, workflows[i-1].Source, workflows[i].Source)
		}
	}
	return workflows, nil
}

// Documents parses every supported document in dir, in file name order.
// Parse failures are kept on the entry so lint can report all of them.
func (l *Loader) Documents(dir string) ([]Entry, error) {
	files, err := listDocuments(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(files))
	for _, path := range files {
		source := l.source(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", source, err)
		}
		doc, err := manifest.ParseDocument(source, data)
		entries = append(entries, Entry{Path: path, Source: source, Stem: stem(path), Doc: doc, Err: err})
	}
	return entries, nil
}

// Entry is one catalog document as read from disk
type Entry struct {
	Path   string
	Source string
	Stem   string
	Doc    manifest.Document
	Err    error // parse failure, if any
}

// ManifestsDir returns the directory block manifests are read from
func (l *Loader) ManifestsDir() string {
	return l.manifestsDir
}

// WorkflowsDir returns the directory workflow definitions are read from
func (l *Loader) WorkflowsDir() string {
	return l.workflowsDir
}

// Scripts returns the filesystem entry scripts are checked against
func (l *Loader) Scripts() fs.StatFS {
	return l.scripts
}

func (l *Loader) walk(dir string, fn func(doc manifest.Document, source, stem string) error) error {
	entries, err := l.Documents(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Err != nil {
			return entry.Err
		}
		if err := fn(entry.Doc, entry.Source, entry.Stem); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) source(path string) string {
	if l.root == "" {
		return path
	}
	rel, err := filepath.Rel(l.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// listDocuments returns the supported documents directly inside dir. A
// missing directory is an empty catalog.
func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !manifest.SupportedExtension(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
