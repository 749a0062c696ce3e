package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Entry is a parsed "<program> <script-path> [args...]" command reference.
type Entry struct {
	Raw     string
	Program string   // interpreter, e.g. "node"
	Script  string   // script path, relative to the script root unless absolute
	Args    []string // trailing arguments placed before caller arguments
}

var errEmptyEntry = errors.New("entry is empty")

// ParseEntry splits an entry string using shell word rules.
func ParseEntry(raw string) (Entry, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Entry{}, errEmptyEntry
	}

	words, err := shellquote.Split(trimmed)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %q cannot be split: %w", raw, err)
	}
	if len(words) < 2 || words[0] == "" || words[1] == "" {
		return Entry{}, fmt.Errorf("entry %q must be \"<program> <script-path> [args...]\"", raw)
	}

	entry := Entry{
		Raw:     trimmed,
		Program: words[0],
		Script:  words[1],
	}
	if len(words) > 2 {
		entry.Args = append([]string(nil), words[2:]...)
	}
	return entry, nil
}

// String returns the entry as written in the manifest.
func (e Entry) String() string {
	return e.Raw
}

// MarshalText keeps listings and re-encoded documents in the source form.
func (e Entry) MarshalText() ([]byte, error) {
	return []byte(e.Raw), nil
}
