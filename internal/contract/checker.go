// Package contract checks passthrough generator flags against the options a
// block manifest declares, so a bad invocation is rejected with one specific
// reason before any generator process starts.
package contract

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/solid-auto/app-blocks/internal/flags"
	"github.com/solid-auto/app-blocks/internal/manifest"
)

// Kind classifies contract violations.
type Kind string

const (
	KindParse           Kind = "parse"
	KindUnknownFlag     Kind = "unknown-flag"
	KindMissingRequired Kind = "missing-required"
	KindInvalidValue    Kind = "invalid-value"
)

// Error is a contract violation for a single flag of a block.
type Error struct {
	Block   string
	Flag    string
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ValidatePassthroughArgs parses tokens and checks them against m's options:
// unknown flags first, then missing required options, then typed values.
func ValidatePassthroughArgs(m manifest.BlockManifest, tokens []string) error {
	_, err := Check(m, tokens)
	return err
}

// Check is ValidatePassthroughArgs that also returns the coerced values,
// keyed by flag.
func Check(m manifest.BlockManifest, tokens []string) (map[string]any, error) {
	parsed, err := flags.Parse(tokens)
	if err != nil {
		return nil, &Error{
			Block:   m.Name,
			Kind:    KindParse,
			Message: fmt.Sprintf("Invalid arguments for block %q: %s", m.Name, err.Error()),
		}
	}

	for _, flag := range parsed.Order {
		if _, ok := m.Option(flag); !ok {
			return nil, &Error{
				Block:   m.Name,
				Flag:    flag,
				Kind:    KindUnknownFlag,
				Message: fmt.Sprintf("Unknown flag %q for block %q.", flag, m.Name),
			}
		}
	}

	for _, opt := range m.Options {
		if opt.Required && !parsed.Has(opt.Flag) {
			return nil, &Error{
				Block:   m.Name,
				Flag:    opt.Flag,
				Kind:    KindMissingRequired,
				Message: fmt.Sprintf("Missing required option %q for block %q.", opt.Flag, m.Name),
			}
		}
	}

	values := make(map[string]any, len(parsed.Order))
	for _, flag := range parsed.Order {
		opt, _ := m.Option(flag)
		value, err := Coerce(opt, parsed.Values[flag])
		if err != nil {
			return nil, &Error{
				Block:   m.Name,
				Flag:    flag,
				Kind:    KindInvalidValue,
				Message: fmt.Sprintf("Option %q for block %q %s.", flag, m.Name, err.Error()),
			}
		}
		values[flag] = value
	}

	return values, nil
}

// Coerce converts a parsed flag value to the Go value for opt's type:
// string, float64 or bool. The error text completes the sentence
// "Option X for block Y ...".
func Coerce(opt manifest.OptionSpec, v flags.Value) (any, error) {
	switch opt.Type {
	case manifest.TypeString:
		if v.Bare || v.Raw == "" {
			return nil, fmt.Errorf("requires a value")
		}
		return v.Raw, nil

	case manifest.TypeNumber:
		if v.Bare {
			return nil, fmt.Errorf("requires a numeric value")
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Raw), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("expects a number, got %q", v.Raw)
		}
		return n, nil

	case manifest.TypeBoolean:
		if v.Bare {
			return true, nil
		}
		switch v.Raw {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("has an invalid boolean value %q (expected true or false)", v.Raw)
	}

	return nil, fmt.Errorf("has unsupported type %q", opt.Type)
}
