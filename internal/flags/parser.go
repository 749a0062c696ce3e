// Package flags tokenizes long-form CLI flags into a flag->value map without
// knowing which flags are valid. Validation against a block's declared
// options lives in the contract package.
package flags

import (
	"fmt"
	"strings"
)

const prefix = "--"

// Value is a parsed flag value. Bare is set when the flag had neither an
// "=value" suffix nor a following value token, which reads as boolean true.
type Value struct {
	Raw  string
	Bare bool
}

// String renders the value the way it appeared on the command line.
func (v Value) String() string {
	if v.Bare {
		return "true"
	}
	return v.Raw
}

// Parsed holds flags keyed by their full name (including "--") plus the
// order in which each flag was first seen.
type Parsed struct {
	Values map[string]Value
	Order  []string
}

// Get returns the value for flag.
func (p Parsed) Get(flag string) (Value, bool) {
	v, ok := p.Values[flag]
	return v, ok
}

// Has reports whether flag was given.
func (p Parsed) Has(flag string) bool {
	_, ok := p.Values[flag]
	return ok
}

// ParseError is returned for tokens that are not long-form flags.
type ParseError struct {
	Token   string
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

// IsFlag reports whether token looks like a long-form flag.
func IsFlag(token string) bool {
	return strings.HasPrefix(token, prefix)
}

// Parse tokenizes a flat list of "--flag", "--flag=value" and
// "--flag value" tokens. Positional arguments are rejected. A repeated flag
// keeps its last value and its first position.
func Parse(tokens []string) (Parsed, error) {
	parsed := Parsed{Values: make(map[string]Value, len(tokens))}

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		if !IsFlag(token) {
			return Parsed{}, &ParseError{
				Token:   token,
				Message: fmt.Sprintf("Unexpected positional argument %q.", token),
			}
		}

		name, inline, hasInline := strings.Cut(token, "=")
		if name == prefix {
			return Parsed{}, &ParseError{
				Token:   token,
				Message: fmt.Sprintf("Invalid flag %q (missing flag name).", token),
			}
		}

		var value Value
		switch {
		case hasInline:
			value = Value{Raw: inline}
		case i+1 < len(tokens) && !IsFlag(tokens[i+1]):
			value = Value{Raw: tokens[i+1]}
			i++
		default:
			value = Value{Bare: true}
		}

		if _, seen := parsed.Values[name]; !seen {
			parsed.Order = append(parsed.Order, name)
		}
		parsed.Values[name] = value
	}

	return parsed, nil
}
