package schema

import (
	"fmt"
	"strings"
)

// FieldError is a single schema violation.
// Value holds the offending value for human review; it is never re-processed.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func (e FieldError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Errors is the list of violations returned when a candidate fails validation.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Prefixed returns a copy of e with every path rooted under prefix.
func (e Errors) Prefixed(prefix string) Errors {
	out := make(Errors, len(e))
	for i, fe := range e {
		if fe.Path == "" {
			fe.Path = prefix
		} else {
			fe.Path = prefix + "." + fe.Path
		}
		out[i] = fe
	}
	return out
}

// AsErrors extracts field errors from err. Errors that are not schema
// violations are reported as a single path-less FieldError.
func AsErrors(err error) Errors {
	if err == nil {
		return nil
	}
	if fe, ok := err.(Errors); ok {
		return fe
	}
	return Errors{{Message: err.Error()}}
}
