package ga

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotInitialized is returned when a generational step is requested
// before Generate has produced an initial population.
var ErrNotInitialized = errors.New("population not initialized: call Generate first")

// ConfigError reports an invalid population or parameter configuration.
// Configuration errors are detected eagerly and leave no partial state behind.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Reason
}

// EvaluationError reports a cost function failure for a single member.
// The in-progress generation is aborted; the previous generation remains
// the active state, so the caller can retry or inspect Values.
type EvaluationError struct {
	Values map[string]float64
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed for %s: %v", formatValues(e.Values), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// formatValues renders a value mapping with stable key order for error text.
func formatValues(values map[string]float64) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("{")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %g", name, values[name])
	}
	b.WriteString("}")
	return b.String()
}
