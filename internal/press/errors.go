package press

import (
	"fmt"
	"strings"
)

// MissingConfigError is returned when required account configuration is missing.
type MissingConfigError struct {
	Provider string
	Fields   []string
}

func (e MissingConfigError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s account not configured", e.Provider)
	}
	return fmt.Sprintf("%s account not configured (missing %s)", e.Provider, strings.Join(e.Fields, ", "))
}

// ValidationError captures provider-specific validation issues.
type ValidationError struct {
	Provider string
	Reason   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Provider, e.Reason)
}

// UnsupportedError marks an operation a platform cannot perform.
type UnsupportedError struct {
	Provider string
	Op       string
}

func (e UnsupportedError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Provider, e.Op)
}
