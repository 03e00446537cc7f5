package resolve

import (
	"fmt"
	"strings"
)

// NotFoundError reports that no record matched the requested name, or the
// requested exact version of it.
type NotFoundError struct {
	Name    string
	Version int // 0 when the latest version was requested
}

func (e *NotFoundError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("prompt %q version %d not found", e.Name, e.Version)
	}
	return fmt.Sprintf("prompt %q not found", e.Name)
}

// CycleError reports that a name reappeared while walking an extends chain.
// Chain holds the full offending walk, ending with the repeated name.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "circular inheritance: " + strings.Join(e.Chain, " -> ")
}

// DepthError reports a chain longer than the configured maximum.
type DepthError struct {
	Chain []string
	Limit int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("inheritance chain exceeds %d records: %s",
		e.Limit, strings.Join(e.Chain, " -> "))
}
