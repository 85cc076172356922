package grid

import "fmt"

// ConfigurationError reports an invalid construction input: degenerate
// dimensions, a malformed map, an initial state outside the playable area.
// It is fatal at construction time and never produced by a running engine.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError builds a ConfigurationError with a formatted reason.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// OutOfBoundsError signals a cell access outside the grid geometry. It is an
// internal signal between the grid and collision resolution; a step never
// surfaces it to callers.
type OutOfBoundsError struct {
	X, Y          int
	Width, Height int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("cell outside grid: got=(%d,%d) want x in [0,%d) y in [0,%d)", e.X, e.Y, e.Width, e.Height)
}
