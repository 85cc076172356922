package engine

import (
	"sapientino/internal/grid"
	"sapientino/internal/motion"
)

// The engine shares one error taxonomy with the packages beneath it:
// configuration problems surface at construction, invalid actions surface
// from Step, and out-of-bounds cell access stays internal to resolution.
type (
	ConfigurationError = grid.ConfigurationError
	OutOfBoundsError   = grid.OutOfBoundsError
	InvalidActionError = motion.InvalidActionError
)
