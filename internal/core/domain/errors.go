package domain

import "errors"

var (
	// ErrDataUnavailable means the instrumentation a diagnostic depends on is
	// disabled or unreadable at the source. It is never retried.
	ErrDataUnavailable = errors.New("instrumentation data unavailable")

	// ErrInvalidIndexDefinition marks a single catalog row that cannot take part
	// in the analysis (zero columns, expression key parts, missing identity).
	ErrInvalidIndexDefinition = errors.New("invalid index definition")

	// ErrCounterReset is carried by a counter diff whose current reading is
	// below the previous one. The monitor recovers from it by rebaselining.
	ErrCounterReset = errors.New("cumulative counter reset")
)
