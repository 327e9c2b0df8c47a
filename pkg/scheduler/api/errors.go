package api

import (
	"github.com/pkg/errors"
)

// Error classes. Callers wrap these with context and test for them with errors.Is.
var (
	// ErrParse means an input document could not be decoded.
	ErrParse = errors.New("parse error")
	// ErrSchema means an input document decoded but its content is inconsistent.
	ErrSchema = errors.New("schema error")
	// ErrCycleDetected means the task dependencies are not a DAG.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrModelMissing means a machine type has no profiling coverage.
	ErrModelMissing = errors.New("performance model missing")
	// ErrInvalidPlacement means a placement is not total or references an unknown machine.
	ErrInvalidPlacement = errors.New("invalid placement")
	// ErrInvalidConfig means optimization parameters are out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidState means an optimizer operation was called in the wrong phase.
	ErrInvalidState = errors.New("invalid optimizer state")
)
