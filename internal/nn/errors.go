package nn

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrInvalidConfig   = errors.New("invalid model configuration")
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrEmptyBatch      = errors.New("batch must contain at least one example")
	ErrLabelOutOfRange = errors.New("label out of range")
	ErrNonFinite       = errors.New("non-finite value in loss computation")
)

// ShapeError provides detailed information about a shape mismatch
// between an input and what a model or layer expects.
type ShapeError struct {
	Op   string // Operation that detected the mismatch (e.g., "FullyConnectedNet.Loss")
	Want string // Expected shape, human-readable
	Got  string // Actual shape
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %v: want %s, got %s", e.Op, ErrShapeMismatch, e.Want, e.Got)
}

// Unwrap allows errors.Is(err, ErrShapeMismatch).
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}
