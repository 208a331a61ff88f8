package pyor

import "fmt"

// InsufficientContextError is returned when an add/remove/probability
// operation is given a position or context shorter than the model's
// required depth.
//
// Grounded on the PreflightError/ValidationError typed-error idiom.
type InsufficientContextError struct {
	Operation string
	Depth     int
	Have      int
}

func (e *InsufficientContextError) Error() string {
	return fmt.Sprintf("%s: insufficient context (need %d tokens, have %d)", e.Operation, e.Depth, e.Have)
}

// MissingNodeError indicates a remove reached a context with no
// matching subtree, or a dish absent from a node's arrangement during
// removal. Per spec §7 this is a programming bug: a corrupted
// add/remove pairing, not a recoverable condition.
type MissingNodeError struct {
	Operation string
	Depth     int
	Dish      int
}

func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("%s: no matching node/dish %d at depth %d (corrupted add/remove pairing)", e.Operation, e.Dish, e.Depth)
}

// InvariantViolationError indicates a node's customer arrangement
// violated a required invariant (negative or zero-entry table counts)
// after an operation.
type InvariantViolationError struct {
	Depth  int
	Dish   int
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation at depth %d, dish %d: %s", e.Depth, e.Dish, e.Detail)
}

// DeserializationError indicates a save file was absent or malformed.
type DeserializationError struct {
	Path   string
	Detail string
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("deserialization failed for %q: %s", e.Path, e.Detail)
}
