package cad

import (
	"fmt"
)

// OpenError indicates the backing file could not be read or recognized.
type OpenError struct {
	Path   string
	Reason string
	Err    error
}

func (e *OpenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cad: open %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("cad: open %s: %s", e.Path, e.Reason)
}

func (e *OpenError) Unwrap() error { return e.Err }

// ElementNotFoundError indicates an element identity did not resolve.
type ElementNotFoundError struct {
	ID ElementID
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("cad: element %d not found", e.ID)
}

// DuplicateModelError indicates a model name collision.
type DuplicateModelError struct {
	Name string
}

func (e *DuplicateModelError) Error() string {
	return fmt.Sprintf("cad: model %q already exists", e.Name)
}

// AttributeRangeError indicates a display attribute outside its storable
// range.
type AttributeRangeError struct {
	Field string
	Value int
	Max   int
}

func (e *AttributeRangeError) Error() string {
	return fmt.Sprintf("cad: %s %d out of range 0-%d", e.Field, e.Value, e.Max)
}

// ReadOnlyError indicates a mutation was attempted on a database that was
// not opened for update.
type ReadOnlyError struct {
	Op string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("cad: %s: database not opened for update", e.Op)
}
