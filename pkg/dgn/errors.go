package dgn

import (
	"errors"
	"fmt"
)

// ErrEndOfData signals iteration completion. It is a sentinel, not a
// failure; layer iteration surfaces it as a nil feature instead.
var ErrEndOfData = errors.New("dgn: end of data")

// OpenError indicates the design file could not be read or recognized.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("dgn: cannot open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// MalformedCurveError describes a non-contiguous segment chain found while
// assembling a curve. Assembly recovers by flagging the curve non-simple;
// this error is recorded on the result, not returned as a failure.
type MalformedCurveError struct {
	Segment int     // Index of the segment whose start failed to chain
	Gap     float64 // Distance between the expected and actual start point
}

func (e *MalformedCurveError) Error() string {
	return fmt.Sprintf("dgn: curve segment %d does not chain (gap %g)", e.Segment, e.Gap)
}

// UnsupportedGeometryError indicates a feature geometry with no element
// equivalent. Feature creation fails; nothing is written.
type UnsupportedGeometryError struct {
	Type   GeometryType
	Reason string
}

func (e *UnsupportedGeometryError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("dgn: unsupported geometry %v: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("dgn: unsupported geometry %v", e.Type)
}

// FeatureNotFoundError indicates a feature identity that does not resolve
// on this layer.
type FeatureNotFoundError struct {
	ID uint64
}

func (e *FeatureNotFoundError) Error() string {
	return fmt.Sprintf("dgn: feature %d not found", e.ID)
}

// DuplicateLayerError indicates a layer creation name collision.
type DuplicateLayerError struct {
	Name string
}

func (e *DuplicateLayerError) Error() string {
	return fmt.Sprintf("dgn: layer %q already exists", e.Name)
}

// ReadOnlyError indicates a mutation on a data source opened read-only.
type ReadOnlyError struct {
	Op string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("dgn: %s: data source not opened for update", e.Op)
}
