package cad

// ElementID is the stable identity of an element within a database.
// IDs are assigned monotonically when an element enters the arena and are
// never reused, so a deleted element's ID stays unresolvable forever.
type ElementID uint64

// Kind identifies the element class.
// Values follow the design-file element type numbering.
type Kind int

const (
	// Element type codes from the design-file format
	KindCell          Kind = 2  // Cell header - grouped cluster of elements
	KindLine          Kind = 3  // Line - two points
	KindLineString    Kind = 4  // Line string - open point chain
	KindShape         Kind = 6  // Shape - closed point chain, fillable
	KindComplexString Kind = 12 // Complex chain - open composite curve
	KindComplexShape  Kind = 14 // Complex shape - closed composite curve, fillable
	KindArc           Kind = 16 // Arc - circular arc by center/radius/angles
	KindText          Kind = 17 // Text - label anchored at a point
)

// String returns the element class name.
func (k Kind) String() string {
	switch k {
	case KindCell:
		return "Cell"
	case KindLine:
		return "Line"
	case KindLineString:
		return "LineString"
	case KindShape:
		return "Shape"
	case KindComplexString:
		return "ComplexString"
	case KindComplexShape:
		return "ComplexShape"
	case KindArc:
		return "Arc"
	case KindText:
		return "Text"
	default:
		return "Unknown"
	}
}

// Complex reports whether elements of this kind carry child elements
// instead of direct geometry.
func (k Kind) Complex() bool {
	return k == KindCell || k == KindComplexString || k == KindComplexShape
}

// ClosedShape reports whether elements of this kind are closed fillable
// shapes, eligible to act as polygon exteriors and to host hole children.
func (k Kind) ClosedShape() bool {
	return k == KindShape || k == KindComplexShape
}

// Point3 is a 3D coordinate in master units.
type Point3 struct {
	X, Y, Z float64
}

// ArcData holds the parameters of a circular arc element.
type ArcData struct {
	Center     Point3  // Arc center
	Radius     float64 // Arc radius in master units
	StartAngle float64 // Start angle in degrees, counter-clockwise from +X
	SweepAngle float64 // Sweep in degrees; negative sweeps clockwise
}

// TextData holds the payload of a text element.
type TextData struct {
	Origin   Point3  // Anchor point
	Value    string  // Text content, UTF-8 in memory
	FontID   int     // Font number
	Height   float64 // Text height in master units
	Rotation float64 // Rotation in degrees
}

// FillData marks an element as filled.
type FillData struct {
	ColorIndex int // Fill color table index
}

// Element is a node in a model's element tree.
//
// Exactly one payload group is meaningful per Kind:
//   - Line, LineString, Shape: Points
//   - Arc: Arc
//   - Text: Text
//   - Cell, ComplexString, ComplexShape: Children
//
// Style fields apply to all kinds. The database owns every element
// transitively through its models; Children are references into the same
// arena, not private copies.
type Element struct {
	ID   ElementID
	Kind Kind

	// Common style
	Level        int // Design level, 0-63
	GraphicGroup int
	ColorIndex   int
	Weight       int
	LineStyle    int
	Fill         *FillData

	// Payload
	Points   []Point3
	Arc      *ArcData
	Text     *TextData
	Children []*Element

	// Deleted elements stay in the arena so identities never resolve to a
	// different element; iterators skip them.
	Deleted bool

	// childIDs carries persisted child identities between decode and
	// pointer resolution; nil once Children is populated.
	childIDs []ElementID
}

// validateAttributes checks el and its subtree against the storable ranges
// of the style fields. Level is a design level, 0-63; Weight and LineStyle
// persist as single bytes, the color indexes as 16-bit table slots.
func validateAttributes(el *Element) error {
	switch {
	case el.Level < 0 || el.Level > 63:
		return &AttributeRangeError{Field: "level", Value: el.Level, Max: 63}
	case el.Weight < 0 || el.Weight > 255:
		return &AttributeRangeError{Field: "weight", Value: el.Weight, Max: 255}
	case el.LineStyle < 0 || el.LineStyle > 255:
		return &AttributeRangeError{Field: "line style", Value: el.LineStyle, Max: 255}
	case el.ColorIndex < 0 || el.ColorIndex > 65535:
		return &AttributeRangeError{Field: "color index", Value: el.ColorIndex, Max: 65535}
	case el.Fill != nil && (el.Fill.ColorIndex < 0 || el.Fill.ColorIndex > 65535):
		return &AttributeRangeError{Field: "fill color index", Value: el.Fill.ColorIndex, Max: 65535}
	}
	for _, child := range el.Children {
		if err := validateAttributes(child); err != nil {
			return err
		}
	}
	return nil
}

// Complex reports whether the element carries child elements.
func (e *Element) Complex() bool { return e.Kind.Complex() }

// ClosedShape reports whether the element is a closed fillable shape.
func (e *Element) ClosedShape() bool { return e.Kind.ClosedShape() }
