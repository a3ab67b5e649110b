package dgn

import (
	"fmt"
	"math"

	"github.com/beetlebugorg/dgn/internal/cad"
)

// DefaultTolerance is the endpoint-contiguity tolerance, in master units,
// used for segment chaining and curve closure when no explicit tolerance
// is configured.
const DefaultTolerance = 1e-8

// PrimitiveKind identifies the element class a primitive descriptor maps to.
type PrimitiveKind int

const (
	// PrimitiveLine maps to a line or line-string element.
	PrimitiveLine PrimitiveKind = iota

	// PrimitiveArc maps to an arc element. Points hold the arc's
	// three-point form: start, intermediate, end.
	PrimitiveArc
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveLine:
		return "Line"
	case PrimitiveArc:
		return "Arc"
	default:
		return "Unknown"
	}
}

// Primitive describes one primitive sub-element of a composite curve: the
// bridge between curve geometries and element children.
type Primitive struct {
	Kind   PrimitiveKind
	Points []Point

	// Closed marks a primitive whose chain starts and ends at the same
	// point, making it a shape (fillable) rather than an open string.
	Closed bool
}

// AssembleCurve concatenates primitive descriptors in order into a single
// curve: a LineString if all primitives are lines, a CircularString if all
// are arcs, and a CompoundCurve otherwise.
//
// Endpoint chaining is checked within tol: the end point of each primitive
// must coincide with the start point of the next. On mismatch the curve is
// still emitted but flagged non-simple (IsSimple reports false), so
// degenerate source data stays renderable instead of aborting translation.
func AssembleCurve(prims []Primitive, tol float64) (Curve, error) {
	if len(prims) == 0 {
		return nil, fmt.Errorf("dgn: cannot assemble curve from zero primitives")
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}

	// Fold primitives into runs of one kind, merging shared endpoints.
	type run struct {
		kind   PrimitiveKind
		points []Point
	}
	var runs []run
	nonSimple := false

	for i, prim := range prims {
		if len(prim.Points) < 2 {
			return nil, fmt.Errorf("dgn: primitive %d has %d points, need at least 2", i, len(prim.Points))
		}
		if prim.Kind == PrimitiveArc && len(prim.Points)%2 == 0 {
			return nil, fmt.Errorf("dgn: arc primitive %d has even point count %d", i, len(prim.Points))
		}

		if len(runs) > 0 {
			prev := &runs[len(runs)-1]
			gap := pointDistance(prev.points[len(prev.points)-1], prim.Points[0])
			if gap > tol {
				// Recovery policy: keep the break in the data and flag the
				// curve rather than rejecting it.
				nonSimple = true
			} else if prev.kind == prim.Kind {
				// Continue the run, dropping the duplicated joint point.
				prev.points = append(prev.points, prim.Points[1:]...)
				continue
			}
		}
		runs = append(runs, run{kind: prim.Kind, points: append([]Point(nil), prim.Points...)})
	}

	if len(runs) == 1 {
		if runs[0].kind == PrimitiveLine {
			return &LineString{Points: runs[0].points, nonSimple: nonSimple}, nil
		}
		return &CircularString{Points: runs[0].points, nonSimple: nonSimple}, nil
	}

	compound := &CompoundCurve{nonSimple: nonSimple}
	for _, r := range runs {
		if r.kind == PrimitiveLine {
			compound.Segments = append(compound.Segments, &LineString{Points: r.points})
		} else {
			compound.Segments = append(compound.Segments, &CircularString{Points: r.points})
		}
	}
	return compound, nil
}

// DecomposeCurve is the inverse of AssembleCurve: it splits a curve into
// primitive descriptors ready to become element children.
//
// Contiguous straight segments collapse into one line descriptor; each
// circular arc becomes its own descriptor, since an arc element carries a
// single sweep. A curve whose first and last points coincide within
// DefaultTolerance yields descriptors flagged Closed, marking the result a
// shape (closed, fillable) rather than an open string.
func DecomposeCurve(curve Curve) ([]Primitive, error) {
	if curve == nil {
		return nil, fmt.Errorf("dgn: cannot decompose nil curve")
	}
	closed := curve.IsClosed()

	switch c := curve.(type) {
	case *LineString:
		if len(c.Points) < 2 {
			return nil, fmt.Errorf("dgn: line string with %d points", len(c.Points))
		}
		return []Primitive{{
			Kind:   PrimitiveLine,
			Points: append([]Point(nil), c.Points...),
			Closed: closed,
		}}, nil

	case *CircularString:
		if c.NumArcs() == 0 {
			return nil, fmt.Errorf("dgn: circular string with %d points", len(c.Points))
		}
		prims := make([]Primitive, 0, c.NumArcs())
		for i := 0; i+2 < len(c.Points); i += 2 {
			prims = append(prims, Primitive{
				Kind:   PrimitiveArc,
				Points: []Point{c.Points[i], c.Points[i+1], c.Points[i+2]},
				Closed: closed && c.NumArcs() == 1,
			})
		}
		return prims, nil

	case *CompoundCurve:
		if len(c.Segments) == 0 {
			return nil, fmt.Errorf("dgn: compound curve with no segments")
		}
		var prims []Primitive
		for _, seg := range c.Segments {
			segPrims, err := DecomposeCurve(seg)
			if err != nil {
				return nil, err
			}
			// Closure is a property of the whole compound, not a segment.
			for i := range segPrims {
				segPrims[i].Closed = false
			}
			prims = append(prims, segPrims...)
		}
		return prims, nil

	default:
		return nil, &UnsupportedGeometryError{
			Type:   curve.GeometryType(),
			Reason: "not a decomposable curve",
		}
	}
}

// elementStyle carries the common style fields applied to elements built
// from a feature.
type elementStyle struct {
	level        int
	graphicGroup int
	colorIndex   int
	weight       int
	lineStyle    int
	fill         *cad.FillData
}

func featureStyle(f *Feature) elementStyle {
	style := elementStyle{
		level:        f.Level,
		graphicGroup: f.GraphicGroup,
		colorIndex:   f.ColorIndex,
		weight:       f.Weight,
		lineStyle:    f.LineStyle,
	}
	if f.Filled {
		style.fill = &cad.FillData{ColorIndex: f.FillColor}
	}
	return style
}

func (s elementStyle) apply(el *cad.Element) *cad.Element {
	el.Level = s.level
	el.GraphicGroup = s.graphicGroup
	el.ColorIndex = s.colorIndex
	el.Weight = s.weight
	el.LineStyle = s.lineStyle
	return el
}

// primitiveElement materializes one primitive descriptor as a leaf element.
func primitiveElement(prim Primitive, style elementStyle) (*cad.Element, error) {
	switch prim.Kind {
	case PrimitiveLine:
		kind := cad.KindLineString
		if len(prim.Points) == 2 {
			kind = cad.KindLine
		}
		return style.apply(&cad.Element{
			Kind:   kind,
			Points: toPoint3s(prim.Points),
		}), nil

	case PrimitiveArc:
		if len(prim.Points) != 3 {
			return nil, fmt.Errorf("dgn: arc primitive with %d points", len(prim.Points))
		}
		arc, err := arcFromTriple(prim.Points[0], prim.Points[1], prim.Points[2])
		if err != nil {
			return nil, err
		}
		return style.apply(&cad.Element{
			Kind: cad.KindArc,
			Arc:  arc,
		}), nil

	default:
		return nil, fmt.Errorf("dgn: unknown primitive kind %v", prim.Kind)
	}
}

// buildShapeElement wraps a closed curve as a shape element: a leaf shape
// for a single line run, a complex shape otherwise. When isHole is true the
// fill linkage is omitted and the caller nests the result under the
// enclosing exterior shape instead of appending it as a top-level element.
func buildShapeElement(curve Curve, isHole bool, style elementStyle) (*cad.Element, error) {
	prims, err := DecomposeCurve(curve)
	if err != nil {
		return nil, err
	}

	holeStyle := style
	if isHole {
		holeStyle.fill = nil
	}

	if len(prims) == 1 && prims[0].Kind == PrimitiveLine {
		el := holeStyle.apply(&cad.Element{
			Kind:   cad.KindShape,
			Points: toPoint3s(closeChain(prims[0].Points)),
		})
		el.Fill = holeStyle.fill
		return el, nil
	}

	shape := holeStyle.apply(&cad.Element{Kind: cad.KindComplexShape})
	shape.Fill = holeStyle.fill
	for _, prim := range prims {
		child, err := primitiveElement(prim, holeStyle)
		if err != nil {
			return nil, err
		}
		shape.Children = append(shape.Children, child)
	}
	return shape, nil
}

// translateLabel produces a text element anchored at a point, carrying the
// feature's font, size, and rotation style fields.
func translateLabel(pt Point, f *Feature) *cad.Element {
	style := featureStyle(f)
	el := style.apply(&cad.Element{
		Kind: cad.KindText,
		Text: &cad.TextData{
			Origin:   cad.Point3{X: pt.X, Y: pt.Y, Z: pt.Z},
			Value:    f.Text,
			FontID:   f.FontID,
			Height:   f.TextHeight,
			Rotation: f.TextRotation,
		},
	})
	return el
}

// closeChain appends the first point when a chain is not exactly closed,
// so shape elements always store a closed ring.
func closeChain(points []Point) []Point {
	if len(points) < 3 {
		return points
	}
	if points[0] == points[len(points)-1] {
		return points
	}
	return append(append([]Point(nil), points...), points[0])
}

// elementPrimitives converts a primitive curve element into descriptors
// for assembly. Returns nil for kinds that are not curve primitives.
func elementPrimitives(el *cad.Element) []Primitive {
	switch el.Kind {
	case cad.KindLine, cad.KindLineString:
		if len(el.Points) < 2 {
			return nil
		}
		return []Primitive{{
			Kind:   PrimitiveLine,
			Points: toPoints(el.Points),
		}}
	case cad.KindArc:
		if el.Arc == nil {
			return nil
		}
		start, mid, end := arcTriple(el.Arc)
		return []Primitive{{
			Kind:   PrimitiveArc,
			Points: []Point{start, mid, end},
		}}
	default:
		return nil
	}
}

// arcTriple converts arc parameters to three-point form: start point,
// sweep midpoint, end point.
func arcTriple(arc *cad.ArcData) (start, mid, end Point) {
	at := func(deg float64) Point {
		rad := deg * math.Pi / 180
		return Point{
			X: arc.Center.X + arc.Radius*math.Cos(rad),
			Y: arc.Center.Y + arc.Radius*math.Sin(rad),
			Z: arc.Center.Z,
		}
	}
	return at(arc.StartAngle), at(arc.StartAngle + arc.SweepAngle/2), at(arc.StartAngle + arc.SweepAngle)
}

// arcFromTriple recovers arc parameters from three-point form.
//
// A full circle's start and end points coincide and its midpoint sits
// diametrically opposite, so the circle is recovered from those two points
// alone. The sweep sign is not recoverable in that case; full circles come
// back counter-clockwise.
func arcFromTriple(start, mid, end Point) (*cad.ArcData, error) {
	if pointsEqual(start, end, DefaultTolerance) {
		center := Point{
			X: (start.X + mid.X) / 2,
			Y: (start.Y + mid.Y) / 2,
			Z: start.Z,
		}
		radius := pointDistance(start, mid) / 2
		if radius <= DefaultTolerance {
			return nil, &UnsupportedGeometryError{
				Type:   GeometryTypeCircularString,
				Reason: "degenerate arc with coincident points",
			}
		}
		a0 := math.Atan2(start.Y-center.Y, start.X-center.X)
		return &cad.ArcData{
			Center:     cad.Point3{X: center.X, Y: center.Y, Z: center.Z},
			Radius:     radius,
			StartAngle: a0 * 180 / math.Pi,
			SweepAngle: 360,
		}, nil
	}

	center, radius, ok := arcCenter(start, mid, end)
	if !ok {
		return nil, &UnsupportedGeometryError{
			Type:   GeometryTypeCircularString,
			Reason: "collinear arc points",
		}
	}
	a0 := math.Atan2(start.Y-center.Y, start.X-center.X)
	a1 := math.Atan2(mid.Y-center.Y, mid.X-center.X)
	a2 := math.Atan2(end.Y-center.Y, end.X-center.X)
	sweep := sweepThrough(a0, a1, a2)
	return &cad.ArcData{
		Center:     cad.Point3{X: center.X, Y: center.Y, Z: center.Z},
		Radius:     radius,
		StartAngle: a0 * 180 / math.Pi,
		SweepAngle: sweep * 180 / math.Pi,
	}, nil
}

func toPoint3s(points []Point) []cad.Point3 {
	out := make([]cad.Point3, len(points))
	for i, p := range points {
		out[i] = cad.Point3{X: p.X, Y: p.Y, Z: p.Z}
	}
	return out
}

func toPoints(points []cad.Point3) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{X: p.X, Y: p.Y, Z: p.Z}
	}
	return out
}

func pointDistance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
