package dgn

import (
	"math"
)

// GeometryType represents the type of geometry.
type GeometryType int

const (
	// GeometryTypePoint represents a single point location.
	GeometryTypePoint GeometryType = iota

	// GeometryTypeLineString represents a chain of straight segments.
	GeometryTypeLineString

	// GeometryTypeCircularString represents a chain of circular arcs.
	// Points come in overlapping triples: each arc is defined by its start,
	// an intermediate point, and its end, with consecutive arcs sharing
	// endpoints. A circular string of n arcs has 2n+1 points.
	GeometryTypeCircularString

	// GeometryTypeCompoundCurve represents a curve mixing straight and arc
	// segments.
	GeometryTypeCompoundCurve

	// GeometryTypePolygon represents an area bounded by a closed exterior
	// ring with zero or more interior rings (holes).
	GeometryTypePolygon
)

// String returns the string representation of the geometry type.
func (g GeometryType) String() string {
	switch g {
	case GeometryTypePoint:
		return "Point"
	case GeometryTypeLineString:
		return "LineString"
	case GeometryTypeCircularString:
		return "CircularString"
	case GeometryTypeCompoundCurve:
		return "CompoundCurve"
	case GeometryTypePolygon:
		return "Polygon"
	default:
		return "Unknown"
	}
}

// Geometry is the spatial representation of a feature.
type Geometry interface {
	// GeometryType returns the concrete type tag.
	GeometryType() GeometryType

	// Envelope returns the bounding envelope of the geometry.
	Envelope() Envelope
}

// Curve is a one-dimensional geometry with identifiable endpoints.
// LineString, CircularString, and CompoundCurve are curves.
type Curve interface {
	Geometry

	// StartPoint returns the first point of the curve.
	StartPoint() Point

	// EndPoint returns the last point of the curve.
	EndPoint() Point

	// IsClosed reports whether start and end coincide within
	// DefaultTolerance.
	IsClosed() bool

	// IsSimple reports whether the curve's segments chained contiguously
	// when it was assembled. Non-simple curves carry degenerate source
	// data but are still usable.
	IsSimple() bool
}

// Point is a single 3D location. Z is zero for flattened data.
type Point struct {
	X, Y, Z float64
}

func (p Point) GeometryType() GeometryType { return GeometryTypePoint }

func (p Point) Envelope() Envelope {
	return Envelope{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
}

// LineString is an ordered chain of straight segments.
type LineString struct {
	Points []Point

	nonSimple bool
}

func (l *LineString) GeometryType() GeometryType { return GeometryTypeLineString }

func (l *LineString) Envelope() Envelope { return pointsEnvelope(l.Points) }

func (l *LineString) StartPoint() Point { return firstPoint(l.Points) }

func (l *LineString) EndPoint() Point { return lastPoint(l.Points) }

func (l *LineString) IsClosed() bool { return chainClosed(l.Points) }

func (l *LineString) IsSimple() bool { return !l.nonSimple }

// CircularString is an ordered chain of circular arcs in three-point form.
type CircularString struct {
	Points []Point

	nonSimple bool
}

func (c *CircularString) GeometryType() GeometryType { return GeometryTypeCircularString }

// Envelope returns the envelope of the arc sample points. Arc bulges
// beyond the sample points are covered by densifying each arc triple.
func (c *CircularString) Envelope() Envelope {
	env := newEnvelope()
	for i := 0; i+2 < len(c.Points); i += 2 {
		for _, p := range strokeArc(c.Points[i], c.Points[i+1], c.Points[i+2]) {
			env.extend(p)
		}
	}
	for _, p := range c.Points {
		env.extend(p)
	}
	return env
}

func (c *CircularString) StartPoint() Point { return firstPoint(c.Points) }

func (c *CircularString) EndPoint() Point { return lastPoint(c.Points) }

func (c *CircularString) IsClosed() bool { return chainClosed(c.Points) }

func (c *CircularString) IsSimple() bool { return !c.nonSimple }

// NumArcs returns the number of arcs in the string.
func (c *CircularString) NumArcs() int {
	if len(c.Points) < 3 {
		return 0
	}
	return (len(c.Points) - 1) / 2
}

// CompoundCurve is an ordered sequence of curve segments, each a
// LineString or CircularString, chained end to start.
type CompoundCurve struct {
	Segments []Curve

	nonSimple bool
}

func (c *CompoundCurve) GeometryType() GeometryType { return GeometryTypeCompoundCurve }

func (c *CompoundCurve) Envelope() Envelope {
	env := newEnvelope()
	for _, seg := range c.Segments {
		env = env.Union(seg.Envelope())
	}
	return env
}

func (c *CompoundCurve) StartPoint() Point {
	if len(c.Segments) == 0 {
		return Point{}
	}
	return c.Segments[0].StartPoint()
}

func (c *CompoundCurve) EndPoint() Point {
	if len(c.Segments) == 0 {
		return Point{}
	}
	return c.Segments[len(c.Segments)-1].EndPoint()
}

func (c *CompoundCurve) IsClosed() bool {
	if len(c.Segments) == 0 {
		return false
	}
	return pointsEqual(c.StartPoint(), c.EndPoint(), DefaultTolerance)
}

// IsSimple reports false if segment chaining failed during assembly or any
// segment is itself non-simple.
func (c *CompoundCurve) IsSimple() bool {
	if c.nonSimple {
		return false
	}
	for _, seg := range c.Segments {
		if !seg.IsSimple() {
			return false
		}
	}
	return true
}

// Polygon is an area bounded by a closed exterior ring with zero or more
// interior rings. Rings are curves (linear or circular).
type Polygon struct {
	Exterior  Curve
	Interiors []Curve
}

func (p *Polygon) GeometryType() GeometryType { return GeometryTypePolygon }

// Envelope returns the exterior ring's envelope; interior rings lie inside
// it by construction.
func (p *Polygon) Envelope() Envelope {
	if p.Exterior == nil {
		return newEnvelope()
	}
	return p.Exterior.Envelope()
}

// Envelope is an axis-aligned 2D bounding box.
type Envelope struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// newEnvelope returns an empty envelope that any extend/Union call resets.
func newEnvelope() Envelope {
	return Envelope{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
}

// IsEmpty reports whether the envelope contains no points.
func (e Envelope) IsEmpty() bool { return e.MinX > e.MaxX || e.MinY > e.MaxY }

// Union returns the smallest envelope covering both operands.
func (e Envelope) Union(other Envelope) Envelope {
	if e.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return e
	}
	return Envelope{
		MinX: math.Min(e.MinX, other.MinX),
		MinY: math.Min(e.MinY, other.MinY),
		MaxX: math.Max(e.MaxX, other.MaxX),
		MaxY: math.Max(e.MaxY, other.MaxY),
	}
}

// Intersects reports whether the envelopes overlap or touch.
func (e Envelope) Intersects(other Envelope) bool {
	if e.IsEmpty() || other.IsEmpty() {
		return false
	}
	return e.MinX <= other.MaxX && other.MinX <= e.MaxX &&
		e.MinY <= other.MaxY && other.MinY <= e.MaxY
}

func (e *Envelope) extend(p Point) {
	if p.X < e.MinX {
		e.MinX = p.X
	}
	if p.X > e.MaxX {
		e.MaxX = p.X
	}
	if p.Y < e.MinY {
		e.MinY = p.Y
	}
	if p.Y > e.MaxY {
		e.MaxY = p.Y
	}
}

func pointsEnvelope(points []Point) Envelope {
	env := newEnvelope()
	for _, p := range points {
		env.extend(p)
	}
	return env
}

func firstPoint(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	return points[0]
}

func lastPoint(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	return points[len(points)-1]
}

func chainClosed(points []Point) bool {
	if len(points) < 3 {
		return false
	}
	return pointsEqual(points[0], points[len(points)-1], DefaultTolerance)
}

// pointsEqual reports whether two points coincide within tol on each axis.
func pointsEqual(a, b Point, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// strokeArc samples a three-point arc for envelope computation. A triple
// whose start and end coincide is a full circle around the midpoint's
// diametral center. Degenerate (collinear) triples fall back to the chord
// points.
func strokeArc(start, mid, end Point) []Point {
	var center Point
	var radius, a0, sweep float64

	if pointsEqual(start, end, DefaultTolerance) {
		center = Point{X: (start.X + mid.X) / 2, Y: (start.Y + mid.Y) / 2, Z: start.Z}
		radius = pointDistance(start, mid) / 2
		if radius <= DefaultTolerance {
			return []Point{start}
		}
		a0 = math.Atan2(start.Y-center.Y, start.X-center.X)
		sweep = 2 * math.Pi
	} else {
		var ok bool
		center, radius, ok = arcCenter(start, mid, end)
		if !ok {
			return []Point{start, mid, end}
		}
		a0 = math.Atan2(start.Y-center.Y, start.X-center.X)
		a1 := math.Atan2(mid.Y-center.Y, mid.X-center.X)
		a2 := math.Atan2(end.Y-center.Y, end.X-center.X)
		sweep = sweepThrough(a0, a1, a2)
	}

	const steps = 16
	points := make([]Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		angle := a0 + sweep*float64(i)/steps
		points = append(points, Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
			Z: start.Z,
		})
	}
	return points
}

// arcCenter computes the center and radius of the circle through three
// points. ok is false when the points are collinear.
func arcCenter(p1, p2, p3 Point) (center Point, radius float64, ok bool) {
	// Perpendicular bisector intersection in 2D.
	d := 2 * (p1.X*(p2.Y-p3.Y) + p2.X*(p3.Y-p1.Y) + p3.X*(p1.Y-p2.Y))
	if math.Abs(d) < 1e-12 {
		return Point{}, 0, false
	}
	s1 := p1.X*p1.X + p1.Y*p1.Y
	s2 := p2.X*p2.X + p2.Y*p2.Y
	s3 := p3.X*p3.X + p3.Y*p3.Y
	center.X = (s1*(p2.Y-p3.Y) + s2*(p3.Y-p1.Y) + s3*(p1.Y-p2.Y)) / d
	center.Y = (s1*(p3.X-p2.X) + s2*(p1.X-p3.X) + s3*(p2.X-p1.X)) / d
	center.Z = p1.Z
	radius = math.Hypot(p1.X-center.X, p1.Y-center.Y)
	return center, radius, true
}

// sweepThrough returns the signed sweep from angle a0 to a2 passing
// through a1.
func sweepThrough(a0, a1, a2 float64) float64 {
	ccwTo := func(from, to float64) float64 {
		d := math.Mod(to-from, 2*math.Pi)
		if d < 0 {
			d += 2 * math.Pi
		}
		return d
	}
	// Counter-clockwise if a1 lies on the CCW path from a0 to a2.
	if ccwTo(a0, a1) <= ccwTo(a0, a2) {
		return ccwTo(a0, a2)
	}
	return ccwTo(a0, a2) - 2*math.Pi
}
