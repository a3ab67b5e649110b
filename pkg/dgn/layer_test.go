package dgn

import (
	"errors"
	"math"
	"testing"

	"github.com/beetlebugorg/dgn/internal/cad"
)

func openLine(x0, y0, x1, y1 float64) *LineString {
	return &LineString{Points: []Point{{X: x0, Y: y0}, {X: x1, Y: y1}}}
}

func squarePolygon(x, y, size float64) *Polygon {
	return &Polygon{Exterior: &LineString{Points: []Point{
		{X: x, Y: y},
		{X: x + size, Y: y},
		{X: x + size, Y: y + size},
		{X: x, Y: y + size},
		{X: x, Y: y},
	}}}
}

func mustCreate(t *testing.T, l *Layer, f *Feature) *Feature {
	t.Helper()
	if err := l.CreateFeature(f); err != nil {
		t.Fatalf("CreateFeature failed: %v", err)
	}
	return f
}

func drain(t *testing.T, l *Layer) []*Feature {
	t.Helper()
	var features []*Feature
	for {
		f, err := l.NextFeature()
		if err != nil {
			t.Fatalf("NextFeature failed: %v", err)
		}
		if f == nil {
			return features
		}
		features = append(features, f)
	}
}

// TestLayerIterationLifecycle tests the fresh/iterating/exhausted states
// and the (nil, nil) end-of-data convention.
func TestLayerIterationLifecycle(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	mustCreate(t, layer, &Feature{Geom: openLine(0, 0, 1, 0)})
	mustCreate(t, layer, &Feature{Geom: openLine(2, 0, 3, 0)})

	features := drain(t, layer)
	if len(features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(features))
	}

	// Exhausted stays exhausted without a reset.
	for i := 0; i < 3; i++ {
		f, err := layer.NextFeature()
		if err != nil {
			t.Fatalf("NextFeature after exhaustion failed: %v", err)
		}
		if f != nil {
			t.Fatal("expected nil feature after exhaustion")
		}
	}

	layer.ResetReading()
	if got := drain(t, layer); len(got) != 2 {
		t.Errorf("after reset: expected 2 features, got %d", len(got))
	}

	// Reset is idempotent, including mid-iteration.
	layer.ResetReading()
	layer.ResetReading()
	if _, err := layer.NextFeature(); err != nil {
		t.Fatalf("NextFeature failed: %v", err)
	}
	layer.ResetReading()
	if got := drain(t, layer); len(got) != 2 {
		t.Errorf("after mid-iteration reset: expected 2 features, got %d", len(got))
	}
}

// TestLayerHoleMerging tests that a square-in-square element reads back as
// one polygon feature with one interior ring.
func TestLayerHoleMerging(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	outer := &cad.Element{
		Kind: cad.KindComplexShape,
		Fill: &cad.FillData{ColorIndex: 3},
		Children: []*cad.Element{
			{Kind: cad.KindLineString, Points: squareRing(0, 0, 10)},
			shapeElement(squareRing(3, 3, 2)),
		},
	}
	if _, err := layer.model.Append(outer); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	features := drain(t, layer)
	if len(features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(features))
	}
	poly, ok := features[0].Geom.(*Polygon)
	if !ok {
		t.Fatalf("expected *Polygon, got %T", features[0].Geom)
	}
	if len(poly.Interiors) != 1 {
		t.Errorf("expected 1 interior ring, got %d", len(poly.Interiors))
	}
	if !features[0].Filled || features[0].FillColor != 3 {
		t.Errorf("fill lost: filled=%v color=%d", features[0].Filled, features[0].FillColor)
	}
	if features[0].Class() != "ComplexShape" {
		t.Errorf("expected class ComplexShape, got %q", features[0].Class())
	}
}

// TestLayerHolesDoNotLeak tests that holes attach to their own exterior,
// not to a following sibling.
func TestLayerHolesDoNotLeak(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	withHole := &cad.Element{
		Kind: cad.KindComplexShape,
		Children: []*cad.Element{
			{Kind: cad.KindLineString, Points: squareRing(0, 0, 10)},
			shapeElement(squareRing(3, 3, 2)),
		},
	}
	plain := shapeElement(squareRing(100, 100, 5))
	for _, el := range []*cad.Element{withHole, plain} {
		if _, err := layer.model.Append(el); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	features := drain(t, layer)
	if len(features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(features))
	}
	first := features[0].Geom.(*Polygon)
	second := features[1].Geom.(*Polygon)
	if len(first.Interiors) != 1 {
		t.Errorf("first feature: expected 1 interior, got %d", len(first.Interiors))
	}
	if len(second.Interiors) != 0 {
		t.Errorf("second feature: expected no interiors, got %d", len(second.Interiors))
	}
}

// TestLayerNonSimpleChain tests that a complex chain whose segments do not
// quite meet still reads back as one feature, flagged non-simple.
func TestLayerNonSimpleChain(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	// Arc starts 0.1 units past the line's end point.
	chain := &cad.Element{
		Kind: cad.KindComplexString,
		Children: []*cad.Element{
			lineElement(cad.Point3{X: 0, Y: 0}, cad.Point3{X: 2, Y: 0}),
			{Kind: cad.KindArc, Arc: &cad.ArcData{
				Center: cad.Point3{X: 3.1, Y: 0}, Radius: 1, StartAngle: 180, SweepAngle: -180,
			}},
		},
	}
	if _, err := layer.model.Append(chain); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	features := drain(t, layer)
	if len(features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(features))
	}
	curve, ok := features[0].Geom.(Curve)
	if !ok {
		t.Fatalf("expected a curve, got %T", features[0].Geom)
	}
	if curve.IsSimple() {
		t.Error("broken chain must be flagged non-simple")
	}
}

// TestLayerCircleWriteBack tests that a full-circle arc element survives
// the read-modify-write cycle instead of failing on decomposition.
func TestLayerCircleWriteBack(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	circle := &cad.Element{Kind: cad.KindArc, Arc: &cad.ArcData{
		Center: cad.Point3{X: 10, Y: 10}, Radius: 4, StartAngle: 30, SweepAngle: 360,
	}}
	if _, err := layer.model.Append(circle); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	features := drain(t, layer)
	if len(features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(features))
	}
	curve, ok := features[0].Geom.(Curve)
	if !ok || !curve.IsClosed() {
		t.Fatalf("expected a closed curve, got %T", features[0].Geom)
	}

	if err := layer.SetFeature(features[0]); err != nil {
		t.Fatalf("SetFeature failed: %v", err)
	}
	got, err := layer.Feature(features[0].ID())
	if err != nil {
		t.Fatalf("Feature after write back failed: %v", err)
	}
	env := got.Geom.Envelope()
	expected := Envelope{MinX: 6, MinY: 6, MaxX: 14, MaxY: 14}
	// Arc envelopes are sample-based, so allow a coarse tolerance.
	if math.Abs(env.MinX-expected.MinX) > 0.1 || math.Abs(env.MaxX-expected.MaxX) > 0.1 ||
		math.Abs(env.MinY-expected.MinY) > 0.1 || math.Abs(env.MaxY-expected.MaxY) > 0.1 {
		t.Errorf("circle extent drifted: expected %v, got %v", expected, env)
	}
}

// TestLayerOrphanHoleDropped tests that a hole whose exterior produced no
// geometry does not surface as a feature.
func TestLayerOrphanHoleDropped(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	// A complex shape with no curve children has no exterior ring; its
	// nested shape is an orphan hole.
	broken := &cad.Element{
		Kind: cad.KindComplexShape,
		Children: []*cad.Element{
			shapeElement(squareRing(3, 3, 2)),
		},
	}
	if _, err := layer.model.Append(broken); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if features := drain(t, layer); len(features) != 0 {
		t.Errorf("expected no features, got %d", len(features))
	}
}

// TestLayerFeatureByID tests random read against traversal state.
func TestLayerFeatureByID(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	created := mustCreate(t, layer, &Feature{Geom: openLine(0, 0, 5, 5), Level: 7})
	if created.ID() == 0 {
		t.Fatal("CreateFeature did not assign an identity")
	}

	got, err := layer.Feature(created.ID())
	if err != nil {
		t.Fatalf("Feature failed: %v", err)
	}
	if got.ID() != created.ID() {
		t.Errorf("identity changed: expected %d, got %d", created.ID(), got.ID())
	}
	if got.Level != 7 {
		t.Errorf("expected level 7, got %d", got.Level)
	}

	// Random read must not disturb sequential iteration.
	first, err := layer.NextFeature()
	if err != nil || first == nil {
		t.Fatalf("NextFeature failed: %v %v", first, err)
	}
	if _, err := layer.Feature(created.ID()); err != nil {
		t.Fatalf("Feature mid-iteration failed: %v", err)
	}
	if f, err := layer.NextFeature(); err != nil || f != nil {
		t.Errorf("iteration disturbed by random read: %v %v", f, err)
	}

	var notFound *FeatureNotFoundError
	if _, err := layer.Feature(9999); !errors.As(err, &notFound) {
		t.Errorf("expected *FeatureNotFoundError, got %v", err)
	}
}

// TestLayerCreateFeatureClasses tests the element class chosen per created
// geometry.
func TestLayerCreateFeatureClasses(t *testing.T) {
	tests := []struct {
		name     string
		feature  *Feature
		expected string
	}{
		{
			name:     "point without text",
			feature:  &Feature{Geom: Point{X: 1, Y: 2}},
			expected: "Line",
		},
		{
			name:     "labeled point",
			feature:  &Feature{Geom: Point{X: 1, Y: 2}, Text: "pump 4", TextHeight: 2},
			expected: "Text",
		},
		{
			name:     "open line string",
			feature:  &Feature{Geom: &LineString{Points: []Point{{0, 0, 0}, {1, 0, 0}, {2, 1, 0}}}},
			expected: "LineString",
		},
		{
			name:     "two point line",
			feature:  &Feature{Geom: openLine(0, 0, 4, 4)},
			expected: "Line",
		},
		{
			name: "closed ring",
			feature: &Feature{Geom: &LineString{Points: []Point{
				{0, 0, 0}, {4, 0, 0}, {4, 4, 0}, {0, 0, 0},
			}}},
			expected: "Shape",
		},
		{
			name: "single arc",
			feature: &Feature{Geom: &CircularString{Points: []Point{
				{0, 0, 0}, {1, 1, 0}, {2, 0, 0},
			}}},
			expected: "Arc",
		},
		{
			name: "compound curve",
			feature: &Feature{Geom: &CompoundCurve{Segments: []Curve{
				&LineString{Points: []Point{{0, 0, 0}, {2, 0, 0}}},
				&CircularString{Points: []Point{{2, 0, 0}, {3, 1, 0}, {4, 0, 0}}},
			}}},
			expected: "ComplexString",
		},
		{
			name:     "polygon",
			feature:  &Feature{Geom: squarePolygon(0, 0, 5)},
			expected: "Shape",
		},
		{
			name: "polygon with hole",
			feature: &Feature{Geom: &Polygon{
				Exterior: squarePolygon(0, 0, 10).Exterior,
				Interiors: []Curve{
					squarePolygon(3, 3, 2).Exterior,
				},
			}},
			expected: "ComplexShape",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := createTestSource(t)
			layer := ds.Layer(0)

			mustCreate(t, layer, tt.feature)
			if tt.feature.Class() != tt.expected {
				t.Errorf("expected class %q, got %q", tt.expected, tt.feature.Class())
			}

			got, err := layer.Feature(tt.feature.ID())
			if err != nil {
				t.Fatalf("Feature failed: %v", err)
			}
			if got.Class() != tt.expected {
				t.Errorf("read back class %q, expected %q", got.Class(), tt.expected)
			}
		})
	}
}

// TestLayerCreateFeatureRoundTrip tests that created geometry and style
// read back equivalent through a full create-then-iterate cycle.
func TestLayerCreateFeatureRoundTrip(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	original := &Feature{
		Geom: &Polygon{
			Exterior:  squarePolygon(0, 0, 10).Exterior,
			Interiors: []Curve{squarePolygon(2, 2, 3).Exterior},
		},
		Level:      12,
		ColorIndex: 4,
		Weight:     2,
		LineStyle:  1,
		Filled:     true,
		FillColor:  9,
	}
	mustCreate(t, layer, original)

	features := drain(t, layer)
	if len(features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(features))
	}
	got := features[0]
	if got.ID() != original.ID() {
		t.Errorf("identity: expected %d, got %d", original.ID(), got.ID())
	}
	poly, ok := got.Geom.(*Polygon)
	if !ok {
		t.Fatalf("expected *Polygon, got %T", got.Geom)
	}
	if len(poly.Interiors) != 1 {
		t.Errorf("expected 1 interior, got %d", len(poly.Interiors))
	}
	if got.Level != 12 || got.ColorIndex != 4 || got.Weight != 2 || got.LineStyle != 1 {
		t.Errorf("style lost: %+v", got)
	}
	if !got.Filled || got.FillColor != 9 {
		t.Errorf("fill lost: filled=%v color=%d", got.Filled, got.FillColor)
	}
}

// TestLayerCreateFeatureUnsupported tests rejection of geometry with no
// element equivalent.
func TestLayerCreateFeatureUnsupported(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	var unsupported *UnsupportedGeometryError
	if err := layer.CreateFeature(&Feature{}); !errors.As(err, &unsupported) {
		t.Errorf("nil geometry: expected *UnsupportedGeometryError, got %v", err)
	}
	if err := layer.CreateFeature(&Feature{Geom: &Polygon{}}); !errors.As(err, &unsupported) {
		t.Errorf("exterior-less polygon: expected *UnsupportedGeometryError, got %v", err)
	}
}

// TestLayerSetFeature tests in-place replacement keeping identity.
func TestLayerSetFeature(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	f := mustCreate(t, layer, &Feature{Geom: openLine(0, 0, 1, 0), Level: 3})
	id := f.ID()

	f.Geom = squarePolygon(0, 0, 6)
	f.Level = 8
	if err := layer.SetFeature(f); err != nil {
		t.Fatalf("SetFeature failed: %v", err)
	}
	if f.ID() != id {
		t.Errorf("identity changed on SetFeature: %d -> %d", id, f.ID())
	}

	got, err := layer.Feature(id)
	if err != nil {
		t.Fatalf("Feature failed: %v", err)
	}
	if got.Geom.GeometryType() != GeometryTypePolygon {
		t.Errorf("expected replaced geometry, got %v", got.Geom.GeometryType())
	}
	if got.Level != 8 {
		t.Errorf("expected level 8, got %d", got.Level)
	}

	// A feature never written has no identity to replace.
	err = layer.SetFeature(&Feature{Geom: openLine(0, 0, 1, 1)})
	var notFound *FeatureNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected *FeatureNotFoundError, got %v", err)
	}
}

// TestLayerDeleteFeature tests identity behavior across deletion.
func TestLayerDeleteFeature(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	f := mustCreate(t, layer, &Feature{Geom: openLine(0, 0, 1, 0)})
	keep := mustCreate(t, layer, &Feature{Geom: openLine(5, 0, 6, 0)})

	if err := layer.DeleteFeature(f.ID()); err != nil {
		t.Fatalf("DeleteFeature failed: %v", err)
	}

	var notFound *FeatureNotFoundError
	if _, err := layer.Feature(f.ID()); !errors.As(err, &notFound) {
		t.Errorf("deleted identity must not resolve, got %v", err)
	}
	if err := layer.DeleteFeature(f.ID()); !errors.As(err, &notFound) {
		t.Errorf("double delete: expected *FeatureNotFoundError, got %v", err)
	}

	layer.ResetReading()
	features := drain(t, layer)
	if len(features) != 1 || features[0].ID() != keep.ID() {
		t.Errorf("expected only the surviving feature, got %d features", len(features))
	}
}

// TestLayerIgnoredClasses tests class-based skipping during iteration.
func TestLayerIgnoredClasses(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	mustCreate(t, layer, &Feature{Geom: openLine(0, 0, 1, 0)})
	mustCreate(t, layer, &Feature{Geom: Point{X: 2, Y: 2}, Text: "note"})
	mustCreate(t, layer, &Feature{Geom: openLine(3, 0, 4, 0)})

	layer.SetIgnoredFeatureClasses([]string{"Text"})
	features := drain(t, layer)
	if len(features) != 2 {
		t.Fatalf("expected 2 features with Text ignored, got %d", len(features))
	}
	for _, f := range features {
		if f.Class() == "Text" {
			t.Error("ignored class leaked through")
		}
	}

	layer.SetIgnoredFeatureClasses(nil)
	layer.ResetReading()
	if got := drain(t, layer); len(got) != 3 {
		t.Errorf("after clearing: expected 3 features, got %d", len(got))
	}
}

// TestLayerAttributeFilter tests predicate-based skipping.
func TestLayerAttributeFilter(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	mustCreate(t, layer, &Feature{Geom: openLine(0, 0, 1, 0), Level: 1})
	mustCreate(t, layer, &Feature{Geom: openLine(2, 0, 3, 0), Level: 5})
	mustCreate(t, layer, &Feature{Geom: openLine(4, 0, 5, 0), Level: 5})

	layer.SetAttributeFilter(func(f *Feature) bool { return f.Level == 5 })
	if got := drain(t, layer); len(got) != 2 {
		t.Errorf("expected 2 level-5 features, got %d", len(got))
	}

	layer.SetAttributeFilter(nil)
	layer.ResetReading()
	if got := drain(t, layer); len(got) != 3 {
		t.Errorf("after clearing: expected 3 features, got %d", len(got))
	}
}

// TestLayerSpatialFilter tests envelope-based skipping and filter clearing.
func TestLayerSpatialFilter(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	near := mustCreate(t, layer, &Feature{Geom: openLine(0, 0, 1, 1)})
	mustCreate(t, layer, &Feature{Geom: openLine(100, 100, 101, 101)})

	layer.SetSpatialFilter(&Envelope{MinX: -1, MinY: -1, MaxX: 2, MaxY: 2})
	layer.ResetReading()
	features := drain(t, layer)
	if len(features) != 1 || features[0].ID() != near.ID() {
		t.Fatalf("expected only the near feature, got %d features", len(features))
	}

	layer.SetSpatialFilter(nil)
	layer.ResetReading()
	if got := drain(t, layer); len(got) != 2 {
		t.Errorf("after clearing: expected 2 features, got %d", len(got))
	}
}

// TestLayerExtent tests extent computation and cache invalidation on
// mutation.
func TestLayerExtent(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	if !layer.Extent(false).IsEmpty() {
		t.Error("empty layer must have an empty extent")
	}

	mustCreate(t, layer, &Feature{Geom: openLine(0, 0, 10, 5)})
	env := layer.Extent(false)
	expected := Envelope{MinX: 0, MinY: 0, MaxX: 10, MaxY: 5}
	if env != expected {
		t.Errorf("expected %v, got %v", expected, env)
	}

	mustCreate(t, layer, &Feature{Geom: openLine(-5, -5, 0, 0)})
	env = layer.Extent(false)
	expected = Envelope{MinX: -5, MinY: -5, MaxX: 10, MaxY: 5}
	if env != expected {
		t.Errorf("after mutation: expected %v, got %v", expected, env)
	}
}

// TestLayerCapabilities tests capability reporting in update and read-only
// mode.
func TestLayerCapabilities(t *testing.T) {
	ds := createTestSource(t)
	layer := ds.Layer(0)

	if !layer.TestCapability(CapRandomRead) {
		t.Error("RandomRead must always hold")
	}
	for _, name := range []string{CapSequentialWrite, CapRandomWrite, CapDeleteFeature} {
		if !layer.TestCapability(name) {
			t.Errorf("%s must hold in update mode", name)
		}
	}
	if layer.TestCapability(CapFastGetExtent) {
		t.Error("FastGetExtent must not hold before the index is built")
	}
	layer.Extent(false)
	if !layer.TestCapability(CapFastGetExtent) {
		t.Error("FastGetExtent must hold once the index is built")
	}
	if layer.TestCapability("Nonsense") {
		t.Error("unknown capability must not hold")
	}
}

// TestLayerReadOnlyMutation tests that mutation is rejected on a read-only
// data source.
func TestLayerReadOnlyMutation(t *testing.T) {
	ds := createTestSource(t)
	mustCreate(t, ds.Layer(0), &Feature{Geom: openLine(0, 0, 1, 0)})
	path := ds.db.Path()
	if err := ds.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	readonly, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer readonly.Close()
	layer := readonly.Layer(0)

	var roErr *ReadOnlyError
	if err := layer.CreateFeature(&Feature{Geom: openLine(0, 0, 1, 1)}); !errors.As(err, &roErr) {
		t.Errorf("CreateFeature: expected *ReadOnlyError, got %v", err)
	}
	if err := layer.DeleteFeature(1); !errors.As(err, &roErr) {
		t.Errorf("DeleteFeature: expected *ReadOnlyError, got %v", err)
	}
	for _, name := range []string{CapSequentialWrite, CapRandomWrite, CapDeleteFeature} {
		if layer.TestCapability(name) {
			t.Errorf("%s must not hold read-only", name)
		}
	}
}

// TestLayerDefinition tests the exposed schema.
func TestLayerDefinition(t *testing.T) {
	ds := createTestSource(t)
	def := ds.Layer(0).Definition()
	if def.Name != ds.Layer(0).Name() {
		t.Errorf("definition name %q does not match layer name %q", def.Name, ds.Layer(0).Name())
	}
	want := map[string]bool{
		FieldClass: true, FieldLevel: true, FieldText: true,
		FieldColorIndex: true, FieldWeight: true, FieldLineStyle: true,
		FieldGraphicGroup: true,
	}
	if len(def.Fields) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(def.Fields))
	}
	for _, name := range def.Fields {
		if !want[name] {
			t.Errorf("unexpected field %q", name)
		}
	}
}
