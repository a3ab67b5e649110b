package dgn

import (
	"errors"
	"fmt"

	"github.com/beetlebugorg/dgn/internal/cad"
)

// Layer capability names for TestCapability.
const (
	CapRandomRead      = "RandomRead"      // Feature lookup by identity
	CapSequentialWrite = "SequentialWrite" // CreateFeature
	CapRandomWrite     = "RandomWrite"     // SetFeature
	CapDeleteFeature   = "DeleteFeature"   // DeleteFeature
	CapFastGetExtent   = "FastGetExtent"   // Extent served from the index
)

// iterState tracks where a layer is in its iteration lifecycle.
type iterState int

const (
	stateFresh     iterState = iota // after construction or ResetReading
	stateIterating                  // after the first NextFeature
	stateExhausted                  // after end-of-data was observed
)

// Layer exposes one model of a design file as a flat feature layer.
//
// A layer owns its traversal cursor and pending queue; it must not be used
// from multiple goroutines concurrently. The mapping from model to layer
// is 1:1 and fixed for the life of the data source.
type Layer struct {
	ds    *DataSource
	model *cad.Model
	walk  *walker
	state iterState

	ignored       map[string]bool
	attrFilter    func(*Feature) bool
	spatialFilter *Envelope
	index         *spatialIndex
}

func newLayer(ds *DataSource, model *cad.Model) *Layer {
	return &Layer{
		ds:      ds,
		model:   model,
		walk:    newWalker(model, ds.tolerance),
		ignored: make(map[string]bool),
	}
}

// Name returns the layer (model) name.
func (l *Layer) Name() string { return l.model.Name() }

// Definition returns the layer's name and attribute schema.
func (l *Layer) Definition() LayerDefinition {
	return LayerDefinition{Name: l.model.Name(), Fields: layerFields()}
}

// ResetReading repositions iteration at the first feature and clears the
// pending queue. Idempotent; valid in any state.
func (l *Layer) ResetReading() {
	l.walk.resetReading()
	l.state = stateFresh
}

// NextFeature returns the next feature in document order, or (nil, nil)
// once the layer is exhausted.
//
// Units whose element class is ignored or that fail the active filters are
// skipped. Trailing hole units are merged into the preceding exterior's
// polygon as interior rings before filtering, so a skipped exterior never
// leaks holes into later features.
func (l *Layer) NextFeature() (*Feature, error) {
	if l.state == stateExhausted {
		return nil, nil
	}
	l.state = stateIterating

	for {
		unit, err := l.walk.nextUnfiltered()
		if errors.Is(err, ErrEndOfData) {
			l.state = stateExhausted
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if unit.isHole {
			// Orphan hole: its exterior produced no geometry. Drop it.
			continue
		}

		feature := translateUnit(unit)
		l.mergeTrailingHoles(feature)

		if l.ignored[feature.class] {
			continue
		}
		if l.spatialFilter != nil && !feature.Geom.Envelope().Intersects(*l.spatialFilter) {
			continue
		}
		if l.attrFilter != nil && !l.attrFilter(feature) {
			continue
		}
		return feature, nil
	}
}

// Feature returns the feature with the given identity, bypassing
// traversal order and the pending queue. Returns *FeatureNotFoundError if
// the identity does not resolve on this layer.
func (l *Layer) Feature(id uint64) (*Feature, error) {
	el, err := l.ds.db.OpenElement(cad.ElementID(id), cad.OpenForRead)
	if err != nil {
		return nil, &FeatureNotFoundError{ID: id}
	}
	if !l.containsElement(cad.ElementID(id)) {
		return nil, &FeatureNotFoundError{ID: id}
	}

	units := processElement(el, l.ds.tolerance)
	var feature *Feature
	for _, unit := range units {
		if feature == nil {
			if unit.isHole {
				continue
			}
			feature = translateUnit(unit)
			continue
		}
		if !unit.isHole {
			break
		}
		mergeHole(feature, unit)
	}
	if feature == nil {
		return nil, &FeatureNotFoundError{ID: id}
	}
	return feature, nil
}

// CreateFeature materializes a feature as a new element tree appended to
// the model and marks the database modified. On success the feature's
// identity is set to the new element's identity.
//
// Returns *UnsupportedGeometryError when the geometry has no element
// equivalent.
func (l *Layer) CreateFeature(f *Feature) error {
	if !l.ds.db.Update() {
		return &ReadOnlyError{Op: "create feature"}
	}
	root, err := createGraphicsElement(f)
	if err != nil {
		return err
	}
	id, err := l.model.Append(root)
	if err != nil {
		return fmt.Errorf("dgn: create feature: %w", err)
	}
	f.id = uint64(id)
	f.class = root.Kind.String()
	l.ds.markModified()
	l.invalidateIndex()
	return nil
}

// SetFeature replaces the element identified by the feature's ID with a
// fresh translation of the feature, keeping the identity and the element's
// position in the model.
func (l *Layer) SetFeature(f *Feature) error {
	if !l.ds.db.Update() {
		return &ReadOnlyError{Op: "set feature"}
	}
	if f.id == 0 {
		return &FeatureNotFoundError{ID: 0}
	}
	root, err := createGraphicsElement(f)
	if err != nil {
		return err
	}
	if err := l.ds.db.ReplaceElement(cad.ElementID(f.id), root); err != nil {
		var notFound *cad.ElementNotFoundError
		if errors.As(err, &notFound) {
			return &FeatureNotFoundError{ID: f.id}
		}
		return fmt.Errorf("dgn: set feature: %w", err)
	}
	f.class = root.Kind.String()
	l.ds.markModified()
	l.invalidateIndex()
	return nil
}

// DeleteFeature marks the element with the given identity deleted.
// Returns *FeatureNotFoundError if the identity does not resolve on this
// layer.
func (l *Layer) DeleteFeature(id uint64) error {
	if !l.ds.db.Update() {
		return &ReadOnlyError{Op: "delete feature"}
	}
	if !l.containsElement(cad.ElementID(id)) {
		return &FeatureNotFoundError{ID: id}
	}
	if err := l.ds.db.DeleteElement(cad.ElementID(id)); err != nil {
		var notFound *cad.ElementNotFoundError
		if errors.As(err, &notFound) {
			return &FeatureNotFoundError{ID: id}
		}
		return fmt.Errorf("dgn: delete feature: %w", err)
	}
	l.ds.markModified()
	l.invalidateIndex()
	return nil
}

// Extent returns the bounding envelope of the layer's features, computed
// by a full scan on first use and cached until the layer is mutated.
// force rebuilds the cache unconditionally.
func (l *Layer) Extent(force bool) Envelope {
	if l.index == nil || force {
		l.index = buildSpatialIndex(l.model, l.ds.tolerance)
	}
	return l.index.extent
}

// SetSpatialFilter restricts iteration to features whose envelopes
// intersect env. A nil env clears the filter. The filter consults the
// layer's spatial index to skip whole elements before expansion.
func (l *Layer) SetSpatialFilter(env *Envelope) {
	l.spatialFilter = env
	l.applySpatialFilter()
}

// SetAttributeFilter restricts iteration to features accepted by fn.
// A nil fn clears the filter.
func (l *Layer) SetAttributeFilter(fn func(*Feature) bool) {
	l.attrFilter = fn
}

// SetIgnoredFeatureClasses sets the element classes (for example "Text")
// whose features are skipped during iteration.
func (l *Layer) SetIgnoredFeatureClasses(classes []string) {
	l.ignored = make(map[string]bool, len(classes))
	for _, class := range classes {
		l.ignored[class] = true
	}
}

// TestCapability reports whether the layer supports the named capability.
func (l *Layer) TestCapability(name string) bool {
	switch name {
	case CapRandomRead:
		return true
	case CapSequentialWrite, CapRandomWrite, CapDeleteFeature:
		return l.ds.db.Update()
	case CapFastGetExtent:
		return l.index != nil
	default:
		return false
	}
}

// mergeTrailingHoles folds pending hole units into the feature's polygon.
func (l *Layer) mergeTrailingHoles(feature *Feature) {
	for {
		unit, ok := l.walk.nextIfHole()
		if !ok {
			return
		}
		mergeHole(feature, unit)
	}
}

// mergeHole adds a hole unit's ring to the feature's polygon geometry.
// Hole units reaching a non-polygon feature are dropped.
func mergeHole(feature *Feature, unit flatUnit) {
	poly, ok := feature.Geom.(*Polygon)
	if !ok {
		return
	}
	holePoly, ok := unit.geom.(*Polygon)
	if !ok || holePoly.Exterior == nil {
		return
	}
	poly.Interiors = append(poly.Interiors, holePoly.Exterior)
}

// translateUnit wraps one flattened unit as a feature record. The feature
// identity derives from the underlying element.
func translateUnit(unit flatUnit) *Feature {
	el := unit.elem
	feature := &Feature{
		Geom:         unit.geom,
		Level:        el.Level,
		GraphicGroup: el.GraphicGroup,
		ColorIndex:   el.ColorIndex,
		Weight:       el.Weight,
		LineStyle:    el.LineStyle,
		id:           uint64(el.ID),
		class:        el.Kind.String(),
	}
	if el.Fill != nil {
		feature.Filled = true
		feature.FillColor = el.Fill.ColorIndex
	}
	if el.Text != nil {
		feature.Text = el.Text.Value
		feature.FontID = el.Text.FontID
		feature.TextHeight = el.Text.Height
		feature.TextRotation = el.Text.Rotation
	}
	return feature
}

// createGraphicsElement builds the element tree equivalent of a feature's
// geometry, including hole children for polygon interiors.
func createGraphicsElement(f *Feature) (*cad.Element, error) {
	if f.Geom == nil {
		return nil, &UnsupportedGeometryError{Reason: "feature has no geometry"}
	}
	style := featureStyle(f)

	switch geom := f.Geom.(type) {
	case Point:
		if f.Text != "" {
			return translateLabel(geom, f), nil
		}
		// A bare point has no point element class; store a degenerate line.
		pt := cad.Point3{X: geom.X, Y: geom.Y, Z: geom.Z}
		return style.apply(&cad.Element{
			Kind:   cad.KindLine,
			Points: []cad.Point3{pt, pt},
		}), nil

	case *LineString, *CircularString, *CompoundCurve:
		curve := geom.(Curve)
		if curve.IsClosed() {
			el, err := buildShapeElement(curve, false, style)
			if err != nil {
				return nil, err
			}
			return el, nil
		}
		return createOpenCurveElement(curve, style)

	case *Polygon:
		if geom.Exterior == nil {
			return nil, &UnsupportedGeometryError{
				Type:   GeometryTypePolygon,
				Reason: "polygon without exterior ring",
			}
		}
		exterior, err := buildShapeElement(geom.Exterior, false, style)
		if err != nil {
			return nil, err
		}
		if len(geom.Interiors) > 0 {
			exterior = promoteToComplexShape(exterior, style)
			for _, ring := range geom.Interiors {
				hole, err := buildShapeElement(ring, true, style)
				if err != nil {
					return nil, err
				}
				exterior.Children = append(exterior.Children, hole)
			}
		}
		return exterior, nil

	default:
		return nil, &UnsupportedGeometryError{
			Type:   f.Geom.GeometryType(),
			Reason: "no element equivalent",
		}
	}
}

// createOpenCurveElement materializes an open curve: a single primitive
// becomes a leaf element, several become a complex chain.
func createOpenCurveElement(curve Curve, style elementStyle) (*cad.Element, error) {
	prims, err := DecomposeCurve(curve)
	if err != nil {
		return nil, err
	}
	if len(prims) == 1 {
		return primitiveElement(prims[0], style)
	}
	chain := style.apply(&cad.Element{Kind: cad.KindComplexString})
	for _, prim := range prims {
		child, err := primitiveElement(prim, style)
		if err != nil {
			return nil, err
		}
		chain.Children = append(chain.Children, child)
	}
	return chain, nil
}

// promoteToComplexShape rewrites a leaf shape as a complex shape so hole
// children can nest under it. Complex shapes pass through unchanged.
func promoteToComplexShape(el *cad.Element, style elementStyle) *cad.Element {
	if el.Kind == cad.KindComplexShape {
		return el
	}
	ring := style.apply(&cad.Element{
		Kind:   cad.KindLineString,
		Points: el.Points,
	})
	shape := style.apply(&cad.Element{
		Kind:     cad.KindComplexShape,
		Children: []*cad.Element{ring},
	})
	shape.Fill = el.Fill
	return shape
}

// containsElement reports whether id resolves to an element of this
// layer's model, either top-level or nested in a top-level element's tree.
func (l *Layer) containsElement(id cad.ElementID) bool {
	if l.model.Contains(id) {
		return true
	}
	for it := l.model.Iterator(); !it.Done(); it.Step() {
		el, err := l.ds.db.OpenElement(it.Item(), cad.OpenForRead)
		if err != nil {
			continue
		}
		stack := []*cad.Element{el}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if current.ID == id && !current.Deleted {
				return true
			}
			stack = append(stack, current.Children...)
		}
	}
	return false
}

// applySpatialFilter precomputes the candidate element set for the active
// spatial filter and installs the element skip hook.
func (l *Layer) applySpatialFilter() {
	if l.spatialFilter == nil {
		l.walk.skipElement = nil
		return
	}
	if l.index == nil {
		l.index = buildSpatialIndex(l.model, l.ds.tolerance)
	}
	candidates := l.index.candidates(*l.spatialFilter)
	l.walk.skipElement = func(id cad.ElementID) bool {
		return !candidates[id]
	}
}

// invalidateIndex drops the cached index and extent after a mutation and
// recomputes the spatial filter's candidate set if one is active.
func (l *Layer) invalidateIndex() {
	l.index = nil
	if l.spatialFilter != nil {
		l.applySpatialFilter()
	}
}
