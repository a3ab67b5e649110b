package dgn

import (
	"github.com/beetlebugorg/dgn/internal/cad"
)

// flatUnit is the ephemeral bridge between the element tree and the flat
// feature model: one leaf geometry plus its hole classification and the
// element it came from.
//
// A hole unit always directly follows the exterior unit it belongs to;
// consumers merge trailing hole units into the preceding exterior's
// geometry.
type flatUnit struct {
	geom   Geometry
	isHole bool
	elem   *cad.Element
}

// walker flattens a model's element tree into a sequence of flatUnits.
//
// One traversal step over a top-level element can yield several units
// (a cell's members, a polygon and its holes); they are buffered in a
// pending queue, drained before the cursor advances.
type walker struct {
	model *cad.Model
	it    *cad.Iterator
	tol   float64

	queue []flatUnit
	qpos  int

	// skipElement, when set, drops whole top-level elements before
	// expansion. Used by the layer's spatial index.
	skipElement func(cad.ElementID) bool
}

func newWalker(model *cad.Model, tol float64) *walker {
	return &walker{model: model, it: model.Iterator(), tol: tol}
}

// resetReading repositions the cursor at the first top-level element and
// clears the pending queue. Idempotent.
func (w *walker) resetReading() {
	w.it.Reset()
	w.queue = nil
	w.qpos = 0
}

// nextUnfiltered returns the next flattened unit in document order: the
// pending queue first, else the cursor advances one top-level step and the
// queue is refilled. Returns ErrEndOfData when both are exhausted.
func (w *walker) nextUnfiltered() (flatUnit, error) {
	for {
		if w.qpos < len(w.queue) {
			unit := w.queue[w.qpos]
			w.qpos++
			return unit, nil
		}
		if w.it.Done() {
			return flatUnit{}, ErrEndOfData
		}
		id := w.it.Item()
		w.it.Step()
		if w.skipElement != nil && w.skipElement(id) {
			continue
		}
		el, err := w.model.Database().OpenElement(id, cad.OpenForRead)
		if err != nil {
			continue // deleted between cursor positioning and expansion
		}
		w.queue = processElement(el, w.tol)
		w.qpos = 0
	}
}

// nextIfHole consumes and returns the next pending unit only if it is a
// hole. Exteriors and queue exhaustion leave the queue untouched.
func (w *walker) nextIfHole() (flatUnit, bool) {
	if w.qpos < len(w.queue) && w.queue[w.qpos].isHole {
		unit := w.queue[w.qpos]
		w.qpos++
		return unit, true
	}
	return flatUnit{}, false
}

// walkFrame is one explicit traversal frame: the element, its nesting
// level, and whether the enclosing complex element is a closed fillable
// shape (the hole context).
type walkFrame struct {
	el          *cad.Element
	level       int
	holeContext bool
}

// processElement flattens one element tree into units in document order.
//
// The traversal is an explicit stack, not call recursion, so pathological
// nesting depth cannot grow the goroutine stack. Classification:
//
//   - cell children are independent exterior units at any depth, since a
//     cell groups elements without being a shape itself;
//   - a closed shape nested under a closed fillable shape is that shape's
//     hole;
//   - leaf curve children of a complex element are not units at all, they
//     chain into the complex element's single assembled curve.
func processElement(root *cad.Element, tol float64) []flatUnit {
	var units []flatUnit
	stack := []walkFrame{{el: root, level: 0, holeContext: false}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		el := frame.el
		if el.Deleted {
			continue
		}

		switch el.Kind {
		case cad.KindCell:
			// Grouped cluster: members flatten independently, never as
			// holes. Reverse push keeps document order.
			for i := len(el.Children) - 1; i >= 0; i-- {
				stack = append(stack, walkFrame{
					el:    el.Children[i],
					level: frame.level + 1,
				})
			}

		case cad.KindComplexString:
			if curve := assembleChildren(el, tol); curve != nil {
				units = append(units, flatUnit{geom: curve, elem: el})
			}
			for i := len(el.Children) - 1; i >= 0; i-- {
				if el.Children[i].Complex() {
					stack = append(stack, walkFrame{
						el:    el.Children[i],
						level: frame.level + 1,
					})
				}
			}

		case cad.KindComplexShape:
			if ring := assembleChildren(el, tol); ring != nil {
				units = append(units, flatUnit{
					geom:   &Polygon{Exterior: ring},
					isHole: frame.holeContext,
					elem:   el,
				})
			}
			// Closed children nested under a closed fillable shape are its
			// holes.
			for i := len(el.Children) - 1; i >= 0; i-- {
				child := el.Children[i]
				if child.Complex() || child.Kind == cad.KindShape {
					stack = append(stack, walkFrame{
						el:          child,
						level:       frame.level + 1,
						holeContext: true,
					})
				}
			}

		case cad.KindShape:
			if len(el.Points) >= 3 {
				ring := &LineString{Points: closeChain(toPoints(el.Points))}
				units = append(units, flatUnit{
					geom:   &Polygon{Exterior: ring},
					isHole: frame.holeContext,
					elem:   el,
				})
			}

		case cad.KindLine, cad.KindLineString:
			if len(el.Points) >= 2 {
				units = append(units, flatUnit{
					geom: &LineString{Points: toPoints(el.Points)},
					elem: el,
				})
			}

		case cad.KindArc:
			if el.Arc != nil {
				start, mid, end := arcTriple(el.Arc)
				units = append(units, flatUnit{
					geom: &CircularString{Points: []Point{start, mid, end}},
					elem: el,
				})
			}

		case cad.KindText:
			if el.Text != nil {
				origin := el.Text.Origin
				units = append(units, flatUnit{
					geom: Point{X: origin.X, Y: origin.Y, Z: origin.Z},
					elem: el,
				})
			}
		}
	}
	return units
}

// assembleChildren chains a complex element's leaf curve children into one
// curve. Closed and complex children are not segments; they flatten as
// units of their own. Returns nil when no curve children exist.
func assembleChildren(el *cad.Element, tol float64) Curve {
	var prims []Primitive
	for _, child := range el.Children {
		if child.Deleted {
			continue
		}
		prims = append(prims, elementPrimitives(child)...)
	}
	if len(prims) == 0 {
		return nil
	}
	curve, err := AssembleCurve(prims, tol)
	if err != nil {
		return nil
	}
	return curve
}
