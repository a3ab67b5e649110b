package dgn

import (
	"github.com/dhconnelly/rtreego"

	"github.com/beetlebugorg/dgn/internal/cad"
)

// spatialIndex provides O(log n) envelope queries over a model's top-level
// elements, backing the layer's spatial filter and extent computation.
type spatialIndex struct {
	tree   *rtreego.Rtree
	extent Envelope
}

// indexedElement wraps one top-level element for R-tree storage.
type indexedElement struct {
	id  cad.ElementID
	env Envelope
}

// Bounds implements rtreego.Spatial.
func (e *indexedElement) Bounds() rtreego.Rect {
	point := rtreego.Point{e.env.MinX, e.env.MinY}

	// R-tree rects need non-zero extents; pad degenerate (point or
	// axis-parallel) envelopes.
	const epsilon = 1e-9
	width := e.env.MaxX - e.env.MinX
	height := e.env.MaxY - e.env.MinY
	if width < epsilon {
		width = epsilon
	}
	if height < epsilon {
		height = epsilon
	}

	rect, _ := rtreego.NewRect(point, []float64{width, height})
	return rect
}

// buildSpatialIndex scans a model once, flattening each top-level element
// to compute its envelope, and loads the results into an R-tree.
func buildSpatialIndex(model *cad.Model, tol float64) *spatialIndex {
	idx := &spatialIndex{
		tree:   rtreego.NewTree(2, 25, 50),
		extent: newEnvelope(),
	}
	for it := model.Iterator(); !it.Done(); it.Step() {
		el, err := model.Database().OpenElement(it.Item(), cad.OpenForRead)
		if err != nil {
			continue
		}
		env := newEnvelope()
		for _, unit := range processElement(el, tol) {
			env = env.Union(unit.geom.Envelope())
		}
		if env.IsEmpty() {
			continue
		}
		idx.extent = idx.extent.Union(env)
		idx.tree.Insert(&indexedElement{id: el.ID, env: env})
	}
	return idx
}

// candidates returns the identities of top-level elements whose envelopes
// intersect env.
func (idx *spatialIndex) candidates(env Envelope) map[cad.ElementID]bool {
	if env.IsEmpty() {
		return map[cad.ElementID]bool{}
	}
	width := env.MaxX - env.MinX
	height := env.MaxY - env.MinY
	const epsilon = 1e-9
	if width < epsilon {
		width = epsilon
	}
	if height < epsilon {
		height = epsilon
	}
	rect, err := rtreego.NewRect(rtreego.Point{env.MinX, env.MinY}, []float64{width, height})
	if err != nil {
		return map[cad.ElementID]bool{}
	}
	hits := idx.tree.SearchIntersect(rect)
	out := make(map[cad.ElementID]bool, len(hits))
	for _, hit := range hits {
		out[hit.(*indexedElement).id] = true
	}
	return out
}
