package cad

// Iterator is a cursor over a model's live top-level elements in document
// order.
//
// The cursor is a position (an index into the model's top-level list), not
// a pointer, so it stays valid while the arena grows. Elements appended
// behind the cursor are visited; elements deleted ahead of it are skipped.
type Iterator struct {
	model *Model
	pos   int
}

// Iterator returns a cursor positioned at the model's first live element.
func (m *Model) Iterator() *Iterator {
	it := &Iterator{model: m}
	it.Reset()
	return it
}

// Reset repositions the cursor at the first live element. Idempotent.
func (it *Iterator) Reset() {
	it.pos = 0
	it.skipDeleted()
}

// Done reports whether the cursor is exhausted.
func (it *Iterator) Done() bool {
	return it.pos >= len(it.model.ids)
}

// Item returns the element identity at the cursor.
// Only valid while Done reports false.
func (it *Iterator) Item() ElementID {
	return it.model.ids[it.pos]
}

// Step advances the cursor one live element.
func (it *Iterator) Step() {
	it.pos++
	it.skipDeleted()
}

func (it *Iterator) skipDeleted() {
	for it.pos < len(it.model.ids) && it.model.db.isDeleted(it.model.ids[it.pos]) {
		it.pos++
	}
}
