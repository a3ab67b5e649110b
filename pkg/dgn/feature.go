package dgn

// Feature is the flat unit exposed to and consumed from callers: one
// geometry plus the attribute and style record of the originating element.
//
// On the read path the layer fills every field and assigns the identity.
// On the write path the caller populates the exported fields and
// CreateFeature assigns the identity of the materialized element.
type Feature struct {
	// Geom is the feature geometry. Required on create.
	Geom Geometry

	// Element attributes
	Level        int // Design level, 0-63
	GraphicGroup int
	ColorIndex   int // Color table index
	Weight       int // Line weight
	LineStyle    int // Line style code

	// Fill linkage; meaningful for closed shapes
	Filled    bool
	FillColor int

	// Label fields; meaningful for text elements and point features
	Text         string
	FontID       int
	TextHeight   float64
	TextRotation float64

	id    uint64
	class string
}

// ID returns the feature identity, derived from the underlying element.
// Zero until the feature has been read from or written to a layer.
func (f *Feature) ID() uint64 { return f.id }

// Class returns the element class of the originating element, such as
// "Shape" or "Text". Empty for features not yet written.
func (f *Feature) Class() string { return f.class }

// Attribute field names exposed by every layer.
const (
	FieldClass        = "Class"
	FieldLevel        = "Level"
	FieldGraphicGroup = "GraphicGroup"
	FieldColorIndex   = "ColorIndex"
	FieldWeight       = "Weight"
	FieldLineStyle    = "LineStyle"
	FieldText         = "Text"
)

// Attributes returns the feature's attribute record as a map, keyed by the
// Field* names.
func (f *Feature) Attributes() map[string]interface{} {
	return map[string]interface{}{
		FieldClass:        f.class,
		FieldLevel:        f.Level,
		FieldGraphicGroup: f.GraphicGroup,
		FieldColorIndex:   f.ColorIndex,
		FieldWeight:       f.Weight,
		FieldLineStyle:    f.LineStyle,
		FieldText:         f.Text,
	}
}

// LayerDefinition describes a layer's name and attribute schema.
type LayerDefinition struct {
	Name   string
	Fields []string
}

func layerFields() []string {
	return []string{
		FieldClass,
		FieldLevel,
		FieldGraphicGroup,
		FieldColorIndex,
		FieldWeight,
		FieldLineStyle,
		FieldText,
	}
}
