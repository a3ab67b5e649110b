// Package dgn exposes the models of a CAD design file as flat feature
// layers, and materializes features back into design elements.
//
// Open a design file with Open or OpenWithOptions, enumerate its layers
// (one per model), and iterate features:
//
//	ds, err := dgn.Open("plant.dgn")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ds.Close()
//
//	layer := ds.Layer(0)
//	for {
//	    feature, err := layer.NextFeature()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if feature == nil {
//	        break
//	    }
//	    fmt.Println(feature.Class(), feature.Geom.GeometryType())
//	}
//
// The translation walks each model's element tree, flattening complex
// elements into single geometries: complex chains become compound curves,
// closed complex shapes become polygon exteriors, and closed shapes nested
// inside them become the polygon's holes. Writing reverses the walk,
// building composite elements (with hole children) from feature geometry.
package dgn

import (
	"github.com/beetlebugorg/dgn/internal/cad"
)

// Data source capability names for TestCapability.
const (
	CapCreateLayer = "CreateLayer" // CreateLayer in update mode
)

// DataSource is an open design file together with its models exposed as
// layers. The set of layers is fixed at open time except for CreateLayer.
type DataSource struct {
	db        *cad.Database
	layers    []*Layer
	tolerance float64
}

// Open opens the design file at path read-only with default options.
func Open(path string) (*DataSource, error) {
	return OpenWithOptions(path, DefaultOpenOptions())
}

// OpenWithOptions opens the design file at path.
//
// Returns *OpenError if the backing file is unreadable or not a design
// file. With opts.Update true, feature and layer mutation is enabled and
// Close persists modifications.
func OpenWithOptions(path string, opts OpenOptions) (*DataSource, error) {
	db, err := cad.Open(path, opts.Update, nil)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return wrap(db, opts.Tolerance), nil
}

// Create initializes a new design file at path, replacing any existing
// file, and returns it opened for update. The new file is flushed on the
// first FlushCache or Close.
func Create(path string, opts CreateOptions) (*DataSource, error) {
	db, err := cad.Create(path, cad.SeedOptions{
		Seed:         opts.Seed,
		Application:  opts.Application,
		MasterUnit:   opts.MasterUnit,
		DefaultModel: opts.DefaultModel,
	}, nil)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return wrap(db, opts.Tolerance), nil
}

// PreCreate is the string key/value form of Create, for callers driving
// creation from configuration. Recognized keys are documented on
// CreateOptions; unrecognized keys are ignored.
func PreCreate(path string, options map[string]string) (*DataSource, error) {
	return Create(path, CreateOptionsFromMap(options))
}

func wrap(db *cad.Database, tolerance float64) *DataSource {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	ds := &DataSource{db: db, tolerance: tolerance}
	for _, model := range db.Models() {
		ds.layers = append(ds.layers, newLayer(ds, model))
	}
	return ds
}

// LayerCount returns the number of layers (models).
func (ds *DataSource) LayerCount() int { return len(ds.layers) }

// Layer returns the layer at index, or nil if out of range.
func (ds *DataSource) Layer(index int) *Layer {
	if index < 0 || index >= len(ds.layers) {
		return nil
	}
	return ds.layers[index]
}

// LayerByName returns the named layer, or nil.
func (ds *DataSource) LayerByName(name string) *Layer {
	for _, layer := range ds.layers {
		if layer.Name() == name {
			return layer
		}
	}
	return nil
}

// CreateLayer creates a new model and exposes it as a layer.
//
// Returns *DuplicateLayerError if a model with that name exists and
// opts.Overwrite is false; with Overwrite the existing model and its
// elements are dropped first.
func (ds *DataSource) CreateLayer(name string, opts CreateLayerOptions) (*Layer, error) {
	if !ds.db.Update() {
		return nil, &ReadOnlyError{Op: "create layer"}
	}
	if existing := ds.LayerByName(name); existing != nil {
		if !opts.Overwrite {
			return nil, &DuplicateLayerError{Name: name}
		}
		if err := ds.db.DropModel(name); err != nil {
			return nil, err
		}
		for i, layer := range ds.layers {
			if layer == existing {
				ds.layers = append(ds.layers[:i], ds.layers[i+1:]...)
				break
			}
		}
	}
	model, err := ds.db.CreateModel(name)
	if err != nil {
		return nil, err
	}
	layer := newLayer(ds, model)
	ds.layers = append(ds.layers, layer)
	ds.markModified()
	return layer, nil
}

// FlushCache persists pending modifications to the backing file when the
// data source is open for update and modified; otherwise it is a no-op.
// On failure the modified flag stays set so the flush can be retried.
// atClosing is advisory; Close flushes regardless.
func (ds *DataSource) FlushCache(atClosing bool) error {
	_ = atClosing
	return ds.db.Flush()
}

// Close flushes pending modifications and releases the design file.
func (ds *DataSource) Close() error {
	return ds.db.Close()
}

// TestCapability reports whether the data source supports the named
// capability.
func (ds *DataSource) TestCapability(name string) bool {
	switch name {
	case CapCreateLayer:
		return ds.db.Update()
	default:
		return false
	}
}

// Modified reports whether unflushed modifications exist.
func (ds *DataSource) Modified() bool { return ds.db.Modified() }

func (ds *DataSource) markModified() { ds.db.SetModified() }
