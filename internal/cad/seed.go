package cad

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// SeedOptions controls creation of a new database.
type SeedOptions struct {
	// Seed is the path of an existing design file to copy models, elements,
	// and header values from. Empty means start from the built-in empty
	// template: one model named DefaultModel with no elements.
	Seed string

	// Application is the creating application identifier written to the
	// header. Empty leaves the seed's value (or none) in place.
	Application string

	// MasterUnit is the master unit label. Empty keeps the seed's label,
	// or "m" for the built-in template.
	MasterUnit string

	// DefaultModel names the initial model of the built-in template.
	// Ignored when Seed is set. Defaults to "Default".
	DefaultModel string
}

// Create initializes a new design file at path, replacing any existing
// file, and returns it opened for update.
//
// The new database carries a fresh GUID and is marked modified, so the
// first Flush (or Close) persists it. A nil services uses DefaultServices.
func Create(path string, opts SeedOptions, services *Services) (*Database, error) {
	if services == nil {
		services = DefaultServices()
	}
	// A seed of the same path would be truncated below; reject that early.
	if opts.Seed != "" && opts.Seed == path {
		return nil, &OpenError{Path: path, Reason: "seed file is the target file"}
	}

	db := &Database{
		path:         path,
		update:       true,
		modified:     true,
		services:     services,
		header:       make(map[string]string),
		elements:     make(map[ElementID]*Element, services.ArenaHint),
		modelsByName: make(map[string]*Model),
		nextID:       1,
	}

	if opts.Seed != "" {
		seed, err := Open(opts.Seed, false, services)
		if err != nil {
			return nil, &OpenError{Path: path, Reason: "cannot read seed file", Err: err}
		}
		defer seed.Close()
		copyFromSeed(db, seed)
	} else {
		name := opts.DefaultModel
		if name == "" {
			name = "Default"
		}
		m := &Model{db: db, name: name}
		db.models = append(db.models, m)
		db.modelsByName[name] = m
		db.header[HeaderMasterUnit] = "m"
	}

	db.header[HeaderMagic] = formatMagic
	db.header[HeaderVersion] = fmt.Sprint(formatVersion)
	db.header[HeaderGUID] = uuid.NewString()
	if opts.Application != "" {
		db.header[HeaderApplication] = opts.Application
	}
	if opts.MasterUnit != "" {
		db.header[HeaderMasterUnit] = opts.MasterUnit
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, &OpenError{Path: path, Reason: "cannot replace existing file", Err: err}
	}
	file, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, &OpenError{Path: path, Reason: "cannot create backing store", Err: err}
	}
	db.file = file
	return db, nil
}

// copyFromSeed deep-copies the seed's header, models, and element trees
// into a new database, preserving element identities.
func copyFromSeed(db, seed *Database) {
	for k, v := range seed.header {
		if k == headerNextID {
			continue
		}
		db.header[k] = v
	}
	clones := make(map[ElementID]*Element, len(seed.elements))
	for id, el := range seed.elements {
		if el.Deleted {
			continue
		}
		clones[id] = cloneElement(el)
	}
	for id, el := range seed.elements {
		if el.Deleted {
			continue
		}
		for _, child := range el.Children {
			clones[id].Children = append(clones[id].Children, clones[child.ID])
		}
	}
	for id, clone := range clones {
		db.elements[id] = clone
	}
	for _, m := range seed.models {
		cloned := &Model{db: db, name: m.name}
		for _, id := range m.ids {
			if !seed.isDeleted(id) {
				cloned.ids = append(cloned.ids, id)
			}
		}
		db.models = append(db.models, cloned)
		db.modelsByName[cloned.name] = cloned
	}
	db.nextID = seed.nextID
}

// cloneElement copies an element without its children links.
func cloneElement(el *Element) *Element {
	clone := *el
	clone.Children = nil
	clone.childIDs = nil
	if el.Fill != nil {
		fill := *el.Fill
		clone.Fill = &fill
	}
	if el.Arc != nil {
		arc := *el.Arc
		clone.Arc = &arc
	}
	if el.Text != nil {
		text := *el.Text
		clone.Text = &text
	}
	if el.Points != nil {
		clone.Points = append([]Point3(nil), el.Points...)
	}
	return &clone
}
