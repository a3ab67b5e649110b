// Package cad implements the design-file runtime underneath the translator:
// an element arena organized into named models, persisted to a single
// backing file.
//
// The database owns every model and element. Elements are addressed by
// stable ElementID and traversal positions are indices into a model's
// top-level list, so identities and cursors stay valid while the arena
// grows. All operations are synchronous and single-threaded; callers
// sharing a database across goroutines must serialize access themselves.
package cad

import (
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Backing file bucket names.
var (
	bucketHeader   = []byte("header")
	bucketModels   = []byte("models")
	bucketElements = []byte("elements")
)

// Header keys with defined meaning. Other keys round-trip untouched.
const (
	HeaderMagic       = "MAGIC"       // Format marker, must equal formatMagic
	HeaderVersion     = "VERSION"     // Format version, decimal
	HeaderGUID        = "GUID"        // Design-file GUID assigned at creation
	HeaderApplication = "APPLICATION" // Creating application identifier
	HeaderMasterUnit  = "MASTER_UNIT" // Master unit label, e.g. "m"
	headerNextID      = "NEXT_ID"     // Arena ID watermark, decimal
)

const (
	formatMagic   = "DGNGO"
	formatVersion = 1
)

// OpenMode selects read or write access when opening an element by identity.
type OpenMode int

const (
	OpenForRead OpenMode = iota
	OpenForWrite
)

// Database is an open design file: an arena of elements grouped into
// ordered, named models, plus header metadata.
type Database struct {
	path     string
	file     *bolt.DB
	update   bool
	modified bool
	services *Services

	header   map[string]string
	nextID   ElementID
	elements map[ElementID]*Element

	models       []*Model
	modelsByName map[string]*Model
}

// Model is a named ordered container of top-level elements.
type Model struct {
	db   *Database
	name string
	ids  []ElementID
}

// Open loads the design file at path into memory.
//
// With update true the backing file is held open for writing and mutations
// are allowed; otherwise the database is read-only. A nil services uses
// DefaultServices. Returns *OpenError if the file is missing, unreadable,
// or not a recognized design file.
func Open(path string, update bool, services *Services) (*Database, error) {
	if services == nil {
		services = DefaultServices()
	}

	// bolt.Open creates missing files in write mode; a missing design file
	// must be an open failure instead.
	if _, err := os.Stat(path); err != nil {
		return nil, &OpenError{Path: path, Reason: "file not accessible", Err: err}
	}

	file, err := bolt.Open(path, 0o644, &bolt.Options{
		ReadOnly: !update,
		Timeout:  time.Second,
	})
	if err != nil {
		return nil, &OpenError{Path: path, Reason: "cannot open backing store", Err: err}
	}

	db := &Database{
		path:         path,
		file:         file,
		update:       update,
		services:     services,
		header:       make(map[string]string),
		elements:     make(map[ElementID]*Element, services.ArenaHint),
		modelsByName: make(map[string]*Model),
	}

	if err := db.load(); err != nil {
		file.Close()
		return nil, err
	}
	return db, nil
}

// load reads all buckets into the arena and verifies the format marker.
func (db *Database) load() error {
	err := db.file.View(func(tx *bolt.Tx) error {
		hb := tx.Bucket(bucketHeader)
		if hb == nil {
			return &OpenError{Path: db.path, Reason: "missing header"}
		}
		if err := hb.ForEach(func(k, v []byte) error {
			db.header[string(k)] = string(v)
			return nil
		}); err != nil {
			return err
		}
		if db.header[HeaderMagic] != formatMagic {
			return &OpenError{Path: db.path, Reason: "not a design file"}
		}
		if db.header[HeaderVersion] != fmt.Sprint(formatVersion) {
			return &OpenError{
				Path:   db.path,
				Reason: fmt.Sprintf("unsupported format version %q", db.header[HeaderVersion]),
			}
		}

		eb := tx.Bucket(bucketElements)
		if eb != nil {
			if err := eb.ForEach(func(k, v []byte) error {
				el, err := decodeElement(k, v, db.services)
				if err != nil {
					return &OpenError{Path: db.path, Reason: "corrupt element record", Err: err}
				}
				db.elements[el.ID] = el
				return nil
			}); err != nil {
				return err
			}
		}

		mb := tx.Bucket(bucketModels)
		if mb != nil {
			if err := mb.ForEach(func(k, v []byte) error {
				name, ids, err := decodeModel(v, db.services)
				if err != nil {
					return &OpenError{Path: db.path, Reason: "corrupt model record", Err: err}
				}
				m := &Model{db: db, name: name, ids: ids}
				db.models = append(db.models, m)
				db.modelsByName[name] = m
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Child IDs were persisted; rebuild child pointers into the arena.
	var maxID ElementID
	for id, el := range db.elements {
		if id > maxID {
			maxID = id
		}
		for _, childID := range el.childIDs {
			child, ok := db.elements[childID]
			if !ok {
				return &OpenError{
					Path:   db.path,
					Reason: fmt.Sprintf("element %d references missing child %d", id, childID),
				}
			}
			el.Children = append(el.Children, child)
		}
		el.childIDs = nil
	}

	db.nextID = maxID + 1
	if n, err := parseID(db.header[headerNextID]); err == nil && n > db.nextID {
		db.nextID = n
	}
	return nil
}

// Flush persists the arena to the backing file when the database is open
// for update and has been modified. The modified flag is cleared only on
// success, so a failed flush can be retried.
func (db *Database) Flush() error {
	if !db.update || !db.modified {
		return nil
	}
	db.header[headerNextID] = fmt.Sprint(db.nextID)
	err := db.file.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketHeader, bucketModels, bucketElements} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
			}
		}
		hb, err := tx.CreateBucket(bucketHeader)
		if err != nil {
			return err
		}
		for k, v := range db.header {
			if err := hb.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		mb, err := tx.CreateBucket(bucketModels)
		if err != nil {
			return err
		}
		for i, m := range db.models {
			if err := mb.Put(modelKey(i), encodeModel(m, db.services)); err != nil {
				return err
			}
		}
		eb, err := tx.CreateBucket(bucketElements)
		if err != nil {
			return err
		}
		for id, el := range db.elements {
			if el.Deleted {
				continue // deletion persists as absence
			}
			if err := eb.Put(elementKey(id), encodeElement(el, db.services)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cad: flush %s: %w", db.path, err)
	}
	db.modified = false
	return nil
}

// Close flushes pending modifications and releases the backing file.
func (db *Database) Close() error {
	flushErr := db.Flush()
	closeErr := db.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Path returns the backing file path.
func (db *Database) Path() string { return db.path }

// Update reports whether the database was opened for update.
func (db *Database) Update() bool { return db.update }

// Modified reports whether unflushed modifications exist.
func (db *Database) Modified() bool { return db.modified }

// SetModified marks the database as having unflushed modifications.
func (db *Database) SetModified() { db.modified = true }

// Services returns the host services in effect.
func (db *Database) Services() *Services { return db.services }

// Header returns the value of a header key, or "" if unset.
func (db *Database) Header(key string) string { return db.header[key] }

// SetHeader sets a header key. Requires update mode.
func (db *Database) SetHeader(key, value string) error {
	if !db.update {
		return &ReadOnlyError{Op: "set header"}
	}
	db.header[key] = value
	db.modified = true
	return nil
}

// HeaderKeys returns all header keys, excluding internal bookkeeping.
func (db *Database) HeaderKeys() []string {
	keys := make([]string, 0, len(db.header))
	for k := range db.header {
		if k == headerNextID {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// Models returns the database's models in creation order.
func (db *Database) Models() []*Model { return db.models }

// ModelByName returns the named model, or nil.
func (db *Database) ModelByName(name string) *Model { return db.modelsByName[name] }

// CreateModel adds a new empty model. Requires update mode; returns
// *DuplicateModelError on name collision.
func (db *Database) CreateModel(name string) (*Model, error) {
	if !db.update {
		return nil, &ReadOnlyError{Op: "create model"}
	}
	if _, exists := db.modelsByName[name]; exists {
		return nil, &DuplicateModelError{Name: name}
	}
	m := &Model{db: db, name: name}
	db.models = append(db.models, m)
	db.modelsByName[name] = m
	db.modified = true
	return m, nil
}

// DropModel removes a model and marks its elements deleted.
// Requires update mode.
func (db *Database) DropModel(name string) error {
	if !db.update {
		return &ReadOnlyError{Op: "drop model"}
	}
	m, ok := db.modelsByName[name]
	if !ok {
		return fmt.Errorf("cad: model %q not found", name)
	}
	for _, id := range m.ids {
		if el, ok := db.elements[id]; ok && !el.Deleted {
			db.markDeleted(el)
		}
	}
	delete(db.modelsByName, name)
	for i, other := range db.models {
		if other == m {
			db.models = append(db.models[:i], db.models[i+1:]...)
			break
		}
	}
	db.modified = true
	return nil
}

// OpenElement resolves an element by identity.
//
// OpenForWrite requires update mode. Returns *ElementNotFoundError when the
// identity does not resolve or resolves to a deleted element.
func (db *Database) OpenElement(id ElementID, mode OpenMode) (*Element, error) {
	if mode == OpenForWrite && !db.update {
		return nil, &ReadOnlyError{Op: "open element for write"}
	}
	el, ok := db.elements[id]
	if !ok || el.Deleted {
		return nil, &ElementNotFoundError{ID: id}
	}
	return el, nil
}

// DeleteElement marks an element (and its children) deleted.
// Requires update mode; returns *ElementNotFoundError if the identity does
// not resolve.
func (db *Database) DeleteElement(id ElementID) error {
	el, err := db.OpenElement(id, OpenForWrite)
	if err != nil {
		return err
	}
	db.markDeleted(el)
	db.modified = true
	return nil
}

// ReplaceElement substitutes a new element under an existing identity,
// keeping the element's position in its model. The old element's children
// are deleted; the new element's children receive fresh identities.
func (db *Database) ReplaceElement(id ElementID, el *Element) error {
	old, err := db.OpenElement(id, OpenForWrite)
	if err != nil {
		return err
	}
	if err := validateAttributes(el); err != nil {
		return err
	}
	for _, child := range old.Children {
		db.markDeleted(child)
	}
	el.ID = id
	db.elements[id] = el
	for _, child := range el.Children {
		db.register(child)
	}
	db.modified = true
	return nil
}

// markDeleted marks el and its subtree deleted.
func (db *Database) markDeleted(el *Element) {
	el.Deleted = true
	for _, child := range el.Children {
		db.markDeleted(child)
	}
}

// register assigns identities to el and its subtree and enters them into
// the arena.
func (db *Database) register(el *Element) {
	el.ID = db.nextID
	db.nextID++
	db.elements[el.ID] = el
	for _, child := range el.Children {
		db.register(child)
	}
}

func (db *Database) isDeleted(id ElementID) bool {
	el, ok := db.elements[id]
	return !ok || el.Deleted
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Len returns the number of live top-level elements.
func (m *Model) Len() int {
	n := 0
	for _, id := range m.ids {
		if !m.db.isDeleted(id) {
			n++
		}
	}
	return n
}

// Contains reports whether id is a live top-level element of this model.
func (m *Model) Contains(id ElementID) bool {
	if m.db.isDeleted(id) {
		return false
	}
	for _, candidate := range m.ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// Append adds an element tree to the model, assigning identities and
// entering every node into the arena. Requires update mode. Style values
// outside their storable ranges are rejected.
func (m *Model) Append(el *Element) (ElementID, error) {
	if !m.db.update {
		return 0, &ReadOnlyError{Op: "append element"}
	}
	if err := validateAttributes(el); err != nil {
		return 0, err
	}
	m.db.register(el)
	m.ids = append(m.ids, el.ID)
	m.db.modified = true
	return el.ID, nil
}

// Database returns the owning database.
func (m *Model) Database() *Database { return m.db }

func parseID(s string) (ElementID, error) {
	var n uint64
	_, err := fmt.Sscanf(s, "%d", &n)
	return ElementID(n), err
}
