package model

import (
	"errors"
	"fmt"
)

// GraveyardRootName is the reserved root that receives removed content.
const GraveyardRootName = "$graveyard"

// HolderElementName is the name of the anonymous wrapper elements created in
// the graveyard, one per logical remove.
const HolderElementName = "$graveyardHolder"

// Common errors.
var (
	ErrVersionMismatch = errors.New("operation base version does not match document version")
	ErrInvalidPosition = errors.New("position does not resolve to a valid place in the tree")
	ErrRootExists      = errors.New("root with this name already exists")
	ErrRootNotFound    = errors.New("root not found")
	ErrReservedRoot    = errors.New("root name is reserved")
)

// RootElement is a distinguished element with no parent, identified by name
// within its document.
type RootElement struct {
	Element
	rootName string
	document *Document
}

// RootName returns the name under which the root is registered.
func (r *RootElement) RootName() string {
	return r.rootName
}

// Document returns the owning document.
func (r *RootElement) Document() *Document {
	return r.document
}

// Document holds a set of named roots plus the reserved graveyard root, and
// tracks the version that the next operation must be based on.
type Document struct {
	roots     map[string]*RootElement
	version   int
	markers   *MarkerCollection
	observers []func(Operation)
}

// NewDocument creates an empty document containing only the graveyard root.
func NewDocument() *Document {
	d := &Document{
		roots: make(map[string]*RootElement),
	}
	d.markers = newMarkerCollection()
	d.roots[GraveyardRootName] = d.newRoot(GraveyardRootName)

	return d
}

func (d *Document) newRoot(name string) *RootElement {
	return &RootElement{
		Element:  Element{name: "$root"},
		rootName: name,
		document: d,
	}
}

// CreateRoot adds a new named root to the document.
func (d *Document) CreateRoot(name string) (*RootElement, error) {
	if name == GraveyardRootName {
		return nil, ErrReservedRoot
	}

	if _, exists := d.roots[name]; exists {
		return nil, fmt.Errorf("create root %q: %w", name, ErrRootExists)
	}

	root := d.newRoot(name)
	d.roots[name] = root

	return root, nil
}

// Root returns the root registered under the given name.
func (d *Document) Root(name string) (*RootElement, error) {
	root, ok := d.roots[name]
	if !ok {
		return nil, fmt.Errorf("root %q: %w", name, ErrRootNotFound)
	}

	return root, nil
}

// Graveyard returns the reserved root holding removed content.
func (d *Document) Graveyard() *RootElement {
	return d.roots[GraveyardRootName]
}

// RootOf maps a top-level element back to its RootElement.
func (d *Document) RootOf(e *Element) (*RootElement, bool) {
	top := TopAncestor(e)

	for _, root := range d.roots {
		if &root.Element == top {
			return root, true
		}
	}

	return nil, false
}

// Version returns the current document version. Every executed operation
// increments it by one.
func (d *Document) Version() int {
	return d.version
}

// Markers returns the document's marker collection.
func (d *Document) Markers() *MarkerCollection {
	return d.markers
}

// OnOperation registers a callback invoked right before each operation
// executes. Used by the differ to buffer changes in pre-execution offsets.
func (d *Document) OnOperation(fn func(Operation)) {
	d.observers = append(d.observers, fn)
}

// ApplyOperation validates the operation's base version, notifies observers,
// executes the operation and bumps the document version.
func (d *Document) ApplyOperation(op Operation) (OpResult, error) {
	if op.BaseVersion() != d.version {
		return OpResult{}, fmt.Errorf(
			"operation base version %d, document version %d: %w",
			op.BaseVersion(), d.version, ErrVersionMismatch,
		)
	}

	for _, fn := range d.observers {
		fn(op)
	}

	res, err := op.Execute(d)
	if err != nil {
		return OpResult{}, err
	}

	d.version++

	return res, nil
}
