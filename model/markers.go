package model

import "errors"

// ErrMarkerDestroyed is returned when reading a marker that was removed from
// its collection.
var ErrMarkerDestroyed = errors.New("marker has been destroyed")

// Marker is a named range tracked by the document. Markers managed using
// operations take part in operational transformation; the rest are purely
// local bookkeeping.
type Marker struct {
	name                   string
	r                      Range
	managedUsingOperations bool
	destroyed              bool
}

// Name returns the marker name.
func (m *Marker) Name() string {
	return m.name
}

// Range returns the marked range. Fails once the marker is destroyed.
func (m *Marker) Range() (Range, error) {
	if m.destroyed {
		return Range{}, ErrMarkerDestroyed
	}

	return m.r.Clone(), nil
}

// ManagedUsingOperations reports whether the marker participates in
// operational transformation.
func (m *Marker) ManagedUsingOperations() bool {
	return m.managedUsingOperations
}

// MarkerChangeFunc observes marker updates as plain before/after range
// pairs. oldRange is nil for newly set markers, newRange is nil for removed
// ones.
type MarkerChangeFunc func(name string, oldRange, newRange *Range)

// MarkerCollection holds the document's markers.
type MarkerCollection struct {
	markers   map[string]*Marker
	observers []MarkerChangeFunc
}

func newMarkerCollection() *MarkerCollection {
	return &MarkerCollection{markers: make(map[string]*Marker)}
}

// OnChange registers a marker change callback.
func (c *MarkerCollection) OnChange(fn MarkerChangeFunc) {
	c.observers = append(c.observers, fn)
}

// Get returns the marker registered under name.
func (c *MarkerCollection) Get(name string) (*Marker, bool) {
	m, ok := c.markers[name]

	return m, ok
}

// Set creates or updates a marker and notifies observers.
func (c *MarkerCollection) Set(name string, r Range, managedUsingOperations bool) *Marker {
	var oldRange *Range

	if old, ok := c.markers[name]; ok {
		prev := old.r.Clone()
		oldRange = &prev
		old.destroyed = true
	}

	m := &Marker{
		name:                   name,
		r:                      r.Clone(),
		managedUsingOperations: managedUsingOperations,
	}
	c.markers[name] = m

	newRange := r.Clone()
	c.notify(name, oldRange, &newRange)

	return m
}

// Remove destroys the marker registered under name, if any.
func (c *MarkerCollection) Remove(name string) bool {
	m, ok := c.markers[name]
	if !ok {
		return false
	}

	delete(c.markers, name)
	m.destroyed = true

	oldRange := m.r.Clone()
	c.notify(name, &oldRange, nil)

	return true
}

// Names returns the names of all registered markers.
func (c *MarkerCollection) Names() []string {
	out := make([]string, 0, len(c.markers))
	for name := range c.markers {
		out = append(out, name)
	}

	return out
}

func (c *MarkerCollection) notify(name string, oldRange, newRange *Range) {
	for _, fn := range c.observers {
		fn(name, oldRange, newRange)
	}
}
