package model

import "errors"

// ErrInvalidOffset is returned when an offset does not land on a valid
// node boundary inside an element.
var ErrInvalidOffset = errors.New("offset does not resolve to a valid place in the element")

// Element is a named tree node with an ordered list of children and an
// attribute map. An element exclusively owns its children.
type Element struct {
	name     string
	attrs    map[string]any
	children []Node
	parent   *Element
}

// NewElement creates a detached element. The given children are adopted as-is
// and must not belong to another parent.
func NewElement(name string, attrs map[string]any, children ...Node) *Element {
	e := &Element{
		name:  name,
		attrs: cloneAttrs(attrs),
	}

	for _, child := range children {
		child.setParent(e)
		e.children = append(e.children, child)
	}

	return e
}

// Name returns the element name.
func (e *Element) Name() string {
	return e.name
}

// Parent returns the owning element, or nil for roots and detached elements.
func (e *Element) Parent() *Element {
	return e.parent
}

// OffsetSize of an element is always 1, regardless of its contents.
func (e *Element) OffsetSize() int {
	return 1
}

// ChildCount returns the number of child nodes.
func (e *Element) ChildCount() int {
	return len(e.children)
}

// Child returns the i-th child node.
func (e *Element) Child(i int) Node {
	return e.children[i]
}

// MaxOffset returns the sum of the children's offset sizes.
func (e *Element) MaxOffset() int {
	return nodeListSize(e.children)
}

// Attribute returns the value stored under key, if any.
func (e *Element) Attribute(key string) (any, bool) {
	v, ok := e.attrs[key]

	return v, ok
}

// Attributes returns a copy of the attribute map.
func (e *Element) Attributes() map[string]any {
	return cloneAttrs(e.attrs)
}

// SetAttribute stores value under key. A nil value removes the attribute.
func (e *Element) SetAttribute(key string, value any) {
	if value == nil {
		delete(e.attrs, key)

		return
	}

	if e.attrs == nil {
		e.attrs = make(map[string]any)
	}

	e.attrs[key] = normalizeAttrValue(value)
}

// CloneNode returns a deep, detached copy of the element and its subtree.
func (e *Element) CloneNode() Node {
	return e.cloneElement()
}

func (e *Element) cloneElement() *Element {
	clone := &Element{
		name:  e.name,
		attrs: cloneAttrs(e.attrs),
	}

	for _, child := range e.children {
		c := child.CloneNode()
		c.setParent(clone)
		clone.children = append(clone.children, c)
	}

	return clone
}

func (e *Element) setParent(p *Element) {
	e.parent = p
}

func (e *Element) rename(name string) {
	e.name = name
}

// startOffsetOf returns the offset at which the given child starts.
func (e *Element) startOffsetOf(child Node) (int, bool) {
	offset := 0

	for _, c := range e.children {
		if c == child {
			return offset, true
		}

		offset += c.OffsetSize()
	}

	return 0, false
}

// nodeAtOffset returns the child node starting exactly at the given offset.
func (e *Element) nodeAtOffset(offset int) (Node, bool) {
	current := 0

	for _, c := range e.children {
		if current == offset {
			return c, true
		}

		if current > offset {
			break
		}

		current += c.OffsetSize()
	}

	return nil, false
}

// indexAtOffset returns the child index whose node starts exactly at offset.
// offset == MaxOffset yields len(children). Fails when offset falls inside
// a node; call splitTextAt first to guarantee a boundary.
func (e *Element) indexAtOffset(offset int) (int, bool) {
	current := 0

	for i, c := range e.children {
		if current == offset {
			return i, true
		}

		if current > offset {
			return 0, false
		}

		current += c.OffsetSize()
	}

	if current == offset {
		return len(e.children), true
	}

	return 0, false
}

// splitTextAt makes sure a node boundary exists at the given offset,
// splitting a text run in two when the offset falls inside one.
func (e *Element) splitTextAt(offset int) error {
	if offset < 0 || offset > e.MaxOffset() {
		return ErrInvalidOffset
	}

	current := 0

	for i, c := range e.children {
		size := c.OffsetSize()
		if current == offset {
			return nil
		}

		if offset < current+size {
			text, ok := c.(*Text)
			if !ok {
				// Elements occupy a single slot, so the offset can
				// only fall inside a text run.
				return ErrInvalidOffset
			}

			left, right := text.splitAt(offset - current)
			left.setParent(e)
			right.setParent(e)

			rest := append([]Node{left, right}, e.children[i+1:]...)
			e.children = append(e.children[:i], rest...)

			return nil
		}

		current += size
	}

	return nil
}

// insertAt splices nodes into the element at the given offset. The nodes
// become owned by this element.
func (e *Element) insertAt(offset int, nodes []Node) error {
	if err := e.splitTextAt(offset); err != nil {
		return err
	}

	idx, ok := e.indexAtOffset(offset)
	if !ok {
		return ErrInvalidOffset
	}

	for _, n := range nodes {
		n.setParent(e)
	}

	rest := append(append([]Node{}, nodes...), e.children[idx:]...)
	e.children = append(e.children[:idx], rest...)

	return nil
}

// removeRange detaches the content occupying [offset, offset+howMany) and
// returns it. Text runs overlapping a boundary are split first.
func (e *Element) removeRange(offset, howMany int) ([]Node, error) {
	if howMany < 0 || offset < 0 || offset+howMany > e.MaxOffset() {
		return nil, ErrInvalidOffset
	}

	if howMany == 0 {
		return nil, nil
	}

	if err := e.splitTextAt(offset); err != nil {
		return nil, err
	}

	if err := e.splitTextAt(offset + howMany); err != nil {
		return nil, err
	}

	from, ok := e.indexAtOffset(offset)
	if !ok {
		return nil, ErrInvalidOffset
	}

	to, ok := e.indexAtOffset(offset + howMany)
	if !ok {
		return nil, ErrInvalidOffset
	}

	removed := append([]Node{}, e.children[from:to]...)
	e.children = append(e.children[:from], e.children[to:]...)

	for _, n := range removed {
		n.setParent(nil)
	}

	return removed, nil
}

// childrenInRange returns the child nodes fully covering [offset,
// offset+howMany), splitting text runs at the boundaries so the returned
// nodes line up exactly with the range.
func (e *Element) childrenInRange(offset, howMany int) ([]Node, error) {
	if howMany < 0 || offset < 0 || offset+howMany > e.MaxOffset() {
		return nil, ErrInvalidOffset
	}

	if err := e.splitTextAt(offset); err != nil {
		return nil, err
	}

	if err := e.splitTextAt(offset + howMany); err != nil {
		return nil, err
	}

	from, ok := e.indexAtOffset(offset)
	if !ok {
		return nil, ErrInvalidOffset
	}

	to, ok := e.indexAtOffset(offset + howMany)
	if !ok {
		return nil, ErrInvalidOffset
	}

	return e.children[from:to], nil
}

// PathOf returns the offsets leading from the top ancestor down to the given
// element. An empty path means the element is itself a top-level element.
func PathOf(e *Element) []int {
	var path []int

	for e.parent != nil {
		offset, ok := e.parent.startOffsetOf(e)
		if !ok {
			break
		}

		path = append([]int{offset}, path...)
		e = e.parent
	}

	return path
}

// TopAncestor returns the highest element in the parent chain.
func TopAncestor(e *Element) *Element {
	for e.parent != nil {
		e = e.parent
	}

	return e
}

// ElementsEqual reports deep structural equality of two elements. Adjacent
// text runs with identical attributes are treated as one logical text, so
// trees that differ only in how text is chunked compare as equal.
func ElementsEqual(a, b *Element) bool {
	if a.name != b.name || !attrsEqual(a.attrs, b.attrs) {
		return false
	}

	ca := normalizedChildren(a)
	cb := normalizedChildren(b)

	if len(ca) != len(cb) {
		return false
	}

	for i := range ca {
		switch na := ca[i].(type) {
		case *Element:
			nb, ok := cb[i].(*Element)
			if !ok || !ElementsEqual(na, nb) {
				return false
			}
		case *Text:
			nb, ok := cb[i].(*Text)
			if !ok || na.Data() != nb.Data() || !attrsEqual(na.attrs, nb.attrs) {
				return false
			}
		}
	}

	return true
}

// normalizedChildren returns the children with adjacent same-attribute text
// runs merged. The returned nodes are copies where merging occurred.
func normalizedChildren(e *Element) []Node {
	var out []Node

	for _, c := range e.children {
		text, ok := c.(*Text)
		if ok && len(out) > 0 {
			if last, lastOK := out[len(out)-1].(*Text); lastOK && attrsEqual(last.attrs, text.attrs) {
				out[len(out)-1] = newTextRunes(append(append([]rune{}, last.data...), text.data...), last.attrs)

				continue
			}
		}

		out = append(out, c)
	}

	return out
}
