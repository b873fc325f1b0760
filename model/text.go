package model

// Text is a run of characters sharing one attribute map. Adjacent runs with
// identical attributes are conceptually a single logical text; the model
// never depends on how text is chunked into runs.
type Text struct {
	data   []rune
	attrs  map[string]any
	parent *Element
}

// NewText creates a detached text run.
func NewText(data string, attrs map[string]any) *Text {
	return &Text{
		data:  []rune(data),
		attrs: cloneAttrs(attrs),
	}
}

func newTextRunes(data []rune, attrs map[string]any) *Text {
	return &Text{
		data:  data,
		attrs: cloneAttrs(attrs),
	}
}

// Data returns the run's characters.
func (t *Text) Data() string {
	return string(t.data)
}

// Parent returns the owning element, or nil for detached runs.
func (t *Text) Parent() *Element {
	return t.parent
}

// OffsetSize of a text run is its character count.
func (t *Text) OffsetSize() int {
	return len(t.data)
}

// Attribute returns the value stored under key, if any.
func (t *Text) Attribute(key string) (any, bool) {
	v, ok := t.attrs[key]

	return v, ok
}

// Attributes returns a copy of the attribute map.
func (t *Text) Attributes() map[string]any {
	return cloneAttrs(t.attrs)
}

// SetAttribute stores value under key. A nil value removes the attribute.
func (t *Text) SetAttribute(key string, value any) {
	if value == nil {
		delete(t.attrs, key)

		return
	}

	if t.attrs == nil {
		t.attrs = make(map[string]any)
	}

	t.attrs[key] = normalizeAttrValue(value)
}

// CloneNode returns a detached copy of the run.
func (t *Text) CloneNode() Node {
	return newTextRunes(append([]rune{}, t.data...), t.attrs)
}

func (t *Text) setParent(p *Element) {
	t.parent = p
}

// splitAt cuts the run into two detached runs at the given character index.
func (t *Text) splitAt(index int) (*Text, *Text) {
	left := newTextRunes(append([]rune{}, t.data[:index]...), t.attrs)
	right := newTextRunes(append([]rune{}, t.data[index:]...), t.attrs)

	return left, right
}
