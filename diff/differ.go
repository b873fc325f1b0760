// Package diff turns a stream of executed operations into a minimal set of
// change records describing how the document differs from the state at which
// buffering started. Changes that cancel out, such as inserting content and
// then removing it again, produce no records.
package diff

import (
	"reflect"
	"sort"

	"github.com/pkaleta/treedoc/model"
)

// TextItemName identifies text content in change records, mirroring how
// text nodes are named in serialized trees.
const TextItemName = "$text"

// ChangeType discriminates change records.
type ChangeType int

const (
	// ChangeInsert reports content present now that was not there before.
	ChangeInsert ChangeType = iota
	// ChangeRemove reports content that was there before and is gone now.
	ChangeRemove
	// ChangeAttribute reports an attribute value differing over a range.
	ChangeAttribute
)

// Change is one record of the computed diff. Insert and remove records carry
// Position, Name and Length; attribute records carry Range, Key and the two
// values. Positions and ranges are expressed in the document's current state.
type Change struct {
	Type ChangeType

	Position model.Position
	Name     string
	Length   int

	Range    model.Range
	Key      string
	OldValue any
	NewValue any
}

type markType int

const (
	markRemove markType = iota
	markInsert
	markAttribute
)

// mark records one pending change inside a single element, in the element's
// current child offsets. Remove marks additionally count how many snapshot
// items vanished at that offset.
type mark struct {
	typ     markType
	offset  int
	howMany int
	order   int
}

// item is one offset slot of an element's child list: an element child
// occupies one item, a text child one item per rune.
type item struct {
	name  string
	data  rune
	attrs map[string]any
}

// elementState tracks one touched element: the expanded child list as it was
// before the first buffered operation touched it, plus the pending marks.
type elementState struct {
	snapshot []item
	marks    []*mark
}

// Differ buffers operations applied to a document and computes minimal
// change records on demand. Wire it up with doc.OnOperation(differ.
// BufferOperation) so it sees every operation in pre-execution offsets.
//
// Differ is not safe for concurrent use; guard it together with the
// document it observes.
// markerState records a marker's range before the first buffered change and
// after the latest one. Either side is nil when the marker did not exist at
// that point.
type markerState struct {
	oldRange *model.Range
	newRange *model.Range
}

type Differ struct {
	doc      *model.Document
	elements map[*model.Element]*elementState
	markers  map[string]*markerState
	order    int

	cached []Change
	valid  bool
}

// New creates a differ for the given document. The caller still has to
// register BufferOperation as an operation observer and, when marker diffs
// are wanted, BufferMarkerChange as a marker observer.
func New(doc *model.Document) *Differ {
	return &Differ{
		doc:      doc,
		elements: make(map[*model.Element]*elementState),
		markers:  make(map[string]*markerState),
	}
}

// IsEmpty reports whether any buffered operation or marker change produced a
// pending mark.
func (d *Differ) IsEmpty() bool {
	for _, st := range d.elements {
		if len(st.marks) > 0 {
			return false
		}
	}

	return len(d.markers) == 0
}

// Reset drops all buffered state. The next diff is computed against the
// document as it is now.
func (d *Differ) Reset() {
	d.elements = make(map[*model.Element]*elementState)
	d.markers = make(map[string]*markerState)
	d.cached = nil
	d.valid = false
}

// BufferMarkerChange records a marker update. Repeated changes to the same
// marker collapse: the recorded old range stays the one from before the
// first change, the new range always reflects the latest.
func (d *Differ) BufferMarkerChange(name string, oldRange, newRange *model.Range) {
	d.valid = false

	st, ok := d.markers[name]
	if !ok {
		st = &markerState{}

		if oldRange != nil {
			r := oldRange.Clone()
			st.oldRange = &r
		}

		d.markers[name] = st
	}

	if newRange != nil {
		r := newRange.Clone()
		st.newRange = &r
	} else {
		st.newRange = nil
	}

	// A marker added and removed within the same window never changed.
	if st.oldRange == nil && st.newRange == nil {
		delete(d.markers, name)
	}
}

// MarkerChange pairs a marker name with its range before and after the
// buffered window. OldRange is nil for added markers, NewRange for removed
// ones.
type MarkerChange struct {
	Name     string
	OldRange *model.Range
	NewRange *model.Range
}

// MarkerChanges returns the net marker updates since the last Reset, sorted
// by name. Markers whose range is unchanged are skipped.
func (d *Differ) MarkerChanges() []MarkerChange {
	var out []MarkerChange

	for name, st := range d.markers {
		if st.oldRange != nil && st.newRange != nil && rangesEqual(*st.oldRange, *st.newRange) {
			continue
		}

		out = append(out, MarkerChange{Name: name, OldRange: st.oldRange, NewRange: st.newRange})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

func rangesEqual(a, b model.Range) bool {
	return a.Start.IsEqual(b.Start) && a.End.IsEqual(b.End)
}

// BufferOperation records the effect of an operation that is about to
// execute. Offsets in the operation refer to the current tree, which is
// exactly the coordinate space the marks live in.
func (d *Differ) BufferOperation(op model.Operation) {
	d.valid = false

	switch o := op.(type) {
	case *model.InsertOperation:
		d.markInsert(o.Position, o.InsertedSize())
	case *model.MoveOperation:
		d.markRemoveSpan(o.Source, o.HowMany)
		d.markInsert(o.MovedRangeStart(), o.HowMany)
	case *model.RemoveOperation:
		d.markRemoveSpan(o.Source, o.HowMany)

		if o.NewHolder {
			// Only the fresh holder registers as inserted into the
			// graveyard; its contents are inside an inserted element and
			// are never reported individually.
			gy := d.doc.Graveyard()
			d.bufferMark(&gy.Element, markInsert, o.HolderIndex(), 1)
		} else {
			d.markInsert(o.MovedRangeStart(), o.HowMany)
		}
	case *model.ReinsertOperation:
		d.markRemoveSpan(o.Source, o.HowMany)
		d.markInsert(o.MovedRangeStart(), o.HowMany)
	case *model.AttributeOperation:
		flat, err := o.Range.MinimalFlatRanges()
		if err != nil {
			return
		}

		for _, r := range flat {
			d.markAttribute(r.Start, r.Length())
		}
	case *model.RenameOperation:
		d.markRemoveSpan(o.Position, 1)
		d.markInsert(o.Position, 1)
	}
}

func (d *Differ) markInsert(pos model.Position, howMany int) {
	parent, err := pos.ParentElement()
	if err != nil {
		return
	}

	d.bufferMark(parent, markInsert, pos.Offset(), howMany)
}

func (d *Differ) markRemoveSpan(pos model.Position, howMany int) {
	parent, err := pos.ParentElement()
	if err != nil {
		return
	}

	d.bufferMark(parent, markRemove, pos.Offset(), howMany)
}

func (d *Differ) markAttribute(pos model.Position, howMany int) {
	parent, err := pos.ParentElement()
	if err != nil {
		return
	}

	d.bufferMark(parent, markAttribute, pos.Offset(), howMany)
}

func (d *Differ) state(el *model.Element) *elementState {
	st, ok := d.elements[el]
	if !ok {
		st = &elementState{snapshot: expandChildren(el)}
		d.elements[el] = st
	}

	return st
}

func (d *Differ) bufferMark(el *model.Element, typ markType, offset, howMany int) {
	if howMany <= 0 {
		return
	}

	st := d.state(el)

	switch typ {
	case markInsert:
		st.applyInsert(offset, howMany, d.nextOrder())
	case markRemove:
		for i := 0; i < howMany; i++ {
			st.applyRemoveOne(offset, d.nextOrder())
		}
	case markAttribute:
		st.applyAttribute(offset, howMany, func() int { return d.nextOrder() })
	}
}

func (d *Differ) nextOrder() int {
	d.order++

	return d.order
}

// applyInsert reconciles an insertion of howMany items at offset against the
// pending marks. Insertion inside an already-inserted span grows that span
// instead of adding a new mark.
func (st *elementState) applyInsert(offset, howMany, order int) {
	absorbed := false

	var extra []*mark

	for _, m := range st.marks {
		switch m.typ {
		case markInsert:
			switch {
			case offset <= m.offset:
				m.offset += howMany
			case offset < m.offset+m.howMany:
				m.howMany += howMany
				absorbed = true
			}
		case markRemove:
			if m.offset > offset {
				m.offset += howMany
			}
		case markAttribute:
			switch {
			case offset <= m.offset:
				m.offset += howMany
			case offset < m.offset+m.howMany:
				// The insertion lands inside the attributed span: split it
				// around the new items, which report as plain inserts.
				right := &mark{
					typ:     markAttribute,
					offset:  offset + howMany,
					howMany: m.offset + m.howMany - offset,
					order:   order,
				}
				m.howMany = offset - m.offset
				extra = append(extra, right)
			}
		}
	}

	st.marks = append(st.marks, extra...)

	if !absorbed {
		st.marks = append(st.marks, &mark{typ: markInsert, offset: offset, howMany: howMany, order: order})
	}

	st.compact()
}

// applyRemoveOne reconciles the removal of the single item at offset.
// Removing an item that a pending insert produced cancels that part of the
// insert; removing a snapshot item records a remove mark.
func (st *elementState) applyRemoveOne(offset, order int) {
	wasInserted := false

	for _, m := range st.marks {
		switch m.typ {
		case markInsert:
			switch {
			case offset < m.offset:
				m.offset--
			case offset < m.offset+m.howMany:
				m.howMany--
				wasInserted = true
			}
		case markRemove:
			if m.offset > offset {
				m.offset--
			}
		case markAttribute:
			switch {
			case offset < m.offset:
				m.offset--
			case offset < m.offset+m.howMany:
				m.howMany--
			}
		}
	}

	if !wasInserted {
		st.marks = append(st.marks, &mark{typ: markRemove, offset: offset, howMany: 1, order: order})
	}

	st.compact()
}

// applyAttribute records an attribute change over [offset, offset+howMany),
// skipping the parts covered by pending inserts (those items report as
// inserts, attributes included) and parts already marked as changed.
func (st *elementState) applyAttribute(offset, howMany int, nextOrder func() int) {
	runStart := -1

	flush := func(end int) {
		if runStart >= 0 {
			st.marks = append(st.marks, &mark{typ: markAttribute, offset: runStart, howMany: end - runStart, order: nextOrder()})
			runStart = -1
		}
	}

	for i := offset; i < offset+howMany; i++ {
		if st.coveredBy(markInsert, i) || st.coveredBy(markAttribute, i) {
			flush(i)
			continue
		}

		if runStart < 0 {
			runStart = i
		}
	}

	flush(offset + howMany)
	st.compact()
}

func (st *elementState) coveredBy(typ markType, offset int) bool {
	for _, m := range st.marks {
		if m.typ == typ && m.offset <= offset && offset < m.offset+m.howMany {
			return true
		}
	}

	return false
}

// compact drops empty marks and merges remove marks that collapsed onto the
// same offset.
func (st *elementState) compact() {
	kept := st.marks[:0]

	for _, m := range st.marks {
		if m.howMany <= 0 {
			continue
		}

		merged := false

		if m.typ == markRemove {
			for _, prev := range kept {
				if prev.typ == markRemove && prev.offset == m.offset {
					prev.howMany += m.howMany

					if m.order < prev.order {
						prev.order = m.order
					}

					merged = true

					break
				}
			}
		}

		if !merged {
			kept = append(kept, m)
		}
	}

	st.marks = kept
}

// Changes computes the minimal change records for everything buffered since
// the last Reset. Graveyard content is excluded: removes already report the
// disappearance from the live tree. The result is cached until the next
// buffered operation.
func (d *Differ) Changes() []Change {
	if d.valid {
		return d.cached
	}

	d.cached = d.changes(false)
	d.valid = true

	return d.cached
}

// ChangesIncludingGraveyard is Changes with the graveyard roots reported
// too, for callers tracking removed content.
func (d *Differ) ChangesIncludingGraveyard() []Change {
	return d.changes(true)
}

func (d *Differ) changes(includeGraveyard bool) []Change {
	var out []Change

	for el, st := range d.elements {
		if len(st.marks) == 0 {
			continue
		}

		root, ok := d.doc.RootOf(el)
		if !ok {
			continue
		}

		if !includeGraveyard && root == d.doc.Graveyard() {
			continue
		}

		if d.isInInsertedElement(el) {
			continue
		}

		out = append(out, d.elementChanges(el, st, root)...)
	}

	sortChanges(out)

	return coalesceChanges(out)
}

// isInInsertedElement walks up the tree checking whether any ancestor lies
// inside a span some tracked parent reports as inserted. Such elements are
// covered by the ancestor's insert record.
func (d *Differ) isInInsertedElement(el *model.Element) bool {
	parent := el.Parent()
	if parent == nil {
		return false
	}

	if st, ok := d.elements[parent]; ok {
		if off, found := startOffsetIn(parent, el); found && st.coveredBy(markInsert, off) {
			return true
		}
	}

	return d.isInInsertedElement(parent)
}

func startOffsetIn(parent, child *model.Element) (int, bool) {
	offset := 0

	for i := 0; i < parent.ChildCount(); i++ {
		c := parent.Child(i)
		if c == model.Node(child) {
			return offset, true
		}

		offset += c.OffsetSize()
	}

	return 0, false
}

// action tape symbols: equal, insert, remove, attribute.
const (
	actEqual     = 'e'
	actInsert    = 'i'
	actRemove    = 'r'
	actAttribute = 'a'
)

func (d *Differ) elementChanges(el *model.Element, st *elementState, root *model.RootElement) []Change {
	marks := append([]*mark{}, st.marks...)

	sort.SliceStable(marks, func(i, j int) bool {
		if marks[i].offset != marks[j].offset {
			return marks[i].offset < marks[j].offset
		}

		if marks[i].typ != marks[j].typ {
			return marks[i].typ < marks[j].typ
		}

		return marks[i].order < marks[j].order
	})

	actions := actionTape(len(st.snapshot), marks)

	oldItems := st.snapshot
	newItems := expandChildren(el)
	path := model.PathOf(el)

	pos := func(offset int) model.Position {
		p := append(append([]int{}, path...), offset)

		return model.NewPosition(root, p, model.SticksToNone)
	}

	var out []Change

	i, j := 0, 0

	for _, act := range actions {
		switch act {
		case actInsert:
			if j >= len(newItems) {
				continue
			}

			out = append(out, Change{
				Type:     ChangeInsert,
				Position: pos(j),
				Name:     newItems[j].name,
				Length:   1,
			})
			j++
		case actRemove:
			if i >= len(oldItems) {
				continue
			}

			out = append(out, Change{
				Type:     ChangeRemove,
				Position: pos(j),
				Name:     oldItems[i].name,
				Length:   1,
			})
			i++
		case actAttribute:
			if i < len(oldItems) && j < len(newItems) {
				out = append(out, attributeRecords(oldItems[i], newItems[j], pos(j))...)
			}
			i++
			j++
		default:
			i++
			j++
		}
	}

	return out
}

// actionTape flattens the sorted marks into a per-item action sequence over
// the old child list, edit-script style: the tape visits old items in
// order, interleaving inserts at their current offsets.
func actionTape(oldLen int, marks []*mark) []byte {
	var tape []byte

	offset := 0
	oldHandled := 0

	push := func(b byte, n int) {
		for k := 0; k < n; k++ {
			tape = append(tape, b)
		}
	}

	for _, m := range marks {
		if m.offset > offset {
			push(actEqual, m.offset-offset)
			oldHandled += m.offset - offset
			offset = m.offset
		}

		switch m.typ {
		case markInsert:
			push(actInsert, m.howMany)
			offset += m.howMany
		case markRemove:
			push(actRemove, m.howMany)
			oldHandled += m.howMany
		case markAttribute:
			push(actAttribute, m.howMany)
			oldHandled += m.howMany
			offset += m.howMany
		}
	}

	if oldLen > oldHandled {
		push(actEqual, oldLen-oldHandled)
	}

	return tape
}

func attributeRecords(oldItem, newItem item, at model.Position) []Change {
	var out []Change

	r := model.RangeFromPositionAndShift(at, 1)

	seen := make(map[string]bool)

	for key, oldVal := range oldItem.attrs {
		seen[key] = true

		newVal, has := newItem.attrs[key]
		if !has {
			out = append(out, Change{Type: ChangeAttribute, Range: r, Key: key, OldValue: oldVal, NewValue: nil})
		} else if !reflect.DeepEqual(oldVal, newVal) {
			out = append(out, Change{Type: ChangeAttribute, Range: r, Key: key, OldValue: oldVal, NewValue: newVal})
		}
	}

	for key, newVal := range newItem.attrs {
		if !seen[key] {
			out = append(out, Change{Type: ChangeAttribute, Range: r, Key: key, OldValue: nil, NewValue: newVal})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out
}

func expandChildren(el *model.Element) []item {
	var out []item

	for i := 0; i < el.ChildCount(); i++ {
		switch c := el.Child(i).(type) {
		case *model.Text:
			attrs := c.Attributes()
			for _, r := range c.Data() {
				out = append(out, item{name: TextItemName, data: r, attrs: attrs})
			}
		case *model.Element:
			out = append(out, item{name: c.Name(), attrs: c.Attributes()})
		}
	}

	return out
}

func sortChanges(changes []Change) {
	sort.SliceStable(changes, func(i, j int) bool {
		pi, pj := changePosition(changes[i]), changePosition(changes[j])

		if pi.Root != pj.Root {
			return pi.Root.RootName() < pj.Root.RootName()
		}

		switch pi.Compare(pj) {
		case model.Before:
			return true
		case model.After:
			return false
		}

		return changes[i].Type < changes[j].Type
	})
}

func changePosition(c Change) model.Position {
	if c.Type == ChangeAttribute {
		return c.Range.Start
	}

	return c.Position
}

// coalesceChanges merges adjacent per-item records into spans: consecutive
// text inserts become one insert of the combined length, same for removes,
// and attribute records with the same key and values join their ranges.
func coalesceChanges(changes []Change) []Change {
	var out []Change

	for _, c := range changes {
		if len(out) > 0 {
			last := &out[len(out)-1]

			if mergeChange(last, c) {
				continue
			}
		}

		out = append(out, c)
	}

	return out
}

func mergeChange(last *Change, next Change) bool {
	if last.Type != next.Type {
		return false
	}

	switch next.Type {
	case ChangeInsert:
		if last.Name != TextItemName || next.Name != TextItemName {
			return false
		}

		if !next.Position.IsEqual(last.Position.ShiftedBy(last.Length)) {
			return false
		}

		last.Length += next.Length

		return true
	case ChangeRemove:
		if last.Name != TextItemName || next.Name != TextItemName {
			return false
		}

		// Removed items all collapse onto the same current position.
		if !next.Position.IsEqual(last.Position) {
			return false
		}

		last.Length += next.Length

		return true
	default:
		if last.Key != next.Key ||
			!reflect.DeepEqual(last.OldValue, next.OldValue) ||
			!reflect.DeepEqual(last.NewValue, next.NewValue) {
			return false
		}

		if !next.Range.Start.IsEqual(last.Range.End) {
			return false
		}

		last.Range.End = next.Range.End

		return true
	}
}
