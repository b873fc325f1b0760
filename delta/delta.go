// Package delta groups low-level operations into named semantic edits and
// implements their pairwise transformation, so concurrent edits against the
// same document version can be rebased onto each other.
package delta

import (
	"fmt"

	"github.com/pkaleta/treedoc/model"
)

// Kind tags the closed set of delta variants.
type Kind int

const (
	// Plain is an unnamed group of operations.
	Plain Kind = iota
	// Insert inserts nodes.
	Insert
	// WeakInsert inserts nodes that inherit formatting attributes from
	// their surroundings; attribute transforms treat it specially.
	WeakInsert
	// Remove moves content into the graveyard.
	Remove
	// Move relocates content within the live tree.
	Move
	// Attribute changes an attribute over a range.
	Attribute
	// Split splits one element into two adjacent elements.
	Split
	// Merge merges two adjacent elements into one.
	Merge
	// Rename changes an element's name.
	Rename
	// Wrap wraps a flat span of content in a new element.
	Wrap
	// Unwrap replaces an element with its children.
	Unwrap
)

// Delta is an ordered, named group of operations representing one semantic
// user action. Deltas are the unit of transformation.
type Delta struct {
	kind  Kind
	ops   []model.Operation
	batch *Batch
}

// New creates an empty delta of the given kind.
func New(kind Kind) *Delta {
	return &Delta{kind: kind}
}

// Kind returns the delta's variant tag.
func (d *Delta) Kind() Kind {
	return d.kind
}

// Operations returns the delta's operations in execution order. The slice is
// owned by the delta and must not be modified.
func (d *Delta) Operations() []model.Operation {
	return d.ops
}

// Batch returns the batch this delta belongs to, if any.
func (d *Delta) Batch() *Batch {
	return d.batch
}

// AddOperation appends an operation to the delta.
func (d *Delta) AddOperation(op model.Operation) {
	d.ops = append(d.ops, op)
}

// BaseVersion returns the first operation's base version, or -1 for an empty
// delta.
func (d *Delta) BaseVersion() int {
	if len(d.ops) == 0 {
		return -1
	}

	return d.ops[0].BaseVersion()
}

// Clone deep-copies the delta and its operations.
func (d *Delta) Clone() *Delta {
	out := &Delta{kind: d.kind, batch: d.batch}
	for _, op := range d.ops {
		out.ops = append(out.ops, op.Clone())
	}

	return out
}

// Reversed returns a delta undoing this one when applied right after it:
// every operation reversed, in reverse order, renumbered sequentially.
func (d *Delta) Reversed() *Delta {
	out := &Delta{kind: reversedKind(d.kind)}

	v := d.BaseVersion() + len(d.ops)
	for i := len(d.ops) - 1; i >= 0; i-- {
		rev := d.ops[i].Reversed()
		rev.SetBaseVersion(v)
		v++

		out.ops = append(out.ops, rev)
	}

	return out
}

func reversedKind(k Kind) Kind {
	switch k {
	case Insert, WeakInsert:
		return Remove
	case Remove:
		return Insert
	case Split:
		return Merge
	case Merge:
		return Split
	case Wrap:
		return Unwrap
	case Unwrap:
		return Wrap
	default:
		return k
	}
}

// renumberFrom rewrites the delta's operation base versions sequentially,
// returning the next free version.
func (d *Delta) renumberFrom(v int) int {
	for _, op := range d.ops {
		op.SetBaseVersion(v)
		v++
	}

	return v
}

// RenumberFrom rewrites base versions across a list of deltas sequentially,
// returning the next free version.
func RenumberFrom(deltas []*Delta, v int) int {
	for _, d := range deltas {
		v = d.renumberFrom(v)
	}

	return v
}

// NewInsert creates a delta inserting nodes at a position.
func NewInsert(pos model.Position, nodes []model.Node, baseVersion int) *Delta {
	d := New(Insert)
	d.AddOperation(model.NewInsertOperation(pos, nodes, baseVersion))

	return d
}

// NewWeakInsert creates an insert delta whose nodes carry formatting copied
// from the insertion context, so concurrent attribute changes spread onto
// them.
func NewWeakInsert(pos model.Position, nodes []model.Node, baseVersion int) *Delta {
	d := New(WeakInsert)
	d.AddOperation(model.NewInsertOperation(pos, nodes, baseVersion))

	return d
}

// NewMove creates a delta moving a flat span of content.
func NewMove(source model.Position, howMany int, target model.Position, baseVersion int) *Delta {
	d := New(Move)
	d.AddOperation(model.NewMoveOperation(source, howMany, target, baseVersion))

	return d
}

// NewRemove creates a delta removing everything in the given range into a
// single graveyard holder. The range is decomposed into minimal flat
// sub-ranges, removed back to front so earlier offsets stay valid; only the
// delta's first remove creates the holder.
func NewRemove(doc *model.Document, r model.Range, baseVersion int) (*Delta, error) {
	flat, err := r.MinimalFlatRanges()
	if err != nil {
		return nil, fmt.Errorf("remove delta: %w", err)
	}

	d := New(Remove)
	gy := doc.Graveyard()
	holderIndex := gy.ChildCount()

	v := baseVersion

	for i := len(flat) - 1; i >= 0; i-- {
		op := &model.RemoveOperation{
			Source:    flat[i].Start,
			HowMany:   flat[i].Length(),
			Target:    model.NewPosition(gy, []int{holderIndex, 0}, model.SticksToNone),
			NewHolder: len(d.ops) == 0,
		}
		op.SetBaseVersion(v)
		v++

		d.AddOperation(op)
	}

	return d, nil
}

// NewAttribute creates a delta setting an attribute across a range: one
// operation per minimal flat sub-range.
func NewAttribute(r model.Range, key string, oldValue, newValue any, baseVersion int) (*Delta, error) {
	flat, err := r.MinimalFlatRanges()
	if err != nil {
		return nil, fmt.Errorf("attribute delta: %w", err)
	}

	d := New(Attribute)

	v := baseVersion
	for _, fr := range flat {
		d.AddOperation(model.NewAttributeOperation(fr, key, oldValue, newValue, v))
		v++
	}

	return d, nil
}

// NewRename creates a delta renaming the element at the given position.
func NewRename(pos model.Position, oldName, newName string, baseVersion int) *Delta {
	d := New(Rename)
	d.AddOperation(model.NewRenameOperation(pos, oldName, newName, baseVersion))

	return d
}

// NewSplit creates a delta splitting the element containing pos at pos: a
// fresh sibling of the same name is inserted after it, then the tail
// children move into the sibling. The two operations transform atomically.
func NewSplit(pos model.Position, baseVersion int) (*Delta, error) {
	parent, err := pos.ParentElement()
	if err != nil {
		return nil, fmt.Errorf("split delta: %w", err)
	}

	parentPath := pos.ParentPath()
	if len(parentPath) == 0 {
		return nil, fmt.Errorf("split delta: cannot split a root: %w", model.ErrInvalidPosition)
	}

	grandPath := parentPath[:len(parentPath)-1]
	parentOffset := parentPath[len(parentPath)-1]

	insertPos := model.NewPosition(pos.Root, appendPath(grandPath, parentOffset+1), model.SticksToNone)
	targetPos := model.NewPosition(pos.Root, appendPath(grandPath, parentOffset+1, 0), model.SticksToNone)

	d := New(Split)
	d.AddOperation(model.NewInsertOperation(insertPos, []model.Node{model.NewElement(parent.Name(), nil)}, baseVersion))
	d.AddOperation(model.NewMoveOperation(pos, parent.MaxOffset()-pos.Offset(), targetPos, baseVersion+1))

	return d, nil
}

// SplitPosition returns the position a split delta divides its element at,
// derived from the internal move's source position.
func (d *Delta) SplitPosition() (model.Position, bool) {
	if d.kind != Split || len(d.ops) != 2 {
		return model.Position{}, false
	}

	move, ok := d.ops[1].(*model.MoveOperation)
	if !ok {
		return model.Position{}, false
	}

	return move.Source.Clone(), true
}

// NewMerge creates a delta merging the elements adjacent to pos: the right
// element's children move to the end of the left element, then the emptied
// right element is removed.
func NewMerge(doc *model.Document, pos model.Position, baseVersion int) (*Delta, error) {
	left, right, err := mergeCandidates(pos)
	if err != nil {
		return nil, err
	}

	parentPath := pos.ParentPath()

	source := model.NewPosition(pos.Root, appendPath(parentPath, pos.Offset(), 0), model.SticksToNone)
	target := model.NewPosition(pos.Root, appendPath(parentPath, pos.Offset()-1, left.MaxOffset()), model.SticksToNone)

	d := New(Merge)
	d.AddOperation(model.NewMoveOperation(source, right.MaxOffset(), target, baseVersion))

	removeOp := model.NewRemoveOperation(doc, pos, 1, baseVersion+1)
	d.AddOperation(removeOp)

	return d, nil
}

// mergeCandidates resolves the two elements the merge position sits between.
func mergeCandidates(pos model.Position) (left, right *model.Element, err error) {
	if pos.Offset() == 0 {
		return nil, nil, fmt.Errorf("merge delta: no element before position: %w", model.ErrInvalidPosition)
	}

	rightNode, err := pos.NodeAfter()
	if err != nil {
		return nil, nil, fmt.Errorf("merge delta: %w", err)
	}

	leftNode, err := pos.ShiftedBy(-1).NodeAfter()
	if err != nil {
		return nil, nil, fmt.Errorf("merge delta: %w", err)
	}

	left, leftOK := leftNode.(*model.Element)
	right, rightOK := rightNode.(*model.Element)

	if !leftOK || !rightOK {
		return nil, nil, fmt.Errorf("merge delta: positions around the merge point must address elements: %w", model.ErrNotAnElement)
	}

	return left, right, nil
}

// MergePosition returns the seam position of a merge delta, derived from the
// internal remove's source position.
func (d *Delta) MergePosition() (model.Position, bool) {
	if d.kind != Merge || len(d.ops) != 2 {
		return model.Position{}, false
	}

	remove, ok := d.ops[1].(*model.RemoveOperation)
	if !ok {
		return model.Position{}, false
	}

	return remove.Source.Clone(), true
}

// NewWrap creates a delta wrapping a flat range in a new element of the
// given name.
func NewWrap(r model.Range, wrapperName string, baseVersion int) (*Delta, error) {
	if !r.IsFlat() {
		return nil, fmt.Errorf("wrap delta: range is not flat: %w", model.ErrInvalidPosition)
	}

	wrapper := model.NewElement(wrapperName, nil)

	target := model.NewPosition(r.Start.Root, appendPath(r.Start.ParentPath(), r.End.Offset(), 0), model.SticksToNone)

	d := New(Wrap)
	d.AddOperation(model.NewInsertOperation(r.End, []model.Node{wrapper}, baseVersion))
	d.AddOperation(model.NewMoveOperation(r.Start, r.Length(), target, baseVersion+1))

	return d, nil
}

// NewUnwrap creates a delta replacing the element at pos with its children.
func NewUnwrap(doc *model.Document, pos model.Position, baseVersion int) (*Delta, error) {
	node, err := pos.NodeAfter()
	if err != nil {
		return nil, fmt.Errorf("unwrap delta: %w", err)
	}

	el, ok := node.(*model.Element)
	if !ok {
		return nil, fmt.Errorf("unwrap delta: %w", model.ErrNotAnElement)
	}

	howMany := el.MaxOffset()
	source := model.NewPosition(pos.Root, appendPath(pos.ParentPath(), pos.Offset(), 0), model.SticksToNone)

	d := New(Unwrap)
	d.AddOperation(model.NewMoveOperation(source, howMany, pos, baseVersion))

	emptiedPos := pos.ShiftedBy(howMany)
	d.AddOperation(model.NewRemoveOperation(doc, emptiedPos, 1, baseVersion+1))

	return d, nil
}

func appendPath(prefix []int, tail ...int) []int {
	out := make([]int, 0, len(prefix)+len(tail))
	out = append(out, prefix...)
	out = append(out, tail...)

	return out
}
