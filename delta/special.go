package delta

import (
	"github.com/pkaleta/treedoc/model"
)

// kindPair keys the special-case table by the kinds of the transformed and
// the context delta.
type kindPair struct {
	a, b Kind
}

// specialCaseFunc resolves one delta-kind pair. Returning handled == false
// falls back to the operation-level default transform, so a handler only
// claims the pair when its precondition actually holds.
type specialCaseFunc func(a, b *Delta, aIsStrong bool) (out []*Delta, handled bool)

// specialCases holds the transforms that must see whole deltas to keep
// their semantics intact. Every entry is registered together with its
// mirrored pair, so both transform orders agree on the outcome.
var specialCases = map[kindPair]specialCaseFunc{
	{Split, Split}: transformSplitSplit,

	{Merge, Insert}:     transformMergeInsert,
	{Merge, WeakInsert}: transformMergeInsert,
	{Insert, Merge}:     transformInsertMerge,
	{WeakInsert, Merge}: transformInsertMerge,

	{Merge, Move}:   transformMergeMove,
	{Merge, Remove}: transformMergeMove,
	{Move, Merge}:   transformMoveMerge,
	{Remove, Merge}: transformMoveMerge,

	{Attribute, WeakInsert}: transformAttributeWeakInsert,
	{WeakInsert, Attribute}: transformWeakInsertAttribute,
}

func noopDelta(a *Delta) *Delta {
	d := New(Plain)
	d.AddOperation(model.NewNoOperation(a.BaseVersion()))

	return d
}

func firstInsertOp(d *Delta) (*model.InsertOperation, bool) {
	for _, op := range d.ops {
		if ins, ok := op.(*model.InsertOperation); ok {
			return ins, true
		}
	}

	return nil, false
}

// transformSplitSplit resolves two concurrent splits of the same element.
// Splits of different elements fall back to the default transform.
func transformSplitSplit(a, b *Delta, _ bool) ([]*Delta, bool) {
	pa, okA := a.SplitPosition()
	pb, okB := b.SplitPosition()

	if !okA || !okB {
		return nil, false
	}

	if pa.Root != pb.Root || !samePathInts(pa.ParentPath(), pb.ParentPath()) {
		return nil, false
	}

	oa, ob := pa.Offset(), pb.Offset()

	switch {
	case oa == ob:
		// Identical splits: the element is already divided exactly where a
		// wanted it.
		return []*Delta{noopDelta(a)}, true
	case oa < ob:
		// b already carried away the content past its split point, so a
		// moves only what is left between the two points.
		out := a.Clone()
		out.ops[1].(*model.MoveOperation).HowMany = ob - oa

		return []*Delta{out}, true
	default:
		// a's split point now lives inside the element b created, so a
		// splits that element instead.
		parentPath := pa.ParentPath()
		grand := parentPath[:len(parentPath)-1]
		idx := parentPath[len(parentPath)-1]

		out := a.Clone()
		ins := out.ops[0].(*model.InsertOperation)
		move := out.ops[1].(*model.MoveOperation)

		ins.Position = model.NewPosition(pa.Root, appendPath(grand, idx+2), model.SticksToNone)
		move.Source = model.NewPosition(pa.Root, appendPath(grand, idx+1, oa-ob), model.SticksToNone)
		move.Target = model.NewPosition(pa.Root, appendPath(grand, idx+2, 0), model.SticksToNone)

		return []*Delta{out}, true
	}
}

// transformMergeInsert drops a merge whose seam received concurrently
// inserted content: the elements are no longer adjacent.
func transformMergeInsert(a, b *Delta, _ bool) ([]*Delta, bool) {
	seam, ok := a.MergePosition()
	if !ok {
		return nil, false
	}

	ins, ok := firstInsertOp(b)
	if !ok || !ins.Position.IsEqual(seam) {
		return nil, false
	}

	return []*Delta{noopDelta(a)}, true
}

// transformInsertMerge is the mirror of transformMergeInsert: the insert
// wins, so the already-applied merge is undone first.
func transformInsertMerge(a, b *Delta, _ bool) ([]*Delta, bool) {
	seam, ok := b.MergePosition()
	if !ok {
		return nil, false
	}

	ins, ok := firstInsertOp(a)
	if !ok || !ins.Position.IsEqual(seam) {
		return nil, false
	}

	return []*Delta{b.Reversed(), a.Clone()}, true
}

// transformMergeMove drops a merge when the other delta moved away either
// of the two elements it joins.
func transformMergeMove(a, b *Delta, _ bool) ([]*Delta, bool) {
	seam, ok := a.MergePosition()
	if !ok {
		return nil, false
	}

	left := seam.ShiftedBy(-1)

	for _, op := range b.ops {
		bv, isMove := asMoveView(op)
		if !isMove {
			continue
		}

		if moveTakesElement(bv, seam) || moveTakesElement(bv, left) {
			return []*Delta{noopDelta(a)}, true
		}
	}

	return nil, false
}

// transformMoveMerge is the mirror of transformMergeMove: the move wins, so
// the merge is undone before the move applies as intended.
func transformMoveMerge(a, b *Delta, _ bool) ([]*Delta, bool) {
	seam, ok := b.MergePosition()
	if !ok {
		return nil, false
	}

	left := seam.ShiftedBy(-1)

	for _, op := range a.ops {
		av, isMove := asMoveView(op)
		if !isMove {
			continue
		}

		if moveTakesElement(av, seam) || moveTakesElement(av, left) {
			return []*Delta{b.Reversed(), a.Clone()}, true
		}
	}

	return nil, false
}

// moveTakesElement reports whether the moved span covers the element the
// position points at.
func moveTakesElement(v moveView, p model.Position) bool {
	if v.source.Root != p.Root || !samePathInts(v.source.ParentPath(), p.ParentPath()) {
		return false
	}

	off := p.Offset()

	return v.source.Offset() <= off && off < v.source.Offset()+v.howMany
}

// transformAttributeWeakInsert extends an attribute change over weakly
// inserted content that landed inside its range, so the insertion behaves
// as if the content had been there when the attribute was set.
func transformAttributeWeakInsert(a, b *Delta, aIsStrong bool) ([]*Delta, bool) {
	ins, ok := firstInsertOp(b)
	if !ok || len(ins.Nodes) == 0 {
		return nil, false
	}

	var extras []*Delta

	for _, op := range a.ops {
		attr, isAttr := op.(*model.AttributeOperation)
		if !isAttr || !attr.Range.ContainsPosition(ins.Position) {
			continue
		}

		r := model.RangeFromPositionAndShift(ins.Position, ins.InsertedSize())

		// The inserted nodes carry their own value for the key, not the
		// one the surrounding range had before the attribute change.
		old := nodeAttributeValue(ins.Nodes[0], attr.Key)

		extra := New(Attribute)
		extra.AddOperation(model.NewAttributeOperation(r, attr.Key, old, attr.NewValue, a.BaseVersion()))
		extras = append(extras, extra)
	}

	if len(extras) == 0 {
		return nil, false
	}

	return append([]*Delta{defaultTransform(a, b, aIsStrong)}, extras...), true
}

// transformWeakInsertAttribute is the mirror of transformAttributeWeakInsert:
// the inserted nodes pick up the attribute value the other delta set over
// the surrounding range.
func transformWeakInsertAttribute(a, b *Delta, aIsStrong bool) ([]*Delta, bool) {
	ins, ok := firstInsertOp(a)
	if !ok {
		return nil, false
	}

	var matched *model.AttributeOperation

	for _, op := range b.ops {
		if attr, isAttr := op.(*model.AttributeOperation); isAttr && attr.Range.ContainsPosition(ins.Position) {
			matched = attr
			break
		}
	}

	if matched == nil {
		return nil, false
	}

	out := defaultTransform(a, b, aIsStrong)

	if outIns, hasIns := firstInsertOp(out); hasIns {
		for _, n := range outIns.Nodes {
			setNodeAttribute(n, matched.Key, matched.NewValue)
		}
	}

	return []*Delta{out}, true
}

func setNodeAttribute(n model.Node, key string, value any) {
	switch node := n.(type) {
	case *model.Element:
		node.SetAttribute(key, value)
	case *model.Text:
		node.SetAttribute(key, value)
	}
}

func nodeAttributeValue(n model.Node, key string) any {
	switch node := n.(type) {
	case *model.Element:
		v, _ := node.Attribute(key)

		return v
	case *model.Text:
		v, _ := node.Attribute(key)

		return v
	}

	return nil
}
