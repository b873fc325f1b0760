package delta

import (
	"github.com/pkaleta/treedoc/model"
)

// Transform rewrites delta a so it applies after delta b, where both were
// authored against the same document version. aIsStrong breaks ties when the
// two deltas compete for the same spot. The result is one or more deltas,
// renumbered sequentially to follow b.
//
// Transform never fails: every operation-type pair has a defined outcome,
// falling back to an identity clone (or a no-op) when nothing else applies.
// Malformed input, such as operations from inconsistent histories, is the
// caller's contract to prevent.
func Transform(a, b *Delta, aIsStrong bool) []*Delta {
	var out []*Delta

	if fn, ok := specialCases[kindPair{a.kind, b.kind}]; ok {
		if res, handled := fn(a, b, aIsStrong); handled {
			out = res
		}
	}

	if out == nil {
		out = []*Delta{defaultTransform(a, b, aIsStrong)}
	}

	if a.BaseVersion() >= 0 {
		RenumberFrom(out, a.BaseVersion()+len(b.ops))
	}

	return out
}

// defaultTransform transforms every operation of a against every operation
// of b, in order.
func defaultTransform(a, b *Delta, aIsStrong bool) *Delta {
	ops := make([]model.Operation, 0, len(a.ops))
	for _, op := range a.ops {
		ops = append(ops, op.Clone())
	}

	for _, opB := range b.ops {
		var next []model.Operation
		for _, opA := range ops {
			next = append(next, transformOp(opA, opB, aIsStrong)...)
		}

		ops = next
	}

	out := &Delta{kind: a.kind, ops: ops}

	return out
}

// transformOp transforms a single operation against another. It is total:
// unrelated pairs return a clone of a.
func transformOp(a, b model.Operation, aStrong bool) []model.Operation {
	if a.Kind() == model.OpNoOp || b.Kind() == model.OpNoOp {
		return []model.Operation{a.Clone()}
	}

	switch op := a.(type) {
	case *model.InsertOperation:
		return transformInsertBy(op, b, aStrong)
	case *model.AttributeOperation:
		return transformAttributeBy(op, b, aStrong)
	case *model.RenameOperation:
		return transformRenameBy(op, b, aStrong)
	default:
		if av, ok := asMoveView(a); ok {
			return transformMoveBy(av, b, aStrong)
		}

		return []model.Operation{a.Clone()}
	}
}

// moveView is a uniform view over the move-family operations.
type moveView struct {
	op        model.Operation
	kind      model.OpKind
	source    model.Position
	howMany   int
	target    model.Position
	isSticky  bool
	newHolder bool
}

func asMoveView(op model.Operation) (moveView, bool) {
	switch o := op.(type) {
	case *model.MoveOperation:
		return moveView{op: op, kind: model.OpMove, source: o.Source, howMany: o.HowMany, target: o.Target, isSticky: o.IsSticky}, true
	case *model.RemoveOperation:
		return moveView{op: op, kind: model.OpRemove, source: o.Source, howMany: o.HowMany, target: o.Target, newHolder: o.NewHolder}, true
	case *model.ReinsertOperation:
		return moveView{op: op, kind: model.OpReinsert, source: o.Source, howMany: o.HowMany, target: o.Target}, true
	default:
		return moveView{}, false
	}
}

// build creates a concrete operation of the view's kind with new
// coordinates. The base version carries over and is renumbered by the delta
// driver.
func (v moveView) build(source model.Position, howMany int, target model.Position, newHolder bool) model.Operation {
	var out model.Operation

	switch v.kind {
	case model.OpRemove:
		out = &model.RemoveOperation{Source: source.Clone(), HowMany: howMany, Target: target.Clone(), NewHolder: newHolder}
	case model.OpReinsert:
		out = &model.ReinsertOperation{Source: source.Clone(), HowMany: howMany, Target: target.Clone()}
	default:
		out = &model.MoveOperation{Source: source.Clone(), HowMany: howMany, Target: target.Clone(), IsSticky: v.isSticky}
	}

	out.SetBaseVersion(v.op.BaseVersion())

	return out
}

func transformInsertBy(a *model.InsertOperation, b model.Operation, aStrong bool) []model.Operation {
	out := a.Clone().(*model.InsertOperation)

	switch op := b.(type) {
	case *model.InsertOperation:
		out.Position = out.Position.TransformedByInsertion(op.Position, op.InsertedSize(), !aStrong)
	default:
		if bv, ok := asMoveView(b); ok {
			pos := holderAdjustedPos(out.Position, moveView{}, bv, aStrong)
			out.Position = pos.TransformedByMove(bv.source, bv.target, bv.howMany, !aStrong, false)
		}
	}

	return []model.Operation{out}
}

func transformAttributeBy(a *model.AttributeOperation, b model.Operation, aStrong bool) []model.Operation {
	switch op := b.(type) {
	case *model.InsertOperation:
		ranges := a.Range.TransformedByInsertion(op.Position, op.InsertedSize(), true, false)

		return attributeOpsForRanges(a, ranges)
	case *model.AttributeOperation:
		return transformAttributeAttribute(a, op, aStrong)
	default:
		if bv, ok := asMoveView(b); ok {
			ranges := a.Range.TransformedByMove(bv.source, bv.target, bv.howMany, true)

			return attributeOpsForRanges(a, ranges)
		}

		return []model.Operation{a.Clone()}
	}
}

func attributeOpsForRanges(a *model.AttributeOperation, ranges []model.Range) []model.Operation {
	var out []model.Operation

	for _, r := range ranges {
		if r.IsCollapsed() {
			continue
		}

		out = append(out, model.NewAttributeOperation(r, a.Key, a.OldValue, a.NewValue, a.BaseVersion()))
	}

	if len(out) == 0 {
		out = append(out, model.NewNoOperation(a.BaseVersion()))
	}

	return out
}

// transformAttributeAttribute resolves two concurrent changes of the same
// attribute: the loser keeps only the difference of the ranges; the winner
// additionally rewrites the common part, with its old value updated to what
// the loser has already set there.
func transformAttributeAttribute(a, b *model.AttributeOperation, aStrong bool) []model.Operation {
	if a.Key != b.Key || !a.Range.IsIntersecting(b.Range) {
		return []model.Operation{a.Clone()}
	}

	var out []model.Operation

	for _, r := range a.Range.Difference(b.Range) {
		out = append(out, model.NewAttributeOperation(r, a.Key, a.OldValue, a.NewValue, a.BaseVersion()))
	}

	if common, ok := a.Range.Intersection(b.Range); ok && aStrong {
		out = append(out, model.NewAttributeOperation(common, a.Key, b.NewValue, a.NewValue, a.BaseVersion()))
	}

	if len(out) == 0 {
		out = append(out, model.NewNoOperation(a.BaseVersion()))
	}

	return out
}

func transformRenameBy(a *model.RenameOperation, b model.Operation, aStrong bool) []model.Operation {
	out := a.Clone().(*model.RenameOperation)

	switch op := b.(type) {
	case *model.InsertOperation:
		out.Position = out.Position.TransformedByInsertion(op.Position, op.InsertedSize(), true)
	case *model.RenameOperation:
		if a.Position.IsEqual(op.Position) {
			if !aStrong {
				return []model.Operation{model.NewNoOperation(a.BaseVersion())}
			}

			out.OldName = op.NewName
		}
	default:
		if bv, ok := asMoveView(b); ok {
			out.Position = movedElementPosition(out.Position, bv)
		}
	}

	return []model.Operation{out}
}

// movedElementPosition transforms a position that addresses an element (not
// a boundary) by a move: when the element itself is part of the moved span,
// the position follows it to the new location.
func movedElementPosition(p model.Position, b moveView) model.Position {
	insertPos, ok := b.target.TransformedByDeletion(b.source, b.howMany)
	if !ok {
		insertPos = b.target
	}

	if samePathInts(p.ParentPath(), b.source.ParentPath()) && p.Root == b.source.Root {
		off := p.Offset()
		if b.source.Offset() <= off && off < b.source.Offset()+b.howMany {
			return p.Combined(b.source, insertPos)
		}
	}

	return p.TransformedByMove(b.source, b.target, b.howMany, true, false)
}

func transformMoveBy(a moveView, b model.Operation, aStrong bool) []model.Operation {
	switch op := b.(type) {
	case *model.InsertOperation:
		moveRange := model.RangeFromPositionAndShift(a.source, a.howMany)

		r := moveRange.TransformedByInsertion(op.Position, op.InsertedSize(), false, a.isSticky)[0]
		target := a.target.TransformedByInsertion(op.Position, op.InsertedSize(), !aStrong)

		return []model.Operation{a.build(r.Start, r.Length(), target, a.newHolder)}
	default:
		if bv, ok := asMoveView(b); ok {
			return transformMoveMove(a, bv, aStrong)
		}

		return []model.Operation{a.op.Clone()}
	}
}

// transformMoveMove is the richest pair: two concurrent moves over possibly
// overlapping content.
func transformMoveMove(a, b moveView, aStrong bool) []model.Operation {
	if b.howMany == 0 || a.howMany == 0 {
		return []model.Operation{a.op.Clone()}
	}

	rangeA := model.RangeFromPositionAndShift(a.source, a.howMany)
	rangeB := model.RangeFromPositionAndShift(b.source, b.howMany)

	// Both targets point inside the other's moved range. No general
	// resolution exists for this deadlock, so the policy is to undo b and
	// then apply a as originally intended.
	if rangeA.ContainsPosition(b.target) && rangeB.ContainsPosition(a.target) {
		return []model.Operation{b.op.Reversed(), a.op.Clone()}
	}

	// b rearranged content strictly within the span a relocates: the moves
	// do not conflict and a keeps its shape, avoiding a spurious split.
	if rangeA.ContainsRange(rangeB) && rangeA.ContainsPosition(b.target) {
		return []model.Operation{a.op.Clone()}
	}

	insertPosB, ok := b.target.TransformedByDeletion(b.source, b.howMany)
	if !ok {
		insertPosB = b.target.Clone()
	}

	// Mirror of the case above: a rearranges content strictly within the
	// span b relocates, so a follows the relocation wholesale and keeps its
	// shape inside the moved content.
	if rangeB.ContainsRange(rangeA) && rangeB.ContainsPosition(a.target) {
		source := a.source.Combined(b.source, insertPosB)
		target := a.target.Combined(b.source, insertPosB)

		return []model.Operation{a.build(source, a.howMany, target, a.newHolder)}
	}

	// A deeper-nested move is taken to rearrange content inside whatever
	// the outer move relocates, so it wins the common part outright.
	strongForCommon := aStrong

	switch {
	case isDeeperThan(a.source, b.source):
		strongForCommon = true
	case isDeeperThan(b.source, a.source):
		strongForCommon = false
	}

	target := holderAdjustedPos(a.target, a, b, aStrong)
	target = target.TransformedByMove(b.source, b.target, b.howMany, !aStrong, false)

	type piece struct {
		orig model.Position
		r    model.Range
	}

	var pieces []piece

	for _, d := range rangeA.Difference(rangeB) {
		dd, _ := d.TransformedByDeletion(b.source, b.howMany)

		for _, part := range dd.TransformedByInsertion(insertPosB, b.howMany, true, false) {
			if !part.IsCollapsed() {
				pieces = append(pieces, piece{orig: d.Start, r: part})
			}
		}
	}

	if common, hasCommon := rangeA.Intersection(rangeB); hasCommon && strongForCommon {
		pieces = append(pieces, piece{
			orig: common.Start,
			r: model.Range{
				Start: common.Start.Combined(b.source, insertPosB),
				End:   common.End.Combined(b.source, insertPosB),
			},
		})
	}

	if len(pieces) == 0 {
		return []model.Operation{model.NewNoOperation(a.op.BaseVersion())}
	}

	// Keep the output in the moved content's original document order, so
	// the pieces land at the target in the order a intended.
	for i := 1; i < len(pieces); i++ {
		for j := i; j > 0 && pieces[j].orig.IsBefore(pieces[j-1].orig); j-- {
			pieces[j], pieces[j-1] = pieces[j-1], pieces[j]
		}
	}

	ranges := make([]model.Range, len(pieces))
	for i, p := range pieces {
		ranges[i] = p.r
	}

	return moveOpsFromRanges(a, ranges, target)
}

// moveOpsFromRanges emits one move-family operation per range, adjusting the
// later ranges and the target for each emitted operation having executed, so
// the pieces end up contiguous at the target.
func moveOpsFromRanges(a moveView, ranges []model.Range, target model.Position) []model.Operation {
	var out []model.Operation

	newHolder := a.newHolder

	for i, r := range ranges {
		howMany := r.Length()
		op := a.build(r.Start, howMany, target, newHolder)
		out = append(out, op)

		if a.kind == model.OpRemove && newHolder {
			// The first remove creates the holder at its target index,
			// shifting everything already in the graveyard at or past it.
			// This happens before the moved content lands, so it is applied
			// to the remaining pieces first.
			idx := target.Path[0]

			for j := i + 1; j < len(ranges); j++ {
				ranges[j].Start = holderShifted(ranges[j].Start, target.Root, idx)
				ranges[j].End = holderShifted(ranges[j].End, target.Root, idx)
			}
		}

		for j := i + 1; j < len(ranges); j++ {
			ranges[j] = ranges[j].TransformedByMove(r.Start, target, howMany, false)[0]
		}

		target = target.TransformedByMove(r.Start, target, howMany, true, false)
		newHolder = false
	}

	return out
}

func holderShifted(p model.Position, gy *model.RootElement, idx int) model.Position {
	if p.Root != gy || len(p.Path) < 2 || p.Path[0] < idx {
		return p
	}

	out := p.Clone()
	out.Path[0]++

	return out
}

// holderAdjustedPos accounts for b being a remove that creates a fresh
// graveyard holder: graveyard positions of a at or past b's holder slot
// shift by one. On a tie, a keeps the lower slot only when it is the strong
// remove creating its own holder there.
func holderAdjustedPos(p model.Position, a, b moveView, aStrong bool) model.Position {
	if b.kind != model.OpRemove || !b.newHolder {
		return p
	}

	if p.Root != b.target.Root || len(p.Path) == 0 {
		return p
	}

	idx := b.target.Path[0]

	aKeepsSlot := aStrong && a.kind == model.OpRemove && a.newHolder &&
		a.target.Root == b.target.Root && a.target.Path[0] == idx

	if p.Path[0] > idx || (p.Path[0] == idx && !aKeepsSlot) {
		out := p.Clone()
		out.Path[0]++

		return out
	}

	return p
}

func isDeeperThan(a, b model.Position) bool {
	return isPrefixInts(b.ParentPath(), a.ParentPath())
}

func samePathInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func isPrefixInts(a, b []int) bool {
	if len(a) >= len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
