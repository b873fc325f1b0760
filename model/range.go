package model

// Range is an ordered pair of positions in the same root. Start must not be
// after End.
type Range struct {
	Start Position
	End   Position
}

// NewRange creates a range from two positions.
func NewRange(start, end Position) Range {
	return Range{Start: start.Clone(), End: end.Clone()}
}

// CollapsedRange creates an empty range at the given position.
func CollapsedRange(pos Position) Range {
	return Range{Start: pos.Clone(), End: pos.Clone()}
}

// RangeFromPositionAndShift creates a flat range covering howMany offsets
// starting at pos.
func RangeFromPositionAndShift(pos Position, howMany int) Range {
	return Range{Start: pos.Clone(), End: pos.ShiftedBy(howMany)}
}

// Clone returns a deep copy of the range.
func (r Range) Clone() Range {
	return Range{Start: r.Start.Clone(), End: r.End.Clone()}
}

// IsCollapsed reports whether the range is empty.
func (r Range) IsCollapsed() bool {
	return r.Start.IsEqual(r.End)
}

// IsFlat reports whether both boundaries share the same parent.
func (r Range) IsFlat() bool {
	return samePath(r.Start.ParentPath(), r.End.ParentPath())
}

// Length returns the offset span of a flat range.
func (r Range) Length() int {
	return r.End.Offset() - r.Start.Offset()
}

// IsEqual reports whether both ranges have equal boundaries.
func (r Range) IsEqual(other Range) bool {
	return r.Start.IsEqual(other.Start) && r.End.IsEqual(other.End)
}

// ContainsPosition reports whether the position lies strictly inside the
// range.
func (r Range) ContainsPosition(pos Position) bool {
	return r.Start.IsBefore(pos) && pos.IsBefore(r.End)
}

// ContainsRange reports whether other lies fully inside this range. A
// collapsed other range is contained when strictly inside.
func (r Range) ContainsRange(other Range) bool {
	if other.IsCollapsed() {
		return r.ContainsPosition(other.Start)
	}

	startInside := r.ContainsPosition(other.Start) || r.Start.IsEqual(other.Start)
	endInside := r.ContainsPosition(other.End) || r.End.IsEqual(other.End)

	return startInside && endInside
}

// IsIntersecting reports whether the two ranges share any content.
func (r Range) IsIntersecting(other Range) bool {
	if r.Start.Root != other.Start.Root {
		return false
	}

	return r.Start.IsBefore(other.End) && other.Start.IsBefore(r.End)
}

// Difference returns the parts of this range not covered by other: zero, one
// or two ranges.
func (r Range) Difference(other Range) []Range {
	if !r.IsIntersecting(other) {
		return []Range{r.Clone()}
	}

	var out []Range

	if r.Start.IsBefore(other.Start) {
		out = append(out, Range{Start: r.Start.Clone(), End: other.Start.Clone()})
	}

	if other.End.IsBefore(r.End) {
		out = append(out, Range{Start: other.End.Clone(), End: r.End.Clone()})
	}

	return out
}

// Intersection returns the common part of the two ranges, if any.
func (r Range) Intersection(other Range) (Range, bool) {
	if !r.IsIntersecting(other) {
		return Range{}, false
	}

	start := r.Start
	if start.IsBefore(other.Start) {
		start = other.Start
	}

	end := r.End
	if other.End.IsBefore(end) {
		end = other.End
	}

	return Range{Start: start.Clone(), End: end.Clone()}, true
}

// MinimalFlatRanges decomposes the range into the fewest flat sub-ranges by
// walking up from the start to the common ancestor depth, then down to the
// end. Needs the live tree to know each parent's max offset.
func (r Range) MinimalFlatRanges() ([]Range, error) {
	var out []Range

	if r.IsCollapsed() {
		return out, nil
	}

	diffAt := commonPathLength(r.Start.Path, r.End.Path)

	pos := r.Start.Clone()

	parent, err := pos.ParentElement()
	if err != nil {
		return nil, err
	}

	for len(pos.Path) > diffAt+1 {
		howMany := parent.MaxOffset() - pos.Offset()
		if howMany != 0 {
			out = append(out, RangeFromPositionAndShift(pos, howMany))
		}

		pos.Path = append([]int{}, pos.Path[:len(pos.Path)-1]...)
		pos.Path[len(pos.Path)-1]++
		parent = parent.Parent()
	}

	for len(pos.Path) <= len(r.End.Path) {
		endOffset := r.End.Path[len(pos.Path)-1]

		howMany := endOffset - pos.Offset()
		if howMany != 0 {
			out = append(out, RangeFromPositionAndShift(pos, howMany))
		}

		if len(pos.Path) == len(r.End.Path) {
			break
		}

		node, ok := parent.nodeAtOffset(endOffset)
		if !ok {
			return nil, ErrInvalidPosition
		}

		el, ok := node.(*Element)
		if !ok {
			return nil, ErrInvalidPosition
		}

		parent = el
		pos.Path[len(pos.Path)-1] = endOffset
		pos.Path = append(pos.Path, 0)
	}

	return out, nil
}

// TransformedByInsertion returns the range adjusted for an insertion. With
// spread, an insertion strictly inside the range splits it in two so the
// inserted content is excluded; otherwise the range grows around it. A
// sticky range absorbs content inserted exactly at its boundaries.
func (r Range) TransformedByInsertion(insertPos Position, howMany int, spread, isSticky bool) []Range {
	if spread && r.ContainsPosition(insertPos) {
		first := Range{Start: r.Start.Clone(), End: insertPos.Clone()}
		second := Range{
			Start: insertPos.ShiftedBy(howMany),
			End:   r.End.TransformedByInsertion(insertPos, howMany, true),
		}

		return []Range{first, second}
	}

	out := Range{
		Start: r.Start.TransformedByInsertion(insertPos, howMany, !isSticky),
		End:   r.End.TransformedByInsertion(insertPos, howMany, isSticky),
	}

	return []Range{out}
}

// TransformedByDeletion returns the range adjusted for a removal. A range
// fully inside the removed span collapses; ok is false in that case.
func (r Range) TransformedByDeletion(deletePos Position, howMany int) (Range, bool) {
	start, startOK := r.Start.TransformedByDeletion(deletePos, howMany)
	if !startOK {
		start = deletePos.Clone()
	}

	end, endOK := r.End.TransformedByDeletion(deletePos, howMany)
	if !endOK {
		end = deletePos.Clone()
	}

	if !startOK && !endOK {
		return Range{Start: start, End: end}, false
	}

	return Range{Start: start, End: end}, true
}

// TransformedByMove returns the range adjusted for a move of howMany offsets
// from source to target. Handles the source span being disjoint, overlapping
// one boundary, containing the whole range, and the target landing inside
// the range. Moved content adjacent to a range boundary is not absorbed, so
// no degenerate empty fragments are produced.
func (r Range) TransformedByMove(source, target Position, howMany int, spread bool) []Range {
	if howMany == 0 {
		return []Range{r.Clone()}
	}

	if r.IsCollapsed() {
		pos := r.Start.TransformedByMove(source, target, howMany, false, false)

		return []Range{CollapsedRange(pos)}
	}

	moveRange := RangeFromPositionAndShift(source, howMany)

	insertPos, ok := target.TransformedByDeletion(source, howMany)
	if !ok {
		insertPos = target.Clone()
	}

	// The whole range sits inside the moved span: it relocates atomically.
	if moveRange.ContainsRange(r) {
		out := Range{
			Start: r.Start.Combined(source, insertPos),
			End:   r.End.Combined(source, insertPos),
		}

		return []Range{out}
	}

	type piece struct {
		orig Position // original start, for output ordering
		r    Range
	}

	var pieces []piece

	for _, d := range r.Difference(moveRange) {
		start, sOK := d.Start.TransformedByDeletion(source, howMany)
		if !sOK {
			start = source.Clone()
		}

		end, eOK := d.End.TransformedByDeletion(source, howMany)
		if !eOK {
			end = source.Clone()
		}

		start = start.TransformedByInsertion(insertPos, howMany, true)
		end = end.TransformedByInsertion(insertPos, howMany, false)

		if comparePaths(start.Path, end.Path) == Before {
			pieces = append(pieces, piece{orig: d.Start, r: Range{Start: start, End: end}})
		}
	}

	if common, hasCommon := r.Intersection(moveRange); hasCommon {
		out := Range{
			Start: common.Start.Combined(source, insertPos),
			End:   common.End.Combined(source, insertPos),
		}
		pieces = append(pieces, piece{orig: common.Start, r: out})
	}

	// Keep the pieces in the content's original document order.
	for i := 1; i < len(pieces); i++ {
		for j := i; j > 0 && pieces[j].orig.IsBefore(pieces[j-1].orig); j-- {
			pieces[j], pieces[j-1] = pieces[j-1], pieces[j]
		}
	}

	out := make([]Range, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, p.r)
	}

	if !spread {
		out = joinAdjacentRanges(out)
	}

	return out
}

// joinAdjacentRanges merges ranges whose boundaries touch, after sorting by
// start position.
func joinAdjacentRanges(ranges []Range) []Range {
	if len(ranges) < 2 {
		return ranges
	}

	sorted := append([]Range{}, ranges...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Start.IsBefore(sorted[j-1].Start); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	out := []Range{sorted[0]}

	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if last.End.IsEqual(r.Start) {
			last.End = r.End
		} else {
			out = append(out, r)
		}
	}

	return out
}

// TransformedByOperation returns the range adjusted for the given operation.
// Attribute, rename and no-op operations never change ranges.
func (r Range) TransformedByOperation(op Operation) []Range {
	switch o := op.(type) {
	case *InsertOperation:
		return r.TransformedByInsertion(o.Position, o.InsertedSize(), false, false)
	case *MoveOperation:
		return r.TransformedByMove(o.Source, o.Target, o.HowMany, false)
	case *RemoveOperation:
		return r.TransformedByMove(o.Source, o.Target, o.HowMany, false)
	case *ReinsertOperation:
		return r.TransformedByMove(o.Source, o.Target, o.HowMany, false)
	default:
		return []Range{r.Clone()}
	}
}
