package model

// Stickiness controls which neighbour a position binds to when content is
// inserted exactly at that position.
type Stickiness int

const (
	// SticksToNone keeps the position where it is under same-point insertion.
	SticksToNone Stickiness = iota
	// SticksToPrevious binds the position to the sibling before it.
	SticksToPrevious
	// SticksToNext binds the position to the sibling after it, so the
	// position shifts along with content inserted at that exact point.
	SticksToNext
)

// ComparisonResult describes the relative document order of two positions.
type ComparisonResult int

const (
	// Before means the receiver precedes the argument in document order.
	Before ComparisonResult = iota
	// Same means both positions address the same point.
	Same
	// After means the receiver follows the argument in document order.
	After
	// Incomparable means the positions live in different roots.
	Incomparable
)

// Position addresses a point between nodes: a path of offsets descending
// from a root. Positions are pure values; transforming one returns a new
// position and never touches the tree.
type Position struct {
	Root       *RootElement
	Path       []int
	Stickiness Stickiness
}

// NewPosition creates a position in the given root.
func NewPosition(root *RootElement, path []int, stickiness Stickiness) Position {
	return Position{Root: root, Path: append([]int{}, path...), Stickiness: stickiness}
}

// Clone returns a deep copy of the position.
func (p Position) Clone() Position {
	return Position{Root: p.Root, Path: append([]int{}, p.Path...), Stickiness: p.Stickiness}
}

// Offset returns the last path entry: the offset in the position's parent.
func (p Position) Offset() int {
	return p.Path[len(p.Path)-1]
}

// ParentPath returns the path without the final offset.
func (p Position) ParentPath() []int {
	return p.Path[:len(p.Path)-1]
}

// withOffset returns a copy with the final path entry replaced.
func (p Position) withOffset(offset int) Position {
	out := p.Clone()
	out.Path[len(out.Path)-1] = offset

	return out
}

// ShiftedBy returns the position moved by delta offsets within its parent.
func (p Position) ShiftedBy(delta int) Position {
	return p.withOffset(p.Offset() + delta)
}

// Compare orders two positions by (root identity, lexicographic path).
// Positions in different roots are Incomparable.
func (p Position) Compare(other Position) ComparisonResult {
	if p.Root != other.Root {
		return Incomparable
	}

	return comparePaths(p.Path, other.Path)
}

func comparePaths(a, b []int) ComparisonResult {
	for i := 0; i < len(a) && i < len(b); i++ {
		switch {
		case a[i] < b[i]:
			return Before
		case a[i] > b[i]:
			return After
		}
	}

	switch {
	case len(a) < len(b):
		return Before
	case len(a) > len(b):
		return After
	default:
		return Same
	}
}

// IsEqual reports whether both positions address the same point.
func (p Position) IsEqual(other Position) bool {
	return p.Compare(other) == Same
}

// IsBefore reports whether p precedes other. False for incomparable
// positions.
func (p Position) IsBefore(other Position) bool {
	return p.Compare(other) == Before
}

// IsAfter reports whether p follows other. False for incomparable positions.
func (p Position) IsAfter(other Position) bool {
	return p.Compare(other) == After
}

// samePath reports element-wise equality of two paths.
func samePath(a, b []int) bool {
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

// isPrefix reports whether a is a strict prefix of b.
func isPrefix(a, b []int) bool {
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

// commonPathLength returns the length of the longest shared path prefix.
func commonPathLength(a, b []int) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}

	return i
}

// ParentElement resolves the position's parent path against the live tree.
func (p Position) ParentElement() (*Element, error) {
	if p.Root == nil || len(p.Path) == 0 {
		return nil, ErrInvalidPosition
	}

	current := &p.Root.Element

	for _, step := range p.ParentPath() {
		node, ok := current.nodeAtOffset(step)
		if !ok {
			return nil, ErrInvalidPosition
		}

		el, ok := node.(*Element)
		if !ok {
			return nil, ErrInvalidPosition
		}

		current = el
	}

	if p.Offset() < 0 || p.Offset() > current.MaxOffset() {
		return nil, ErrInvalidPosition
	}

	return current, nil
}

// NodeAfter returns the node starting exactly at the position, if any.
func (p Position) NodeAfter() (Node, error) {
	parent, err := p.ParentElement()
	if err != nil {
		return nil, err
	}

	node, ok := parent.nodeAtOffset(p.Offset())
	if !ok {
		return nil, ErrInvalidPosition
	}

	return node, nil
}

// IsTouching reports whether no node sits between the two positions: after
// collapsing element boundaries, both address the same point in the tree.
// Resolves against the live tree; unresolvable positions never touch
// anything but their exact equal.
func (p Position) IsTouching(other Position) bool {
	if p.Root != other.Root {
		return false
	}

	if p.IsEqual(other) {
		return true
	}

	left, right := p, other
	if p.IsAfter(other) {
		left, right = other, p
	}

	leftEdge, ok := left.walkToOuterEnd()
	if !ok {
		return false
	}

	return leftEdge.IsEqual(right.walkToOuterStart())
}

// walkToOuterEnd climbs out of every element the position closes: while the
// position sits at its parent's trailing edge, it is equivalent to the
// position right after that parent.
func (p Position) walkToOuterEnd() (Position, bool) {
	cur := p.Clone()
	cur.Stickiness = SticksToNone

	for len(cur.Path) > 1 {
		parent, err := cur.ParentElement()
		if err != nil {
			return Position{}, false
		}

		if cur.Offset() != parent.MaxOffset() {
			break
		}

		cur.Path = cur.Path[:len(cur.Path)-1]
		cur.Path[len(cur.Path)-1]++
	}

	return cur, true
}

// walkToOuterStart is the mirror: while the position sits at its parent's
// leading edge, it is equivalent to the position right before that parent.
func (p Position) walkToOuterStart() Position {
	cur := p.Clone()
	cur.Stickiness = SticksToNone

	for len(cur.Path) > 1 && cur.Offset() == 0 {
		cur.Path = cur.Path[:len(cur.Path)-1]
	}

	return cur
}

// TransformedByInsertion returns the position adjusted for an insertion of
// howMany offsets at insertPos. When the insertion happens exactly at this
// position, includeSelf (or SticksToNext) decides whether the position moves
// past the inserted content.
func (p Position) TransformedByInsertion(insertPos Position, howMany int, includeSelf bool) Position {
	out := p.Clone()

	if p.Root != insertPos.Root || howMany == 0 {
		return out
	}

	shiftSelf := includeSelf || p.Stickiness == SticksToNext

	if samePath(insertPos.ParentPath(), p.ParentPath()) {
		if insertPos.Offset() < p.Offset() || (insertPos.Offset() == p.Offset() && shiftSelf) {
			out.Path[len(out.Path)-1] += howMany
		}

		return out
	}

	if isPrefix(insertPos.ParentPath(), p.ParentPath()) {
		i := len(insertPos.Path) - 1
		if insertPos.Offset() <= p.Path[i] {
			out.Path[i] += howMany
		}
	}

	return out
}

// TransformedByDeletion returns the position adjusted for a removal of
// howMany offsets at deletePos. ok is false when the position was inside the
// removed span and therefore no longer exists.
func (p Position) TransformedByDeletion(deletePos Position, howMany int) (Position, bool) {
	out := p.Clone()

	if p.Root != deletePos.Root || howMany == 0 {
		return out, true
	}

	if samePath(deletePos.ParentPath(), p.ParentPath()) {
		if deletePos.Offset() < p.Offset() {
			if deletePos.Offset()+howMany > p.Offset() {
				return Position{}, false
			}

			out.Path[len(out.Path)-1] -= howMany
		}

		return out, true
	}

	if isPrefix(deletePos.ParentPath(), p.ParentPath()) {
		i := len(deletePos.Path) - 1
		if deletePos.Offset() <= p.Path[i] {
			if deletePos.Offset()+howMany > p.Path[i] {
				return Position{}, false
			}

			out.Path[i] -= howMany
		}
	}

	return out, true
}

// TransformedByMove returns the position adjusted for a move of howMany
// offsets from source to target. Positions inside the moved span relocate
// along with it; sticky positions at the span boundary do too.
func (p Position) TransformedByMove(source, target Position, howMany int, includeSelf, sticky bool) Position {
	if howMany == 0 {
		return p.Clone()
	}

	insertPos, ok := target.TransformedByDeletion(source, howMany)
	if !ok {
		// A target inside the moved span is a malformed move; leave the
		// position untouched rather than guess.
		return p.Clone()
	}

	afterDeletion, survived := p.TransformedByDeletion(source, howMany)

	combines := !survived
	if survived && sticky && p.Root == source.Root && samePath(p.ParentPath(), source.ParentPath()) {
		if p.Offset() == source.Offset() || p.Offset() == source.Offset()+howMany {
			combines = true
		}
	}

	if combines {
		return p.Combined(source, insertPos)
	}

	return afterDeletion.TransformedByInsertion(insertPos, howMany, includeSelf)
}

// Combined re-bases a position that was inside the span starting at source
// onto the same relative place under target.
func (p Position) Combined(source, target Position) Position {
	i := len(source.Path) - 1

	out := target.Clone()
	out.Stickiness = p.Stickiness
	out.Path[len(out.Path)-1] += p.Path[i] - source.Offset()
	out.Path = append(out.Path, p.Path[i+1:]...)

	return out
}
