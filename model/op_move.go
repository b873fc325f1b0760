package model

import (
	"errors"
	"fmt"
)

// ErrMoveInsideItself is returned when a move's target lies inside the moved
// span.
var ErrMoveInsideItself = errors.New("move target is inside the moved range")

// MoveOperation relocates howMany offsets of content starting at Source to
// Target. IsSticky makes positions at the span boundaries travel with it.
type MoveOperation struct {
	Source   Position
	HowMany  int
	Target   Position
	IsSticky bool

	baseVersion int
}

// NewMoveOperation creates a move operation.
func NewMoveOperation(source Position, howMany int, target Position, baseVersion int) *MoveOperation {
	return &MoveOperation{
		Source:      source.Clone(),
		HowMany:     howMany,
		Target:      target.Clone(),
		baseVersion: baseVersion,
	}
}

// Kind returns OpMove.
func (op *MoveOperation) Kind() OpKind { return OpMove }

// BaseVersion returns the document version this operation applies to.
func (op *MoveOperation) BaseVersion() int { return op.baseVersion }

// SetBaseVersion renumbers the operation.
func (op *MoveOperation) SetBaseVersion(v int) { op.baseVersion = v }

// MovedRangeStart returns where the moved content starts after execution,
// accounting for the same-parent shift when the target follows the source.
func (op *MoveOperation) MovedRangeStart() Position {
	pos, ok := op.Target.TransformedByDeletion(op.Source, op.HowMany)
	if !ok {
		return op.Target.Clone()
	}

	return pos
}

// Execute relocates the span.
func (op *MoveOperation) Execute(_ *Document) (OpResult, error) {
	return executeMove(op.Source, op.Target, op.HowMany)
}

// Reversed returns a move that restores the span to its original place.
func (op *MoveOperation) Reversed() Operation {
	return &MoveOperation{
		Source:      op.MovedRangeStart(),
		HowMany:     op.HowMany,
		Target:      op.Source.TransformedByInsertion(op.Target, op.HowMany, true),
		IsSticky:    op.IsSticky,
		baseVersion: op.baseVersion + 1,
	}
}

// Clone deep-copies the operation.
func (op *MoveOperation) Clone() Operation {
	return &MoveOperation{
		Source:      op.Source.Clone(),
		HowMany:     op.HowMany,
		Target:      op.Target.Clone(),
		IsSticky:    op.IsSticky,
		baseVersion: op.baseVersion,
	}
}

// RemoveOperation moves a span into a graveyard holder element. NewHolder
// marks the first remove of a delta aimed at a given holder slot; executing
// it creates the holder, so removes stay reversible without holder
// collisions.
type RemoveOperation struct {
	Source    Position
	HowMany   int
	Target    Position // inside the graveyard: [holderIndex, offset, ...]
	NewHolder bool

	baseVersion int
}

// NewRemoveOperation creates a remove targeting a fresh graveyard holder.
func NewRemoveOperation(doc *Document, source Position, howMany, baseVersion int) *RemoveOperation {
	gy := doc.Graveyard()

	return &RemoveOperation{
		Source:      source.Clone(),
		HowMany:     howMany,
		Target:      NewPosition(gy, []int{gy.ChildCount(), 0}, SticksToNone),
		NewHolder:   true,
		baseVersion: baseVersion,
	}
}

func newRemoveForReversal(doc *Document, source Position, howMany, baseVersion int) *RemoveOperation {
	return NewRemoveOperation(doc, source, howMany, baseVersion)
}

// Kind returns OpRemove.
func (op *RemoveOperation) Kind() OpKind { return OpRemove }

// BaseVersion returns the document version this operation applies to.
func (op *RemoveOperation) BaseVersion() int { return op.baseVersion }

// SetBaseVersion renumbers the operation.
func (op *RemoveOperation) SetBaseVersion(v int) { op.baseVersion = v }

// HolderIndex returns the graveyard child index of the target holder.
func (op *RemoveOperation) HolderIndex() int {
	return op.Target.Path[0]
}

// MovedRangeStart returns where the removed content lands in the graveyard.
func (op *RemoveOperation) MovedRangeStart() Position {
	pos, ok := op.Target.TransformedByDeletion(op.Source, op.HowMany)
	if !ok {
		return op.Target.Clone()
	}

	return pos
}

// Execute creates the holder when needed and moves the span into it.
func (op *RemoveOperation) Execute(_ *Document) (OpResult, error) {
	if op.NewHolder {
		gy := op.Target.Root

		idx := op.HolderIndex()
		if idx > gy.ChildCount() {
			idx = gy.ChildCount()
		}

		holder := NewElement(HolderElementName, nil)
		if err := gy.insertAt(idx, []Node{holder}); err != nil {
			return OpResult{}, fmt.Errorf("remove: create holder: %w", err)
		}
	}

	return executeMove(op.Source, op.Target, op.HowMany)
}

// Clone deep-copies the operation.
func (op *RemoveOperation) Clone() Operation {
	return &RemoveOperation{
		Source:      op.Source.Clone(),
		HowMany:     op.HowMany,
		Target:      op.Target.Clone(),
		NewHolder:   op.NewHolder,
		baseVersion: op.baseVersion,
	}
}

// Reversed returns a reinsert restoring the removed span.
func (op *RemoveOperation) Reversed() Operation {
	return &ReinsertOperation{
		Source:      op.MovedRangeStart(),
		HowMany:     op.HowMany,
		Target:      op.Source.TransformedByInsertion(op.Target, op.HowMany, true),
		baseVersion: op.baseVersion + 1,
	}
}

// ReinsertOperation moves content from the graveyard back into the live
// tree.
type ReinsertOperation struct {
	Source  Position // inside the graveyard
	HowMany int
	Target  Position

	baseVersion int
}

// NewReinsertOperation creates a reinsert operation.
func NewReinsertOperation(source Position, howMany int, target Position, baseVersion int) *ReinsertOperation {
	return &ReinsertOperation{
		Source:      source.Clone(),
		HowMany:     howMany,
		Target:      target.Clone(),
		baseVersion: baseVersion,
	}
}

// Kind returns OpReinsert.
func (op *ReinsertOperation) Kind() OpKind { return OpReinsert }

// BaseVersion returns the document version this operation applies to.
func (op *ReinsertOperation) BaseVersion() int { return op.baseVersion }

// SetBaseVersion renumbers the operation.
func (op *ReinsertOperation) SetBaseVersion(v int) { op.baseVersion = v }

// MovedRangeStart returns where the content starts after execution.
func (op *ReinsertOperation) MovedRangeStart() Position {
	pos, ok := op.Target.TransformedByDeletion(op.Source, op.HowMany)
	if !ok {
		return op.Target.Clone()
	}

	return pos
}

// Execute moves the span out of the graveyard.
func (op *ReinsertOperation) Execute(_ *Document) (OpResult, error) {
	return executeMove(op.Source, op.Target, op.HowMany)
}

// Reversed returns a remove putting the span back into the graveyard.
func (op *ReinsertOperation) Reversed() Operation {
	return &RemoveOperation{
		Source:      op.MovedRangeStart(),
		HowMany:     op.HowMany,
		Target:      op.Source.TransformedByInsertion(op.Target, op.HowMany, true),
		NewHolder:   false,
		baseVersion: op.baseVersion + 1,
	}
}

// Clone deep-copies the operation.
func (op *ReinsertOperation) Clone() Operation {
	return &ReinsertOperation{
		Source:      op.Source.Clone(),
		HowMany:     op.HowMany,
		Target:      op.Target.Clone(),
		baseVersion: op.baseVersion,
	}
}

// executeMove is the shared execution path of the move-family operations.
func executeMove(source, target Position, howMany int) (OpResult, error) {
	srcParent, err := source.ParentElement()
	if err != nil {
		return OpResult{}, fmt.Errorf("move: source: %w", err)
	}

	if _, err := target.ParentElement(); err != nil {
		return OpResult{}, fmt.Errorf("move: target: %w", err)
	}

	if source.Root == target.Root {
		moveRange := RangeFromPositionAndShift(source, howMany)
		if moveRange.ContainsPosition(target) {
			return OpResult{}, ErrMoveInsideItself
		}
	}

	nodes, err := srcParent.removeRange(source.Offset(), howMany)
	if err != nil {
		return OpResult{}, fmt.Errorf("move: %w", err)
	}

	insertPos, ok := target.TransformedByDeletion(source, howMany)
	if !ok {
		insertPos = target.Clone()
	}

	tgtParent, err := insertPos.ParentElement()
	if err != nil {
		return OpResult{}, fmt.Errorf("move: target after removal: %w", err)
	}

	if err := tgtParent.insertAt(insertPos.Offset(), nodes); err != nil {
		return OpResult{}, fmt.Errorf("move: %w", err)
	}

	return OpResult{Range: RangeFromPositionAndShift(insertPos, howMany)}, nil
}
