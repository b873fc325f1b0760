package model

import "fmt"

// InsertOperation inserts a list of nodes at a position.
type InsertOperation struct {
	Position Position
	Nodes    []Node

	baseVersion int
}

// NewInsertOperation creates an insert operation. The nodes must be detached;
// they become owned by the tree on execution.
func NewInsertOperation(pos Position, nodes []Node, baseVersion int) *InsertOperation {
	return &InsertOperation{
		Position:    pos.Clone(),
		Nodes:       nodes,
		baseVersion: baseVersion,
	}
}

// Kind returns OpInsert.
func (op *InsertOperation) Kind() OpKind { return OpInsert }

// BaseVersion returns the document version this operation applies to.
func (op *InsertOperation) BaseVersion() int { return op.baseVersion }

// SetBaseVersion renumbers the operation.
func (op *InsertOperation) SetBaseVersion(v int) { op.baseVersion = v }

// InsertedSize returns the total offset size of the inserted nodes.
func (op *InsertOperation) InsertedSize() int {
	return nodeListSize(op.Nodes)
}

// Execute splices the nodes into the tree.
func (op *InsertOperation) Execute(_ *Document) (OpResult, error) {
	parent, err := op.Position.ParentElement()
	if err != nil {
		return OpResult{}, fmt.Errorf("insert: %w", err)
	}

	size := op.InsertedSize()

	if err := parent.insertAt(op.Position.Offset(), op.Nodes); err != nil {
		return OpResult{}, fmt.Errorf("insert: %w", err)
	}

	return OpResult{Range: RangeFromPositionAndShift(op.Position, size)}, nil
}

// Reversed returns a remove of the inserted span.
func (op *InsertOperation) Reversed() Operation {
	root := op.Position.Root

	return newRemoveForReversal(root.Document(), op.Position, op.InsertedSize(), op.baseVersion+1)
}

// Clone deep-copies the operation, including the pending node list.
func (op *InsertOperation) Clone() Operation {
	return &InsertOperation{
		Position:    op.Position.Clone(),
		Nodes:       cloneNodes(op.Nodes),
		baseVersion: op.baseVersion,
	}
}
