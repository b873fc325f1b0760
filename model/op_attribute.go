package model

import (
	"errors"
	"fmt"
)

// Attribute precondition errors.
var (
	ErrAttributeExists   = errors.New("attribute already set on a node in the range")
	ErrAttributeMissing  = errors.New("attribute not set on a node in the range")
	ErrAttributeMismatch = errors.New("attribute has a different value than declared")
	ErrNameMismatch      = errors.New("element has a different name than declared")
	ErrNotAnElement      = errors.New("node at position is not an element")
)

// AttributeOperation changes the value of one attribute uniformly across a
// range. The old value is a precondition: every item in the range must carry
// exactly OldValue (nil meaning absent) or execution fails.
type AttributeOperation struct {
	Range    Range
	Key      string
	OldValue any
	NewValue any

	baseVersion int
}

// NewAttributeOperation creates an attribute operation. Values are coerced
// to their JSON shape, matching how the tree stores attributes.
func NewAttributeOperation(r Range, key string, oldValue, newValue any, baseVersion int) *AttributeOperation {
	return &AttributeOperation{
		Range:       r.Clone(),
		Key:         key,
		OldValue:    normalizeAttrValue(oldValue),
		NewValue:    normalizeAttrValue(newValue),
		baseVersion: baseVersion,
	}
}

// Kind returns OpAttribute.
func (op *AttributeOperation) Kind() OpKind { return OpAttribute }

// BaseVersion returns the document version this operation applies to.
func (op *AttributeOperation) BaseVersion() int { return op.baseVersion }

// SetBaseVersion renumbers the operation.
func (op *AttributeOperation) SetBaseVersion(v int) { op.baseVersion = v }

// Execute verifies the old-value precondition on every item in the range,
// then applies the new value.
func (op *AttributeOperation) Execute(_ *Document) (OpResult, error) {
	flat, err := op.Range.MinimalFlatRanges()
	if err != nil {
		return OpResult{}, fmt.Errorf("attribute: %w", err)
	}

	var touched []Node

	for _, r := range flat {
		parent, err := r.Start.ParentElement()
		if err != nil {
			return OpResult{}, fmt.Errorf("attribute: %w", err)
		}

		nodes, err := parent.childrenInRange(r.Start.Offset(), r.Length())
		if err != nil {
			return OpResult{}, fmt.Errorf("attribute: %w", err)
		}

		for _, n := range nodes {
			if err := checkAttribute(n, op.Key, op.OldValue); err != nil {
				return OpResult{}, fmt.Errorf("attribute %q: %w", op.Key, err)
			}
		}

		touched = append(touched, nodes...)
	}

	for _, n := range touched {
		setNodeAttribute(n, op.Key, op.NewValue)
	}

	return OpResult{Range: op.Range.Clone()}, nil
}

// Reversed returns an attribute operation swapping old and new values.
func (op *AttributeOperation) Reversed() Operation {
	return &AttributeOperation{
		Range:       op.Range.Clone(),
		Key:         op.Key,
		OldValue:    op.NewValue,
		NewValue:    op.OldValue,
		baseVersion: op.baseVersion + 1,
	}
}

// Clone deep-copies the operation.
func (op *AttributeOperation) Clone() Operation {
	return &AttributeOperation{
		Range:       op.Range.Clone(),
		Key:         op.Key,
		OldValue:    op.OldValue,
		NewValue:    op.NewValue,
		baseVersion: op.baseVersion,
	}
}

func checkAttribute(n Node, key string, want any) error {
	current, has := nodeAttribute(n, key)

	switch {
	case want == nil && has:
		return ErrAttributeExists
	case want != nil && !has:
		return ErrAttributeMissing
	case want != nil && has && !attrValueEqual(current, want):
		return ErrAttributeMismatch
	}

	return nil
}

func nodeAttribute(n Node, key string) (any, bool) {
	switch v := n.(type) {
	case *Element:
		return v.Attribute(key)
	case *Text:
		return v.Attribute(key)
	}

	return nil, false
}

func setNodeAttribute(n Node, key string, value any) {
	switch v := n.(type) {
	case *Element:
		v.SetAttribute(key, value)
	case *Text:
		v.SetAttribute(key, value)
	}
}

// RenameOperation changes the name of the element at Position. For diffing
// purposes a rename counts as a remove plus an insert of length one.
type RenameOperation struct {
	Position Position
	OldName  string
	NewName  string

	baseVersion int
}

// NewRenameOperation creates a rename operation. Position points at the
// element, i.e. addresses the boundary right before it.
func NewRenameOperation(pos Position, oldName, newName string, baseVersion int) *RenameOperation {
	return &RenameOperation{
		Position:    pos.Clone(),
		OldName:     oldName,
		NewName:     newName,
		baseVersion: baseVersion,
	}
}

// Kind returns OpRename.
func (op *RenameOperation) Kind() OpKind { return OpRename }

// BaseVersion returns the document version this operation applies to.
func (op *RenameOperation) BaseVersion() int { return op.baseVersion }

// SetBaseVersion renumbers the operation.
func (op *RenameOperation) SetBaseVersion(v int) { op.baseVersion = v }

// Execute renames the element, verifying its current name first.
func (op *RenameOperation) Execute(_ *Document) (OpResult, error) {
	node, err := op.Position.NodeAfter()
	if err != nil {
		return OpResult{}, fmt.Errorf("rename: %w", err)
	}

	el, ok := node.(*Element)
	if !ok {
		return OpResult{}, fmt.Errorf("rename: %w", ErrNotAnElement)
	}

	if el.Name() != op.OldName {
		return OpResult{}, fmt.Errorf("rename: element is %q, not %q: %w", el.Name(), op.OldName, ErrNameMismatch)
	}

	el.rename(op.NewName)

	return OpResult{Range: RangeFromPositionAndShift(op.Position, 1)}, nil
}

// Reversed returns a rename swapping old and new names.
func (op *RenameOperation) Reversed() Operation {
	return &RenameOperation{
		Position:    op.Position.Clone(),
		OldName:     op.NewName,
		NewName:     op.OldName,
		baseVersion: op.baseVersion + 1,
	}
}

// Clone deep-copies the operation.
func (op *RenameOperation) Clone() Operation {
	return &RenameOperation{
		Position:    op.Position.Clone(),
		OldName:     op.OldName,
		NewName:     op.NewName,
		baseVersion: op.baseVersion,
	}
}

// NoOperation changes nothing. Transforms that resolve to "nothing should
// happen" return it, so the version slot is still consumed.
type NoOperation struct {
	baseVersion int
}

// NewNoOperation creates a no-op.
func NewNoOperation(baseVersion int) *NoOperation {
	return &NoOperation{baseVersion: baseVersion}
}

// Kind returns OpNoOp.
func (op *NoOperation) Kind() OpKind { return OpNoOp }

// BaseVersion returns the document version this operation applies to.
func (op *NoOperation) BaseVersion() int { return op.baseVersion }

// SetBaseVersion renumbers the operation.
func (op *NoOperation) SetBaseVersion(v int) { op.baseVersion = v }

// Execute does nothing.
func (op *NoOperation) Execute(_ *Document) (OpResult, error) {
	return OpResult{}, nil
}

// Reversed returns another no-op.
func (op *NoOperation) Reversed() Operation {
	return &NoOperation{baseVersion: op.baseVersion + 1}
}

// Clone returns a copy of the no-op.
func (op *NoOperation) Clone() Operation {
	return &NoOperation{baseVersion: op.baseVersion}
}
