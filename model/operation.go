package model

// OpKind tags the closed set of operation variants.
type OpKind int

const (
	// OpInsert inserts a node list at a position.
	OpInsert OpKind = iota
	// OpMove relocates a flat span of content to another position.
	OpMove
	// OpRemove is a move whose target is inside the graveyard root.
	OpRemove
	// OpReinsert is a move from the graveyard back into the live tree.
	OpReinsert
	// OpAttribute changes one attribute uniformly across a range.
	OpAttribute
	// OpRename changes an element's name.
	OpRename
	// OpNoOp does nothing but still consumes a version slot.
	OpNoOp
)

// OpResult describes the effect of an executed operation.
type OpResult struct {
	// Range covers the affected content in post-execution coordinates.
	Range Range
}

// Operation is one atomic change to the document tree. An operation executes
// exactly once, against a document whose version equals its base version.
type Operation interface {
	// Kind returns the variant tag.
	Kind() OpKind

	// BaseVersion returns the document version this operation applies to.
	BaseVersion() int

	// SetBaseVersion renumbers the operation; used when transformation
	// rewrites an operation to apply at a different point in history.
	SetBaseVersion(v int)

	// Execute mutates the tree and returns the affected range. It fails
	// when a structural precondition does not hold.
	Execute(doc *Document) (OpResult, error)

	// Reversed returns a new operation that undoes this one when applied
	// immediately after it. Its base version is BaseVersion()+1.
	Reversed() Operation

	// Clone deep-copies the operation's position and range fields. Tree
	// nodes held by insert operations are deep-copied as well.
	Clone() Operation
}
