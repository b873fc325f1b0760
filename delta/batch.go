package delta

import "github.com/google/uuid"

// Batch groups deltas into one transaction boundary, e.g. a single undo
// step. Batching carries no transformation semantics of its own.
type Batch struct {
	id     string
	deltas []*Delta
}

// NewBatch creates a batch with a fresh unique ID.
func NewBatch() *Batch {
	return &Batch{id: uuid.NewString()}
}

// ID returns the batch identifier.
func (b *Batch) ID() string {
	return b.id
}

// AddDelta adds a delta to the batch and sets its back-reference.
func (b *Batch) AddDelta(d *Delta) *Delta {
	d.batch = b
	b.deltas = append(b.deltas, d)

	return d
}

// Deltas returns the batch's deltas in order.
func (b *Batch) Deltas() []*Delta {
	return b.deltas
}
