// Package collab sequences concurrently produced deltas against a shared
// document: incoming deltas get rebased over everything the document has
// applied since the version they were authored against.
package collab

import (
	"errors"
	"sync"

	"github.com/pkaleta/treedoc/delta"
)

// ErrRevisionTooOld is returned when the client's base version is behind the
// oldest retained history entry.
var ErrRevisionTooOld = errors.New("base version too old, history unavailable")

// ErrRevisionInFuture is returned when the client's base version is ahead of
// the document.
var ErrRevisionInFuture = errors.New("base version is in the future")

// SequencedDelta wraps a delta with the document version it applied at.
type SequencedDelta struct {
	*delta.Delta
	Revision int
}

// History retains recently applied deltas so that incoming deltas based on
// older document versions can still be transformed.
type History struct {
	mu          sync.RWMutex
	entries     []SequencedDelta
	historySize int
	floor       int
}

// NewHistory creates a history retaining at most historySize deltas.
// baseVersion is the document version the history starts at: deltas based on
// anything older cannot be served.
func NewHistory(historySize, baseVersion int) *History {
	return &History{
		entries:     make([]SequencedDelta, 0, historySize),
		historySize: historySize,
		floor:       baseVersion,
	}
}

// Add records a delta applied at the given document version, pruning the
// oldest entry when the history is full.
func (h *History) Add(d *delta.Delta, revision int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, SequencedDelta{Delta: d, Revision: revision})

	if len(h.entries) > h.historySize {
		pruned := h.entries[0]
		h.entries = h.entries[1:]
		h.floor = pruned.Revision + len(pruned.Operations())
	}
}

// Since returns the deltas applied at or after the given base version, in
// application order. Fails with ErrRevisionTooOld when entries the caller
// would need have already been pruned.
func (h *History) Since(baseVersion int) ([]SequencedDelta, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if baseVersion < h.floor {
		return nil, ErrRevisionTooOld
	}

	var out []SequencedDelta

	for _, e := range h.entries {
		if e.Revision >= baseVersion {
			out = append(out, e)
		}
	}

	return out, nil
}
