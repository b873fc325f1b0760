package collab

import (
	"fmt"
	"sync"

	"github.com/pkaleta/treedoc/delta"
	"github.com/pkaleta/treedoc/diff"
	"github.com/pkaleta/treedoc/model"
)

// DefaultHistorySize bounds how many applied deltas a session retains for
// rebasing late arrivals.
const DefaultHistorySize = 100

// Session ties a document to a delta history and a differ. Clients submit
// deltas based on whatever document version they last saw; the session
// rebases them over the deltas applied since, executes them, and records
// them so later arrivals can be rebased in turn.
type Session struct {
	mu      sync.Mutex
	doc     *model.Document
	differ  *diff.Differ
	history *History
}

// NewSession creates a session around the given document. The session's
// differ starts observing the document immediately.
func NewSession(doc *model.Document, historySize int) *Session {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}

	d := diff.New(doc)
	doc.OnOperation(d.BufferOperation)
	doc.Markers().OnChange(func(name string, oldRange, newRange *model.Range) {
		d.BufferMarkerChange(name, oldRange, newRange)
	})

	return &Session{
		doc:     doc,
		differ:  d,
		history: NewHistory(historySize, doc.Version()),
	}
}

// Document returns the shared document. Mutate it only through Submit, or
// the history and concurrent clients fall out of sync.
func (s *Session) Document() *model.Document {
	return s.doc
}

// Version returns the current document version.
func (s *Session) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.doc.Version()
}

// Submit rebases an incoming delta over everything applied since its base
// version, applies the result and records it. The applied deltas are
// returned so the caller can broadcast them; the submitter's own state is
// reconciled by replacing its pending delta with them.
//
// The incoming delta loses ties against already-applied deltas: the server
// order is the strong one.
func (s *Session) Submit(d *delta.Delta) ([]*delta.Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := d.BaseVersion()
	if base < 0 {
		// Empty delta: nothing to apply.
		return nil, nil
	}

	if base > s.doc.Version() {
		return nil, fmt.Errorf("submit delta based on %d at version %d: %w", base, s.doc.Version(), ErrRevisionInFuture)
	}

	newer, err := s.history.Since(base)
	if err != nil {
		return nil, fmt.Errorf("submit delta based on %d: %w", base, err)
	}

	set := []*delta.Delta{d.Clone()}

	for _, applied := range newer {
		var next []*delta.Delta

		for _, cur := range set {
			next = append(next, delta.Transform(cur, applied.Delta, false)...)
		}

		set = next
	}

	delta.RenumberFrom(set, s.doc.Version())

	for _, td := range set {
		revision := s.doc.Version()

		for _, op := range td.Operations() {
			if _, err := s.doc.ApplyOperation(op); err != nil {
				return nil, fmt.Errorf("apply rebased delta: %w", err)
			}
		}

		s.history.Add(td, revision)
	}

	return set, nil
}

// Changes returns the minimal change records accumulated since the last
// ResetDiff.
func (s *Session) Changes() []diff.Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.differ.Changes()
}

// ResetDiff clears the accumulated diff, typically after the changes were
// rendered or broadcast.
func (s *Session) ResetDiff() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.differ.Reset()
}
