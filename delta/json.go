package delta

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pkaleta/treedoc/model"
)

// ErrUnknownClassName is returned when deserializing a delta with an
// unrecognized __className discriminator.
var ErrUnknownClassName = errors.New("unknown delta class name")

// deltaJSON is the envelope a delta serializes into. Operations keep their
// own polymorphic encoding.
type deltaJSON struct {
	ClassName  string            `json:"__className"`
	Operations []json.RawMessage `json:"operations"`
	BatchID    string            `json:"batchId,omitempty"`
}

var kindToClassName = map[Kind]string{
	Plain:      "Delta",
	Insert:     "InsertDelta",
	WeakInsert: "WeakInsertDelta",
	Remove:     "RemoveDelta",
	Move:       "MoveDelta",
	Attribute:  "AttributeDelta",
	Split:      "SplitDelta",
	Merge:      "MergeDelta",
	Rename:     "RenameDelta",
	Wrap:       "WrapDelta",
	Unwrap:     "UnwrapDelta",
}

var classNameToKind = func() map[string]Kind {
	out := make(map[string]Kind, len(kindToClassName))
	for k, name := range kindToClassName {
		out[name] = k
	}

	return out
}()

// Marshal serializes a delta with its __className discriminator, so the
// receiving side can reconstruct it polymorphically.
func Marshal(d *Delta) ([]byte, error) {
	env := deltaJSON{
		ClassName:  kindToClassName[d.kind],
		Operations: make([]json.RawMessage, 0, len(d.ops)),
	}

	if d.batch != nil {
		env.BatchID = d.batch.ID()
	}

	for _, op := range d.ops {
		raw, err := model.MarshalOperation(op)
		if err != nil {
			return nil, fmt.Errorf("marshal delta: %w", err)
		}

		env.Operations = append(env.Operations, raw)
	}

	return json.Marshal(env)
}

// Unmarshal reconstructs a delta against the given document. Fails with
// ErrUnknownClassName for unrecognized discriminators. The batch association
// is not restored; the caller re-batches received deltas as needed.
func Unmarshal(doc *model.Document, data []byte) (*Delta, error) {
	var env deltaJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal delta: %w", err)
	}

	kind, ok := classNameToKind[env.ClassName]
	if !ok {
		return nil, fmt.Errorf("class %q: %w", env.ClassName, ErrUnknownClassName)
	}

	d := New(kind)

	for _, raw := range env.Operations {
		op, err := model.UnmarshalOperation(doc, raw)
		if err != nil {
			return nil, fmt.Errorf("unmarshal delta: %w", err)
		}

		d.AddOperation(op)
	}

	return d, nil
}
