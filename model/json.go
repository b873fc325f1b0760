package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownClassName is returned when deserializing an operation with an
// unrecognized __className discriminator.
var ErrUnknownClassName = errors.New("unknown operation class name")

const textNodeName = "$text"

type positionJSON struct {
	Root       string `json:"root"`
	Path       []int  `json:"path"`
	Stickiness string `json:"stickiness,omitempty"`
}

type rangeJSON struct {
	Start positionJSON `json:"start"`
	End   positionJSON `json:"end"`
}

type nodeJSON struct {
	Name       string         `json:"name,omitempty"`
	Data       string         `json:"data,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Children   []nodeJSON     `json:"children,omitempty"`
}

// operationJSON is the flat envelope every operation serializes into,
// discriminated by __className.
type operationJSON struct {
	ClassName   string        `json:"__className"`
	BaseVersion int           `json:"baseVersion"`
	Position    *positionJSON `json:"position,omitempty"`
	Nodes       []nodeJSON    `json:"nodes,omitempty"`
	Source      *positionJSON `json:"sourcePosition,omitempty"`
	HowMany     int           `json:"howMany,omitempty"`
	Target      *positionJSON `json:"targetPosition,omitempty"`
	IsSticky    bool          `json:"isSticky,omitempty"`
	NewHolder   bool          `json:"newHolder,omitempty"`
	Range       *rangeJSON    `json:"range,omitempty"`
	Key         string        `json:"key,omitempty"`
	OldValue    any           `json:"oldValue,omitempty"`
	NewValue    any           `json:"newValue,omitempty"`
	OldName     string        `json:"oldName,omitempty"`
	NewName     string        `json:"newName,omitempty"`
}

func stickinessToJSON(s Stickiness) string {
	switch s {
	case SticksToPrevious:
		return "toPrevious"
	case SticksToNext:
		return "toNext"
	default:
		return ""
	}
}

func stickinessFromJSON(s string) Stickiness {
	switch s {
	case "toPrevious":
		return SticksToPrevious
	case "toNext":
		return SticksToNext
	default:
		return SticksToNone
	}
}

func positionToJSON(p Position) *positionJSON {
	return &positionJSON{
		Root:       p.Root.RootName(),
		Path:       append([]int{}, p.Path...),
		Stickiness: stickinessToJSON(p.Stickiness),
	}
}

func positionFromJSON(doc *Document, raw *positionJSON) (Position, error) {
	root, err := doc.Root(raw.Root)
	if err != nil {
		return Position{}, err
	}

	return Position{
		Root:       root,
		Path:       append([]int{}, raw.Path...),
		Stickiness: stickinessFromJSON(raw.Stickiness),
	}, nil
}

func rangeToJSON(r Range) *rangeJSON {
	return &rangeJSON{Start: *positionToJSON(r.Start), End: *positionToJSON(r.End)}
}

func rangeFromJSON(doc *Document, raw *rangeJSON) (Range, error) {
	start, err := positionFromJSON(doc, &raw.Start)
	if err != nil {
		return Range{}, err
	}

	end, err := positionFromJSON(doc, &raw.End)
	if err != nil {
		return Range{}, err
	}

	return Range{Start: start, End: end}, nil
}

func nodeToJSON(n Node) nodeJSON {
	switch v := n.(type) {
	case *Text:
		return nodeJSON{Name: textNodeName, Data: v.Data(), Attributes: v.Attributes()}
	case *Element:
		out := nodeJSON{Name: v.Name(), Attributes: v.Attributes()}
		for i := 0; i < v.ChildCount(); i++ {
			out.Children = append(out.Children, nodeToJSON(v.Child(i)))
		}

		return out
	}

	return nodeJSON{}
}

func nodeFromJSON(raw nodeJSON) Node {
	if raw.Name == textNodeName {
		return NewText(raw.Data, raw.Attributes)
	}

	el := NewElement(raw.Name, raw.Attributes)
	for _, child := range raw.Children {
		c := nodeFromJSON(child)
		c.setParent(el)
		el.children = append(el.children, c)
	}

	return el
}

func nodesToJSON(nodes []Node) []nodeJSON {
	out := make([]nodeJSON, len(nodes))
	for i, n := range nodes {
		out[i] = nodeToJSON(n)
	}

	return out
}

func nodesFromJSON(raw []nodeJSON) []Node {
	out := make([]Node, len(raw))
	for i, r := range raw {
		out[i] = nodeFromJSON(r)
	}

	return out
}

// MarshalPosition serializes a position to JSON, identifying the root by
// name.
func MarshalPosition(p Position) ([]byte, error) {
	return json.Marshal(positionToJSON(p))
}

// UnmarshalPosition reconstructs a position against the given document.
func UnmarshalPosition(doc *Document, data []byte) (Position, error) {
	var raw positionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Position{}, fmt.Errorf("unmarshal position: %w", err)
	}

	return positionFromJSON(doc, &raw)
}

// MarshalRange serializes a range to JSON.
func MarshalRange(r Range) ([]byte, error) {
	return json.Marshal(rangeToJSON(r))
}

// UnmarshalRange reconstructs a range against the given document.
func UnmarshalRange(doc *Document, data []byte) (Range, error) {
	var raw rangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Range{}, fmt.Errorf("unmarshal range: %w", err)
	}

	return rangeFromJSON(doc, &raw)
}

// MarshalOperation serializes an operation with its __className
// discriminator, so it can be reconstructed polymorphically.
func MarshalOperation(op Operation) ([]byte, error) {
	env := operationJSON{BaseVersion: op.BaseVersion()}

	switch o := op.(type) {
	case *InsertOperation:
		env.ClassName = "InsertOperation"
		env.Position = positionToJSON(o.Position)
		env.Nodes = nodesToJSON(o.Nodes)
	case *MoveOperation:
		env.ClassName = "MoveOperation"
		env.Source = positionToJSON(o.Source)
		env.HowMany = o.HowMany
		env.Target = positionToJSON(o.Target)
		env.IsSticky = o.IsSticky
	case *RemoveOperation:
		env.ClassName = "RemoveOperation"
		env.Source = positionToJSON(o.Source)
		env.HowMany = o.HowMany
		env.Target = positionToJSON(o.Target)
		env.NewHolder = o.NewHolder
	case *ReinsertOperation:
		env.ClassName = "ReinsertOperation"
		env.Source = positionToJSON(o.Source)
		env.HowMany = o.HowMany
		env.Target = positionToJSON(o.Target)
	case *AttributeOperation:
		env.ClassName = "AttributeOperation"
		env.Range = rangeToJSON(o.Range)
		env.Key = o.Key
		env.OldValue = o.OldValue
		env.NewValue = o.NewValue
	case *RenameOperation:
		env.ClassName = "RenameOperation"
		env.Position = positionToJSON(o.Position)
		env.OldName = o.OldName
		env.NewName = o.NewName
	case *NoOperation:
		env.ClassName = "NoOperation"
	default:
		return nil, fmt.Errorf("marshal operation: %w", ErrUnknownClassName)
	}

	return json.Marshal(env)
}

// UnmarshalOperation reconstructs an operation against the given document.
// Fails with ErrUnknownClassName for unrecognized discriminators.
func UnmarshalOperation(doc *Document, data []byte) (Operation, error) {
	var env operationJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal operation: %w", err)
	}

	return operationFromJSON(doc, &env)
}

func operationFromJSON(doc *Document, env *operationJSON) (Operation, error) {
	switch env.ClassName {
	case "InsertOperation":
		pos, err := positionFromJSON(doc, env.Position)
		if err != nil {
			return nil, err
		}

		return &InsertOperation{
			Position:    pos,
			Nodes:       nodesFromJSON(env.Nodes),
			baseVersion: env.BaseVersion,
		}, nil
	case "MoveOperation", "RemoveOperation", "ReinsertOperation":
		source, err := positionFromJSON(doc, env.Source)
		if err != nil {
			return nil, err
		}

		target, err := positionFromJSON(doc, env.Target)
		if err != nil {
			return nil, err
		}

		switch env.ClassName {
		case "RemoveOperation":
			return &RemoveOperation{
				Source:      source,
				HowMany:     env.HowMany,
				Target:      target,
				NewHolder:   env.NewHolder,
				baseVersion: env.BaseVersion,
			}, nil
		case "ReinsertOperation":
			return &ReinsertOperation{
				Source:      source,
				HowMany:     env.HowMany,
				Target:      target,
				baseVersion: env.BaseVersion,
			}, nil
		default:
			return &MoveOperation{
				Source:      source,
				HowMany:     env.HowMany,
				Target:      target,
				IsSticky:    env.IsSticky,
				baseVersion: env.BaseVersion,
			}, nil
		}
	case "AttributeOperation":
		r, err := rangeFromJSON(doc, env.Range)
		if err != nil {
			return nil, err
		}

		return &AttributeOperation{
			Range:       r,
			Key:         env.Key,
			OldValue:    env.OldValue,
			NewValue:    env.NewValue,
			baseVersion: env.BaseVersion,
		}, nil
	case "RenameOperation":
		pos, err := positionFromJSON(doc, env.Position)
		if err != nil {
			return nil, err
		}

		return &RenameOperation{
			Position:    pos,
			OldName:     env.OldName,
			NewName:     env.NewName,
			baseVersion: env.BaseVersion,
		}, nil
	case "NoOperation":
		return &NoOperation{baseVersion: env.BaseVersion}, nil
	default:
		return nil, fmt.Errorf("class %q: %w", env.ClassName, ErrUnknownClassName)
	}
}
