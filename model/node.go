// Package model implements the tree-shaped document model and its
// operational-transformation primitives: nodes, positions, ranges and the
// operation set that mutates the tree.
package model

// Node is a single item in the document tree: either an Element or a Text run.
type Node interface {
	// OffsetSize returns how much of the parent's offset space this node
	// occupies. Elements take 1, text runs take one slot per character.
	OffsetSize() int

	// Parent returns the element owning this node, or nil for detached
	// nodes and root elements.
	Parent() *Element

	// CloneNode returns a deep copy of this node. The copy is detached.
	CloneNode() Node

	setParent(*Element)
}

// nodeListSize sums the offset sizes of a list of nodes.
func nodeListSize(nodes []Node) int {
	size := 0
	for _, n := range nodes {
		size += n.OffsetSize()
	}

	return size
}

// cloneNodes deep-copies a list of nodes.
func cloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.CloneNode()
	}

	return out
}

// cloneAttrs copies an attribute map, coercing every value to its JSON
// shape on the way in.
func cloneAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}

	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = normalizeAttrValue(v)
	}

	return out
}

// normalizeAttrValue coerces an attribute value to the shape encoding/json
// decodes it into, so values compare equal whether they were built in
// process or reconstructed from the wire. Numbers become float64, maps and
// slices normalize recursively.
func normalizeAttrValue(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeAttrValue(item)
		}

		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeAttrValue(item)
		}

		return out
	default:
		return v
	}
}

// attrsEqual compares two attribute maps for equality.
func attrsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}

	for k, v := range a {
		other, ok := b[k]
		if !ok || !attrValueEqual(v, other) {
			return false
		}
	}

	return true
}

// attrValueEqual compares two attribute values. Values are restricted to
// JSON scalars, so a direct comparison is enough for everything the model
// produces itself; maps and slices compare recursively.
func attrValueEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)

		return ok && attrsEqual(av, bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}

		for i := range av {
			if !attrValueEqual(av[i], bv[i]) {
				return false
			}
		}

		return true
	default:
		return a == b
	}
}
