package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkaleta/treedoc/model"
)

func rng(root *model.RootElement, start, end []int) model.Range {
	return model.NewRange(pos(root, start...), pos(root, end...))
}

func TestRangeContainment(t *testing.T) {
	t.Parallel()

	_, root := newTestDoc(t)

	r := rng(root, []int{0, 2}, []int{0, 6})

	if !r.ContainsPosition(pos(root, 0, 4)) {
		t.Error("interior position should be contained")
	}

	if r.ContainsPosition(pos(root, 0, 2)) {
		t.Error("start boundary is not contained")
	}

	if r.ContainsPosition(pos(root, 0, 6)) {
		t.Error("end boundary is not contained")
	}

	if !r.ContainsRange(rng(root, []int{0, 2}, []int{0, 5})) {
		t.Error("sub-range sharing the start boundary should be contained")
	}

	if r.ContainsRange(rng(root, []int{0, 1}, []int{0, 5})) {
		t.Error("range sticking out on the left should not be contained")
	}
}

func TestRangeDifferenceAndIntersection(t *testing.T) {
	t.Parallel()

	_, root := newTestDoc(t)

	a := rng(root, []int{0, 2}, []int{0, 8})
	b := rng(root, []int{0, 5}, []int{0, 10})

	diff := a.Difference(b)
	require.Len(t, diff, 1)
	require.True(t, diff[0].IsEqual(rng(root, []int{0, 2}, []int{0, 5})))

	common, ok := a.Intersection(b)
	require.True(t, ok)
	require.True(t, common.IsEqual(rng(root, []int{0, 5}, []int{0, 8})))

	// b punched out of the middle leaves two pieces.
	inner := rng(root, []int{0, 4}, []int{0, 6})

	diff = a.Difference(inner)
	require.Len(t, diff, 2)
	require.True(t, diff[0].IsEqual(rng(root, []int{0, 2}, []int{0, 4})))
	require.True(t, diff[1].IsEqual(rng(root, []int{0, 6}, []int{0, 8})))

	disjoint := rng(root, []int{1, 0}, []int{1, 4})

	_, ok = a.Intersection(disjoint)
	if ok {
		t.Error("disjoint ranges must not intersect")
	}
}

func TestRangeTransformedByInsertion_Spread(t *testing.T) {
	t.Parallel()

	_, root := newTestDoc(t)

	r := rng(root, []int{0, 2}, []int{0, 8})

	parts := r.TransformedByInsertion(pos(root, 0, 5), 3, true, false)
	require.Len(t, parts, 2, "insertion inside a spread range splits it")
	require.True(t, parts[0].IsEqual(rng(root, []int{0, 2}, []int{0, 5})))
	require.True(t, parts[1].IsEqual(rng(root, []int{0, 8}, []int{0, 11})))

	grown := r.TransformedByInsertion(pos(root, 0, 5), 3, false, false)
	require.Len(t, grown, 1, "without spread the range grows around the insertion")
	require.True(t, grown[0].IsEqual(rng(root, []int{0, 2}, []int{0, 11})))
}

func TestRangeTransformedByMove_InsertionInMiddle(t *testing.T) {
	t.Parallel()

	_, root := newTestDoc(t)

	// Moving 4 nodes from [8] into [5,0] lands them inside the range, which
	// grows to keep covering the same content.
	r := rng(root, []int{3, 2}, []int{5, 4})

	out := r.TransformedByMove(pos(root, 8), pos(root, 5, 0), 4, false)
	require.Len(t, out, 1)
	require.True(t, out[0].IsEqual(rng(root, []int{3, 2}, []int{5, 8})),
		"got %v..%v", out[0].Start.Path, out[0].End.Path)
}

func TestRangeTransformedByMove_SpanMovedAway(t *testing.T) {
	t.Parallel()

	_, root := newTestDoc(t)

	// The whole range sits inside the moved span and relocates with it.
	r := rng(root, []int{0, 3}, []int{0, 5})

	out := r.TransformedByMove(pos(root, 0, 2), pos(root, 1, 0), 4, false)
	require.Len(t, out, 1)
	require.True(t, out[0].IsEqual(rng(root, []int{1, 1}, []int{1, 3})))
}

func TestRangeMinimalFlatRanges(t *testing.T) {
	t.Parallel()

	first := model.NewElement("paragraph", nil, model.NewText("foo", nil))
	second := model.NewElement("paragraph", nil, model.NewText("bar", nil))
	_, root := newTestDoc(t, first, second)

	r := rng(root, []int{0, 1}, []int{1, 2})

	flat, err := r.MinimalFlatRanges()
	require.NoError(t, err)
	require.Len(t, flat, 2)
	require.True(t, flat[0].IsEqual(rng(root, []int{0, 1}, []int{0, 3})))
	require.True(t, flat[1].IsEqual(rng(root, []int{1, 0}, []int{1, 2})))

	for _, f := range flat {
		if !f.IsFlat() {
			t.Errorf("range %v..%v should be flat", f.Start.Path, f.End.Path)
		}
	}
}
