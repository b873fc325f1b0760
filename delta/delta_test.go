package delta_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkaleta/treedoc/delta"
	"github.com/pkaleta/treedoc/model"
)

func newDoc(t *testing.T, children ...model.Node) (*model.Document, *model.RootElement) {
	t.Helper()

	doc := model.NewDocument()

	root, err := doc.CreateRoot("main")
	require.NoError(t, err)

	if len(children) > 0 {
		ins := model.NewInsertOperation(pos(root, 0), children, doc.Version())
		_, err = doc.ApplyOperation(ins)
		require.NoError(t, err)
	}

	return doc, root
}

func pos(root *model.RootElement, path ...int) model.Position {
	return model.NewPosition(root, path, model.SticksToNone)
}

func rng(root *model.RootElement, start, end []int) model.Range {
	return model.NewRange(pos(root, start...), pos(root, end...))
}

func paragraph(text string) *model.Element {
	return model.NewElement("paragraph", nil, model.NewText(text, nil))
}

func applyDelta(t *testing.T, doc *model.Document, d *delta.Delta) {
	t.Helper()

	for _, op := range d.Operations() {
		_, err := doc.ApplyOperation(op)
		require.NoError(t, err)
	}
}

func expectTree(t *testing.T, root *model.RootElement, children ...model.Node) {
	t.Helper()

	want := model.NewElement("$root", nil, children...)
	if !model.ElementsEqual(&root.Element, want) {
		t.Errorf("tree does not match expected structure")
	}
}

func TestSplitDelta(t *testing.T) {
	t.Parallel()

	doc, root := newDoc(t, paragraph("foobar"))

	d, err := delta.NewSplit(pos(root, 0, 3), doc.Version())
	require.NoError(t, err)
	require.Equal(t, delta.Split, d.Kind())

	applyDelta(t, doc, d)

	expectTree(t, root, paragraph("foo"), paragraph("bar"))

	rev := d.Reversed()
	require.Equal(t, delta.Merge, rev.Kind())

	applyDelta(t, doc, rev)

	expectTree(t, root, paragraph("foobar"))
}

func TestSplitDelta_CannotSplitRoot(t *testing.T) {
	t.Parallel()

	doc, root := newDoc(t, paragraph("foobar"))

	_, err := delta.NewSplit(pos(root, 1), doc.Version())
	require.ErrorIs(t, err, model.ErrInvalidPosition)
}

func TestMergeDelta(t *testing.T) {
	t.Parallel()

	doc, root := newDoc(t, paragraph("foo"), paragraph("bar"))

	d, err := delta.NewMerge(doc, pos(root, 1), doc.Version())
	require.NoError(t, err)

	seam, ok := d.MergePosition()
	require.True(t, ok)
	require.True(t, seam.IsEqual(pos(root, 1)))

	applyDelta(t, doc, d)

	expectTree(t, root, paragraph("foobar"))

	rev := d.Reversed()
	applyDelta(t, doc, rev)

	expectTree(t, root, paragraph("foo"), paragraph("bar"))
}

func TestMergeDelta_NeedsElementsOnBothSides(t *testing.T) {
	t.Parallel()

	doc, root := newDoc(t, paragraph("foo"))

	_, err := delta.NewMerge(doc, pos(root, 0), doc.Version())
	require.ErrorIs(t, err, model.ErrInvalidPosition)
}

func TestRemoveDelta_SpansElementBoundary(t *testing.T) {
	t.Parallel()

	doc, root := newDoc(t, paragraph("foo"), paragraph("bar"))

	// Removes "o", "o" from the first paragraph and "b", "a" from the
	// second; everything lands in one holder in document order.
	d, err := delta.NewRemove(doc, rng(root, []int{0, 1}, []int{1, 2}), doc.Version())
	require.NoError(t, err)

	applyDelta(t, doc, d)

	expectTree(t, root, paragraph("f"), paragraph("r"))

	gy := doc.Graveyard()
	require.Equal(t, 1, gy.ChildCount(), "one logical remove makes one holder")

	holder, ok := gy.Child(0).(*model.Element)
	require.True(t, ok)

	want := model.NewElement(model.HolderElementName, nil, model.NewText("ooba", nil))
	require.True(t, model.ElementsEqual(holder, want), "holder should keep removed content in document order")

	applyDelta(t, doc, d.Reversed())

	expectTree(t, root, paragraph("foo"), paragraph("bar"))
}

func TestWrapDelta(t *testing.T) {
	t.Parallel()

	doc, root := newDoc(t, paragraph("foobar"))

	d, err := delta.NewWrap(rng(root, []int{0, 1}, []int{0, 4}), "span", doc.Version())
	require.NoError(t, err)

	applyDelta(t, doc, d)

	expectTree(t, root, model.NewElement("paragraph", nil,
		model.NewText("f", nil),
		model.NewElement("span", nil, model.NewText("oob", nil)),
		model.NewText("ar", nil),
	))

	applyDelta(t, doc, d.Reversed())

	expectTree(t, root, paragraph("foobar"))
}

func TestUnwrapDelta(t *testing.T) {
	t.Parallel()

	doc, root := newDoc(t, model.NewElement("paragraph", nil,
		model.NewText("f", nil),
		model.NewElement("span", nil, model.NewText("oob", nil)),
		model.NewText("ar", nil),
	))

	d, err := delta.NewUnwrap(doc, pos(root, 0, 1), doc.Version())
	require.NoError(t, err)

	applyDelta(t, doc, d)

	expectTree(t, root, paragraph("foobar"))
}

func TestAttributeDelta_AcrossElements(t *testing.T) {
	t.Parallel()

	doc, root := newDoc(t, paragraph("foo"), paragraph("bar"))

	d, err := delta.NewAttribute(rng(root, []int{0, 1}, []int{1, 2}), "bold", nil, true, doc.Version())
	require.NoError(t, err)
	require.Len(t, d.Operations(), 2, "one operation per flat sub-range")

	applyDelta(t, doc, d)

	expectTree(t, root,
		model.NewElement("paragraph", nil,
			model.NewText("f", nil),
			model.NewText("oo", map[string]any{"bold": true}),
		),
		model.NewElement("paragraph", nil,
			model.NewText("ba", map[string]any{"bold": true}),
			model.NewText("r", nil),
		),
	)

	applyDelta(t, doc, d.Reversed())

	expectTree(t, root, paragraph("foo"), paragraph("bar"))
}

func TestDeltaBaseVersionAndRenumbering(t *testing.T) {
	t.Parallel()

	doc, root := newDoc(t, paragraph("foo"), paragraph("bar"))

	d, err := delta.NewMerge(doc, pos(root, 1), doc.Version())
	require.NoError(t, err)
	require.Equal(t, doc.Version(), d.BaseVersion())

	next := delta.RenumberFrom([]*delta.Delta{d}, 10)
	require.Equal(t, 12, next)
	require.Equal(t, 10, d.BaseVersion())
	require.Equal(t, 11, d.Operations()[1].BaseVersion())

	empty := delta.New(delta.Plain)
	require.Equal(t, -1, empty.BaseVersion())
}

func TestBatchGroupsDeltas(t *testing.T) {
	t.Parallel()

	doc, root := newDoc(t, paragraph("foobar"))

	b := delta.NewBatch()
	require.NotEmpty(t, b.ID())

	d, err := delta.NewSplit(pos(root, 0, 3), doc.Version())
	require.NoError(t, err)

	b.AddDelta(d)

	require.Len(t, b.Deltas(), 1)
	require.Equal(t, b, d.Batch())
}
