package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkaleta/treedoc/model"
)

func paragraph(text string) *model.Element {
	return model.NewElement("paragraph", nil, model.NewText(text, nil))
}

func expectTree(t *testing.T, root *model.RootElement, want *model.Element) {
	t.Helper()

	if !model.ElementsEqual(&root.Element, want) {
		t.Errorf("tree does not match expected structure")
	}
}

func apply(t *testing.T, doc *model.Document, op model.Operation) {
	t.Helper()

	_, err := doc.ApplyOperation(op)
	require.NoError(t, err)
}

func TestMoveOperation_MoveAndReverse(t *testing.T) {
	t.Parallel()

	// <p>foobar</p>: moving "bar" before "foo" gives <p>barfoo</p>, and the
	// reverse restores the original.
	doc, root := newTestDoc(t, paragraph("foobar"))

	move := model.NewMoveOperation(pos(root, 0, 3), 3, pos(root, 0, 0), doc.Version())
	apply(t, doc, move)

	expectTree(t, root, model.NewElement("$root", nil, paragraph("barfoo")))

	apply(t, doc, move.Reversed())

	expectTree(t, root, model.NewElement("$root", nil, paragraph("foobar")))
}

func TestMoveOperation_TargetInsideMovedRange(t *testing.T) {
	t.Parallel()

	doc, root := newTestDoc(t, paragraph("foobar"))

	move := model.NewMoveOperation(pos(root, 0, 1), 4, pos(root, 0, 2), doc.Version())

	_, err := doc.ApplyOperation(move)
	require.ErrorIs(t, err, model.ErrMoveInsideItself)
}

func TestRemoveOperation_GraveyardRoundTrip(t *testing.T) {
	t.Parallel()

	doc, root := newTestDoc(t, paragraph("foobar"))

	remove := model.NewRemoveOperation(doc, pos(root, 0, 2), 3, doc.Version())
	apply(t, doc, remove)

	expectTree(t, root, model.NewElement("$root", nil, paragraph("for")))

	gy := doc.Graveyard()
	require.Equal(t, 1, gy.ChildCount(), "remove should create exactly one holder")

	holder, ok := gy.Child(0).(*model.Element)
	require.True(t, ok)
	require.Equal(t, model.HolderElementName, holder.Name())

	text, ok := holder.Child(0).(*model.Text)
	require.True(t, ok)
	require.Equal(t, "oba", text.Data())

	apply(t, doc, remove.Reversed())

	expectTree(t, root, model.NewElement("$root", nil, paragraph("foobar")))
}

func TestInsertOperation_ReverseRemovesInsertedSpan(t *testing.T) {
	t.Parallel()

	doc, root := newTestDoc(t, paragraph("ad"))

	insert := model.NewInsertOperation(pos(root, 0, 1), []model.Node{model.NewText("bc", nil)}, doc.Version())
	apply(t, doc, insert)

	expectTree(t, root, model.NewElement("$root", nil, paragraph("abcd")))

	apply(t, doc, insert.Reversed())

	expectTree(t, root, model.NewElement("$root", nil, paragraph("ad")))
}

func TestAttributeOperation_ApplyAndReverse(t *testing.T) {
	t.Parallel()

	doc, root := newTestDoc(t, paragraph("foobar"))

	r := rng(root, []int{0, 0}, []int{0, 3})

	attr := model.NewAttributeOperation(r, "bold", nil, true, doc.Version())
	apply(t, doc, attr)

	expectTree(t, root, model.NewElement("$root", nil, model.NewElement("paragraph", nil,
		model.NewText("foo", map[string]any{"bold": true}),
		model.NewText("bar", nil),
	)))

	apply(t, doc, attr.Reversed())

	expectTree(t, root, model.NewElement("$root", nil, paragraph("foobar")))
}

func TestAttributeOperation_PreconditionErrors(t *testing.T) {
	t.Parallel()

	doc, root := newTestDoc(t, paragraph("foobar"))

	r := rng(root, []int{0, 0}, []int{0, 3})

	t.Run("declared old value missing", func(t *testing.T) {
		op := model.NewAttributeOperation(r, "bold", true, false, doc.Version())

		_, err := doc.ApplyOperation(op)
		require.ErrorIs(t, err, model.ErrAttributeMissing)
	})

	t.Run("attribute already set", func(t *testing.T) {
		apply(t, doc, model.NewAttributeOperation(r, "bold", nil, true, doc.Version()))

		op := model.NewAttributeOperation(r, "bold", nil, false, doc.Version())

		_, err := doc.ApplyOperation(op)
		require.ErrorIs(t, err, model.ErrAttributeExists)
	})

	t.Run("different value than declared", func(t *testing.T) {
		op := model.NewAttributeOperation(r, "bold", "wrong", false, doc.Version())

		_, err := doc.ApplyOperation(op)
		require.ErrorIs(t, err, model.ErrAttributeMismatch)
	})
}

func TestRenameOperation(t *testing.T) {
	t.Parallel()

	doc, root := newTestDoc(t, paragraph("foo"))

	rename := model.NewRenameOperation(pos(root, 0), "paragraph", "heading", doc.Version())
	apply(t, doc, rename)

	expectTree(t, root, model.NewElement("$root", nil,
		model.NewElement("heading", nil, model.NewText("foo", nil))))

	t.Run("old name mismatch", func(t *testing.T) {
		bad := model.NewRenameOperation(pos(root, 0), "paragraph", "listItem", doc.Version())

		_, err := doc.ApplyOperation(bad)
		require.ErrorIs(t, err, model.ErrNameMismatch)
	})

	t.Run("position addressing text", func(t *testing.T) {
		bad := model.NewRenameOperation(pos(root, 0, 0), "paragraph", "heading", doc.Version())

		_, err := doc.ApplyOperation(bad)
		require.ErrorIs(t, err, model.ErrNotAnElement)
	})

	apply(t, doc, rename.Reversed())

	expectTree(t, root, model.NewElement("$root", nil, paragraph("foo")))
}

func TestApplyOperation_VersionMismatch(t *testing.T) {
	t.Parallel()

	doc, root := newTestDoc(t, paragraph("foo"))

	stale := model.NewInsertOperation(pos(root, 0, 0), []model.Node{model.NewText("x", nil)}, doc.Version()+5)

	_, err := doc.ApplyOperation(stale)
	require.ErrorIs(t, err, model.ErrVersionMismatch)
}

func TestDocumentVersionAdvancesPerOperation(t *testing.T) {
	t.Parallel()

	doc, root := newTestDoc(t, paragraph("foo"))

	before := doc.Version()

	apply(t, doc, model.NewInsertOperation(pos(root, 0, 0), []model.Node{model.NewText("x", nil)}, before))
	require.Equal(t, before+1, doc.Version())

	noop := model.NewNoOperation(doc.Version())
	apply(t, doc, noop)
	require.Equal(t, before+2, doc.Version())
}

func TestReinsertOperation_RestoresFromGraveyard(t *testing.T) {
	t.Parallel()

	doc, root := newTestDoc(t, paragraph("foobar"))

	remove := model.NewRemoveOperation(doc, pos(root, 0, 0), 3, doc.Version())
	apply(t, doc, remove)

	gy := doc.Graveyard()

	reinsert := model.NewReinsertOperation(
		model.NewPosition(gy, []int{0, 0}, model.SticksToNone),
		3,
		pos(root, 0, 3),
		doc.Version(),
	)
	apply(t, doc, reinsert)

	expectTree(t, root, model.NewElement("$root", nil, paragraph("barfoo")))
	require.Equal(t, 0, gyContentSize(doc), "reinserted content must leave the holder empty")
}

func gyContentSize(doc *model.Document) int {
	total := 0

	gy := doc.Graveyard()
	for i := 0; i < gy.ChildCount(); i++ {
		if el, ok := gy.Child(i).(*model.Element); ok {
			total += el.MaxOffset()
		}
	}

	return total
}
