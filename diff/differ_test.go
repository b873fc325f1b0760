package diff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkaleta/treedoc/diff"
	"github.com/pkaleta/treedoc/model"
)

func newTrackedDoc(t *testing.T, children ...model.Node) (*model.Document, *model.RootElement, *diff.Differ) {
	t.Helper()

	doc := model.NewDocument()

	root, err := doc.CreateRoot("main")
	require.NoError(t, err)

	if len(children) > 0 {
		op := model.NewInsertOperation(
			model.NewPosition(root, []int{0}, model.SticksToNone), children, doc.Version())
		_, err = doc.ApplyOperation(op)
		require.NoError(t, err)
	}

	d := diff.New(doc)
	doc.OnOperation(d.BufferOperation)

	return doc, root, d
}

func pos(root *model.RootElement, path ...int) model.Position {
	return model.NewPosition(root, path, model.SticksToNone)
}

func apply(t *testing.T, doc *model.Document, op model.Operation) {
	t.Helper()

	_, err := doc.ApplyOperation(op)
	require.NoError(t, err)
}

func paragraph(text string) *model.Element {
	return model.NewElement("paragraph", nil, model.NewText(text, nil))
}

func TestDiffer_TextInsertIsCoalesced(t *testing.T) {
	t.Parallel()

	doc, root, d := newTrackedDoc(t, paragraph("foobar"))

	apply(t, doc, model.NewInsertOperation(
		pos(root, 0, 3), []model.Node{model.NewText("abc", nil)}, doc.Version()))

	changes := d.Changes()
	require.Len(t, changes, 1)

	c := changes[0]
	require.Equal(t, diff.ChangeInsert, c.Type)
	require.Equal(t, diff.TextItemName, c.Name)
	require.Equal(t, 3, c.Length)
	require.True(t, c.Position.IsEqual(pos(root, 0, 3)))
}

func TestDiffer_InsertThenRemoveCancelsOut(t *testing.T) {
	t.Parallel()

	// Content that was inserted and removed within the same tracked window
	// never existed as far as the diff is concerned.
	doc, root, d := newTrackedDoc(t, paragraph("foobar"))

	apply(t, doc, model.NewInsertOperation(
		pos(root, 0, 3), []model.Node{model.NewText("abc", nil)}, doc.Version()))
	apply(t, doc, model.NewRemoveOperation(doc, pos(root, 0, 3), 3, doc.Version()))

	require.Empty(t, d.Changes())
}

func TestDiffer_RemoveIsRecorded(t *testing.T) {
	t.Parallel()

	doc, root, d := newTrackedDoc(t, paragraph("foobar"))

	apply(t, doc, model.NewRemoveOperation(doc, pos(root, 0, 2), 2, doc.Version()))

	changes := d.Changes()
	require.Len(t, changes, 1)

	c := changes[0]
	require.Equal(t, diff.ChangeRemove, c.Type)
	require.Equal(t, diff.TextItemName, c.Name)
	require.Equal(t, 2, c.Length)
	require.True(t, c.Position.IsEqual(pos(root, 0, 2)), "removed content is reported at its current position")
}

func TestDiffer_AttributeChangeCoalescesRange(t *testing.T) {
	t.Parallel()

	doc, root, d := newTrackedDoc(t, paragraph("foobar"))

	r := model.NewRange(pos(root, 0, 1), pos(root, 0, 4))
	apply(t, doc, model.NewAttributeOperation(r, "bold", nil, true, doc.Version()))

	changes := d.Changes()
	require.Len(t, changes, 1)

	c := changes[0]
	require.Equal(t, diff.ChangeAttribute, c.Type)
	require.Equal(t, "bold", c.Key)
	require.Nil(t, c.OldValue)
	require.Equal(t, true, c.NewValue)
	require.True(t, c.Range.Start.IsEqual(pos(root, 0, 1)))
	require.True(t, c.Range.End.IsEqual(pos(root, 0, 4)))
}

func TestDiffer_RenameReportsInsertAndRemove(t *testing.T) {
	t.Parallel()

	doc, root, d := newTrackedDoc(t, paragraph("foo"))

	apply(t, doc, model.NewRenameOperation(pos(root, 0), "paragraph", "heading", doc.Version()))

	changes := d.Changes()
	require.Len(t, changes, 2)

	require.Equal(t, diff.ChangeInsert, changes[0].Type)
	require.Equal(t, "heading", changes[0].Name)
	require.True(t, changes[0].Position.IsEqual(pos(root, 0)))

	require.Equal(t, diff.ChangeRemove, changes[1].Type)
	require.Equal(t, "paragraph", changes[1].Name)
	require.True(t, changes[1].Position.IsEqual(pos(root, 0)))
}

func TestDiffer_ChangesInsideInsertedElementAreCovered(t *testing.T) {
	t.Parallel()

	// Setting an attribute inside a freshly inserted element adds nothing:
	// the insert record already covers the whole subtree.
	doc, root, d := newTrackedDoc(t, paragraph("foo"))

	apply(t, doc, model.NewInsertOperation(
		pos(root, 1), []model.Node{paragraph("bar")}, doc.Version()))

	r := model.NewRange(pos(root, 1, 0), pos(root, 1, 3))
	apply(t, doc, model.NewAttributeOperation(r, "bold", nil, true, doc.Version()))

	changes := d.Changes()
	require.Len(t, changes, 1)
	require.Equal(t, diff.ChangeInsert, changes[0].Type)
	require.Equal(t, "paragraph", changes[0].Name)
	require.True(t, changes[0].Position.IsEqual(pos(root, 1)))
}

func TestDiffer_MoveReportsRemoveAndInsert(t *testing.T) {
	t.Parallel()

	doc, root, d := newTrackedDoc(t, paragraph("foobar"), model.NewElement("paragraph", nil))

	apply(t, doc, model.NewMoveOperation(pos(root, 0, 3), 3, pos(root, 1, 0), doc.Version()))

	changes := d.Changes()
	require.Len(t, changes, 2)

	require.Equal(t, diff.ChangeRemove, changes[0].Type)
	require.Equal(t, 3, changes[0].Length)
	require.True(t, changes[0].Position.IsEqual(pos(root, 0, 3)))

	require.Equal(t, diff.ChangeInsert, changes[1].Type)
	require.Equal(t, 3, changes[1].Length)
	require.True(t, changes[1].Position.IsEqual(pos(root, 1, 0)))
}

func TestDiffer_ResetDropsBufferedState(t *testing.T) {
	t.Parallel()

	doc, root, d := newTrackedDoc(t, paragraph("foobar"))

	apply(t, doc, model.NewInsertOperation(
		pos(root, 0, 0), []model.Node{model.NewText("x", nil)}, doc.Version()))
	require.False(t, d.IsEmpty())

	d.Reset()
	require.True(t, d.IsEmpty())
	require.Empty(t, d.Changes())
}

func TestDiffer_GraveyardChangesOnRequest(t *testing.T) {
	t.Parallel()

	doc, root, d := newTrackedDoc(t, paragraph("foobar"))

	apply(t, doc, model.NewRemoveOperation(doc, pos(root, 0, 2), 2, doc.Version()))

	require.Len(t, d.Changes(), 1, "graveyard content stays out by default")

	all := d.ChangesIncludingGraveyard()
	require.Len(t, all, 2, "the fresh holder shows up as an insert when asked for")
	require.Equal(t, diff.ChangeInsert, all[0].Type)
	require.Equal(t, model.HolderElementName, all[0].Name)
	require.Equal(t, diff.ChangeRemove, all[1].Type)
}

func TestDiffer_MarkerChangesCollapse(t *testing.T) {
	t.Parallel()

	doc, root, d := newTrackedDoc(t, paragraph("foobar"))
	doc.Markers().OnChange(func(name string, oldRange, newRange *model.Range) {
		d.BufferMarkerChange(name, oldRange, newRange)
	})

	doc.Markers().Set("selection", model.NewRange(pos(root, 0, 0), pos(root, 0, 2)), false)
	doc.Markers().Set("selection", model.NewRange(pos(root, 0, 1), pos(root, 0, 3)), false)

	changes := d.MarkerChanges()
	require.Len(t, changes, 1)
	require.Equal(t, "selection", changes[0].Name)
	require.Nil(t, changes[0].OldRange, "marker did not exist before the window")
	require.True(t, changes[0].NewRange.Start.IsEqual(pos(root, 0, 1)))

	doc.Markers().Remove("selection")
	require.Empty(t, d.MarkerChanges(), "added and removed within one window nets out")
	require.True(t, d.IsEmpty())
}

func TestDiffer_EmptyWithoutOperations(t *testing.T) {
	t.Parallel()

	_, _, d := newTrackedDoc(t, paragraph("foo"))

	require.True(t, d.IsEmpty())
	require.Empty(t, d.Changes())
}
