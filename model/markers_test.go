package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkaleta/treedoc/model"
)

func TestMarkerCollection_SetGetRemove(t *testing.T) {
	t.Parallel()

	doc, root := newTestDoc(t, paragraph("foobar"))
	markers := doc.Markers()

	r := rng(root, []int{0, 1}, []int{0, 4})

	m := markers.Set("selection:alice", r, true)
	require.True(t, m.ManagedUsingOperations())

	got, ok := markers.Get("selection:alice")
	require.True(t, ok)

	gotRange, err := got.Range()
	require.NoError(t, err)
	require.True(t, gotRange.IsEqual(r))

	require.True(t, markers.Remove("selection:alice"))

	if _, ok := markers.Get("selection:alice"); ok {
		t.Error("removed marker should not be resolvable")
	}

	_, err = m.Range()
	require.ErrorIs(t, err, model.ErrMarkerDestroyed)

	if markers.Remove("selection:alice") {
		t.Error("removing twice should report false")
	}
}

func TestMarkerCollection_ChangeNotifications(t *testing.T) {
	t.Parallel()

	doc, root := newTestDoc(t, paragraph("foobar"))
	markers := doc.Markers()

	type event struct {
		name     string
		hasOld   bool
		hasNew   bool
		newStart []int
	}

	var events []event

	markers.OnChange(func(name string, oldRange, newRange *model.Range) {
		e := event{name: name, hasOld: oldRange != nil, hasNew: newRange != nil}
		if newRange != nil {
			e.newStart = newRange.Start.Path
		}

		events = append(events, e)
	})

	markers.Set("comment:1", rng(root, []int{0, 0}, []int{0, 2}), false)
	markers.Set("comment:1", rng(root, []int{0, 3}, []int{0, 5}), false)
	markers.Remove("comment:1")

	require.Len(t, events, 3)

	require.Equal(t, event{name: "comment:1", hasOld: false, hasNew: true, newStart: []int{0, 0}}, events[0])
	require.Equal(t, event{name: "comment:1", hasOld: true, hasNew: true, newStart: []int{0, 3}}, events[1])
	require.Equal(t, event{name: "comment:1", hasOld: true, hasNew: false}, events[2])
}
