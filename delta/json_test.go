package delta_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkaleta/treedoc/delta"
	"github.com/pkaleta/treedoc/model"
)

func TestDeltaJSONRoundTrip_ExecutesIdentically(t *testing.T) {
	t.Parallel()

	docA, rootA := newDoc(t, paragraph("foobar"))
	docB, _ := newDoc(t, paragraph("foobar"))

	d, err := delta.NewSplit(pos(rootA, 0, 3), docA.Version())
	require.NoError(t, err)

	data, err := delta.Marshal(d)
	require.NoError(t, err)

	decoded, err := delta.Unmarshal(docB, data)
	require.NoError(t, err)
	require.Equal(t, delta.Split, decoded.Kind())

	applyDelta(t, docA, d)
	applyDelta(t, docB, decoded)

	rootB, err := docB.Root("main")
	require.NoError(t, err)
	require.True(t, model.ElementsEqual(&rootA.Element, &rootB.Element))
}

func TestUnmarshalDelta_UnknownClassName(t *testing.T) {
	t.Parallel()

	doc, _ := newDoc(t, paragraph("foo"))

	_, err := delta.Unmarshal(doc, []byte(`{"__className":"NopeDelta","operations":[]}`))
	require.ErrorIs(t, err, delta.ErrUnknownClassName)
}
