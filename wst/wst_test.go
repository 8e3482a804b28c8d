package wst_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/betree/wst"
)

func TestEmptyWindowIsReadHeavy(t *testing.T) {
	tr := wst.NewTracker(100)
	require.Equal(t, wst.ReadHeavy, tr.Epsilon())
}

func TestAllWritesConvergesToWriteHeavy(t *testing.T) {
	tr := wst.NewTracker(100)
	for i := 0; i < 100; i++ {
		tr.AddWrite()
	}
	require.InDelta(t, float64(wst.WriteHeavy), float64(tr.Epsilon()), 0.001)
}

func TestAllReadsConvergesToReadHeavy(t *testing.T) {
	tr := wst.NewTracker(100)
	for i := 0; i < 100; i++ {
		tr.AddRead()
	}
	require.InDelta(t, float64(wst.ReadHeavy), float64(tr.Epsilon()), 0.001)
}

func TestWindowEvictsOldest(t *testing.T) {
	tr := wst.NewTracker(4)
	tr.AddWrite()
	tr.AddWrite()
	tr.AddWrite()
	tr.AddWrite()
	require.Equal(t, 4, tr.WriteCount())
	tr.AddRead()
	require.Equal(t, 3, tr.WriteCount())
	require.Equal(t, 1, tr.ReadCount())
}

func TestMixedWorkloadIsBetweenExtremes(t *testing.T) {
	tr := wst.NewTracker(100)
	for i := 0; i < 50; i++ {
		tr.AddWrite()
		tr.AddRead()
	}
	e := tr.Epsilon()
	require.Greater(t, e, wst.WriteHeavy)
	require.Less(t, e, wst.ReadHeavy)
}
