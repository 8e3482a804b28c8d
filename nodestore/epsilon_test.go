package nodestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateMaxPivotsTieRules(t *testing.T) {
	// epsilon=1 makes B = round(maxNodeSize^1) = maxNodeSize exactly, so each
	// case below isolates one tie-break branch.
	require.Equal(t, 64, calculateMaxPivots(64, 1.0))  // r=0
	require.Equal(t, 60, calculateMaxPivots(61, 1.0))  // r=1, B-r
	require.Equal(t, 36, calculateMaxPivots(34, 1.0))  // r=2, B>32, B+2
	require.Equal(t, 28, calculateMaxPivots(30, 1.0))  // r=2, B<=32, B-2
	require.Equal(t, 64, calculateMaxPivots(63, 1.0))  // r=3, B+(4-r)
}

func TestSetEpsilonReportsChangeAndGrowth(t *testing.T) {
	cfg := DefaultTestConfig()
	n := NewNode[int, int](1, 0, 0.4, cfg)
	before := n.maxPivots

	changed, grew := n.setEpsilon(0.4, cfg.MaxNodeSize)
	require.False(t, changed)
	require.False(t, grew)

	changed, grew = n.setEpsilon(0.9, cfg.MaxNodeSize)
	require.True(t, changed)
	require.GreaterOrEqual(t, n.maxPivots, before)
	require.True(t, grew)
}

func TestMaybeUpdateEpsilonNoopWhenNotDynamic(t *testing.T) {
	cfg := DefaultTestConfig()
	cfg.IsDynamic = false
	n := NewNode[int, int](1, 0, cfg.StartingEpsilon, cfg)

	changed, grew := n.maybeUpdateEpsilon(cfg, true)
	require.False(t, changed)
	require.False(t, grew)
}

func TestMaybeUpdateEpsilonTriggersAfterOpThreshold(t *testing.T) {
	cfg := DefaultTestConfig()
	cfg.IsDynamic = true
	cfg.OpsBeforeUpdate = 3
	cfg.TunableEpsilonLevel = 5
	n := NewNode[int, int](1, 0, 0.4, cfg)

	var changed bool
	for i := 0; i < 3; i++ {
		changed, _ = n.maybeUpdateEpsilon(cfg, false)
	}
	require.True(t, changed)
}

func TestMaybeUpdateEpsilonNoopBelowTunableLevel(t *testing.T) {
	cfg := DefaultTestConfig()
	cfg.IsDynamic = true
	cfg.OpsBeforeUpdate = 1
	cfg.TunableEpsilonLevel = 0
	n := NewNode[int, int](1, 5, cfg.StartingEpsilon, cfg)

	changed, grew := n.maybeUpdateEpsilon(cfg, true)
	require.False(t, changed)
	require.False(t, grew)
}
