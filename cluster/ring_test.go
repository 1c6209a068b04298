package cluster

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRing(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, ring *Ring){
		"single node owns everything":   testSingleNode,
		"remote joins wait for refresh": testStagedJoin,
		"leave hands back ownership":    testLeave,
	} {
		t.Run(scenario, func(t *testing.T) {
			ring := NewRing(RingConfig{PartitionCount: 71})
			require.NoError(t, ring.Join("node-a", "127.0.0.1:8400", true))
			fn(t, ring)
		})
	}
}

func triggers(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("trigger-%d", i))
	}
	return out
}

func testSingleNode(t *testing.T, ring *Ring) {
	for _, name := range triggers(50) {
		require.True(t, ring.Owns(name))
	}
	require.Len(t, ring.GetPartitions(), 71)
}

func testStagedJoin(t *testing.T, ring *Ring) {
	require.NoError(t, ring.Join("node-b", "127.0.0.1:8500", false))
	require.Len(t, ring.Nodes(), 1)
	require.Len(t, ring.GetPartitions(), 71)

	ring.RefreshCluster()
	require.Len(t, ring.Nodes(), 2)
	owned := len(ring.GetPartitions())
	require.Less(t, owned, 71)
	require.Greater(t, owned, 0)

	local := 0
	for _, name := range triggers(200) {
		if ring.Owns(name) {
			local++
		}
	}
	require.Greater(t, local, 0)
	require.Less(t, local, 200)
}

func testLeave(t *testing.T, ring *Ring) {
	require.NoError(t, ring.Join("node-b", "127.0.0.1:8500", false))
	ring.RefreshCluster()
	require.NoError(t, ring.Leave("node-b"))
	require.Len(t, ring.GetPartitions(), 71)
	require.NoError(t, ring.Leave("node-c"))
}
