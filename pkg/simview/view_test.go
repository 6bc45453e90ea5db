package simview

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/edgesim/pkg/compute"
	"github.com/cuemby/edgesim/pkg/simtypes"
)

func TestStaticView_Fixture(t *testing.T) {
	edge := compute.New(1, false, 1, 1, 1)
	cloud := compute.New(2, true, 0, 0, 0)

	v := NewStaticView().
		WithServices([]simtypes.Service{{ID: 0, ServiceTime: 1, Deadline: 10}}).
		WithContentSource(0, 2).
		WithPath(0, 2, []simtypes.NodeID{0, 1, 2}, 2.0, 1.0).
		WithComputeSpot(1, edge, 0).
		WithComputeSpot(2, cloud).
		WithTopology([]simtypes.NodeID{0}, map[simtypes.NodeID]int{0: 0, 1: 1, 2: 2}, 2)

	assert.Equal(t, simtypes.NodeID(2), v.ContentSource(0))
	assert.Equal(t, []simtypes.NodeID{0, 1, 2}, v.ShortestPath(0, 2))
	assert.Equal(t, 2.0, v.PathDelay(0, 2))
	assert.Equal(t, 1.0, v.LinkDelay(0, 2))
	assert.Equal(t, 1, v.NumServices())
	assert.True(t, v.HasComputationalSpot(1))
	assert.False(t, v.HasComputationalSpot(99))
	assert.True(t, v.HasService(1, 0))
	assert.False(t, v.HasService(1, 1))
	assert.Same(t, edge, v.CompSpot(1))
	assert.Len(t, v.ServiceNodes(), 2)

	topo := v.Topology()
	assert.Equal(t, []simtypes.NodeID{0}, topo.Receivers())
	assert.Equal(t, 1, topo.Depth(1))
	assert.Equal(t, 2, topo.Height())
}
