package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/edgesim/pkg/compute"
	"github.com/cuemby/edgesim/pkg/simcontrol"
	"github.com/cuemby/edgesim/pkg/simtypes"
	"github.com/cuemby/edgesim/pkg/simview"
)

// threeHopView builds the R(1) -> E(2) -> C(3) fixture common to the
// seed scenarios: receiver 1, edge 2, cloud 3, unit link delay on each
// hop, service 0 costing 1 time unit with a generous deadline unless a
// test overrides it.
func threeHopView(deadline float64) *simview.StaticView {
	services := []simtypes.Service{{ID: 0, ServiceTime: 1, Deadline: deadline}}
	return simview.NewStaticView().
		WithServices(services).
		WithContentSource(0, 3).
		WithPath(1, 2, []simtypes.NodeID{1, 2}, 1, 1).
		WithPath(2, 1, []simtypes.NodeID{2, 1}, 1, 1).
		WithPath(1, 3, []simtypes.NodeID{1, 2, 3}, 2, 1).
		WithPath(3, 1, []simtypes.NodeID{3, 2, 1}, 2, 1).
		WithPath(2, 3, []simtypes.NodeID{2, 3}, 1, 1).
		WithPath(3, 2, []simtypes.NodeID{3, 2}, 1, 1).
		WithTopology([]simtypes.NodeID{1}, map[simtypes.NodeID]int{1: 2, 2: 1, 3: 0}, 2)
}

// S1: single receiver, two hops, deadline met. Edge has a resident
// instance of service 0; the whole REQUEST/TASK_COMPLETE/RESPONSE chain
// is driven by hand since Recorder is a logging double, not a harness.
func TestLRU_S1_SingleHopDeadlineMet(t *testing.T) {
	view := threeHopView(10)
	edge := compute.New(2, false, 1, 1, 1)
	cloud := compute.New(3, true, 0, 0, 0)
	view.WithComputeSpot(2, edge, 0).WithComputeSpot(3, cloud, 0)

	ctrl := simcontrol.NewRecorder(view)
	s := NewLRU(view, ctrl, 100, false, 0)

	require.NoError(t, s.ProcessEvent(0, 1, 1, 0, "flow-1", 10, 0, simtypes.StatusRequest))
	// Forwarded REQUEST arrives at the edge at t=1, rtt_delay=2.
	require.NoError(t, s.ProcessEvent(1, 1, 2, 0, "flow-1", 10, 2, simtypes.StatusRequest))

	pending := edge.Scheduler.Pending()
	require.Len(t, pending, 0) // admitLocally already dispatched it onto the free core
	require.NoError(t, s.ProcessEvent(2, 1, 2, 0, "flow-1", 10, 2, simtypes.StatusTaskComplete))
	require.NoError(t, s.ProcessEvent(3, 1, 1, 0, "flow-1", 10, 2, simtypes.StatusResponse))

	assert.Equal(t, 0, ctrl.ActiveSessions())
	kinds := eventKinds(ctrl.Events())
	assert.Equal(t, []string{"SESSION_START", "EVENT", "EXECUTE", "EVENT", "EVENT", "SESSION_END"}, kinds)
}

func eventKinds(events []simcontrol.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

// S2: no resident instance at the edge forces a forward to the cloud.
func TestLRU_S2_NoInstancesForcesCloud(t *testing.T) {
	view := threeHopView(10)
	edge := compute.New(2, false, 1, 1, 1)
	edge.ServiceInstances = map[simtypes.ServiceID]int{} // nothing resident
	cloud := compute.New(3, true, 0, 0, 0)
	view.WithComputeSpot(2, edge, 0).WithComputeSpot(3, cloud, 0)

	ctrl := simcontrol.NewRecorder(view)
	s := NewLRU(view, ctrl, 100, false, 0) // p=0: no probabilistic install

	require.NoError(t, s.ProcessEvent(0, 1, 1, 0, "flow-1", 10, 0, simtypes.StatusRequest))
	require.NoError(t, s.ProcessEvent(1, 1, 2, 0, "flow-1", 10, 2, simtypes.StatusRequest))

	events := ctrl.Events()
	last := events[len(events)-1]
	assert.Equal(t, simtypes.StatusRequest, last.Status)
	assert.Equal(t, simtypes.NodeID(3), last.Node) // forwarded on to the cloud

	require.NoError(t, s.ProcessEvent(2, 1, 3, 0, "flow-1", 10, 4, simtypes.StatusRequest))
	require.NoError(t, s.ProcessEvent(3, 1, 3, 0, "flow-1", 10, 4, simtypes.StatusTaskComplete))
	require.NoError(t, s.ProcessEvent(4, 1, 2, 0, "flow-1", 10, 4, simtypes.StatusResponse))
	require.NoError(t, s.ProcessEvent(6, 1, 1, 0, "flow-1", 10, 4, simtypes.StatusResponse))

	assert.Equal(t, 0, ctrl.ActiveSessions())
}

func TestLRU_ForcedEvictionWhenSlackTooTight(t *testing.T) {
	view := threeHopView(1) // deadline so tight that forwarding upstream cannot meet it, forcing the install
	edge := compute.New(2, false, 1, 2, 2)
	edge.ServiceInstances = map[simtypes.ServiceID]int{1: 2}
	cloud := compute.New(3, true, 0, 0, 0)
	view.WithComputeSpot(2, edge, 0, 1).WithComputeSpot(3, cloud, 0, 1)

	ctrl := simcontrol.NewRecorder(view)
	ctrl.GetContent(2, 1) // seed recency order so PutContent has something to evict
	s := NewLRU(view, ctrl, 100, false, 0) // p=0, so only forced eviction can install

	require.NoError(t, s.ProcessEvent(1, 1, 2, 0, "flow-1", 1, 2, simtypes.StatusRequest))
	assert.Equal(t, 1, edge.ServiceInstances[0])
}

func TestMFU_vs_SDF_Divergence(t *testing.T) {
	servicesCatalog := []simtypes.Service{
		{ID: 0, ServiceTime: 1, Deadline: 100}, // A: many small requests
		{ID: 1, ServiceTime: 1, Deadline: 2},   // B: few tight-deadline requests
		{ID: 2, ServiceTime: 1, Deadline: 50},  // resident, evictable
	}

	newFixture := func() (*simview.StaticView, *compute.ComputeSpot) {
		view := simview.NewStaticView().WithServices(servicesCatalog)
		edge := compute.New(2, false, 1, 1, 3)
		edge.ServiceInstances = map[simtypes.ServiceID]int{2: 1}
		edge.RunningRequests[2] = 1
		edge.MissedRequests[0] = 100 // A missed a lot
		edge.MissedRequests[1] = 3   // B missed rarely, but just barely
		view.WithComputeSpot(2, edge, 0, 1, 2)
		return view, edge
	}

	t.Run("MFU prefers A, the higher raw miss volume", func(t *testing.T) {
		view, edge := newFixture()
		ctrl := simcontrol.NewRecorder(view)
		s := NewMFU(view, ctrl, 1, false, 1)
		s.replace(0)
		assert.Equal(t, 1, edge.ServiceInstances[0])
		assert.Equal(t, 0, edge.ServiceInstances[1])
	})

	t.Run("SDF prefers B, the tighter average deadline slack", func(t *testing.T) {
		view, edge := newFixture()
		ctrl := simcontrol.NewRecorder(view)
		s := NewSDF(view, ctrl, 1, false, 1)
		// B's recorded slack is far tighter per-request than A's.
		s.metricState.add(s.candDeadlineMetric, 2, 0, 90) // A: ~0.9 avg slack/deadline
		s.metricState.add(s.candDeadlineMetric, 2, 1, 0.3) // B: ~0.1 avg slack/deadline
		s.metricState.add(s.deadlineMetric, 2, 2, 40)
		edge.RunningRequests[2] = 1
		s.replace(0)
		assert.Equal(t, 1, edge.ServiceInstances[1])
		assert.Equal(t, 0, edge.ServiceInstances[0])
	})
}

// S5: a heavily-missed service with positive slack should steal a VM
// from a lightly-used resident service with more slack to spare.
func TestHybrid_S5_Reassignment(t *testing.T) {
	services := []simtypes.Service{
		{ID: 0, ServiceTime: 1, Deadline: 10}, // missed, wants in
		{ID: 1, ServiceTime: 1, Deadline: 10}, // resident, evictable
	}
	view := simview.NewStaticView().WithServices(services)
	edge := compute.New(2, false, 1, 1, 2)
	edge.ServiceInstances = map[simtypes.ServiceID]int{1: 1}
	edge.RunningRequests[1] = 1
	edge.MissedRequests[0] = 100
	view.WithComputeSpot(2, edge, 0, 1)

	ctrl := simcontrol.NewRecorder(view)
	s := NewHybrid(view, ctrl, 10, false) // replacementInterval=10 so util isn't capped to 1 for both
	s.add(s.deadlineMetric, 2, 1, 1)      // resident: slack=1, 1 request -> avg 1
	s.add(s.candDeadlineMetric, 2, 0, 5)  // missed: slack=5, 100 requests -> avg 0.05

	s.replace(0)

	assert.Equal(t, 1, edge.ServiceInstances[0])
	assert.Equal(t, 0, edge.ServiceInstances[1])
}

func TestRegistry_New(t *testing.T) {
	view := simview.NewStaticView()
	ctrl := simcontrol.NewRecorder(view)

	for _, name := range []string{"COORDINATED", "LRU", "HYBRID", "MFU", "SDF"} {
		strat, ok := New(name, view, ctrl, 10, false, 0.5, 1)
		require.True(t, ok, name)
		require.NotNil(t, strat, name)
	}

	_, ok := New("UNKNOWN", view, ctrl, 10, false, 0.5, 1)
	assert.False(t, ok)
}
