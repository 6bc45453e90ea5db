package simcontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/edgesim/pkg/compute"
	"github.com/cuemby/edgesim/pkg/simtypes"
	"github.com/cuemby/edgesim/pkg/simview"
)

func TestStartEndSession(t *testing.T) {
	r := NewRecorder(simview.NewStaticView())
	r.StartSession(0, 1, 0, "f1", 10)
	assert.Equal(t, 1, r.ActiveSessions())

	r.EndSession(true, 5, "f1")
	assert.Equal(t, 0, r.ActiveSessions())

	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "SESSION_START", events[0].Kind)
	assert.Equal(t, "SESSION_END", events[1].Kind)
}

func TestPutContent_EvictsLeastRecentlyUsed(t *testing.T) {
	cs := compute.New(1, false, 1, 2, 2) // service 0 and 1, one VM each
	view := simview.NewStaticView().WithComputeSpot(1, cs, 0, 1, 2)
	r := NewRecorder(view)

	// Establish recency: 0 used, then 1 used. 0 is now LRU.
	r.GetContent(1, 0)
	r.GetContent(1, 1)

	evicted, ok := r.PutContent(1, 2)
	require.True(t, ok)
	assert.Equal(t, simtypes.ServiceID(0), evicted)
	assert.Equal(t, 0, cs.ServiceInstances[0])
	assert.Equal(t, 1, cs.ServiceInstances[2])
	assert.Equal(t, 2, cs.TotalInstances())
}

func TestPutContent_NoComputeSpotFails(t *testing.T) {
	r := NewRecorder(simview.NewStaticView())
	_, ok := r.PutContent(99, 0)
	assert.False(t, ok)
}

func TestGetContent_TracksRecency(t *testing.T) {
	r := NewRecorder(simview.NewStaticView())
	r.GetContent(1, 0)
	r.GetContent(1, 1)
	r.GetContent(1, 0) // touch 0 again, it's now most-recently-used

	assert.Equal(t, []simtypes.ServiceID{1, 0}, r.lru[1])
}

func TestReassignVM_BatchRecordsEvents(t *testing.T) {
	r := NewRecorder(simview.NewStaticView())
	r.ReassignVM(1, 0, []simtypes.ServiceID{2, 3})

	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "VM_REASSIGN_BATCH", events[0].Kind)
}

func TestRecordVMReassignment_TouchesRecency(t *testing.T) {
	r := NewRecorder(simview.NewStaticView())
	r.RecordVMReassignment(1, 0, 2)

	assert.Equal(t, []simtypes.ServiceID{2}, r.lru[1])
	events := r.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "VM_REASSIGN", events[0].Kind)
}
