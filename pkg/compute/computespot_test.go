package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/edgesim/pkg/simtypes"
)

type fakeRecorder struct {
	calls []string
}

func (f *fakeRecorder) RecordVMReassignment(node simtypes.NodeID, from, to simtypes.ServiceID) {
	f.calls = append(f.calls, "reassign")
}

func TestNew_DistributesVMsRoundRobin(t *testing.T) {
	cs := New(1, false, 2, 5, 2)
	// 5 VMs over 2 services, round-robin by index mod 2: 0,1,0,1,0
	assert.Equal(t, 3, cs.ServiceInstances[0])
	assert.Equal(t, 2, cs.ServiceInstances[1])
	assert.Equal(t, 5, cs.TotalInstances())
}

func TestAdmitTask_NoInstances(t *testing.T) {
	cs := New(1, false, 1, 1, 2)
	// Service 1 has no instances (all went to service 0 with numVMs=1).
	ok, reason, task := cs.AdmitTask(simtypes.Service{ID: 1, ServiceTime: 1, Deadline: 10}, 0, "f", 10, 9, 0, 0)
	assert.False(t, ok)
	assert.Equal(t, simtypes.ReasonNoInstances, reason)
	assert.Nil(t, task)
}

func TestAdmitTask_ResidentServiceForwardsToScheduler(t *testing.T) {
	cs := New(1, false, 1, 1, 1)
	ok, reason, task := cs.AdmitTask(simtypes.Service{ID: 0, ServiceTime: 1, Deadline: 10}, 0, "f", 10, 9, 0, 1.0)
	require.True(t, ok)
	assert.Equal(t, simtypes.ReasonSuccess, reason)
	assert.Equal(t, 1.0, task.CompletionTime)
}

func TestAdmitTask_CloudAlwaysSucceedsWithoutQueueing(t *testing.T) {
	cloud := New(99, true, 0, 0, 0)
	ok, reason, task := cloud.AdmitTask(simtypes.Service{ID: 7, ServiceTime: 3, Deadline: 10}, 5, "f", 20, 1, 0, 0)
	require.True(t, ok)
	assert.Equal(t, simtypes.ReasonCloud, reason)
	assert.Equal(t, 8.0, task.CompletionTime)
	assert.Empty(t, cloud.Scheduler.Pending())
}

func TestReassignVM_PreservesTotal(t *testing.T) {
	cs := New(1, false, 2, 4, 2)
	rec := &fakeRecorder{}
	before := cs.TotalInstances()

	err := cs.ReassignVM(rec, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, before, cs.TotalInstances())
	assert.Len(t, rec.calls, 1)
}

func TestReassignVM_EmptySourceIsInvariantViolation(t *testing.T) {
	cs := New(1, false, 1, 1, 2)
	err := cs.ReassignVM(nil, 1, 0) // service 1 has zero instances
	assert.Error(t, err)
}

func TestReassignVM_OnCloudIsInvariantViolation(t *testing.T) {
	cloud := New(1, true, 0, 0, 0)
	err := cloud.ReassignVM(nil, 0, 1)
	assert.Error(t, err)
}
