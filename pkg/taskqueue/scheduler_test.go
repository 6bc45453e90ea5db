package taskqueue

import (
	"testing"

	"github.com/cuemby/edgesim/pkg/simtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func svc(id int, serviceTime float64) simtypes.Service {
	return simtypes.Service{ID: simtypes.ServiceID(id), ServiceTime: serviceTime, Deadline: 10}
}

// S1: single admitted task on a free core meets its deadline and is
// dispatched on Schedule.
func TestAdmitTask_SingleTaskMeetsDeadline(t *testing.T) {
	s := NewTaskScheduler(1)
	ok, reason, task := s.AdmitTask(svc(0, 1), 1.0, "flow-1", 10, 1, 0, 0, 1.0)
	require.True(t, ok)
	assert.Equal(t, simtypes.ReasonSuccess, reason)
	assert.Equal(t, 2.0, task.CompletionTime)

	dispatched := s.Schedule(1.0)
	require.NotNil(t, dispatched)
	assert.Equal(t, simtypes.FlowID("flow-1"), dispatched.FlowID)
	assert.Equal(t, 2.0, dispatched.CompletionTime)
	assert.Equal(t, 0, dispatched.CoreID)
}

// S3: on a 1-core, 1-VM spot with service_time=5 and deadline=6, a
// second back-to-back admission must be rejected CONGESTION and the
// first task's completion time must be unchanged.
func TestAdmitTask_CongestionRollback(t *testing.T) {
	s := NewTaskScheduler(1)
	ok, reason, first := s.AdmitTask(svc(0, 5), 0, "flow-1", 6, 1, 0, 0, 0)
	require.True(t, ok)
	assert.Equal(t, simtypes.ReasonSuccess, reason)
	assert.Equal(t, 5.0, first.CompletionTime)

	ok, reason, second := s.AdmitTask(svc(0, 5), 0, "flow-2", 6, 1, 0, 0, 0)
	assert.False(t, ok)
	assert.Equal(t, simtypes.ReasonCongestion, reason)
	assert.Nil(t, second)

	// First task's projected completion must be untouched by the
	// rejected admission.
	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, 5.0, pending[0].CompletionTime)
}

func TestAdmitTask_DeadlineMissed(t *testing.T) {
	s := NewTaskScheduler(1)
	ok, reason, task := s.AdmitTask(svc(0, 5), 0, "flow-1", 3, 1, 0, 0, 0)
	assert.False(t, ok)
	assert.Equal(t, simtypes.ReasonDeadlineMissed, reason)
	assert.Nil(t, task)
	assert.Empty(t, s.Pending())
}

func TestSchedule_NoEligibleTaskAccruesIdle(t *testing.T) {
	s := NewTaskScheduler(1)
	dispatched := s.Schedule(5.0)
	assert.Nil(t, dispatched)
	assert.Equal(t, 5.0, s.IdleTime())
}

func TestPending_StaysSortedByArrivalTime(t *testing.T) {
	s := NewTaskScheduler(4)
	_, _, t1 := s.AdmitTask(svc(0, 1), 5, "a", 100, 1, 0, 0, 0)
	_, _, t2 := s.AdmitTask(svc(0, 1), 1, "b", 100, 1, 0, 0, 0)
	_, _, t3 := s.AdmitTask(svc(0, 1), 3, "c", 100, 1, 0, 0, 0)
	require.NotNil(t, t1)
	require.NotNil(t, t2)
	require.NotNil(t, t3)

	pending := s.Pending()
	require.Len(t, pending, 3)
	for i := 1; i < len(pending); i++ {
		assert.LessOrEqual(t, pending[i-1].ArrivalTime, pending[i].ArrivalTime)
	}
}

func TestComputeCompletionTimes_ProbeAndRetract(t *testing.T) {
	s := NewTaskScheduler(1)
	_, _, running := s.AdmitTask(svc(0, 5), 0, "running", 6, 1, 0, 0, 0)
	require.NotNil(t, running)

	probe := &Task{
		ArrivalTime:       0,
		ServiceTime:       5,
		FlowID:            "probe",
		Expiry:            6,
		EffectiveDeadline: 6,
	}
	s.InsertCandidate(probe)
	s.ComputeCompletionTimes(0)

	// probe lands behind the running task and misses its own deadline
	assert.Greater(t, probe.CompletionTime, probe.EffectiveDeadline)

	removed := s.RemoveTask("probe")
	assert.True(t, removed)
	assert.Len(t, s.Pending(), 1)
}
