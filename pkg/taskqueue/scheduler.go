package taskqueue

import (
	"sort"

	"github.com/cuemby/edgesim/pkg/simtypes"
)

// core is one of a ComputeSpot's fixed compute cores.
type core struct {
	busyUntil float64
	current   *Task
}

// TaskScheduler sequences Tasks across a fixed number of cores for a
// single ComputeSpot and reports projected and actual completion times.
//
// The distilled spec names two admitted-but-not-dispatched lists,
// task_queue (arrived, waiting on a core) and upcoming_task_queue
// (scheduled future arrivals). Both are views over the same set of
// admitted, not-yet-running tasks, so TaskScheduler keeps a single
// slice, pending, sorted ascending by ArrivalTime; TaskQueue and
// UpcomingTaskQueue below project it into the spec's two views.
type TaskScheduler struct {
	cores   []core
	pending []*Task
	idle    float64
}

// NewTaskScheduler allocates a scheduler over a fixed number of cores.
func NewTaskScheduler(numCores int) *TaskScheduler {
	return &TaskScheduler{cores: make([]core, numCores)}
}

// NumCores returns the number of compute cores this scheduler sequences.
func (s *TaskScheduler) NumCores() int { return len(s.cores) }

// IdleTime returns the accumulated idle time across all cores.
func (s *TaskScheduler) IdleTime() float64 { return s.idle }

// Pending returns a defensive copy of every admitted, not-yet-dispatched
// task, sorted ascending by ArrivalTime (invariant 3 of spec.md §8).
func (s *TaskScheduler) Pending() []*Task {
	out := make([]*Task, len(s.pending))
	copy(out, s.pending)
	return out
}

// TaskQueue returns the subset of Pending whose ArrivalTime has already
// passed, i.e. tasks that are waiting only on a free core.
func (s *TaskScheduler) TaskQueue(now float64) []*Task {
	var out []*Task
	for _, t := range s.pending {
		if t.ArrivalTime <= now {
			out = append(out, t)
		}
	}
	return out
}

// UpcomingTaskQueue returns the subset of Pending scheduled to arrive in
// the future relative to now.
func (s *TaskScheduler) UpcomingTaskQueue(now float64) []*Task {
	var out []*Task
	for _, t := range s.pending {
		if t.ArrivalTime > now {
			out = append(out, t)
		}
	}
	return out
}

// AdmitTask attempts to admit a new task. node is this scheduler's own
// ComputeSpot node id (needed only to stamp the Task); pathDelay is the
// delay from node to receiver, used to derive the task's effective
// deadline. On success the task is inserted into the pending queue; on
// failure nothing is mutated.
func (s *TaskScheduler) AdmitTask(svc simtypes.Service, time float64, flowID simtypes.FlowID, expiry float64, node, receiver simtypes.NodeID, rttDelay, pathDelay float64) (bool, simtypes.AdmissionReason, *Task) {
	task := &Task{
		CreationTime:      time,
		Expiry:            expiry,
		RTTDelay:          rttDelay,
		Node:              node,
		ServiceID:         svc.ID,
		ServiceTime:       svc.ServiceTime,
		FlowID:            flowID,
		Receiver:          receiver,
		ArrivalTime:       time,
		CoreID:            NoCore,
		EffectiveDeadline: expiry - pathDelay,
	}

	// Quick check: would the best real (currently idle/soonest-free) core
	// make this deadline in isolation, ignoring whatever else is still
	// queued ahead of it? If not, no amount of requeuing saves it.
	bestAvail := s.cores[0].busyUntil
	for i := 1; i < len(s.cores); i++ {
		if s.cores[i].busyUntil < bestAvail {
			bestAvail = s.cores[i].busyUntil
		}
	}
	if max(bestAvail, task.ArrivalTime)+task.ServiceTime > task.EffectiveDeadline {
		return false, simtypes.ReasonDeadlineMissed, nil
	}

	// Full check: replay every pending task plus this candidate together.
	// Isolation looked fine above, but queueing behind everything else
	// already admitted may still blow a deadline — the candidate's own,
	// or one it bumps out of position.
	candidate := make([]*Task, 0, len(s.pending)+1)
	candidate = append(candidate, s.pending...)
	candidate = append(candidate, task)
	completions := s.replay(candidate)

	if completions[task] > task.EffectiveDeadline {
		return false, simtypes.ReasonCongestion, nil
	}
	for _, t := range s.pending {
		if completions[t] > t.EffectiveDeadline {
			return false, simtypes.ReasonCongestion, nil
		}
	}

	for t, c := range completions {
		t.CompletionTime = c
	}
	s.insertSorted(task)
	return true, simtypes.ReasonSuccess, task
}

// ComputeCompletionTimes replays the FIFO assignment of every pending
// task over the cores and refreshes each task's projected
// CompletionTime. Used by COORDINATED's feasibility probe after it has
// provisionally inserted a candidate task with InsertCandidate.
func (s *TaskScheduler) ComputeCompletionTimes(time float64) {
	completions := s.replay(s.pending)
	for t, c := range completions {
		t.CompletionTime = c
	}
}

// InsertCandidate inserts a provisional task (built by the caller, with
// EffectiveDeadline already set) into the pending queue without running
// admission checks. Used by COORDINATED to probe feasibility.
func (s *TaskScheduler) InsertCandidate(task *Task) {
	s.insertSorted(task)
}

// RemoveTask retracts a pending task by flow id, used to undo a failed
// COORDINATED feasibility probe. Reports whether a task was removed.
func (s *TaskScheduler) RemoveTask(flowID simtypes.FlowID) bool {
	for i, t := range s.pending {
		if t.FlowID == flowID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Schedule dispatches the earliest-arrival pending task whose
// ArrivalTime is <= time onto the next-available core, sets its
// CompletionTime and CoreID, and returns it. Returns nil if no task is
// eligible. Idle intervals on free cores are accumulated into IdleTime.
func (s *TaskScheduler) Schedule(time float64) *Task {
	for i := range s.cores {
		c := &s.cores[i]
		if c.current != nil && c.current.CompletionTime <= time {
			c.current = nil
		}
	}

	idx := -1
	for i, t := range s.pending {
		if t.ArrivalTime <= time {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.accrueIdle(time)
		return nil
	}

	freeIdx := -1
	for i := range s.cores {
		if s.cores[i].current == nil {
			if freeIdx == -1 || s.cores[i].busyUntil < s.cores[freeIdx].busyUntil {
				freeIdx = i
			}
		}
	}
	if freeIdx == -1 {
		return nil
	}

	task := s.pending[idx]
	s.pending = append(s.pending[:idx], s.pending[idx+1:]...)

	c := &s.cores[freeIdx]
	avail := c.busyUntil
	if avail < task.ArrivalTime {
		s.idle += task.ArrivalTime - avail
	}
	task.CompletionTime = max(avail, task.ArrivalTime) + task.ServiceTime
	task.CoreID = freeIdx
	c.busyUntil = task.CompletionTime
	c.current = task
	return task
}

// accrueIdle accounts idle time on free cores when Schedule finds
// nothing eligible to dispatch, checkpointing busyUntil to time so the
// same interval is never counted twice.
func (s *TaskScheduler) accrueIdle(time float64) {
	for i := range s.cores {
		c := &s.cores[i]
		if c.current == nil && c.busyUntil < time {
			s.idle += time - c.busyUntil
			c.busyUntil = time
		}
	}
}

// replay simulates FIFO-per-core assignment of tasks (in ascending
// ArrivalTime order, ties broken by input order) starting from the
// scheduler's real core availability, without mutating any state. It
// returns each task's projected completion time under that assignment.
func (s *TaskScheduler) replay(tasks []*Task) map[*Task]float64 {
	ordered := make([]*Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ArrivalTime < ordered[j].ArrivalTime
	})

	avail := make([]float64, len(s.cores))
	for i := range s.cores {
		avail[i] = s.cores[i].busyUntil
	}

	completions := make(map[*Task]float64, len(ordered))
	for _, t := range ordered {
		best := 0
		for i := 1; i < len(avail); i++ {
			if avail[i] < avail[best] {
				best = i
			}
		}
		completion := max(avail[best], t.ArrivalTime) + t.ServiceTime
		avail[best] = completion
		completions[t] = completion
	}
	return completions
}

func (s *TaskScheduler) insertSorted(task *Task) {
	i := sort.Search(len(s.pending), func(i int) bool {
		return s.pending[i].ArrivalTime > task.ArrivalTime
	})
	s.pending = append(s.pending, nil)
	copy(s.pending[i+1:], s.pending[i:])
	s.pending[i] = task
}
