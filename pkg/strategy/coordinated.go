package strategy

import (
	"math"
	"sort"

	"github.com/cuemby/edgesim/pkg/compute"
	"github.com/cuemby/edgesim/pkg/simcontrol"
	"github.com/cuemby/edgesim/pkg/simcore"
	"github.com/cuemby/edgesim/pkg/simmetrics"
	"github.com/cuemby/edgesim/pkg/simtypes"
	"github.com/cuemby/edgesim/pkg/simview"
	"github.com/cuemby/edgesim/pkg/taskqueue"
)

// Coordinated picks, for every request, the single topmost (closest to
// the content origin) compute spot on the path to the receiver that
// can provably meet the deadline, probed ahead of time against the
// spot's own projected queue. It never forwards a REQUEST hop by hop
// the way LRU/HYBRID/MFU/SDF do — placement is decided once, at
// session start — so beyond the session's initial REQUEST its
// ProcessEvent only sees TASK_COMPLETE and RESPONSE events that it
// scheduled itself, both of which reuse the common event topology.
type Coordinated struct {
	base

	// serviceNodeUtil[receiver][node][service] accumulates service_time
	// for every admitted request from receiver whose path passes through
	// node, driving the next replacement pass's placement scores.
	serviceNodeUtil map[simtypes.NodeID]map[simtypes.NodeID]map[simtypes.ServiceID]float64
}

func NewCoordinated(view simview.View, ctrl simcontrol.Controller, replacementInterval float64, debug bool) *Coordinated {
	return &Coordinated{
		base:            newBase("COORDINATED", view, ctrl, replacementInterval, debug),
		serviceNodeUtil: make(map[simtypes.NodeID]map[simtypes.NodeID]map[simtypes.ServiceID]float64),
	}
}

func (s *Coordinated) ProcessEvent(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64, status simtypes.EventStatus) error {
	s.maybeReplace(time, s.replace)

	switch status {
	case simtypes.StatusRequest:
		return s.placeRequest(time, receiver, service, flowID, deadline, rttDelay)
	case simtypes.StatusTaskComplete:
		return s.handleTaskComplete(time, receiver, node, service, flowID, deadline, rttDelay)
	case simtypes.StatusResponse:
		return s.handleResponse(time, receiver, node, service, flowID, deadline, rttDelay)
	default:
		return simcore.NewInvariantViolation("unknown_event_status", "status=%d", status)
	}
}

func (s *Coordinated) addUtil(receiver, node simtypes.NodeID, service simtypes.ServiceID, value float64) {
	perNode, ok := s.serviceNodeUtil[receiver]
	if !ok {
		perNode = make(map[simtypes.NodeID]map[simtypes.ServiceID]float64)
		s.serviceNodeUtil[receiver] = perNode
	}
	perService, ok := perNode[node]
	if !ok {
		perService = make(map[simtypes.ServiceID]float64)
		perNode[node] = perService
	}
	perService[service] += value
}

// placeRequest starts the session, accrues path utilisation, and
// attempts a single feasibility-probed placement; failing that, it
// falls back directly to the cloud.
func (s *Coordinated) placeRequest(time float64, receiver simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64) error {
	svc := s.serviceFor(service)
	origin := s.view.ContentSource(service)

	s.ctrl.StartSession(time, receiver, service, flowID, deadline)
	simmetrics.SessionsActive.Inc()

	path := s.view.ShortestPath(receiver, origin)
	for _, n := range path {
		if s.view.HasComputationalSpot(n) {
			s.addUtil(receiver, n, service, svc.ServiceTime)
		}
	}

	if node, task, ok := s.findTopmostFeasibleNode(path, receiver, svc, time, deadline, rttDelay, flowID); ok {
		s.scheduleAndNotify(node, task.ArrivalTime, s.view.CompSpot(node))
		return nil
	}

	completion := time + rttDelay + svc.ServiceTime
	s.ctrl.ExecuteService(flowID, service, origin, time, true)
	s.ctrl.AddEvent(completion, receiver, receiver, service, flowID, deadline, rttDelay, simtypes.StatusResponse)
	return nil
}

// findTopmostFeasibleNode walks path from the origin end toward the
// receiver (skipping the receiver itself and any cloud spot, which has
// no real queue to probe) and returns the first compute spot that can
// provisionally host the task without pushing itself or anything
// already queued past its deadline.
func (s *Coordinated) findTopmostFeasibleNode(path []simtypes.NodeID, receiver simtypes.NodeID, svc simtypes.Service, time, deadline, rttDelay float64, flowID simtypes.FlowID) (simtypes.NodeID, *taskqueue.Task, bool) {
	for i := len(path) - 1; i >= 1; i-- {
		candidate := path[i]
		cs := s.view.CompSpot(candidate)
		if cs == nil || cs.IsCloud || !cs.HasService(svc.ID) {
			continue
		}

		pathDelay := s.view.PathDelay(candidate, receiver)
		task := &taskqueue.Task{
			CreationTime:      time,
			Expiry:            deadline,
			RTTDelay:          rttDelay,
			Node:              candidate,
			ServiceID:         svc.ID,
			ServiceTime:       svc.ServiceTime,
			FlowID:            flowID,
			Receiver:          receiver,
			ArrivalTime:       time + s.view.PathDelay(receiver, candidate),
			CoreID:            taskqueue.NoCore,
			EffectiveDeadline: deadline - pathDelay,
		}

		cs.Scheduler.InsertCandidate(task)
		cs.Scheduler.ComputeCompletionTimes(task.ArrivalTime)

		if task.CompletionTime <= task.EffectiveDeadline && allPendingFeasible(cs) {
			return candidate, task, true
		}
		cs.Scheduler.RemoveTask(flowID)
	}
	return 0, nil, false
}

func allPendingFeasible(cs *compute.ComputeSpot) bool {
	for _, t := range cs.Scheduler.Pending() {
		if t.CompletionTime > t.EffectiveDeadline {
			return false
		}
	}
	return true
}

// replace implements spec.md §4.4: process compute spots in ascending
// topology depth (root first), score resident-eligible services by
// accumulated path utilisation from every receiver whose deadline the
// node can still meet, allocate VMs greedily by score/replacement_interval
// with a second top-up pass for remainder capacity, then zero the
// consumed utilisation along each contributing receiver's path up
// through this node so deeper nodes don't double-count it.
func (s *Coordinated) replace(time float64) {
	type depthNode struct {
		node simtypes.NodeID
		cs   *compute.ComputeSpot
	}
	var nodes []depthNode
	for node, cs := range s.view.ServiceNodes() {
		if cs.IsCloud {
			continue
		}
		nodes = append(nodes, depthNode{node, cs})
	}
	topology := s.view.Topology()
	sort.Slice(nodes, func(i, j int) bool { return topology.Depth(nodes[i].node) < topology.Depth(nodes[j].node) })

	receivers := topology.Receivers()
	services := s.view.Services()

	for _, dn := range nodes {
		node, cs := dn.node, dn.cs

		var candidates []scoredService
		contributors := make(map[simtypes.ServiceID][]simtypes.NodeID)
		for _, svc := range services {
			var score float64
			var contributing []simtypes.NodeID
			for _, recv := range receivers {
				u := s.serviceNodeUtil[recv][node][svc.ID]
				if u <= 0 {
					continue
				}
				if 2*s.view.PathDelay(recv, node)+svc.ServiceTime >= svc.Deadline {
					continue
				}
				score += u
				contributing = append(contributing, recv)
			}
			if score > 0 {
				candidates = append(candidates, scoredService{svc.ID, score})
				contributors[svc.ID] = contributing
			}
		}
		if len(candidates) == 0 {
			// No traffic observed for this node this interval: leave its
			// current placement untouched (invariant 4).
			continue
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

		newInstances := make(map[simtypes.ServiceID]int)
		remaining := cs.NumVMs
		for _, c := range candidates {
			if remaining <= 0 {
				break
			}
			n := int(math.Round(c.score / s.replacementInterval))
			if n > remaining {
				n = remaining
			}
			if n <= 0 {
				continue
			}
			newInstances[c.service] += n
			remaining -= n
		}
		for remaining > 0 {
			progress := false
			for _, c := range candidates {
				if remaining <= 0 {
					break
				}
				if newInstances[c.service] > 0 {
					newInstances[c.service]++
					remaining--
					progress = true
				} else {
					add := int(math.Ceil(c.score / s.replacementInterval))
					if add > remaining {
						add = remaining
					}
					newInstances[c.service] += add
					remaining -= add
					progress = true
				}
			}
			if !progress {
				break
			}
		}

		// Only zero the utilisation of candidates actually granted a VM
		// this pass (service.py:180-189 gates pass 1 on
		// remaining_vms>0 and num_vms>0, and :203-215 gates the pass-2
		// top-up on num_vms>0): a candidate that scored above zero but
		// never got reached before remaining_vms ran out keeps its
		// accumulated utilisation into the next interval.
		for _, c := range candidates {
			if newInstances[c.service] <= 0 {
				continue
			}
			for _, recv := range contributors[c.service] {
				for _, n := range s.view.ShortestPath(recv, node) {
					if perNode, ok := s.serviceNodeUtil[recv]; ok {
						delete(perNode[n], c.service)
					}
				}
			}
		}

		s.commitPlacement(cs, node, newInstances)
	}
}

// commitPlacement diffs cs's current service_instances against
// newInstances, flattens both sides into per-VM-unit lists, and pairs
// them by index (spec.md §9's documented resolution of the
// servicesToAdd/serviceToReplace pairing ambiguity): evicted unit i
// trades places with added unit i. Only paired units are applied: when
// the spot enters the pass holding fewer instances than NumVMs, the
// added units beyond the number of evicted units are not applied.
func (s *Coordinated) commitPlacement(cs *compute.ComputeSpot, node simtypes.NodeID, newInstances map[simtypes.ServiceID]int) {
	var evictedUnits, addedUnits []simtypes.ServiceID
	for svc, oldCount := range cs.ServiceInstances {
		if newCount := newInstances[svc]; newCount < oldCount {
			for i := 0; i < oldCount-newCount; i++ {
				evictedUnits = append(evictedUnits, svc)
			}
		}
	}
	for svc, newCount := range newInstances {
		if oldCount := cs.ServiceInstances[svc]; newCount > oldCount {
			for i := 0; i < newCount-oldCount; i++ {
				addedUnits = append(addedUnits, svc)
			}
		}
	}

	report := make(map[simtypes.ServiceID][]simtypes.ServiceID)
	for i := range evictedUnits {
		from, to := evictedUnits[i], addedUnits[i]
		if err := cs.ReassignVM(s.ctrl, from, to); err == nil {
			simmetrics.VMReassignmentsTotal.WithLabelValues(s.name).Inc()
			report[from] = append(report[from], to)
		}
	}
	for from, to := range report {
		s.ctrl.ReassignVM(node, from, to)
	}
}
