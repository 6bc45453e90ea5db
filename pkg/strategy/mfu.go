package strategy

import (
	"sort"

	"github.com/cuemby/edgesim/pkg/simcontrol"
	"github.com/cuemby/edgesim/pkg/simmetrics"
	"github.com/cuemby/edgesim/pkg/simtypes"
	"github.com/cuemby/edgesim/pkg/simview"
)

// MFU reassigns VMs toward whichever non-resident service was missed
// most often, evicting whichever resident service ran least often.
// Admission is identical to HYBRID (spec.md §4.7); only replacement
// differs, and it ignores the deadline_metric pair HYBRID/SDF use.
type MFU struct {
	base
	metricState
	k int
}

func NewMFU(view simview.View, ctrl simcontrol.Controller, replacementInterval float64, debug bool, nReplacements int) *MFU {
	return &MFU{
		base:        newBase("MFU", view, ctrl, replacementInterval, debug),
		metricState: newMetricState(),
		k:           nReplacements,
	}
}

func (s *MFU) ProcessEvent(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64, status simtypes.EventStatus) error {
	s.maybeReplace(time, s.replace)
	return s.dispatchCommon(time, receiver, node, service, flowID, deadline, rttDelay, status, s.admitAtIntermediate)
}

// admitAtIntermediate records a missed request only when the service
// isn't resident at all; a resident admission failing to congestion
// only accrues cand_deadline_metric (service.py ~937-940).
func (s *MFU) admitAtIntermediate(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64) error {
	return s.admitWithMetrics(&s.metricState, time, receiver, node, service, flowID, deadline, rttDelay, identitySlack, true)
}

// replace implements spec.md §4.7: resident services scored by
// running_requests*service_time ascending (evictable first), candidate
// (non-resident) services scored by missed_requests*service_time
// descending (most-wanted first), walked in lockstep and bounded by k.
func (s *MFU) replace(time float64) {
	for node, cs := range s.view.ServiceNodes() {
		if cs.IsCloud {
			continue
		}

		var running []scoredService
		for svc, instances := range cs.ServiceInstances {
			if instances <= 0 {
				continue
			}
			running = append(running, scoredService{svc, float64(cs.RunningRequests[svc]) * s.serviceFor(svc).ServiceTime})
		}
		sort.Slice(running, func(i, j int) bool { return running[i].score < running[j].score })

		var candidates []scoredService
		for svc, count := range cs.MissedRequests {
			if cs.ServiceInstances[svc] > 0 || count <= 0 {
				continue
			}
			candidates = append(candidates, scoredService{svc, float64(count) * s.serviceFor(svc).ServiceTime})
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

		ri, ci, done := 0, 0, 0
		for done < s.k && ri < len(running) && ci < len(candidates) {
			r, c := running[ri], candidates[ci]
			if c.score <= r.score {
				break
			}
			if err := cs.ReassignVM(s.ctrl, r.service, c.service); err == nil {
				simmetrics.VMReassignmentsTotal.WithLabelValues(s.name).Inc()
				done++
			}
			ri++
			ci++
		}

		cs.ResetReplacementCounters()
	}
	s.reset()
}
