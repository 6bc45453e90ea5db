package strategy

import (
	"sort"

	"github.com/cuemby/edgesim/pkg/simcontrol"
	"github.com/cuemby/edgesim/pkg/simmetrics"
	"github.com/cuemby/edgesim/pkg/simtypes"
	"github.com/cuemby/edgesim/pkg/simview"
)

// SDF (strictest-deadline-first) reassigns VMs toward whichever
// non-resident service has the tightest average deadline slack among
// the requests it turned away, evicting whichever resident service has
// the most average slack to spare. Admission is identical to HYBRID
// except deadline slack is normalized by the service's own deadline
// (spec.md §4.8).
type SDF struct {
	base
	metricState
	k int
}

func NewSDF(view simview.View, ctrl simcontrol.Controller, replacementInterval float64, debug bool, nReplacements int) *SDF {
	return &SDF{
		base:        newBase("SDF", view, ctrl, replacementInterval, debug),
		metricState: newMetricState(),
		k:           nReplacements,
	}
}

func normalizedSlack(s, deadline float64) float64 {
	if deadline == 0 {
		return s
	}
	return s / deadline
}

func (s *SDF) ProcessEvent(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64, status simtypes.EventStatus) error {
	s.maybeReplace(time, s.replace)
	return s.dispatchCommon(time, receiver, node, service, flowID, deadline, rttDelay, status, s.admitAtIntermediate)
}

// admitAtIntermediate records a missed request only when the service
// isn't resident at all; a resident admission failing to congestion
// only accrues cand_deadline_metric (service.py ~1152-1155, the same
// rule MFU follows).
func (s *SDF) admitAtIntermediate(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64) error {
	return s.admitWithMetrics(&s.metricState, time, receiver, node, service, flowID, deadline, rttDelay, normalizedSlack, true)
}

// sdfRatio divides a metric by a request count, falling back to 1.0 for
// a zero count — StrictestDeadlineFirst.replace_services' own fallback
// (service.py ~1004-1013 for running_requests, ~1019-1025 for
// missed_requests), distinct from HYBRID's +Inf sentinel in safeDiv.
func sdfRatio(numerator float64, count int) float64 {
	if count == 0 {
		return 1.0
	}
	return numerator / float64(count)
}

// replace implements spec.md §4.8: resident services scored by
// deadlineMetric[s]/runningRequests[s] descending (larger average
// residual slack = more evictable), candidates scored by
// candDeadlineMetric[s]/missedRequests[s] ascending (smaller = most
// deadline-critical), walked in lockstep and bounded by k.
func (s *SDF) replace(time float64) {
	for node, cs := range s.view.ServiceNodes() {
		if cs.IsCloud {
			continue
		}

		var running []scoredService
		for svc, instances := range cs.ServiceInstances {
			if instances <= 0 {
				continue
			}
			running = append(running, scoredService{svc, sdfRatio(s.deadlineMetric[node][svc], cs.RunningRequests[svc])})
		}
		sort.Slice(running, func(i, j int) bool { return running[i].score > running[j].score })

		var candidates []scoredService
		for svc, count := range cs.MissedRequests {
			if cs.ServiceInstances[svc] > 0 || count <= 0 {
				continue
			}
			candidates = append(candidates, scoredService{svc, sdfRatio(s.candDeadlineMetric[node][svc], count)})
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })

		ri, ci, done := 0, 0, 0
		for done < s.k && ri < len(running) && ci < len(candidates) {
			r, c := running[ri], candidates[ci]
			if r.score <= c.score {
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
