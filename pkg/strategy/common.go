package strategy

import (
	"math"

	"github.com/cuemby/edgesim/pkg/compute"
	"github.com/cuemby/edgesim/pkg/log"
	"github.com/cuemby/edgesim/pkg/simcontrol"
	"github.com/cuemby/edgesim/pkg/simcore"
	"github.com/cuemby/edgesim/pkg/simmetrics"
	"github.com/cuemby/edgesim/pkg/simtypes"
	"github.com/cuemby/edgesim/pkg/simview"
	"github.com/cuemby/edgesim/pkg/taskqueue"
)

// base holds the state and collaborators every Strategy needs:
// replacement cadence bookkeeping, the shared View/Controller, and the
// service catalog indexed for O(1) lookup (View only exposes a slice).
type base struct {
	name string

	view simview.View
	ctrl simcontrol.Controller

	replacementInterval float64
	debug               bool
	lastReplacement     float64

	// trackResponseMiss gates handleResponse's intermediate-hop
	// missed_requests increment (service.py:658-659), which only
	// HYBRID's RESPONSE handler performs in the original.
	trackResponseMiss bool

	services map[simtypes.ServiceID]simtypes.Service
}

func newBase(name string, view simview.View, ctrl simcontrol.Controller, replacementInterval float64, debug bool) base {
	index := make(map[simtypes.ServiceID]simtypes.Service)
	for _, s := range view.Services() {
		index[s.ID] = s
	}
	return base{
		name:                name,
		view:                view,
		ctrl:                ctrl,
		replacementInterval: replacementInterval,
		debug:               debug,
		services:            index,
	}
}

func (b *base) serviceFor(id simtypes.ServiceID) simtypes.Service {
	return b.services[id]
}

// maybeReplace invokes replace if a full replacement_interval has
// elapsed since the last pass, timing it into simmetrics.
func (b *base) maybeReplace(time float64, replace func(time float64)) {
	if time-b.lastReplacement <= b.replacementInterval {
		return
	}
	timer := simmetrics.NewTimer()
	replace(time)
	timer.ObserveDurationVec(simmetrics.ReplacementPassDuration, b.name)
	b.lastReplacement = time
	if b.debug {
		log.Debug("replacement pass completed")
	}
}

func (b *base) recordAdmission(reason simtypes.AdmissionReason) {
	simmetrics.AdmissionsTotal.WithLabelValues(b.name, reason.String()).Inc()
}

// nextHopToward returns the node adjacent to from on the shortest path
// toward dest, or dest itself if they are already adjacent or equal.
func (b *base) nextHopToward(from, dest simtypes.NodeID) simtypes.NodeID {
	if from == dest {
		return dest
	}
	path := b.view.ShortestPath(from, dest)
	if len(path) < 2 {
		return dest
	}
	return path[1]
}

// startAndForwardRequest implements the common REQUEST@receiver==node
// step: start the session and forward one hop toward the service's
// origin, accruing the round-trip cost of that hop into rttDelay.
func (b *base) startAndForwardRequest(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64) error {
	b.ctrl.StartSession(time, receiver, service, flowID, deadline)
	simmetrics.SessionsActive.Inc()

	origin := b.view.ContentSource(service)
	next := b.nextHopToward(node, origin)
	link := b.view.LinkDelay(node, next)
	b.ctrl.AddEvent(time+link, receiver, next, service, flowID, deadline, rttDelay+2*link, simtypes.StatusRequest)
	return nil
}

// admitAtCloud implements REQUEST@origin==node: cloud spots have
// unbounded capacity and accept unconditionally. No REQUEST is
// forwarded further; the TASK_COMPLETE this produces drives the
// eventual RESPONSE.
func (b *base) admitAtCloud(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64) error {
	cs := b.view.CompSpot(node)
	if cs == nil || !cs.IsCloud {
		return simcore.NewInvariantViolation("origin_not_cloud", "node=%d", node)
	}

	svc := b.serviceFor(service)
	pathDelay := b.view.PathDelay(node, receiver)
	ok, reason, task := cs.AdmitTask(svc, time, flowID, deadline, receiver, rttDelay, pathDelay)
	b.recordAdmission(reason)
	if !ok {
		return simcore.NewInvariantViolation("cloud_admission_rejected", "node=%d reason=%s", node, reason)
	}

	b.ctrl.ExecuteService(flowID, service, node, time, true)
	b.ctrl.AddEvent(task.CompletionTime, receiver, node, service, flowID, deadline, rttDelay, simtypes.StatusTaskComplete)
	return nil
}

// admitLocally runs AdmitTask against a resident ComputeSpot and, on
// success, immediately gives the scheduler a chance to dispatch the
// newly-admitted task (or whatever else is next in line) onto a free
// core. LRU, HYBRID, MFU, and SDF all funnel their local admission
// attempt through this one path.
func (b *base) admitLocally(cs *compute.ComputeSpot, time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64) (bool, simtypes.AdmissionReason, *taskqueue.Task) {
	svc := b.serviceFor(service)
	pathDelay := b.view.PathDelay(node, receiver)
	ok, reason, task := cs.AdmitTask(svc, time, flowID, deadline, receiver, rttDelay, pathDelay)
	b.recordAdmission(reason)
	if ok {
		b.scheduleAndNotify(node, time, cs)
	}
	return ok, reason, task
}

// safeDiv divides a metric by a request count, returning +Inf for a zero
// count rather than dividing by zero. This is HYBRID's own fallback
// (service.py:535,549 — the only place float('inf') appears in the
// original); SDF uses its own 1.0 fallback instead (see sdf.go's
// sdfRatio). In HYBRID's slack comparison a resident with no running
// requests gets +Inf slack, which exceeds any finite candidate slack and
// so reads as evictable; candidates are only scored when their missed
// count is above zero, so their slack is always finite (SPEC_FULL §11).
func safeDiv(numerator float64, count int) float64 {
	if count == 0 {
		return math.Inf(1)
	}
	return numerator / float64(count)
}

// slack is the deadline margin spec.md's GLOSSARY defines: how much
// room a request has left after accounting for time elapsed, round
// trip cost so far, and this service's own compute cost.
func slack(deadline, time, rttDelay, serviceTime float64) float64 {
	return deadline - time - rttDelay - serviceTime
}

// scheduleAndNotify attempts to dispatch the next eligible pending task
// at node, emitting ExecuteService and scheduling its TASK_COMPLETE if
// one was dispatched. Used both right after a successful local
// admission and inside handleTaskComplete, which is exactly how the
// Python source's admit_task/process_event pair re-enters scheduling
// without duplicating the dispatch-and-notify sequence.
func (b *base) scheduleAndNotify(node simtypes.NodeID, time float64, cs *compute.ComputeSpot) {
	dispatched := cs.Scheduler.Schedule(time)
	if dispatched == nil {
		return
	}
	b.ctrl.ExecuteService(dispatched.FlowID, dispatched.ServiceID, node, time, false)
	b.ctrl.AddEvent(dispatched.CompletionTime, dispatched.Receiver, node, dispatched.ServiceID, dispatched.FlowID, dispatched.Expiry, dispatched.RTTDelay, simtypes.StatusTaskComplete)
}

// handleTaskComplete implements the common TASK_COMPLETE step: advance
// this node's scheduler, then relay the just-finished task's RESPONSE
// one hop toward its receiver. A completion observed after its own
// deadline is logged, never raised — admission already gated
// feasibility; this is bookkeeping for a deadline that slipped between
// admission and execution (e.g. a congested upstream hop).
func (b *base) handleTaskComplete(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64) error {
	cs := b.view.CompSpot(node)
	if cs == nil {
		return simcore.NewInvariantViolation("task_complete_no_compute_spot", "node=%d", node)
	}
	b.scheduleAndNotify(node, time, cs)

	if time > deadline {
		log.WithFlow(flowID).Warn().
			Float64("time", time).
			Float64("deadline", deadline).
			Msg("task missed its deadline after dispatch")
	}

	next := b.nextHopToward(node, receiver)
	link := b.view.LinkDelay(node, next)
	b.ctrl.AddEvent(time+link, receiver, next, service, flowID, deadline, rttDelay, simtypes.StatusResponse)
	return nil
}

// handleResponse implements RESPONSE@node==receiver (end the session,
// always successfully — the original ends every session with True and
// a "#TODO add flow_time" left unresolved, not a deadline check) and
// RESPONSE@intermediate (relay one hop further downstream). HYBRID
// additionally counts a missed request here, at the relaying node,
// whenever the remaining path delay to the receiver would blow the
// deadline (service.py:658-659) — the only strategy whose
// missed_requests accounting happens on the RESPONSE path rather than
// at admission.
func (b *base) handleResponse(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64) error {
	if node == receiver {
		b.ctrl.EndSession(true, time, flowID)
		simmetrics.SessionsActive.Dec()
		return nil
	}
	next := b.nextHopToward(node, receiver)
	link := b.view.LinkDelay(node, next)
	b.ctrl.AddEvent(time+link, receiver, next, service, flowID, deadline, rttDelay, simtypes.StatusResponse)

	if b.trackResponseMiss && b.view.PathDelay(node, receiver)+time > deadline {
		if cs := b.view.CompSpot(node); cs != nil {
			cs.RecordMissed(service)
		}
	}
	return nil
}

// metricState is the deadline_metric / cand_deadline_metric pair HYBRID,
// MFU, and SDF all accumulate during admission and consume during
// replacement. MFU's replacement pass ignores these entirely (it scores
// off ComputeSpot's plain running/missed counters instead) but still
// carries the fields so admission logic — identical across all three
// per spec.md §4.6-§4.8 — can live in one place.
type metricState struct {
	deadlineMetric     map[simtypes.NodeID]map[simtypes.ServiceID]float64
	candDeadlineMetric map[simtypes.NodeID]map[simtypes.ServiceID]float64
}

func newMetricState() metricState {
	return metricState{
		deadlineMetric:     make(map[simtypes.NodeID]map[simtypes.ServiceID]float64),
		candDeadlineMetric: make(map[simtypes.NodeID]map[simtypes.ServiceID]float64),
	}
}

func (m *metricState) add(metric map[simtypes.NodeID]map[simtypes.ServiceID]float64, node simtypes.NodeID, service simtypes.ServiceID, value float64) {
	if value <= 0 {
		return
	}
	perNode, ok := metric[node]
	if !ok {
		perNode = make(map[simtypes.ServiceID]float64)
		metric[node] = perNode
	}
	perNode[service] += value
}

func (m *metricState) reset() {
	m.deadlineMetric = make(map[simtypes.NodeID]map[simtypes.ServiceID]float64)
	m.candDeadlineMetric = make(map[simtypes.NodeID]map[simtypes.ServiceID]float64)
}

// admitWithMetrics implements the admission policy shared by HYBRID,
// MFU, and SDF (spec.md §4.7, §4.8 both say "identical to HYBRID"):
// admit if resident, record the running counter on success, and
// accumulate positive slack into deadlineMetric on success or
// candDeadlineMetric on failure/absence either way. normalizeSlack lets
// SDF divide by deadline; HYBRID and MFU pass the identity function.
//
// missed_requests is not touched uniformly: the original only
// increments it in the not-resident branch, and only for MFU/SDF — a
// resident admission failing to congestion never counts as missed
// (service.py ~937-940, ~1152-1155), and HYBRID's own admission-path
// increments are commented out entirely (service.py ~702,707; it
// tracks missed requests on the RESPONSE path instead, via
// handleResponse's trackResponseMiss). trackMissedAtAdmission selects
// between the two.
func (b *base) admitWithMetrics(m *metricState, time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64, normalizeSlack func(slack, deadline float64) float64, trackMissedAtAdmission bool) error {
	svc := b.serviceFor(service)
	raw := slack(deadline, time, rttDelay, svc.ServiceTime)
	value := normalizeSlack(raw, deadline)

	cs := b.view.CompSpot(node)
	if cs == nil || !cs.HasService(service) {
		if cs != nil && trackMissedAtAdmission {
			cs.RecordMissed(service)
		}
		m.add(m.candDeadlineMetric, node, service, value)
		return b.forwardRequestUpstream(time, receiver, node, service, flowID, deadline, rttDelay)
	}

	ok, _, _ := b.admitLocally(cs, time, receiver, node, service, flowID, deadline, rttDelay)
	if ok {
		cs.RecordRunning(service)
		m.add(m.deadlineMetric, node, service, value)
		return nil
	}

	m.add(m.candDeadlineMetric, node, service, value)
	return b.forwardRequestUpstream(time, receiver, node, service, flowID, deadline, rttDelay)
}

// forwardRequestUpstream relays a REQUEST one hop toward the service's
// origin, same hop accounting as startAndForwardRequest's forwarding
// step.
func (b *base) forwardRequestUpstream(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64) error {
	origin := b.view.ContentSource(service)
	next := b.nextHopToward(node, origin)
	link := b.view.LinkDelay(node, next)
	b.ctrl.AddEvent(time+link, receiver, next, service, flowID, deadline, rttDelay+2*link, simtypes.StatusRequest)
	return nil
}

// dispatchCommon runs the event topology shared by LRU, HYBRID, MFU,
// and SDF, delegating only the REQUEST@intermediate admission decision
// to admitAtIntermediate.
func (b *base) dispatchCommon(
	time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64, status simtypes.EventStatus,
	admitAtIntermediate func(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64) error,
) error {
	switch status {
	case simtypes.StatusRequest:
		if receiver == node {
			return b.startAndForwardRequest(time, receiver, node, service, flowID, deadline, rttDelay)
		}
		origin := b.view.ContentSource(service)
		if origin == node {
			return b.admitAtCloud(time, receiver, node, service, flowID, deadline, rttDelay)
		}
		return admitAtIntermediate(time, receiver, node, service, flowID, deadline, rttDelay)
	case simtypes.StatusTaskComplete:
		return b.handleTaskComplete(time, receiver, node, service, flowID, deadline, rttDelay)
	case simtypes.StatusResponse:
		return b.handleResponse(time, receiver, node, service, flowID, deadline, rttDelay)
	default:
		return simcore.NewInvariantViolation("unknown_event_status", "status=%d", status)
	}
}
