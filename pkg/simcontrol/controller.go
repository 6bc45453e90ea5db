package simcontrol

import (
	"strconv"
	"sync"

	"github.com/cuemby/edgesim/pkg/compute"
	"github.com/cuemby/edgesim/pkg/simtypes"
	"github.com/cuemby/edgesim/pkg/simview"
)

// Controller is the mutating sink every Strategy emits session
// lifecycle, follow-up events, replacement-interval notices, and VM/cache
// changes through. The View it reads is shared and read-only; Controller
// is the only thing a Strategy is allowed to mutate simulation state via.
type Controller interface {
	compute.VMRecorder

	StartSession(time float64, receiver simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline float64)
	EndSession(successful bool, time float64, flowID simtypes.FlowID)
	AddEvent(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64, status simtypes.EventStatus)
	ExecuteService(flowID simtypes.FlowID, service simtypes.ServiceID, node simtypes.NodeID, time float64, isCloud bool)
	ReplacementIntervalOver(flowID simtypes.FlowID, interval, time float64)

	// PutContent evicts the least-recently-used resident service at node
	// (other than service itself) to make room for service, performing
	// the underlying VM reassignment. ok is false if node has no
	// ComputeSpot or nothing evictable.
	PutContent(node simtypes.NodeID, service simtypes.ServiceID) (evicted simtypes.ServiceID, ok bool)
	// GetContent marks service as most-recently-used at node.
	GetContent(node simtypes.NodeID, service simtypes.ServiceID)

	// ReassignVM is COORDINATED's batch notification: one evicted service
	// paired against possibly several newly-added services in a single
	// replacement pass. The underlying per-pair instance mutation happens
	// through ComputeSpot.ReassignVM (via the embedded VMRecorder); this
	// call only records the batch for observability.
	ReassignVM(node simtypes.NodeID, from simtypes.ServiceID, to []simtypes.ServiceID)
}

// Event is one entry in a Recorder's deterministic event log, keyed by
// simulated time rather than wall-clock time.
type Event struct {
	Time    float64
	Kind    string
	FlowID  simtypes.FlowID
	Node    simtypes.NodeID
	Service simtypes.ServiceID
	Status  simtypes.EventStatus
	Detail  string
}

type session struct {
	receiver simtypes.NodeID
	service  simtypes.ServiceID
	deadline float64
	start    float64
}

// Recorder is an in-memory reference Controller adapted from the
// teacher's event-broker pattern: a deterministic append-only event log
// instead of a live goroutine/channel broadcaster, because the simulator
// delivers events to a single Strategy synchronously and needs
// reproducible ordering, not fan-out to subscribers. It also tracks a
// per-node LRU recency list to back PutContent/GetContent.
type Recorder struct {
	mu sync.RWMutex

	view     simview.View
	events   []Event
	sessions map[simtypes.FlowID]*session
	lru      map[simtypes.NodeID][]simtypes.ServiceID
}

// NewRecorder builds a Recorder that resolves ComputeSpots through view
// when PutContent needs to perform an eviction.
func NewRecorder(view simview.View) *Recorder {
	return &Recorder{
		view:     view,
		sessions: make(map[simtypes.FlowID]*session),
		lru:      make(map[simtypes.NodeID][]simtypes.ServiceID),
	}
}

func (r *Recorder) StartSession(time float64, receiver simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[flowID] = &session{receiver: receiver, service: service, deadline: deadline, start: time}
	r.events = append(r.events, Event{Time: time, Kind: "SESSION_START", FlowID: flowID, Node: receiver, Service: service})
}

func (r *Recorder) EndSession(successful bool, time float64, flowID simtypes.FlowID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	detail := "failure"
	if successful {
		detail = "success"
	}
	delete(r.sessions, flowID)
	r.events = append(r.events, Event{Time: time, Kind: "SESSION_END", FlowID: flowID, Detail: detail})
}

func (r *Recorder) AddEvent(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64, status simtypes.EventStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Time: time, Kind: "EVENT", FlowID: flowID, Node: node, Service: service, Status: status})
}

func (r *Recorder) ExecuteService(flowID simtypes.FlowID, service simtypes.ServiceID, node simtypes.NodeID, time float64, isCloud bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Time: time, Kind: "EXECUTE", FlowID: flowID, Node: node, Service: service})
}

func (r *Recorder) ReplacementIntervalOver(flowID simtypes.FlowID, interval, time float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Time: time, Kind: "REPLACEMENT_INTERVAL_OVER", FlowID: flowID})
}

// PutContent evicts the node's least-recently-used resident service
// (skipping service itself, which can't evict itself) to install
// service, mutating ComputeSpot.ServiceInstances through ReassignVM.
func (r *Recorder) PutContent(node simtypes.NodeID, service simtypes.ServiceID) (simtypes.ServiceID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs := r.view.CompSpot(node)
	if cs == nil {
		return 0, false
	}

	// order is oldest-to-newest; the first eligible entry is the
	// least-recently-used one.
	order := r.lru[node]
	evictIdx := -1
	for i, svc := range order {
		if svc != service && cs.ServiceInstances[svc] > 0 {
			evictIdx = i
			break
		}
	}
	if evictIdx == -1 {
		return 0, false
	}
	evicted := order[evictIdx]

	if err := cs.ReassignVM(unlockedRecorder{r}, evicted, service); err != nil {
		return 0, false
	}

	order = append(order[:evictIdx], order[evictIdx+1:]...)
	order = append(order, service)
	r.lru[node] = order

	return evicted, true
}

// unlockedRecorder adapts a Recorder already holding its own lock to
// compute.VMRecorder, recording without re-acquiring the mutex. Used only
// by PutContent, the one path that must perform the VM swap and the
// recency update as a single atomic step.
type unlockedRecorder struct{ r *Recorder }

func (u unlockedRecorder) RecordVMReassignment(node simtypes.NodeID, from, to simtypes.ServiceID) {
	u.r.touchLocked(node, to)
	u.r.events = append(u.r.events, Event{Node: node, Kind: "VM_REASSIGN", Service: to, Detail: detailFromTo(from, to)})
}

// GetContent moves service to the most-recently-used end of node's
// recency list, inserting it if this is the first time it's been seen.
func (r *Recorder) GetContent(node simtypes.NodeID, service simtypes.ServiceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked(node, service)
}

func (r *Recorder) touchLocked(node simtypes.NodeID, service simtypes.ServiceID) {
	order := r.lru[node]
	for i, s := range order {
		if s == service {
			order = append(order[:i], order[i+1:]...)
			break
		}
	}
	r.lru[node] = append(order, service)
}

// RecordVMReassignment satisfies compute.VMRecorder: it is the low-level
// hook ComputeSpot.ReassignVM calls on every individual instance swap,
// regardless of which Strategy triggered it.
func (r *Recorder) RecordVMReassignment(node simtypes.NodeID, from, to simtypes.ServiceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked(node, to)
	r.events = append(r.events, Event{Node: node, Kind: "VM_REASSIGN", Service: to, Detail: detailFromTo(from, to)})
}

// ReassignVM records COORDINATED's batch eviction/addition report. The
// per-pair instance mutation already happened via RecordVMReassignment;
// this is purely an observability log entry over the whole pass.
func (r *Recorder) ReassignVM(node simtypes.NodeID, from simtypes.ServiceID, to []simtypes.ServiceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, svc := range to {
		r.events = append(r.events, Event{Node: node, Kind: "VM_REASSIGN_BATCH", Service: svc, Detail: detailFromTo(from, svc)})
	}
}

// Events returns a defensive copy of the recorded event log, in the
// order events were recorded.
func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ActiveSessions reports the number of sessions started but not yet
// ended, used by tests to assert every session reaches end_session.
func (r *Recorder) ActiveSessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func detailFromTo(from, to simtypes.ServiceID) string {
	return "from=" + strconv.Itoa(int(from)) + " to=" + strconv.Itoa(int(to))
}
