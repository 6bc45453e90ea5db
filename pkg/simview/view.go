package simview

import (
	"sync"

	"github.com/cuemby/edgesim/pkg/compute"
	"github.com/cuemby/edgesim/pkg/simtypes"
)

type nodeService struct {
	node    simtypes.NodeID
	service simtypes.ServiceID
}

// Topology exposes the read-only shape of the node graph a View sits on:
// which nodes originate requests, how deep each node sits below the
// root, and the overall graph height (used by COORDINATED's
// root-to-leaves replacement order).
type Topology interface {
	Receivers() []simtypes.NodeID
	Depth(node simtypes.NodeID) int
	Height() int
}

// View is the read-only topology and catalog oracle every Strategy
// consults. It never mutates simulation state; Controller does that.
type View interface {
	ContentSource(service simtypes.ServiceID) simtypes.NodeID
	ShortestPath(a, b simtypes.NodeID) []simtypes.NodeID
	PathDelay(a, b simtypes.NodeID) float64
	LinkDelay(a, b simtypes.NodeID) float64
	Services() []simtypes.Service
	NumServices() int
	CompSpot(node simtypes.NodeID) *compute.ComputeSpot
	HasComputationalSpot(node simtypes.NodeID) bool
	HasService(node simtypes.NodeID, service simtypes.ServiceID) bool
	ServiceNodes() map[simtypes.NodeID]*compute.ComputeSpot
	Topology() Topology
}

// StaticView is an in-memory reference View built from explicit fixture
// data rather than a real topology/routing engine — it is a test and
// demo double, out of the core's scope-of-correctness (SPEC_FULL.md §6).
// The mutex makes one StaticView safe to share across goroutines.
type StaticView struct {
	mu sync.RWMutex

	contentSource map[simtypes.ServiceID]simtypes.NodeID
	paths         map[[2]simtypes.NodeID][]simtypes.NodeID
	pathDelay     map[[2]simtypes.NodeID]float64
	linkDelay     map[[2]simtypes.NodeID]float64
	services      []simtypes.Service
	compSpots     map[simtypes.NodeID]*compute.ComputeSpot
	hasService    map[nodeService]bool
	receivers     []simtypes.NodeID
	depth         map[simtypes.NodeID]int
	height        int
}

// NewStaticView builds an empty fixture. Use the With* setters to
// populate it before handing it to a Strategy.
func NewStaticView() *StaticView {
	return &StaticView{
		contentSource: make(map[simtypes.ServiceID]simtypes.NodeID),
		paths:         make(map[[2]simtypes.NodeID][]simtypes.NodeID),
		pathDelay:     make(map[[2]simtypes.NodeID]float64),
		linkDelay:     make(map[[2]simtypes.NodeID]float64),
		compSpots:     make(map[simtypes.NodeID]*compute.ComputeSpot),
		hasService:    make(map[nodeService]bool),
		depth:         make(map[simtypes.NodeID]int),
	}
}

// WithServices sets the service catalog.
func (v *StaticView) WithServices(services []simtypes.Service) *StaticView {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.services = services
	return v
}

// WithContentSource records the origin (cloud) node for a service.
func (v *StaticView) WithContentSource(service simtypes.ServiceID, node simtypes.NodeID) *StaticView {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.contentSource[service] = node
	return v
}

// WithPath records the shortest path, its cumulative delay, and the
// per-hop link delay between two nodes.
func (v *StaticView) WithPath(a, b simtypes.NodeID, path []simtypes.NodeID, delay, link float64) *StaticView {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paths[[2]simtypes.NodeID{a, b}] = path
	v.pathDelay[[2]simtypes.NodeID{a, b}] = delay
	v.linkDelay[[2]simtypes.NodeID{a, b}] = link
	return v
}

// WithComputeSpot registers a ComputeSpot at a node and marks which
// services it is permitted to ever host (its resident set fluctuates
// via ReassignVM, but hosting eligibility is fixed by the fixture).
func (v *StaticView) WithComputeSpot(node simtypes.NodeID, cs *compute.ComputeSpot, eligibleServices ...simtypes.ServiceID) *StaticView {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.compSpots[node] = cs
	for _, s := range eligibleServices {
		v.hasService[nodeService{node, s}] = true
	}
	return v
}

// WithTopology sets the receiver set, per-node depth, and graph height.
func (v *StaticView) WithTopology(receivers []simtypes.NodeID, depth map[simtypes.NodeID]int, height int) *StaticView {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.receivers = receivers
	v.depth = depth
	v.height = height
	return v
}

func (v *StaticView) ContentSource(service simtypes.ServiceID) simtypes.NodeID {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.contentSource[service]
}

func (v *StaticView) ShortestPath(a, b simtypes.NodeID) []simtypes.NodeID {
	v.mu.RLock()
	defer v.mu.RUnlock()
	path := v.paths[[2]simtypes.NodeID{a, b}]
	out := make([]simtypes.NodeID, len(path))
	copy(out, path)
	return out
}

func (v *StaticView) PathDelay(a, b simtypes.NodeID) float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pathDelay[[2]simtypes.NodeID{a, b}]
}

func (v *StaticView) LinkDelay(a, b simtypes.NodeID) float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.linkDelay[[2]simtypes.NodeID{a, b}]
}

func (v *StaticView) Services() []simtypes.Service {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]simtypes.Service, len(v.services))
	copy(out, v.services)
	return out
}

func (v *StaticView) NumServices() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.services)
}

func (v *StaticView) CompSpot(node simtypes.NodeID) *compute.ComputeSpot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.compSpots[node]
}

func (v *StaticView) HasComputationalSpot(node simtypes.NodeID) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.compSpots[node]
	return ok
}

func (v *StaticView) HasService(node simtypes.NodeID, service simtypes.ServiceID) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.hasService[nodeService{node, service}]
}

func (v *StaticView) ServiceNodes() map[simtypes.NodeID]*compute.ComputeSpot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[simtypes.NodeID]*compute.ComputeSpot, len(v.compSpots))
	for k, val := range v.compSpots {
		out[k] = val
	}
	return out
}

func (v *StaticView) Topology() Topology {
	return staticTopology{v}
}

type staticTopology struct{ v *StaticView }

func (t staticTopology) Receivers() []simtypes.NodeID {
	t.v.mu.RLock()
	defer t.v.mu.RUnlock()
	out := make([]simtypes.NodeID, len(t.v.receivers))
	copy(out, t.v.receivers)
	return out
}

func (t staticTopology) Depth(node simtypes.NodeID) int {
	t.v.mu.RLock()
	defer t.v.mu.RUnlock()
	return t.v.depth[node]
}

func (t staticTopology) Height() int {
	t.v.mu.RLock()
	defer t.v.mu.RUnlock()
	return t.v.height
}
