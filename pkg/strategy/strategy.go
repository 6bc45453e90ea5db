package strategy

import (
	"github.com/cuemby/edgesim/pkg/simcontrol"
	"github.com/cuemby/edgesim/pkg/simtypes"
	"github.com/cuemby/edgesim/pkg/simview"
)

// Strategy is the harness-facing contract every placement/routing policy
// implements. status is one of simtypes.StatusRequest, StatusResponse,
// or StatusTaskComplete.
type Strategy interface {
	ProcessEvent(time float64, receiver, node simtypes.NodeID, service simtypes.ServiceID, flowID simtypes.FlowID, deadline, rttDelay float64, status simtypes.EventStatus) error
}

// Factory builds a Strategy over a View/Controller pair, parameterized
// by a simconfig.StrategyConfig's fields (passed individually so this
// package never imports simconfig, avoiding a needless dependency).
type Factory func(view simview.View, ctrl simcontrol.Controller, replacementInterval float64, debug bool, p float64, nReplacements int) Strategy

var registry = map[string]Factory{
	"COORDINATED": func(v simview.View, c simcontrol.Controller, ri float64, debug bool, p float64, n int) Strategy {
		return NewCoordinated(v, c, ri, debug)
	},
	"LRU": func(v simview.View, c simcontrol.Controller, ri float64, debug bool, p float64, n int) Strategy {
		return NewLRU(v, c, ri, debug, p)
	},
	"HYBRID": func(v simview.View, c simcontrol.Controller, ri float64, debug bool, p float64, n int) Strategy {
		return NewHybrid(v, c, ri, debug)
	},
	"MFU": func(v simview.View, c simcontrol.Controller, ri float64, debug bool, p float64, n int) Strategy {
		return NewMFU(v, c, ri, debug, n)
	},
	"SDF": func(v simview.View, c simcontrol.Controller, ri float64, debug bool, p float64, n int) Strategy {
		return NewSDF(v, c, ri, debug, n)
	},
}

// New looks up a registered strategy by its configuration tag
// (COORDINATED, LRU, HYBRID, MFU, SDF) and constructs it. Returns false
// if the tag isn't registered.
func New(name string, v simview.View, c simcontrol.Controller, replacementInterval float64, debug bool, p float64, nReplacements int) (Strategy, bool) {
	factory, ok := registry[name]
	if !ok {
		return nil, false
	}
	return factory(v, c, replacementInterval, debug, p, nReplacements), true
}
