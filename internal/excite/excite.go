// Package excite describes the synthetic excitations injected at actuator
// points during the training runs, and the registry resolving an excitation
// name to its routine. Names are validated when a spec is constructed, not
// when a job finally executes.
package excite

import (
	"fmt"
	"sort"
)

// Well-known ramp parameters. A spec carrying both ParamIncrement and
// ParamPeriod contributes to the iteration budget.
const (
	ParamIncrement = "incr"
	ParamPeriod    = "incrPeriod"
	ParamRange     = "rangeOfAction"
)

// DefaultFunction is used when a spec does not name an excitation.
const DefaultFunction = "shake"

// Params holds the free-form numeric parameters of one excitation.
type Params map[string]float64

// Handle is the capability an excitation routine gets on its target:
// an addressable point in the model graph whose fields it may drive.
type Handle interface {
	Path() string
	Set(field string, value float64) error
}

// Func is one excitation routine. It is invoked once per simulation step
// with the simulated time and the spec's parameters.
type Func func(target Handle, simTime float64, params Params) error

// Registry maps excitation names to routines.
type Registry struct {
	fns map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]Func)}
}

// Default returns a registry with the built-in ramp excitation registered
// under DefaultFunction.
func Default() *Registry {
	r := NewRegistry()
	_ = r.Register(DefaultFunction, Shake)
	return r
}

// Register adds fn under name. Registering a name twice is an error.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("register excitation: empty name")
	}
	if fn == nil {
		return fmt.Errorf("register excitation %q: nil function", name)
	}
	if _, ok := r.fns[name]; ok {
		return fmt.Errorf("register excitation %q: already registered", name)
	}
	r.fns[name] = fn
	return nil
}

// Lookup returns the routine registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.fns))
	for name := range r.fns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Shake is the default ramp excitation: every ParamPeriod steps it advances
// the target by ParamIncrement until ParamRange is covered, then holds.
func Shake(target Handle, simTime float64, params Params) error {
	incr := params[ParamIncrement]
	period := params[ParamPeriod]
	if period <= 0 {
		return fmt.Errorf("shake %s: %s must be positive", target.Path(), ParamPeriod)
	}
	value := incr * float64(int(simTime/period))
	if max := params[ParamRange]; max > 0 && value > max {
		value = max
	}
	return target.Set("value", value)
}

// Spec binds one actuator location to an excitation routine and its
// parameters. Specs are owned by the caller and referenced, never copied,
// by the pipeline. Duration is computed during execution; it stays -1
// until then.
type Spec struct {
	Location string
	Function string
	Duration float64
	Params   Params
}

// NewSpec validates function against reg and returns the spec. An empty
// function name selects DefaultFunction.
func NewSpec(reg *Registry, location, function string, params Params) (*Spec, error) {
	if location == "" {
		return nil, fmt.Errorf("actuator spec: empty location")
	}
	if function == "" {
		function = DefaultFunction
	}
	if _, ok := reg.Lookup(function); !ok {
		return nil, fmt.Errorf("actuator spec %s: unknown excitation function %q", location, function)
	}
	if params == nil {
		params = Params{}
	}
	return &Spec{
		Location: location,
		Function: function,
		Duration: -1,
		Params:   params,
	}, nil
}

// HasRamp reports whether the spec carries the increment and period
// parameters of a ramp description.
func (s *Spec) HasRamp() bool {
	_, hasIncr := s.Params[ParamIncrement]
	_, hasPeriod := s.Params[ParamPeriod]
	return hasIncr && hasPeriod
}
