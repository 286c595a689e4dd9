package excite

import (
	"strings"
	"testing"
)

type fakeHandle struct {
	path   string
	values map[string]float64
}

func (h *fakeHandle) Path() string { return h.path }
func (h *fakeHandle) Set(field string, value float64) error {
	if h.values == nil {
		h.values = map[string]float64{}
	}
	h.values[field] = value
	return nil
}

func TestNewSpec_UnknownFunctionRejected(t *testing.T) {
	reg := Default()
	_, err := NewSpec(reg, "model/actuator1", "wobble", nil)
	if err == nil {
		t.Fatal("expected error for unregistered excitation function")
	}
	if !strings.Contains(err.Error(), "wobble") {
		t.Errorf("error should name the function, got: %v", err)
	}
}

func TestNewSpec_DefaultFunction(t *testing.T) {
	spec, err := NewSpec(Default(), "model/actuator1", "", Params{ParamIncrement: 5})
	if err != nil {
		t.Fatalf("NewSpec: %v", err)
	}
	if spec.Function != DefaultFunction {
		t.Errorf("Function = %q, want %q", spec.Function, DefaultFunction)
	}
	if spec.Duration != -1 {
		t.Errorf("Duration = %v, want -1 before execution", spec.Duration)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("pulse", Shake); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := reg.Register("pulse", Shake); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestHasRamp(t *testing.T) {
	reg := Default()
	ramped, err := NewSpec(reg, "a", "", Params{ParamIncrement: 5, ParamPeriod: 10, ParamRange: 40})
	if err != nil {
		t.Fatalf("NewSpec: %v", err)
	}
	if !ramped.HasRamp() {
		t.Error("spec with incr+incrPeriod should report a ramp")
	}

	plain, err := NewSpec(reg, "b", "", Params{ParamIncrement: 5})
	if err != nil {
		t.Fatalf("NewSpec: %v", err)
	}
	if plain.HasRamp() {
		t.Error("spec without incrPeriod should not report a ramp")
	}
}

func TestShake_RampAndHold(t *testing.T) {
	h := &fakeHandle{path: "model/actuator1"}
	params := Params{ParamIncrement: 5, ParamPeriod: 10, ParamRange: 40}

	if err := Shake(h, 25, params); err != nil {
		t.Fatalf("Shake: %v", err)
	}
	if got := h.values["value"]; got != 10 {
		t.Errorf("value at t=25 = %v, want 10", got)
	}

	if err := Shake(h, 500, params); err != nil {
		t.Fatalf("Shake: %v", err)
	}
	if got := h.values["value"]; got != 40 {
		t.Errorf("value past range = %v, want clamp at 40", got)
	}
}
