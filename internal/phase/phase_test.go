package phase

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"morpipe/internal/excite"
)

func TestGenerate_OrderProperties(t *testing.T) {
	for n := 0; n <= 6; n++ {
		set := Generate(n)
		if len(set) != 1<<n {
			t.Fatalf("n=%d: got %d vectors, want %d", n, len(set), 1<<n)
		}

		seen := make(map[uint]bool)
		for i, v := range set {
			if len(v) != n {
				t.Fatalf("n=%d: vector %d has length %d", n, i, len(v))
			}
			if seen[v.Value()] {
				t.Fatalf("n=%d: duplicate vector %s", n, v)
			}
			seen[v.Value()] = true

			if i == 0 {
				continue
			}
			prev := set[i-1]
			if v.Weight() < prev.Weight() {
				t.Errorf("n=%d: weight decreased at %d: %s after %s", n, i, v, prev)
			}
			if v.Weight() == prev.Weight() && v.Value() <= prev.Value() {
				t.Errorf("n=%d: value not strictly increasing within weight at %d: %s after %s", n, i, v, prev)
			}
		}
	}
}

func TestGenerate_TwoActuators(t *testing.T) {
	want := Set{
		{0, 0},
		{0, 1},
		{1, 0},
		{1, 1},
	}
	if diff := cmp.Diff(want, Generate(2)); diff != "" {
		t.Errorf("Generate(2) mismatch (-want +got):\n%s", diff)
	}
}

func TestSet_Index(t *testing.T) {
	set := Generate(3)
	if got := set.Index(Vector{0, 0, 0}); got != 0 {
		t.Errorf("Index(000) = %d, want 0", got)
	}
	if got := set.Index(Vector{1, 1, 1}); got != 7 {
		t.Errorf("Index(111) = %d, want 7", got)
	}
	if got := set.Index(Vector{1, 1}); got != -1 {
		t.Errorf("Index of wrong-length vector = %d, want -1", got)
	}
}

func TestIterationBudget(t *testing.T) {
	reg := excite.Default()
	ramped, err := excite.NewSpec(reg, "model/actuator1", "", excite.Params{
		excite.ParamIncrement: 5,
		excite.ParamPeriod:    10,
		excite.ParamRange:     40,
	})
	if err != nil {
		t.Fatalf("NewSpec: %v", err)
	}
	plain, err := excite.NewSpec(reg, "model/actuator2", "", excite.Params{
		excite.ParamIncrement: 5,
	})
	if err != nil {
		t.Fatalf("NewSpec: %v", err)
	}

	if got := IterationBudget([]*excite.Spec{ramped}, nil); got != 79 {
		t.Errorf("budget = %d, want 79", got)
	}
	if got := IterationBudget([]*excite.Spec{plain}, nil); got != 0 {
		t.Errorf("budget without ramp = %d, want 0", got)
	}

	override := 50.2
	if got := IterationBudget([]*excite.Spec{ramped}, &override); got != 51 {
		t.Errorf("budget with override = %d, want 51", got)
	}
}
