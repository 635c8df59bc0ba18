package model

import (
	"math"
	"testing"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
)

func TestAttendWeightsSumToOne(t *testing.T) {
	m := testModel()
	hDec := &autofunc.Variable{Vector: linalg.Vector{0.1, -0.2, 0.3, 0.05}}
	for _, n := range []int{1, 3, 7} {
		ids := make([]int, n)
		enc := m.encode(ids)
		_, weights := m.Attend(enc.results(), hDec, false)

		// encode wraps the ids in BEGIN and END.
		if len(weights) != n+2 {
			t.Fatalf("got %d weights for %d positions", len(weights), n+2)
		}
		var sum float64
		for _, w := range weights {
			if w < 0 {
				t.Errorf("negative attention weight %f", w)
			}
			sum += w
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("weights sum to %f for %d positions", sum, n)
		}
	}
}

func TestAttendLastOnly(t *testing.T) {
	m := testModel()
	hDec := &autofunc.Variable{Vector: linalg.Vector{0.1, -0.2, 0.3, 0.05}}
	enc := m.encode([]int{0, 1, 0})
	_, weights := m.Attend(enc.results(), hDec, true)
	if len(weights) != 1 {
		t.Fatalf("got %d weights, expected 1", len(weights))
	}
	if math.Abs(weights[0]-1) > 1e-9 {
		t.Errorf("single-position weight is %f, expected 1", weights[0])
	}
}

func TestAttendOutputSize(t *testing.T) {
	m := testModel()
	hDec := &autofunc.Variable{Vector: linalg.Vector{0.1, -0.2, 0.3, 0.05}}
	enc := m.encode([]int{0, 1})
	att, _ := m.Attend(enc.results(), hDec, false)
	if got := len(att.Output()); got != 3*m.Conf.HiddenDim {
		t.Errorf("attended vector size %d, expected %d", got, 3*m.Conf.HiddenDim)
	}
}
