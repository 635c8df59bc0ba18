package train

import (
	"fmt"
	"math"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
)

// An Updater applies one stochastic-optimization step for
// a gradient, after clipping it.
// Updaters keep whatever per-parameter state their rule
// needs between calls.
type Updater interface {
	Update(g autofunc.Gradient)
}

// NewUpdater creates the update rule named by name
// (SGD, MOMENTUM, ADAGRAD, ADADELTA or ADAM), with
// gradient-norm clipping at clip (non-positive disables
// clipping).
func NewUpdater(name string, learningRate, clip float64) (Updater, error) {
	switch name {
	case "SGD":
		return &sgd{rate: learningRate, clip: clip}, nil
	case "MOMENTUM":
		return &momentum{rate: learningRate, clip: clip, decay: 0.9,
			vel: map[*autofunc.Variable]linalg.Vector{}}, nil
	case "ADAGRAD":
		return &adagrad{rate: learningRate, clip: clip, epsilon: 1e-8,
			accum: map[*autofunc.Variable]linalg.Vector{}}, nil
	case "ADADELTA":
		return &adadelta{clip: clip, decay: 0.95, epsilon: 1e-6,
			accumGrad:   map[*autofunc.Variable]linalg.Vector{},
			accumUpdate: map[*autofunc.Variable]linalg.Vector{}}, nil
	case "ADAM":
		return &adam{rate: learningRate, clip: clip, decay1: 0.9, decay2: 0.999,
			epsilon: 1e-8,
			moment1: map[*autofunc.Variable]linalg.Vector{},
			moment2: map[*autofunc.Variable]linalg.Vector{}}, nil
	}
	return nil, fmt.Errorf("unknown optimization method: %s", name)
}

// clipGradient scales the whole gradient down so that its
// global norm does not exceed threshold.
func clipGradient(g autofunc.Gradient, threshold float64) {
	if threshold <= 0 {
		return
	}
	var sq float64
	for _, vec := range g {
		sq += vec.Dot(vec)
	}
	norm := math.Sqrt(sq)
	if norm <= threshold {
		return
	}
	scale := threshold / norm
	for _, vec := range g {
		vec.Scale(scale)
	}
}

type sgd struct {
	rate float64
	clip float64
}

func (s *sgd) Update(g autofunc.Gradient) {
	clipGradient(g, s.clip)
	for v, grad := range g {
		v.Vector.Add(grad.Copy().Scale(-s.rate))
	}
}

type momentum struct {
	rate  float64
	clip  float64
	decay float64
	vel   map[*autofunc.Variable]linalg.Vector
}

func (m *momentum) Update(g autofunc.Gradient) {
	clipGradient(g, m.clip)
	for v, grad := range g {
		vel, ok := m.vel[v]
		if !ok {
			vel = make(linalg.Vector, len(grad))
			m.vel[v] = vel
		}
		vel.Scale(m.decay).Add(grad.Copy().Scale(-m.rate))
		v.Vector.Add(vel)
	}
}

type adagrad struct {
	rate    float64
	clip    float64
	epsilon float64
	accum   map[*autofunc.Variable]linalg.Vector
}

func (a *adagrad) Update(g autofunc.Gradient) {
	clipGradient(g, a.clip)
	for v, grad := range g {
		accum, ok := a.accum[v]
		if !ok {
			accum = make(linalg.Vector, len(grad))
			a.accum[v] = accum
		}
		for i, x := range grad {
			accum[i] += x * x
			v.Vector[i] -= a.rate * x / math.Sqrt(accum[i]+a.epsilon)
		}
	}
}

type adadelta struct {
	clip        float64
	decay       float64
	epsilon     float64
	accumGrad   map[*autofunc.Variable]linalg.Vector
	accumUpdate map[*autofunc.Variable]linalg.Vector
}

func (a *adadelta) Update(g autofunc.Gradient) {
	clipGradient(g, a.clip)
	for v, grad := range g {
		ag, ok := a.accumGrad[v]
		if !ok {
			ag = make(linalg.Vector, len(grad))
			a.accumGrad[v] = ag
			a.accumUpdate[v] = make(linalg.Vector, len(grad))
		}
		au := a.accumUpdate[v]
		for i, x := range grad {
			ag[i] = a.decay*ag[i] + (1-a.decay)*x*x
			step := -math.Sqrt(au[i]+a.epsilon) / math.Sqrt(ag[i]+a.epsilon) * x
			au[i] = a.decay*au[i] + (1-a.decay)*step*step
			v.Vector[i] += step
		}
	}
}

type adam struct {
	rate    float64
	clip    float64
	decay1  float64
	decay2  float64
	epsilon float64
	steps   int
	moment1 map[*autofunc.Variable]linalg.Vector
	moment2 map[*autofunc.Variable]linalg.Vector
}

func (a *adam) Update(g autofunc.Gradient) {
	clipGradient(g, a.clip)
	a.steps++
	correct1 := 1 - math.Pow(a.decay1, float64(a.steps))
	correct2 := 1 - math.Pow(a.decay2, float64(a.steps))
	for v, grad := range g {
		m1, ok := a.moment1[v]
		if !ok {
			m1 = make(linalg.Vector, len(grad))
			a.moment1[v] = m1
			a.moment2[v] = make(linalg.Vector, len(grad))
		}
		m2 := a.moment2[v]
		for i, x := range grad {
			m1[i] = a.decay1*m1[i] + (1-a.decay1)*x
			m2[i] = a.decay2*m2[i] + (1-a.decay2)*x*x
			mHat := m1[i] / correct1
			vHat := m2[i] / correct2
			v.Vector[i] -= a.rate * mHat / (math.Sqrt(vHat) + a.epsilon)
		}
	}
}
