package model

import (
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/weakai/rnn"
)

// An encodedSeq is the encoder's output for one sequence:
// one vector per position, each the concatenation of the
// forward state at that position and the backward state at
// the mirrored position.
//
// The vectors are exposed as pool variables so that the
// decoder's attention graphs can reference them as leaves;
// propagate later pushes the pooled gradients through the
// two recurrent chains.
type encodedSeq struct {
	m     *Model
	Pools []*autofunc.Variable

	fwd      []rnn.BlockResult
	bwd      []rnn.BlockResult
	fwdStart rnn.State
	bwdStart rnn.State
}

// encode runs both encoder directions over a padded id
// sequence, wrapping it in BEGIN/END sentinels.
// The backward direction observes the full sequence before
// any position is combined, so encoding is not streamable.
func (m *Model) encode(ids []int) *encodedSeq {
	full := make([]int, 0, len(ids)+2)
	full = append(full, m.In.BeginID())
	full = append(full, ids...)
	full = append(full, m.In.EndID())

	res := &encodedSeq{
		m:        m,
		fwdStart: m.EncFwd.StartState(),
		bwdStart: m.EncBwd.StartState(),
	}
	n := len(full)
	fState, bState := res.fwdStart, res.bwdStart
	for i := 0; i < n; i++ {
		fr := m.EncFwd.ApplyBlock([]rnn.State{fState},
			[]autofunc.Result{m.InEmbed.Embed(full[i])})
		fState = fr.States()[0]
		res.fwd = append(res.fwd, fr)

		br := m.EncBwd.ApplyBlock([]rnn.State{bState},
			[]autofunc.Result{m.InEmbed.Embed(full[n-i-1])})
		bState = br.States()[0]
		res.bwd = append(res.bwd, br)
	}

	h := m.Conf.HiddenDim
	res.Pools = make([]*autofunc.Variable, n)
	for i := 0; i < n; i++ {
		vec := make(linalg.Vector, 2*h)
		copy(vec, res.fwd[i].Outputs()[0])
		copy(vec[h:], res.bwd[n-i-1].Outputs()[0])
		res.Pools[i] = &autofunc.Variable{Vector: vec}
	}
	return res
}

// results returns the pool variables as autofunc.Results
// for use as attention inputs.
func (e *encodedSeq) results() []autofunc.Result {
	res := make([]autofunc.Result, len(e.Pools))
	for i, v := range e.Pools {
		res[i] = v
	}
	return res
}

// register adds zeroed gradient entries for the pooled
// encoder outputs so that downstream graphs accumulate
// into them.
func (e *encodedSeq) register(g autofunc.Gradient) {
	for _, v := range e.Pools {
		g[v] = make(linalg.Vector, len(v.Vector))
	}
}

// propagate pushes the accumulated pool gradients through
// both recurrent chains and removes the pool entries.
func (e *encodedSeq) propagate(g autofunc.Gradient) {
	h := e.m.Conf.HiddenDim
	n := len(e.Pools)
	fUp := make([]linalg.Vector, n)
	bUp := make([]linalg.Vector, n)
	for i, v := range e.Pools {
		u := g[v]
		fUp[i] = append(linalg.Vector{}, u[:h]...)
		bUp[n-i-1] = append(linalg.Vector{}, u[h:]...)
		delete(g, v)
	}

	var fsg, bsg []rnn.StateGrad
	for i := n - 1; i >= 0; i-- {
		fsg = e.fwd[i].PropagateGradient([]linalg.Vector{fUp[i]}, fsg, g)
		bsg = e.bwd[i].PropagateGradient([]linalg.Vector{bUp[i]}, bsg, g)
	}
	e.m.EncFwd.PropagateStart([]rnn.State{e.fwdStart}, fsg, g)
	e.m.EncBwd.PropagateStart([]rnn.State{e.bwdStart}, bsg, g)
}

// EncodeSequence runs the bidirectional encoder over a
// padded id sequence (BEGIN/END sentinels added here) and
// returns one concatenated forward+backward vector per
// position, sentinels included.
func (m *Model) EncodeSequence(ids []int) []linalg.Vector {
	enc := m.encode(ids)
	res := make([]linalg.Vector, len(enc.Pools))
	for i, v := range enc.Pools {
		res[i] = v.Vector
	}
	return res
}
