package model

import (
	"github.com/jkastner/seqtrans/corpus"
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/weakai/neuralnet"
	"github.com/unixpickle/weakai/rnn"
)

// A lossStep keeps the per-timestep graphs needed to
// back-propagate one decoder step.
// hPool and attPool are pool variables: the attention and
// readout graphs hang off them, and gradients accumulate
// through them before being pushed into the recurrent
// chain.
type lossStep struct {
	dres    rnn.BlockResult
	hPool   *autofunc.Variable
	attPool *autofunc.Variable
	att     autofunc.Result
	nll     autofunc.Result
	mask    float64
}

// BatchLoss computes the length-masked negative
// log-likelihood of a batch under teacher forcing, summed
// over every timestep and batch element.
// The sum is not averaged; callers divide by an example or
// token count themselves for reporting.
//
// The per-token probabilities come from a fused
// log-softmax, never a literal log(softmax(x)).
//
// If g is non-nil, parameter gradients for the whole batch
// are accumulated into it.
func (m *Model) BatchLoss(b *corpus.Batch, g autofunc.Gradient, lastOnly bool) float64 {
	var total float64
	for lane := range b.Pairs {
		total += m.laneLoss(b.In[lane], b.Out[lane], b.OutMask[lane], g, lastOnly)
	}
	return total
}

func (m *Model) laneLoss(in, out []int, mask []float64, g autofunc.Gradient,
	lastOnly bool) float64 {
	enc := m.encode(in)
	if g != nil {
		enc.register(g)
	}

	decStart := m.Dec.StartState()
	state := decStart
	input := autofunc.Concat(m.OutEmbed.Embed(m.Out.BeginID()), m.InitFeed.Embed(0))

	var total float64
	steps := make([]lossStep, 0, len(out))
	for t := range out {
		dres := m.Dec.ApplyBlock([]rnn.State{state}, []autofunc.Result{input})
		state = dres.States()[0]
		hPool := &autofunc.Variable{
			Vector: append(linalg.Vector{}, dres.Outputs()[0]...),
		}
		att, _ := m.Attend(enc.results(), hPool, lastOnly)
		attPool := &autofunc.Variable{Vector: att.Output().Copy()}

		logProbs := (&neuralnet.LogSoftmaxLayer{}).Apply(m.Readout.Apply(attPool))
		nll := autofunc.Scale(autofunc.Slice(logProbs, out[t], out[t]+1), -mask[t])
		total += nll.Output()[0]

		steps = append(steps, lossStep{
			dres:    dres,
			hPool:   hPool,
			attPool: attPool,
			att:     att,
			nll:     nll,
			mask:    mask[t],
		})

		// Input feeding: the next step consumes the gold
		// embedding together with this step's attended vector.
		input = autofunc.Concat(m.OutEmbed.Embed(out[t]), attPool)
	}

	if g != nil {
		m.lanePropagate(decStart, steps, enc, g)
	}
	return total
}

// lanePropagate walks the decoder steps in reverse,
// accumulating gradients through the pool variables and
// chaining recurrent state grads, then pushes the pooled
// encoder gradients through both encoder directions.
func (m *Model) lanePropagate(decStart rnn.State, steps []lossStep,
	enc *encodedSeq, g autofunc.Gradient) {
	for _, st := range steps {
		g[st.hPool] = make(linalg.Vector, len(st.hPool.Vector))
		g[st.attPool] = make(linalg.Vector, len(st.attPool.Vector))
	}

	var sg []rnn.StateGrad
	for t := len(steps) - 1; t >= 0; t-- {
		st := steps[t]
		if st.mask != 0 {
			st.nll.PropagateGradient(linalg.Vector{1}, g)
		}
		// The attended vector's upstream now holds both the
		// readout contribution and the next step's
		// input-feeding contribution.
		st.att.PropagateGradient(g[st.attPool], g)
		sg = st.dres.PropagateGradient([]linalg.Vector{g[st.hPool]}, sg, g)
	}
	m.Dec.PropagateStart([]rnn.State{decStart}, sg, g)

	for _, st := range steps {
		delete(g, st.hPool)
		delete(g, st.attPool)
	}
	enc.propagate(g)
}
