package model

import (
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/weakai/rnn"

	"gonum.org/v1/gonum/floats"
)

// Greedy decodes one input sequence by feeding back the
// argmax prediction at every step.
// Decoding stops at the END symbol or after maxLen steps;
// the END symbol is stripped from the result.
// The second return value is the attention-weight matrix,
// one row per produced step, for diagnostics.
//
// Greedy is deterministic: fixed parameters and a fixed
// input always produce the same output.
func (m *Model) Greedy(input []string, maxLen int, lastOnly bool) ([]string, [][]float64) {
	if len(input) == 0 {
		return nil, nil
	}
	ids := make([]int, len(input))
	for i, tok := range input {
		ids[i] = m.In.ID(tok)
	}
	enc := m.encode(ids)

	state := m.Dec.StartState()
	input0 := autofunc.Concat(m.OutEmbed.Embed(m.Out.BeginID()), m.InitFeed.Embed(0))
	feed := input0

	var seq []string
	var alphas [][]float64
	endID := m.Out.EndID()
	for i := 0; i < maxLen; i++ {
		dres := m.Dec.ApplyBlock([]rnn.State{state}, []autofunc.Result{feed})
		state = dres.States()[0]
		hPool := &autofunc.Variable{
			Vector: append(linalg.Vector{}, dres.Outputs()[0]...),
		}
		att, weights := m.Attend(enc.results(), hPool, lastOnly)
		alphas = append(alphas, weights)

		scores := m.Readout.Apply(att).Output()
		best := floats.MaxIdx(scores)
		if best == endID {
			break
		}
		tok, _ := m.Out.Token(best)
		seq = append(seq, tok)

		attPool := &autofunc.Variable{Vector: att.Output().Copy()}
		feed = autofunc.Concat(m.OutEmbed.Embed(best), attPool)
	}
	return seq, alphas
}
