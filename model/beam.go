package model

import (
	"log/slog"
	"math"
	"sort"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/weakai/rnn"

	"gonum.org/v1/gonum/floats"
)

// A Hypothesis is one partial or completed decode path.
// It is immutable once created.
type Hypothesis struct {
	// Seq is the token sequence so far.
	// Completed hypotheses carry no BEGIN/END sentinels.
	Seq []string

	// Prob is the cumulative probability of the sequence.
	Prob float64

	state   rnn.State
	context *autofunc.Variable
}

// BeamSearch decodes one input sequence keeping up to
// width partial hypotheses per step, ranked by cumulative
// probability.
// A hypothesis ending in END, or reaching maxLen, moves to
// the completed set and is not expanded further.
//
// The result is the completed hypotheses ranked best
// first, at most width of them; it may be empty if the
// frontier dies before anything completes, and callers
// must handle that.
//
// Equal probabilities keep discovery order (hypothesis
// order, then ascending vocabulary index), so the search
// is deterministic.
func (m *Model) BeamSearch(input []string, width, maxLen int, lastOnly bool) []Hypothesis {
	if len(input) == 0 || width < 1 || maxLen < 1 {
		return nil
	}
	ids := make([]int, len(input))
	for i, tok := range input {
		ids[i] = m.In.ID(tok)
	}
	enc := m.encode(ids)

	frontier := []Hypothesis{{
		Seq:     []string{m.beginToken()},
		Prob:    1,
		state:   m.Dec.StartState(),
		context: &autofunc.Variable{Vector: m.InitFeed.Vector(0).Copy()},
	}}
	var completed []Hypothesis

	for i := 0; i < maxLen && len(frontier) > 0; i++ {
		var candidates []Hypothesis
		for _, hyp := range frontier {
			last := hyp.Seq[len(hyp.Seq)-1]
			lastID, ok := m.Out.Lookup(last)
			if !ok {
				// Externally seeded symbol outside the output
				// vocabulary: skip this expansion, keep searching.
				slog.Warn("cannot expand hypothesis", "symbol", last)
				continue
			}
			feed := autofunc.Concat(m.OutEmbed.Embed(lastID), hyp.context)
			dres := m.Dec.ApplyBlock([]rnn.State{hyp.state}, []autofunc.Result{feed})
			hPool := &autofunc.Variable{
				Vector: append(linalg.Vector{}, dres.Outputs()[0]...),
			}
			att, _ := m.Attend(enc.results(), hPool, lastOnly)
			probs := stableSoftmax(m.Readout.Apply(att).Output())

			attPool := &autofunc.Variable{Vector: att.Output().Copy()}
			for _, idx := range topIndices(probs, width) {
				tok, _ := m.Out.Token(idx)
				newSeq := append(append([]string{}, hyp.Seq...), tok)
				newProb := hyp.Prob * probs[idx]
				if idx == m.Out.EndID() || i == maxLen-1 {
					completed = append(completed, Hypothesis{
						Seq:  stripSentinels(newSeq, m.beginToken(), vocabEnd(m)),
						Prob: newProb,
					})
				} else {
					candidates = append(candidates, Hypothesis{
						Seq:     newSeq,
						Prob:    newProb,
						state:   dres.States()[0],
						context: attPool,
					})
				}
			}
		}
		frontier = topHypotheses(candidates, width)
	}

	completed = topHypotheses(completed, width)
	return completed
}

func (m *Model) beginToken() string {
	tok, _ := m.Out.Token(m.Out.BeginID())
	return tok
}

func vocabEnd(m *Model) string {
	tok, _ := m.Out.Token(m.Out.EndID())
	return tok
}

func stripSentinels(seq []string, begin, end string) []string {
	if len(seq) > 0 && seq[0] == begin {
		seq = seq[1:]
	}
	if len(seq) > 0 && seq[len(seq)-1] == end {
		seq = seq[:len(seq)-1]
	}
	return seq
}

// stableSoftmax exponentiates scores in log-sum-exp form.
func stableSoftmax(scores linalg.Vector) []float64 {
	lse := floats.LogSumExp(scores)
	res := make([]float64, len(scores))
	for i, s := range scores {
		res[i] = math.Exp(s - lse)
	}
	return res
}

// topIndices returns the indices of the k largest values,
// descending, ties broken by ascending index.
func topIndices(vals []float64, k int) []int {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return vals[idx[a]] > vals[idx[b]]
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

// topHypotheses keeps the k most probable hypotheses,
// preserving discovery order among equal probabilities.
func topHypotheses(hyps []Hypothesis, k int) []Hypothesis {
	sort.SliceStable(hyps, func(a, b int) bool {
		return hyps[a].Prob > hyps[b].Prob
	})
	if k < len(hyps) {
		hyps = hyps[:k]
	}
	return hyps
}
