// Package translate decodes input sequences with a trained
// model and manages multi-model ensembles.
package translate

import (
	"bufio"
	"os"
	"strings"

	"github.com/jkastner/seqtrans/model"
	"github.com/unixpickle/essentials"
)

// Options controls decoding.
type Options struct {
	// BeamWidth of 1 or less means greedy decoding.
	BeamWidth int

	// MaxLen caps the generated output length.
	MaxLen int

	LastStateOnly bool
}

// All decodes every input sequence and returns predictions
// correlated with the inputs by index.
func All(m *model.Model, inputs [][]string, opts Options) [][]string {
	preds := make([][]string, len(inputs))
	for i, in := range inputs {
		preds[i] = One(m, in, opts)
	}
	return preds
}

// One decodes a single input sequence.
func One(m *model.Model, input []string, opts Options) []string {
	if opts.BeamWidth <= 1 {
		out, _ := m.Greedy(input, opts.MaxLen, opts.LastStateOnly)
		return out
	}
	hyps := m.BeamSearch(input, opts.BeamWidth, opts.MaxLen, opts.LastStateOnly)
	if len(hyps) == 0 {
		return nil
	}
	return hyps[0].Seq
}

// WriteResults writes one prediction per line, tokens
// joined by single spaces.
func WriteResults(path string, preds [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return essentials.AddCtx("write results", err)
	}
	w := bufio.NewWriter(f)
	for _, p := range preds {
		if _, err := w.WriteString(strings.Join(p, " ") + "\n"); err != nil {
			f.Close()
			return essentials.AddCtx("write results", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return essentials.AddCtx("write results", err)
	}
	if err := f.Close(); err != nil {
		return essentials.AddCtx("write results", err)
	}
	return nil
}

// EnsembleMajority combines per-model predictions by
// plurality vote on whole output sequences. perModel is
// indexed [model][input]; all models must cover the same
// inputs. Vote ties go to the earliest model whose
// prediction reached the winning count.
func EnsembleMajority(perModel [][][]string) [][]string {
	if len(perModel) == 0 {
		return nil
	}
	n := len(perModel[0])
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		counts := map[string]int{}
		bestCount := 0
		var best []string
		for _, preds := range perModel {
			p := preds[i]
			key := strings.Join(p, " ")
			counts[key]++
			if counts[key] > bestCount {
				bestCount = counts[key]
				best = p
			}
		}
		out[i] = best
	}
	return out
}
