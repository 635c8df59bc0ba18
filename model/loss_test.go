package model

import (
	"math"
	"testing"

	"github.com/jkastner/seqtrans/corpus"
	"github.com/unixpickle/autofunc"
)

func TestBatchLossPaddingInvariance(t *testing.T) {
	m := testModel()
	// Equal input lengths keep the encoder inputs identical
	// whether or not the examples share a batch; only the
	// output side gets padded.
	short := corpus.Pair{
		In:  []string{"a", "b", "c"},
		Out: []string{"x"},
	}
	long := corpus.Pair{
		In:  []string{"b", "c", "a"},
		Out: []string{"y", "z", "x"},
	}

	shortAlone := m.BatchLoss(corpus.NewBatch(corpus.Set{short}, m.In, m.Out),
		nil, false)
	longAlone := m.BatchLoss(corpus.NewBatch(corpus.Set{long}, m.In, m.Out),
		nil, false)
	joint := m.BatchLoss(corpus.NewBatch(corpus.Set{long, short}, m.In, m.Out),
		nil, false)

	// The short example's padded output steps are masked out
	// of the loss, so batching adds nothing.
	if math.Abs(joint-(shortAlone+longAlone)) > 1e-9 {
		t.Errorf("joint loss %f, expected %f", joint, shortAlone+longAlone)
	}
}

func TestBatchLossPositive(t *testing.T) {
	m := testModel()
	b := corpus.NewBatch(corpus.Set{
		{In: []string{"a", "b", "c"}, Out: []string{"x", "y"}},
	}, m.In, m.Out)
	if loss := m.BatchLoss(b, nil, false); loss <= 0 {
		t.Errorf("NLL loss is %f, expected positive", loss)
	}
}

func TestBatchLossGradient(t *testing.T) {
	vocabs := testModel()
	m := New(Config{InputDim: 3, HiddenDim: 2, Layers: 1}, vocabs.In, vocabs.Out)
	b := corpus.NewBatch(corpus.Set{
		{In: []string{"a", "b"}, Out: []string{"x", "y"}},
	}, m.In, m.Out)

	params := m.Parameters()
	g := autofunc.NewGradient(params)
	m.BatchLoss(b, g, false)

	const eps = 1e-5
	for _, p := range params {
		for i := range p.Vector {
			old := p.Vector[i]
			p.Vector[i] = old + eps
			plus := m.BatchLoss(b, nil, false)
			p.Vector[i] = old - eps
			minus := m.BatchLoss(b, nil, false)
			p.Vector[i] = old

			numeric := (plus - minus) / (2 * eps)
			analytic := g[p][i]
			if math.Abs(numeric-analytic) > 1e-4*(1+math.Abs(numeric)) {
				t.Fatalf("gradient mismatch at component %d: numeric %f, analytic %f",
					i, numeric, analytic)
			}
		}
	}
}

func TestBatchLossLastOnly(t *testing.T) {
	m := testModel()
	b := corpus.NewBatch(corpus.Set{
		{In: []string{"a", "b", "c"}, Out: []string{"x", "y"}},
	}, m.In, m.Out)
	g := autofunc.NewGradient(m.Parameters())
	if loss := m.BatchLoss(b, g, true); loss <= 0 {
		t.Errorf("last-state loss is %f, expected positive", loss)
	}
}
