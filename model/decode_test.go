package model

import (
	"reflect"
	"strings"
	"testing"

	"github.com/jkastner/seqtrans/vocab"
)

func TestGreedyDeterministic(t *testing.T) {
	m := testModel()
	input := strings.Fields("a b c")
	first, _ := m.Greedy(input, 10, false)
	for i := 0; i < 3; i++ {
		again, _ := m.Greedy(input, 10, false)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced %v, first run produced %v", i, again, first)
		}
	}
}

func TestGreedyTermination(t *testing.T) {
	m := testModel()
	out, alphas := m.Greedy(strings.Fields("a b"), 5, false)
	if len(out) > 5 {
		t.Errorf("output of length %d exceeds cap", len(out))
	}
	if len(alphas) > 5 {
		t.Errorf("%d attention rows for at most 5 steps", len(alphas))
	}
	for _, tok := range out {
		if tok == vocab.Begin || tok == vocab.End {
			t.Errorf("sentinel %q leaked into output", tok)
		}
	}
}

func TestGreedyEmptyInput(t *testing.T) {
	m := testModel()
	out, alphas := m.Greedy(nil, 10, false)
	if out != nil || alphas != nil {
		t.Errorf("empty input produced %v", out)
	}
}

func TestGreedyAttentionRows(t *testing.T) {
	m := testModel()
	input := strings.Fields("a b c")
	_, alphas := m.Greedy(input, 10, false)
	for i, row := range alphas {
		// Input plus the BEGIN and END wrapping.
		if len(row) != len(input)+2 {
			t.Errorf("attention row %d has %d entries, expected %d",
				i, len(row), len(input)+2)
		}
	}
}

func TestBeamSearchWidthOne(t *testing.T) {
	m := testModel()
	input := strings.Fields("a b c")
	greedy, _ := m.Greedy(input, 10, false)
	hyps := m.BeamSearch(input, 1, 10, false)
	if len(hyps) == 0 {
		t.Fatal("no completed hypotheses")
	}
	// A width-1 beam takes the argmax at every step, same as
	// greedy decoding.
	if !reflect.DeepEqual(hyps[0].Seq, greedy) {
		t.Errorf("width-1 beam produced %v, greedy produced %v",
			hyps[0].Seq, greedy)
	}
}

func TestBeamSearchRanking(t *testing.T) {
	m := testModel()
	hyps := m.BeamSearch(strings.Fields("a b c d"), 3, 8, false)
	if len(hyps) > 3 {
		t.Fatalf("got %d hypotheses for width 3", len(hyps))
	}
	for i := 1; i < len(hyps); i++ {
		if hyps[i].Prob > hyps[i-1].Prob {
			t.Errorf("hypotheses out of order: %f before %f",
				hyps[i-1].Prob, hyps[i].Prob)
		}
	}
	for _, h := range hyps {
		if h.Prob < 0 || h.Prob > 1 {
			t.Errorf("probability %f outside [0, 1]", h.Prob)
		}
		for _, tok := range h.Seq {
			if tok == vocab.Begin || tok == vocab.End {
				t.Errorf("sentinel %q leaked into hypothesis", tok)
			}
		}
	}
}

func TestBeamSearchDeterministic(t *testing.T) {
	m := testModel()
	input := strings.Fields("b c e")
	first := m.BeamSearch(input, 4, 6, false)
	again := m.BeamSearch(input, 4, 6, false)
	if !reflect.DeepEqual(first, again) {
		t.Error("beam search is not deterministic")
	}
}

func TestBeamSearchEmptyInput(t *testing.T) {
	m := testModel()
	if hyps := m.BeamSearch(nil, 3, 10, false); hyps != nil {
		t.Errorf("empty input produced %d hypotheses", len(hyps))
	}
}
