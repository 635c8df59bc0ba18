package eval

import (
	"math"
	"strings"
	"testing"
)

func toks(s string) []string {
	return strings.Fields(s)
}

func TestCorpusBLEUPerfect(t *testing.T) {
	refs := [][]string{
		toks("the cat sat on the mat"),
		toks("a quick brown fox jumps over the lazy dog"),
	}
	score := CorpusBLEU(refs, refs)
	if math.Abs(score-100) > 1e-9 {
		t.Errorf("perfect match scored %f, expected 100", score)
	}
}

func TestCorpusBLEUDisjoint(t *testing.T) {
	refs := [][]string{toks("a b c d e")}
	hyps := [][]string{toks("v w x y z")}
	if score := CorpusBLEU(refs, hyps); score != 0 {
		t.Errorf("disjoint hypothesis scored %f, expected 0", score)
	}
}

func TestCorpusBLEUEmptyHypothesis(t *testing.T) {
	refs := [][]string{toks("a b c")}
	hyps := [][]string{nil}
	if score := CorpusBLEU(refs, hyps); score != 0 {
		t.Errorf("empty hypothesis scored %f, expected 0", score)
	}
}

func TestCorpusBLEUShortSequences(t *testing.T) {
	// Two-token sequences have no 3-grams or 4-grams; the
	// missing orders are skipped, not scored as zero.
	refs := [][]string{toks("a b")}
	score := CorpusBLEU(refs, refs)
	if math.Abs(score-100) > 1e-9 {
		t.Errorf("short perfect match scored %f, expected 100", score)
	}
}

func TestCorpusBLEUBrevityPenalty(t *testing.T) {
	refs := [][]string{toks("a b c d")}
	hyps := [][]string{toks("a b")}
	// Unigram precision 1, bigram precision 1, shorter
	// orders skipped. BP = exp(1 - 4/2).
	want := 100 * math.Exp(-1)
	score := CorpusBLEU(refs, hyps)
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("got %f, expected %f", score, want)
	}
}

func TestCorpusBLEUClipping(t *testing.T) {
	refs := [][]string{toks("the cat")}
	hyps := [][]string{toks("the the")}
	// Unigram matches clip at one "the"; bigram "the the"
	// is unmatched, so the score is zero.
	if score := CorpusBLEU(refs, hyps); score != 0 {
		t.Errorf("got %f, expected 0", score)
	}
}

func TestCorpusBLEUMismatchedLengths(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on mismatched lengths")
		}
	}()
	CorpusBLEU([][]string{toks("a")}, nil)
}
