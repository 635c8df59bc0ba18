// Package corpus loads and batches parallel token sequences.
package corpus

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"github.com/unixpickle/essentials"
)

// A Pair is one parallel example: an input token sequence
// and the output token sequence it translates to.
type Pair struct {
	In  []string
	Out []string
}

// A Set is an ordered collection of parallel examples.
type Set []Pair

// LoadParallel reads a parallel corpus from two
// whitespace-tokenized, line-delimited files.
// Line i of the inputs file corresponds to line i of the
// outputs file.
//
// Sequences longer than maxLen tokens are truncated; a
// maxLen of zero or less disables truncation. Truncation is
// meant for training data, not dev and test splits.
func LoadParallel(inPath, outPath string, maxLen int) (Set, error) {
	ins, err := readLines(inPath, maxLen)
	if err != nil {
		return nil, essentials.AddCtx("load parallel data", err)
	}
	outs, err := readLines(outPath, maxLen)
	if err != nil {
		return nil, essentials.AddCtx("load parallel data", err)
	}
	n := len(ins)
	if len(outs) < n {
		n = len(outs)
	}
	res := make(Set, n)
	for i := 0; i < n; i++ {
		res[i] = Pair{In: ins[i], Out: outs[i]}
	}
	return res, nil
}

// LoadInputs reads a single whitespace-tokenized,
// line-delimited input file without truncation.
func LoadInputs(path string) ([][]string, error) {
	seqs, err := readLines(path, 0)
	if err != nil {
		return nil, essentials.AddCtx("load inputs", err)
	}
	return seqs, nil
}

func readLines(path string, maxLen int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var res [][]string
	s := bufio.NewScanner(f)
	s.Buffer(nil, 1<<20)
	for s.Scan() {
		toks := strings.Fields(s.Text())
		if maxLen > 0 && len(toks) > maxLen {
			toks = toks[:maxLen]
		}
		res = append(res, toks)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Inputs returns the input sequences of the set, in order.
func (s Set) Inputs() [][]string {
	res := make([][]string, len(s))
	for i, p := range s {
		res[i] = p.In
	}
	return res
}

// Outputs returns the output sequences of the set, in
// order.
func (s Set) Outputs() [][]string {
	res := make([][]string, len(s))
	for i, p := range s {
		res[i] = p.Out
	}
	return res
}

// SortByInputLen sorts the set by descending input length,
// keeping the original order among equal lengths.
// Bucketing a sorted set into batches reduces padding
// waste.
func (s Set) SortByInputLen() {
	sort.SliceStable(s, func(i, j int) bool {
		return len(s[i].In) > len(s[j].In)
	})
}

// Bucket splits the set into consecutive batches of at
// most batchSize examples.
func (s Set) Bucket(batchSize int) []Set {
	if batchSize < 1 {
		batchSize = 1
	}
	var res []Set
	for i := 0; i < len(s); i += batchSize {
		j := i + batchSize
		if j > len(s) {
			j = len(s)
		}
		res = append(res, s[i:j])
	}
	return res
}

// Valid reports whether a batch can be processed.
// Empty batches and batches whose first sequence has zero
// length are skipped by callers, never treated as errors.
func (s Set) Valid() bool {
	return len(s) > 0 && len(s[0].In) > 0
}
