package corpus

import "github.com/jkastner/seqtrans/vocab"

// A Batch is a set of parallel examples padded to a common
// length per side.
// Padding repeats the END symbol id; a parallel mask of
// identical shape records which positions are real
// (1 = real token, 0 = padding).
//
// Output sequences carry one trailing END token before
// padding, and the mask counts that END as real: the
// decoder is trained to produce it.
type Batch struct {
	Pairs []Pair

	// In and InMask are lane-major: In[i][t] is the id of
	// example i at position t.
	In     [][]int
	InMask [][]float64

	Out     [][]int
	OutMask [][]float64
}

// NewBatch pads and masks a set of examples.
func NewBatch(pairs Set, in, out *vocab.Vocab) *Batch {
	b := &Batch{Pairs: pairs}
	b.In, b.InMask = padIDs(pairs.Inputs(), in, false)
	b.Out, b.OutMask = padIDs(pairs.Outputs(), out, true)
	return b
}

// padIDs maps sequences to ids padded to the longest
// length in the group, with END reused as the padding id.
// When appendEnd is set, every sequence is extended with
// one END token before padding and the mask covers it.
func padIDs(seqs [][]string, v *vocab.Vocab, appendEnd bool) ([][]int, [][]float64) {
	maxLen := 0
	for _, seq := range seqs {
		n := len(seq)
		if appendEnd {
			n++
		}
		if n > maxLen {
			maxLen = n
		}
	}
	ids := make([][]int, len(seqs))
	masks := make([][]float64, len(seqs))
	for i, seq := range seqs {
		n := len(seq)
		if appendEnd {
			n++
		}
		ids[i] = make([]int, maxLen)
		masks[i] = make([]float64, maxLen)
		for t := 0; t < maxLen; t++ {
			switch {
			case t < len(seq):
				ids[i][t] = v.ID(seq[t])
			default:
				ids[i][t] = v.EndID()
			}
			if t < n {
				masks[i][t] = 1
			}
		}
	}
	return ids, masks
}
