// Package eval scores candidate translations against
// references.
package eval

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// maxOrder is the highest n-gram order used by CorpusBLEU.
const maxOrder = 4

// CorpusBLEU computes corpus-level BLEU on a 0-100 scale
// for hypotheses against single references, using n-gram
// orders 1 through 4 with clipped counts and a brevity
// penalty.
//
// Orders for which the hypotheses contain no n-grams at all
// are skipped rather than scored as zero, so very short
// corpora still get a defined score. A zero clipped count
// at any remaining order makes the whole score zero.
//
// refs and hyps correlate by index and must be the same
// length.
func CorpusBLEU(refs, hyps [][]string) float64 {
	if len(refs) != len(hyps) {
		panic("eval: reference and hypothesis counts differ")
	}

	var matches, totals [maxOrder]float64
	var refLen, hypLen int
	for i, hyp := range hyps {
		ref := refs[i]
		refLen += len(ref)
		hypLen += len(hyp)
		for n := 1; n <= maxOrder; n++ {
			m, t := clippedMatches(ref, hyp, n)
			matches[n-1] += m
			totals[n-1] += t
		}
	}

	var logPrecisions []float64
	for n := 0; n < maxOrder; n++ {
		if totals[n] == 0 {
			continue
		}
		if matches[n] == 0 {
			return 0
		}
		logPrecisions = append(logPrecisions, math.Log(matches[n]/totals[n]))
	}
	if len(logPrecisions) == 0 {
		return 0
	}
	geoMean := math.Exp(floats.Sum(logPrecisions) / float64(len(logPrecisions)))

	bp := 1.0
	if hypLen < refLen {
		if hypLen == 0 {
			return 0
		}
		bp = math.Exp(1 - float64(refLen)/float64(hypLen))
	}
	return 100 * bp * geoMean
}

// clippedMatches counts the hypothesis n-grams of order n
// that also occur in the reference, clipping each n-gram's
// count at its reference count, and returns the match
// count together with the total candidate n-gram count.
func clippedMatches(ref, hyp []string, n int) (matched, total float64) {
	refCounts := countNGrams(ref, n)
	hypCounts := countNGrams(hyp, n)
	for gram, c := range hypCounts {
		total += float64(c)
		if rc, ok := refCounts[gram]; ok {
			if c > rc {
				c = rc
			}
			matched += float64(c)
		}
	}
	return
}

func countNGrams(seq []string, n int) map[string]int {
	counts := map[string]int{}
	for i := 0; i+n <= len(seq); i++ {
		counts[strings.Join(seq[i:i+n], "\x00")]++
	}
	return counts
}
