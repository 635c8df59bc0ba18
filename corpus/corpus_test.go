package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jkastner/seqtrans/vocab"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParallel(t *testing.T) {
	inPath := writeTemp(t, "in.txt", "a b c\nd e\n\n")
	outPath := writeTemp(t, "out.txt", "x y\nz\nw w w\n")
	set, err := LoadParallel(inPath, outPath, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(set) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(set))
	}
	if len(set[0].In) != 3 || len(set[0].Out) != 2 {
		t.Errorf("bad first pair: %v", set[0])
	}
	if len(set[2].In) != 0 {
		t.Errorf("blank line should load as empty sequence")
	}
}

func TestLoadParallelTruncation(t *testing.T) {
	inPath := writeTemp(t, "in.txt", "a b c d e\n")
	outPath := writeTemp(t, "out.txt", "x y z w v\n")
	set, err := LoadParallel(inPath, outPath, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(set[0].In) != 3 || len(set[0].Out) != 3 {
		t.Errorf("truncation failed: %v", set[0])
	}
}

func TestSortAndBucket(t *testing.T) {
	set := Set{
		{In: []string{"a"}},
		{In: []string{"a", "b", "c"}},
		{In: []string{"a", "b"}},
		{In: []string{"x", "y", "z"}},
	}
	set.SortByInputLen()
	lens := []int{3, 3, 2, 1}
	for i, p := range set {
		if len(p.In) != lens[i] {
			t.Fatalf("bad sort order at %d: %v", i, set)
		}
	}
	// Stable: the length-3 sequences keep original order.
	if set[0].In[0] != "a" || set[1].In[0] != "x" {
		t.Error("sort is not stable")
	}
	batches := set.Bucket(3)
	if len(batches) != 2 || len(batches[0]) != 3 || len(batches[1]) != 1 {
		t.Errorf("bad bucketing: %d batches", len(batches))
	}
}

func TestValid(t *testing.T) {
	if (Set{}).Valid() {
		t.Error("empty batch should be invalid")
	}
	if (Set{{In: nil}}).Valid() {
		t.Error("zero-length first sequence should be invalid")
	}
	if !(Set{{In: []string{"a"}}}).Valid() {
		t.Error("non-empty batch should be valid")
	}
}

func TestNewBatchPadding(t *testing.T) {
	v := vocab.Build([][]string{{"a", "b"}}, 0)
	set := Set{
		{In: []string{"a", "b"}, Out: []string{"b"}},
		{In: []string{"a"}, Out: []string{"a", "b"}},
	}
	b := NewBatch(set, v, v)

	if len(b.In[0]) != 2 || len(b.In[1]) != 2 {
		t.Fatal("inputs not padded to batch max")
	}
	if b.In[1][1] != v.EndID() {
		t.Error("padding should reuse the END id")
	}
	if b.InMask[1][0] != 1 || b.InMask[1][1] != 0 {
		t.Errorf("bad input mask: %v", b.InMask[1])
	}

	// Outputs get one trailing END each, padded to max+1.
	if len(b.Out[0]) != 3 {
		t.Fatalf("expected output length 3, got %d", len(b.Out[0]))
	}
	if b.Out[0][1] != v.EndID() {
		t.Error("trailing END missing")
	}
	if b.OutMask[0][1] != 1 {
		t.Error("trailing END must be unmasked (trained on)")
	}
	if b.OutMask[0][2] != 0 {
		t.Error("padding beyond the trailing END must be masked")
	}
	if b.OutMask[1][2] != 1 {
		t.Errorf("longest output should be fully real: %v", b.OutMask[1])
	}

	// Unknown tokens map to UNK, never fail.
	set2 := Set{{In: []string{"zzz"}, Out: []string{"a"}}}
	b2 := NewBatch(set2, v, v)
	if b2.In[0][0] != v.UnknownID() {
		t.Error("unknown token should map to UNK")
	}
}
