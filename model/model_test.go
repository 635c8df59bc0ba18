package model

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jkastner/seqtrans/vocab"
)

func testSequences(lines ...string) [][]string {
	res := make([][]string, len(lines))
	for i, l := range lines {
		res[i] = strings.Fields(l)
	}
	return res
}

func testModel() *Model {
	in := vocab.Build(testSequences("a b c d", "b c e"), 100)
	out := vocab.Build(testSequences("x y z", "y w"), 100)
	return New(Config{InputDim: 6, HiddenDim: 4, Layers: 1}, in, out)
}

func TestModelSerializeRoundTrip(t *testing.T) {
	m := testModel()
	path := filepath.Join(t.TempDir(), "checkpoint.bin")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Fatal("checkpoint not reported as existing")
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	origParams := m.Parameters()
	loadedParams := loaded.Parameters()
	if len(origParams) != len(loadedParams) {
		t.Fatalf("parameter count changed: %d vs %d",
			len(origParams), len(loadedParams))
	}
	for i, p := range origParams {
		if !reflect.DeepEqual(p.Vector, loadedParams[i].Vector) {
			t.Fatalf("parameter %d differs after round trip", i)
		}
	}

	input := strings.Fields("a b c")
	orig, _ := m.Greedy(input, 10, false)
	after, _ := loaded.Greedy(input, 10, false)
	if !reflect.DeepEqual(orig, after) {
		t.Errorf("predictions differ after round trip: %v vs %v", orig, after)
	}
}

func TestModelExistsMissing(t *testing.T) {
	if Exists(filepath.Join(t.TempDir(), "nope.bin")) {
		t.Error("missing checkpoint reported as existing")
	}
}

func TestModelDecoderInputSizes(t *testing.T) {
	m := testModel()
	// The decoder consumes the previous output embedding
	// concatenated with the previous attended vector.
	feedSize := m.Conf.InputDim + 3*m.Conf.HiddenDim
	if got := len(m.InitFeed.Vector(0)); got != 3*m.Conf.HiddenDim {
		t.Errorf("init feed size %d, expected %d", got, 3*m.Conf.HiddenDim)
	}
	if got := m.OutEmbed.Dim + len(m.InitFeed.Vector(0)); got != feedSize {
		t.Errorf("decoder feed size %d, expected %d", got, feedSize)
	}
}
