package model

import (
	"reflect"
	"testing"
)

func TestEncodeSequenceShape(t *testing.T) {
	m := testModel()
	ids := []int{0, 1, 2}
	vecs := m.EncodeSequence(ids)
	if len(vecs) != len(ids)+2 {
		t.Fatalf("got %d vectors, expected %d", len(vecs), len(ids)+2)
	}
	for i, v := range vecs {
		if len(v) != 2*m.Conf.HiddenDim {
			t.Errorf("vector %d has size %d, expected %d",
				i, len(v), 2*m.Conf.HiddenDim)
		}
	}
}

func TestEncodeSequenceDeterministic(t *testing.T) {
	m := testModel()
	first := m.EncodeSequence([]int{1, 0})
	again := m.EncodeSequence([]int{1, 0})
	if !reflect.DeepEqual(first, again) {
		t.Error("encoding is not deterministic")
	}
}

func TestEncodeSequenceOrderSensitive(t *testing.T) {
	m := testModel()
	ab := m.EncodeSequence([]int{0, 1})
	ba := m.EncodeSequence([]int{1, 0})
	if reflect.DeepEqual(ab, ba) {
		t.Error("reversed input produced identical encodings")
	}
}
