// Package vocab maps tokens to stable integer ids.
package vocab

import (
	"encoding/json"
	"sort"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// Reserved symbols, appended after the data-derived tokens.
const (
	Unknown = "UNK"
	Begin   = "<s>"
	End     = "</s>"
)

func init() {
	var v Vocab
	serializer.RegisterTypedDeserializer(v.SerializerType(), DeserializeVocab)
}

// A Vocab is a frozen, ordered set of distinct tokens.
// The id of a token is its position in the ordering.
// Every Vocab ends with the Unknown, Begin and End
// symbols, in that order.
type Vocab struct {
	tokens []string
	ids    map[string]int
}

// Build creates a Vocab from token sequences, keeping at
// most max distinct data tokens (most frequent first; ties
// keep first-occurrence order).
// A non-positive max means no cap.
func Build(seqs [][]string, max int) *Vocab {
	counts := map[string]int{}
	first := map[string]int{}
	var order []string
	for _, seq := range seqs {
		for _, tok := range seq {
			if _, ok := counts[tok]; !ok {
				first[tok] = len(order)
				order = append(order, tok)
			}
			counts[tok]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		ti, tj := order[i], order[j]
		if counts[ti] != counts[tj] {
			return counts[ti] > counts[tj]
		}
		return first[ti] < first[tj]
	})
	if max > 0 && len(order) > max {
		order = order[:max]
	}
	order = append(order, Unknown, Begin, End)
	return newVocab(order)
}

// DeserializeVocab deserializes a Vocab.
func DeserializeVocab(d []byte) (*Vocab, error) {
	var tokens []string
	if err := json.Unmarshal(d, &tokens); err != nil {
		return nil, essentials.AddCtx("deserialize Vocab", err)
	}
	return newVocab(tokens), nil
}

func newVocab(tokens []string) *Vocab {
	res := &Vocab{tokens: tokens, ids: map[string]int{}}
	for i, tok := range tokens {
		if _, ok := res.ids[tok]; !ok {
			res.ids[tok] = i
		}
	}
	return res
}

// Len returns the number of tokens, reserved symbols
// included.
func (v *Vocab) Len() int {
	return len(v.tokens)
}

// ID returns the id for a token, substituting the Unknown
// id for tokens outside the vocabulary.
func (v *Vocab) ID(token string) int {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.ids[Unknown]
}

// Lookup returns the id for a token and whether the token
// is actually in the vocabulary.
func (v *Vocab) Lookup(token string) (int, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// Token returns the token for an id.
func (v *Vocab) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// BeginID returns the id of the Begin symbol.
func (v *Vocab) BeginID() int {
	return v.ids[Begin]
}

// EndID returns the id of the End symbol.
// Padding reuses this id.
func (v *Vocab) EndID() int {
	return v.ids[End]
}

// UnknownID returns the id of the Unknown symbol.
func (v *Vocab) UnknownID() int {
	return v.ids[Unknown]
}

// SerializerType returns the unique ID used to serialize
// a Vocab with the serializer package.
func (v *Vocab) SerializerType() string {
	return "github.com/jkastner/seqtrans/vocab.Vocab"
}

// Serialize serializes the Vocab.
func (v *Vocab) Serialize() ([]byte, error) {
	return json.Marshal(v.tokens)
}
