package model

import (
	"encoding/json"
	"math/rand"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/serializer"
)

func init() {
	var e Embedding
	serializer.RegisterTypedDeserializer(e.SerializerType(), DeserializeEmbedding)
}

// An Embedding is a learned lookup table mapping ids to
// dense vectors.
// The one-row case doubles as a single learned vector
// (the decoder's initial input-feeding seed).
type Embedding struct {
	Rows    int
	Dim     int
	Weights *autofunc.Variable
}

// NewEmbedding creates a randomized embedding table.
func NewEmbedding(rows, dim int) *Embedding {
	vec := make(linalg.Vector, rows*dim)
	scale := 1.0 / float64(dim)
	for i := range vec {
		vec[i] = rand.NormFloat64() * scale
	}
	return &Embedding{
		Rows:    rows,
		Dim:     dim,
		Weights: &autofunc.Variable{Vector: vec},
	}
}

// DeserializeEmbedding deserializes an Embedding.
func DeserializeEmbedding(d []byte) (*Embedding, error) {
	var obj struct {
		Rows int       `json:"rows"`
		Dim  int       `json:"dim"`
		Data []float64 `json:"data"`
	}
	if err := json.Unmarshal(d, &obj); err != nil {
		return nil, essentials.AddCtx("deserialize Embedding", err)
	}
	return &Embedding{
		Rows:    obj.Rows,
		Dim:     obj.Dim,
		Weights: &autofunc.Variable{Vector: obj.Data},
	}, nil
}

// Embed returns the differentiable embedding for an id.
func (e *Embedding) Embed(id int) autofunc.Result {
	return autofunc.Slice(e.Weights, id*e.Dim, (id+1)*e.Dim)
}

// Vector returns the raw embedding row for an id.
func (e *Embedding) Vector(id int) linalg.Vector {
	return e.Weights.Vector[id*e.Dim : (id+1)*e.Dim]
}

// Parameters returns the table's single parameter.
func (e *Embedding) Parameters() []*autofunc.Variable {
	return []*autofunc.Variable{e.Weights}
}

// SerializerType returns the unique ID used to serialize
// an Embedding with the serializer package.
func (e *Embedding) SerializerType() string {
	return "github.com/jkastner/seqtrans/model.Embedding"
}

// Serialize serializes the Embedding.
func (e *Embedding) Serialize() ([]byte, error) {
	return json.Marshal(struct {
		Rows int       `json:"rows"`
		Dim  int       `json:"dim"`
		Data []float64 `json:"data"`
	}{e.Rows, e.Dim, e.Weights.Vector})
}
