package model

import (
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/serializer"
	"github.com/unixpickle/weakai/neuralnet"
)

func init() {
	var a Attentor
	serializer.RegisterTypedDeserializer(a.SerializerType(), DeserializeAttentor)
	var c Combiner
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCombiner)
}

// An Attentor scores how relevant an encoded vector is to
// the decoder's current hidden state, additive style:
// the score is a learned vector dotted with
// tanh(W_a·query + U_a·encoded).
//
// For efficiency, the first layer is split up into a
// query transformation and an encoder transformation.
// The vectors from these two transformations are added
// and then fed to OutTrans, which applies the tanh and
// reduces to a single scalar.
type Attentor struct {
	QueryTrans neuralnet.Network
	EncTrans   neuralnet.Network
	OutTrans   neuralnet.Network
}

// NewAttentor creates a randomized Attentor for decoder
// states of size hidden and encoded vectors of size
// 2*hidden.
func NewAttentor(hidden int) *Attentor {
	a := &Attentor{
		QueryTrans: neuralnet.Network{
			&neuralnet.DenseLayer{InputCount: hidden, OutputCount: hidden},
		},
		EncTrans: neuralnet.Network{
			&neuralnet.DenseLayer{InputCount: 2 * hidden, OutputCount: hidden},
		},
		OutTrans: neuralnet.Network{
			&neuralnet.HyperbolicTangent{},
			&neuralnet.DenseLayer{InputCount: hidden, OutputCount: 1},
		},
	}
	a.QueryTrans.Randomize()
	a.EncTrans.Randomize()
	a.OutTrans.Randomize()
	return a
}

// DeserializeAttentor deserializes an Attentor.
func DeserializeAttentor(d []byte) (*Attentor, error) {
	var a Attentor
	err := serializer.DeserializeAny(d, &a.QueryTrans, &a.EncTrans, &a.OutTrans)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Attentor", err)
	}
	return &a, nil
}

// Scores computes one raw alignment score per encoded
// vector for the given query.
func (a *Attentor) Scores(query autofunc.Result, enc []autofunc.Result) []autofunc.Result {
	res := make([]autofunc.Result, len(enc))
	q := a.QueryTrans.Apply(query)
	for i, e := range enc {
		res[i] = a.OutTrans.Apply(autofunc.Add(q, a.EncTrans.Apply(e)))
	}
	return res
}

// Parameters returns the network's parameters.
func (a *Attentor) Parameters() []*autofunc.Variable {
	var res []*autofunc.Variable
	for _, n := range []neuralnet.Network{a.QueryTrans, a.EncTrans, a.OutTrans} {
		res = append(res, n.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// an Attentor with the serializer package.
func (a *Attentor) SerializerType() string {
	return "github.com/jkastner/seqtrans/model.Attentor"
}

// Serialize serializes an Attentor.
func (a *Attentor) Serialize() ([]byte, error) {
	return serializer.SerializeAny(a.QueryTrans, a.EncTrans, a.OutTrans)
}

// A Combiner is a feed-forward network that takes two
// vectors as inputs and produces one output vector.
//
// For efficiency, the first layer is split up into two
// separate transformations.
// The vectors from these two transformations are added
// and then fed to OutTrans.
type Combiner struct {
	InTrans  [2]neuralnet.Network
	OutTrans neuralnet.Network
}

// NewCombiner creates a randomized Combiner mapping a
// decoder state (hidden) plus a context vector (2*hidden)
// to an attended output vector (3*hidden) through a tanh.
func NewCombiner(hidden int) *Combiner {
	c := &Combiner{
		InTrans: [2]neuralnet.Network{
			{&neuralnet.DenseLayer{InputCount: hidden, OutputCount: 3 * hidden}},
			{&neuralnet.DenseLayer{InputCount: 2 * hidden, OutputCount: 3 * hidden}},
		},
		OutTrans: neuralnet.Network{&neuralnet.HyperbolicTangent{}},
	}
	c.InTrans[0].Randomize()
	c.InTrans[1].Randomize()
	return c
}

// DeserializeCombiner deserializes a Combiner.
func DeserializeCombiner(d []byte) (*Combiner, error) {
	var c Combiner
	err := serializer.DeserializeAny(d, &c.InTrans[0], &c.InTrans[1], &c.OutTrans)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Combiner", err)
	}
	return &c, nil
}

// Apply applies the Combiner.
func (c *Combiner) Apply(in1, in2 autofunc.Result) autofunc.Result {
	return c.OutTrans.Apply(autofunc.Add(
		c.InTrans[0].Apply(in1),
		c.InTrans[1].Apply(in2),
	))
}

// Parameters returns the network's parameters.
func (c *Combiner) Parameters() []*autofunc.Variable {
	var res []*autofunc.Variable
	for _, n := range []neuralnet.Network{c.InTrans[0], c.InTrans[1], c.OutTrans} {
		res = append(res, n.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a Combiner with the serializer package.
func (c *Combiner) SerializerType() string {
	return "github.com/jkastner/seqtrans/model.Combiner"
}

// Serialize serializes a Combiner.
func (c *Combiner) Serialize() ([]byte, error) {
	return serializer.SerializeAny(c.InTrans[0], c.InTrans[1], c.OutTrans)
}

// Attend runs one attention step: it scores every encoded
// position against the decoder state hDec, normalizes the
// scores with a fused (log-sum-exp) softmax, computes the
// weighted-sum context vector and combines it with hDec
// into the attended output vector.
//
// The returned weights sum to 1 over the encoded
// positions.
// Scores are normalized over every position, padding
// included; the loss mask still zeroes padded output
// steps.
//
// When lastOnly is set, only the final encoded vector is
// attended to.
func (m *Model) Attend(enc []autofunc.Result, hDec autofunc.Result,
	lastOnly bool) (autofunc.Result, linalg.Vector) {
	if lastOnly {
		enc = enc[len(enc)-1:]
	}
	scores := m.Attn.Scores(hDec, enc)
	joined := autofunc.Concat(scores...)
	weights := autofunc.Exp{}.Apply((&neuralnet.LogSoftmaxLayer{}).Apply(joined))

	var rawWeights linalg.Vector
	context := autofunc.Pool(weights, func(w autofunc.Result) autofunc.Result {
		rawWeights = w.Output().Copy()
		var sum autofunc.Result
		for i, e := range enc {
			scaled := autofunc.ScaleFirst(e, autofunc.Slice(w, i, i+1))
			if sum == nil {
				sum = scaled
			} else {
				sum = autofunc.Add(sum, scaled)
			}
		}
		return sum
	})
	return m.Comb.Apply(hDec, context), rawWeights
}
