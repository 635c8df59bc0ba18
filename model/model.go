// Package model implements an attention-based
// encoder-decoder sequence transduction model: a
// bidirectional LSTM encoder, an additive attention
// scorer with a tanh combination layer, and an
// input-feeding LSTM decoder.
package model

import (
	"os"
	"path/filepath"

	"github.com/jkastner/seqtrans/vocab"
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
	"github.com/unixpickle/weakai/neuralnet"
	"github.com/unixpickle/weakai/rnn"
)

func init() {
	var m Model
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModel)
}

// A Model owns every parameter of one trained instance,
// together with the vocabularies it was built with.
// The whole collection is serialized atomically into a
// single checkpoint artifact.
type Model struct {
	Conf *Config

	In  *vocab.Vocab
	Out *vocab.Vocab

	// InEmbed and OutEmbed are the input and output token
	// embedding tables.
	// InitFeed is a single learned vector seeding the
	// decoder's input feeding at the first step.
	InEmbed  *Embedding
	OutEmbed *Embedding
	InitFeed *Embedding

	// EncFwd and EncBwd run over the input ids in opposite
	// directions; their per-position states are
	// concatenated.
	EncFwd rnn.Block
	EncBwd rnn.Block

	// Dec consumes concat(previous output embedding,
	// previous attended vector).
	Dec rnn.Block

	Attn *Attentor
	Comb *Combiner

	// Readout projects attended vectors (3*hidden) to
	// unnormalized output-vocabulary scores.
	Readout neuralnet.Network
}

// New creates a randomized model for the given frozen
// vocabularies.
func New(conf Config, in, out *vocab.Vocab) *Model {
	h := conf.HiddenDim
	readout := neuralnet.Network{
		&neuralnet.DenseLayer{InputCount: 3 * h, OutputCount: out.Len()},
	}
	readout.Randomize()
	return &Model{
		Conf:     &conf,
		In:       in,
		Out:      out,
		InEmbed:  NewEmbedding(in.Len(), conf.InputDim),
		OutEmbed: NewEmbedding(out.Len(), conf.InputDim),
		InitFeed: NewEmbedding(1, 3*h),
		EncFwd:   newLSTMStack(conf.Layers, conf.InputDim, h),
		EncBwd:   newLSTMStack(conf.Layers, conf.InputDim, h),
		Dec:      newLSTMStack(conf.Layers, conf.InputDim+3*h, h),
		Attn:     NewAttentor(h),
		Comb:     NewCombiner(h),
		Readout:  readout,
	}
}

func newLSTMStack(layers, in, hidden int) rnn.Block {
	if layers < 1 {
		layers = 1
	}
	res := rnn.StackedBlock{rnn.NewLSTM(in, hidden)}
	for i := 1; i < layers; i++ {
		res = append(res, rnn.NewLSTM(hidden, hidden))
	}
	return res
}

// DeserializeModel deserializes a Model.
func DeserializeModel(d []byte) (*Model, error) {
	var m Model
	err := serializer.DeserializeAny(d, &m.Conf, &m.In, &m.Out, &m.InEmbed,
		&m.OutEmbed, &m.InitFeed, &m.EncFwd, &m.EncBwd, &m.Dec, &m.Attn,
		&m.Comb, &m.Readout)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	return &m, nil
}

// Load reads a model checkpoint from disk.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load model", err)
	}
	var m *Model
	if err := serializer.DeserializeAny(data, &m); err != nil {
		return nil, essentials.AddCtx("load model", err)
	}
	return m, nil
}

// Save writes the full parameter collection to path,
// replacing any existing checkpoint atomically.
func (m *Model) Save(path string) error {
	data, err := serializer.SerializeAny(m)
	if err != nil {
		return essentials.AddCtx("save model", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return essentials.AddCtx("save model", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return essentials.AddCtx("save model", err)
	}
	return nil
}

// Exists reports whether a checkpoint file is present at
// path.
func Exists(path string) bool {
	info, err := os.Stat(filepath.Clean(path))
	return err == nil && !info.IsDir()
}

type paramer interface {
	Parameters() []*autofunc.Variable
}

// Parameters returns every learned parameter of the model.
func (m *Model) Parameters() []*autofunc.Variable {
	res := append([]*autofunc.Variable{}, m.InEmbed.Parameters()...)
	res = append(res, m.OutEmbed.Parameters()...)
	res = append(res, m.InitFeed.Parameters()...)
	for _, b := range []rnn.Block{m.EncFwd, m.EncBwd, m.Dec} {
		if p, ok := b.(paramer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	res = append(res, m.Attn.Parameters()...)
	res = append(res, m.Comb.Parameters()...)
	res = append(res, m.Readout.Parameters()...)
	return res
}

// SerializerType returns the unique ID used to serialize
// a Model with the serializer package.
func (m *Model) SerializerType() string {
	return "github.com/jkastner/seqtrans/model.Model"
}

// Serialize serializes the Model.
func (m *Model) Serialize() ([]byte, error) {
	return serializer.SerializeAny(m.Conf, m.In, m.Out, m.InEmbed, m.OutEmbed,
		m.InitFeed, m.EncFwd, m.EncBwd, m.Dec, m.Attn, m.Comb, m.Readout)
}
